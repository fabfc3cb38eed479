package scanner

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/corral/internal/awsapi"
	"github.com/yairfalse/corral/pkg/resource"
)

const unknownRegion = "unknown"

// scanBuckets scans S3 buckets. Buckets are listed once per account; each
// record carries the bucket's own region.
func (s *Set) scanBuckets(ctx context.Context, _ string) ([]resource.Record, error) {
	home := s.clients.S3(s.homeRegion)

	output, err := home.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	records := make([]resource.Record, 0, len(output.Buckets))
	for _, bucket := range output.Buckets {
		records = append(records, s.convertBucket(ctx, home, bucket))
	}
	return records, nil
}

func (s *Set) convertBucket(ctx context.Context, home awsapi.S3API, bucket s3types.Bucket) resource.Record {
	name := aws.ToString(bucket.Name)
	region := bucketRegion(ctx, home, name)

	client := home
	if region != unknownRegion {
		client = s.clients.S3(region)
	}

	r := newRecord(resource.KindS3Bucket, region, name, name, "active", bucketTags(ctx, client, name))
	r.CreatedAt = timePtr(bucket.CreationDate)

	if region != unknownRegion {
		size := s.bucketSize(ctx, region, name)
		r.Extra["size_bytes"] = size
		r.Extra["size_gb"] = math.Round(float64(size)/(1<<30)*100) / 100
	}
	return r
}

// bucketRegion resolves a bucket's region; an empty constraint means us-east-1.
func bucketRegion(ctx context.Context, client awsapi.S3API, bucket string) string {
	out, err := client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{Bucket: aws.String(bucket)})
	if err != nil {
		log.Debug().Err(err).Str("bucket", bucket).Msg("get bucket location failed")
		return unknownRegion
	}
	switch out.LocationConstraint {
	case "":
		return "us-east-1"
	case s3types.BucketLocationConstraintEu:
		return "eu-west-1"
	default:
		return string(out.LocationConstraint)
	}
}

func bucketTags(ctx context.Context, client awsapi.S3API, bucket string) map[string]string {
	out, err := client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: aws.String(bucket)})
	if err != nil {
		if !awsapi.IsNoSuchTagSet(err) {
			log.Debug().Err(err).Str("bucket", bucket).Msg("get bucket tagging failed")
		}
		return NormalizeTags(nil)
	}
	return NormalizeTags(out.TagSet)
}

// bucketSize reads the latest daily BucketSizeBytes average for standard storage.
func (s *Set) bucketSize(ctx context.Context, region, bucket string) int64 {
	end := s.now().UTC()
	out, err := s.clients.CloudWatch(region).GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/S3"),
		MetricName: aws.String("BucketSizeBytes"),
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String("BucketName"), Value: aws.String(bucket)},
			{Name: aws.String("StorageType"), Value: aws.String("StandardStorage")},
		},
		StartTime:  aws.Time(end.Add(-48 * time.Hour)),
		EndTime:    aws.Time(end),
		Period:     aws.Int32(86400),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticAverage},
	})
	if err != nil {
		log.Debug().Err(err).Str("bucket", bucket).Msg("get bucket size failed")
		return 0
	}

	var (
		latest time.Time
		size   float64
	)
	for _, dp := range out.Datapoints {
		ts := aws.ToTime(dp.Timestamp)
		if dp.Average != nil && !ts.Before(latest) {
			latest = ts
			size = *dp.Average
		}
	}
	return int64(size)
}
