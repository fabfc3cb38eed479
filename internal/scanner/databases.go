package scanner

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/corral/internal/awsapi"
	"github.com/yairfalse/corral/pkg/resource"
)

// scanRDS scans RDS instances.
func (s *Set) scanRDS(ctx context.Context, region string) ([]resource.Record, error) {
	client := s.clients.RDS(region)
	var records []resource.Record

	paginator := rds.NewDescribeDBInstancesPaginator(client, &rds.DescribeDBInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return records, fmt.Errorf("describe db instances: %w", err)
		}
		for _, instance := range page.DBInstances {
			records = append(records, convertDBInstance(ctx, client, region, instance))
		}
	}

	return records, nil
}

func convertDBInstance(ctx context.Context, client awsapi.RDSAPI, region string, instance rdstypes.DBInstance) resource.Record {
	id := aws.ToString(instance.DBInstanceIdentifier)

	tags := NormalizeTags(instance.TagList)
	if len(tags) == 0 && instance.DBInstanceArn != nil {
		out, err := client.ListTagsForResource(ctx, &rds.ListTagsForResourceInput{ResourceName: instance.DBInstanceArn})
		if err != nil {
			log.Debug().Err(err).Str("db_instance", id).Msg("list tags failed")
		} else {
			tags = NormalizeTags(out.TagList)
		}
	}

	r := newRecord(resource.KindRDSInstance, region, id, id, aws.ToString(instance.DBInstanceStatus), tags)
	r.CreatedAt = timePtr(instance.InstanceCreateTime)
	r.Extra["engine"] = aws.ToString(instance.Engine)
	r.Extra["engine_version"] = aws.ToString(instance.EngineVersion)
	r.Extra["instance_class"] = aws.ToString(instance.DBInstanceClass)
	r.Extra["allocated_storage_gb"] = int(aws.ToInt32(instance.AllocatedStorage))
	r.Extra["multi_az"] = aws.ToBool(instance.MultiAZ)
	return r
}
