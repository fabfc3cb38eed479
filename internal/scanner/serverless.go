package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/corral/internal/awsapi"
	"github.com/yairfalse/corral/pkg/resource"
)

// lambdaTimeLayout is the ISO-8601 form Lambda uses for LastModified.
const lambdaTimeLayout = "2006-01-02T15:04:05.000-0700"

// scanLambda scans Lambda functions.
func (s *Set) scanLambda(ctx context.Context, region string) ([]resource.Record, error) {
	client := s.clients.Lambda(region)
	var records []resource.Record

	paginator := lambda.NewListFunctionsPaginator(client, &lambda.ListFunctionsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return records, fmt.Errorf("list functions: %w", err)
		}
		for _, fn := range page.Functions {
			records = append(records, convertFunction(ctx, client, region, fn))
		}
	}

	return records, nil
}

func convertFunction(ctx context.Context, client awsapi.LambdaAPI, region string, fn lambdatypes.FunctionConfiguration) resource.Record {
	arn := aws.ToString(fn.FunctionArn)

	tags := NormalizeTags(nil)
	out, err := client.ListTags(ctx, &lambda.ListTagsInput{Resource: fn.FunctionArn})
	if err != nil {
		log.Debug().Err(err).Str("function", arn).Msg("list tags failed")
	} else {
		tags = NormalizeTags(out.Tags)
	}

	r := newRecord(resource.KindLambdaFunction, region, arn, aws.ToString(fn.FunctionName), "active", tags)
	if t, err := time.Parse(lambdaTimeLayout, aws.ToString(fn.LastModified)); err == nil {
		r.CreatedAt = timePtr(&t)
	}
	r.Extra["runtime"] = string(fn.Runtime)
	r.Extra["handler"] = aws.ToString(fn.Handler)
	r.Extra["memory_mb"] = int(aws.ToInt32(fn.MemorySize))
	r.Extra["timeout_sec"] = int(aws.ToInt32(fn.Timeout))
	r.Extra["code_size_bytes"] = fn.CodeSize
	return r
}
