package scanner

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	logstypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/yairfalse/corral/pkg/resource"
)

// scanLogGroups scans CloudWatch log groups.
func (s *Set) scanLogGroups(ctx context.Context, region string) ([]resource.Record, error) {
	var records []resource.Record

	paginator := cloudwatchlogs.NewDescribeLogGroupsPaginator(s.clients.Logs(region), &cloudwatchlogs.DescribeLogGroupsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return records, fmt.Errorf("describe log groups: %w", err)
		}
		for _, group := range page.LogGroups {
			records = append(records, convertLogGroup(region, group))
		}
	}

	return records, nil
}

func convertLogGroup(region string, group logstypes.LogGroup) resource.Record {
	name := aws.ToString(group.LogGroupName)

	r := newRecord(resource.KindLogGroup, region, name, name, "active", nil)
	if group.CreationTime != nil {
		created := time.UnixMilli(*group.CreationTime)
		r.CreatedAt = timePtr(&created)
	}
	r.Extra["stored_bytes"] = aws.ToInt64(group.StoredBytes)
	if group.RetentionInDays != nil {
		r.Extra["retention_days"] = int(*group.RetentionInDays)
	} else {
		r.Extra["retention_days"] = "Never expire"
	}
	r.Extra["arn"] = aws.ToString(group.Arn)
	return r
}
