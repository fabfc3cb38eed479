package scanner

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	elb "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/corral/internal/awsapi"
	"github.com/yairfalse/corral/pkg/resource"
)

// describeTagsBatch is the most ARNs DescribeTags accepts per call.
const describeTagsBatch = 20

// scanLoadBalancers scans application, network and gateway load balancers.
func (s *Set) scanLoadBalancers(ctx context.Context, region string) ([]resource.Record, error) {
	client := s.clients.ELB(region)
	var balancers []elbtypes.LoadBalancer

	paginator := elb.NewDescribeLoadBalancersPaginator(client, &elb.DescribeLoadBalancersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return convertLoadBalancers(region, balancers, nil), fmt.Errorf("describe load balancers: %w", err)
		}
		balancers = append(balancers, page.LoadBalancers...)
	}

	return convertLoadBalancers(region, balancers, loadBalancerTags(ctx, client, balancers)), nil
}

// loadBalancerTags fetches tags in batches; a failed batch leaves its balancers untagged.
func loadBalancerTags(ctx context.Context, client awsapi.ELBAPI, balancers []elbtypes.LoadBalancer) map[string]map[string]string {
	tags := make(map[string]map[string]string, len(balancers))

	for start := 0; start < len(balancers); start += describeTagsBatch {
		end := min(start+describeTagsBatch, len(balancers))
		arns := make([]string, 0, end-start)
		for _, lb := range balancers[start:end] {
			arns = append(arns, aws.ToString(lb.LoadBalancerArn))
		}

		out, err := client.DescribeTags(ctx, &elb.DescribeTagsInput{ResourceArns: arns})
		if err != nil {
			log.Debug().Err(err).Int("batch", len(arns)).Msg("describe load balancer tags failed")
			continue
		}
		for _, desc := range out.TagDescriptions {
			tags[aws.ToString(desc.ResourceArn)] = NormalizeTags(desc.Tags)
		}
	}

	return tags
}

func convertLoadBalancers(region string, balancers []elbtypes.LoadBalancer, tags map[string]map[string]string) []resource.Record {
	records := make([]resource.Record, 0, len(balancers))
	for _, lb := range balancers {
		arn := aws.ToString(lb.LoadBalancerArn)
		state := ""
		if lb.State != nil {
			state = string(lb.State.Code)
		}

		r := newRecord(resource.KindLoadBalancer, region, arn, aws.ToString(lb.LoadBalancerName), state, tags[arn])
		r.CreatedAt = timePtr(lb.CreatedTime)
		r.Extra["type"] = string(lb.Type)
		r.Extra["scheme"] = string(lb.Scheme)
		r.Extra["dns_name"] = aws.ToString(lb.DNSName)
		r.Extra["vpc_id"] = aws.ToString(lb.VpcId)
		records = append(records, r)
	}
	return records
}
