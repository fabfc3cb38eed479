package session

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/rs/zerolog/log"
)

var fallbackRegions = []string{
	"us-east-1",
	"us-east-2",
	"us-west-1",
	"us-west-2",
	"eu-west-1",
	"eu-central-1",
	"ap-southeast-1",
	"ap-northeast-1",
}

// FallbackRegions returns the regions used when discovery fails.
func FallbackRegions() []string {
	return append([]string(nil), fallbackRegions...)
}

// RegionAPI is the EC2 call used to discover enabled regions.
type RegionAPI interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// DiscoverRegions returns the account's enabled regions, sorted and deduplicated.
// It never fails: on error or an empty answer it returns FallbackRegions.
func DiscoverRegions(ctx context.Context, api RegionAPI) []string {
	out, err := api.DescribeRegions(ctx, &ec2.DescribeRegionsInput{AllRegions: aws.Bool(false)})
	if err != nil {
		log.Warn().Err(err).Msg("describe regions failed, using fallback regions")
		return FallbackRegions()
	}

	seen := make(map[string]bool)
	var regions []string
	for _, r := range out.Regions {
		name := aws.ToString(r.RegionName)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		regions = append(regions, name)
	}

	if len(regions) == 0 {
		log.Warn().Msg("no regions returned, using fallback regions")
		return FallbackRegions()
	}

	sort.Strings(regions)
	return regions
}

// ListRegions discovers regions through the default region's EC2 endpoint.
func (p *Provider) ListRegions(ctx context.Context) []string {
	return DiscoverRegions(ctx, p.EC2(p.defaultRegion))
}
