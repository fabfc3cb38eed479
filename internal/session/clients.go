package session

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/yairfalse/corral/internal/awsapi"
	"github.com/yairfalse/corral/pkg/resource"
)

// Service names an AWS service client family.
type Service string

const (
	ServiceEC2        Service = "ec2"
	ServiceS3         Service = "s3"
	ServiceCloudWatch Service = "cloudwatch"
	ServiceRDS        Service = "rds"
	ServiceLambda     Service = "lambda"
	ServiceELB        Service = "elasticloadbalancingv2"
	ServiceLogs       Service = "logs"
	ServiceIAM        Service = "iam"
	ServiceSTS        Service = "sts"
)

// Constructor builds a client from a region-specific config.
type Constructor func(cfg aws.Config) any

func defaultConstructors() map[Service]Constructor {
	return map[Service]Constructor{
		ServiceEC2:        func(cfg aws.Config) any { return ec2.NewFromConfig(cfg) },
		ServiceS3:         func(cfg aws.Config) any { return s3.NewFromConfig(cfg) },
		ServiceCloudWatch: func(cfg aws.Config) any { return cloudwatch.NewFromConfig(cfg) },
		ServiceRDS:        func(cfg aws.Config) any { return rds.NewFromConfig(cfg) },
		ServiceLambda:     func(cfg aws.Config) any { return lambda.NewFromConfig(cfg) },
		ServiceELB:        func(cfg aws.Config) any { return elasticloadbalancingv2.NewFromConfig(cfg) },
		ServiceLogs:       func(cfg aws.Config) any { return cloudwatchlogs.NewFromConfig(cfg) },
		ServiceIAM:        func(cfg aws.Config) any { return iam.NewFromConfig(cfg) },
		ServiceSTS:        func(cfg aws.Config) any { return sts.NewFromConfig(cfg) },
	}
}

var _ awsapi.Clients = (*Provider)(nil)

func (p *Provider) EC2(region string) awsapi.EC2API {
	return p.Client(ServiceEC2, region).(awsapi.EC2API)
}

func (p *Provider) S3(region string) awsapi.S3API {
	return p.Client(ServiceS3, region).(awsapi.S3API)
}

func (p *Provider) CloudWatch(region string) awsapi.CloudWatchAPI {
	return p.Client(ServiceCloudWatch, region).(awsapi.CloudWatchAPI)
}

func (p *Provider) RDS(region string) awsapi.RDSAPI {
	return p.Client(ServiceRDS, region).(awsapi.RDSAPI)
}

func (p *Provider) Lambda(region string) awsapi.LambdaAPI {
	return p.Client(ServiceLambda, region).(awsapi.LambdaAPI)
}

func (p *Provider) ELB(region string) awsapi.ELBAPI {
	return p.Client(ServiceELB, region).(awsapi.ELBAPI)
}

func (p *Provider) Logs(region string) awsapi.LogsAPI {
	return p.Client(ServiceLogs, region).(awsapi.LogsAPI)
}

// IAM returns the account-wide IAM client.
func (p *Provider) IAM() awsapi.IAMAPI {
	return p.Client(ServiceIAM, resource.GlobalRegion).(awsapi.IAMAPI)
}

// STSAPI defines the STS operation used to check the caller identity.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Identity describes who the session's credentials belong to.
type Identity struct {
	Account string `json:"account" yaml:"account"`
	ARN     string `json:"arn" yaml:"arn"`
	UserID  string `json:"user_id" yaml:"user_id"`
}

// Identity asks STS who the credentials belong to.
func (p *Provider) Identity(ctx context.Context) (Identity, error) {
	client := p.Client(ServiceSTS, resource.GlobalRegion).(STSAPI)
	out, err := client.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Identity{}, fmt.Errorf("get caller identity: %w", err)
	}
	return Identity{
		Account: aws.ToString(out.Account),
		ARN:     aws.ToString(out.Arn),
		UserID:  aws.ToString(out.UserId),
	}, nil
}
