package awsapitest

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yairfalse/corral/internal/awsapi"
)

// ══════════════════════════════════════════════════════════════════════════════
// EC2
// ══════════════════════════════════════════════════════════════════════════════

var _ awsapi.EC2API = (*EC2)(nil)

// EC2 is a func-field double for awsapi.EC2API. Unset funcs return an empty output.
type EC2 struct {
	Counter

	DescribeRegionsFunc     func(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
	DescribeInstancesFunc   func(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeVolumesFunc     func(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
	DescribeAddressesFunc   func(ctx context.Context, params *ec2.DescribeAddressesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error)
	DescribeNatGatewaysFunc func(ctx context.Context, params *ec2.DescribeNatGatewaysInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error)
	StopInstancesFunc       func(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error)
	TerminateInstancesFunc  func(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	DeleteVolumeFunc        func(ctx context.Context, params *ec2.DeleteVolumeInput, optFns ...func(*ec2.Options)) (*ec2.DeleteVolumeOutput, error)
	ReleaseAddressFunc      func(ctx context.Context, params *ec2.ReleaseAddressInput, optFns ...func(*ec2.Options)) (*ec2.ReleaseAddressOutput, error)
	DeleteNatGatewayFunc    func(ctx context.Context, params *ec2.DeleteNatGatewayInput, optFns ...func(*ec2.Options)) (*ec2.DeleteNatGatewayOutput, error)
}

func (m *EC2) DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error) {
	m.record("DescribeRegions")
	if m.DescribeRegionsFunc == nil {
		return &ec2.DescribeRegionsOutput{}, nil
	}
	return m.DescribeRegionsFunc(ctx, params, optFns...)
}

func (m *EC2) DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	m.record("DescribeInstances")
	if m.DescribeInstancesFunc == nil {
		return &ec2.DescribeInstancesOutput{}, nil
	}
	return m.DescribeInstancesFunc(ctx, params, optFns...)
}

func (m *EC2) DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error) {
	m.record("DescribeVolumes")
	if m.DescribeVolumesFunc == nil {
		return &ec2.DescribeVolumesOutput{}, nil
	}
	return m.DescribeVolumesFunc(ctx, params, optFns...)
}

func (m *EC2) DescribeAddresses(ctx context.Context, params *ec2.DescribeAddressesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error) {
	m.record("DescribeAddresses")
	if m.DescribeAddressesFunc == nil {
		return &ec2.DescribeAddressesOutput{}, nil
	}
	return m.DescribeAddressesFunc(ctx, params, optFns...)
}

func (m *EC2) DescribeNatGateways(ctx context.Context, params *ec2.DescribeNatGatewaysInput, optFns ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error) {
	m.record("DescribeNatGateways")
	if m.DescribeNatGatewaysFunc == nil {
		return &ec2.DescribeNatGatewaysOutput{}, nil
	}
	return m.DescribeNatGatewaysFunc(ctx, params, optFns...)
}

func (m *EC2) StopInstances(ctx context.Context, params *ec2.StopInstancesInput, optFns ...func(*ec2.Options)) (*ec2.StopInstancesOutput, error) {
	m.record("StopInstances")
	if m.StopInstancesFunc == nil {
		return &ec2.StopInstancesOutput{}, nil
	}
	return m.StopInstancesFunc(ctx, params, optFns...)
}

func (m *EC2) TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	m.record("TerminateInstances")
	if m.TerminateInstancesFunc == nil {
		return &ec2.TerminateInstancesOutput{}, nil
	}
	return m.TerminateInstancesFunc(ctx, params, optFns...)
}

func (m *EC2) DeleteVolume(ctx context.Context, params *ec2.DeleteVolumeInput, optFns ...func(*ec2.Options)) (*ec2.DeleteVolumeOutput, error) {
	m.record("DeleteVolume")
	if m.DeleteVolumeFunc == nil {
		return &ec2.DeleteVolumeOutput{}, nil
	}
	return m.DeleteVolumeFunc(ctx, params, optFns...)
}

func (m *EC2) ReleaseAddress(ctx context.Context, params *ec2.ReleaseAddressInput, optFns ...func(*ec2.Options)) (*ec2.ReleaseAddressOutput, error) {
	m.record("ReleaseAddress")
	if m.ReleaseAddressFunc == nil {
		return &ec2.ReleaseAddressOutput{}, nil
	}
	return m.ReleaseAddressFunc(ctx, params, optFns...)
}

func (m *EC2) DeleteNatGateway(ctx context.Context, params *ec2.DeleteNatGatewayInput, optFns ...func(*ec2.Options)) (*ec2.DeleteNatGatewayOutput, error) {
	m.record("DeleteNatGateway")
	if m.DeleteNatGatewayFunc == nil {
		return &ec2.DeleteNatGatewayOutput{}, nil
	}
	return m.DeleteNatGatewayFunc(ctx, params, optFns...)
}

// ══════════════════════════════════════════════════════════════════════════════
// S3
// ══════════════════════════════════════════════════════════════════════════════

var _ awsapi.S3API = (*S3)(nil)

// S3 is a func-field double for awsapi.S3API. Unset funcs return an empty output.
type S3 struct {
	Counter

	ListBucketsFunc       func(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	GetBucketLocationFunc func(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error)
	GetBucketTaggingFunc  func(ctx context.Context, params *s3.GetBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error)
	HeadBucketFunc        func(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	ListObjectsV2Func     func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteBucketFunc      func(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error)
}

func (m *S3) ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error) {
	m.record("ListBuckets")
	if m.ListBucketsFunc == nil {
		return &s3.ListBucketsOutput{}, nil
	}
	return m.ListBucketsFunc(ctx, params, optFns...)
}

func (m *S3) GetBucketLocation(ctx context.Context, params *s3.GetBucketLocationInput, optFns ...func(*s3.Options)) (*s3.GetBucketLocationOutput, error) {
	m.record("GetBucketLocation")
	if m.GetBucketLocationFunc == nil {
		return &s3.GetBucketLocationOutput{}, nil
	}
	return m.GetBucketLocationFunc(ctx, params, optFns...)
}

func (m *S3) GetBucketTagging(ctx context.Context, params *s3.GetBucketTaggingInput, optFns ...func(*s3.Options)) (*s3.GetBucketTaggingOutput, error) {
	m.record("GetBucketTagging")
	if m.GetBucketTaggingFunc == nil {
		return &s3.GetBucketTaggingOutput{}, nil
	}
	return m.GetBucketTaggingFunc(ctx, params, optFns...)
}

func (m *S3) HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	m.record("HeadBucket")
	if m.HeadBucketFunc == nil {
		return &s3.HeadBucketOutput{}, nil
	}
	return m.HeadBucketFunc(ctx, params, optFns...)
}

func (m *S3) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.record("ListObjectsV2")
	if m.ListObjectsV2Func == nil {
		return &s3.ListObjectsV2Output{}, nil
	}
	return m.ListObjectsV2Func(ctx, params, optFns...)
}

func (m *S3) DeleteBucket(ctx context.Context, params *s3.DeleteBucketInput, optFns ...func(*s3.Options)) (*s3.DeleteBucketOutput, error) {
	m.record("DeleteBucket")
	if m.DeleteBucketFunc == nil {
		return &s3.DeleteBucketOutput{}, nil
	}
	return m.DeleteBucketFunc(ctx, params, optFns...)
}

// ══════════════════════════════════════════════════════════════════════════════
// CloudWatch
// ══════════════════════════════════════════════════════════════════════════════

var _ awsapi.CloudWatchAPI = (*CloudWatch)(nil)

// CloudWatch is a func-field double for awsapi.CloudWatchAPI. Unset funcs return an empty output.
type CloudWatch struct {
	Counter

	GetMetricStatisticsFunc func(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error)
}

func (m *CloudWatch) GetMetricStatistics(ctx context.Context, params *cloudwatch.GetMetricStatisticsInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricStatisticsOutput, error) {
	m.record("GetMetricStatistics")
	if m.GetMetricStatisticsFunc == nil {
		return &cloudwatch.GetMetricStatisticsOutput{}, nil
	}
	return m.GetMetricStatisticsFunc(ctx, params, optFns...)
}

// ══════════════════════════════════════════════════════════════════════════════
// RDS
// ══════════════════════════════════════════════════════════════════════════════

var _ awsapi.RDSAPI = (*RDS)(nil)

// RDS is a func-field double for awsapi.RDSAPI. Unset funcs return an empty output.
type RDS struct {
	Counter

	DescribeDBInstancesFunc func(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
	ListTagsForResourceFunc func(ctx context.Context, params *rds.ListTagsForResourceInput, optFns ...func(*rds.Options)) (*rds.ListTagsForResourceOutput, error)
	StopDBInstanceFunc      func(ctx context.Context, params *rds.StopDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StopDBInstanceOutput, error)
}

func (m *RDS) DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
	m.record("DescribeDBInstances")
	if m.DescribeDBInstancesFunc == nil {
		return &rds.DescribeDBInstancesOutput{}, nil
	}
	return m.DescribeDBInstancesFunc(ctx, params, optFns...)
}

func (m *RDS) ListTagsForResource(ctx context.Context, params *rds.ListTagsForResourceInput, optFns ...func(*rds.Options)) (*rds.ListTagsForResourceOutput, error) {
	m.record("ListTagsForResource")
	if m.ListTagsForResourceFunc == nil {
		return &rds.ListTagsForResourceOutput{}, nil
	}
	return m.ListTagsForResourceFunc(ctx, params, optFns...)
}

func (m *RDS) StopDBInstance(ctx context.Context, params *rds.StopDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StopDBInstanceOutput, error) {
	m.record("StopDBInstance")
	if m.StopDBInstanceFunc == nil {
		return &rds.StopDBInstanceOutput{}, nil
	}
	return m.StopDBInstanceFunc(ctx, params, optFns...)
}

// ══════════════════════════════════════════════════════════════════════════════
// Lambda
// ══════════════════════════════════════════════════════════════════════════════

var _ awsapi.LambdaAPI = (*Lambda)(nil)

// Lambda is a func-field double for awsapi.LambdaAPI. Unset funcs return an empty output.
type Lambda struct {
	Counter

	ListFunctionsFunc func(ctx context.Context, params *lambda.ListFunctionsInput, optFns ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error)
	ListTagsFunc      func(ctx context.Context, params *lambda.ListTagsInput, optFns ...func(*lambda.Options)) (*lambda.ListTagsOutput, error)
}

func (m *Lambda) ListFunctions(ctx context.Context, params *lambda.ListFunctionsInput, optFns ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error) {
	m.record("ListFunctions")
	if m.ListFunctionsFunc == nil {
		return &lambda.ListFunctionsOutput{}, nil
	}
	return m.ListFunctionsFunc(ctx, params, optFns...)
}

func (m *Lambda) ListTags(ctx context.Context, params *lambda.ListTagsInput, optFns ...func(*lambda.Options)) (*lambda.ListTagsOutput, error) {
	m.record("ListTags")
	if m.ListTagsFunc == nil {
		return &lambda.ListTagsOutput{}, nil
	}
	return m.ListTagsFunc(ctx, params, optFns...)
}

// ══════════════════════════════════════════════════════════════════════════════
// ELB
// ══════════════════════════════════════════════════════════════════════════════

var _ awsapi.ELBAPI = (*ELB)(nil)

// ELB is a func-field double for awsapi.ELBAPI. Unset funcs return an empty output.
type ELB struct {
	Counter

	DescribeLoadBalancersFunc func(ctx context.Context, params *elasticloadbalancingv2.DescribeLoadBalancersInput, optFns ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeLoadBalancersOutput, error)
	DescribeTagsFunc          func(ctx context.Context, params *elasticloadbalancingv2.DescribeTagsInput, optFns ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeTagsOutput, error)
}

func (m *ELB) DescribeLoadBalancers(ctx context.Context, params *elasticloadbalancingv2.DescribeLoadBalancersInput, optFns ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeLoadBalancersOutput, error) {
	m.record("DescribeLoadBalancers")
	if m.DescribeLoadBalancersFunc == nil {
		return &elasticloadbalancingv2.DescribeLoadBalancersOutput{}, nil
	}
	return m.DescribeLoadBalancersFunc(ctx, params, optFns...)
}

func (m *ELB) DescribeTags(ctx context.Context, params *elasticloadbalancingv2.DescribeTagsInput, optFns ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeTagsOutput, error) {
	m.record("DescribeTags")
	if m.DescribeTagsFunc == nil {
		return &elasticloadbalancingv2.DescribeTagsOutput{}, nil
	}
	return m.DescribeTagsFunc(ctx, params, optFns...)
}

// ══════════════════════════════════════════════════════════════════════════════
// Logs
// ══════════════════════════════════════════════════════════════════════════════

var _ awsapi.LogsAPI = (*Logs)(nil)

// Logs is a func-field double for awsapi.LogsAPI. Unset funcs return an empty output.
type Logs struct {
	Counter

	DescribeLogGroupsFunc func(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
}

func (m *Logs) DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error) {
	m.record("DescribeLogGroups")
	if m.DescribeLogGroupsFunc == nil {
		return &cloudwatchlogs.DescribeLogGroupsOutput{}, nil
	}
	return m.DescribeLogGroupsFunc(ctx, params, optFns...)
}

// ══════════════════════════════════════════════════════════════════════════════
// IAM
// ══════════════════════════════════════════════════════════════════════════════

var _ awsapi.IAMAPI = (*IAM)(nil)

// IAM is a func-field double for awsapi.IAMAPI. Unset funcs return an empty output.
type IAM struct {
	Counter

	ListUsersFunc    func(ctx context.Context, params *iam.ListUsersInput, optFns ...func(*iam.Options)) (*iam.ListUsersOutput, error)
	ListUserTagsFunc func(ctx context.Context, params *iam.ListUserTagsInput, optFns ...func(*iam.Options)) (*iam.ListUserTagsOutput, error)
	ListRolesFunc    func(ctx context.Context, params *iam.ListRolesInput, optFns ...func(*iam.Options)) (*iam.ListRolesOutput, error)
	ListRoleTagsFunc func(ctx context.Context, params *iam.ListRoleTagsInput, optFns ...func(*iam.Options)) (*iam.ListRoleTagsOutput, error)
}

func (m *IAM) ListUsers(ctx context.Context, params *iam.ListUsersInput, optFns ...func(*iam.Options)) (*iam.ListUsersOutput, error) {
	m.record("ListUsers")
	if m.ListUsersFunc == nil {
		return &iam.ListUsersOutput{}, nil
	}
	return m.ListUsersFunc(ctx, params, optFns...)
}

func (m *IAM) ListUserTags(ctx context.Context, params *iam.ListUserTagsInput, optFns ...func(*iam.Options)) (*iam.ListUserTagsOutput, error) {
	m.record("ListUserTags")
	if m.ListUserTagsFunc == nil {
		return &iam.ListUserTagsOutput{}, nil
	}
	return m.ListUserTagsFunc(ctx, params, optFns...)
}

func (m *IAM) ListRoles(ctx context.Context, params *iam.ListRolesInput, optFns ...func(*iam.Options)) (*iam.ListRolesOutput, error) {
	m.record("ListRoles")
	if m.ListRolesFunc == nil {
		return &iam.ListRolesOutput{}, nil
	}
	return m.ListRolesFunc(ctx, params, optFns...)
}

func (m *IAM) ListRoleTags(ctx context.Context, params *iam.ListRoleTagsInput, optFns ...func(*iam.Options)) (*iam.ListRoleTagsOutput, error) {
	m.record("ListRoleTags")
	if m.ListRoleTagsFunc == nil {
		return &iam.ListRoleTagsOutput{}, nil
	}
	return m.ListRoleTagsFunc(ctx, params, optFns...)
}
