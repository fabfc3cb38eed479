package action

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/corral/internal/awsapi/awsapitest"
)

func instanceWithState(state ec2types.InstanceStateName) *awsapitest.EC2 {
	return &awsapitest.EC2{
		DescribeInstancesFunc: func(_ context.Context, params *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			return &ec2.DescribeInstancesOutput{Reservations: []ec2types.Reservation{{Instances: []ec2types.Instance{{
				InstanceId:   aws.String(params.InstanceIds[0]),
				InstanceType: ec2types.InstanceTypeT3Micro,
				State:        &ec2types.InstanceState{Name: state},
				Tags:         []ec2types.Tag{{Key: aws.String("env"), Value: aws.String("dev")}},
			}}}}}, nil
		},
	}
}

func noInstances() *awsapitest.EC2 {
	return &awsapitest.EC2{
		DescribeInstancesFunc: func(context.Context, *ec2.DescribeInstancesInput, ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			return nil, awsapitest.APIError("InvalidInstanceID.NotFound", "The instance ID 'i-404' does not exist")
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// EC2
// ══════════════════════════════════════════════════════════════════════════════

func TestValidator_EC2Stop(t *testing.T) {
	tests := []struct {
		name   string
		ec2    *awsapitest.EC2
		valid  bool
		reason string
	}{
		{"running", instanceWithState(ec2types.InstanceStateNameRunning), true, ""},
		{"stopped", instanceWithState(ec2types.InstanceStateNameStopped), false, "Instance already stopped"},
		{"stopping", instanceWithState(ec2types.InstanceStateNameStopping), false, "Instance is already stopping"},
		{"terminated", instanceWithState(ec2types.InstanceStateNameTerminated), false, "Instance is terminated"},
		{"shutting-down", instanceWithState(ec2types.InstanceStateNameShuttingDown), false, "Instance is terminating"},
		{"not found", noInstances(), false, "Instance not found"},
		{"empty answer", &awsapitest.EC2{}, false, "Instance not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewValidator(&awsapitest.Clients{EC2Client: tt.ec2})
			got := v.EC2Stop(context.Background(), "i-1", "us-east-1")

			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, 0, tt.ec2.Calls("StopInstances"))
		})
	}
}

func TestValidator_EC2StopMetadata(t *testing.T) {
	v := NewValidator(&awsapitest.Clients{EC2Client: instanceWithState(ec2types.InstanceStateNameRunning)})
	got := v.EC2Stop(context.Background(), "i-1", "us-east-1")

	require.True(t, got.Valid)
	assert.Equal(t, "running", got.Metadata["current_state"])
	assert.Equal(t, "t3.micro", got.Metadata["instance_type"])
	assert.Equal(t, map[string]string{"env": "dev"}, got.Metadata["tags"])
}

func TestValidator_APIError(t *testing.T) {
	ec2Client := &awsapitest.EC2{
		DescribeInstancesFunc: func(context.Context, *ec2.DescribeInstancesInput, ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
			return nil, errors.New("connection reset")
		},
	}
	v := NewValidator(&awsapitest.Clients{EC2Client: ec2Client})

	got := v.EC2Stop(context.Background(), "i-1", "us-east-1")
	assert.False(t, got.Valid)
	assert.Equal(t, "API error: connection reset", got.Reason)
}

func TestValidator_Idempotent(t *testing.T) {
	ec2Client := instanceWithState(ec2types.InstanceStateNameStopped)
	v := NewValidator(&awsapitest.Clients{EC2Client: ec2Client})

	first := v.EC2Stop(context.Background(), "i-1", "us-east-1")
	second := v.EC2Stop(context.Background(), "i-1", "us-east-1")

	assert.Equal(t, first, second)
	assert.Equal(t, 0, ec2Client.Calls("StopInstances"))
}

func TestValidator_EC2Terminate(t *testing.T) {
	tests := []struct {
		name   string
		ec2    *awsapitest.EC2
		valid  bool
		reason string
	}{
		{"running", instanceWithState(ec2types.InstanceStateNameRunning), true, ""},
		{"stopped", instanceWithState(ec2types.InstanceStateNameStopped), true, ""},
		{"terminated", instanceWithState(ec2types.InstanceStateNameTerminated), false, "Instance already terminated"},
		{"shutting-down", instanceWithState(ec2types.InstanceStateNameShuttingDown), false, "Instance already terminated"},
		{"not found", noInstances(), false, "Instance not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewValidator(&awsapitest.Clients{EC2Client: tt.ec2}).EC2Terminate(context.Background(), "i-1", "us-east-1")
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RDS / NAT / EIP / EBS / S3
// ══════════════════════════════════════════════════════════════════════════════

func TestValidator_RDSStop(t *testing.T) {
	withStatus := func(status string) *awsapitest.RDS {
		return &awsapitest.RDS{
			DescribeDBInstancesFunc: func(context.Context, *rds.DescribeDBInstancesInput, ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
				return &rds.DescribeDBInstancesOutput{DBInstances: []rdstypes.DBInstance{{
					DBInstanceIdentifier: aws.String("orders"),
					DBInstanceStatus:     aws.String(status),
					Engine:               aws.String("postgres"),
				}}}, nil
			},
		}
	}

	tests := []struct {
		name   string
		rds    *awsapitest.RDS
		valid  bool
		reason string
	}{
		{"available", withStatus("available"), true, ""},
		{"stopped", withStatus("stopped"), false, "Instance already stopped"},
		{"stopping", withStatus("stopping"), false, "Instance already stopping"},
		{"modifying", withStatus("modifying"), false, "RDS instance is modifying; must be available to stop"},
		{"not found", &awsapitest.RDS{
			DescribeDBInstancesFunc: func(context.Context, *rds.DescribeDBInstancesInput, ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
				return nil, awsapitest.APIError("DBInstanceNotFound", "DBInstance orders not found")
			},
		}, false, "RDS instance not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewValidator(&awsapitest.Clients{RDSClient: tt.rds}).RDSStop(context.Background(), "orders", "us-east-1")
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestValidator_NATDelete(t *testing.T) {
	withState := func(state ec2types.NatGatewayState) *awsapitest.EC2 {
		return &awsapitest.EC2{
			DescribeNatGatewaysFunc: func(context.Context, *ec2.DescribeNatGatewaysInput, ...func(*ec2.Options)) (*ec2.DescribeNatGatewaysOutput, error) {
				return &ec2.DescribeNatGatewaysOutput{NatGateways: []ec2types.NatGateway{{NatGatewayId: aws.String("nat-1"), State: state}}}, nil
			},
		}
	}

	tests := []struct {
		name   string
		ec2    *awsapitest.EC2
		valid  bool
		reason string
	}{
		{"available", withState(ec2types.NatGatewayStateAvailable), true, ""},
		{"deleted", withState(ec2types.NatGatewayStateDeleted), false, "NAT Gateway already deleted"},
		{"deleting", withState(ec2types.NatGatewayStateDeleting), false, "NAT Gateway is already deleting"},
		{"not found", &awsapitest.EC2{}, false, "NAT Gateway not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewValidator(&awsapitest.Clients{EC2Client: tt.ec2}).NATDelete(context.Background(), "nat-1", "us-east-1")
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestValidator_EIPReleaseAssociated(t *testing.T) {
	ec2Client := &awsapitest.EC2{
		DescribeAddressesFunc: func(context.Context, *ec2.DescribeAddressesInput, ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error) {
			return &ec2.DescribeAddressesOutput{Addresses: []ec2types.Address{{
				AllocationId:  aws.String("eipalloc-1"),
				AssociationId: aws.String("eipassoc-1"),
				InstanceId:    aws.String("i-0abc"),
			}}}, nil
		},
	}

	got := NewValidator(&awsapitest.Clients{EC2Client: ec2Client}).EIPRelease(context.Background(), "eipalloc-1", "us-east-1")

	assert.False(t, got.Valid)
	assert.Equal(t, "Elastic IP is still associated with an instance (i-0abc)", got.Reason)
	assert.Equal(t, "i-0abc", got.Metadata["associated_instance"])
	assert.Equal(t, "eipassoc-1", got.Metadata["association_id"])
	assert.Equal(t, 0, ec2Client.Calls("ReleaseAddress"))
}

func TestValidator_EIPLookupByPublicIP(t *testing.T) {
	var gotInput *ec2.DescribeAddressesInput
	ec2Client := &awsapitest.EC2{
		DescribeAddressesFunc: func(_ context.Context, params *ec2.DescribeAddressesInput, _ ...func(*ec2.Options)) (*ec2.DescribeAddressesOutput, error) {
			gotInput = params
			return &ec2.DescribeAddressesOutput{}, nil
		},
	}

	got := NewValidator(&awsapitest.Clients{EC2Client: ec2Client}).EIPRelease(context.Background(), "52.1.2.3", "us-east-1")

	assert.Equal(t, "Elastic IP not found", got.Reason)
	require.NotNil(t, gotInput)
	assert.Equal(t, []string{"52.1.2.3"}, gotInput.PublicIps)
	assert.Empty(t, gotInput.AllocationIds)
}

func TestValidator_EBSDelete(t *testing.T) {
	withState := func(state ec2types.VolumeState) *awsapitest.EC2 {
		return &awsapitest.EC2{
			DescribeVolumesFunc: func(context.Context, *ec2.DescribeVolumesInput, ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error) {
				return &ec2.DescribeVolumesOutput{Volumes: []ec2types.Volume{{VolumeId: aws.String("vol-1"), State: state, Size: aws.Int32(50)}}}, nil
			},
		}
	}

	available := NewValidator(&awsapitest.Clients{EC2Client: withState(ec2types.VolumeStateAvailable)}).EBSDelete(context.Background(), "vol-1", "us-east-1")
	assert.True(t, available.Valid)
	assert.Equal(t, 50, available.Metadata["size_gb"])

	inUse := NewValidator(&awsapitest.Clients{EC2Client: withState(ec2types.VolumeStateInUse)}).EBSDelete(context.Background(), "vol-1", "us-east-1")
	assert.False(t, inUse.Valid)
	assert.Equal(t, "Volume is in in-use state. Must be available to delete.", inUse.Reason)
	assert.Equal(t, "in-use", inUse.Metadata["state"])

	missing := NewValidator(&awsapitest.Clients{EC2Client: &awsapitest.EC2{}}).EBSDelete(context.Background(), "vol-1", "us-east-1")
	assert.Equal(t, "Volume not found", missing.Reason)
}

func TestValidator_S3Delete(t *testing.T) {
	tests := []struct {
		name   string
		s3     *awsapitest.S3
		valid  bool
		reason string
	}{
		{"empty bucket", &awsapitest.S3{}, true, ""},
		{
			"not empty",
			&awsapitest.S3{
				ListObjectsV2Func: func(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
					assert.Equal(t, int32(1), aws.ToInt32(params.MaxKeys))
					return &s3.ListObjectsV2Output{KeyCount: aws.Int32(1), Contents: []s3types.Object{{Key: aws.String("a.txt")}}}, nil
				},
			},
			false,
			"Bucket is not empty. All objects must be deleted first.",
		},
		{
			"head fails",
			&awsapitest.S3{
				HeadBucketFunc: func(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
					return nil, errors.New("forbidden")
				},
			},
			false,
			"API error: forbidden",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewValidator(&awsapitest.Clients{S3Client: tt.s3}).S3Delete(context.Background(), "logs", "us-east-1")
			assert.Equal(t, tt.valid, got.Valid)
			assert.Equal(t, tt.reason, got.Reason)
			assert.Equal(t, 0, tt.s3.Calls("DeleteBucket"))
		})
	}
}
