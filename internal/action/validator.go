package action

import (
	"context"
	"fmt"
	"net"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yairfalse/corral/internal/awsapi"
	"github.com/yairfalse/corral/internal/scanner"
)

// Validation is the result of a read-only pre-action check.
type Validation struct {
	Valid    bool           `json:"valid"`
	Reason   string         `json:"reason,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func invalid(reason string) Validation {
	return Validation{Reason: reason, Metadata: map[string]any{}}
}

func apiError(err error) Validation {
	return invalid(fmt.Sprintf("API error: %v", err))
}

// Validator runs the pre-action checks. It never mutates anything.
type Validator struct {
	clients awsapi.Clients
}

// NewValidator creates a validator over clients.
func NewValidator(clients awsapi.Clients) *Validator {
	return &Validator{clients: clients}
}

// EC2Stop checks that an instance can be stopped.
func (v *Validator) EC2Stop(ctx context.Context, id, region string) Validation {
	inst, err := describeInstance(ctx, v.clients.EC2(region), id)
	if err != nil {
		return apiError(err)
	}
	if inst == nil {
		return invalid("Instance not found")
	}

	switch instanceState(inst) {
	case string(ec2types.InstanceStateNameStopped):
		return invalid("Instance already stopped")
	case string(ec2types.InstanceStateNameStopping):
		return invalid("Instance is already stopping")
	case string(ec2types.InstanceStateNameTerminated):
		return invalid("Instance is terminated")
	case string(ec2types.InstanceStateNameShuttingDown):
		return invalid("Instance is terminating")
	}
	return Validation{Valid: true, Metadata: instanceMetadata(inst)}
}

// EC2Terminate checks that an instance can be terminated.
func (v *Validator) EC2Terminate(ctx context.Context, id, region string) Validation {
	inst, err := describeInstance(ctx, v.clients.EC2(region), id)
	if err != nil {
		return apiError(err)
	}
	if inst == nil {
		return invalid("Instance not found")
	}

	switch instanceState(inst) {
	case string(ec2types.InstanceStateNameTerminated), string(ec2types.InstanceStateNameShuttingDown):
		return invalid("Instance already terminated")
	}
	return Validation{Valid: true, Metadata: instanceMetadata(inst)}
}

// RDSStop checks that a database instance is available and can be stopped.
func (v *Validator) RDSStop(ctx context.Context, id, region string) Validation {
	db, err := describeDBInstance(ctx, v.clients.RDS(region), id)
	if err != nil {
		return apiError(err)
	}
	if db == nil {
		return invalid("RDS instance not found")
	}

	switch state := aws.ToString(db.DBInstanceStatus); state {
	case "available":
	case "stopping", "stopped":
		return invalid(fmt.Sprintf("Instance already %s", state))
	default:
		return invalid(fmt.Sprintf("RDS instance is %s; must be available to stop", state))
	}

	return Validation{Valid: true, Metadata: map[string]any{
		"current_state":  aws.ToString(db.DBInstanceStatus),
		"engine":         aws.ToString(db.Engine),
		"instance_class": aws.ToString(db.DBInstanceClass),
		"tags":           scanner.NormalizeTags(db.TagList),
	}}
}

// NATDelete checks that a NAT gateway exists and is not already going away.
func (v *Validator) NATDelete(ctx context.Context, id, region string) Validation {
	nat, err := describeNATGateway(ctx, v.clients.EC2(region), id)
	if err != nil {
		return apiError(err)
	}
	if nat == nil {
		return invalid("NAT Gateway not found")
	}

	switch nat.State {
	case ec2types.NatGatewayStateDeleted:
		return invalid("NAT Gateway already deleted")
	case ec2types.NatGatewayStateDeleting:
		return invalid("NAT Gateway is already deleting")
	}

	return Validation{Valid: true, Metadata: map[string]any{
		"current_state": string(nat.State),
		"vpc_id":        aws.ToString(nat.VpcId),
		"tags":          scanner.NormalizeTags(nat.Tags),
	}}
}

// EIPRelease checks that an Elastic IP exists and is not associated.
func (v *Validator) EIPRelease(ctx context.Context, id, region string) Validation {
	addr, err := describeAddress(ctx, v.clients.EC2(region), id)
	if err != nil {
		return apiError(err)
	}
	if addr == nil {
		return invalid("Elastic IP not found")
	}

	if addr.AssociationId != nil {
		target := aws.ToString(addr.InstanceId)
		if target == "" {
			target = aws.ToString(addr.NetworkInterfaceId)
		}
		return Validation{
			Reason: fmt.Sprintf("Elastic IP is still associated with an instance (%s)", target),
			Metadata: map[string]any{
				"associated_instance": target,
				"association_id":      aws.ToString(addr.AssociationId),
			},
		}
	}

	return Validation{Valid: true, Metadata: map[string]any{
		"public_ip": aws.ToString(addr.PublicIp),
		"tags":      scanner.NormalizeTags(addr.Tags),
	}}
}

// EBSDelete checks that a volume exists and is detached.
func (v *Validator) EBSDelete(ctx context.Context, id, region string) Validation {
	vol, err := describeVolume(ctx, v.clients.EC2(region), id)
	if err != nil {
		return apiError(err)
	}
	if vol == nil {
		return invalid("Volume not found")
	}

	if vol.State != ec2types.VolumeStateAvailable {
		return Validation{
			Reason:   fmt.Sprintf("Volume is in %s state. Must be available to delete.", vol.State),
			Metadata: map[string]any{"state": string(vol.State)},
		}
	}

	return Validation{Valid: true, Metadata: map[string]any{
		"state":   string(vol.State),
		"size_gb": int(aws.ToInt32(vol.Size)),
		"tags":    scanner.NormalizeTags(vol.Tags),
	}}
}

// S3Delete checks that a bucket is reachable and empty.
func (v *Validator) S3Delete(ctx context.Context, bucket, region string) Validation {
	client := v.clients.S3(region)

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err != nil {
		return apiError(err)
	}

	out, err := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(bucket), MaxKeys: aws.Int32(1)})
	if err != nil {
		return apiError(err)
	}
	if aws.ToInt32(out.KeyCount) > 0 || len(out.Contents) > 0 {
		return invalid("Bucket is not empty. All objects must be deleted first.")
	}

	return Validation{Valid: true, Metadata: map[string]any{"bucket": bucket}}
}

// describeInstance returns nil, nil when the instance does not exist.
func describeInstance(ctx context.Context, client awsapi.EC2API, id string) (*ec2types.Instance, error) {
	out, err := client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{InstanceIds: []string{id}})
	if err != nil {
		if awsapi.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	for _, r := range out.Reservations {
		if len(r.Instances) > 0 {
			inst := r.Instances[0]
			return &inst, nil
		}
	}
	return nil, nil
}

func instanceState(inst *ec2types.Instance) string {
	if inst.State == nil {
		return ""
	}
	return string(inst.State.Name)
}

func instanceMetadata(inst *ec2types.Instance) map[string]any {
	return map[string]any{
		"current_state": instanceState(inst),
		"instance_type": string(inst.InstanceType),
		"tags":          scanner.NormalizeTags(inst.Tags),
	}
}

func describeDBInstance(ctx context.Context, client awsapi.RDSAPI, id string) (*rdstypes.DBInstance, error) {
	out, err := client.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{DBInstanceIdentifier: aws.String(id)})
	if err != nil {
		if awsapi.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(out.DBInstances) == 0 {
		return nil, nil
	}
	db := out.DBInstances[0]
	return &db, nil
}

func describeNATGateway(ctx context.Context, client awsapi.EC2API, id string) (*ec2types.NatGateway, error) {
	out, err := client.DescribeNatGateways(ctx, &ec2.DescribeNatGatewaysInput{NatGatewayIds: []string{id}})
	if err != nil {
		if awsapi.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(out.NatGateways) == 0 {
		return nil, nil
	}
	nat := out.NatGateways[0]
	return &nat, nil
}

// describeAddress looks an Elastic IP up by allocation id, or by public IP
// when id parses as an address.
func describeAddress(ctx context.Context, client awsapi.EC2API, id string) (*ec2types.Address, error) {
	input := &ec2.DescribeAddressesInput{AllocationIds: []string{id}}
	if isPublicIP(id) {
		input = &ec2.DescribeAddressesInput{PublicIps: []string{id}}
	}

	out, err := client.DescribeAddresses(ctx, input)
	if err != nil {
		if awsapi.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(out.Addresses) == 0 {
		return nil, nil
	}
	addr := out.Addresses[0]
	return &addr, nil
}

func isPublicIP(id string) bool {
	return net.ParseIP(id) != nil
}

func describeVolume(ctx context.Context, client awsapi.EC2API, id string) (*ec2types.Volume, error) {
	out, err := client.DescribeVolumes(ctx, &ec2.DescribeVolumesInput{VolumeIds: []string{id}})
	if err != nil {
		if awsapi.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(out.Volumes) == 0 {
		return nil, nil
	}
	vol := out.Volumes[0]
	return &vol, nil
}
