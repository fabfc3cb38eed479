package action

import (
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/yairfalse/corral/internal/awsapi"
	"github.com/yairfalse/corral/pkg/resource"
)

type dispatchKey struct {
	kind   resource.Kind
	action resource.Action
}

// handler bundles everything needed to carry out one (kind, action) pair.
type handler struct {
	// verb and noun build the failure message "Failed to <verb> <noun>".
	verb string
	noun string

	validate func(v *Validator, ctx context.Context, id, region string) Validation
	// mutate performs the change and returns the state reported by the call, if any.
	mutate func(ctx context.Context, c awsapi.Clients, id, region string) (string, error)
	// verify reads the resource back. reached reports whether observed is an expected post-state.
	verify  func(ctx context.Context, c awsapi.Clients, id, region string) (observed string, reached bool, err error)
	message func(state string) string
}

func dispatchTable() map[dispatchKey]handler {
	return map[dispatchKey]handler{
		{resource.KindEC2Instance, resource.ActionStop}: {
			verb:     "stop",
			noun:     "instance",
			validate: (*Validator).EC2Stop,
			mutate:   stopInstance,
			verify:   instanceReached("stopping", "stopped"),
			message:  func(state string) string { return "Instance stop initiated. Current state: " + state },
		},
		{resource.KindEC2Instance, resource.ActionTerminate}: {
			verb:     "terminate",
			noun:     "instance",
			validate: (*Validator).EC2Terminate,
			mutate:   terminateInstance,
			verify:   instanceReached("shutting-down", "terminated"),
			message:  func(state string) string { return "Instance termination initiated. Current state: " + state },
		},
		{resource.KindRDSInstance, resource.ActionStop}: {
			verb:     "stop",
			noun:     "RDS instance",
			validate: (*Validator).RDSStop,
			mutate:   stopDBInstance,
			verify:   dbInstanceReached("stopping", "stopped"),
			message:  func(state string) string { return "RDS instance stop initiated. Current state: " + state },
		},
		{resource.KindNATGateway, resource.ActionDelete}: {
			verb:     "delete",
			noun:     "NAT Gateway",
			validate: (*Validator).NATDelete,
			mutate:   deleteNATGateway,
			verify:   natGatewayReached,
			message:  func(state string) string { return "NAT Gateway deletion initiated. Current state: " + state },
		},
		{resource.KindElasticIP, resource.ActionDelete}: {
			verb:     "release",
			noun:     "Elastic IP",
			validate: (*Validator).EIPRelease,
			mutate:   releaseAddress,
			verify:   addressGone,
			message:  func(string) string { return "Elastic IP released successfully" },
		},
		{resource.KindEBSVolume, resource.ActionDelete}: {
			verb:     "delete",
			noun:     "volume",
			validate: (*Validator).EBSDelete,
			mutate:   deleteVolume,
			verify:   volumeGone,
			message:  func(string) string { return "Volume deletion initiated" },
		},
		{resource.KindS3Bucket, resource.ActionDelete}: {
			verb:     "delete",
			noun:     "bucket",
			validate: (*Validator).S3Delete,
			mutate:   deleteBucket,
			verify:   bucketGone,
			message:  func(string) string { return "Bucket deleted successfully" },
		},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// Mutations
// ══════════════════════════════════════════════════════════════════════════════

func stopInstance(ctx context.Context, c awsapi.Clients, id, region string) (string, error) {
	out, err := c.EC2(region).StopInstances(ctx, &ec2.StopInstancesInput{InstanceIds: []string{id}})
	if err != nil {
		return "", err
	}
	for _, change := range out.StoppingInstances {
		if change.CurrentState != nil {
			return string(change.CurrentState.Name), nil
		}
	}
	return "", nil
}

func terminateInstance(ctx context.Context, c awsapi.Clients, id, region string) (string, error) {
	out, err := c.EC2(region).TerminateInstances(ctx, &ec2.TerminateInstancesInput{InstanceIds: []string{id}})
	if err != nil {
		return "", err
	}
	for _, change := range out.TerminatingInstances {
		if change.CurrentState != nil {
			return string(change.CurrentState.Name), nil
		}
	}
	return "", nil
}

func stopDBInstance(ctx context.Context, c awsapi.Clients, id, region string) (string, error) {
	out, err := c.RDS(region).StopDBInstance(ctx, &rds.StopDBInstanceInput{DBInstanceIdentifier: aws.String(id)})
	if err != nil {
		return "", err
	}
	if out.DBInstance != nil {
		return aws.ToString(out.DBInstance.DBInstanceStatus), nil
	}
	return "", nil
}

func deleteNATGateway(ctx context.Context, c awsapi.Clients, id, region string) (string, error) {
	_, err := c.EC2(region).DeleteNatGateway(ctx, &ec2.DeleteNatGatewayInput{NatGatewayId: aws.String(id)})
	return "", err
}

func releaseAddress(ctx context.Context, c awsapi.Clients, id, region string) (string, error) {
	input := &ec2.ReleaseAddressInput{AllocationId: aws.String(id)}
	if isPublicIP(id) {
		input = &ec2.ReleaseAddressInput{PublicIp: aws.String(id)}
	}
	_, err := c.EC2(region).ReleaseAddress(ctx, input)
	return "", err
}

func deleteVolume(ctx context.Context, c awsapi.Clients, id, region string) (string, error) {
	_, err := c.EC2(region).DeleteVolume(ctx, &ec2.DeleteVolumeInput{VolumeId: aws.String(id)})
	return "", err
}

func deleteBucket(ctx context.Context, c awsapi.Clients, bucket, region string) (string, error) {
	_, err := c.S3(region).DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucket)})
	return "", err
}

// ══════════════════════════════════════════════════════════════════════════════
// Verification reads
// ══════════════════════════════════════════════════════════════════════════════

const stateGone = "deleted"

func instanceReached(expected ...string) func(context.Context, awsapi.Clients, string, string) (string, bool, error) {
	return func(ctx context.Context, c awsapi.Clients, id, region string) (string, bool, error) {
		inst, err := describeInstance(ctx, c.EC2(region), id)
		if err != nil {
			return "", false, err
		}
		if inst == nil {
			return "", false, fmt.Errorf("instance %s not found", id)
		}
		state := instanceState(inst)
		return state, slices.Contains(expected, state), nil
	}
}

func dbInstanceReached(expected ...string) func(context.Context, awsapi.Clients, string, string) (string, bool, error) {
	return func(ctx context.Context, c awsapi.Clients, id, region string) (string, bool, error) {
		db, err := describeDBInstance(ctx, c.RDS(region), id)
		if err != nil {
			return "", false, err
		}
		if db == nil {
			return "", false, fmt.Errorf("db instance %s not found", id)
		}
		state := aws.ToString(db.DBInstanceStatus)
		return state, slices.Contains(expected, state), nil
	}
}

func natGatewayReached(ctx context.Context, c awsapi.Clients, id, region string) (string, bool, error) {
	nat, err := describeNATGateway(ctx, c.EC2(region), id)
	if err != nil {
		return "", false, err
	}
	if nat == nil {
		return stateGone, true, nil
	}
	state := string(nat.State)
	return state, state == "deleting" || state == "deleted", nil
}

func addressGone(ctx context.Context, c awsapi.Clients, id, region string) (string, bool, error) {
	addr, err := describeAddress(ctx, c.EC2(region), id)
	if err != nil {
		return "", false, err
	}
	if addr == nil {
		return stateGone, true, nil
	}
	return "allocated", false, nil
}

func volumeGone(ctx context.Context, c awsapi.Clients, id, region string) (string, bool, error) {
	vol, err := describeVolume(ctx, c.EC2(region), id)
	if err != nil {
		return "", false, err
	}
	if vol == nil {
		return stateGone, true, nil
	}
	state := string(vol.State)
	return state, state == "deleting" || state == "deleted", nil
}

func bucketGone(ctx context.Context, c awsapi.Clients, bucket, region string) (string, bool, error) {
	_, err := c.S3(region).HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return "exists", false, nil
	}
	if awsapi.IsNotFound(err) {
		return stateGone, true, nil
	}
	return "", false, err
}
