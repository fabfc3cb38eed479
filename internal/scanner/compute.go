package scanner

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/yairfalse/corral/pkg/resource"
)

// scanInstances scans EC2 instances.
func (s *Set) scanInstances(ctx context.Context, region string) ([]resource.Record, error) {
	var records []resource.Record

	paginator := ec2.NewDescribeInstancesPaginator(s.clients.EC2(region), &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return records, fmt.Errorf("describe instances: %w", err)
		}
		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				records = append(records, convertInstance(region, instance))
			}
		}
	}

	return records, nil
}

func convertInstance(region string, instance ec2types.Instance) resource.Record {
	tags := NormalizeTags(instance.Tags)
	state := ""
	if instance.State != nil {
		state = string(instance.State.Name)
	}

	r := newRecord(resource.KindEC2Instance, region, aws.ToString(instance.InstanceId), nameTag(tags, "Unnamed"), state, tags)
	r.CreatedAt = timePtr(instance.LaunchTime)
	r.Extra["instance_type"] = string(instance.InstanceType)
	r.Extra["vpc_id"] = aws.ToString(instance.VpcId)
	r.Extra["subnet_id"] = aws.ToString(instance.SubnetId)
	r.Extra["private_ip"] = aws.ToString(instance.PrivateIpAddress)
	r.Extra["public_ip"] = aws.ToString(instance.PublicIpAddress)
	if instance.Placement != nil {
		r.Extra["availability_zone"] = aws.ToString(instance.Placement.AvailabilityZone)
	}
	return r
}

// scanVolumes scans EBS volumes.
func (s *Set) scanVolumes(ctx context.Context, region string) ([]resource.Record, error) {
	var records []resource.Record

	paginator := ec2.NewDescribeVolumesPaginator(s.clients.EC2(region), &ec2.DescribeVolumesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return records, fmt.Errorf("describe volumes: %w", err)
		}
		for _, volume := range page.Volumes {
			records = append(records, convertVolume(region, volume))
		}
	}

	return records, nil
}

func convertVolume(region string, volume ec2types.Volume) resource.Record {
	tags := NormalizeTags(volume.Tags)
	id := aws.ToString(volume.VolumeId)

	attached := make([]string, 0, len(volume.Attachments))
	for _, a := range volume.Attachments {
		if a.InstanceId != nil {
			attached = append(attached, aws.ToString(a.InstanceId))
		}
	}

	r := newRecord(resource.KindEBSVolume, region, id, nameTag(tags, id), string(volume.State), tags)
	r.CreatedAt = timePtr(volume.CreateTime)
	r.Extra["size_gb"] = int(aws.ToInt32(volume.Size))
	r.Extra["volume_type"] = string(volume.VolumeType)
	r.Extra["iops"] = int(aws.ToInt32(volume.Iops))
	r.Extra["attached_to"] = attached
	r.Extra["encrypted"] = aws.ToBool(volume.Encrypted)
	return r
}

// scanElasticIPs scans Elastic IPs (no pagination).
func (s *Set) scanElasticIPs(ctx context.Context, region string) ([]resource.Record, error) {
	output, err := s.clients.EC2(region).DescribeAddresses(ctx, &ec2.DescribeAddressesInput{})
	if err != nil {
		return nil, fmt.Errorf("describe addresses: %w", err)
	}

	records := make([]resource.Record, 0, len(output.Addresses))
	for _, addr := range output.Addresses {
		records = append(records, convertAddress(region, addr))
	}
	return records, nil
}

func convertAddress(region string, addr ec2types.Address) resource.Record {
	tags := NormalizeTags(addr.Tags)
	publicIP := aws.ToString(addr.PublicIp)

	id := aws.ToString(addr.AllocationId)
	if id == "" {
		id = publicIP
	}

	state := "unassociated"
	if addr.AssociationId != nil {
		state = "associated"
	}

	r := newRecord(resource.KindElasticIP, region, id, nameTag(tags, publicIP), state, tags)
	r.Extra["public_ip"] = publicIP
	r.Extra["associated_instance"] = aws.ToString(addr.InstanceId)
	r.Extra["associated_eni"] = aws.ToString(addr.NetworkInterfaceId)
	r.Extra["domain"] = string(addr.Domain)
	return r
}

// scanNATGateways scans NAT gateways.
func (s *Set) scanNATGateways(ctx context.Context, region string) ([]resource.Record, error) {
	var records []resource.Record

	paginator := ec2.NewDescribeNatGatewaysPaginator(s.clients.EC2(region), &ec2.DescribeNatGatewaysInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return records, fmt.Errorf("describe nat gateways: %w", err)
		}
		for _, nat := range page.NatGateways {
			records = append(records, convertNATGateway(region, nat))
		}
	}

	return records, nil
}

func convertNATGateway(region string, nat ec2types.NatGateway) resource.Record {
	tags := NormalizeTags(nat.Tags)
	id := aws.ToString(nat.NatGatewayId)

	r := newRecord(resource.KindNATGateway, region, id, nameTag(tags, id), string(nat.State), tags)
	r.CreatedAt = timePtr(nat.CreateTime)
	r.Extra["vpc_id"] = aws.ToString(nat.VpcId)
	r.Extra["subnet_id"] = aws.ToString(nat.SubnetId)
	if len(nat.NatGatewayAddresses) > 0 {
		r.Extra["allocation_id"] = aws.ToString(nat.NatGatewayAddresses[0].AllocationId)
		r.Extra["public_ip"] = aws.ToString(nat.NatGatewayAddresses[0].PublicIp)
	}
	return r
}
