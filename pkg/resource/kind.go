package resource

import (
	"errors"
	"fmt"
)

// ErrUnknownKind is returned when a string does not name a supported resource kind.
var ErrUnknownKind = errors.New("unknown resource kind")

// Kind is the closed set of resource kinds Corral manages.
type Kind string

const (
	KindEC2Instance    Kind = "EC2_Instance"
	KindEBSVolume      Kind = "EBS_Volume"
	KindElasticIP      Kind = "Elastic_IP"
	KindS3Bucket       Kind = "S3_Bucket"
	KindRDSInstance    Kind = "RDS_Instance"
	KindLambdaFunction Kind = "Lambda_Function"
	KindLoadBalancer   Kind = "Load_Balancer"
	KindLogGroup       Kind = "CloudWatch_LogGroup"
	KindNATGateway     Kind = "NAT_Gateway"
	KindIAMUser        Kind = "IAM_User"
	KindIAMRole        Kind = "IAM_Role"
)

// Kinds lists every supported kind in display order.
func Kinds() []Kind {
	return []Kind{
		KindEC2Instance,
		KindEBSVolume,
		KindElasticIP,
		KindS3Bucket,
		KindRDSInstance,
		KindLambdaFunction,
		KindLoadBalancer,
		KindLogGroup,
		KindNATGateway,
		KindIAMUser,
		KindIAMRole,
	}
}

// Global reports whether the kind is enumerated once per account instead of per region.
func (k Kind) Global() bool {
	switch k {
	case KindS3Bucket, KindIAMUser, KindIAMRole:
		return true
	default:
		return false
	}
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	for _, known := range Kinds() {
		if k == known {
			return true
		}
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
	return k, nil
}
