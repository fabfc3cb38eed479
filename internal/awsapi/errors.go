package awsapi

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// notFoundCodes are API error codes that mean the addressed resource does not exist.
var notFoundCodes = map[string]bool{
	"InvalidInstanceID.NotFound":   true,
	"InvalidVolume.NotFound":       true,
	"InvalidAllocationID.NotFound": true,
	"InvalidAddress.NotFound":      true,
	"NatGatewayNotFound":           true,
	"InvalidNatGatewayID.NotFound": true,
	"DBInstanceNotFound":           true,
	"DBInstanceNotFoundFault":      true,
	"NoSuchBucket":                 true,
	"NotFound":                     true,
	"NoSuchEntity":                 true,
	"ResourceNotFoundException":    true,
	"LoadBalancerNotFound":         true,
}

// IsNotFound reports whether err is an AWS API error meaning the resource is gone.
func IsNotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return notFoundCodes[apiErr.ErrorCode()]
	}
	return false
}

// ErrorCode returns the AWS API error code carried by err, or "".
func ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// IsNoSuchTagSet reports whether err means a bucket simply has no tags.
func IsNoSuchTagSet(err error) bool {
	return strings.EqualFold(ErrorCode(err), "NoSuchTagSet")
}
