package awsapitest

import "github.com/aws/smithy-go"

// APIError builds a smithy API error carrying code, as the SDK returns for service faults.
func APIError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message}
}
