package awserrors

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"
)

// Error codes that signal "the resource is already gone" across the services
// the reaper touches. EC2 uses Invalid*.NotFound, RDS uses *NotFoundFault,
// S3/IAM/Lambda/EventBridge use the remaining forms.
var notFoundCodes = []string{
	"NoSuchBucket",
	"NoSuchEntity",
	"ResourceNotFoundException",
	"ResourceNotFoundFault",
	"DBInstanceNotFound",
	"DBSubnetGroupNotFoundFault",
	"InvalidKeyPair.NotFound",
}

// Code returns the AWS API error code, or the empty string for non-API errors.
func Code(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}

// IsNotFound reports whether err is the control plane saying the resource
// does not exist. Deleting something that is already gone is not a failure.
func IsNotFound(err error) bool {
	code := Code(err)
	if code == "" {
		return false
	}
	for _, notFound := range notFoundCodes {
		if code == notFound {
			return true
		}
	}
	return strings.HasSuffix(code, ".NotFound") || strings.HasSuffix(code, "NotFoundException")
}
