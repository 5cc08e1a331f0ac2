package awserrors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/freetier/reaper/pkg/utils/awserrors"
)

func TestIsNotFound(t *testing.T) {
	type testCases struct {
		name     string
		err      error
		expected bool
	}

	for _, tc := range []testCases{
		{name: "nil", err: nil, expected: false},
		{name: "plain error", err: errors.New("boom"), expected: false},
		{name: "ec2 instance", err: &smithy.GenericAPIError{Code: "InvalidInstanceID.NotFound"}, expected: true},
		{name: "ec2 security group", err: &smithy.GenericAPIError{Code: "InvalidGroup.NotFound"}, expected: true},
		{name: "s3 bucket", err: &smithy.GenericAPIError{Code: "NoSuchBucket"}, expected: true},
		{name: "iam entity", err: &smithy.GenericAPIError{Code: "NoSuchEntity"}, expected: true},
		{name: "rds instance", err: &smithy.GenericAPIError{Code: "DBInstanceNotFound"}, expected: true},
		{name: "lambda function", err: &smithy.GenericAPIError{Code: "ResourceNotFoundException"}, expected: true},
		{name: "wrapped", err: fmt.Errorf("failed: %w", &smithy.GenericAPIError{Code: "InvalidVpcID.NotFound"}), expected: true},
		{name: "dependency violation", err: &smithy.GenericAPIError{Code: "DependencyViolation"}, expected: false},
		{name: "access denied", err: &smithy.GenericAPIError{Code: "AccessDenied"}, expected: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			if got := awserrors.IsNotFound(tc.err); got != tc.expected {
				t.Errorf("IsNotFound(%v) = %v, expected %v", tc.err, got, tc.expected)
			}
		})
	}
}
