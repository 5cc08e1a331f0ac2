package roles

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/samber/lo"
)

// Watcher discovers IAM roles matching the reap patterns
type Watcher struct {
	iamAPI SDKRolesOps
}

// SDKRolesOps is an interface that combines the necessary IAM SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKRolesOps interface {
	iam.ListRolesAPIClient
	iam.ListAttachedRolePoliciesAPIClient
	iam.ListRolePoliciesAPIClient
	iam.ListInstanceProfilesForRoleAPIClient
	DetachRolePolicy(context.Context, *iam.DetachRolePolicyInput, ...func(*iam.Options)) (*iam.DetachRolePolicyOutput, error)
	DeleteRolePolicy(context.Context, *iam.DeleteRolePolicyInput, ...func(*iam.Options)) (*iam.DeleteRolePolicyOutput, error)
	RemoveRoleFromInstanceProfile(context.Context, *iam.RemoveRoleFromInstanceProfileInput, ...func(*iam.Options)) (*iam.RemoveRoleFromInstanceProfileOutput, error)
	DeleteInstanceProfile(context.Context, *iam.DeleteInstanceProfileInput, ...func(*iam.Options)) (*iam.DeleteInstanceProfileOutput, error)
	DeleteRole(context.Context, *iam.DeleteRoleInput, ...func(*iam.Options)) (*iam.DeleteRoleOutput, error)
}

// Role represents an IAM role
// This is not the AWS SDK Role type, but a wrapper around it so that we can add additional data
type Role struct {
	iamtypes.Role
	Label string
}

// NewWatcher creates a new Role Watcher
func NewWatcher(iamAPI SDKRolesOps) Watcher {
	return Watcher{
		iamAPI: iamAPI,
	}
}

// Resolve returns roles whose name matches any pattern.
// Service-linked roles cannot be deleted by callers and are skipped.
func (w Watcher) Resolve(ctx context.Context, patternList []string) ([]Role, error) {
	var roles []Role
	pager := iam.NewListRolesPaginator(w.iamAPI, &iam.ListRolesInput{})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list roles: %w", err)
		}
		for _, sdkRole := range page.Roles {
			if lo.FromPtr(sdkRole.Path) == "/aws-service-role/" {
				continue
			}
			if label, ok := patterns.Match(lo.FromPtr(sdkRole.RoleName), nil, patternList); ok {
				roles = append(roles, Role{sdkRole, label})
			}
		}
	}
	return roles, nil
}

// Delete tears the role down completely: managed policies detached, inline
// policies deleted, instance-profile bindings removed and the profiles
// deleted, then the role itself. A role with any of these still attached
// cannot be deleted.
func (w Watcher) Delete(ctx context.Context, roleName string) error {
	attachedPager := iam.NewListAttachedRolePoliciesPaginator(w.iamAPI, &iam.ListAttachedRolePoliciesInput{RoleName: &roleName})
	for attachedPager.HasMorePages() {
		page, err := attachedPager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list attached policies for role %s: %w", roleName, err)
		}
		for _, policy := range page.AttachedPolicies {
			if _, err := w.iamAPI.DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
				RoleName:  &roleName,
				PolicyArn: policy.PolicyArn,
			}); err != nil {
				return err
			}
		}
	}

	inlinePager := iam.NewListRolePoliciesPaginator(w.iamAPI, &iam.ListRolePoliciesInput{RoleName: &roleName})
	for inlinePager.HasMorePages() {
		page, err := inlinePager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list inline policies for role %s: %w", roleName, err)
		}
		for _, policyName := range page.PolicyNames {
			if _, err := w.iamAPI.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{
				RoleName:   &roleName,
				PolicyName: &policyName,
			}); err != nil {
				return err
			}
		}
	}

	profilePager := iam.NewListInstanceProfilesForRolePaginator(w.iamAPI, &iam.ListInstanceProfilesForRoleInput{RoleName: &roleName})
	for profilePager.HasMorePages() {
		page, err := profilePager.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list instance profiles for role %s: %w", roleName, err)
		}
		for _, profile := range page.InstanceProfiles {
			if _, err := w.iamAPI.RemoveRoleFromInstanceProfile(ctx, &iam.RemoveRoleFromInstanceProfileInput{
				InstanceProfileName: profile.InstanceProfileName,
				RoleName:            &roleName,
			}); err != nil {
				return err
			}
			if _, err := w.iamAPI.DeleteInstanceProfile(ctx, &iam.DeleteInstanceProfileInput{
				InstanceProfileName: profile.InstanceProfileName,
			}); err != nil {
				return err
			}
		}
	}

	_, err := w.iamAPI.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: &roleName})
	return err
}
