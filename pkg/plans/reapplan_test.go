package plans_test

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/freetier/reaper/pkg/plans"
	"github.com/freetier/reaper/pkg/providers/keypairs"
)

// Every resource kind must belong to exactly one tier; a kind outside the
// precedence would silently never be deleted.
func TestTiersCoverEveryKind(t *testing.T) {
	allKinds := []plans.ResourceKind{
		plans.KindRule, plans.KindFunction, plans.KindLayer,
		plans.KindLogGroup, plans.KindDashboard, plans.KindAlarm,
		plans.KindInstance, plans.KindDatabase, plans.KindDBSubnetGroup,
		plans.KindBucket, plans.KindSecurityGroup,
		plans.KindInternetGateway, plans.KindSubnet, plans.KindRouteTable, plans.KindVPC,
		plans.KindRole, plans.KindKeyPair,
	}

	seen := map[plans.ResourceKind]int{}
	for _, tier := range plans.Tiers() {
		for _, kind := range tier.Kinds {
			seen[kind]++
		}
	}
	for _, kind := range allKinds {
		if seen[kind] != 1 {
			t.Errorf("expected kind %s in exactly one tier, found in %d", kind, seen[kind])
		}
	}
	if len(seen) != len(allKinds) {
		t.Errorf("expected %d kinds across tiers, got %d", len(allKinds), len(seen))
	}
}

func TestTierPrecedence(t *testing.T) {
	tierOf := map[plans.ResourceKind]int{}
	for i, tier := range plans.Tiers() {
		for _, kind := range tier.Kinds {
			tierOf[kind] = i
		}
	}

	// consumers before the things they depend on
	before := [][2]plans.ResourceKind{
		{plans.KindRule, plans.KindFunction},
		{plans.KindFunction, plans.KindRole},
		{plans.KindInstance, plans.KindSecurityGroup},
		{plans.KindInstance, plans.KindSubnet},
		{plans.KindDatabase, plans.KindSecurityGroup},
		{plans.KindSecurityGroup, plans.KindVPC},
		{plans.KindInternetGateway, plans.KindVPC},
		{plans.KindSubnet, plans.KindVPC},
		{plans.KindRouteTable, plans.KindVPC},
		{plans.KindInstance, plans.KindKeyPair},
	}
	for _, pair := range before {
		if tierOf[pair[0]] >= tierOf[pair[1]] {
			t.Errorf("expected %s to be reaped before %s", pair[0], pair[1])
		}
	}
}

func TestStatusMarkDeleted(t *testing.T) {
	var status plans.ReapStatus
	if status.IsDeleted(plans.KindBucket, "task-artifacts") {
		t.Error("expected fresh status to report nothing deleted")
	}
	status.MarkDeleted(plans.KindBucket, "task-artifacts")
	if !status.IsDeleted(plans.KindBucket, "task-artifacts") {
		t.Error("expected bucket to be marked deleted")
	}
	if status.IsDeleted(plans.KindVPC, "task-artifacts") {
		t.Error("expected deletion marks to be scoped per kind")
	}
}

func TestCountsAndEmpty(t *testing.T) {
	var plan plans.ReapPlan
	if !plan.Empty() {
		t.Error("expected a zero plan to be empty")
	}

	plan.Spec.KeyPairs = []keypairs.KeyPair{
		{KeyPairInfo: ec2types.KeyPairInfo{KeyName: aws.String("task-key")}, Label: "task"},
	}
	if plan.Empty() {
		t.Error("expected a plan with a key pair to be non-empty")
	}
	counts := plan.Counts()
	if len(counts) != 1 || counts[0].Kind != plans.KindKeyPair || counts[0].Count != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}

	items := plan.Items(plans.KindKeyPair)
	if len(items) != 1 || items[0].ID != "task-key" || items[0].Label != "task" {
		t.Errorf("unexpected items: %v", items)
	}
}
