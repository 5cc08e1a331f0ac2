package plans

import (
	"github.com/freetier/reaper/pkg/providers/buckets"
	"github.com/freetier/reaper/pkg/providers/dashboards"
	"github.com/freetier/reaper/pkg/providers/databases"
	"github.com/freetier/reaper/pkg/providers/functions"
	"github.com/freetier/reaper/pkg/providers/igws"
	"github.com/freetier/reaper/pkg/providers/instances"
	"github.com/freetier/reaper/pkg/providers/keypairs"
	"github.com/freetier/reaper/pkg/providers/logs"
	"github.com/freetier/reaper/pkg/providers/roles"
	"github.com/freetier/reaper/pkg/providers/routetables"
	"github.com/freetier/reaper/pkg/providers/rules"
	"github.com/freetier/reaper/pkg/providers/securitygroups"
	"github.com/freetier/reaper/pkg/providers/subnets"
	"github.com/freetier/reaper/pkg/providers/vpcs"
	"github.com/samber/lo"
)

type ResourceKind string

const (
	KindRule            ResourceKind = "scheduled-rule"
	KindFunction        ResourceKind = "function"
	KindLayer           ResourceKind = "layer"
	KindLogGroup        ResourceKind = "log-group"
	KindDashboard       ResourceKind = "dashboard"
	KindAlarm           ResourceKind = "alarm"
	KindInstance        ResourceKind = "instance"
	KindDatabase        ResourceKind = "database"
	KindDBSubnetGroup   ResourceKind = "db-subnet-group"
	KindBucket          ResourceKind = "bucket"
	KindSecurityGroup   ResourceKind = "security-group"
	KindInternetGateway ResourceKind = "internet-gateway"
	KindSubnet          ResourceKind = "subnet"
	KindRouteTable      ResourceKind = "route-table"
	KindVPC             ResourceKind = "vpc"
	KindRole            ResourceKind = "role"
	KindKeyPair         ResourceKind = "key-pair"
)

type OutcomeStatus string

const (
	StatusDeleted  OutcomeStatus = "deleted"
	StatusNotFound OutcomeStatus = "not-found"
	StatusFailed   OutcomeStatus = "failed"
	StatusTimedOut OutcomeStatus = "timed-out"
)

// Outcome records the result of one resource's deletion attempt
type Outcome struct {
	Kind   ResourceKind
	ID     string
	Label  string
	Status OutcomeStatus
	Detail string
}

type ReapPlan struct {
	Metadata ReapMetadata
	Spec     ReapSpec
	Status   ReapStatus
}

type ReapMetadata struct {
	Region   string
	Patterns []string
}

type ReapSpec struct {
	Rules            []rules.Rule
	Functions        []functions.Function
	Layers           []functions.Layer
	LogGroups        []logs.LogGroup
	Dashboards       []dashboards.Dashboard
	Alarms           []dashboards.Alarm
	Instances        []instances.Instance
	Databases        []databases.Database
	DBSubnetGroups   []databases.SubnetGroup
	Buckets          []buckets.Bucket
	SecurityGroups   []securitygroups.SecurityGroup
	InternetGateways []igws.InternetGateway
	Subnets          []subnets.Subnet
	RouteTables      []routetables.RouteTable
	VPCs             []vpcs.VPC
	Roles            []roles.Role
	KeyPairs         []keypairs.KeyPair
}

type ReapStatus struct {
	// Reap status maps a resource-id to a bool representing that the resource has been deleted.
	Deleted map[ResourceKind]map[string]bool
}

// MarkDeleted records that a resource reached a terminal deletion state so a
// re-executed plan skips it.
func (s *ReapStatus) MarkDeleted(kind ResourceKind, id string) {
	if s.Deleted == nil {
		s.Deleted = map[ResourceKind]map[string]bool{}
	}
	if s.Deleted[kind] == nil {
		s.Deleted[kind] = map[string]bool{}
	}
	s.Deleted[kind][id] = true
}

func (s ReapStatus) IsDeleted(kind ResourceKind, id string) bool {
	return s.Deleted[kind][id]
}

// Counts returns the number of planned deletions per resource kind, in tier
// order, omitting empty kinds. Used for the pre-run itemized warning.
func (p ReapPlan) Counts() []KindCount {
	counts := []KindCount{
		{KindRule, len(p.Spec.Rules)},
		{KindFunction, len(p.Spec.Functions)},
		{KindLayer, len(p.Spec.Layers)},
		{KindLogGroup, len(p.Spec.LogGroups)},
		{KindDashboard, len(p.Spec.Dashboards)},
		{KindAlarm, len(p.Spec.Alarms)},
		{KindInstance, len(p.Spec.Instances)},
		{KindDatabase, len(p.Spec.Databases)},
		{KindDBSubnetGroup, len(p.Spec.DBSubnetGroups)},
		{KindBucket, len(p.Spec.Buckets)},
		{KindSecurityGroup, len(p.Spec.SecurityGroups)},
		{KindInternetGateway, len(p.Spec.InternetGateways)},
		{KindSubnet, len(p.Spec.Subnets)},
		{KindRouteTable, len(p.Spec.RouteTables)},
		{KindVPC, len(p.Spec.VPCs)},
		{KindRole, len(p.Spec.Roles)},
		{KindKeyPair, len(p.Spec.KeyPairs)},
	}
	var nonEmpty []KindCount
	for _, count := range counts {
		if count.Count > 0 {
			nonEmpty = append(nonEmpty, count)
		}
	}
	return nonEmpty
}

type KindCount struct {
	Kind  ResourceKind
	Count int
}

// Item is a flattened view of one planned deletion, for display.
type Item struct {
	ID    string
	Label string
}

// Items returns the planned deletions for a kind as display items.
func (p ReapPlan) Items(kind ResourceKind) []Item {
	switch kind {
	case KindRule:
		return lo.Map(p.Spec.Rules, func(r rules.Rule, _ int) Item { return Item{lo.FromPtr(r.Name), r.Label} })
	case KindFunction:
		return lo.Map(p.Spec.Functions, func(f functions.Function, _ int) Item { return Item{lo.FromPtr(f.FunctionName), f.Label} })
	case KindLayer:
		return lo.Map(p.Spec.Layers, func(l functions.Layer, _ int) Item { return Item{lo.FromPtr(l.LayerName), l.Label} })
	case KindLogGroup:
		return lo.Map(p.Spec.LogGroups, func(l logs.LogGroup, _ int) Item { return Item{lo.FromPtr(l.LogGroupName), l.Label} })
	case KindDashboard:
		return lo.Map(p.Spec.Dashboards, func(d dashboards.Dashboard, _ int) Item { return Item{lo.FromPtr(d.DashboardName), d.Label} })
	case KindAlarm:
		return lo.Map(p.Spec.Alarms, func(a dashboards.Alarm, _ int) Item { return Item{lo.FromPtr(a.AlarmName), a.Label} })
	case KindInstance:
		return lo.Map(p.Spec.Instances, func(i instances.Instance, _ int) Item { return Item{lo.FromPtr(i.InstanceId), i.Label} })
	case KindDatabase:
		return lo.Map(p.Spec.Databases, func(d databases.Database, _ int) Item { return Item{lo.FromPtr(d.DBInstanceIdentifier), d.Label} })
	case KindDBSubnetGroup:
		return lo.Map(p.Spec.DBSubnetGroups, func(g databases.SubnetGroup, _ int) Item { return Item{lo.FromPtr(g.DBSubnetGroupName), g.Label} })
	case KindBucket:
		return lo.Map(p.Spec.Buckets, func(b buckets.Bucket, _ int) Item { return Item{lo.FromPtr(b.Name), b.Label} })
	case KindSecurityGroup:
		return lo.Map(p.Spec.SecurityGroups, func(s securitygroups.SecurityGroup, _ int) Item { return Item{lo.FromPtr(s.GroupId), s.Label} })
	case KindInternetGateway:
		return lo.Map(p.Spec.InternetGateways, func(i igws.InternetGateway, _ int) Item { return Item{lo.FromPtr(i.InternetGatewayId), i.Label} })
	case KindSubnet:
		return lo.Map(p.Spec.Subnets, func(s subnets.Subnet, _ int) Item { return Item{lo.FromPtr(s.SubnetId), s.Label} })
	case KindRouteTable:
		return lo.Map(p.Spec.RouteTables, func(r routetables.RouteTable, _ int) Item { return Item{lo.FromPtr(r.RouteTableId), r.Label} })
	case KindVPC:
		return lo.Map(p.Spec.VPCs, func(v vpcs.VPC, _ int) Item { return Item{lo.FromPtr(v.VpcId), v.Label} })
	case KindRole:
		return lo.Map(p.Spec.Roles, func(r roles.Role, _ int) Item { return Item{lo.FromPtr(r.RoleName), r.Label} })
	case KindKeyPair:
		return lo.Map(p.Spec.KeyPairs, func(k keypairs.KeyPair, _ int) Item { return Item{lo.FromPtr(k.KeyName), k.Label} })
	}
	return nil
}

func (p ReapPlan) Empty() bool {
	return len(p.Counts()) == 0
}

// Tier is a batch of resource kinds with no deletion-order dependency among
// themselves. Tiers are strictly ordered; a tier only starts after the
// previous tier fully completed, including any blocking waits.
type Tier struct {
	Name  string
	Kinds []ResourceKind
}

// Tiers returns the fixed deletion precedence.
func Tiers() []Tier {
	return []Tier{
		{Name: "Scheduled rules", Kinds: []ResourceKind{KindRule}},
		{Name: "Functions and layers", Kinds: []ResourceKind{KindFunction, KindLayer}},
		{Name: "Observability", Kinds: []ResourceKind{KindLogGroup, KindDashboard, KindAlarm}},
		{Name: "Compute instances", Kinds: []ResourceKind{KindInstance}},
		{Name: "Databases", Kinds: []ResourceKind{KindDatabase, KindDBSubnetGroup}},
		{Name: "Storage buckets", Kinds: []ResourceKind{KindBucket}},
		{Name: "Security groups", Kinds: []ResourceKind{KindSecurityGroup}},
		{Name: "Network", Kinds: []ResourceKind{KindInternetGateway, KindSubnet, KindRouteTable, KindVPC}},
		{Name: "Access roles", Kinds: []ResourceKind{KindRole}},
		{Name: "Key pairs", Kinds: []ResourceKind{KindKeyPair}},
	}
}
