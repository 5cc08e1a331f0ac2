package reaper

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/freetier/reaper/pkg/logging"
	"github.com/freetier/reaper/pkg/plans"
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
	"github.com/freetier/reaper/pkg/report"
	"github.com/freetier/reaper/pkg/utils/awserrors"
	"github.com/samber/lo"
)

// Options tunes a reap run. Zero timeouts fall back to defaults; a zero
// GraceDelay skips the propagation pause entirely.
type Options struct {
	Patterns            []string
	InstanceWaitTimeout time.Duration
	DatabaseWaitTimeout time.Duration
	GraceDelay          time.Duration
	Reporter            report.Reporter
}

const (
	defaultInstanceWaitTimeout = 10 * time.Minute
	defaultDatabaseWaitTimeout = 30 * time.Minute
)

// Clients carries the per-service SDK surfaces the reaper needs. Tests
// substitute fakes implementing the provider interfaces.
type Clients struct {
	Rules          rules.SDKRulesOps
	Functions      functions.SDKFunctionsOps
	Logs           logs.SDKLogsOps
	Dashboards     dashboards.SDKDashboardsOps
	Instances      instances.SDKInstancesOps
	Databases      databases.SDKDatabasesOps
	Buckets        buckets.SDKBucketsOps
	SecurityGroups securitygroups.SDKSecurityGroupOps
	IGWs           igws.SDKIGWOps
	Subnets        subnets.SDKSubnetsOps
	RouteTables    routetables.SDKRouteTablesOps
	VPCs           vpcs.SDKVPCsOps
	Roles          roles.SDKRolesOps
	KeyPairs       keypairs.SDKKeyPairOps
}

// Reaper discovers resources matching the configured patterns and deletes
// them in dependency-tier order, best-effort.
type Reaper struct {
	opts                 Options
	ruleWatcher          rules.Watcher
	functionWatcher      functions.Watcher
	logGroupWatcher      logs.Watcher
	dashboardWatcher     dashboards.Watcher
	instanceWatcher      instances.Watcher
	databaseWatcher      databases.Watcher
	bucketWatcher        buckets.Watcher
	securityGroupWatcher securitygroups.Watcher
	igwWatcher           igws.Watcher
	subnetWatcher        subnets.Watcher
	routeTableWatcher    routetables.Watcher
	vpcWatcher           vpcs.Watcher
	roleWatcher          roles.Watcher
	keyPairWatcher       keypairs.Watcher
}

func New(awsCfg *aws.Config, opts Options) Reaper {
	ec2API := ec2.NewFromConfig(*awsCfg)
	return NewFromClients(Clients{
		Rules:          eventbridge.NewFromConfig(*awsCfg),
		Functions:      lambda.NewFromConfig(*awsCfg),
		Logs:           cloudwatchlogs.NewFromConfig(*awsCfg),
		Dashboards:     cloudwatch.NewFromConfig(*awsCfg),
		Instances:      ec2API,
		Databases:      rds.NewFromConfig(*awsCfg),
		Buckets:        s3.NewFromConfig(*awsCfg),
		SecurityGroups: ec2API,
		IGWs:           ec2API,
		Subnets:        ec2API,
		RouteTables:    ec2API,
		VPCs:           ec2API,
		Roles:          iam.NewFromConfig(*awsCfg),
		KeyPairs:       ec2API,
	}, opts)
}

func NewFromClients(clients Clients, opts Options) Reaper {
	return Reaper{
		opts:                 opts,
		ruleWatcher:          rules.NewWatcher(clients.Rules),
		functionWatcher:      functions.NewWatcher(clients.Functions),
		logGroupWatcher:      logs.NewWatcher(clients.Logs),
		dashboardWatcher:     dashboards.NewWatcher(clients.Dashboards),
		instanceWatcher:      instances.NewWatcher(clients.Instances),
		databaseWatcher:      databases.NewWatcher(clients.Databases),
		bucketWatcher:        buckets.NewWatcher(clients.Buckets),
		securityGroupWatcher: securitygroups.NewWatcher(clients.SecurityGroups),
		igwWatcher:           igws.NewWatcher(clients.IGWs),
		subnetWatcher:        subnets.NewWatcher(clients.Subnets),
		routeTableWatcher:    routetables.NewWatcher(clients.RouteTables),
		vpcWatcher:           vpcs.NewWatcher(clients.VPCs),
		roleWatcher:          roles.NewWatcher(clients.Roles),
		keyPairWatcher:       keypairs.NewWatcher(clients.KeyPairs),
	}
}

// WithPollInterval overrides the async-wait poll interval on the instance and
// database watchers.
func (r Reaper) WithPollInterval(interval time.Duration) Reaper {
	r.instanceWatcher = r.instanceWatcher.WithPollInterval(interval)
	r.databaseWatcher = r.databaseWatcher.WithPollInterval(interval)
	return r
}

// Affirmed reports whether answer is the literal confirmation string required
// before any deletion. Anything else aborts the run.
func Affirmed(answer string) bool {
	return strings.TrimSpace(answer) == "yes"
}

// Discover queries the control plane for every resource kind and builds a
// reap plan. Discovery is best-effort: a failed query is logged and treated
// as "nothing found" so a partial cleanup can still complete.
func (r Reaper) Discover(ctx context.Context, region string) plans.ReapPlan {
	plan := plans.ReapPlan{
		Metadata: plans.ReapMetadata{
			Region:   region,
			Patterns: r.opts.Patterns,
		},
	}
	plan.Spec.Rules = resolve(ctx, plans.KindRule, r.opts.Patterns, r.ruleWatcher.Resolve)
	plan.Spec.Functions = resolve(ctx, plans.KindFunction, r.opts.Patterns, r.functionWatcher.Resolve)
	plan.Spec.Layers = resolve(ctx, plans.KindLayer, r.opts.Patterns, r.functionWatcher.ResolveLayers)
	plan.Spec.LogGroups = resolve(ctx, plans.KindLogGroup, r.opts.Patterns, r.logGroupWatcher.Resolve)
	plan.Spec.Dashboards = resolve(ctx, plans.KindDashboard, r.opts.Patterns, r.dashboardWatcher.Resolve)
	plan.Spec.Alarms = resolve(ctx, plans.KindAlarm, r.opts.Patterns, r.dashboardWatcher.ResolveAlarms)
	plan.Spec.Instances = resolve(ctx, plans.KindInstance, r.opts.Patterns, r.instanceWatcher.Resolve)
	plan.Spec.Databases = resolve(ctx, plans.KindDatabase, r.opts.Patterns, r.databaseWatcher.Resolve)
	plan.Spec.DBSubnetGroups = resolve(ctx, plans.KindDBSubnetGroup, r.opts.Patterns, r.databaseWatcher.ResolveSubnetGroups)
	plan.Spec.Buckets = resolve(ctx, plans.KindBucket, r.opts.Patterns, r.bucketWatcher.Resolve)
	plan.Spec.SecurityGroups = resolve(ctx, plans.KindSecurityGroup, r.opts.Patterns, r.securityGroupWatcher.Resolve)
	plan.Spec.InternetGateways = resolve(ctx, plans.KindInternetGateway, r.opts.Patterns, r.igwWatcher.Resolve)
	plan.Spec.Subnets = resolve(ctx, plans.KindSubnet, r.opts.Patterns, r.subnetWatcher.Resolve)
	plan.Spec.RouteTables = resolve(ctx, plans.KindRouteTable, r.opts.Patterns, r.routeTableWatcher.Resolve)
	plan.Spec.VPCs = resolve(ctx, plans.KindVPC, r.opts.Patterns, r.vpcWatcher.Resolve)
	plan.Spec.Roles = resolve(ctx, plans.KindRole, r.opts.Patterns, r.roleWatcher.Resolve)
	plan.Spec.KeyPairs = resolve(ctx, plans.KindKeyPair, r.opts.Patterns, r.keyPairWatcher.Resolve)
	return plan
}

func resolve[T any](ctx context.Context, kind plans.ResourceKind, patternList []string, resolveFn func(context.Context, []string) ([]T, error)) []T {
	logging.FromContext(ctx).Debug("resolving resources", "kind", kind)
	found, err := resolveFn(ctx, patternList)
	if err != nil {
		logging.FromContext(ctx).Warn("discovery query failed, treating as nothing found", "kind", kind, "error", err)
		return nil
	}
	return found
}

// Execute runs the plan tier by tier. Each tier fully completes, including
// any blocking wait, before the next starts. Individual failures are
// recorded and never abort the run; only an unconfirmed plan stops short,
// before any delete call is issued.
func (r Reaper) Execute(ctx context.Context, plan *plans.ReapPlan, confirmed bool) []plans.Outcome {
	log := logging.FromContext(ctx)
	if !confirmed {
		log.Debug("plan not confirmed, no resources touched")
		return nil
	}
	reporter := r.opts.Reporter
	if reporter == nil {
		reporter = report.Discard{}
	}

	var outcomes []plans.Outcome
	record := func(outcome plans.Outcome) {
		if outcome.Status == plans.StatusDeleted || outcome.Status == plans.StatusNotFound {
			plan.Status.MarkDeleted(outcome.Kind, outcome.ID)
		}
		log.Debug("recorded outcome", "kind", outcome.Kind, "id", outcome.ID, "status", outcome.Status)
		outcomes = append(outcomes, outcome)
		reporter.Outcome(outcome)
	}

	for _, tier := range plans.Tiers() {
		reporter.Tier(tier.Name)
		for _, kind := range tier.Kinds {
			r.reapKind(ctx, plan, kind, record)
		}
	}
	return outcomes
}

func (r Reaper) reapKind(ctx context.Context, plan *plans.ReapPlan, kind plans.ResourceKind, record func(plans.Outcome)) {
	skip := func(id string) bool { return plan.Status.IsDeleted(kind, id) }
	switch kind {
	case plans.KindRule:
		for _, rule := range plan.Spec.Rules {
			if id := lo.FromPtr(rule.Name); !skip(id) {
				record(outcome(kind, id, rule.Label, r.ruleWatcher.Delete(ctx, rule)))
			}
		}
	case plans.KindFunction:
		for _, function := range plan.Spec.Functions {
			if id := lo.FromPtr(function.FunctionName); !skip(id) {
				record(outcome(kind, id, function.Label, r.functionWatcher.Delete(ctx, id)))
			}
		}
	case plans.KindLayer:
		for _, layer := range plan.Spec.Layers {
			if id := lo.FromPtr(layer.LayerName); !skip(id) {
				record(outcome(kind, id, layer.Label, r.functionWatcher.DeleteLayer(ctx, layer)))
			}
		}
	case plans.KindLogGroup:
		for _, logGroup := range plan.Spec.LogGroups {
			if id := lo.FromPtr(logGroup.LogGroupName); !skip(id) {
				record(outcome(kind, id, logGroup.Label, r.logGroupWatcher.Delete(ctx, id)))
			}
		}
	case plans.KindDashboard:
		for _, dashboard := range plan.Spec.Dashboards {
			if id := lo.FromPtr(dashboard.DashboardName); !skip(id) {
				record(outcome(kind, id, dashboard.Label, r.dashboardWatcher.Delete(ctx, id)))
			}
		}
	case plans.KindAlarm:
		for _, alarm := range plan.Spec.Alarms {
			if id := lo.FromPtr(alarm.AlarmName); !skip(id) {
				record(outcome(kind, id, alarm.Label, r.dashboardWatcher.DeleteAlarm(ctx, id)))
			}
		}
	case plans.KindInstance:
		r.reapInstances(ctx, plan, record)
	case plans.KindDatabase:
		r.reapDatabases(ctx, plan, record)
	case plans.KindDBSubnetGroup:
		for _, subnetGroup := range plan.Spec.DBSubnetGroups {
			if id := lo.FromPtr(subnetGroup.DBSubnetGroupName); !skip(id) {
				record(outcome(kind, id, subnetGroup.Label, r.databaseWatcher.DeleteSubnetGroup(ctx, id)))
			}
		}
	case plans.KindBucket:
		r.reapBuckets(ctx, plan, record)
	case plans.KindSecurityGroup:
		r.reapSecurityGroups(ctx, plan, record)
	case plans.KindInternetGateway:
		for _, igw := range plan.Spec.InternetGateways {
			if id := lo.FromPtr(igw.InternetGatewayId); !skip(id) {
				record(outcome(kind, id, igw.Label, r.igwWatcher.Delete(ctx, igw)))
			}
		}
	case plans.KindSubnet:
		for _, subnet := range plan.Spec.Subnets {
			if id := lo.FromPtr(subnet.SubnetId); !skip(id) {
				record(outcome(kind, id, subnet.Label, r.subnetWatcher.Delete(ctx, id)))
			}
		}
	case plans.KindRouteTable:
		for _, routeTable := range plan.Spec.RouteTables {
			if id := lo.FromPtr(routeTable.RouteTableId); !skip(id) {
				record(outcome(kind, id, routeTable.Label, r.routeTableWatcher.Delete(ctx, routeTable)))
			}
		}
	case plans.KindVPC:
		for _, vpc := range plan.Spec.VPCs {
			if id := lo.FromPtr(vpc.VpcId); !skip(id) {
				record(outcome(kind, id, vpc.Label, r.vpcWatcher.Delete(ctx, id)))
			}
		}
	case plans.KindRole:
		for _, role := range plan.Spec.Roles {
			if id := lo.FromPtr(role.RoleName); !skip(id) {
				record(outcome(kind, id, role.Label, r.roleWatcher.Delete(ctx, id)))
			}
		}
	case plans.KindKeyPair:
		for _, keyPair := range plan.Spec.KeyPairs {
			if id := lo.FromPtr(keyPair.KeyName); !skip(id) {
				record(outcome(kind, id, keyPair.Label, r.keyPairWatcher.Delete(ctx, id)))
			}
		}
	}
}

// reapInstances issues all terminations first, then blocks until every
// terminating instance is gone. Network teardown depends on this wait.
func (r Reaper) reapInstances(ctx context.Context, plan *plans.ReapPlan, record func(plans.Outcome)) {
	var waiting []instances.Instance
	for _, instance := range plan.Spec.Instances {
		id := lo.FromPtr(instance.InstanceId)
		if plan.Status.IsDeleted(plans.KindInstance, id) {
			continue
		}
		if err := r.instanceWatcher.Terminate(ctx, id); err != nil {
			record(outcome(plans.KindInstance, id, instance.Label, err))
			continue
		}
		waiting = append(waiting, instance)
	}
	if len(waiting) == 0 {
		return
	}
	waitIDs := lo.Map(waiting, func(instance instances.Instance, _ int) string { return lo.FromPtr(instance.InstanceId) })
	timeout := lo.Ternary(r.opts.InstanceWaitTimeout > 0, r.opts.InstanceWaitTimeout, defaultInstanceWaitTimeout)
	err := r.instanceWatcher.WaitTerminated(ctx, waitIDs, timeout)
	for _, instance := range waiting {
		id := lo.FromPtr(instance.InstanceId)
		if err != nil {
			record(plans.Outcome{Kind: plans.KindInstance, ID: id, Label: instance.Label, Status: plans.StatusTimedOut, Detail: err.Error()})
			continue
		}
		record(plans.Outcome{Kind: plans.KindInstance, ID: id, Label: instance.Label, Status: plans.StatusDeleted})
	}
}

// reapDatabases deletes each database and blocks until the control plane
// reports it gone; subnet groups and VPC teardown cannot proceed while a
// database attachment exists.
func (r Reaper) reapDatabases(ctx context.Context, plan *plans.ReapPlan, record func(plans.Outcome)) {
	timeout := lo.Ternary(r.opts.DatabaseWaitTimeout > 0, r.opts.DatabaseWaitTimeout, defaultDatabaseWaitTimeout)
	for _, database := range plan.Spec.Databases {
		id := lo.FromPtr(database.DBInstanceIdentifier)
		if plan.Status.IsDeleted(plans.KindDatabase, id) {
			continue
		}
		if err := r.databaseWatcher.Delete(ctx, id); err != nil {
			record(outcome(plans.KindDatabase, id, database.Label, err))
			continue
		}
		if err := r.databaseWatcher.WaitDeleted(ctx, id, timeout); err != nil {
			record(plans.Outcome{Kind: plans.KindDatabase, ID: id, Label: database.Label, Status: plans.StatusTimedOut, Detail: err.Error()})
			continue
		}
		record(plans.Outcome{Kind: plans.KindDatabase, ID: id, Label: database.Label, Status: plans.StatusDeleted})
	}
}

// reapBuckets purges every object version and delete marker before removing
// the bucket itself.
func (r Reaper) reapBuckets(ctx context.Context, plan *plans.ReapPlan, record func(plans.Outcome)) {
	for _, bucket := range plan.Spec.Buckets {
		name := lo.FromPtr(bucket.Name)
		if plan.Status.IsDeleted(plans.KindBucket, name) {
			continue
		}
		purged, err := r.bucketWatcher.Empty(ctx, name)
		if err != nil {
			record(outcome(plans.KindBucket, name, bucket.Label, err))
			continue
		}
		logging.FromContext(ctx).Debug("purged bucket contents", "bucket", name, "entries", purged)
		record(outcome(plans.KindBucket, name, bucket.Label, r.bucketWatcher.Delete(ctx, name)))
	}
}

// reapSecurityGroups pauses once for control-plane propagation after
// instance termination, then revokes each group's live rule set before
// deleting the group.
func (r Reaper) reapSecurityGroups(ctx context.Context, plan *plans.ReapPlan, record func(plans.Outcome)) {
	if len(plan.Spec.SecurityGroups) > 0 && r.opts.GraceDelay > 0 {
		logging.FromContext(ctx).Debug("pausing before security group mutation", "delay", r.opts.GraceDelay)
		sleep(ctx, r.opts.GraceDelay)
	}
	for _, securityGroup := range plan.Spec.SecurityGroups {
		id := lo.FromPtr(securityGroup.GroupId)
		if plan.Status.IsDeleted(plans.KindSecurityGroup, id) {
			continue
		}
		if err := r.securityGroupWatcher.RevokeRules(ctx, id); err != nil && !awserrors.IsNotFound(err) {
			record(outcome(plans.KindSecurityGroup, id, securityGroup.Label, err))
			continue
		}
		record(outcome(plans.KindSecurityGroup, id, securityGroup.Label, r.securityGroupWatcher.Delete(ctx, id)))
	}
}

func outcome(kind plans.ResourceKind, id, label string, err error) plans.Outcome {
	result := plans.Outcome{Kind: kind, ID: id, Label: label}
	switch {
	case err == nil:
		result.Status = plans.StatusDeleted
	case awserrors.IsNotFound(err):
		result.Status = plans.StatusNotFound
	default:
		result.Status = plans.StatusFailed
		result.Detail = err.Error()
	}
	return result
}

func sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
