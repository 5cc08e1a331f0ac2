package rules

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	eventbridgetypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/samber/lo"
)

// Watcher discovers EventBridge rules matching the reap patterns
type Watcher struct {
	eventsAPI SDKRulesOps
}

// SDKRulesOps is an interface that combines the necessary EventBridge SDK client interfaces
// AWS SDK for Go v2 does not provide a single interface that combines all the necessary methods
type SDKRulesOps interface {
	ListRules(context.Context, *eventbridge.ListRulesInput, ...func(*eventbridge.Options)) (*eventbridge.ListRulesOutput, error)
	ListTargetsByRule(context.Context, *eventbridge.ListTargetsByRuleInput, ...func(*eventbridge.Options)) (*eventbridge.ListTargetsByRuleOutput, error)
	RemoveTargets(context.Context, *eventbridge.RemoveTargetsInput, ...func(*eventbridge.Options)) (*eventbridge.RemoveTargetsOutput, error)
	DeleteRule(context.Context, *eventbridge.DeleteRuleInput, ...func(*eventbridge.Options)) (*eventbridge.DeleteRuleOutput, error)
}

// Rule represents an EventBridge rule
// This is not the AWS SDK Rule type, but a wrapper around it so that we can add additional data
type Rule struct {
	eventbridgetypes.Rule
	Label string
}

// NewWatcher creates a new Rule Watcher
func NewWatcher(eventsAPI SDKRulesOps) Watcher {
	return Watcher{
		eventsAPI: eventsAPI,
	}
}

// Resolve returns rules on the default event bus whose name matches any pattern
func (w Watcher) Resolve(ctx context.Context, patternList []string) ([]Rule, error) {
	var rules []Rule
	var nextToken *string
	for {
		out, err := w.eventsAPI.ListRules(ctx, &eventbridge.ListRulesInput{NextToken: nextToken})
		if err != nil {
			return nil, fmt.Errorf("failed to list rules: %w", err)
		}
		for _, sdkRule := range out.Rules {
			if label, ok := patterns.Match(lo.FromPtr(sdkRule.Name), nil, patternList); ok {
				rules = append(rules, Rule{sdkRule, label})
			}
		}
		nextToken = out.NextToken
		if nextToken == nil {
			return rules, nil
		}
	}
}

// Delete removes the rule's targets before deleting the rule.
// A rule with targets cannot be deleted.
func (w Watcher) Delete(ctx context.Context, rule Rule) error {
	targetsOut, err := w.eventsAPI.ListTargetsByRule(ctx, &eventbridge.ListTargetsByRuleInput{Rule: rule.Name})
	if err != nil {
		return err
	}
	if len(targetsOut.Targets) > 0 {
		targetIDs := lo.Map(targetsOut.Targets, func(target eventbridgetypes.Target, _ int) string {
			return lo.FromPtr(target.Id)
		})
		if _, err := w.eventsAPI.RemoveTargets(ctx, &eventbridge.RemoveTargetsInput{
			Rule: rule.Name,
			Ids:  targetIDs,
		}); err != nil {
			return err
		}
	}
	_, err = w.eventsAPI.DeleteRule(ctx, &eventbridge.DeleteRuleInput{Name: rule.Name})
	return err
}
