/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/freetier/reaper/pkg/logging"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/freetier/reaper/pkg/plans"
	"github.com/freetier/reaper/pkg/pretty"
	"github.com/freetier/reaper/pkg/reaper"
	"github.com/freetier/reaper/pkg/report"
	"github.com/samber/lo"
)

type ReapOptions struct {
	Patterns        string        `yaml:"patterns"`
	Yes             bool          `yaml:"-"`
	InstanceTimeout time.Duration `yaml:"-"`
	DatabaseTimeout time.Duration `yaml:"-"`
	GraceDelay      time.Duration `yaml:"-"`
}

type OutcomeUI struct {
	Kind   string `table:"Kind"`
	ID     string `table:"Resource"`
	Status string `table:"Status"`
	Label  string `table:"Matched,wide"`
	Detail string `table:"Detail,wide"`
}

var (
	reapOptions = ReapOptions{}
)

func init() {
	rootCmd.Flags().StringVar(&reapOptions.Patterns, "patterns", "", "Comma-separated name/tag substrings to match (default: task,Task)")
	rootCmd.Flags().BoolVar(&reapOptions.Yes, "yes", false, "Don't ask, just do it!")
	rootCmd.Flags().DurationVar(&reapOptions.InstanceTimeout, "instance-timeout", 10*time.Minute, "Max wait for instance termination")
	rootCmd.Flags().DurationVar(&reapOptions.DatabaseTimeout, "database-timeout", 30*time.Minute, "Max wait for database deletion")
	rootCmd.Flags().DurationVar(&reapOptions.GraceDelay, "grace-delay", 10*time.Second, "Pause before security group mutation")
}

func reap(ctx context.Context, reapOptions ReapOptions, globalOpts GlobalOptions) error {
	ctx = logging.ToContext(ctx, logging.New(os.Stderr, globalOpts.Verbose))
	reapOptions, err := ParseConfig(globalOpts, reapOptions)
	if err != nil {
		return err
	}
	patternList := patterns.DefaultPatterns
	if reapOptions.Patterns != "" {
		if patternList, err = patterns.Parse(reapOptions.Patterns); err != nil {
			return err
		}
	}
	awsCfg, err := AWSConfig(ctx, globalOpts)
	if err != nil {
		return err
	}

	r := reaper.New(awsCfg, reaper.Options{
		Patterns:            patternList,
		InstanceWaitTimeout: reapOptions.InstanceTimeout,
		DatabaseWaitTimeout: reapOptions.DatabaseTimeout,
		GraceDelay:          reapOptions.GraceDelay,
		Reporter:            report.Console{Out: os.Stdout},
	})

	plan := r.Discover(ctx, awsCfg.Region)
	if plan.Empty() {
		fmt.Println("Nothing to delete")
		return nil
	}

	fmt.Printf("The following resources in %s match %v and will be PERMANENTLY deleted:\n\n", awsCfg.Region, patternList)
	fmt.Println(pretty.Table(planCounts(plan), false))

	confirmed := reapOptions.Yes
	if !confirmed {
		if confirmed, err = confirm(); err != nil {
			return err
		}
	}
	if !confirmed {
		fmt.Println("Aborted. No resources were touched.")
		return nil
	}

	outcomes := r.Execute(ctx, &plan, confirmed)

	fmt.Println()
	fmt.Println(pretty.Table(lo.Map(outcomes, func(outcome plans.Outcome, _ int) OutcomeUI {
		return OutcomeUI{
			Kind:   string(outcome.Kind),
			ID:     outcome.ID,
			Status: string(outcome.Status),
			Label:  outcome.Label,
			Detail: outcome.Detail,
		}
	}), globalOpts.Output == OutputTableWide))
	fmt.Println("Cleanup run complete.")
	fmt.Println("Verify in the console that everything you expected is gone, and check your billing page again in 24 hours.")
	return nil
}

type CountUI struct {
	Kind  string `table:"Kind"`
	Count string `table:"Count"`
}

func planCounts(plan plans.ReapPlan) []CountUI {
	return lo.Map(plan.Counts(), func(count plans.KindCount, _ int) CountUI {
		return CountUI{Kind: string(count.Kind), Count: fmt.Sprintf("%d", count.Count)}
	})
}

// confirm requires the literal string "yes"; any other input declines.
func confirm() (bool, error) {
	var answer string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title(`Type "yes" to delete these resources`).
			Value(&answer),
	))
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("failed to obtain confirmation: %w", err)
	}
	return reaper.Affirmed(answer), nil
}
