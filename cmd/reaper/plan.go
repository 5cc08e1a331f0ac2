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

	"github.com/freetier/reaper/pkg/logging"
	"github.com/freetier/reaper/pkg/patterns"
	"github.com/freetier/reaper/pkg/plans"
	"github.com/freetier/reaper/pkg/pretty"
	"github.com/freetier/reaper/pkg/reaper"
	"github.com/spf13/cobra"
)

type PlanUI struct {
	Tier  string `table:"Tier"`
	Kind  string `table:"Kind"`
	ID    string `table:"Resource"`
	Label string `table:"Matched,wide"`
}

var (
	cmdPlan = &cobra.Command{
		Use:   "plan",
		Short: "show what a reap run would delete, without deleting anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return showPlan(cmd.Context(), reapOptions, globalOpts)
		},
	}
)

func init() {
	rootCmd.AddCommand(cmdPlan)
}

func showPlan(ctx context.Context, reapOptions ReapOptions, globalOpts GlobalOptions) error {
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

	r := reaper.New(awsCfg, reaper.Options{Patterns: patternList})
	plan := r.Discover(ctx, awsCfg.Region)
	if plan.Empty() {
		fmt.Println("Nothing to delete")
		return nil
	}

	rows := planRows(plan)
	switch globalOpts.Output {
	case OutputJSON:
		fmt.Println(pretty.EncodeJSON(rows))
	case OutputYAML:
		fmt.Println(pretty.EncodeYAML(rows))
	case OutputTableWide:
		fmt.Println(pretty.Table(rows, true))
	default:
		fmt.Println(pretty.Table(rows, false))
	}
	return nil
}

func planRows(plan plans.ReapPlan) []PlanUI {
	var rows []PlanUI
	for _, tier := range plans.Tiers() {
		for _, kind := range tier.Kinds {
			for _, item := range plan.Items(kind) {
				rows = append(rows, PlanUI{Tier: tier.Name, Kind: string(kind), ID: item.ID, Label: item.Label})
			}
		}
	}
	return rows
}
