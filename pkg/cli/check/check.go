// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package check

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/redpanda-data/hvtune/pkg/config"
	"github.com/redpanda-data/hvtune/pkg/out"
	"github.com/redpanda-data/hvtune/pkg/system"
	"github.com/redpanda-data/hvtune/pkg/tuners"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewSysctl is replaced in tests.
var NewSysctl = system.NewSysctl

func NewCommand(fs afero.Fs, p *config.Params) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check whether the host matches the tuning policy",
		Long: `Check whether the host matches the tuning policy.

Every setting and file managed by 'hvtune tune' is read back and compared to
the policy. Nothing is changed, so this doesn't require root, although some
values may only be readable by root.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg, err := p.Load(fs)
			out.MaybeDie(err, "unable to load config: %v", err)
			PrintResults(cmd.OutOrStdout(), tuners.Verify(fs, cfg, NewSysctl()))
		},
	}
}

// PrintResults prints a table with one row per check result.
func PrintResults(w io.Writer, results []*tuners.CheckResult) {
	tw := out.NewTableTo(w,
		"Condition",
		"Required",
		"Current",
		"Severity",
		"Passed",
	)
	defer tw.Flush()

	for _, r := range results {
		current := r.Current
		if r.Err != nil {
			current = r.Err.Error()
		}
		tw.PrintStrings(
			r.Desc,
			r.Required,
			current,
			fmt.Sprint(r.Severity),
			printResult(r),
		)
	}
}

func printResult(r *tuners.CheckResult) string {
	if r.NotApplicable {
		return color.HiBlackString("N/A")
	}
	if r.IsOk {
		return color.GreenString("%v", r.IsOk)
	}
	switch r.Severity {
	case tuners.Fatal:
		return color.RedString("%v", r.IsOk)
	case tuners.Warning:
		return color.YellowString("%v", r.IsOk)
	}
	return fmt.Sprint(r.IsOk)
}
