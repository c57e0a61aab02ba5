// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

//go:build linux

package tune

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/redpanda-data/hvtune/pkg/cli/check"
	"github.com/redpanda-data/hvtune/pkg/config"
	"github.com/redpanda-data/hvtune/pkg/out"
	"github.com/redpanda-data/hvtune/pkg/system"
	"github.com/redpanda-data/hvtune/pkg/tuners"
	"github.com/redpanda-data/hvtune/pkg/tuners/factory"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Replaced in tests.
var (
	geteuid          = unix.Geteuid
	newDirectFactory = factory.NewDirectExecutorTunersFactory
	newScriptFactory = factory.NewScriptRenderingTunersFactory
)

var errNotRoot = errors.New("hvtune tune must be run as root; use --output-script to render a script instead")

const disabledReason = "disabled in configuration"

type result struct {
	tuner     string
	enabled   bool
	supported bool
	reason    string
	outcomes  []tuners.Outcome
}

func NewCommand(fs afero.Fs, p *config.Params) *cobra.Command {
	var (
		outTuneScriptFile string
		timeout           time.Duration
	)
	cmd := &cobra.Command{
		Use:   "tune",
		Short: "Apply the tuning policy to this host",
		Long: fmt.Sprintf(`Apply the tuning policy to this host.

Tuners run in this order, each can be disabled with -X tuners.<name>=false:

  - %s

Every setting is reported as applied, skipped or failed. A failing setting
doesn't stop the others, and the command exits 0 once every tuner ran. The
host is checked against the policy afterwards.

To learn more about a tuner, run 'hvtune tune help <tuner name>'.
`, strings.Join(factory.AvailableTuners(), "\n  - ")),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if outTuneScriptFile == "" && geteuid() != 0 {
				return errNotRoot
			}
			cfg, err := p.Load(fs)
			if err != nil {
				return fmt.Errorf("unable to load config: %w", err)
			}
			logHost()

			var tunerFactory factory.TunersFactory
			if outTuneScriptFile != "" {
				tunerFactory, err = newScriptFactory(fs, cfg, outTuneScriptFile, timeout)
				if err != nil {
					return err
				}
			} else {
				tunerFactory = newDirectFactory(fs, cfg, timeout)
			}
			defer tunerFactory.Close()

			w := cmd.OutOrStdout()
			results := tune(cfg, factory.AvailableTuners(), tunerFactory)
			printTuneResult(w, results)
			if outTuneScriptFile != "" {
				fmt.Fprintf(w, "\nTuning script written to %s\n", outTuneScriptFile)
				return nil
			}
			fmt.Fprintf(w, "\nSystem check results\n")
			check.PrintResults(w, tuners.Verify(fs, cfg, check.NewSysctl()))
			return nil
		},
	}
	cmd.Flags().StringVar(&outTuneScriptFile, "output-script", "", "Generate a tuning script instead of tuning the host")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "The maximum time to wait for external tools to complete (e.g. 300ms, 1.5s, 2h45m)")

	cmd.AddCommand(
		newHelpCommand(),
		newListCommand(fs, p),
	)
	return cmd
}

func logHost() {
	release, err := system.GetKernelVersion()
	if err != nil {
		zap.L().Sugar().Debugf("Unable to read the kernel release: %v", err)
		return
	}
	cpus, err := system.GetOnlineCPUs()
	if err != nil {
		zap.L().Sugar().Debugf("Unable to count online CPUs: %v", err)
	}
	zap.L().Sugar().Infof("Tuning host running kernel %s with %d online CPUs", release, cpus)
}

func tune(
	conf *config.Config,
	tunerNames []string,
	tunersFactory factory.TunersFactory,
) []result {
	var results []result
	for _, tunerName := range tunerNames {
		enabled := factory.IsTunerEnabled(tunerName, conf)
		if !enabled {
			results = append(results, result{tuner: tunerName, reason: disabledReason})
			continue
		}
		tuner := tunersFactory.CreateTuner(tunerName)
		supported, reason := tuner.CheckIfSupported()
		if !supported {
			zap.L().Sugar().Warnf("Skipping %s: %s", tunerName, reason)
			results = append(results, result{tuner: tunerName, enabled: true, reason: reason})
			continue
		}
		zap.L().Sugar().Debugf("Running %s tuner", tunerName)
		res := tuner.Tune()
		if res.IsFailed() {
			zap.L().Sugar().Warnf("Tuner %s failed: %v", tunerName, res.Error())
		}
		results = append(results, result{
			tuner:     tunerName,
			enabled:   true,
			supported: true,
			outcomes:  res.Outcomes(),
		})
	}
	return results
}

func printTuneResult(w io.Writer, results []result) {
	tw := out.NewTableTo(w,
		"Tuner",
		"Setting",
		"Status",
		"Value",
		"Reason",
	)
	var counts [3]int
	for _, res := range results {
		if !res.enabled || !res.supported {
			counts[tuners.StatusSkipped]++
			tw.PrintStrings(colorRow(
				color.New(color.FgYellow).SprintFunc(),
				[]string{res.tuner, "-", tuners.StatusSkipped.String(), "", res.reason},
			)...)
			continue
		}
		for _, o := range res.outcomes {
			counts[o.Status]++
			tw.PrintStrings(colorRow(
				statusColor(o.Status),
				[]string{res.tuner, o.Name, o.Status.String(), o.Value, o.Reason},
			)...)
		}
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d applied, %d skipped, %d failed\n",
		counts[tuners.StatusApplied], counts[tuners.StatusSkipped], counts[tuners.StatusFailed])
}

func statusColor(s tuners.Status) func(...interface{}) string {
	switch s {
	case tuners.StatusApplied:
		return color.New(color.FgGreen).SprintFunc()
	case tuners.StatusFailed:
		return color.New(color.FgRed).SprintFunc()
	}
	return color.New(color.FgYellow).SprintFunc()
}

func colorRow(c func(...interface{}) string, row []string) []string {
	for i, s := range row {
		row[i] = c(s)
	}
	return row
}
