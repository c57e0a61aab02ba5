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
	"fmt"
	"io"
	"time"

	"github.com/redpanda-data/hvtune/pkg/config"
	"github.com/redpanda-data/hvtune/pkg/out"
	"github.com/redpanda-data/hvtune/pkg/tuners/factory"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type tunerInfo struct {
	Name      string
	Enabled   bool
	Supported bool
	Reason    string
}

func newListCommand(fs afero.Fs, p *config.Params) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available tuners",
		Long: `List available tuners and check if they are enabled and supported by
this host.

Every tuner is enabled by default. To disable one, set it to false in the
configuration file:

  tuners:
    disk_scheduler: false

or pass -X tuners.disk_scheduler=false.
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := p.Load(fs)
			if err != nil {
				return fmt.Errorf("unable to load config: %w", err)
			}
			// The timeout is irrelevant since no tuner runs.
			tunerFactory := newDirectFactory(fs, cfg, 10*time.Second)
			defer tunerFactory.Close()

			var list []tunerInfo
			for _, name := range factory.AvailableTuners() {
				tuner := tunerFactory.CreateTuner(name)
				enabled := factory.IsTunerEnabled(name, cfg)
				supported, reason := tuner.CheckIfSupported()
				list = append(list, tunerInfo{name, enabled, supported, reason})
			}
			printTunerList(cmd.OutOrStdout(), list)
			return nil
		},
	}
}

func printTunerList(w io.Writer, list []tunerInfo) {
	headers := []string{
		"Tuner",
		"Enabled",
		"Supported",
		"Unsupported-Reason",
	}
	table := out.NewTableTo(w, headers...)
	defer table.Flush()
	for _, tuner := range list {
		table.PrintStructFields(tuner)
	}
}
