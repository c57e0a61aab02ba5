// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

//go:build linux

package cli

import (
	"github.com/redpanda-data/hvtune/pkg/cli/tune"
	"github.com/redpanda-data/hvtune/pkg/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func addPlatformDependentCmds(fs afero.Fs, p *config.Params, cmd *cobra.Command) {
	tuneCmd := tune.NewCommand(fs, p)
	cmd.AddCommand(tuneCmd)

	// A bare 'hvtune' tunes the host with the tune command's defaults.
	cmd.RunE = func(_ *cobra.Command, args []string) error {
		return tuneCmd.RunE(tuneCmd, args)
	}
}
