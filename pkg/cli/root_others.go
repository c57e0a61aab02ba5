// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

//go:build !linux

package cli

import (
	"github.com/redpanda-data/hvtune/pkg/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// Tuning is Linux only, elsewhere a bare 'hvtune' prints its help.
func addPlatformDependentCmds(_ afero.Fs, _ *config.Params, cmd *cobra.Command) {
	cmd.Run = func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	}
}
