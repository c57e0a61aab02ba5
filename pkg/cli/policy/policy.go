// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package policy

import (
	"fmt"

	"github.com/redpanda-data/hvtune/pkg/config"
	"github.com/redpanda-data/hvtune/pkg/out"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func NewCommand(fs afero.Fs, p *config.Params) *cobra.Command {
	return &cobra.Command{
		Use:   "policy",
		Short: "Print the effective tuning policy",
		Long: `Print the effective tuning policy as YAML.

The output is the built-in policy merged with the configuration file and any
-X overrides, which is exactly what 'hvtune tune' applies. It can be saved
as a starting point for a configuration file:

  hvtune policy > /etc/hvtune/hvtune.yaml`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg, err := p.Load(fs)
			out.MaybeDie(err, "unable to load config: %v", err)
			b, err := cfg.Marshal()
			out.MaybeDie(err, "unable to encode policy: %v", err)
			fmt.Fprint(cmd.OutOrStdout(), string(b))
		},
	}
}
