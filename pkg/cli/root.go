// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/redpanda-data/hvtune/pkg/cli/check"
	"github.com/redpanda-data/hvtune/pkg/cli/policy"
	"github.com/redpanda-data/hvtune/pkg/config"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func Execute() {
	fs := afero.NewOsFs()

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}

	p := new(config.Params)
	runXHelp := func() {
		for _, o := range p.FlagOverrides {
			switch {
			case o == "help":
				fmt.Print(config.ParamsHelp())
			case o == "list":
				fmt.Print(config.ParamsList())
			default:
				return
			}
			os.Exit(0)
		}
	}
	cobra.OnInitialize(func() {
		runXHelp()
		zap.ReplaceGlobals(p.Logger())
	})

	err := NewRootCommand(fs, p).Execute()
	if err != nil {
		os.Exit(1)
	}
}

func NewRootCommand(fs afero.Fs, p *config.Params) *cobra.Command {
	root := &cobra.Command{
		Use:   "hvtune",
		Short: "hvtune tunes a KVM hypervisor host",
		Long: `hvtune tunes a KVM hypervisor host.

It applies a versioned policy of CPU, memory, network and block device
settings, persists them across reboots and reports the effective value of
every setting it touches. Running hvtune without a command is the same as
running 'hvtune tune'.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,

		CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&p.ConfigPath, "config", "", fmt.Sprintf("hvtune config file; default %s, the built-in policy is used if it doesn't exist", config.DefaultPath))
	pf.StringArrayVarP(&p.FlagOverrides, "config-opt", "X", nil, "Override policy settings; '-X help' for detail or '-X list' for terser detail")
	pf.BoolVarP(&p.Verbose, "verbose", "v", false, "Enable verbose logging")

	root.RegisterFlagCompletionFunc("config-opt", func(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var opts []string
		for _, line := range strings.Split(config.ParamsList(), "\n") {
			key, _, found := strings.Cut(line, "=")
			if !found || !strings.HasPrefix(key, toComplete) {
				continue
			}
			opts = append(opts, key+"=")
		}
		return opts, cobra.ShellCompDirectiveNoSpace
	})

	root.AddCommand(
		check.NewCommand(fs, p),
		policy.NewCommand(fs, p),
	)

	addPlatformDependentCmds(fs, p, root)

	return root
}
