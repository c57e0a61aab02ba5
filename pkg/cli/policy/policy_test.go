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
	"bytes"
	"testing"

	"github.com/redpanda-data/hvtune/pkg/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPolicy(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, config.DefaultPath, []byte(`
sysctl:
  vm.swappiness: 1
  net.ipv4.tcp_mtu_probing: ""
`), 0o644))
	p := &config.Params{FlagOverrides: []string{"tuners.disk_scheduler=false"}}

	var b bytes.Buffer
	cmd := NewCommand(fs, p)
	cmd.SetOut(&b)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	var printed config.Config
	require.NoError(t, yaml.Unmarshal(b.Bytes(), &printed))
	require.Equal(t, "1", printed.Sysctl["vm.swappiness"])
	require.NotContains(t, printed.Sysctl, "net.ipv4.tcp_mtu_probing")
	require.False(t, printed.IsEnabled(config.TunerDiskSchedule))

	// The printed policy loads back to the same configuration.
	expected, err := p.Load(fs)
	require.NoError(t, err)
	require.Equal(t, expected, &printed)
}
