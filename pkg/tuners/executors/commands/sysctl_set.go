// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package commands

import (
	"bufio"
	"fmt"

	"github.com/redpanda-data/hvtune/pkg/system"
	"go.uber.org/zap"
)

type sysctlSetCommand struct {
	sysctl system.Sysctl
	key    string
	value  string
}

func NewSysctlSetCmd(sysctl system.Sysctl, key string, value string) Command {
	return &sysctlSetCommand{
		sysctl: sysctl,
		key:    key,
		value:  value,
	}
}

func (c *sysctlSetCommand) Execute() error {
	zap.L().Sugar().Debugf("Setting key '%s' to '%s' with sysctl", c.key, c.value)
	return c.sysctl.Set(c.key, c.value)
}

func (c *sysctlSetCommand) RenderScript(w *bufio.Writer) error {
	fmt.Fprintf(w, "sysctl -w %s\n", shellQuote(c.key+"="+c.value))
	return w.Flush()
}
