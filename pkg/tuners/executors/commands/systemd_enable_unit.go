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

	"github.com/redpanda-data/hvtune/pkg/system/systemd"
)

type enableSystemdUnitCommand struct {
	client systemd.Client
	name   string
}

// NewEnableSystemdUnitCmd enables a unit so that it is started at boot.
func NewEnableSystemdUnitCmd(client systemd.Client, name string) Command {
	return &enableSystemdUnitCommand{client: client, name: name}
}

func (cmd *enableSystemdUnitCommand) Execute() error {
	return cmd.client.EnableUnit(cmd.name)
}

func (cmd *enableSystemdUnitCommand) RenderScript(w *bufio.Writer) error {
	_, err := fmt.Fprintf(w, "systemctl enable %s\n", cmd.name)
	if err != nil {
		return err
	}
	return w.Flush()
}
