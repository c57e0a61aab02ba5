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

type startSystemdUnitCommand struct {
	client systemd.Client
	name   string
}

/*
 * Start a systemd unit with the provided name.
 */
func NewStartSystemdUnitCmd(client systemd.Client, name string) Command {
	return &startSystemdUnitCommand{client: client, name: name}
}

func (cmd *startSystemdUnitCommand) Execute() error {
	return cmd.client.StartUnit(cmd.name)
}

func (cmd *startSystemdUnitCommand) RenderScript(w *bufio.Writer) error {
	_, err := fmt.Fprintf(w, "systemctl start %s\n", cmd.name)
	if err != nil {
		return err
	}
	return w.Flush()
}
