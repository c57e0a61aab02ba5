// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package systemd

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
	hvos "github.com/redpanda-data/hvtune/pkg/os"
	"github.com/spf13/afero"
)

type dbusClient struct {
	conn *dbus.Conn
}

// NewDbusClient connects to the system manager. It fails on hosts booted
// without systemd or inside containers without a reachable bus.
func NewDbusClient() (Client, error) {
	conn, err := dbus.NewWithContext(context.Background())
	if err != nil {
		return nil, err
	}
	return &dbusClient{conn: conn}, nil
}

func (c *dbusClient) Shutdown() error {
	c.conn.Close()
	return nil
}

func (c *dbusClient) StartUnit(name string) error {
	return c.waitJob(name, func(ctx context.Context, ch chan<- string) (int, error) {
		return c.conn.StartUnitContext(ctx, name, "replace", ch)
	})
}

func (c *dbusClient) RestartUnit(name string) error {
	return c.waitJob(name, func(ctx context.Context, ch chan<- string) (int, error) {
		return c.conn.RestartUnitContext(ctx, name, "replace", ch)
	})
}

// waitJob enqueues a job and waits for systemd to report its result.
func (c *dbusClient) waitJob(
	name string, enqueue func(context.Context, chan<- string) (int, error),
) error {
	ch := make(chan string, 1)
	if _, err := enqueue(context.Background(), ch); err != nil {
		return err
	}
	if result := <-ch; result != "done" {
		return fmt.Errorf("job for %s finished with result %q", name, result)
	}
	return nil
}

func (c *dbusClient) EnableUnit(name string) error {
	ctx := context.Background()
	_, _, err := c.conn.EnableUnitFilesContext(ctx, []string{name}, false, true)
	if err != nil {
		return err
	}
	return c.conn.ReloadContext(ctx)
}

func (c *dbusClient) UnitState(name string) (LoadState, ActiveState, error) {
	loadState, err := c.conn.GetUnitPropertyContext(context.Background(), name, "LoadState")
	if err != nil {
		return LoadStateUnknown, ActiveStateUnknown, err
	}
	activeState, err := c.conn.GetUnitPropertyContext(context.Background(), name, "ActiveState")
	if err != nil {
		return toLoadState(loadState.Value.String()),
			ActiveStateUnknown,
			err
	}

	return toLoadState(loadState.Value.String()),
		toActiveState(activeState.Value.String()),
		nil
}

func (c *dbusClient) LoadUnit(fs afero.Fs, body, name string) error {
	err := hvos.ReplaceFile(fs, UnitPath(name), []byte(body), 0o644)
	if err != nil {
		return err
	}
	return c.conn.ReloadContext(context.Background())
}
