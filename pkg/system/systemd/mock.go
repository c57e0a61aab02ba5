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
	"github.com/redpanda-data/hvtune/pkg/utils"
	"github.com/spf13/afero"
)

// MockClient is a Client whose behavior is given by its function fields.
// Unset fields succeed without doing anything, except LoadUnit, which writes
// the unit file to the given filesystem.
type MockClient struct {
	ShutdownFn    func() error
	StartUnitFn   func(string) error
	RestartUnitFn func(string) error
	EnableUnitFn  func(string) error
	UnitStateFn   func(string) (LoadState, ActiveState, error)
	LoadUnitFn    func(afero.Fs, string, string) error

	// Calls records the name of every method invoked, with its unit name.
	Calls []string
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Shutdown() error {
	c.Calls = append(c.Calls, "Shutdown")
	if c.ShutdownFn == nil {
		return nil
	}
	return c.ShutdownFn()
}

func (c *MockClient) StartUnit(name string) error {
	c.Calls = append(c.Calls, "StartUnit "+name)
	if c.StartUnitFn == nil {
		return nil
	}
	return c.StartUnitFn(name)
}

func (c *MockClient) RestartUnit(name string) error {
	c.Calls = append(c.Calls, "RestartUnit "+name)
	if c.RestartUnitFn == nil {
		return nil
	}
	return c.RestartUnitFn(name)
}

func (c *MockClient) EnableUnit(name string) error {
	c.Calls = append(c.Calls, "EnableUnit "+name)
	if c.EnableUnitFn == nil {
		return nil
	}
	return c.EnableUnitFn(name)
}

func (c *MockClient) UnitState(name string) (LoadState, ActiveState, error) {
	c.Calls = append(c.Calls, "UnitState "+name)
	if c.UnitStateFn == nil {
		return LoadStateLoaded, ActiveStateActive, nil
	}
	return c.UnitStateFn(name)
}

func (c *MockClient) LoadUnit(fs afero.Fs, body, name string) error {
	c.Calls = append(c.Calls, "LoadUnit "+name)
	if c.LoadUnitFn == nil {
		_, err := utils.WriteBytes(fs, []byte(body), UnitPath(name))
		return err
	}
	return c.LoadUnitFn(fs, body, name)
}
