// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package executors

import "github.com/redpanda-data/hvtune/pkg/tuners/executors/commands"

// Executor runs the commands tuners emit. Lazy executors only record them,
// so tuners must not expect their effects to be observable afterwards.
type Executor interface {
	Execute(commands.Command) error
	IsLazy() bool
}
