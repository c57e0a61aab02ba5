// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package tuners

import (
	"fmt"

	"github.com/redpanda-data/hvtune/pkg/tuners/executors"
	"github.com/redpanda-data/hvtune/pkg/tuners/executors/commands"
)

// ReasonScripted is the reason given for settings that were rendered to a
// script instead of being applied.
const ReasonScripted = "rendered to script"

// Execute runs cmd and reports the outcome of setting name to value.
func Execute(executor executors.Executor, name, value string, cmd commands.Command) Outcome {
	if err := executor.Execute(cmd); err != nil {
		return Failed(name, err)
	}
	if executor.IsLazy() {
		return Skipped(name, ReasonScripted)
	}
	return Applied(name, value)
}

// managedHeader is the first line of every file hvtune owns.
func managedHeader(policyVersion int) string {
	return fmt.Sprintf("# Managed by hvtune (policy version %d), changes will be overwritten.", policyVersion)
}
