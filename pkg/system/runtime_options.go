// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package system

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/redpanda-data/hvtune/pkg/utils"
	"github.com/spf13/afero"
)

// RuntimeOptions is the parsed content of a sysfs file listing the available
// values of a knob with the active one in brackets, e.g.
// "[mq-deadline] kyber bfq none".
type RuntimeOptions struct {
	optionsMap map[string]bool
}

var activeOptionPattern = regexp.MustCompile(`^\[(.*)\]$`)

func ReadRuntimeOptions(fs afero.Fs, path string) (*RuntimeOptions, error) {
	lines, err := utils.ReadFileLines(fs, path)
	if err != nil {
		return nil, err
	}
	if len(lines) != 1 {
		return nil, fmt.Errorf("unable to parse options file '%s'", path)
	}
	return ParseRuntimeOptions(lines[0]), nil
}

func ParseRuntimeOptions(line string) *RuntimeOptions {
	optionsMap := make(map[string]bool)
	options := strings.Fields(line)
	for _, opt := range options {
		matches := activeOptionPattern.FindStringSubmatch(opt)
		if matches != nil {
			optionsMap[matches[1]] = true
		} else {
			optionsMap[opt] = false
		}
	}

	// if there is only one option it is active
	if len(options) == 1 {
		optionsMap[strings.Trim(options[0], "[]")] = true
	}
	return &RuntimeOptions{optionsMap: optionsMap}
}

func (r *RuntimeOptions) GetActive() string {
	for opt, isActive := range r.optionsMap {
		if isActive {
			return opt
		}
	}
	return ""
}

func (r *RuntimeOptions) GetAvailable() []string {
	return utils.GetKeys(r.optionsMap)
}

func (r *RuntimeOptions) IsAvailable(opt string) bool {
	_, ok := r.optionsMap[opt]
	return ok
}
