// Copyright 2024 Redpanda Data, Inc.
//
// Use of this software is governed by the Business Source License
// included in the file licenses/BSL.md
//
// As of the Change Date specified in that file, in accordance with
// the Business Source License, use of this software will be governed
// by the Apache License, Version 2.0

package utils

import "sort"

// GetKeys returns the keys of setMap in ascending order.
func GetKeys(setMap map[string]bool) []string {
	keys := make([]string, 0, len(setMap))
	for key := range setMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// GetKeysFromStringMap returns the keys of m in ascending order.
func GetKeysFromStringMap(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ContainsString reports whether s is one of vs.
func ContainsString(vs []string, s string) bool {
	for _, v := range vs {
		if v == s {
			return true
		}
	}
	return false
}
