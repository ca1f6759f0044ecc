// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package dbinterface

import "strings"

// BuildQueryWithPlaceholders expands a single %s verb in template into rows
// groups of cols placeholders each, e.g. BuildQueryWithPlaceholders("VALUES %s", 2, 3)
// yields "VALUES (?, ?), (?, ?), (?, ?)". Used to build batched multi-row
// INSERT/UPDATE statements without hand-counting placeholders at call sites.
func BuildQueryWithPlaceholders(template string, cols, rows int) string {
	if rows <= 0 || cols <= 0 {
		return strings.Replace(template, "%s", "", 1)
	}

	group := "(" + strings.TrimSuffix(strings.Repeat("?, ", cols), ", ") + ")"

	var sb strings.Builder
	for i := 0; i < rows; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(group)
	}

	return strings.Replace(template, "%s", sb.String(), 1)
}
