// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package roundrobin provides small, allocation-light helpers for fairly
// rotating through a slice of work items across sweeps, without persisting
// a cursor anywhere: callers keep the cursor themselves (process-local,
// reset on restart).
package roundrobin

// Take returns up to limit elements of rows starting at start, wrapping
// around to the front of rows if the window runs past the end. Elements are
// never duplicated within one call when limit <= len(rows).
func Take[T any](rows []T, start, limit int) ([]T, int) {
	n := len(rows)
	if n == 0 {
		return nil, 0
	}
	if start < 0 || start >= n {
		start %= n
		if start < 0 {
			start += n
		}
	}

	take := limit
	if take > n {
		take = n
	}

	out := make([]T, 0, take)
	firstLen := take
	if n-start < firstLen {
		firstLen = n - start
	}
	out = append(out, rows[start:start+firstLen]...)
	if remaining := take - firstLen; remaining > 0 {
		out = append(out, rows[0:remaining]...)
	}
	return out, len(out)
}

// NextOffset advances a round-robin cursor by processed items, wrapping
// modulo total. A total of 0 always yields 0.
func NextOffset(total, start, processed int) int {
	if total == 0 {
		return 0
	}
	next := (start + processed) % total
	if next < 0 {
		next += total
	}
	return next
}
