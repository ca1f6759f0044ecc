// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package mikan

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/autobrr/animefun/pkg/stringutils"
)

const normalizeCacheTTL = 10 * time.Minute

// searchNameNormalizer caches NameForSearch results per raw (name, name_cn)
// pair, since the resolver and mapping sweeps repeatedly normalize the same
// subjects.
var searchNameNormalizer = stringutils.NewNormalizer(normalizeCacheTTL, func(key [2]string) string {
	return normalizeSearchName(key[0], key[1])
})

// NameForSearch derives the string to feed into Mikan's search box, per the
// name-normalization rules: prefer name_cn, strip a parenthesized trailer,
// strip one trailing season/part suffix, and trim trailing punctuation.
func NameForSearch(name, nameCN string) string {
	return searchNameNormalizer.Normalize([2]string{name, nameCN})
}

var parenTrailerRe = regexp.MustCompile(`[(（][^()（）]*[)）]\s*$`)

var seasonSuffixRes = []*regexp.Regexp{
	regexp.MustCompile(`第[一二三四五六七八九十0-9]+部分\s*$`),
	regexp.MustCompile(`第[一二三四五六七八九十0-9]+季\s*$`),
	regexp.MustCompile(`(?i)Season\s*\d+\s*$`),
	regexp.MustCompile(`(?i)S\d+\s*$`),
	regexp.MustCompile(`(?i)Part\s*\d+\s*$`),
}

var trailingPunctRe = regexp.MustCompile(`[。.!！?？·•\s]+$`)

func normalizeSearchName(name, nameCN string) string {
	picked := strings.TrimSpace(nameCN)
	if picked == "" {
		picked = strings.TrimSpace(name)
	}
	if picked == "" {
		return ""
	}

	picked = norm.NFKD.String(picked)

	// Strip a balanced parenthesized trailer, non-greedy (at most once; the
	// trailing anchor means repeated application would only ever touch the
	// same trailer, so one pass suffices).
	picked = parenTrailerRe.ReplaceAllString(picked, "")
	picked = strings.TrimRight(picked, " ")

	for _, re := range seasonSuffixRes {
		if re.MatchString(picked) {
			picked = re.ReplaceAllString(picked, "")
			break
		}
	}

	picked = trailingPunctRe.ReplaceAllString(picked, "")
	return strings.TrimSpace(picked)
}
