// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package titles parses Mikan release titles into structured fields using
// CJK-specific heuristics (group tag, episode/range, resolution, subtitle
// language/type), with a TTL cache since the same release title recurs
// across RSS sweeps.
package titles

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
)

// Parsed holds the fields extracted from a single release title.
type Parsed struct {
	Group        string `json:"group,omitempty"`
	Episode      int    `json:"episode,omitempty"`
	EpisodeRange string `json:"episode_range,omitempty"`
	Resolution   int    `json:"resolution,omitempty"`
	SubtitleLang string `json:"subtitle_lang,omitempty"`
	SubtitleType string `json:"subtitle_type,omitempty"`
}

// Parser parses titles with a TTL cache keyed by the raw title string.
type Parser struct {
	cache *ttlcache.Cache[string, Parsed]
}

// NewParser creates a title parser with a 5-minute default TTL cache.
func NewParser() *Parser {
	return &Parser{
		cache: ttlcache.New(ttlcache.Options[string, Parsed]{}.SetDefaultTTL(5 * time.Minute)),
	}
}

// Parse returns the structured fields for title, using description as a
// fallback source for any facet the title itself doesn't yield.
func (p *Parser) Parse(title, description string) Parsed {
	if cached, ok := p.cache.Get(title); ok {
		return cached
	}

	parsed := parseAll(title)
	if description != "" {
		fromDesc := parseAll(description)
		if parsed.Group == "" {
			parsed.Group = fromDesc.Group
		}
		if parsed.Episode == 0 && parsed.EpisodeRange == "" {
			parsed.Episode = fromDesc.Episode
			parsed.EpisodeRange = fromDesc.EpisodeRange
		}
		if parsed.Resolution == 0 {
			parsed.Resolution = fromDesc.Resolution
		}
		if parsed.SubtitleLang == "" {
			parsed.SubtitleLang = fromDesc.SubtitleLang
		}
		if parsed.SubtitleType == "" {
			parsed.SubtitleType = fromDesc.SubtitleType
		}
	}

	p.cache.Set(title, parsed, ttlcache.DefaultTTL)
	return parsed
}

// parseAll extracts every facet from a single source string (title or
// description); Parse merges title-derived and description-derived facets.
func parseAll(s string) Parsed {
	p := parseEpisode(s)
	p.Group = parseGroup(s)
	p.Resolution = parseResolution(s)
	p.SubtitleLang = parseSubtitleLang(s)
	p.SubtitleType = parseSubtitleType(s)
	return p
}

var groupBracketRe = regexp.MustCompile(`^.{0,40}?[\[\(\{【]([^\]\)\}】]+)[\]\)\}】]`)
var groupAnywhereRe = regexp.MustCompile(`[\[\(\{【]([^\]\)\}】]+)[\]\)\}】]`)

func parseGroup(s string) string {
	if m := groupBracketRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := groupAnywhereRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}

var episodePrefixRe = regexp.MustCompile(`(?i)(?:EP|E|第)\s*(\d{1,3})\s*(话|話|集)?`)
var episodeRangeRe = regexp.MustCompile(`(\d{1,3})-(\d{1,3})\s*(全集|END|完)?`)
var seasonMarkerRe = regexp.MustCompile(`(?i)S(\d{1,2})\s*/\s*|\s(\d{1,2})\s*/\s*|\s(\d{1,2})\s*-\s*|\s(\d{1,2})\s*-`)
var bracketedNumRe = regexp.MustCompile(`\[\s*(\d{1,3})\s*\]`)
var dashNumRe = regexp.MustCompile(`\s-\s(\d{1,3})(?:\s*([pP])?)`)

func parseEpisode(s string) Parsed {
	var p Parsed

	if m := episodePrefixRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		p.Episode = n
		return p
	}

	if m := episodeRangeRe.FindStringSubmatchIndex(s); m != nil {
		matched := s[m[0]:m[1]]
		groups := episodeRangeRe.FindStringSubmatch(matched)
		if seasonMarkerRe.MatchString(surrounding(s, m[0], m[1])) {
			n, _ := strconv.Atoi(groups[2])
			p.Episode = n
			return p
		}
		p.EpisodeRange = groups[1] + "-" + groups[2]
		return p
	}

	if m := bracketedNumRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		p.Episode = n
		return p
	}

	head := s
	if idx := strings.IndexAny(s, "(（"); idx >= 0 {
		head = s[:idx]
	}
	matches := dashNumRe.FindAllStringSubmatch(head, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		if m[2] != "" {
			continue // rejects a trailing p/P (resolution marker, not an episode)
		}
		n, _ := strconv.Atoi(m[1])
		p.Episode = n
		return p
	}

	return p
}

// surrounding returns a small window around [start,end) to check for an
// adjacent season marker without matching markers far away in the title.
func surrounding(s string, start, end int) string {
	const pad = 12
	lo := start - pad
	if lo < 0 {
		lo = 0
	}
	hi := end + pad
	if hi > len(s) {
		hi = len(s)
	}
	return s[lo:hi]
}

var resolutionRe = regexp.MustCompile(`(2160|1080|720|480)\s*[pP]`)
var resolutionWxHRe = regexp.MustCompile(`\d{3,4}\s*[xX]\s*(2160|1080|720|480)`)
var fourKRe = regexp.MustCompile(`(?i)4\s*K`)

func parseResolution(s string) int {
	if m := resolutionRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if m := resolutionWxHRe.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	if fourKRe.MatchString(s) {
		return 2160
	}
	return 0
}

// subtitleLangRules are checked in priority order; the first match wins.
// Each rule's label is the canonical CJK term for that variant, even when
// matched via a Latin alias (chs&cht, gb, big5, ...).
var subtitleLangRules = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`简繁日`), "简繁日"},
	{regexp.MustCompile(`简日`), "简日"},
	{regexp.MustCompile(`简繁|(?i)chs&cht|chs\+cht`), "简繁"},
	{regexp.MustCompile(`简体|(?i)\bchs\b|(?i)\bgb\b`), "简体"},
	{regexp.MustCompile(`繁体|(?i)\bcht\b|(?i)big5`), "繁体"},
	{regexp.MustCompile(`繁日`), "繁日"},
}

func parseSubtitleLang(s string) string {
	for _, rule := range subtitleLangRules {
		if rule.re.MatchString(s) {
			return rule.label
		}
	}
	return ""
}

var subtitleTypeRules = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`外挂|(?i)external`), "外挂"},
	{regexp.MustCompile(`内封|内嵌|内置|(?i)softsub`), "内封"},
	{regexp.MustCompile(`硬字幕|(?i)hardsub`), "硬字幕"},
}

func parseSubtitleType(s string) string {
	for _, rule := range subtitleTypeRules {
		if rule.re.MatchString(s) {
			return rule.label
		}
	}
	return ""
}
