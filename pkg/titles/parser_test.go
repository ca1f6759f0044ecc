// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package titles_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/autobrr/animefun/pkg/titles"
)

func TestParser_SeasonMarkerAdjacentRangeBecomesSingleEpisode(t *testing.T) {
	p := titles.NewParser()
	got := p.Parse("[黒ネズミたち] 魔法科高校の劣等生 S2 / 来訪者編 2 - 23 (ABEMA 1920x1080 AVC AAC MP4)", "")
	assert.Equal(t, 23, got.Episode)
	assert.Equal(t, "", got.EpisodeRange)
	assert.Equal(t, 1080, got.Resolution)
}

func TestParser_RangeWithResolutionAndSubtitle(t *testing.T) {
	p := titles.NewParser()
	got := p.Parse("【动漫国字幕组】恋上换装娃娃 [01-12(全集)] 1080P 简繁外挂", "")
	assert.Equal(t, 0, got.Episode)
	assert.Equal(t, "01-12", got.EpisodeRange)
	assert.Equal(t, 1080, got.Resolution)
	assert.Equal(t, "简繁", got.SubtitleLang)
	assert.Equal(t, "外挂", got.SubtitleType)
	assert.Equal(t, "动漫国字幕组", got.Group)
}

func TestParser_ExplicitEpisodePrefix(t *testing.T) {
	p := titles.NewParser()
	got := p.Parse("[Group] Some Show - EP05 [1080p]", "")
	assert.Equal(t, 5, got.Episode)
}

func TestParser_FallsBackToDescriptionForMissingFacets(t *testing.T) {
	p := titles.NewParser()
	got := p.Parse("[Group] Some Show", "720p 内嵌")
	assert.Equal(t, 720, got.Resolution)
	assert.Equal(t, "内封", got.SubtitleType)
}

func TestParser_CachesRepeatedTitle(t *testing.T) {
	p := titles.NewParser()
	first := p.Parse("[Group] Some Show - 07", "")
	second := p.Parse("[Group] Some Show - 07", "ignored on cache hit")
	assert.Equal(t, first, second)
}
