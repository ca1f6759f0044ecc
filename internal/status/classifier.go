// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package status implements the subject-status classifier: combining
// catalog, calendar, and episode data into a small PreAir/Airing/Finished/
// OnHiatus/Unknown state machine.
package status

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/autobrr/animefun/internal/catalog"
)

// Code is a subject's broadcast status.
type Code int

const (
	Airing Code = iota
	PreAir
	Finished
	OnHiatus
	Unknown
)

func (c Code) String() string {
	switch c {
	case Airing:
		return "airing"
	case PreAir:
		return "pre_air"
	case Finished:
		return "finished"
	case OnHiatus:
		return "on_hiatus"
	default:
		return "unknown"
	}
}

// TTL returns how long a Status computed with this code should be cached.
func (c Code) TTL() time.Duration {
	switch c {
	case Airing:
		return 6 * time.Hour
	case PreAir:
		return 24 * time.Hour
	case Finished:
		return 7 * 24 * time.Hour
	case OnHiatus:
		return 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

const recentWindowDays = 21

// Status is the computed classification for a single subject.
type Status struct {
	Code          Code   `json:"code"`
	FirstAirDate  string `json:"first_air_date,omitempty"`
	LatestAirdate string `json:"latest_airdate,omitempty"`
	ExpectedEps   int    `json:"expected_eps,omitempty"`
	CurrentEps    int    `json:"current_eps,omitempty"`
	CalendarOnAir bool   `json:"calendar_on_air"`
	Reason        string `json:"reason"`
}

// Classifier computes Status for a subject id using the catalog facade.
type Classifier struct {
	catalog *catalog.Facade
	now     func() time.Time
}

// New builds a Classifier over an already-constructed catalog Facade.
func New(c *catalog.Facade) *Classifier {
	return &Classifier{catalog: c, now: time.Now}
}

// Calculate implements calc_subject_status: it fetches the subject, the
// calendar, and (lazily) the first and last episode pages to discover the
// latest air date, then runs the state machine below.
func (c *Classifier) Calculate(ctx context.Context, id int) (*Status, error) {
	var subject *catalog.Subject
	var days []catalog.CalendarDay

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := c.catalog.FetchSubject(gctx, id)
		if err != nil {
			return fmt.Errorf("fetch subject %d: %w", id, err)
		}
		subject = s
		return nil
	})
	g.Go(func() error {
		d, err := c.catalog.FetchCalendar(gctx)
		if err != nil {
			return fmt.Errorf("fetch calendar: %w", err)
		}
		days = d
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	calendarOnAir := false
	for _, day := range days {
		for _, item := range day.Items {
			if item.ID == id {
				calendarOnAir = true
			}
		}
	}

	currentEps := subject.TotalEpisodes

	first, err := c.catalog.FetchEpisodes(ctx, id, 0, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch first episode page for %d: %w", id, err)
	}
	if currentEps == 0 {
		currentEps = first.Total
	}

	var latestAirdate string
	if first.Total > 0 {
		last, err := c.catalog.FetchEpisodes(ctx, id, 0, 1, first.Total-1)
		if err != nil {
			return nil, fmt.Errorf("fetch last episode page for %d: %w", id, err)
		}
		latestAirdate = latestEpisodeAirdate(last.Data)
	}

	today := c.now().UTC()
	windowStart := today.AddDate(0, 0, -recentWindowDays)

	firstAir, firstAirOK := parseDate(subject.Date)
	latestAir, latestAirOK := parseDate(latestAirdate)
	finished := subject.Eps > 0 && currentEps >= subject.Eps

	code := determineCode(firstAir, firstAirOK, latestAir, latestAirOK, calendarOnAir, finished, today, windowStart)

	return &Status{
		Code:          code,
		FirstAirDate:  subject.Date,
		LatestAirdate: latestAirdate,
		ExpectedEps:   subject.Eps,
		CurrentEps:    currentEps,
		CalendarOnAir: calendarOnAir,
		Reason:        statusReason(code, calendarOnAir),
	}, nil
}

func latestEpisodeAirdate(episodes []catalog.Episode) string {
	var best *catalog.Episode
	for i := range episodes {
		ep := &episodes[i]
		if ep.Type != 0 {
			continue
		}
		if best == nil || ep.Sort > best.Sort {
			best = ep
		}
	}
	if best == nil || best.Airdate == "" {
		return ""
	}
	return best.Airdate
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func withinWindow(t time.Time, ok bool, windowStart time.Time) bool {
	if !ok {
		return false
	}
	return !t.Before(windowStart)
}

// determineCode ports status.rs's determine_code: a subject not yet aired is
// PreAir; a subject the current week's calendar lists is Airing regardless of
// episode recency; a subject whose episode count has reached the expected
// total is Finished; a subject with a recent episode (within the window) is
// Airing; otherwise a subject with a known first-air date is OnHiatus, and
// one without is Unknown.
func determineCode(firstAir time.Time, firstAirOK bool, latestAir time.Time, latestAirOK bool, calendarOnAir, finished bool, today, windowStart time.Time) Code {
	if firstAirOK && firstAir.After(today) {
		return PreAir
	}
	if calendarOnAir {
		return Airing
	}
	if finished {
		return Finished
	}
	if withinWindow(latestAir, latestAirOK, windowStart) {
		return Airing
	}
	if firstAirOK {
		return OnHiatus
	}
	return Unknown
}

func statusReason(code Code, calendarOnAir bool) string {
	switch code {
	case PreAir:
		return "未开播"
	case Airing:
		if calendarOnAir {
			return "当周日历在播"
		}
		return "最近三周有更新"
	case Finished:
		return "集数达成"
	case OnHiatus:
		return "超过三周未更新"
	default:
		return "信息不足"
	}
}
