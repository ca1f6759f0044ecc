// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package mikan is the Mikan facade (§4.5): candidate search and subject
// resolution over scraped HTML, and cached/coalesced RSS resource listing.
package mikan

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/autobrr/animefun/internal/cachedapi"
	"github.com/autobrr/animefun/internal/httpgateway"
	"github.com/autobrr/animefun/pkg/httphelpers"
	"github.com/autobrr/animefun/pkg/titles"
)

const rssTTL = time.Hour

var (
	bangumiHrefRe = regexp.MustCompile(`/Home/Bangumi/(\d+)`)
	bgmSubjectRe  = regexp.MustCompile(`(?:bgm\.tv|bangumi\.tv|chii\.in)/subject/(\d+)`)
)

// ResourceItem is a single parsed RSS entry (§3 MikanResourceItem).
type ResourceItem struct {
	Title        string `json:"title"`
	PageURL      string `json:"page_url"`
	TorrentURL   string `json:"torrent_url,omitempty"`
	Magnet       string `json:"magnet,omitempty"`
	PubDate      string `json:"pub_date,omitempty"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
	Group        string `json:"group,omitempty"`
	Episode      int    `json:"episode,omitempty"`
	EpisodeRange string `json:"episode_range,omitempty"`
	Resolution   int    `json:"resolution,omitempty"`
	SubtitleLang string `json:"subtitle_lang,omitempty"`
	SubtitleType string `json:"subtitle_type,omitempty"`
}

// Facade exposes the Mikan operations over a host (e.g. https://mikanani.me).
// HTML scraping (search/resolve) bypasses the cache store entirely and goes
// straight through the gateway: those pages change whenever a new episode's
// resource list appears, so caching them would just reintroduce staleness
// the RSS path already avoids via conditional revalidation.
type Facade struct {
	adapter *cachedapi.Adapter
	gw      *httpgateway.Gateway
	host    string
	titles  *titles.Parser
}

// New builds a Facade pointed at host.
func New(adapter *cachedapi.Adapter, gw *httpgateway.Gateway, host string) *Facade {
	return &Facade{adapter: adapter, gw: gw, host: strings.TrimSuffix(host, "/"), titles: titles.NewParser()}
}

// SearchCandidates normalizes name per the Mikan search rules, scrapes the
// search results page, and returns every distinct /Home/Bangumi/{id} found.
func (f *Facade) SearchCandidates(ctx context.Context, name, nameCN string) ([]int, error) {
	query := NameForSearch(name, nameCN)
	if query == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.host+"/Home/Search?searchstr="+url.QueryEscape(query), nil)
	if err != nil {
		return nil, err
	}
	body, err := f.doUncached(req)
	if err != nil {
		return nil, err
	}

	hrefs := collectHrefs(body)
	seen := make(map[int]bool)
	var ids []int
	for _, href := range hrefs {
		m := bangumiHrefRe.FindStringSubmatch(href)
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// ResolveSubject fetches a Mikan bangumi page and returns the first linked
// Bangumi subject id, if any.
func (f *Facade) ResolveSubject(ctx context.Context, mikanID int) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/Home/Bangumi/%d", f.host, mikanID), nil)
	if err != nil {
		return 0, false, err
	}
	body, err := f.doUncached(req)
	if err != nil {
		return 0, false, err
	}

	for _, href := range collectHrefs(body) {
		if m := bgmSubjectRe.FindStringSubmatch(href); m != nil {
			id, err := strconv.Atoi(m[1])
			if err == nil {
				return id, true, nil
			}
		}
	}
	return 0, false, nil
}

// FetchRSS returns the parsed resource list for a Mikan bangumi id, using
// the cached/coalesced adapter path since concurrent callers (preheat sweep
// and an on-demand UI query) frequently race on the same feed.
func (f *Facade) FetchRSS(ctx context.Context, mikanID int) ([]ResourceItem, error) {
	key := fmt.Sprintf("mikan:rss:%d", mikanID)
	build := func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/RSS/Bangumi?bangumiId=%d", f.host, mikanID), nil)
	}

	body, err := f.adapter.FetchBytesCoalesced(ctx, key, build, rssTTL)
	if err != nil {
		return nil, err
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decode mikan rss: %w", err)
	}

	items := make([]ResourceItem, 0, len(feed.Channel.Items))
	for _, it := range feed.Channel.Items {
		parsed := f.titles.Parse(it.Title, it.Description)
		items = append(items, ResourceItem{
			Title:        it.Title,
			PageURL:      it.Link,
			TorrentURL:   it.Enclosure.URL,
			PubDate:      it.PubDate,
			SizeBytes:    it.Enclosure.Length,
			Group:        parsed.Group,
			Episode:      parsed.Episode,
			EpisodeRange: parsed.EpisodeRange,
			Resolution:   parsed.Resolution,
			SubtitleLang: parsed.SubtitleLang,
			SubtitleType: parsed.SubtitleType,
		})
	}
	return items, nil
}

func (f *Facade) doUncached(req *http.Request) ([]byte, error) {
	resp, err := f.gw.Do(req)
	if err != nil {
		return nil, err
	}
	defer httphelpers.DrainAndClose(resp)
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("mikan: unexpected status %d for %s", resp.StatusCode, req.URL)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func collectHrefs(body []byte) []string {
	var hrefs []string
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return hrefs
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := tokenizer.Token()
			if tok.Data != "a" {
				continue
			}
			for _, attr := range tok.Attr {
				if attr.Key == "href" {
					hrefs = append(hrefs, attr.Val)
				}
			}
		}
	}
}

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	Enclosure   struct {
		URL    string `xml:"url,attr"`
		Length int64  `xml:"length,attr"`
	} `xml:"enclosure"`
}
