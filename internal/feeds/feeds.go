// Package feeds fetches and parses podcast RSS documents into episode
// descriptors. This file is the parsing layer and touches no database; the
// Feed repository lives in store.go and the Discovery phase, which upserts
// the parsed episodes, in phase.go.
//
// # Data Quality Handling
//
// RSS in the wild is inconsistent. This package is defensive: a feed
// missing an enclosure, a malformed publish date, or an empty guid causes
// that single item to be skipped, never the whole feed.
package feeds

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"
)

// EpisodeDescriptor is one candidate episode extracted from a feed, not yet
// written to the State Store.
type EpisodeDescriptor struct {
	GUID            string
	Title           string
	AudioURL        string
	DurationSeconds int
	PublishedAt     time.Time
}

// Service fetches and parses RSS feeds via gofeed.
type Service struct {
	parser *gofeed.Parser
}

func NewService() *Service {
	return &Service{parser: gofeed.NewParser()}
}

// FetchFeed retrieves and parses the RSS document at feedURL.
func (s *Service) FetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}
	return feed, nil
}

// ExtractEpisodes converts a parsed feed's items into descriptors, skipping
// any item without a guid or an audio enclosure, and any item published
// before sinceCutoff.
func ExtractEpisodes(feed *gofeed.Feed, sinceCutoff time.Time) []EpisodeDescriptor {
	var out []EpisodeDescriptor
	for _, item := range feed.Items {
		if item.GUID == "" {
			continue
		}

		audioURL, durationSeconds := audioEnclosure(item)
		if audioURL == "" {
			continue
		}

		published := item.PublishedParsed
		if published == nil {
			continue
		}
		if published.Before(sinceCutoff) {
			continue
		}

		out = append(out, EpisodeDescriptor{
			GUID:            item.GUID,
			Title:           item.Title,
			AudioURL:        audioURL,
			DurationSeconds: durationSeconds,
			PublishedAt:     *published,
		})
	}
	return out
}

// audioEnclosure finds the first audio/* enclosure on the item and, when
// present, the iTunes duration parsed into seconds.
func audioEnclosure(item *gofeed.Item) (url string, durationSeconds int) {
	for _, enc := range item.Enclosures {
		if len(enc.Type) >= 5 && enc.Type[:5] == "audio" {
			url = enc.URL
			break
		}
	}
	if url == "" && len(item.Enclosures) > 0 {
		url = item.Enclosures[0].URL
	}
	if item.ITunesExt != nil {
		durationSeconds = parseITunesDuration(item.ITunesExt.Duration)
	}
	return url, durationSeconds
}

// parseITunesDuration accepts either a bare seconds count ("754") or
// HH:MM:SS / MM:SS ("01:02:34", "12:34"), returning 0 if unparseable rather
// than failing the whole item over a cosmetic field.
func parseITunesDuration(raw string) int {
	if raw == "" {
		return 0
	}
	var parts [3]int
	n := 0
	cur := 0
	any := false
	for _, r := range raw {
		if r == ':' {
			if n >= 3 {
				return 0
			}
			parts[n] = cur
			n++
			cur = 0
			continue
		}
		if r < '0' || r > '9' {
			return 0
		}
		cur = cur*10 + int(r-'0')
		any = true
	}
	if !any {
		return 0
	}
	parts[n] = cur
	n++

	switch n {
	case 1:
		return parts[0]
	case 2:
		return parts[0]*60 + parts[1]
	case 3:
		return parts[0]*3600 + parts[1]*60 + parts[2]
	default:
		return 0
	}
}
