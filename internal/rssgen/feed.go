// Package rssgen builds the dynamic podcast RSS 2.0 feed (§4.9) directly
// from published Digest rows — no static file is ever materialized. It
// uses encoding/xml's struct-tag marshaling, the same approach the
// reference corpus uses for RSS parsing (gofeed), inverted for emission.
package rssgen

import (
	"context"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/geraldfingburke/dailydigest/internal/digest"
)

// ChannelInfo holds the channel-level metadata drawn from settings
// (§4.9 "Channel metadata").
type ChannelInfo struct {
	Title       string
	Description string
	OwnerEmail  string
	ImageURL    string
	SelfURL     string
	// DisplayLocation governs the pubDate rendering; every user-visible
	// timestamp in the feed follows display_timezone, not the server's UTC.
	DisplayLocation *time.Location
}

const itunesNS = "http://www.itunes.com/dtds/podcast-1.0.dtd"
const podcastCategory = "Technology"

type rssRoot struct {
	XMLName xml.Name `xml:"rss"`
	Version string   `xml:"version,attr"`
	ItunesNS string  `xml:"xmlns:itunes,attr"`
	Channel channel  `xml:"channel"`
}

type channel struct {
	Title         string        `xml:"title"`
	Description   string        `xml:"description"`
	Link          string        `xml:"link"`
	Language      string        `xml:"language"`
	ItunesOwner   itunesOwner   `xml:"itunes:owner"`
	ItunesImage   itunesImage   `xml:"itunes:image"`
	ItunesCategory itunesCategory `xml:"itunes:category"`
	Items         []item        `xml:"item"`
}

type itunesOwner struct {
	Email string `xml:"itunes:email"`
}

type itunesImage struct {
	Href string `xml:"href,attr"`
}

type itunesCategory struct {
	Text string `xml:"text,attr"`
}

type item struct {
	Title         string    `xml:"title"`
	Description   string    `xml:"description"`
	Enclosure     enclosure `xml:"enclosure"`
	GUID          guid      `xml:"guid"`
	PubDate       string    `xml:"pubDate"`
	ItunesDuration string   `xml:"itunes:duration"`
}

type enclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int64  `xml:"length,attr"`
}

type guid struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Generator builds the feed document on demand from the Digest repository.
type Generator struct {
	Digests *digest.Store
	Channel ChannelInfo
}

func NewGenerator(digests *digest.Store, info ChannelInfo) *Generator {
	return &Generator{Digests: digests, Channel: info}
}

// Build queries every published digest and renders the full RSS document.
func (g *Generator) Build(ctx context.Context) ([]byte, error) {
	published, err := g.Digests.ListPublished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published digests: %w", err)
	}

	root := rssRoot{
		Version:  "2.0",
		ItunesNS: itunesNS,
		Channel: channel{
			Title:          g.Channel.Title,
			Description:    g.Channel.Description,
			Link:           g.Channel.SelfURL,
			Language:       "en-us",
			ItunesOwner:    itunesOwner{Email: g.Channel.OwnerEmail},
			ItunesImage:    itunesImage{Href: g.Channel.ImageURL},
			ItunesCategory: itunesCategory{Text: podcastCategory},
		},
	}

	for _, d := range published {
		title := deterministicTitle(d.Topic, d.DigestDate)
		if d.MP3Title != nil && *d.MP3Title != "" {
			title = *d.MP3Title
		}
		summary := "Daily digest for " + d.Topic + "."
		if d.MP3Summary != nil && *d.MP3Summary != "" {
			summary = *d.MP3Summary
		}
		var length int64
		if d.MP3SizeBytes != nil {
			length = *d.MP3SizeBytes
		}
		loc := g.Channel.DisplayLocation
		if loc == nil {
			loc = time.UTC
		}
		var pubDate string
		if d.PublishedAt != nil {
			pubDate = d.PublishedAt.In(loc).Format(time.RFC1123Z)
		}
		var duration string
		if d.MP3DurationSeconds != nil {
			duration = formatHHMMSS(*d.MP3DurationSeconds)
		}
		var url string
		if d.ArtifactURL != nil {
			url = *d.ArtifactURL
		}

		root.Channel.Items = append(root.Channel.Items, item{
			Title:          title,
			Description:    summary,
			Enclosure:      enclosure{URL: url, Type: "audio/mpeg", Length: length},
			GUID:           guid{IsPermaLink: "false", Value: fmt.Sprintf("%s-%s", d.TopicSlug(), d.DigestDate.Format("2006-01-02"))},
			PubDate:        pubDate,
			ItunesDuration: duration,
		})
	}

	out, err := xml.MarshalIndent(root, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal rss feed: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

func deterministicTitle(topic string, digestDate time.Time) string {
	return fmt.Sprintf("%s Daily Digest - %s", topic, digestDate.Format("January 2, 2006"))
}

func formatHHMMSS(totalSeconds int) string {
	h := totalSeconds / 3600
	m := (totalSeconds % 3600) / 60
	s := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
