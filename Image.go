package main

import (
	"context"
	"strings"
)

// Image is a single stock photo as returned by a source adapter. Images are
// treated as immutable once returned.
type Image struct {
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Alt       string `json:"alt"`
	Credit    string `json:"credit"`
	Source    string `json:"source"`
}

// imageKey is the deduplication identity of an Image.
type imageKey struct {
	url    string
	width  int
	height int
}

func (img Image) key() imageKey {
	return imageKey{url: img.URL, width: img.Width, height: img.Height}
}

type ImageSearcher interface {
	Search(ctx context.Context, primary, secondary string, count int) ([]Image, error)
	Type() string
}

// CuratedSearcher is implemented by sources that offer an editor-curated feed.
type CuratedSearcher interface {
	Curated(ctx context.Context, count int) ([]Image, error)
}

func searchQuery(primary, secondary string) string {
	return strings.TrimSpace(primary + " " + secondary)
}

func credit(artist, source string) string {
	if artist == "" {
		return "Photo via " + source
	}
	return "Photo by " + artist + " on " + source
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
