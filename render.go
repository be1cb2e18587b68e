package main

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
)

type Layout string

const (
	LayoutSingle  Layout = "single"
	LayoutGrid    Layout = "grid"
	LayoutSlider  Layout = "slider"
	LayoutMasonry Layout = "masonry"
)

// ParseLayout maps a layout name to a Layout, defaulting to single.
func ParseLayout(s string) Layout {
	switch l := Layout(strings.ToLower(strings.TrimSpace(s))); l {
	case LayoutGrid, LayoutSlider, LayoutMasonry:
		return l
	}
	return LayoutSingle
}

const NoImagesPlaceholder = "No images available"

type Badge struct {
	Label string `json:"label"`
	Class string `json:"class"`
}

type RenderItem struct {
	URL       string `json:"url"`
	Thumbnail string `json:"thumbnail"`
	Alt       string `json:"alt"`
	Caption   string `json:"caption"`
	DelayMS   int    `json:"delayMs,omitempty"`
	Height    string `json:"height,omitempty"`
}

type SliderDot struct {
	Index  int  `json:"index"`
	Active bool `json:"active"`
}

// Rendering is the displayable structure produced for one container. It does
// not depend on any presentation technology; RenderHTML is one consumer.
type Rendering struct {
	Layout      Layout       `json:"layout"`
	Category    string       `json:"category"`
	Class       string       `json:"class"`
	Columns     int          `json:"columns,omitempty"`
	Title       string       `json:"title,omitempty"`
	Badge       *Badge       `json:"badge,omitempty"`
	Empty       bool         `json:"empty"`
	Placeholder string       `json:"placeholder,omitempty"`
	Items       []RenderItem `json:"items"`
	Dots        []SliderDot  `json:"dots,omitempty"`
}

var categoryTitles = map[string]string{
	"homes":      "Beautiful Homes",
	"veterans":   "Veterans First",
	"family":     "Family Focused",
	"renovation": "Expert Renovations",
	"hero":       "Welcome to P4C",
}

func categoryTitle(category string) string {
	if t, ok := categoryTitles[category]; ok {
		return t
	}
	return "Amazing Properties"
}

func categoryBadge(category string) *Badge {
	switch category {
	case "veterans":
		return &Badge{Label: "Veterans", Class: "bg-green-600"}
	case "family":
		return &Badge{Label: "Family", Class: "bg-blue-600"}
	}
	return nil
}

// gridColumns is the grid density table: 6+ images use three columns, 4+ two.
func gridColumns(n int) int {
	switch {
	case n >= 6:
		return 3
	case n >= 4:
		return 2
	}
	return 1
}

var gridClasses = map[int]string{
	1: "grid grid-cols-1 gap-4",
	2: "grid grid-cols-1 sm:grid-cols-2 gap-4",
	3: "grid grid-cols-1 sm:grid-cols-2 lg:grid-cols-3 gap-4",
}

var masonryHeights = []string{"200px", "300px", "250px", "350px", "280px"}

func renderItem(img Image) RenderItem {
	return RenderItem{
		URL:       img.URL,
		Thumbnail: firstNonEmpty(img.Thumbnail, img.URL),
		Alt:       img.Alt,
		Caption:   img.Credit,
	}
}

// Render lays images out for category. It is a pure function of its inputs.
func Render(images []Image, layout Layout, category string) Rendering {
	layout = ParseLayout(string(layout))
	r := Rendering{
		Layout:   layout,
		Category: category,
		Badge:    categoryBadge(category),
		Items:    []RenderItem{},
	}
	if len(images) == 0 {
		r.Empty = true
		r.Class = "no-images"
		r.Placeholder = NoImagesPlaceholder
		r.Badge = nil
		return r
	}

	switch layout {
	case LayoutGrid:
		r.Columns = gridColumns(len(images))
		r.Class = gridClasses[r.Columns] + " dynamic-gallery"
		for i, img := range images {
			item := renderItem(img)
			item.DelayMS = i * 100
			r.Items = append(r.Items, item)
		}
	case LayoutSlider:
		r.Class = "dynamic-slider relative"
		for i, img := range images {
			r.Items = append(r.Items, renderItem(img))
			r.Dots = append(r.Dots, SliderDot{Index: i, Active: i == 0})
		}
	case LayoutMasonry:
		r.Class = "dynamic-masonry columns-1 sm:columns-2 lg:columns-3 gap-4 space-y-4"
		for i, img := range images {
			item := renderItem(img)
			item.DelayMS = i * 50
			item.Height = masonryHeights[i%len(masonryHeights)]
			r.Items = append(r.Items, item)
		}
	default:
		r.Class = "relative overflow-hidden rounded-lg shadow-2xl"
		r.Title = categoryTitle(category)
		r.Items = append(r.Items, renderItem(images[0]))
	}
	return r
}

//go:embed templates/*.html
var templateFS embed.FS

var htmlTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// RenderHTML writes r as an HTML fragment.
func RenderHTML(w io.Writer, r Rendering) error {
	name := string(r.Layout)
	if r.Empty {
		name = "empty"
	}
	if htmlTemplates.Lookup(name) == nil {
		name = string(LayoutSingle)
	}
	if err := htmlTemplates.ExecuteTemplate(w, name, r); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	return nil
}

func RenderHTMLString(r Rendering) (string, error) {
	var sb strings.Builder
	if err := RenderHTML(&sb, r); err != nil {
		return "", err
	}
	return sb.String(), nil
}
