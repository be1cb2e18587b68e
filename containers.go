package main

import (
	"context"
	"fmt"
	"strings"
)

type ContainerKind string

const (
	KindDynamic ContainerKind = "dynamic"
	KindHero    ContainerKind = "hero"
	KindGallery ContainerKind = "gallery"
)

const (
	featuredCategory      = "featured"
	galleryFeaturedCount  = 12
	heroBackgroundOverlay = "linear-gradient(rgba(0,0,0,0.5), rgba(0,0,0,0.5))"
)

// ContainerRequest describes one slot on a page that wants imagery.
type ContainerRequest struct {
	ID        string        `json:"id"`
	Kind      ContainerKind `json:"kind"`
	Category  string        `json:"category"`
	Layout    string        `json:"layout"`
	Count     int           `json:"count"`
	BelowFold bool          `json:"belowFold"`
}

// HeroBackground is a full-bleed background image for a hero container.
type HeroBackground struct {
	URL      string `json:"url"`
	Overlay  string `json:"overlay"`
	Size     string `json:"size"`
	Position string `json:"position"`
	Style    string `json:"style"`
}

// CSS returns the background declarations for the hero element.
func (h HeroBackground) CSS() string {
	return fmt.Sprintf("background-image: %s, url(%s); background-size: %s; background-position: %s;",
		h.Overlay, cssString(h.URL), h.Size, h.Position)
}

// cssString quotes s as a CSS string. Characters that would end or break the
// string become hex escapes; non-ASCII is written as is.
func cssString(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"' || r == '\\' || r < 0x20 || r == 0x7f:
			fmt.Fprintf(&sb, "\\%x ", r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}

type ContainerResult struct {
	ID        string          `json:"id"`
	Kind      ContainerKind   `json:"kind"`
	Category  string          `json:"category"`
	BelowFold bool            `json:"belowFold,omitempty"`
	Images    []Image         `json:"images"`
	Rendering *Rendering      `json:"rendering,omitempty"`
	Hero      *HeroBackground `json:"hero,omitempty"`
	HTML      string          `json:"html,omitempty"`
}

// LoadContainer fetches and lays out imagery for a single container on a page
// of the given theme.
func (im *Imagery) LoadContainer(ctx context.Context, theme string, req ContainerRequest) ContainerResult {
	res := ContainerResult{ID: req.ID, Kind: req.Kind, Category: req.Category, BelowFold: req.BelowFold}

	switch req.Kind {
	case KindHero:
		category := firstNonEmpty(req.Category, "homes")
		res.Category = category
		res.Images = im.LoadCategoryImages(ctx, theme, category, []string{category, "hero"})
		if len(res.Images) > 0 {
			res.Hero = &HeroBackground{
				URL:      res.Images[0].URL,
				Overlay:  heroBackgroundOverlay,
				Size:     "cover",
				Position: "center",
			}
			res.Hero.Style = res.Hero.CSS()
		}
		return res

	case KindGallery:
		category := firstNonEmpty(req.Category, featuredCategory)
		res.Category = category
		if category == featuredCategory {
			res.Images = im.FeaturedImages(ctx, galleryFeaturedCount)
		} else {
			res.Images = im.LoadCategoryImages(ctx, theme, category, []string{category})
		}
		layout := LayoutGrid
		if req.Layout != "" {
			layout = ParseLayout(req.Layout)
		}
		r := Render(res.Images, layout, "gallery")
		res.Rendering = &r
		return res
	}

	res.Kind = KindDynamic
	switch {
	case req.Category == featuredCategory:
		count := req.Count
		if count <= 0 {
			count = 1
		}
		res.Images = im.FeaturedImages(ctx, count)
	case req.Category == "hero":
		keywords, ok := ThemeFor(theme).Keywords("hero")
		if !ok {
			keywords = []string{"modern home"}
		}
		res.Images = im.LoadCategoryImages(ctx, theme, req.Category, keywords)
	default:
		res.Images = im.LoadCategoryImages(ctx, theme, req.Category, []string{req.Category})
	}
	r := Render(res.Images, ParseLayout(req.Layout), req.Category)
	res.Rendering = &r
	return res
}

// PageRequest lists the imagery containers of a page explicitly.
type PageRequest struct {
	PageContext
	Containers []ContainerRequest `json:"containers"`
}

type PageResult struct {
	Theme      string            `json:"theme"`
	Containers []ContainerResult `json:"containers"`
	Preload    []string          `json:"preload"`
}

// LoadPage resolves the page theme and loads each requested container in order.
// Containers without an ID are named after their kind and position.
func (im *Imagery) LoadPage(ctx context.Context, page PageRequest) PageResult {
	theme := ResolveTheme(page.PageContext)
	result := PageResult{Theme: theme, Containers: make([]ContainerResult, 0, len(page.Containers))}
	for i, req := range page.Containers {
		if req.Kind == "" {
			req.Kind = KindDynamic
		}
		if req.ID == "" {
			req.ID = fmt.Sprintf("%s_%d", req.Kind, i)
		}
		if req.Kind != KindHero && req.Kind != KindGallery && strings.TrimSpace(req.Category) == "" {
			continue
		}
		result.Containers = append(result.Containers, im.LoadContainer(ctx, theme, req))
	}
	result.Preload = PreloadURLs(result.Containers)
	return result
}

// PreloadURLs collects the full size image URLs worth preloading: hero
// backgrounds and every container not flagged below the fold.
func PreloadURLs(results []ContainerResult) []string {
	seen := map[string]bool{}
	urls := []string{}
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}
	for _, res := range results {
		switch {
		case res.Hero != nil:
			add(res.Hero.URL)
		case res.Kind == KindDynamic && !res.BelowFold && res.Rendering != nil:
			for _, item := range res.Rendering.Items {
				add(item.URL)
			}
		}
	}
	return urls
}
