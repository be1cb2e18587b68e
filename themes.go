package main

import "strings"

const DefaultTheme = "homepage"

// Category is one content slot of a theme with its search keywords, most
// specific first.
type Category struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
}

// Theme is a named bundle of keyword sets used to bias image search for a
// page. Categories keep their declaration order.
type Theme struct {
	Name       string     `json:"name"`
	Categories []Category `json:"categories"`
}

// Keywords returns the keyword list of category.
func (t Theme) Keywords(category string) ([]string, bool) {
	for _, c := range t.Categories {
		if c.Name == category {
			return c.Keywords, true
		}
	}
	return nil, false
}

var themes = map[string]Theme{
	"homepage": {Name: "homepage", Categories: []Category{
		{"hero", []string{"homes", "beautiful modern house", "family friendly home"}},
		{"gallery", []string{"homes", "modern housing", "residential areas"}},
		{"testimonials", []string{"family", "happy family", "community housing"}},
		{"cta", []string{"affordable", "section 8 housing", "rental properties"}},
	}},
	"about": {Name: "about", Categories: []Category{
		{"hero", []string{"veterans", "american flag home", "patriotic housing"}},
		{"team", []string{"military veterans", "professional team", "community leaders"}},
		{"impact", []string{"housing transformation", "property renovation", "community development"}},
		{"values", []string{"american values", "patriotism", "honor integrity"}},
	}},
	"projects": {Name: "projects", Categories: []Category{
		{"portfolio", []string{"renovation", "home improvement", "property development"}},
		{"before_after", []string{"construction work", "building restoration", "renovation"}},
		{"showcase", []string{"luxury homes", "modern architecture", "property showcase"}},
	}},
	"resources": {Name: "resources", Categories: []Category{
		{"veterans", []string{"va housing", "veterans benefits", "military family housing"}},
		{"guides", []string{"financial planning", "housing guide", "property investment"}},
		{"calculators", []string{"mortgage calculator", "housing budget", "financial planning"}},
	}},
	"insights": {Name: "insights", Categories: []Category{
		{"market", []string{"real estate market", "housing trends", "property investment"}},
		{"veterans", []string{"veteran housing policy", "va loans", "veterans housing rights"}},
		{"finance", []string{"mortgage planning", "home financing", "property loans"}},
	}},
	"veterans": {Name: "veterans", Categories: []Category{
		{"hero", []string{"veterans", "military family home", "american flag home"}},
		{"gallery", []string{"military family", "veterans housing", "patriotic community"}},
		{"testimonials", []string{"veteran family", "military community", "happy homeowners"}},
	}},
	"family": {Name: "family", Categories: []Category{
		{"hero", []string{"family", "happy family home", "family friendly home"}},
		{"gallery", []string{"family home", "children playing", "backyard"}},
		{"testimonials", []string{"happy family", "parents and children", "community housing"}},
	}},
}

// ThemeFor returns the named theme, or the homepage theme when name is unknown.
func ThemeFor(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[DefaultTheme]
}

// PageContext is what the resolver knows about the page being decorated.
type PageContext struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type pathRule struct {
	fragment string
	theme    string
}

type contentRule struct {
	terms []string
	theme string
}

// Checked in order, first match wins.
var pathRules = []pathRule{
	{"about", "about"},
	{"projects", "projects"},
	{"resources", "resources"},
	{"insights", "insights"},
}

var contentRules = []contentRule{
	{[]string{"veteran", "military"}, "veterans"},
	{[]string{"family", "children"}, "family"},
}

// ResolveTheme maps a page to a theme name: URL path first, then domain terms
// in the page text, then the default theme. It always returns a defined theme.
func ResolveTheme(page PageContext) string {
	for _, rule := range pathRules {
		if strings.Contains(page.Path, rule.fragment) {
			return rule.theme
		}
	}

	content := strings.ToLower(page.Content)
	for _, rule := range contentRules {
		for _, term := range rule.terms {
			if strings.Contains(content, term) {
				return rule.theme
			}
		}
	}
	return DefaultTheme
}

// CategoryKeywords returns the theme's keywords for category, or the category
// name itself when the theme does not define it.
func CategoryKeywords(theme, category string) []string {
	if kw, ok := ThemeFor(theme).Keywords(category); ok {
		return kw
	}
	return []string{category}
}
