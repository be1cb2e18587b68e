package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type Settings struct {
	// Expiry is how long a category entry is served without re-fetching.
	Expiry time.Duration
	// MaxImages bounds the images kept per category.
	MaxImages int
	// PerSourceCount is the count requested from each source.
	PerSourceCount int
	// CallTimeout bounds each individual source call.
	CallTimeout time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Expiry:         time.Hour,
		MaxImages:      8,
		PerSourceCount: 4,
		CallTimeout:    8 * time.Second,
	}
}

type cacheEntry struct {
	images    []Image
	timestamp time.Time
}

// Imagery aggregates image sources into per (theme, category) cached sets.
type Imagery struct {
	searchers []ImageSearcher
	settings  Settings
	now       func() time.Time
	log       *zap.Logger

	mu       sync.Mutex
	rnd      *rand.Rand
	entries  map[categoryKey]cacheEntry
	featured []Image

	flight singleflight.Group
}

type Option func(*Imagery)

func WithClock(now func() time.Time) Option {
	return func(im *Imagery) { im.now = now }
}

func WithRand(rnd *rand.Rand) Option {
	return func(im *Imagery) { im.rnd = rnd }
}

func WithSettings(s Settings) Option {
	return func(im *Imagery) { im.settings = s }
}

func WithLogger(log *zap.Logger) Option {
	return func(im *Imagery) { im.log = log }
}

func NewImagery(searchers []ImageSearcher, opts ...Option) *Imagery {
	im := &Imagery{
		searchers: searchers,
		settings:  DefaultSettings(),
		now:       time.Now,
		log:       zap.NewNop(),
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		entries:   make(map[categoryKey]cacheEntry),
	}
	for _, opt := range opts {
		opt(im)
	}
	im.log = im.log.Named("imagery")
	return im
}

type categoryKey struct {
	theme    string
	category string
}

// String is the singleflight key; quoting keeps distinct pairs distinct.
func (k categoryKey) String() string {
	return strconv.Quote(k.theme) + strconv.Quote(k.category)
}

// LoadCategoryImages returns up to MaxImages deduplicated images for the
// category. A fresh cache entry is returned without contacting any source.
// Source failures only shrink the result; an empty slice means no images are
// available.
func (im *Imagery) LoadCategoryImages(ctx context.Context, theme, category string, keywords []string) []Image {
	key := categoryKey{theme: theme, category: category}
	if images, ok := im.cached(key); ok {
		categoryLookups.WithLabelValues("hit").Inc()
		return images
	}
	categoryLookups.WithLabelValues("miss").Inc()

	// Concurrent misses for one key share a single aggregation. It must not
	// depend on whichever caller started it; CallTimeout still bounds it.
	shared := context.WithoutCancel(ctx)
	ch := im.flight.DoChan(key.String(), func() (interface{}, error) {
		if images, ok := im.cached(key); ok {
			return images, nil
		}
		images := im.aggregate(shared, keywords)
		if len(images) == 0 {
			im.log.Info("No images available", zap.String("theme", theme), zap.String("category", category))
			return images, nil
		}
		im.mu.Lock()
		im.entries[key] = cacheEntry{images: images, timestamp: im.now()}
		im.mu.Unlock()
		return images, nil
	})

	select {
	case res := <-ch:
		return cloneImages(res.Val.([]Image))
	case <-ctx.Done():
		return []Image{}
	}
}

func (im *Imagery) cached(key categoryKey) ([]Image, bool) {
	im.mu.Lock()
	defer im.mu.Unlock()
	entry, ok := im.entries[key]
	if !ok || im.now().Sub(entry.timestamp) >= im.settings.Expiry {
		return nil, false
	}
	return cloneImages(entry.images), true
}

func (im *Imagery) aggregate(ctx context.Context, keywords []string) []Image {
	start := time.Now()
	defer func() { aggregationDuration.Observe(time.Since(start).Seconds()) }()

	var primary, secondary string
	if len(keywords) > 0 {
		primary = keywords[0]
	}
	if len(keywords) > 1 {
		secondary = keywords[1]
	}

	results := make([][]Image, len(im.searchers))
	var g errgroup.Group
	for i, s := range im.searchers {
		g.Go(func() error {
			results[i] = im.call(ctx, s.Type(), func(ctx context.Context) ([]Image, error) {
				return s.Search(ctx, primary, secondary, im.settings.PerSourceCount)
			})
			return nil
		})
	}
	_ = g.Wait()

	var all []Image
	for _, r := range results {
		all = append(all, r...)
	}
	unique := im.shuffleAndDeduplicate(all)
	if len(unique) > im.settings.MaxImages {
		unique = unique[:im.settings.MaxImages]
	}
	return unique
}

type callResult struct {
	images []Image
	err    error
}

// call runs fn under CallTimeout and turns every failure, including a panic or
// a source that ignores its context, into an empty result.
func (im *Imagery) call(ctx context.Context, source string, fn func(context.Context) ([]Image, error)) []Image {
	callCtx, cancel := context.WithTimeout(ctx, im.settings.CallTimeout)
	defer cancel()

	done := make(chan callResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- callResult{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		images, err := fn(callCtx)
		done <- callResult{images: images, err: err}
	}()

	var res callResult
	select {
	case res = <-done:
	case <-callCtx.Done():
		res.err = callCtx.Err()
	}

	switch {
	case errors.Is(res.err, context.DeadlineExceeded):
		adapterCalls.WithLabelValues(source, "timeout").Inc()
		im.log.Warn("Source timed out", zap.String("source", source), zap.Duration("timeout", im.settings.CallTimeout))
		return nil
	case res.err != nil:
		adapterCalls.WithLabelValues(source, "error").Inc()
		im.log.Warn("Source failed", zap.String("source", source), zap.Error(res.err))
		return nil
	}
	adapterCalls.WithLabelValues(source, "ok").Inc()
	return res.images
}

// shuffleAndDeduplicate shuffles before dropping duplicates, so which copy of
// a duplicated image survives is random rather than tied to source order.
func (im *Imagery) shuffleAndDeduplicate(images []Image) []Image {
	shuffled := cloneImages(images)
	im.mu.Lock()
	im.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	im.mu.Unlock()

	seen := make(map[imageKey]struct{}, len(shuffled))
	unique := make([]Image, 0, len(shuffled))
	for _, img := range shuffled {
		if _, dup := seen[img.key()]; dup {
			continue
		}
		seen[img.key()] = struct{}{}
		unique = append(unique, img)
	}
	return unique
}

// LoadThemeImages warms the cache for every category of theme and returns the
// number of cached category entries.
func (im *Imagery) LoadThemeImages(ctx context.Context, theme string) int {
	t := ThemeFor(theme)
	for _, c := range t.Categories {
		im.LoadCategoryImages(ctx, t.Name, c.Name, c.Keywords)
	}
	n := im.Stats().TotalImages
	im.log.Info("Loaded theme images", zap.String("theme", t.Name), zap.Int("entries", n))
	return n
}

// FeaturedImages returns up to count showcase images. A curated source is
// preferred; otherwise the first source is searched for homes.
func (im *Imagery) FeaturedImages(ctx context.Context, count int) []Image {
	if count <= 0 {
		count = 6
	}
	im.mu.Lock()
	if len(im.featured) >= count {
		images := cloneImages(im.featured[:count])
		im.mu.Unlock()
		return images
	}
	im.mu.Unlock()

	if len(im.searchers) == 0 {
		return []Image{}
	}

	var images []Image
	curated := false
	for _, s := range im.searchers {
		if c, ok := s.(CuratedSearcher); ok {
			images = im.call(ctx, s.Type(), func(ctx context.Context) ([]Image, error) {
				return c.Curated(ctx, count)
			})
			curated = true
			break
		}
	}
	if !curated {
		s := im.searchers[0]
		images = im.call(ctx, s.Type(), func(ctx context.Context) ([]Image, error) {
			return s.Search(ctx, "homes", "", count)
		})
	}
	if len(images) == 0 {
		return []Image{}
	}

	im.mu.Lock()
	im.featured = cloneImages(images)
	im.mu.Unlock()
	if len(images) > count {
		images = images[:count]
	}
	return cloneImages(images)
}

type Stats struct {
	// TotalImages counts cached category entries, not individual images.
	TotalImages    int      `json:"totalImages"`
	FeaturedImages int      `json:"featuredImages"`
	Sources        []string `json:"sources"`
}

func (im *Imagery) Stats() Stats {
	im.mu.Lock()
	defer im.mu.Unlock()
	sources := make([]string, len(im.searchers))
	for i, s := range im.searchers {
		sources[i] = s.Type()
	}
	return Stats{
		TotalImages:    len(im.entries),
		FeaturedImages: len(im.featured),
		Sources:        sources,
	}
}

func cloneImages(images []Image) []Image {
	out := make([]Image, len(images))
	copy(out, images)
	return out
}
