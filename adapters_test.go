package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJSONServer(t *testing.T, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const pexelsBody = `{
  "total_results": 2, "page": 1, "per_page": 2,
  "photos": [
    {"id": 1, "width": 4000, "height": 3000, "url": "https://www.pexels.com/photo/1/",
     "alt": "White house with porch", "photographer": "Ana Lee",
     "src": {"original": "https://images.pexels.com/1.jpeg", "large": "https://images.pexels.com/1-large.jpeg",
             "medium": "https://images.pexels.com/1-medium.jpeg", "small": "https://images.pexels.com/1-small.jpeg"}},
    {"id": 2, "width": 3000, "height": 2000, "url": "https://www.pexels.com/photo/2/",
     "alt": "", "photographer": "",
     "src": {"original": "https://images.pexels.com/2.jpeg"}}
  ]
}`

func TestPexelsSearch(t *testing.T) {
	srv := newJSONServer(t, pexelsBody, func(r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "pexels-key", r.Header.Get("Authorization"))
		assert.Equal(t, "homes modern house", r.URL.Query().Get("query"))
		assert.Equal(t, "4", r.URL.Query().Get("per_page"))
	})
	api := NewPexelsApi("pexels-key", ApiDeps{})
	api.baseUrl = srv.URL

	images, err := api.Search(context.Background(), "homes", "modern house", 4)
	require.NoError(t, err)
	require.Len(t, images, 2)

	assert.Equal(t, Image{
		URL:       "https://images.pexels.com/1-large.jpeg",
		Thumbnail: "https://images.pexels.com/1-medium.jpeg",
		Width:     4000,
		Height:    3000,
		Alt:       "White house with porch",
		Credit:    "Photo by Ana Lee on Pexels",
		Source:    "Pexels",
	}, images[0])

	assert.Equal(t, "https://images.pexels.com/2.jpeg", images[1].URL)
	assert.Equal(t, "https://images.pexels.com/2.jpeg", images[1].Thumbnail, "falls back to the original")
	assert.Equal(t, "homes modern house", images[1].Alt, "alt falls back to the query")
	assert.Equal(t, "Photo via Pexels", images[1].Credit)
}

func TestPexelsCurated(t *testing.T) {
	srv := newJSONServer(t, pexelsBody, func(r *http.Request) {
		assert.Equal(t, "/curated", r.URL.Path)
		assert.Equal(t, "6", r.URL.Query().Get("per_page"))
	})
	api := NewPexelsApi("pexels-key", ApiDeps{})
	api.baseUrl = srv.URL

	images, err := api.Curated(context.Background(), 6)
	require.NoError(t, err)
	assert.Len(t, images, 2)
}

func TestUnsplashSearch(t *testing.T) {
	body := `{"total": 1, "total_pages": 1, "results": [
	  {"id": "abc", "width": 5000, "height": 3333, "description": "A home", "alt_description": "brown wooden house",
	   "user": {"id": "u1", "username": "jdoe", "name": "Jane Doe"},
	   "urls": {"raw": "https://images.unsplash.com/raw", "regular": "https://images.unsplash.com/regular",
	            "small": "https://images.unsplash.com/small", "thumb": "https://images.unsplash.com/thumb"},
	   "links": {"html": "https://unsplash.com/photos/abc"}}
	]}`
	srv := newJSONServer(t, body, func(r *http.Request) {
		assert.Equal(t, "Client-ID access", r.Header.Get("Authorization"))
		assert.Equal(t, "v1", r.Header.Get("Accept-Version"))
		assert.Equal(t, "veterans", r.URL.Query().Get("query"))
	})
	api := NewUnsplashApi("access", ApiDeps{})
	api.baseUrl = srv.URL

	images, err := api.Search(context.Background(), "veterans", "", 4)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "https://images.unsplash.com/regular", images[0].URL)
	assert.Equal(t, "https://images.unsplash.com/small", images[0].Thumbnail)
	assert.Equal(t, "brown wooden house", images[0].Alt)
	assert.Equal(t, "Photo by Jane Doe on Unsplash", images[0].Credit)
	assert.Equal(t, 5000, images[0].Width)
}

func TestPixabaySearchTrimsToCount(t *testing.T) {
	body := `{"total": 3, "totalHits": 3, "hits": [
	  {"id": 1, "tags": "house, home", "previewURL": "p1", "webformatURL": "w1", "largeImageURL": "l1", "imageWidth": 1920, "imageHeight": 1280, "user": "pix"},
	  {"id": 2, "tags": "villa", "previewURL": "p2", "webformatURL": "w2", "largeImageURL": "l2", "imageWidth": 1920, "imageHeight": 1080, "user": "pix"},
	  {"id": 3, "tags": "roof", "previewURL": "p3", "webformatURL": "w3", "largeImageURL": "l3", "imageWidth": 800, "imageHeight": 600, "user": "pix"}
	]}`
	srv := newJSONServer(t, body, func(r *http.Request) {
		assert.Equal(t, "pixabay-key", r.URL.Query().Get("key"))
		assert.Equal(t, "3", r.URL.Query().Get("per_page"), "pixabay minimum page size")
	})
	api := NewPixabayApi("pixabay-key", ApiDeps{})
	api.baseUrl = srv.URL

	images, err := api.Search(context.Background(), "homes", "", 2)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, "l1", images[0].URL)
	assert.Equal(t, "w1", images[0].Thumbnail)
	assert.Equal(t, "house, home", images[0].Alt)
	assert.Equal(t, "Photo by pix on Pixabay", images[0].Credit)
}

func TestAdapterErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	api := NewPexelsApi("k", ApiDeps{})
	api.baseUrl = srv.URL
	_, err := api.Search(context.Background(), "homes", "", 4)
	assert.ErrorContains(t, err, "unexpected status 429")
}

func TestAdapterBadJSON(t *testing.T) {
	srv := newJSONServer(t, `{"hits": [`, nil)
	api := NewPixabayApi("k", ApiDeps{})
	api.baseUrl = srv.URL
	_, err := api.Search(context.Background(), "homes", "", 4)
	assert.ErrorContains(t, err, "decode")
}

func TestAdapterHonoursContext(t *testing.T) {
	srv := newJSONServer(t, pexelsBody, nil)
	api := NewPexelsApi("k", ApiDeps{})
	api.baseUrl = srv.URL

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := api.Search(ctx, "homes", "", 4)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAdaptersPlugIntoImagery(t *testing.T) {
	pexels := newJSONServer(t, pexelsBody, nil)
	p := NewPexelsApi("k", ApiDeps{})
	p.baseUrl = pexels.URL

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer down.Close()
	u := NewUnsplashApi("k", ApiDeps{})
	u.baseUrl = down.URL

	im := NewImagery([]ImageSearcher{p, u})
	images := im.LoadCategoryImages(context.Background(), "homepage", "hero", []string{"homes"})
	assert.Len(t, images, 2)
}
