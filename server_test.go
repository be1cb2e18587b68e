package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticAuth map[string]string

func (a staticAuth) TestUser(user, pass string) bool {
	p, ok := a[user]
	return ok && p == pass
}

func newTestServer(t *testing.T, searchers ...ImageSearcher) (*httptest.Server, *Imagery) {
	t.Helper()
	im := newTestImagery(newFakeClock(), searchers...)
	srv := httptest.NewServer(NewServer(im, staticAuth{"admin": "secret"}, zap.NewNop(), false))
	t.Cleanup(srv.Close)
	return srv, im
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(body)
}

func TestServerTheme(t *testing.T) {
	srv, _ := newTestServer(t)
	status, body := getBody(t, srv.URL+"/theme?path=/insights/market")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"theme": "insights"}`, body)
}

func TestServerImages(t *testing.T) {
	a := &fakeSearcher{name: "a", images: testImages("a", 3)}
	srv, _ := newTestServer(t, a)

	status, body := getBody(t, srv.URL+"/images?theme=projects&category=portfolio")
	require.Equal(t, http.StatusOK, status)
	var images []Image
	require.NoError(t, json.Unmarshal([]byte(body), &images))
	assert.Len(t, images, 3)
	assert.Equal(t, "renovation", a.seen().primary, "keywords come from the theme")

	getBody(t, srv.URL+"/images?theme=projects&category=kitchens&q=kitchen&q=remodel")
	assert.Equal(t, "kitchen", a.seen().primary)
	assert.Equal(t, "remodel", a.seen().secondary)

	status, _ = getBody(t, srv.URL+"/images?theme=projects")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServerImagesEmpty(t *testing.T) {
	srv, _ := newTestServer(t)
	status, body := getBody(t, srv.URL+"/images?category=hero")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[]`, body)
}

func TestServerRender(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSearcher{name: "a", images: testImages("a", 6)})

	status, body := getBody(t, srv.URL+"/render?category=gallery&layout=grid")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "lg:grid-cols-3")

	srv, _ = newTestServer(t)
	_, body = getBody(t, srv.URL+"/render?category=gallery&layout=grid")
	assert.Contains(t, body, NoImagesPlaceholder)
}

func TestServerFeatured(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSearcher{name: "a", images: testImages("a", 5)})

	status, body := getBody(t, srv.URL+"/featured?count=2")
	assert.Equal(t, http.StatusOK, status)
	var images []Image
	require.NoError(t, json.Unmarshal([]byte(body), &images))
	assert.Len(t, images, 2)

	status, _ = getBody(t, srv.URL+"/featured?count=zero")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestServerPage(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSearcher{name: "a", images: testImages("a", 4)})

	req := `{"path": "/about", "containers": [
	  {"id": "hero", "kind": "hero", "category": "veterans"},
	  {"id": "team", "category": "team", "layout": "grid"}
	]}`
	res, err := http.Post(srv.URL+"/page", "application/json", strings.NewReader(req))
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	var page PageResult
	require.NoError(t, json.NewDecoder(res.Body).Decode(&page))
	assert.Equal(t, "about", page.Theme)
	require.Len(t, page.Containers, 2)
	assert.NotNil(t, page.Containers[0].Hero)
	assert.Empty(t, page.Containers[0].HTML)
	assert.Contains(t, page.Containers[1].HTML, "dynamic-gallery")
	assert.NotEmpty(t, page.Preload)

	res, err = http.Post(srv.URL+"/page", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestServerStatsRequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSearcher{name: "pexels"})

	status, _ := getBody(t, srv.URL+"/stats")
	assert.Equal(t, http.StatusUnauthorized, status)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/stats", nil)
	require.NoError(t, err)
	req.SetBasicAuth("admin", "wrong")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	req.SetBasicAuth("admin", "secret")
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	var stats Stats
	require.NoError(t, json.NewDecoder(res.Body).Decode(&stats))
	assert.Equal(t, []string{"pexels"}, stats.Sources)
}

func TestServerNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	status, body := getBody(t, srv.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Not Found", body)
}

func TestServerMetrics(t *testing.T) {
	srv, _ := newTestServer(t, &fakeSearcher{name: "a", images: testImages("a", 1)})
	getBody(t, srv.URL+"/images?category=hero")

	status, body := getBody(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "imagery_category_cache_lookups_total")
}

func TestServerBrotli(t *testing.T) {
	srv, _ := newTestServer(t)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/theme?path=/about", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "br")
	res, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "br", res.Header.Get("Content-Encoding"))
}
