package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const maxPageRequestBytes = 1 << 20

// Authenticator checks credentials for the admin endpoints.
type Authenticator interface {
	TestUser(user string, pass string) bool
}

type Server struct {
	imagery    *Imagery
	auth       Authenticator
	log        *zap.Logger
	prettyJson bool
	mux        *http.ServeMux
}

func NewServer(imagery *Imagery, auth Authenticator, log *zap.Logger, prettyJson bool) *Server {
	s := &Server{
		imagery:    imagery,
		auth:       auth,
		log:        log.Named("http"),
		prettyJson: prettyJson,
		mux:        http.NewServeMux(),
	}
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, "Not Found")
	})
	s.mux.HandleFunc("GET /theme", s.handleTheme)
	s.mux.HandleFunc("GET /images", s.handleImages)
	s.mux.HandleFunc("GET /render", s.handleRender)
	s.mux.HandleFunc("GET /featured", s.handleFeatured)
	s.mux.HandleFunc("POST /page", s.handlePage)
	s.mux.HandleFunc("GET /stats", s.requireUser(s.handleStats))
	s.mux.Handle("GET /metrics", promhttp.Handler())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	theme := ResolveTheme(PageContext{Path: q.Get("path"), Content: q.Get("content")})
	s.writeJSON(w, r, http.StatusOK, map[string]string{"theme": theme})
}

type categoryQuery struct {
	theme    string
	category string
	keywords []string
}

// parseCategoryQuery reads theme, category and q. Keywords default to the
// theme's configured keywords for the category, then to the category itself.
func parseCategoryQuery(r *http.Request) (categoryQuery, error) {
	q := r.URL.Query()
	cq := categoryQuery{
		theme:    ThemeFor(q.Get("theme")).Name,
		category: strings.TrimSpace(q.Get("category")),
	}
	if cq.category == "" {
		return cq, fmt.Errorf("query parameter ?category= missing")
	}
	for _, k := range q["q"] {
		if k = strings.TrimSpace(k); k != "" {
			cq.keywords = append(cq.keywords, k)
		}
	}
	if len(cq.keywords) == 0 {
		cq.keywords = CategoryKeywords(cq.theme, cq.category)
	}
	return cq, nil
}

func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	cq, err := parseCategoryQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	images := s.imagery.LoadCategoryImages(r.Context(), cq.theme, cq.category, cq.keywords)
	s.writeJSON(w, r, http.StatusOK, images)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	cq, err := parseCategoryQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	images := s.imagery.LoadCategoryImages(r.Context(), cq.theme, cq.category, cq.keywords)
	rendering := Render(images, ParseLayout(r.URL.Query().Get("layout")), cq.category)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	body := brotli.HTTPCompressor(w, r)
	defer body.Close()
	if err := RenderHTML(body, rendering); err != nil {
		s.log.Error("Render failed", zap.String("category", cq.category), zap.Error(err))
	}
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	count := 6
	if c := r.URL.Query().Get("count"); c != "" {
		n, err := strconv.Atoi(c)
		if err != nil || n <= 0 {
			http.Error(w, "count must be a positive integer", http.StatusBadRequest)
			return
		}
		count = n
	}
	s.writeJSON(w, r, http.StatusOK, s.imagery.FeaturedImages(r.Context(), count))
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	var page PageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPageRequestBytes))
	if err := dec.Decode(&page); err != nil {
		http.Error(w, "invalid page request: "+err.Error(), http.StatusBadRequest)
		return
	}

	result := s.imagery.LoadPage(r.Context(), page)
	for i := range result.Containers {
		c := &result.Containers[i]
		if c.Rendering == nil {
			continue
		}
		html, err := RenderHTMLString(*c.Rendering)
		if err != nil {
			s.log.Error("Render failed", zap.String("container", c.ID), zap.Error(err))
			continue
		}
		c.HTML = html
	}
	s.writeJSON(w, r, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, s.imagery.Stats())
}

func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || s.auth == nil || !s.auth.TestUser(user, pass) {
			w.Header().Set("WWW-Authenticate", `Basic realm="imagery"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	body := brotli.HTTPCompressor(w, r)
	defer body.Close()
	w.WriteHeader(status)

	enc := json.NewEncoder(body)
	indent := ""
	if s.prettyJson {
		indent = "  "
	}
	enc.SetIndent("", indent)
	if err := enc.Encode(v); err != nil {
		s.log.Warn("Failed to encode response", zap.Error(err))
	}
}
