package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const defaultApiTTL = 24 * time.Hour

// ApiDeps carries the shared plumbing handed to every source adapter.
type ApiDeps struct {
	Client  *http.Client
	Cache   *ReqCache
	Limiter *rate.Limiter
	Log     *zap.Logger
}

type apiClient struct {
	http    *http.Client
	cache   *ReqCache
	limiter *rate.Limiter
	ttl     time.Duration
	log     *zap.Logger
}

func newApiClient(name string, deps ApiDeps) apiClient {
	c := apiClient{
		http:    deps.Client,
		cache:   deps.Cache,
		limiter: deps.Limiter,
		ttl:     defaultApiTTL,
		log:     deps.Log,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.limiter == nil {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	c.log = c.log.Named(name)
	return c
}

// fetchJSON performs req, through the request cache when one is configured,
// and decodes a 2xx JSON body into out.
func (c *apiClient) fetchJSON(req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	var (
		res *http.Response
		err error
	)
	if c.cache != nil {
		res, err = c.cache.CachedFetch(req, c.http, c.ttl)
	} else {
		res, err = c.http.Do(req)
	}
	if err != nil {
		c.log.Warn("Failed to fetch", zap.String("host", req.URL.Host), zap.Error(err))
		return fmt.Errorf("fetch %s: %w", req.URL.Host, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		c.log.Warn("Unexpected status", zap.Int("status", res.StatusCode), zap.ByteString("body", body))
		return fmt.Errorf("%s: unexpected status %d", req.URL.Host, res.StatusCode)
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		c.log.Warn("Failed to decode response", zap.Error(err))
		return fmt.Errorf("decode %s response: %w", req.URL.Host, err)
	}
	return nil
}
