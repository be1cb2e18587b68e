package main

import (
	"bufio"
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httputil"
	"time"

	"go.uber.org/zap"
)

// ReqCache keeps raw upstream HTTP responses in the store so that repeated
// searches do not spend API quota.
type ReqCache struct {
	store *Store
	log   *zap.Logger
	now   func() time.Time
}

func NewReqCache(store *Store, log *zap.Logger) *ReqCache {
	return &ReqCache{
		store: store,
		log:   log.Named("cache"),
		now:   time.Now,
	}
}

// PurgeExpired deletes expired responses every interval until ctx is done.
func (rc *ReqCache) PurgeExpired(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		if err := rc.store.DeleteBefore(rc.now().Unix()); err != nil {
			rc.log.Error("Purge failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (rc *ReqCache) CachedFetch(req *http.Request, client *http.Client, ttl time.Duration) (*http.Response, error) {
	reqBytes, err := httputil.DumpRequest(req, true)
	if err != nil {
		return nil, fmt.Errorf("dump request: %w", err)
	}
	md5Hash := md5.Sum(reqBytes)
	reqHash := hex.EncodeToString(md5Hash[:])

	now := rc.now()
	if data, ok := rc.store.GetResponse(reqHash, now.Unix()); ok {
		res, err := http.ReadResponse(bufio.NewReader(bytes.NewReader(data)), req)
		if err == nil {
			return res, nil
		}
		rc.log.Warn("Problems decoding cached result", zap.Error(err))
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	respBytes, err := httputil.DumpResponse(resp, true)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("dump response: %w", err)
	}
	rc.log.Debug("MISS", zap.String("host", req.URL.Host), zap.Int("status", resp.StatusCode))
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		if err := rc.store.StoreResponse(reqHash, respBytes, now.Add(ttl).Unix()); err != nil {
			rc.log.Error("Failed to store response", zap.Error(err))
		}
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(respBytes)), req)
}
