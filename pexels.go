package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

type PexelsPhoto struct {
	Id           int            `json:"id"`
	Width        int            `json:"width"`
	Height       int            `json:"height"`
	Url          string         `json:"url"`
	Alt          string         `json:"alt"`
	Photographer string         `json:"photographer"`
	Src          PexelsPhotoSrc `json:"src"`
}

type PexelsPhotoSrc struct {
	Original string `json:"original"`
	Large    string `json:"large"`
	Medium   string `json:"medium"`
	Small    string `json:"small"`
}

type PexelsSearchResult struct {
	TotalResults int           `json:"total_results"`
	Page         int           `json:"page"`
	PerPage      int           `json:"per_page"`
	Photos       []PexelsPhoto `json:"photos"`
}

type PexelsApi struct {
	apiClient
	apiKey  string
	baseUrl string
}

func NewPexelsApi(key string, deps ApiDeps) *PexelsApi {
	return &PexelsApi{
		apiClient: newApiClient("pexels", deps),
		apiKey:    key,
		baseUrl:   "https://api.pexels.com/v1",
	}
}

func (api *PexelsApi) Type() string {
	return "pexels"
}

func (api *PexelsApi) Search(ctx context.Context, primary, secondary string, count int) ([]Image, error) {
	query := searchQuery(primary, secondary)
	qParam := url.Values{}
	qParam.Add("query", query)
	qParam.Add("per_page", strconv.Itoa(count))
	return api.fetch(ctx, "/search", qParam, query)
}

// Curated returns photos from the Pexels curated feed.
func (api *PexelsApi) Curated(ctx context.Context, count int) ([]Image, error) {
	qParam := url.Values{}
	qParam.Add("per_page", strconv.Itoa(count))
	return api.fetch(ctx, "/curated", qParam, "")
}

func (api *PexelsApi) fetch(ctx context.Context, path string, qParam url.Values, query string) ([]Image, error) {
	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, api.baseUrl+path+"?"+qParam.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("pexels request: %w", err)
	}
	getReq.Header.Set("Authorization", api.apiKey)

	data := PexelsSearchResult{}
	if err := api.fetchJSON(getReq, &data); err != nil {
		return nil, err
	}
	output := make([]Image, len(data.Photos))
	for i, el := range data.Photos {
		output[i] = Image{
			URL:       firstNonEmpty(el.Src.Large, el.Src.Original),
			Thumbnail: firstNonEmpty(el.Src.Medium, el.Src.Small, el.Src.Large, el.Src.Original),
			Width:     el.Width,
			Height:    el.Height,
			Alt:       firstNonEmpty(el.Alt, query),
			Credit:    credit(el.Photographer, "Pexels"),
			Source:    "Pexels",
		}
	}
	return output, nil
}
