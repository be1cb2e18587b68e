package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

type PixabaySearchItem struct {
	Id            int    `json:"id"`
	Tags          string `json:"tags"`
	PreviewUrl    string `json:"previewURL"`
	WebFormatUrl  string `json:"webformatURL"`
	LargeImageUrl string `json:"largeImageURL"`
	ImageWidth    int    `json:"imageWidth"`
	ImageHeight   int    `json:"imageHeight"`
	User          string `json:"user"`
	PageUrl       string `json:"pageURL"`
}

type PixabaySearchResult struct {
	Total     int                 `json:"total"`
	TotalHits int                 `json:"totalHits"`
	Hits      []PixabaySearchItem `json:"hits"`
}

type PixabayApi struct {
	apiClient
	apiKey  string
	baseUrl string
}

func NewPixabayApi(key string, deps ApiDeps) *PixabayApi {
	return &PixabayApi{
		apiClient: newApiClient("pixabay", deps),
		apiKey:    key,
		baseUrl:   "https://pixabay.com/api/",
	}
}

func (api *PixabayApi) Type() string {
	return "pixabay"
}

// Search asks Pixabay for photos. Pixabay rejects per_page below 3, so the
// request is padded and the result trimmed back to count.
func (api *PixabayApi) Search(ctx context.Context, primary, secondary string, count int) ([]Image, error) {
	query := searchQuery(primary, secondary)
	qParam := url.Values{}
	qParam.Add("key", api.apiKey)
	qParam.Add("q", query)
	qParam.Add("image_type", "photo")
	qParam.Add("per_page", strconv.Itoa(max(count, 3)))
	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, api.baseUrl+"?"+qParam.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("pixabay request: %w", err)
	}

	data := PixabaySearchResult{}
	if err := api.fetchJSON(getReq, &data); err != nil {
		return nil, err
	}
	hits := data.Hits
	if len(hits) > count {
		hits = hits[:count]
	}
	output := make([]Image, len(hits))
	for i, el := range hits {
		output[i] = Image{
			URL:       firstNonEmpty(el.LargeImageUrl, el.WebFormatUrl),
			Thumbnail: firstNonEmpty(el.WebFormatUrl, el.PreviewUrl),
			Width:     el.ImageWidth,
			Height:    el.ImageHeight,
			Alt:       firstNonEmpty(el.Tags, query),
			Credit:    credit(el.User, "Pixabay"),
			Source:    "Pixabay",
		}
	}
	return output, nil
}
