package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

type UnsplashPhoto struct {
	Id             string             `json:"id"`
	Width          int                `json:"width"`
	Height         int                `json:"height"`
	Description    string             `json:"description"`
	AltDescription string             `json:"alt_description"`
	User           UnsplashUser       `json:"user"`
	Urls           UnsplashUrls       `json:"urls"`
	Links          UnsplashPhotoLinks `json:"links"`
}

type UnsplashUser struct {
	Id       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type UnsplashPhotoLinks struct {
	Self string `json:"self"`
	Html string `json:"html"`
}

type UnsplashUrls struct {
	Raw     string `json:"raw"`
	Regular string `json:"regular"`
	Small   string `json:"small"`
	Thumb   string `json:"thumb"`
}

type UnsplashSearchResult struct {
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
	Results    []UnsplashPhoto `json:"results"`
}

type UnsplashApi struct {
	apiClient
	accessKey string
	baseUrl   string
}

func NewUnsplashApi(accessKey string, deps ApiDeps) *UnsplashApi {
	return &UnsplashApi{
		apiClient: newApiClient("unsplash", deps),
		accessKey: accessKey,
		baseUrl:   "https://api.unsplash.com/search/photos",
	}
}

func (unsp *UnsplashApi) Type() string {
	return "unsplash"
}

func (unsp *UnsplashApi) Search(ctx context.Context, primary, secondary string, count int) ([]Image, error) {
	query := searchQuery(primary, secondary)
	qParam := url.Values{}
	qParam.Add("query", query)
	qParam.Add("per_page", strconv.Itoa(count))
	getReq, err := http.NewRequestWithContext(ctx, http.MethodGet, unsp.baseUrl+"?"+qParam.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("unsplash request: %w", err)
	}
	getReq.Header.Set("Accept-Version", "v1")
	getReq.Header.Set("Authorization", "Client-ID "+unsp.accessKey)

	data := UnsplashSearchResult{}
	if err := unsp.fetchJSON(getReq, &data); err != nil {
		return nil, err
	}
	output := make([]Image, len(data.Results))
	for i, el := range data.Results {
		output[i] = Image{
			URL:       firstNonEmpty(el.Urls.Regular, el.Urls.Raw),
			Thumbnail: firstNonEmpty(el.Urls.Small, el.Urls.Thumb, el.Urls.Regular),
			Width:     el.Width,
			Height:    el.Height,
			Alt:       firstNonEmpty(el.AltDescription, el.Description, query),
			Credit:    credit(el.User.Name, "Unsplash"),
			Source:    "Unsplash",
		}
	}
	return output, nil
}
