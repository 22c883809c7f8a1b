// Package catalog searches the public Google Books volumes API.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mrlokans/bookfinder/internal/config"
	"github.com/mrlokans/bookfinder/internal/entities"
	"github.com/mrlokans/bookfinder/internal/metrics"
)

var (
	ErrEmptyQuery       = errors.New("search query is empty")
	ErrUnexpectedStatus = errors.New("unexpected catalog response status")
)

const userAgent = "Bookfinder/1.0 (https://github.com/mrlokans/bookfinder)"

// Searcher is what the HTTP layer and CLI need from the catalog.
type Searcher interface {
	Search(ctx context.Context, query string) ([]entities.BookRecord, error)
}

// Client queries the volumes endpoint. Requests are paced by a token bucket;
// a failed request is returned as is and never retried.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxResults int
	limiter    *rate.Limiter
	metrics    *metrics.Metrics
}

// NewClient builds a client from catalog config. Zero values fall back to the
// package defaults.
func NewClient(cfg config.Catalog, m *metrics.Metrics) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultCatalogBaseURL
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = config.DefaultCatalogMaxResults
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		maxResults: maxResults,
		limiter:    rate.NewLimiter(limit, 1),
		metrics:    m,
	}
}

// Search returns at most maxResults volumes matching query, in catalog order.
// A response without items yields an empty slice. Items without an id are
// dropped.
func (c *Client) Search(ctx context.Context, query string) ([]entities.BookRecord, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	start := time.Now()
	books, err := c.search(ctx, query)
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.metrics.CatalogRequest(result, time.Since(start))
	return books, err
}

func (c *Client) search(ctx context.Context, query string) ([]entities.BookRecord, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(c.maxResults))
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search volumes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var payload volumesResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	books := make([]entities.BookRecord, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.ID == "" {
			continue
		}
		books = append(books, item.toRecord())
		if len(books) == c.maxResults {
			break
		}
	}
	return books, nil
}

type volumesResponse struct {
	TotalItems int          `json:"totalItems"`
	Items      []volumeItem `json:"items"`
}

type volumeItem struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title         string   `json:"title"`
		Authors       []string `json:"authors"`
		Description   string   `json:"description"`
		Categories    []string `json:"categories"`
		Publisher     string   `json:"publisher"`
		PublishedDate string   `json:"publishedDate"`
		ImageLinks    struct {
			SmallThumbnail string `json:"smallThumbnail"`
			Thumbnail      string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

func (v volumeItem) toRecord() entities.BookRecord {
	info := v.VolumeInfo
	thumb := info.ImageLinks.Thumbnail
	if thumb == "" {
		thumb = info.ImageLinks.SmallThumbnail
	}
	return entities.BookRecord{
		ID:            v.ID,
		Title:         info.Title,
		Authors:       info.Authors,
		ThumbnailURL:  thumb,
		Description:   info.Description,
		Categories:    info.Categories,
		Publisher:     info.Publisher,
		PublishedDate: info.PublishedDate,
	}
}
