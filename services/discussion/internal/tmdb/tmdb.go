// Package tmdb proxies movie metadata lookups to The Movie Database
// API, caching responses in process so browsing a movie page does not
// hammer the upstream quota.
package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

var ErrUpstream = errors.New("tmdb upstream error")

const defaultBaseURL = "https://api.themoviedb.org/3"

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *responseCache
}

func NewClient(apiKey string, cacheTTL time.Duration) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      newResponseCache(cacheTTL),
	}
}

// NewClientWithBaseURL is for tests pointing at a stub server.
func NewClientWithBaseURL(baseURL, apiKey string, cacheTTL time.Duration) *Client {
	c := NewClient(apiKey, cacheTTL)
	c.baseURL = baseURL
	return c
}

// Movie fetches one movie's metadata as the raw TMDB JSON payload.
func (c *Client) Movie(ctx context.Context, movieID int64) ([]byte, error) {
	return c.get(ctx, "/movie/"+strconv.FormatInt(movieID, 10), nil)
}

// SearchMovies proxies a title search.
func (c *Client) SearchMovies(ctx context.Context, query string) ([]byte, error) {
	return c.get(ctx, "/search/movie", url.Values{"query": {query}})
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	full := c.baseURL + path + "?" + params.Encode()

	if payload, ok := c.cache.get(full, time.Now()); ok {
		return payload, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, fmt.Errorf("build tmdb request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tmdb response: %w", err)
	}

	c.cache.put(full, payload, time.Now())
	return payload, nil
}
