// Package search keeps a secondary index of discussions in
// Elasticsearch. Postgres stays authoritative; the index is refreshed
// best effort on writes and only serves the /discussions/search route.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/cinetalk/cinetalk/services/discussion/internal/models"
)

type Config struct {
	URL      string
	Username string
	Password string
	Index    string
}

type Index struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

func New(cfg Config, l *slog.Logger) (*Index, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch info: %s: %s", res.Status(), body)
	}

	l.Info("elasticsearch_connected", "url", cfg.URL, "index", cfg.Index)
	return &Index{es: client, index: cfg.Index, log: l}, nil
}

// Put indexes (or reindexes) one discussion under its row ID.
func (i *Index) Put(ctx context.Context, d *models.Discussion) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(d); err != nil {
		return fmt.Errorf("encode discussion: %w", err)
	}

	res, err := i.es.Index(
		i.index,
		&buf,
		i.es.Index.WithDocumentID(strconv.FormatUint(uint64(d.ID), 10)),
		i.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("index discussion: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index discussion: %s: %s", res.Status(), body)
	}
	return nil
}

func (i *Index) Delete(ctx context.Context, id uint) error {
	res, err := i.es.Delete(
		i.index,
		strconv.FormatUint(uint64(id), 10),
		i.es.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("delete from index: %w", err)
	}
	defer res.Body.Close()
	// 404 here just means the write never reached the index
	if res.IsError() && res.StatusCode != 404 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("delete from index: %s: %s", res.Status(), body)
	}
	return nil
}

// Search runs a fuzzy multi-match over title and body.
func (i *Index) Search(ctx context.Context, query string, from, size int) (int64, []models.Discussion, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^2", "body"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(i.index),
		i.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("search: %s: %s", res.Status(), raw)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Discussion `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode search response: %w", err)
	}

	items := make([]models.Discussion, len(r.Hits.Hits))
	for idx, hit := range r.Hits.Hits {
		items[idx] = hit.Source
	}
	return r.Hits.Total.Value, items, nil
}
