package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Skotchmaster/food_client/internal/logging"
	"github.com/Skotchmaster/food_client/internal/models"
	"github.com/elastic/go-elasticsearch/v9"
)

var ErrSearchUnavailable = errors.New("search unavailable")

type SearchConfig struct {
	URL      string
	User     string
	Password string
	Index    string
}

type Searcher struct {
	es    *elasticsearch.Client
	index string
}

func NewSearcher(ctx context.Context, cfg SearchConfig) (*Searcher, error) {
	l := logging.FromContext(ctx).With("component", "search")

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		l.Error("es_info_error", "url", cfg.URL, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		l.Error("es_info_error", "url", cfg.URL, "status", res.StatusCode, "body", string(body))
		return nil, fmt.Errorf("%w: %s", ErrSearchUnavailable, res.Status())
	}

	l.Info("es_connected", "url", cfg.URL, "index", cfg.Index)
	return &Searcher{es: client, index: cfg.Index}, nil
}

// IndexFoods upserts the menu into the search index in one bulk request.
func (s *Searcher) IndexFoods(ctx context.Context, foods []models.Food) error {
	if len(foods) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, f := range foods {
		meta := map[string]any{"index": map[string]any{"_id": strconv.FormatInt(f.ID, 10)}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("encode bulk meta: %w", err)
		}
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("encode food %d: %w", f.ID, err)
		}
	}

	res, err := s.es.Bulk(&buf,
		s.es.Bulk.WithContext(ctx),
		s.es.Bulk.WithIndex(s.index),
		s.es.Bulk.WithRefresh("true"),
	)
	if err != nil {
		return fmt.Errorf("%w: bulk: %v", ErrSearchUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: bulk: %s", ErrSearchUnavailable, res.Status())
	}

	var r struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return fmt.Errorf("decode bulk response: %w", err)
	}
	if r.Errors {
		return fmt.Errorf("%w: bulk reported item errors", ErrSearchUnavailable)
	}
	return nil
}

// Search runs a fuzzy match over name and description, name weighted double.
func (s *Searcher) Search(ctx context.Context, query string, page, size int) (int64, []models.Food, error) {
	from, limit := Calculate(page, size)

	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": limit,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode search: %w", err)
	}

	res, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("%w: search: %s", ErrSearchUnavailable, res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Food `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("decode search response: %w", err)
	}

	foods := make([]models.Food, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		foods[i] = hit.Source
	}
	return r.Hits.Total.Value, foods, nil
}
