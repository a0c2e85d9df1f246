// Package search indexes catalog products in Elasticsearch and serves the
// storefront's full-text product search. Plain multi_match only, no custom
// ranking.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/mokosho/shop/internal/models"
)

// Index wraps the ES client with the product index name. A nil *Index
// disables search and indexing.
type Index struct {
	es    *elasticsearch.Client
	index string
	log   *slog.Logger
}

func NewIndex(es *elasticsearch.Client, index string, l *slog.Logger) *Index {
	if es == nil {
		return nil
	}
	if l == nil {
		l = slog.Default()
	}
	return &Index{es: es, index: index, log: l}
}

// IndexProduct upserts the product document. Best-effort: failures are
// logged, the catalog write already succeeded.
func (i *Index) IndexProduct(ctx context.Context, p *models.Product) {
	if i == nil {
		return
	}
	data, err := json.Marshal(p)
	if err != nil {
		i.log.Error("index_product_marshal_failed", "product", p.ID, "error", err)
		return
	}
	res, err := i.es.Index(
		i.index,
		bytes.NewReader(data),
		i.es.Index.WithContext(ctx),
		i.es.Index.WithDocumentID(p.ID.String()),
	)
	if err != nil {
		i.log.Error("index_product_failed", "product", p.ID, "error", err)
		return
	}
	defer res.Body.Close()
	if res.IsError() {
		i.log.Error("index_product_failed", "product", p.ID, "status", res.Status())
	}
}

func (i *Index) DeleteProduct(ctx context.Context, id string) {
	if i == nil {
		return
	}
	res, err := i.es.Delete(i.index, id, i.es.Delete.WithContext(ctx))
	if err != nil {
		i.log.Error("delete_product_failed", "product", id, "error", err)
		return
	}
	res.Body.Close()
}

// Search runs a fuzzy multi_match over name and description.
func (i *Index) Search(ctx context.Context, query string, from, size int) (int64, []models.Product, error) {
	if i == nil {
		return 0, nil, fmt.Errorf("search disabled")
	}
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("encode search body: %w", err)
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
		return 0, nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Product `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	prods := make([]models.Product, len(r.Hits.Hits))
	for n, hit := range r.Hits.Hits {
		prods[n] = hit.Source
	}
	return r.Hits.Total.Value, prods, nil
}
