// Package elasticsearch implements search.Index on an Elasticsearch cluster.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/nahankar/shatika/internal/repository"
	"github.com/nahankar/shatika/internal/search"
)

// Engine is an Elasticsearch-backed product index.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

var _ search.Index = (*Engine)(nil)

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID    string `json:"_id"`
			Error struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

// New connects to the cluster at url and creates the index when it does
// not exist yet. An empty indexName selects DefaultIndexName.
func New(ctx context.Context, url, indexName string, logger *slog.Logger) (*Engine, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{url}})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	e := &Engine{client: client, indexName: indexName, logger: logger}
	if err := e.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure index: %w", err)
	}
	return e, nil
}

// Ping checks that the cluster is reachable; used by the readiness probe.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer closeBody(res)
	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

func (e *Engine) ensureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.indexName}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	closeBody(res)
	if res.StatusCode == http.StatusOK {
		return nil
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer closeBody(res)
	if res.IsError() {
		return responseError("create index", res)
	}

	e.logger.InfoContext(ctx, "search index created", slog.String("index", e.indexName))
	return nil
}

// Index adds or replaces one product document.
func (e *Engine) Index(ctx context.Context, doc search.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal: %w", err)
	}

	res, err := e.client.Index(
		e.indexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(doc.ID),
		e.client.Index.WithRefresh("true"),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer closeBody(res)
	if res.IsError() {
		return responseError("elasticsearch index", res)
	}
	return nil
}

// BulkIndex adds or replaces docs in one NDJSON bulk request.
func (e *Engine) BulkIndex(ctx context.Context, docs []search.Document) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range docs {
		action := map[string]any{"index": map[string]any{"_index": e.indexName, "_id": docs[i].ID}}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode action: %w", err)
		}
		if err := enc.Encode(docs[i]); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		&buf,
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer closeBody(res)
	if res.IsError() {
		return responseError("elasticsearch bulk", res)
	}

	var bulk bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil {
		return fmt.Errorf("elasticsearch bulk: decode response: %w", err)
	}
	if bulk.Errors {
		var msgs []string
		for _, item := range bulk.Items {
			if item.Index.Error.Type != "" {
				msgs = append(msgs, fmt.Sprintf("id=%s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk: partial failure: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// Delete removes a document. A missing document is not an error.
func (e *Engine) Delete(ctx context.Context, id string) error {
	res, err := e.client.Delete(e.indexName, id,
		e.client.Delete.WithRefresh("true"),
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer closeBody(res)
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete", res)
	}
	return nil
}

// Search returns the ids of matching products in rank order.
func (e *Engine) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	data, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer closeBody(res)
	if res.IsError() {
		return nil, responseError("elasticsearch search", res)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	ids := make([]string, 0, len(sr.Hits.Hits))
	for _, hit := range sr.Hits.Hits {
		ids = append(ids, hit.ID)
	}
	return &search.Result{IDs: ids, Total: sr.Hits.Total.Value}, nil
}

// DeleteIndex drops the whole index. A missing index is not an error.
func (e *Engine) DeleteIndex(ctx context.Context) error {
	res, err := e.client.Indices.Delete([]string{e.indexName}, e.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer closeBody(res)
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete index", res)
	}
	return nil
}

func buildQuery(q search.Query) map[string]any {
	must := map[string]any{"match_all": map[string]any{}}
	if text := strings.TrimSpace(q.Text); text != "" {
		must = map[string]any{
			"multi_match": map[string]any{
				"query":         text,
				"fields":        []string{"name^3", "name.autocomplete^2", "description", "colors"},
				"type":          "best_fields",
				"fuzziness":     "AUTO",
				"prefix_length": 1,
			},
		}
	}

	var filters []any
	term := func(field string, v *string) {
		if v != nil {
			filters = append(filters, map[string]any{"term": map[string]any{field: *v}})
		}
	}
	term("category_id", q.CategoryID)
	term("material_id", q.MaterialID)
	term("art_id", q.ArtID)
	if q.ActiveOnly {
		filters = append(filters, map[string]any{"term": map[string]any{"is_active": true}})
	}
	if q.MinPrice != nil || q.MaxPrice != nil {
		r := map[string]any{}
		if q.MinPrice != nil {
			r["gte"] = *q.MinPrice
		}
		if q.MaxPrice != nil {
			r["lte"] = *q.MaxPrice
		}
		filters = append(filters, map[string]any{"range": map[string]any{"price": r}})
	}

	boolQuery := map[string]any{"must": []any{must}}
	if len(filters) > 0 {
		boolQuery["filter"] = filters
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	return map[string]any{
		"query":            map[string]any{"bool": boolQuery},
		"from":             max(q.Offset, 0),
		"size":             limit,
		"sort":             buildSort(q.Sort),
		"_source":          false,
		"track_total_hits": true,
	}
}

func buildSort(order repository.SortOrder) []any {
	field, dir := "", "asc"
	switch order {
	case repository.SortNameAsc:
		field = "name.keyword"
	case repository.SortNameDesc:
		field, dir = "name.keyword", "desc"
	case repository.SortCreatedAsc:
		field = "created_at"
	case repository.SortCreatedDesc:
		field, dir = "created_at", "desc"
	case repository.SortPriceAsc:
		field = "price"
	case repository.SortPriceDesc:
		field, dir = "price", "desc"
	}
	if field == "" {
		return []any{map[string]any{"_score": "desc"}}
	}
	return []any{map[string]any{field: dir}, map[string]any{"_score": "desc"}}
}

func responseError(op string, res *esapi.Response) error {
	var er errorResponse
	if err := json.NewDecoder(res.Body).Decode(&er); err == nil && er.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, er.Error.Type, er.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, res.Status())
}

func closeBody(res *esapi.Response) {
	if res != nil && res.Body != nil {
		_, _ = io.Copy(io.Discard, res.Body)
		_ = res.Body.Close()
	}
}
