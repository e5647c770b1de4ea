package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/FeliksML/web-cellar-sub000/internal/domain"
	"github.com/FeliksML/web-cellar-sub000/internal/search"
)

// Engine is an Elasticsearch-backed search.Engine.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

var _ search.Engine = (*Engine)(nil)

type esSearchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source search.Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an engine for the cluster at esURL. It does not contact the
// cluster; call EnsureIndex before first use. An empty indexName uses
// DefaultIndexName.
func New(esURL, indexName string, logger *slog.Logger) (*Engine, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}
	return NewWithClient(client, indexName, logger), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *elasticsearch.Client, indexName string, logger *slog.Logger) *Engine {
	if indexName == "" {
		indexName = DefaultIndexName
	}
	return &Engine{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}
}

// Ping checks whether the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// EnsureIndex creates the products index with its mapping if it is missing.
func (e *Engine) EnsureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.indexName}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	_ = res.Body.Close()

	if res.StatusCode == http.StatusOK {
		e.logger.InfoContext(ctx, "elasticsearch index already exists", slog.String("index", e.indexName))
		return nil
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index", res)
	}

	e.logger.InfoContext(ctx, "elasticsearch index created", slog.String("index", e.indexName))
	return nil
}

// IndexProduct adds or updates a single product document.
func (e *Engine) IndexProduct(ctx context.Context, product *domain.Product) error {
	doc := search.NewDocument(product)
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal product: %w", err)
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
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch index", res)
	}

	e.logger.DebugContext(ctx, "indexed product", slog.String("id", doc.ID), slog.String("name", doc.Name))
	return nil
}

// DeleteProduct removes a product document. A missing document is not an
// error.
func (e *Engine) DeleteProduct(ctx context.Context, id string) error {
	res, err := e.client.Delete(
		e.indexName,
		id,
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete", res)
	}

	e.logger.DebugContext(ctx, "deleted product", slog.String("id", id))
	return nil
}

// Search runs query against the index. Only active products match.
func (e *Engine) Search(ctx context.Context, query *search.Query) (*search.Result, error) {
	query.Normalize()

	data, err := json.Marshal(buildSearchQuery(query))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
		e.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("elasticsearch search", res)
	}

	var esResp esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	products := make([]domain.Product, 0, len(esResp.Hits.Hits))
	for i := range esResp.Hits.Hits {
		products = append(products, esResp.Hits.Hits[i].Source.Product())
	}

	return &search.Result{
		Products: products,
		Total:    esResp.Hits.Total.Value,
		Page:     query.Page,
		PerPage:  query.PerPage,
	}, nil
}

func buildSearchQuery(query *search.Query) map[string]any {
	var must any
	if text := strings.TrimSpace(query.Text); text != "" {
		must = map[string]any{
			"multi_match": map[string]any{
				"query": text,
				"fields": []string{
					"name^3", "name.autocomplete^2", "short_description",
					"description", "category_name",
				},
				"type":          "best_fields",
				"fuzziness":     "AUTO",
				"prefix_length": 1,
			},
		}
	} else {
		must = map[string]any{"match_all": map[string]any{}}
	}

	return map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   []any{must},
				"filter": buildFilters(query),
			},
		},
		"from":             (query.Page - 1) * query.PerPage,
		"size":             query.PerPage,
		"track_total_hits": true,
		"sort":             buildSort(query.SortBy),
	}
}

func term(field string, value any) map[string]any {
	return map[string]any{"term": map[string]any{field: value}}
}

func buildFilters(query *search.Query) []any {
	filters := []any{term("is_active", true)}

	if query.CategorySlug != nil {
		filters = append(filters, term("category_slug", *query.CategorySlug))
	}

	flags := []struct {
		field string
		value *bool
	}{
		{"is_gluten_free", query.IsGlutenFree},
		{"is_dairy_free", query.IsDairyFree},
		{"is_vegan", query.IsVegan},
		{"is_keto_friendly", query.IsKetoFriendly},
	}
	for _, f := range flags {
		if f.value != nil {
			filters = append(filters, term(f.field, *f.value))
		}
	}

	if query.MinPrice != nil || query.MaxPrice != nil {
		priceRange := map[string]any{}
		if query.MinPrice != nil {
			priceRange["gte"] = *query.MinPrice
		}
		if query.MaxPrice != nil {
			priceRange["lte"] = *query.MaxPrice
		}
		filters = append(filters, map[string]any{
			"range": map[string]any{"price": priceRange},
		})
	}

	return filters
}

func buildSort(sortBy string) []any {
	switch sortBy {
	case search.SortPriceAsc:
		return []any{map[string]any{"price": "asc"}}
	case search.SortPriceDesc:
		return []any{map[string]any{"price": "desc"}}
	case search.SortNewest:
		return []any{map[string]any{"created_at": "desc"}}
	default:
		return []any{map[string]any{"_score": "desc"}, map[string]any{"is_featured": "desc"}}
	}
}

// DeleteIndex removes the whole index. A missing index is not an error.
func (e *Engine) DeleteIndex(ctx context.Context) error {
	res, err := e.client.Indices.Delete(
		[]string{e.indexName},
		e.client.Indices.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete index", res)
	}

	e.logger.InfoContext(ctx, "elasticsearch index deleted", slog.String("index", e.indexName))
	return nil
}

// BulkIndex adds or updates products with the bulk NDJSON API.
func (e *Engine) BulkIndex(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range products {
		doc := search.NewDocument(&products[i])
		action := map[string]any{
			"index": map[string]any{"_index": e.indexName, "_id": doc.ID},
		}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch bulk index", res)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk index: decode response: %w", err)
	}

	if bulkResp.Errors {
		var msgs []string
		for _, item := range bulkResp.Items {
			if item.Index.Error.Type != "" {
				msgs = append(msgs, fmt.Sprintf("id=%s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk index: partial errors: %s", strings.Join(msgs, "; "))
	}

	e.logger.InfoContext(ctx, "bulk indexed products", slog.Int("count", len(products)))
	return nil
}

func responseError(op string, res *esapi.Response) error {
	var errResp esErrorResponse
	if err := json.NewDecoder(res.Body).Decode(&errResp); err == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, res.Status())
}
