package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"eventplatform/internal/config"
	"eventplatform/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// maxSearchHits caps how many candidate ids a text search returns
const maxSearchHits = 1000

// substringField is the wildcard subfield used for substring matching
const substringField = "substring"

// searchFields are matched as case-insensitive substrings, like ILIKE '%q%'
var searchFields = []string{"title", "description", "location"}

// ErrTooManyHits means the candidate set was truncated and cannot be used as a filter
var ErrTooManyHits = errors.New("search matched more events than can be returned")

// ElasticsearchClient представляет клиент для работы с Elasticsearch
type ElasticsearchClient struct {
	client *elasticsearch.Client
	config config.ElasticsearchConfig
}

// EventDocument - документ события в индексе
type EventDocument struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	EventTypeID int64     `json:"event_type_id"`
	State       string    `json:"state"`
	Visibility  string    `json:"visibility"`
	OrganizerID int64     `json:"organizer_id"`
	StartTime   time.Time `json:"start_time"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewEventDocument проецирует событие в документ индекса
func NewEventDocument(e *models.Event) EventDocument {
	return EventDocument{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		EventTypeID: e.EventTypeID,
		State:       e.State,
		Visibility:  e.Visibility,
		OrganizerID: e.OrganizerID,
		StartTime:   e.StartTime,
		UpdatedAt:   e.UpdatedAt,
	}
}

// NewElasticsearchClient создает новый клиент Elasticsearch
func NewElasticsearchClient(cfg config.ElasticsearchConfig) (*ElasticsearchClient, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     []string{cfg.URL},
		Username:      cfg.Username,
		Password:      cfg.Password,
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	client := &ElasticsearchClient{
		client: es,
		config: cfg,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	// Check connection and create index if needed
	if err := client.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}

	return client, nil
}

// IndexMapping описывает настройки и маппинг индекса событий
func IndexMapping() map[string]any {
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
			"analysis": map[string]any{
				"analyzer": map[string]any{
					"spanish_analyzer": map[string]any{
						"type":      "custom",
						"tokenizer": "standard",
						"filter":    []string{"lowercase", "asciifolding", "spanish_stop", "spanish_stemmer"},
					},
				},
				"filter": map[string]any{
					"spanish_stop": map[string]any{
						"type":      "stop",
						"stopwords": "_spanish_",
					},
					"spanish_stemmer": map[string]any{
						"type":     "stemmer",
						"language": "light_spanish",
					},
				},
			},
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"id": map[string]any{"type": "long"},
				"title": map[string]any{
					"type":     "text",
					"analyzer": "spanish_analyzer",
					"fields": map[string]any{
						"keyword": map[string]any{
							"type":         "keyword",
							"ignore_above": 256,
						},
						substringField: map[string]any{"type": "wildcard"},
					},
				},
				"description":   substringText(),
				"location":      substringText(),
				"event_type_id": map[string]any{"type": "long"},
				"state":         map[string]any{"type": "keyword"},
				"visibility":    map[string]any{"type": "keyword"},
				"organizer_id":  map[string]any{"type": "long"},
				"start_time": map[string]any{
					"type":   "date",
					"format": "strict_date_optional_time||epoch_millis",
				},
				"updated_at": map[string]any{"type": "date"},
			},
		},
	}
}

func substringText() map[string]any {
	return map[string]any{
		"type":     "text",
		"analyzer": "spanish_analyzer",
		"fields": map[string]any{
			substringField: map[string]any{"type": "wildcard"},
		},
	}
}

// ensureIndex создает индекс если он не существует
func (c *ElasticsearchClient) ensureIndex(ctx context.Context) error {
	req := esapi.IndicesExistsRequest{
		Index: []string{c.config.Index},
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to check index existence: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == 200 {
		slog.Info("Elasticsearch index already exists", "index", c.config.Index)
		return c.updateMapping(ctx)
	}

	mappingJSON, err := json.Marshal(IndexMapping())
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	createReq := esapi.IndicesCreateRequest{
		Index: c.config.Index,
		Body:  bytes.NewReader(mappingJSON),
	}

	createRes, err := createReq.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("failed to create index: %s", createRes.String())
	}

	slog.Info("Created Elasticsearch index", "index", c.config.Index)
	return nil
}

// updateMapping adds fields missing from an existing index.
// Documents indexed before the change need cmd/reindex to get them.
func (c *ElasticsearchClient) updateMapping(ctx context.Context) error {
	mappingJSON, err := json.Marshal(IndexMapping()["mappings"])
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	req := esapi.IndicesPutMappingRequest{
		Index: []string{c.config.Index},
		Body:  bytes.NewReader(mappingJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to update mapping: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("failed to update mapping: %s", res.String())
	}
	return nil
}

// BuildSearchQuery строит запрос поиска по тексту и типу события
func BuildSearchQuery(query string, eventTypeID int64) map[string]any {
	must := []map[string]any{}
	filter := []map[string]any{}

	if query != "" {
		pattern := "*" + escapeWildcard(query) + "*"
		should := make([]map[string]any, 0, len(searchFields))
		for _, field := range searchFields {
			should = append(should, map[string]any{
				"wildcard": map[string]any{
					field + "." + substringField: map[string]any{
						"value":            pattern,
						"case_insensitive": true,
					},
				},
			})
		}
		must = append(must, map[string]any{
			"bool": map[string]any{
				"should":               should,
				"minimum_should_match": 1,
			},
		})
	}

	if eventTypeID > 0 {
		filter = append(filter, map[string]any{
			"term": map[string]any{"event_type_id": eventTypeID},
		})
	}

	if len(must) == 0 && len(filter) == 0 {
		return map[string]any{"match_all": map[string]any{}}
	}

	return map[string]any{
		"bool": map[string]any{
			"must":   must,
			"filter": filter,
		},
	}
}

// escapeWildcard makes every character of q literal inside a wildcard pattern
func escapeWildcard(q string) string {
	return strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`).Replace(q)
}

// SearchIDs возвращает идентификаторы подходящих событий.
// Видимость и порядок определяет вызывающий код.
func (c *ElasticsearchClient) SearchIDs(ctx context.Context, query string, eventTypeID int64) ([]int64, error) {
	searchRequest := map[string]any{
		"query":            BuildSearchQuery(query, eventTypeID),
		"_source":          false,
		"size":             maxSearchHits,
		"track_total_hits": true,
	}

	searchJSON, err := json.Marshal(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.config.Index},
		Body:  bytes.NewReader(searchJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	return decodeHitIDs(res.Body)
}

func decodeHitIDs(body io.Reader) ([]int64, error) {
	var response struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	ids := make([]int64, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("unexpected document id %q: %w", hit.ID, err)
		}
		ids = append(ids, id)
	}

	if response.Hits.Total.Value > len(ids) {
		return nil, fmt.Errorf("%w: %d of %d", ErrTooManyHits, len(ids), response.Hits.Total.Value)
	}
	return ids, nil
}

// IndexEvent индексирует событие
func (c *ElasticsearchClient) IndexEvent(ctx context.Context, event *models.Event) error {
	eventJSON, err := json.Marshal(NewEventDocument(event))
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.config.Index,
		DocumentID: strconv.FormatInt(event.ID, 10),
		Body:       bytes.NewReader(eventJSON),
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to index event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("indexing error: %s", res.String())
	}

	return nil
}

// DeleteEvent удаляет событие
func (c *ElasticsearchClient) DeleteEvent(ctx context.Context, id int64) error {
	req := esapi.DeleteRequest{
		Index:      c.config.Index,
		DocumentID: strconv.FormatInt(id, 10),
		Refresh:    "wait_for",
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete error: %s", res.String())
	}

	return nil
}

// HealthCheck проверяет состояние Elasticsearch
func (c *ElasticsearchClient) HealthCheck(ctx context.Context) error {
	req := esapi.ClusterHealthRequest{
		WaitForStatus: "yellow",
		Timeout:       10 * time.Second,
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("health check error: %s", res.String())
	}

	return nil
}
