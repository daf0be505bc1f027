package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ESCatalog reads the catalog from a search index instead of Postgres.
type ESCatalog struct {
	client *elasticsearch.Client
	index  string
	size   int
}

func NewESCatalog(client *elasticsearch.Client, index string, size int) *ESCatalog {
	if size <= 0 {
		size = 500
	}
	return &ESCatalog{client: client, index: index, size: size}
}

type esBusinessDoc struct {
	ID           string                 `json:"id"`
	CompanyName  string                 `json:"company_name"`
	Category     string                 `json:"category"`
	Services     map[string]interface{} `json:"services"`
	ServiceAreas []string               `json:"service_areas"`
	PriceMin     float64                `json:"price_min"`
	PriceMax     float64                `json:"price_max"`
	Rating       float64                `json:"rating"`
	ReviewCount  int                    `json:"review_count"`
}

type esSearchResponse struct {
	PitID string `json:"pit_id"`
	Hits  struct {
		Hits []struct {
			ID     string            `json:"_id"`
			Source esBusinessDoc     `json:"_source"`
			Sort   []json.RawMessage `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

const pitKeepAlive = "1m"

type pitQuery struct {
	Query       map[string]interface{} `json:"query"`
	PIT         map[string]string      `json:"pit"`
	Sort        []map[string]string    `json:"sort"`
	// sort values are longs and go back verbatim
	SearchAfter []json.RawMessage      `json:"search_after,omitempty"`
}

// ListBusinesses pages through the whole index under a point in time so
// every document is read exactly once, c.size hits per request.
func (c *ESCatalog) ListBusinesses(ctx context.Context) ([]models.BusinessProfile, error) {
	pitID, err := c.openPIT(ctx)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(c.index, err)
	}
	defer func() { c.closePIT(pitID) }()

	catalog := make([]models.BusinessProfile, 0, c.size)
	var after []json.RawMessage
	for {
		page, err := c.searchPage(ctx, pitID, after)
		if err != nil {
			return nil, apperrors.NewSearchQueryFailedError(c.index, err)
		}
		if page.PitID != "" {
			pitID = page.PitID
		}

		hits := page.Hits.Hits
		for _, hit := range hits {
			catalog = append(catalog, toBusiness(hit.ID, hit.Source))
		}
		if len(hits) < c.size {
			return catalog, nil
		}
		after = hits[len(hits)-1].Sort
		if len(after) == 0 {
			return nil, apperrors.NewSearchQueryFailedError(c.index, fmt.Errorf("hit %s has no sort values", hits[len(hits)-1].ID))
		}
	}
}

func (c *ESCatalog) openPIT(ctx context.Context) (string, error) {
	res, err := esapi.OpenPointInTimeRequest{
		Index:     []string{c.index},
		KeepAlive: pitKeepAlive,
	}.Do(ctx, c.client)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.IsError() {
		return "", fmt.Errorf("open point in time: status %s", res.Status())
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode point in time: %w", err)
	}
	return out.ID, nil
}

func (c *ESCatalog) closePIT(pitID string) {
	body, _ := json.Marshal(map[string]string{"id": pitID})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := esapi.ClosePointInTimeRequest{Body: bytes.NewReader(body)}.Do(ctx, c.client)
	if err == nil {
		res.Body.Close()
	}
}

func (c *ESCatalog) searchPage(ctx context.Context, pitID string, after []json.RawMessage) (*esSearchResponse, error) {
	body, err := json.Marshal(pitQuery{
		Query:       map[string]interface{}{"match_all": map[string]interface{}{}},
		PIT:         map[string]string{"id": pitID, "keep_alive": pitKeepAlive},
		Sort:        []map[string]string{{"_shard_doc": "asc"}},
		SearchAfter: after,
	})
	if err != nil {
		return nil, err
	}

	size := c.size
	res, err := esapi.SearchRequest{
		Body: bytes.NewReader(body),
		Size: &size,
	}.Do(ctx, c.client)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("status %s", res.Status())
	}

	var parsed esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

func toBusiness(hitID string, doc esBusinessDoc) models.BusinessProfile {
	id := doc.ID
	if id == "" {
		id = hitID
	}
	if doc.Services == nil {
		doc.Services = map[string]interface{}{}
	}
	if doc.ServiceAreas == nil {
		doc.ServiceAreas = []string{}
	}
	return models.BusinessProfile{
		ID:           id,
		CompanyName:  doc.CompanyName,
		Category:     doc.Category,
		Services:     doc.Services,
		ServiceAreas: doc.ServiceAreas,
		PriceMin:     doc.PriceMin,
		PriceMax:     doc.PriceMax,
		Rating:       doc.Rating,
		ReviewCount:  doc.ReviewCount,
	}
}
