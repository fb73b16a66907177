// Package experts answers "which experts can handle these products" from the
// Elasticsearch expert index, with a redis cache in front.
package experts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"prospect-onboarding/internal/common/logger"
	"prospect-onboarding/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

const maxCandidates = 50

type Directory struct {
	es     *elasticsearch.Client
	index  string
	cache  *Cache
	logger logger.Logger
}

// NewDirectory builds a directory over index. cache may be nil.
func NewDirectory(es *elasticsearch.Client, index string, cache *Cache, log logger.Logger) *Directory {
	return &Directory{
		es:     es,
		index:  index,
		cache:  cache,
		logger: log.WithFields(map[string]interface{}{"component": "expert-directory"}),
	}
}

type expertDoc struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	CompanyName    string   `json:"company_name"`
	Email          string   `json:"email"`
	Specialties    []string `json:"specialties"`
	ProductIDs     []string `json:"product_ids"`
	Rating         float64  `json:"rating"`
	CompletedCount int      `json:"completed_count"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string    `json:"_id"`
			Source expertDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// ExpertsForProducts returns active experts covering at least one of the
// products, best rated first.
func (d *Directory) ExpertsForProducts(ctx context.Context, productIDs []string) ([]models.Expert, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}

	if d.cache != nil {
		experts, ok, err := d.cache.Get(ctx, productIDs)
		if err != nil {
			d.logger.Warn("expert cache read failed", map[string]interface{}{"error": err.Error()})
		} else if ok {
			return experts, nil
		}
	}

	experts, err := d.search(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	if d.cache != nil {
		if err := d.cache.Set(ctx, productIDs, experts); err != nil {
			d.logger.Warn("expert cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	d.logger.Debug("experts found", map[string]interface{}{
		"products": len(productIDs),
		"experts":  len(experts),
	})
	return experts, nil
}

func (d *Directory) search(ctx context.Context, productIDs []string) ([]models.Expert, error) {
	query := map[string]interface{}{
		"size": maxCandidates,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"terms": map[string]interface{}{"product_ids": productIDs}},
					map[string]interface{}{"term": map[string]interface{}{"status": "active"}},
				},
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"rating": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"completed_count": map[string]interface{}{"order": "desc"}},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("encode expert query: %w", err)
	}

	res, err := d.es.Search(
		d.es.Search.WithContext(ctx),
		d.es.Search.WithIndex(d.index),
		d.es.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("expert search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("expert search: %s", res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode expert search: %w", err)
	}

	experts := make([]models.Expert, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		doc := hit.Source
		if doc.ID == "" {
			doc.ID = hit.ID
		}
		experts = append(experts, models.Expert{
			ID:             doc.ID,
			Name:           doc.Name,
			CompanyName:    doc.CompanyName,
			Email:          doc.Email,
			Specialties:    doc.Specialties,
			ProductIDs:     doc.ProductIDs,
			Rating:         doc.Rating,
			CompletedCount: doc.CompletedCount,
		})
	}
	return experts, nil
}
