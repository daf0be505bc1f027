package store

import (
	"context"
	"database/sql"
	"encoding/json"

	apperrors "marketplace-matching/internal/common/errors"
	"marketplace-matching/internal/models"
)

const queryListBusinesses = `
	SELECT b.id, b.company_name, COALESCE(b.category, ''),
	       COALESCE(b.services, '{}'::jsonb), COALESCE(b.service_areas, '[]'::jsonb),
	       COALESCE(b.price_min, 0), COALESCE(b.price_max, 0),
	       COALESCE(AVG(r.rating), 0), COUNT(r.rating)
	FROM business_profiles b
	LEFT JOIN reviews r ON r.business_id = b.id
	GROUP BY b.id
	ORDER BY b.id`

// CatalogRepository lists business profiles with their average review rating.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListBusinesses(ctx context.Context) ([]models.BusinessProfile, error) {
	rows, err := r.db.QueryContext(ctx, queryListBusinesses)
	if err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_businesses", err)
	}
	defer rows.Close()

	catalog := make([]models.BusinessProfile, 0)
	for rows.Next() {
		var (
			b                    models.BusinessProfile
			servicesRaw, areaRaw []byte
		)
		if err := rows.Scan(&b.ID, &b.CompanyName, &b.Category, &servicesRaw, &areaRaw,
			&b.PriceMin, &b.PriceMax, &b.Rating, &b.ReviewCount); err != nil {
			return nil, apperrors.NewQueryExecutionFailedError("list_businesses", err)
		}
		b.Services = decodeServices(servicesRaw)
		b.ServiceAreas = decodeAreas(areaRaw)
		catalog = append(catalog, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueryExecutionFailedError("list_businesses", err)
	}
	return catalog, nil
}

// decodeServices tolerates malformed rows; a business with unreadable
// services simply offers nothing.
func decodeServices(raw []byte) map[string]interface{} {
	services := map[string]interface{}{}
	if len(raw) == 0 {
		return services
	}
	if err := json.Unmarshal(raw, &services); err != nil {
		var list []string
		if json.Unmarshal(raw, &list) == nil {
			services = make(map[string]interface{}, len(list))
			for _, s := range list {
				services[s] = true
			}
			return services
		}
		return map[string]interface{}{}
	}
	return services
}

func decodeAreas(raw []byte) []string {
	var areas []string
	if len(raw) == 0 || json.Unmarshal(raw, &areas) != nil {
		return []string{}
	}
	return areas
}
