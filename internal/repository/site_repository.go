package repository

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/sitewatch/sitewatch-api/internal/models"
)

type SiteRepository interface {
	CreateSite(name, location, createdBy string) (models.Site, error)
	GetSiteByID(siteID string) (models.Site, error)
	ListSites() ([]models.Site, error)
	AssignEngineer(siteID, engineerID string) (models.Site, error)
}

type siteRepository struct {
	db *sql.DB
}

func NewSiteRepository(db *sql.DB) SiteRepository {
	return &siteRepository{db: db}
}

func (s *siteRepository) CreateSite(name, location, createdBy string) (models.Site, error) {
	site := models.Site{
		Name:        name,
		Location:    location,
		CreatedBy:   createdBy,
		EngineerIDs: []string{},
	}

	const query = `
		INSERT INTO sites (name, location, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := s.db.QueryRow(query, site.Name, site.Location, site.CreatedBy).Scan(&site.ID, &site.CreatedAt)
	if err != nil {
		return models.Site{}, err
	}

	return site, nil
}

func (s *siteRepository) GetSiteByID(siteID string) (models.Site, error) {
	const query = `
		SELECT id, name, location, created_by, engineer_ids, created_at
		FROM sites
		WHERE id = $1`

	var site models.Site
	var engineers pq.StringArray
	err := s.db.QueryRow(query, siteID).Scan(
		&site.ID,
		&site.Name,
		&site.Location,
		&site.CreatedBy,
		&engineers,
		&site.CreatedAt,
	)
	if err != nil {
		return models.Site{}, err
	}
	site.EngineerIDs = engineers

	return site, nil
}

func (s *siteRepository) ListSites() ([]models.Site, error) {
	const query = `
		SELECT id, name, location, created_by, engineer_ids, created_at
		FROM sites
		ORDER BY name`

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []models.Site
	for rows.Next() {
		var site models.Site
		var engineers pq.StringArray
		if err := rows.Scan(&site.ID, &site.Name, &site.Location, &site.CreatedBy, &engineers, &site.CreatedAt); err != nil {
			return nil, err
		}
		site.EngineerIDs = engineers
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sites, nil
}

// AssignEngineer adds the engineer to the site's assignment list. Assigning an
// already-assigned engineer is a no-op on the stored array.
func (s *siteRepository) AssignEngineer(siteID, engineerID string) (models.Site, error) {
	const query = `
		UPDATE sites
		SET engineer_ids = array_append(engineer_ids, $2)
		WHERE id = $1 AND NOT ($2 = ANY(engineer_ids))
		RETURNING id`

	var id string
	err := s.db.QueryRow(query, siteID, engineerID).Scan(&id)
	if err != nil && err != sql.ErrNoRows {
		return models.Site{}, err
	}

	return s.GetSiteByID(siteID)
}
