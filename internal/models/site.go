package models

import "time"

// Site is a construction site under QA oversight. CreatedBy is the admin who
// owns the site and receives report-submitted notifications for it.
type Site struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Location    string    `json:"location" db:"location"`
	CreatedBy   string    `json:"created_by" db:"created_by"`
	EngineerIDs []string  `json:"engineer_ids" db:"engineer_ids"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// HasEngineer reports whether the engineer is assigned to the site.
func (s Site) HasEngineer(engineerID string) bool {
	for _, id := range s.EngineerIDs {
		if id == engineerID {
			return true
		}
	}
	return false
}
