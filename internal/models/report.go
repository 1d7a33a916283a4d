package models

import "time"

type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusApproved ReportStatus = "approved"
	ReportStatusRejected ReportStatus = "rejected"
)

// Report is an inspection report submitted by an engineer against a site.
type Report struct {
	ID            string       `json:"id" db:"id"`
	SiteID        string       `json:"site_id" db:"site_id"`
	InspectorID   string       `json:"inspector_id" db:"inspector_id"`
	Title         string       `json:"title" db:"title"`
	Findings      string       `json:"findings" db:"findings"`
	QualityScore  int          `json:"quality_score" db:"quality_score"`
	Status        ReportStatus `json:"status" db:"status"`
	ReviewComment *string      `json:"review_comment,omitempty" db:"review_comment"`
	ReviewedBy    *string      `json:"reviewed_by,omitempty" db:"reviewed_by"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
	ReviewedAt    *time.Time   `json:"reviewed_at,omitempty" db:"reviewed_at"`
}
