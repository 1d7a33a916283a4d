package models

import "time"

// ReportStatDay holds submission counts for a single day.
type ReportStatDay struct {
	Day       time.Time `json:"day" db:"day"`
	Submitted int       `json:"submitted" db:"submitted"`
	Approved  int       `json:"approved" db:"approved"`
	Rejected  int       `json:"rejected" db:"rejected"`
}

// SiteComplianceStat summarizes review outcomes for one site.
type SiteComplianceStat struct {
	SiteID       string  `json:"site_id" db:"site_id"`
	SiteName     string  `json:"site_name" db:"site_name"`
	TotalReports int     `json:"total_reports" db:"total_reports"`
	Approved     int     `json:"approved" db:"approved"`
	Rejected     int     `json:"rejected" db:"rejected"`
	Pending      int     `json:"pending" db:"pending"`
	ApprovalRate float64 `json:"approval_rate" db:"approval_rate"` // approved/(approved+rejected)
}

// DashboardStat is the aggregated stats over a period, plus per-day details.
type DashboardStat struct {
	TotalReports int                  `json:"total_reports"`
	Pending      int                  `json:"pending"`
	Approved     int                  `json:"approved"`
	Rejected     int                  `json:"rejected"`
	ApprovalRate float64              `json:"approval_rate"`
	Sites        []SiteComplianceStat `json:"sites"`
	PerDay       []ReportStatDay      `json:"per_day"`
}
