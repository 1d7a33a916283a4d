package repository

import (
	"database/sql"

	"github.com/sitewatch/sitewatch-api/internal/models"
)

type ReportRepository interface {
	CreateReport(siteID, inspectorID, title, findings string, qualityScore int) (models.Report, error)
	GetReportByID(reportID string) (models.Report, error)
	ListReports(limit, offset int) ([]models.Report, error)
	ListReportsByInspector(inspectorID string, limit, offset int) ([]models.Report, error)
	ReviewReport(reportID, reviewerID string, status models.ReportStatus, comment string) (models.Report, error)
	DashboardStats(days int) (models.DashboardStat, error)
}

type reportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) ReportRepository {
	return &reportRepository{db: db}
}

const reportColumns = "id, site_id, inspector_id, title, findings, quality_score, status, review_comment, reviewed_by, created_at, reviewed_at"

func (r *reportRepository) CreateReport(siteID, inspectorID, title, findings string, qualityScore int) (models.Report, error) {
	query := `
		INSERT INTO reports (site_id, inspector_id, title, findings, quality_score)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + reportColumns

	row := r.db.QueryRow(query, siteID, inspectorID, title, findings, qualityScore)
	return scanReport(row)
}

func (r *reportRepository) GetReportByID(reportID string) (models.Report, error) {
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE id = $1`
	row := r.db.QueryRow(query, reportID)
	return scanReport(row)
}

func (r *reportRepository) ListReports(limit, offset int) ([]models.Report, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	return r.queryReports(query, limit, offset)
}

func (r *reportRepository) ListReportsByInspector(inspectorID string, limit, offset int) ([]models.Report, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `
		SELECT ` + reportColumns + `
		FROM reports
		WHERE inspector_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	return r.queryReports(query, inspectorID, limit, offset)
}

func (r *reportRepository) queryReports(query string, args ...interface{}) ([]models.Report, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reports, nil
}

// ReviewReport records a review verdict. Only pending reports can be reviewed;
// reviewing an already-reviewed report yields sql.ErrNoRows.
func (r *reportRepository) ReviewReport(reportID, reviewerID string, status models.ReportStatus, comment string) (models.Report, error) {
	query := `
		UPDATE reports
		SET status = $2, reviewed_by = $3, review_comment = $4, reviewed_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + reportColumns

	var reviewComment interface{}
	if comment != "" {
		reviewComment = comment
	}

	row := r.db.QueryRow(query, reportID, status, reviewerID, reviewComment)
	return scanReport(row)
}

func (r *reportRepository) DashboardStats(days int) (models.DashboardStat, error) {
	if days <= 0 {
		days = 7
	}

	var stat models.DashboardStat

	const totalsQuery = `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'approved') AS approved,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
		FROM reports`
	if err := r.db.QueryRow(totalsQuery).Scan(&stat.TotalReports, &stat.Pending, &stat.Approved, &stat.Rejected); err != nil {
		return models.DashboardStat{}, err
	}
	if reviewed := stat.Approved + stat.Rejected; reviewed > 0 {
		stat.ApprovalRate = float64(stat.Approved) / float64(reviewed)
	}

	const sitesQuery = `
		SELECT
			s.id, s.name,
			COUNT(r.id) AS total_reports,
			COUNT(r.id) FILTER (WHERE r.status = 'approved') AS approved,
			COUNT(r.id) FILTER (WHERE r.status = 'rejected') AS rejected,
			COUNT(r.id) FILTER (WHERE r.status = 'pending') AS pending
		FROM sites s
		LEFT JOIN reports r ON r.site_id = s.id
		GROUP BY s.id, s.name
		ORDER BY s.name`
	rows, err := r.db.Query(sitesQuery)
	if err != nil {
		return models.DashboardStat{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var site models.SiteComplianceStat
		if err := rows.Scan(&site.SiteID, &site.SiteName, &site.TotalReports, &site.Approved, &site.Rejected, &site.Pending); err != nil {
			return models.DashboardStat{}, err
		}
		if reviewed := site.Approved + site.Rejected; reviewed > 0 {
			site.ApprovalRate = float64(site.Approved) / float64(reviewed)
		}
		stat.Sites = append(stat.Sites, site)
	}
	if err := rows.Err(); err != nil {
		return models.DashboardStat{}, err
	}

	const perDayQuery = `
		SELECT
			date_trunc('day', created_at) AS day,
			COUNT(*) AS submitted,
			COUNT(*) FILTER (WHERE status = 'approved') AS approved,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected
		FROM reports
		WHERE created_at >= now() - ($1 || ' days')::interval
		GROUP BY day
		ORDER BY day`
	dayRows, err := r.db.Query(perDayQuery, days)
	if err != nil {
		return models.DashboardStat{}, err
	}
	defer dayRows.Close()
	for dayRows.Next() {
		var day models.ReportStatDay
		if err := dayRows.Scan(&day.Day, &day.Submitted, &day.Approved, &day.Rejected); err != nil {
			return models.DashboardStat{}, err
		}
		stat.PerDay = append(stat.PerDay, day)
	}
	if err := dayRows.Err(); err != nil {
		return models.DashboardStat{}, err
	}

	return stat, nil
}

func scanReport(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Report, error) {
	var (
		report        models.Report
		reviewComment sql.NullString
		reviewedBy    sql.NullString
		reviewedAt    sql.NullTime
	)

	if err := scanner.Scan(
		&report.ID,
		&report.SiteID,
		&report.InspectorID,
		&report.Title,
		&report.Findings,
		&report.QualityScore,
		&report.Status,
		&reviewComment,
		&reviewedBy,
		&report.CreatedAt,
		&reviewedAt,
	); err != nil {
		return models.Report{}, err
	}

	if reviewComment.Valid {
		val := reviewComment.String
		report.ReviewComment = &val
	}
	if reviewedBy.Valid {
		val := reviewedBy.String
		report.ReviewedBy = &val
	}
	if reviewedAt.Valid {
		t := reviewedAt.Time
		report.ReviewedAt = &t
	}

	return report, nil
}
