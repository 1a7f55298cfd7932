package postgres

import (
	"database/sql"
	"time"
)

type leagueTableModel struct {
	ID         string         `db:"id"`
	ExternalID sql.NullString `db:"external_id"`
	Name       string         `db:"name"`
	Sport      string         `db:"sport"`
	Country    sql.NullString `db:"country"`
	Season     sql.NullString `db:"season"`
	LogoURL    sql.NullString `db:"logo_url"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

type leagueUpsertModel struct {
	ExternalID string  `db:"external_id"`
	Name       string  `db:"name"`
	Sport      string  `db:"sport"`
	Country    *string `db:"country"`
	Season     *string `db:"season"`
	LogoURL    *string `db:"logo_url"`
}

type teamTableModel struct {
	ID         string         `db:"id"`
	ExternalID sql.NullString `db:"external_id"`
	Name       string         `db:"name"`
	Country    sql.NullString `db:"country"`
	LogoURL    sql.NullString `db:"logo_url"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

type teamUpsertModel struct {
	ExternalID string  `db:"external_id"`
	Name       string  `db:"name"`
	Country    *string `db:"country"`
	LogoURL    *string `db:"logo_url"`
}

type matchTableModel struct {
	ID             string         `db:"id"`
	ExternalID     sql.NullString `db:"external_id"`
	LeagueID       string         `db:"league_id"`
	HomeTeamID     string         `db:"home_team_id"`
	AwayTeamID     string         `db:"away_team_id"`
	MatchDate      time.Time      `db:"match_date"`
	Status         string         `db:"status"`
	StatusCategory string         `db:"status_category"`
	HomeScore      int            `db:"home_score"`
	AwayScore      int            `db:"away_score"`
	Venue          sql.NullString `db:"venue"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

type matchUpsertModel struct {
	ExternalID     string    `db:"external_id"`
	LeagueID       string    `db:"league_id"`
	HomeTeamID     string    `db:"home_team_id"`
	AwayTeamID     string    `db:"away_team_id"`
	MatchDate      time.Time `db:"match_date"`
	Status         string    `db:"status"`
	StatusCategory string    `db:"status_category"`
	HomeScore      int       `db:"home_score"`
	AwayScore      int       `db:"away_score"`
	Venue          *string   `db:"venue"`
}

type newsTableModel struct {
	ID          string         `db:"id"`
	Title       string         `db:"title"`
	Description sql.NullString `db:"description"`
	Content     sql.NullString `db:"content"`
	URL         string         `db:"url"`
	ImageURL    sql.NullString `db:"image_url"`
	PublishedAt sql.NullTime   `db:"published_at"`
	Source      sql.NullString `db:"source"`
	Sport       sql.NullString `db:"sport"`
	CreatedAt   time.Time      `db:"created_at"`
}

type newsInsertModel struct {
	Title       string     `db:"title"`
	Description *string    `db:"description"`
	Content     *string    `db:"content"`
	URL         string     `db:"url"`
	ImageURL    *string    `db:"image_url"`
	PublishedAt *time.Time `db:"published_at"`
	Source      *string    `db:"source"`
	Sport       *string    `db:"sport"`
}

type jobRunUpsertModel struct {
	RunID       string     `db:"run_id"`
	JobName     string     `db:"job_name"`
	Trigger     string     `db:"trigger"`
	Status      string     `db:"status"`
	Summary     string     `db:"summary"`
	LastError   *string    `db:"last_error"`
	StartedAt   *time.Time `db:"started_at"`
	CompletedAt *time.Time `db:"completed_at"`
	FailedAt    *time.Time `db:"failed_at"`
	TraceID     *string    `db:"trace_id"`
	SpanID      *string    `db:"span_id"`
}
