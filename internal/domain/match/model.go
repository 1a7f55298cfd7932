package match

import (
	"fmt"
	"strings"
	"time"
)

// Match is a fixture stitched to its league and both teams.
type Match struct {
	ID             string
	ExternalID     string
	LeagueID       string
	HomeTeamID     string
	AwayTeamID     string
	MatchDate      time.Time
	Status         string
	StatusCategory Category
	HomeScore      int
	AwayScore      int
	Venue          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Validate rejects rows that would reference an unresolved league or team.
func (m Match) Validate() error {
	if strings.TrimSpace(m.ExternalID) == "" {
		return fmt.Errorf("match external id is required")
	}
	if m.LeagueID == "" {
		return fmt.Errorf("match league id is required")
	}
	if m.HomeTeamID == "" || m.AwayTeamID == "" {
		return fmt.Errorf("match home and away team ids are required")
	}
	if m.MatchDate.IsZero() {
		return fmt.Errorf("match date is required")
	}
	return nil
}

// ScorePatch is the subset of fields the live updater is allowed to touch.
type ScorePatch struct {
	HomeScore int
	AwayScore int
	Status    string
}
