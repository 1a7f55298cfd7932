package httpapi

import (
	"time"

	"github.com/riskibarqy/sports-feed/internal/domain/league"
	"github.com/riskibarqy/sports-feed/internal/domain/match"
	"github.com/riskibarqy/sports-feed/internal/domain/news"
)

type leagueDTO struct {
	ID         string `json:"id"`
	ExternalID string `json:"externalId"`
	Name       string `json:"name"`
	Sport      string `json:"sport"`
	Country    string `json:"country,omitempty"`
	Season     string `json:"season,omitempty"`
	LogoURL    string `json:"logoUrl,omitempty"`
}

type matchDTO struct {
	ID             string    `json:"id"`
	ExternalID     string    `json:"externalId"`
	LeagueID       string    `json:"leagueId"`
	HomeTeamID     string    `json:"homeTeamId"`
	AwayTeamID     string    `json:"awayTeamId"`
	MatchDate      time.Time `json:"matchDate"`
	Status         string    `json:"status"`
	StatusCategory string    `json:"statusCategory"`
	HomeScore      int       `json:"homeScore"`
	AwayScore      int       `json:"awayScore"`
	Venue          string    `json:"venue,omitempty"`
}

type newsDTO struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Content     string     `json:"content,omitempty"`
	URL         string     `json:"url"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	Source      string     `json:"source,omitempty"`
	Sport       string     `json:"sport,omitempty"`
}

func leagueToDTO(l league.League) leagueDTO {
	return leagueDTO{
		ID:         l.ID,
		ExternalID: l.ExternalID,
		Name:       l.Name,
		Sport:      l.Sport,
		Country:    l.Country,
		Season:     l.Season,
		LogoURL:    l.LogoURL,
	}
}

func matchesToDTO(items []match.Match) []matchDTO {
	out := make([]matchDTO, 0, len(items))
	for _, m := range items {
		out = append(out, matchDTO{
			ID:             m.ID,
			ExternalID:     m.ExternalID,
			LeagueID:       m.LeagueID,
			HomeTeamID:     m.HomeTeamID,
			AwayTeamID:     m.AwayTeamID,
			MatchDate:      m.MatchDate.UTC(),
			Status:         m.Status,
			StatusCategory: string(m.StatusCategory),
			HomeScore:      m.HomeScore,
			AwayScore:      m.AwayScore,
			Venue:          m.Venue,
		})
	}
	return out
}

func newsToDTO(a news.Article) newsDTO {
	return newsDTO{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Content:     a.Content,
		URL:         a.URL,
		ImageURL:    a.ImageURL,
		PublishedAt: a.PublishedAt,
		Source:      a.Source,
		Sport:       a.Sport,
	}
}
