package oddsapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/riskibarqy/sports-feed/external/providerhttp"
	"github.com/riskibarqy/sports-feed/internal/platform/logging"
	"github.com/riskibarqy/sports-feed/internal/platform/resilience"
	"github.com/riskibarqy/sports-feed/internal/usecase"
)

const (
	defaultBaseURL = "https://api.the-odds-api.com/v4"

	statusFinished = "FT"
	statusLive     = "LIVE"
)

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	DaysFrom       int
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.BreakerConfig
}

// Client reads scores from The Odds API. Its events carry no fixture id
// compatible with stored matches, so each event is reported with the home
// team as a venue hint.
type Client struct {
	http     *providerhttp.Client
	apiKey   string
	daysFrom int
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	daysFrom := cfg.DaysFrom
	if daysFrom <= 0 {
		daysFrom = 1
	}
	apiKey := strings.TrimSpace(cfg.APIKey)

	return &Client{
		http: providerhttp.New(providerhttp.Config{
			Name:           "odds-api",
			HTTPClient:     cfg.HTTPClient,
			BaseURL:        baseURL,
			Timeout:        cfg.Timeout,
			MaxRetries:     cfg.MaxRetries,
			Secrets:        []string{apiKey},
			RedactParams:   []string{"apiKey"},
			Logger:         cfg.Logger,
			CircuitBreaker: cfg.CircuitBreaker,
		}),
		apiKey:   apiKey,
		daysFrom: daysFrom,
	}
}

// FetchLiveEvents returns scored games for one sport key, e.g. soccer_epl.
// Games without scores yet are left out.
func (c *Client) FetchLiveEvents(ctx context.Context, sport string) ([]usecase.ExternalLiveEvent, error) {
	sport = strings.TrimSpace(sport)
	if sport == "" {
		return nil, fmt.Errorf("%w: odds-api sport key is empty", usecase.ErrUpstreamFetch)
	}

	values := url.Values{}
	values.Set("apiKey", c.apiKey)
	values.Set("daysFrom", strconv.Itoa(c.daysFrom))

	var games []scoreGame
	path := "/sports/" + url.PathEscape(sport) + "/scores/"
	if err := c.http.GetJSON(ctx, path, values, &games); err != nil {
		return nil, fmt.Errorf("fetch scores sport=%s: %w", sport, err)
	}

	out := make([]usecase.ExternalLiveEvent, 0, len(games))
	for _, game := range games {
		if len(game.Scores) == 0 {
			continue
		}
		home, away := game.teamScores()
		status := statusLive
		if game.Completed {
			status = statusFinished
		}
		out = append(out, usecase.ExternalLiveEvent{
			VenueHint: strings.TrimSpace(game.HomeTeam),
			HomeScore: home,
			AwayScore: away,
			Status:    status,
		})
	}
	return out, nil
}

type scoreGame struct {
	ID           string       `json:"id"`
	SportKey     string       `json:"sport_key"`
	CommenceTime string       `json:"commence_time"`
	Completed    bool         `json:"completed"`
	HomeTeam     string       `json:"home_team"`
	AwayTeam     string       `json:"away_team"`
	Scores       []scoreEntry `json:"scores"`
}

type scoreEntry struct {
	Name  string `json:"name"`
	Score string `json:"score"`
}

// teamScores matches score entries by team name and falls back to list
// order (home first) when names do not line up.
func (g scoreGame) teamScores() (*int, *int) {
	var home, away *int
	for _, entry := range g.Scores {
		switch {
		case strings.EqualFold(strings.TrimSpace(entry.Name), strings.TrimSpace(g.HomeTeam)):
			home = parseScore(entry.Score)
		case strings.EqualFold(strings.TrimSpace(entry.Name), strings.TrimSpace(g.AwayTeam)):
			away = parseScore(entry.Score)
		}
	}
	if home == nil && len(g.Scores) > 0 {
		home = parseScore(g.Scores[0].Score)
	}
	if away == nil && len(g.Scores) > 1 {
		away = parseScore(g.Scores[1].Score)
	}
	return home, away
}

func parseScore(raw string) *int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &value
}
