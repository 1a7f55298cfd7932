package apifootball

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/sports-feed/external/providerhttp"
	"github.com/riskibarqy/sports-feed/internal/platform/logging"
	"github.com/riskibarqy/sports-feed/internal/platform/resilience"
	"github.com/riskibarqy/sports-feed/internal/usecase"
)

const (
	defaultBaseURL = "https://api-football-v1.p.rapidapi.com/v3"
	defaultHost    = "api-football-v1.p.rapidapi.com"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Host           string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.BreakerConfig
}

// Client reads fixtures from API-Football through RapidAPI.
type Client struct {
	http *providerhttp.Client
}

func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = defaultHost
	}
	apiKey := strings.TrimSpace(cfg.APIKey)

	return &Client{
		http: providerhttp.New(providerhttp.Config{
			Name:       "api-football",
			HTTPClient: cfg.HTTPClient,
			BaseURL:    baseURL,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
			Headers: map[string]string{
				"X-RapidAPI-Key":  apiKey,
				"X-RapidAPI-Host": host,
			},
			Secrets:        []string{apiKey},
			Logger:         cfg.Logger,
			CircuitBreaker: cfg.CircuitBreaker,
		}),
	}
}

// FetchFixtures returns the next fixtures of one competition and season.
func (c *Client) FetchFixtures(ctx context.Context, query usecase.FixtureQuery) ([]usecase.ExternalFixture, error) {
	values := url.Values{}
	values.Set("league", strconv.FormatInt(query.CompetitionID, 10))
	values.Set("season", strconv.Itoa(query.Season))
	if query.Next > 0 {
		values.Set("next", strconv.Itoa(query.Next))
	}

	items, err := c.fetch(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("fetch fixtures league=%d season=%d: %w", query.CompetitionID, query.Season, err)
	}

	out := make([]usecase.ExternalFixture, 0, len(items))
	for _, item := range items {
		fx, err := mapFixture(item)
		if err != nil {
			return nil, err
		}
		out = append(out, fx)
	}
	return out, nil
}

// FetchLiveEvents returns in-progress fixtures. scope is "all" or a
// dash-separated list of league ids, as the provider's live filter expects.
func (c *Client) FetchLiveEvents(ctx context.Context, scope string) ([]usecase.ExternalLiveEvent, error) {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = "all"
	}

	items, err := c.fetch(ctx, url.Values{"live": {scope}})
	if err != nil {
		return nil, fmt.Errorf("fetch live fixtures scope=%s: %w", scope, err)
	}

	out := make([]usecase.ExternalLiveEvent, 0, len(items))
	for _, item := range items {
		out = append(out, usecase.ExternalLiveEvent{
			ExternalID: strconv.FormatInt(item.Fixture.ID, 10),
			VenueHint:  derefString(item.Fixture.Venue.Name),
			HomeScore:  item.Goals.Home,
			AwayScore:  item.Goals.Away,
			Status:     strings.TrimSpace(item.Fixture.Status.Short),
		})
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, values url.Values) ([]fixtureItem, error) {
	var env fixturesEnvelope
	if err := c.http.GetJSON(ctx, "/fixtures", values, &env); err != nil {
		return nil, err
	}
	if msg := env.errorMessage(); msg != "" {
		return nil, fmt.Errorf("%w: api-football rejected request: %s", usecase.ErrUpstreamFetch, msg)
	}
	if err := validate.Struct(env); err != nil {
		return nil, fmt.Errorf("%w: api-football fixtures: %s", usecase.ErrUpstreamSchema, err.Error())
	}
	return env.Response, nil
}

func mapFixture(item fixtureItem) (usecase.ExternalFixture, error) {
	kickoff, err := time.Parse(time.RFC3339, strings.TrimSpace(item.Fixture.Date))
	if err != nil {
		return usecase.ExternalFixture{}, fmt.Errorf("%w: fixture id=%d date %q: %s", usecase.ErrUpstreamSchema, item.Fixture.ID, item.Fixture.Date, err.Error())
	}

	return usecase.ExternalFixture{
		ExternalID: strconv.FormatInt(item.Fixture.ID, 10),
		Date:       kickoff.UTC(),
		Status:     strings.TrimSpace(item.Fixture.Status.Short),
		Venue:      derefString(item.Fixture.Venue.Name),
		HomeGoals:  item.Goals.Home,
		AwayGoals:  item.Goals.Away,
		League: usecase.ExternalLeague{
			ExternalID: strconv.FormatInt(item.League.ID, 10),
			Name:       item.League.Name,
			Country:    item.League.Country,
			Season:     seasonString(item.League.Season),
			LogoURL:    item.League.Logo,
		},
		Home: usecase.ExternalTeam{
			ExternalID: strconv.FormatInt(item.Teams.Home.ID, 10),
			Name:       item.Teams.Home.Name,
			LogoURL:    item.Teams.Home.Logo,
		},
		Away: usecase.ExternalTeam{
			ExternalID: strconv.FormatInt(item.Teams.Away.ID, 10),
			Name:       item.Teams.Away.Name,
			LogoURL:    item.Teams.Away.Logo,
		},
	}, nil
}

func seasonString(season *int) string {
	if season == nil {
		return ""
	}
	return strconv.Itoa(*season)
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}
