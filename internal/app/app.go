package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/sports-feed/external/apifootball"
	"github.com/riskibarqy/sports-feed/external/newsapi"
	"github.com/riskibarqy/sports-feed/external/oddsapi"
	"github.com/riskibarqy/sports-feed/internal/config"
	"github.com/riskibarqy/sports-feed/internal/domain/jobrun"
	"github.com/riskibarqy/sports-feed/internal/domain/league"
	"github.com/riskibarqy/sports-feed/internal/domain/match"
	"github.com/riskibarqy/sports-feed/internal/domain/news"
	"github.com/riskibarqy/sports-feed/internal/domain/team"
	"github.com/riskibarqy/sports-feed/internal/infrastructure/jobqueue"
	"github.com/riskibarqy/sports-feed/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/sports-feed/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/sports-feed/internal/infrastructure/scheduler"
	"github.com/riskibarqy/sports-feed/internal/interfaces/httpapi"
	"github.com/riskibarqy/sports-feed/internal/observability"
	idgen "github.com/riskibarqy/sports-feed/internal/platform/id"
	"github.com/riskibarqy/sports-feed/internal/platform/logging"
	"github.com/riskibarqy/sports-feed/internal/platform/resilience"
	"github.com/riskibarqy/sports-feed/internal/usecase"
)

// App holds the wired services shared by the HTTP server and the CLI.
type App struct {
	cfg     config.Config
	logger  *logging.Logger
	db      *sqlx.DB
	metrics *observability.JobMetrics

	Pipeline *usecase.Pipeline
	Browse   *usecase.BrowseService
}

type repositories struct {
	leagues league.Repository
	teams   team.Repository
	matches match.Repository
	news    news.Repository
	runs    jobrun.Repository
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewJobMetrics("sports_feed"),
	}

	repos, err := a.buildRepositories(ctx)
	if err != nil {
		return nil, err
	}

	ids := idgen.NewUUIDGenerator()
	a.Pipeline = usecase.NewPipeline(repos.runs, ids, logger.Named("pipeline"), a.metrics, a.buildJobs(repos)...)
	a.Browse = usecase.NewBrowseService(repos.leagues, repos.matches, repos.news)

	return a, nil
}

func (a *App) buildRepositories(ctx context.Context) (repositories, error) {
	if a.cfg.DBDriver == config.DBDriverMemory {
		a.logger.Warn("using in-memory storage", "reason", "DB_DRIVER=memory")
		ids := idgen.NewUUIDGenerator()
		return repositories{
			leagues: memory.NewLeagueRepository(ids),
			teams:   memory.NewTeamRepository(ids),
			matches: memory.NewMatchRepository(ids),
			news:    memory.NewNewsRepository(ids),
			runs:    memory.NewJobRunRepository(),
		}, nil
	}

	db, err := openDB(ctx, a.cfg)
	if err != nil {
		return repositories{}, err
	}
	a.db = db

	return repositories{
		leagues: postgres.NewLeagueRepository(db),
		teams:   postgres.NewTeamRepository(db),
		matches: postgres.NewMatchRepository(db),
		news:    postgres.NewNewsRepository(db),
		runs:    postgres.NewJobRunRepository(db),
	}, nil
}

func openDB(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	dbName := dbNameFromURL(cfg.DBURL)
	db, err := otelsqlx.Open("postgres", normalizeDBURL(cfg.DBURL, cfg.DBBinaryParameters),
		otelsql.WithDBSystem("postgresql"),
		otelsql.WithDBName(dbName),
		otelsql.WithAttributes(attribute.String("service.name", cfg.ServiceName)),
		otelsql.WithQueryFormatter(formatDBQueryForTrace),
	)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// buildJobs registers jobs in sync-all order. A provider whose key is missing
// stays nil and its job fails on invocation with a message naming the key.
func (a *App) buildJobs(repos repositories) []usecase.Job {
	cfg := a.cfg
	breaker := a.breakerConfig()

	var fixtures *apifootball.Client
	if cfg.APIFootball.APIKey != "" {
		fixtures = apifootball.NewClient(apifootball.ClientConfig{
			BaseURL:        cfg.APIFootball.BaseURL,
			Host:           cfg.APIFootball.Host,
			APIKey:         cfg.APIFootball.APIKey,
			Timeout:        cfg.Provider.Timeout,
			MaxRetries:     cfg.Provider.MaxRetries,
			Logger:         a.logger.Named("apifootball"),
			CircuitBreaker: breaker,
		})
	} else {
		a.logger.Warn("fixture provider disabled", "reason", "RAPIDAPI_KEY empty")
	}

	var fixtureProvider usecase.FixtureProvider
	if fixtures != nil {
		fixtureProvider = fixtures
	}

	var newsProvider usecase.NewsProvider
	if cfg.NewsAPI.APIKey != "" {
		newsProvider = newsapi.NewClient(newsapi.ClientConfig{
			BaseURL:        cfg.NewsAPI.BaseURL,
			APIKey:         cfg.NewsAPI.APIKey,
			Timeout:        cfg.Provider.Timeout,
			Logger:         a.logger.Named("newsapi"),
			CircuitBreaker: breaker,
		})
	} else {
		a.logger.Warn("news provider disabled", "reason", "NEWSAPI_KEY empty")
	}

	var liveProvider usecase.LiveScoreProvider
	venueFallback := false
	switch cfg.LiveScores.Provider {
	case config.LiveProviderOddsAPI:
		venueFallback = true
		if cfg.OddsAPI.APIKey != "" {
			liveProvider = oddsapi.NewClient(oddsapi.ClientConfig{
				BaseURL:        cfg.OddsAPI.BaseURL,
				APIKey:         cfg.OddsAPI.APIKey,
				DaysFrom:       cfg.OddsAPI.DaysFrom,
				Timeout:        cfg.Provider.Timeout,
				MaxRetries:     cfg.Provider.MaxRetries,
				Logger:         a.logger.Named("oddsapi"),
				CircuitBreaker: breaker,
			})
		} else {
			a.logger.Warn("live score provider disabled", "reason", "ODDS_API_KEY empty")
		}
	default:
		if fixtures != nil {
			liveProvider = fixtures
		} else {
			a.logger.Warn("live score provider disabled", "reason", "RAPIDAPI_KEY empty")
		}
	}

	return []usecase.Job{
		usecase.NewMatchReconciler(fixtureProvider, repos.leagues, repos.teams, repos.matches, usecase.MatchReconcilerConfig{
			CompetitionIDs: cfg.Matches.CompetitionIDs,
			Season:         cfg.Matches.Season,
			Next:           cfg.Matches.Next,
		}, a.logger.Named(usecase.JobFetchMatches), a.metrics),
		usecase.NewLiveScoreUpdater(liveProvider, repos.matches, usecase.LiveScoreUpdaterConfig{
			Scopes:        cfg.LiveScores.Scopes,
			VenueFallback: venueFallback,
		}, a.logger.Named(usecase.JobUpdateLiveScores), a.metrics),
		usecase.NewNewsReconciler(newsProvider, repos.news, usecase.NewsReconcilerConfig{
			Categories: cfg.News.Categories,
			Language:   cfg.News.Language,
			PageSize:   cfg.News.PageSize,
		}, a.logger.Named(usecase.JobFetchNews), a.metrics),
	}
}

func (a *App) breakerConfig() resilience.BreakerConfig {
	return resilience.BreakerConfig{
		Enabled:          a.cfg.Provider.CircuitEnabled,
		FailureThreshold: a.cfg.Provider.CircuitFailureCount,
		OpenTimeout:      a.cfg.Provider.CircuitOpenTimeout,
		HalfOpenProbes:   a.cfg.Provider.CircuitHalfOpenMaxReqs,
	}
}

func (a *App) NewHTTPServer() (*http.Server, error) {
	handler := httpapi.NewHandler(a.Browse, a.Pipeline, a.logger)

	var metricsHandler http.Handler
	if a.cfg.MetricsEnabled {
		metricsHandler = a.metrics.Handler()
	}
	router := httpapi.NewRouter(handler, a.logger.Named("http"), a.cfg.CORSAllowedOrigins, a.cfg.InternalJobToken, metricsHandler)

	server := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       a.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      a.cfg.WriteTimeout,
	}

	if server.Addr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	return server, nil
}

// NewScheduler returns nil when SCHEDULER_ENABLED=false.
func (a *App) NewScheduler() (*scheduler.Scheduler, error) {
	if !a.cfg.Scheduler.Enabled {
		a.logger.Info("scheduler disabled", "reason", "SCHEDULER_ENABLED=false")
		return nil, nil
	}

	loc, err := time.LoadLocation(a.cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone: %w", err)
	}

	var runner scheduler.Runner = a.Pipeline
	if a.cfg.Scheduler.Dispatch == config.DispatchQStash {
		runner = jobqueue.NewQStashDispatcher(jobqueue.QStashDispatcherConfig{
			BaseURL:          a.cfg.Scheduler.QStash.BaseURL,
			Token:            a.cfg.Scheduler.QStash.Token,
			TargetBaseURL:    a.cfg.Scheduler.QStash.TargetBaseURL,
			Retries:          a.cfg.Scheduler.QStash.Retries,
			InternalJobToken: a.cfg.InternalJobToken,
			Timeout:          a.cfg.Provider.Timeout,
			CircuitBreaker:   a.breakerConfig(),
		}, a.logger)
	}

	return scheduler.New(runner, scheduler.Config{
		Location:   loc,
		RunTimeout: a.cfg.Scheduler.RunTimeout,
		Entries:    scheduleEntries(a.cfg.Scheduler),
	}, a.logger)
}

// scheduleEntries follows every matches run with a live score pass so the
// updater sees the fixtures that run just stored.
func scheduleEntries(cfg config.SchedulerConfig) []scheduler.Entry {
	return []scheduler.Entry{
		{Name: "matches", Spec: cfg.MatchesSchedule, Jobs: []string{usecase.JobFetchMatches, usecase.JobUpdateLiveScores}},
		{Name: "live-scores", Spec: cfg.LiveScoresSchedule, Jobs: []string{usecase.JobUpdateLiveScores}},
		{Name: "news", Spec: cfg.NewsSchedule, Jobs: []string{usecase.JobFetchNews}},
	}
}

func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("close postgres: %w", err)
	}
	return nil
}
