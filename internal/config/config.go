package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/sports-feed/internal/platform/logging"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"

	DBDriverPostgres = "postgres"
	DBDriverMemory   = "memory"

	LiveProviderAPIFootball = "apifootball"
	LiveProviderOddsAPI     = "oddsapi"

	DispatchLocal  = "local"
	DispatchQStash = "qstash"

	// Default schedules share one worker, so they never fire on the same
	// minute: matches on :00 and :30, live scores on odd minutes, news on :10.
	DefaultMatchesSchedule    = "*/30 * * * *"
	DefaultLiveScoresSchedule = "1-59/2 * * * *"
	DefaultNewsSchedule       = "10 * * * *"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                     string
	ServiceName                string
	ServiceVersion             string
	HTTPAddr                   string
	ReadTimeout                time.Duration
	WriteTimeout               time.Duration
	CORSAllowedOrigins         []string
	LogLevel                   logging.Level
	DBDriver                   string
	DBURL                      string
	DBBinaryParameters         bool
	InternalJobToken           string
	MetricsEnabled             bool
	PprofEnabled               bool
	PprofAddr                  string
	UptraceEnabled             bool
	UptraceDSN                 string
	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration

	Provider    ProviderConfig
	APIFootball APIFootballConfig
	NewsAPI     NewsAPIConfig
	OddsAPI     OddsAPIConfig
	Matches     MatchJobConfig
	News        NewsJobConfig
	LiveScores  LiveScoreJobConfig
	Scheduler   SchedulerConfig
}

// ProviderConfig is shared by every upstream client.
type ProviderConfig struct {
	Timeout                time.Duration
	MaxRetries             int
	CircuitEnabled         bool
	CircuitFailureCount    int
	CircuitOpenTimeout     time.Duration
	CircuitHalfOpenMaxReqs int
}

type APIFootballConfig struct {
	BaseURL string
	Host    string
	APIKey  string
}

type NewsAPIConfig struct {
	BaseURL string
	APIKey  string
}

type OddsAPIConfig struct {
	BaseURL  string
	APIKey   string
	DaysFrom int
}

type MatchJobConfig struct {
	CompetitionIDs []int64
	Season         int
	Next           int
}

type NewsJobConfig struct {
	Categories []string
	Language   string
	PageSize   int
}

type LiveScoreJobConfig struct {
	Provider string
	Scopes   []string
}

type SchedulerConfig struct {
	Enabled            bool
	Dispatch           string
	Timezone           string
	RunTimeout         time.Duration
	MatchesSchedule    string
	NewsSchedule       string
	LiveScoresSchedule string
	QStash             QStashConfig
}

// QStashConfig is read only when SCHEDULER_DISPATCH=qstash.
type QStashConfig struct {
	BaseURL       string `validate:"required,http_url"`
	Token         string `validate:"required"`
	TargetBaseURL string `validate:"required,http_url"`
	Retries       int    `validate:"gte=0"`
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:             appEnv,
		ServiceName:        getEnv("APP_SERVICE_NAME", "sports-feed"),
		ServiceVersion:     getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:           getEnv("APP_HTTP_ADDR", ":8080"),
		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:           logging.ParseLevel(getEnv("LOG_LEVEL", "info")),
		DBURL:              strings.TrimSpace(getEnv("DB_URL", "")),
		InternalJobToken:   strings.TrimSpace(getEnv("INTERNAL_JOB_TOKEN", "")),
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	if cfg.ReadTimeout, err = getEnvAsDuration("APP_READ_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	// Job invocations hold the request open for the whole run.
	if cfg.WriteTimeout, err = getEnvAsDuration("APP_WRITE_TIMEOUT", 5*time.Minute); err != nil {
		return Config{}, err
	}

	if err := loadDB(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadObservability(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadProviders(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadJobs(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadScheduler(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadDB(cfg *Config) error {
	driver := strings.ToLower(strings.TrimSpace(getEnv("DB_DRIVER", DBDriverPostgres)))
	switch driver {
	case DBDriverPostgres:
		if cfg.DBURL == "" {
			return fmt.Errorf("DB_URL is required when DB_DRIVER=%s", DBDriverPostgres)
		}
	case DBDriverMemory:
	default:
		return fmt.Errorf("invalid DB_DRIVER %q: valid values are %s, %s", driver, DBDriverPostgres, DBDriverMemory)
	}
	cfg.DBDriver = driver

	binaryParameters, err := getEnvAsBool("DB_BINARY_PARAMETERS", true)
	if err != nil {
		return err
	}
	cfg.DBBinaryParameters = binaryParameters
	return nil
}

func loadObservability(cfg *Config) error {
	var err error

	if cfg.MetricsEnabled, err = getEnvAsBool("METRICS_ENABLED", true); err != nil {
		return err
	}

	if cfg.PprofEnabled, err = getEnvAsBool("PPROF_ENABLED", false); err != nil {
		return err
	}
	cfg.PprofAddr = strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if cfg.PprofEnabled && cfg.PprofAddr == "" {
		return fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	if cfg.UptraceEnabled, err = getEnvAsBool("UPTRACE_ENABLED", false); err != nil {
		return err
	}
	cfg.UptraceDSN = strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if cfg.UptraceDSN == "" {
		cfg.UptraceDSN = parseUptraceDSNFromOTLPHeaders(getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""))
	}
	if cfg.UptraceEnabled && cfg.UptraceDSN == "" {
		return fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	if cfg.PyroscopeEnabled, err = getEnvAsBool("PYROSCOPE_ENABLED", false); err != nil {
		return err
	}
	cfg.PyroscopeServerAddress = strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if cfg.PyroscopeEnabled && cfg.PyroscopeServerAddress == "" {
		return fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	cfg.PyroscopeAuthToken = strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", ""))
	cfg.PyroscopeBasicAuthUser = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", ""))
	cfg.PyroscopeBasicAuthPassword = strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", ""))
	if cfg.PyroscopeUploadRate, err = getEnvAsDuration("PYROSCOPE_UPLOAD_RATE", 15*time.Second); err != nil {
		return err
	}
	if cfg.PyroscopeUploadRate <= 0 {
		return fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}
	return nil
}

func loadProviders(cfg *Config) error {
	var err error
	p := &cfg.Provider

	if p.Timeout, err = getEnvAsDuration("PROVIDER_TIMEOUT", 15*time.Second); err != nil {
		return err
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be > 0")
	}
	if p.MaxRetries, err = getEnvAsInt("PROVIDER_MAX_RETRIES", 0); err != nil {
		return err
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("PROVIDER_MAX_RETRIES must be >= 0")
	}
	if p.CircuitEnabled, err = getEnvAsBool("PROVIDER_CIRCUIT_ENABLED", true); err != nil {
		return err
	}
	if p.CircuitFailureCount, err = getEnvAsInt("PROVIDER_CIRCUIT_FAILURE_COUNT", 5); err != nil {
		return err
	}
	if p.CircuitFailureCount < 1 {
		return fmt.Errorf("PROVIDER_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	if p.CircuitOpenTimeout, err = getEnvAsDuration("PROVIDER_CIRCUIT_OPEN_TIMEOUT", 30*time.Second); err != nil {
		return err
	}
	if p.CircuitOpenTimeout <= 0 {
		return fmt.Errorf("PROVIDER_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	if p.CircuitHalfOpenMaxReqs, err = getEnvAsInt("PROVIDER_CIRCUIT_HALF_OPEN_MAX_REQ", 1); err != nil {
		return err
	}
	if p.CircuitHalfOpenMaxReqs < 1 {
		return fmt.Errorf("PROVIDER_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	// Missing keys are not fatal here: the affected job fails on invocation.
	cfg.APIFootball = APIFootballConfig{
		BaseURL: strings.TrimSpace(getEnv("APIFOOTBALL_BASE_URL", "https://api-football-v1.p.rapidapi.com/v3")),
		Host:    strings.TrimSpace(getEnv("APIFOOTBALL_HOST", "api-football-v1.p.rapidapi.com")),
		APIKey:  strings.TrimSpace(getEnv("RAPIDAPI_KEY", "")),
	}
	cfg.NewsAPI = NewsAPIConfig{
		BaseURL: strings.TrimSpace(getEnv("NEWSAPI_BASE_URL", "https://newsapi.org/v2")),
		APIKey:  strings.TrimSpace(getEnv("NEWSAPI_KEY", "")),
	}
	daysFrom, err := getEnvAsInt("ODDS_API_DAYS_FROM", 1)
	if err != nil {
		return err
	}
	if daysFrom < 1 || daysFrom > 3 {
		return fmt.Errorf("ODDS_API_DAYS_FROM must be between 1 and 3")
	}
	cfg.OddsAPI = OddsAPIConfig{
		BaseURL:  strings.TrimSpace(getEnv("ODDS_API_BASE_URL", "https://api.the-odds-api.com/v4")),
		APIKey:   strings.TrimSpace(getEnv("ODDS_API_KEY", "")),
		DaysFrom: daysFrom,
	}
	return nil
}

func loadJobs(cfg *Config) error {
	competitionIDs, err := parseIDList(getEnv("MATCH_COMPETITION_IDS", "39,140,135,61,2"))
	if err != nil {
		return fmt.Errorf("parse MATCH_COMPETITION_IDS: %w", err)
	}
	season, err := getEnvAsInt("MATCH_SEASON", 2024)
	if err != nil {
		return err
	}
	if season < 1900 {
		return fmt.Errorf("MATCH_SEASON must be a four digit year")
	}
	next, err := getEnvAsInt("MATCH_NEXT", 10)
	if err != nil {
		return err
	}
	if next < 1 {
		return fmt.Errorf("MATCH_NEXT must be >= 1")
	}
	cfg.Matches = MatchJobConfig{CompetitionIDs: competitionIDs, Season: season, Next: next}

	pageSize, err := getEnvAsInt("NEWS_PAGE_SIZE", 20)
	if err != nil {
		return err
	}
	if pageSize < 1 || pageSize > 100 {
		return fmt.Errorf("NEWS_PAGE_SIZE must be between 1 and 100")
	}
	cfg.News = NewsJobConfig{
		Categories: splitCSV(getEnv("NEWS_CATEGORIES", "football,basketball,tennis,baseball,soccer")),
		Language:   strings.TrimSpace(getEnv("NEWS_LANGUAGE", "en")),
		PageSize:   pageSize,
	}
	if len(cfg.News.Categories) == 0 {
		return fmt.Errorf("NEWS_CATEGORIES cannot be empty")
	}

	provider := strings.ToLower(strings.TrimSpace(getEnv("LIVE_SCORE_PROVIDER", LiveProviderAPIFootball)))
	var scopes []string
	switch provider {
	case LiveProviderAPIFootball:
		scopes = splitCSV(getEnv("LIVE_SCORE_SCOPES", "all"))
	case LiveProviderOddsAPI:
		scopes = splitCSV(getEnv("ODDS_API_SPORTS", "soccer_epl,americanfootball_nfl,basketball_nba,icehockey_nhl"))
	default:
		return fmt.Errorf("invalid LIVE_SCORE_PROVIDER %q: valid values are %s, %s", provider, LiveProviderAPIFootball, LiveProviderOddsAPI)
	}
	if len(scopes) == 0 {
		return fmt.Errorf("live score scopes cannot be empty for LIVE_SCORE_PROVIDER=%s", provider)
	}
	cfg.LiveScores = LiveScoreJobConfig{Provider: provider, Scopes: scopes}
	return nil
}

func loadScheduler(cfg *Config) error {
	enabled, err := getEnvAsBool("SCHEDULER_ENABLED", false)
	if err != nil {
		return err
	}
	timezone := strings.TrimSpace(getEnv("SCHEDULER_TIMEZONE", "UTC"))
	if _, err := time.LoadLocation(timezone); err != nil {
		return fmt.Errorf("parse SCHEDULER_TIMEZONE: %w", err)
	}
	runTimeout, err := getEnvAsDuration("SCHEDULER_RUN_TIMEOUT", 5*time.Minute)
	if err != nil {
		return err
	}
	if runTimeout <= 0 {
		return fmt.Errorf("SCHEDULER_RUN_TIMEOUT must be > 0")
	}

	dispatch := strings.ToLower(strings.TrimSpace(getEnv("SCHEDULER_DISPATCH", DispatchLocal)))
	var qstash QStashConfig
	switch dispatch {
	case DispatchLocal:
	case DispatchQStash:
		retries, err := getEnvAsInt("QSTASH_RETRIES", 3)
		if err != nil {
			return err
		}
		if retries < 0 {
			return fmt.Errorf("QSTASH_RETRIES must be >= 0")
		}
		qstash = QStashConfig{
			BaseURL:       strings.TrimSpace(getEnv("QSTASH_BASE_URL", "https://qstash.upstash.io")),
			Token:         strings.TrimSpace(getEnv("QSTASH_TOKEN", "")),
			TargetBaseURL: strings.TrimSpace(getEnv("QSTASH_TARGET_BASE_URL", "")),
			Retries:       retries,
		}
		if enabled && (qstash.Token == "" || qstash.TargetBaseURL == "") {
			return fmt.Errorf("QSTASH_TOKEN and QSTASH_TARGET_BASE_URL are required when SCHEDULER_DISPATCH=qstash")
		}
		if enabled {
			if err := validate.Struct(qstash); err != nil {
				return fmt.Errorf("invalid QSTASH_* config: %w", err)
			}
		}
	default:
		return fmt.Errorf("invalid SCHEDULER_DISPATCH=%q, expected one of: %s, %s", dispatch, DispatchLocal, DispatchQStash)
	}

	cfg.Scheduler = SchedulerConfig{
		Enabled:            enabled,
		Dispatch:           dispatch,
		QStash:             qstash,
		Timezone:           timezone,
		RunTimeout:         runTimeout,
		MatchesSchedule:    getScheduleEnv("SCHEDULE_MATCHES", DefaultMatchesSchedule),
		NewsSchedule:       getScheduleEnv("SCHEDULE_NEWS", DefaultNewsSchedule),
		LiveScoresSchedule: getScheduleEnv("SCHEDULE_LIVE_SCORES", DefaultLiveScoresSchedule),
	}
	return nil
}

// getScheduleEnv distinguishes unset (fallback) from set-but-empty, which
// disables the entry.
func getScheduleEnv(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return strings.TrimSpace(value)
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}

	return out, nil
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return out, nil
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

func parseIDList(raw string) ([]int64, error) {
	items := splitCSV(raw)
	if len(items) == 0 {
		return nil, fmt.Errorf("at least one id is required")
	}

	out := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		value, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", item, err)
		}
		if value <= 0 {
			return nil, fmt.Errorf("id must be > 0, got %d", value)
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out, nil
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
