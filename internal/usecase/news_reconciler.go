package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/sports-feed/internal/domain/news"
	"github.com/riskibarqy/sports-feed/internal/platform/logging"
)

const JobFetchNews = "fetch-news"

type NewsProvider interface {
	FetchArticles(ctx context.Context, query NewsQuery) ([]ExternalArticle, error)
}

type NewsQuery struct {
	Category string
	Language string
	PageSize int
}

type ExternalArticle struct {
	Title       string
	Description string
	Content     string
	URL         string
	ImageURL    string
	PublishedAt *time.Time
	Source      string
}

type NewsReconcilerConfig struct {
	Categories []string
	Language   string
	PageSize   int
}

type NewsReconcileSummary struct {
	Categories       int `json:"categories"`
	CategoriesFailed int `json:"categoriesFailed"`
	Articles         int `json:"articles"`
	Inserted         int `json:"inserted"`
	Duplicates       int `json:"duplicates"`
	Skipped          int `json:"skipped"`
}

type NewsReconciler struct {
	provider NewsProvider
	articles news.Repository
	cfg      NewsReconcilerConfig
	logger   *logging.Logger
	metrics  JobMetrics
}

func NewNewsReconciler(
	provider NewsProvider,
	articles news.Repository,
	cfg NewsReconcilerConfig,
	logger *logging.Logger,
	metrics JobMetrics,
) *NewsReconciler {
	if logger == nil {
		logger = logging.Default()
	}
	return &NewsReconciler{
		provider: provider,
		articles: articles,
		cfg:      cfg,
		logger:   logger,
		metrics:  metricsOrNoop(metrics),
	}
}

func (s *NewsReconciler) Name() string { return JobFetchNews }

func (s *NewsReconciler) SuccessMessage() string { return "News updated successfully" }

func (s *NewsReconciler) Run(ctx context.Context) (any, error) {
	return s.Reconcile(ctx)
}

// Reconcile inserts provider articles per category. A URL already stored
// keeps its first version.
func (s *NewsReconciler) Reconcile(ctx context.Context) (NewsReconcileSummary, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.NewsReconciler.Reconcile")
	defer span.End()

	var summary NewsReconcileSummary
	if s.provider == nil {
		return summary, fmt.Errorf("%w: news provider is not configured (NEWSAPI_KEY)", ErrDependencyUnavailable)
	}

	for _, category := range s.cfg.Categories {
		summary.Categories++

		items, err := s.provider.FetchArticles(ctx, NewsQuery{
			Category: category,
			Language: s.cfg.Language,
			PageSize: s.cfg.PageSize,
		})
		if err != nil {
			if abortsRun(ctx, err) {
				return summary, fmt.Errorf("fetch articles category=%s: %w", category, err)
			}
			summary.CategoriesFailed++
			s.metrics.ObserveItems(JobFetchNews, "fetch_failed", 1)
			s.logger.WarnContext(ctx, "skip news category: fetch articles failed",
				"category", category,
				"error", err,
			)
			continue
		}

		for _, item := range items {
			if err := ctx.Err(); err != nil {
				return summary, err
			}
			summary.Articles++

			article := news.Article{
				Title:       strings.TrimSpace(item.Title),
				Description: item.Description,
				Content:     item.Content,
				URL:         strings.TrimSpace(item.URL),
				ImageURL:    item.ImageURL,
				PublishedAt: item.PublishedAt,
				Source:      item.Source,
				Sport:       category,
			}
			if err := article.Validate(); err != nil {
				summary.Skipped++
				s.metrics.ObserveItems(JobFetchNews, "skipped", 1)
				s.logger.DebugContext(ctx, "skip article", "category", category, "url", article.URL, "reason", err.Error())
				continue
			}

			inserted, err := s.articles.InsertIfAbsent(ctx, article)
			switch {
			case err != nil:
				summary.Skipped++
				s.metrics.ObserveItems(JobFetchNews, "write_failed", 1)
				s.logger.WarnContext(ctx, "article insert failed", "category", category, "url", article.URL, "error", err)
			case inserted:
				summary.Inserted++
				s.metrics.ObserveItems(JobFetchNews, "inserted", 1)
			default:
				summary.Duplicates++
				s.metrics.ObserveItems(JobFetchNews, "duplicate", 1)
			}
		}
	}

	s.logger.InfoContext(ctx, "news reconcile completed",
		"categories", summary.Categories,
		"categories_failed", summary.CategoriesFailed,
		"articles", summary.Articles,
		"inserted", summary.Inserted,
		"duplicates", summary.Duplicates,
		"skipped", summary.Skipped,
	)
	return summary, nil
}
