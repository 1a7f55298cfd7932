package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/sports-feed/internal/domain/news"
	"github.com/riskibarqy/sports-feed/internal/infrastructure/repository/memory"
	newsmock "github.com/riskibarqy/sports-feed/internal/mocks/domain/news"
	"github.com/riskibarqy/sports-feed/internal/platform/logging"
)

type stubNewsProvider struct {
	byCategory map[string][]ExternalArticle
	errs       map[string]error
}

func (p *stubNewsProvider) FetchArticles(_ context.Context, query NewsQuery) ([]ExternalArticle, error) {
	if err := p.errs[query.Category]; err != nil {
		return nil, err
	}
	return p.byCategory[query.Category], nil
}

func newsReconciler(provider NewsProvider, repo news.Repository, categories ...string) *NewsReconciler {
	return NewNewsReconciler(provider, repo, NewsReconcilerConfig{Categories: categories, Language: "en", PageSize: 20}, logging.NewNop(), nil)
}

func TestNewsReconciler_FirstWriteWins(t *testing.T) {
	t.Parallel()

	repo := memory.NewNewsRepository(nil)
	provider := &stubNewsProvider{byCategory: map[string][]ExternalArticle{
		"football": {{Title: "Derby day", URL: "https://news.example.com/derby", Source: "Example"}},
	}}
	reconciler := newsReconciler(provider, repo, "football")

	first, err := reconciler.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Inserted)

	provider.byCategory["football"] = []ExternalArticle{{Title: "Derby day (updated)", URL: "https://news.example.com/derby"}}
	second, err := reconciler.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 1, second.Duplicates)

	stored, ok := repo.GetByURL("https://news.example.com/derby")
	require.True(t, ok)
	assert.Equal(t, "Derby day", stored.Title)
	assert.Equal(t, "football", stored.Sport)
	assert.Equal(t, 1, repo.Count())
}

func TestNewsReconciler_SameURLAcrossCategories(t *testing.T) {
	t.Parallel()

	repo := memory.NewNewsRepository(nil)
	shared := ExternalArticle{Title: "Transfer window closes", URL: "https://news.example.com/window"}
	provider := &stubNewsProvider{byCategory: map[string][]ExternalArticle{
		"football":   {shared},
		"basketball": {shared},
	}}

	summary, err := newsReconciler(provider, repo, "football", "basketball").Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Inserted)
	assert.Equal(t, 1, summary.Duplicates)

	stored, _ := repo.GetByURL(shared.URL)
	assert.Equal(t, "football", stored.Sport)
}

func TestNewsReconciler_SkipsArticlesWithoutTitleOrURL(t *testing.T) {
	t.Parallel()

	repo := memory.NewNewsRepository(nil)
	provider := &stubNewsProvider{byCategory: map[string][]ExternalArticle{
		"football": {
			{Title: "", URL: "https://news.example.com/untitled"},
			{Title: "No link", URL: "  "},
			{Title: "Kept", URL: "https://news.example.com/kept"},
		},
	}}

	summary, err := newsReconciler(provider, repo, "football").Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Articles)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 1, summary.Inserted)
}

func TestNewsReconciler_FetchFailureSkipsCategory(t *testing.T) {
	t.Parallel()

	repo := memory.NewNewsRepository(nil)
	provider := &stubNewsProvider{
		byCategory: map[string][]ExternalArticle{"tennis": {{Title: "Final set", URL: "https://news.example.com/final"}}},
		errs:       map[string]error{"football": fmt.Errorf("%w: status=429", ErrUpstreamFetch)},
	}

	summary, err := newsReconciler(provider, repo, "football", "tennis").Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.CategoriesFailed)
	assert.Equal(t, 1, summary.Inserted)
}

func TestNewsReconciler_SchemaFailureAborts(t *testing.T) {
	t.Parallel()

	provider := &stubNewsProvider{errs: map[string]error{"football": fmt.Errorf("%w: decode body", ErrUpstreamSchema)}}
	_, err := newsReconciler(provider, memory.NewNewsRepository(nil), "football", "tennis").Reconcile(context.Background())
	require.ErrorIs(t, err, ErrUpstreamSchema)
}

func TestNewsReconciler_WriteFailureContinues(t *testing.T) {
	t.Parallel()

	repo := newsmock.NewRepository(t)
	repo.
		On("InsertIfAbsent", mock.Anything, mock.MatchedBy(func(a news.Article) bool { return a.URL == "https://news.example.com/a" })).
		Return(false, errors.New("connection reset")).
		Once()
	repo.
		On("InsertIfAbsent", mock.Anything, mock.MatchedBy(func(a news.Article) bool { return a.URL == "https://news.example.com/b" })).
		Return(true, nil).
		Once()

	provider := &stubNewsProvider{byCategory: map[string][]ExternalArticle{
		"football": {
			{Title: "A", URL: "https://news.example.com/a"},
			{Title: "B", URL: "https://news.example.com/b"},
		},
	}}

	summary, err := newsReconciler(provider, repo, "football").Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, summary.Inserted)
}

func TestNewsReconciler_MissingProvider(t *testing.T) {
	t.Parallel()

	_, err := newsReconciler(nil, memory.NewNewsRepository(nil), "football").Reconcile(context.Background())
	require.ErrorIs(t, err, ErrDependencyUnavailable)
	assert.Contains(t, err.Error(), "NEWSAPI_KEY")
}
