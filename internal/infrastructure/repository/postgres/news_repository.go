package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/sports-feed/internal/domain/news"
	qb "github.com/riskibarqy/sports-feed/internal/platform/querybuilder"
)

var newsColumns = []string{"id", "title", "description", "content", "url", "image_url", "published_at", "source", "sport", "created_at"}

type NewsRepository struct {
	db *sqlx.DB
}

func NewNewsRepository(db *sqlx.DB) *NewsRepository {
	return &NewsRepository{db: db}
}

func (r *NewsRepository) InsertIfAbsent(ctx context.Context, item news.Article) (bool, error) {
	if err := item.Validate(); err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}

	query, args, err := insertArticleQuery(item)
	if err != nil {
		return false, fmt.Errorf("build insert article query: %w", err)
	}

	var insertedID string
	return articleInserted(r.db.GetContext(ctx, &insertedID, query, args...), item.URL)
}

// insertArticleQuery returns the id only when a row was written; a URL that
// is already stored yields no row.
func insertArticleQuery(item news.Article) (string, []any, error) {
	var publishedAt *time.Time
	if item.PublishedAt != nil {
		v := item.PublishedAt.UTC()
		publishedAt = &v
	}

	return qb.Upsert("sports_news", newsInsertModel{
		Title:       item.Title,
		Description: optionalString(item.Description),
		Content:     optionalString(item.Content),
		URL:         item.URL,
		ImageURL:    optionalString(item.ImageURL),
		PublishedAt: publishedAt,
		Source:      optionalString(item.Source),
		Sport:       optionalString(item.Sport),
	}).
		OnConflict("url").
		DoNothing().
		Returning("id").
		ToSQL()
}

func articleInserted(err error, url string) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case isNotFound(err):
		return false, nil
	default:
		return false, fmt.Errorf("insert article url=%s: %w", url, err)
	}
}

func (r *NewsRepository) List(ctx context.Context, sport string, limit int) ([]news.Article, error) {
	builder := qb.Select(newsColumns...).From("sports_news").
		OrderBy("published_at DESC NULLS LAST", "created_at DESC").
		Limit(limit)
	if sport != "" {
		builder = builder.Where(qb.Eq("sport", sport))
	}
	query, args, err := builder.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select news query: %w", err)
	}

	var rows []newsTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select news: %w", err)
	}

	out := make([]news.Article, 0, len(rows))
	for _, row := range rows {
		item := news.Article{
			ID:          row.ID,
			Title:       row.Title,
			Description: nullStringValue(row.Description),
			Content:     nullStringValue(row.Content),
			URL:         row.URL,
			ImageURL:    nullStringValue(row.ImageURL),
			Source:      nullStringValue(row.Source),
			Sport:       nullStringValue(row.Sport),
			CreatedAt:   row.CreatedAt,
		}
		if row.PublishedAt.Valid {
			v := row.PublishedAt.Time
			item.PublishedAt = &v
		}
		out = append(out, item)
	}
	return out, nil
}
