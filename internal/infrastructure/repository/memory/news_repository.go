package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/sports-feed/internal/domain/news"
	"github.com/riskibarqy/sports-feed/internal/platform/id"
)

type NewsRepository struct {
	mu    sync.RWMutex
	ids   id.Generator
	items map[string]news.Article
	now   func() time.Time
}

func NewNewsRepository(ids id.Generator) *NewsRepository {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &NewsRepository{
		ids:   ids,
		items: make(map[string]news.Article),
		now:   time.Now,
	}
}

func (r *NewsRepository) InsertIfAbsent(_ context.Context, item news.Article) (bool, error) {
	if err := item.Validate(); err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.URL]; exists {
		return false, nil
	}
	newID, err := r.ids.NewID()
	if err != nil {
		return false, fmt.Errorf("insert article: %w", err)
	}
	item.ID = newID
	item.CreatedAt = r.now().UTC()
	r.items[item.URL] = item
	return true, nil
}

// List orders by published time, newest first; unpublished items sort last.
func (r *NewsRepository) List(_ context.Context, sport string, limit int) ([]news.Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]news.Article, 0, len(r.items))
	for _, item := range r.items {
		if sport != "" && !strings.EqualFold(item.Sport, sport) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].PublishedAt, out[j].PublishedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetByURL is used by tests to inspect the stored version of an article.
func (r *NewsRepository) GetByURL(url string) (news.Article, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[url]
	return item, ok
}

func (r *NewsRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
