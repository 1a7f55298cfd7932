package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/sports-feed/internal/domain/match"
	"github.com/riskibarqy/sports-feed/internal/platform/id"
)

type MatchRepository struct {
	mu         sync.RWMutex
	ids        id.Generator
	items      map[string]match.Match
	byExternal map[string]string
	now        func() time.Time
}

func NewMatchRepository(ids id.Generator) *MatchRepository {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &MatchRepository{
		ids:        ids,
		items:      make(map[string]match.Match),
		byExternal: make(map[string]string),
		now:        time.Now,
	}
}

func (r *MatchRepository) Upsert(_ context.Context, item match.Match) (match.Match, error) {
	if err := item.Validate(); err != nil {
		return match.Match{}, fmt.Errorf("upsert match: %w", err)
	}
	item.StatusCategory = match.Categorize(item.Status)

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	if existingID, ok := r.byExternal[item.ExternalID]; ok {
		stored := r.items[existingID]
		item.ID = stored.ID
		item.CreatedAt = stored.CreatedAt
		item.UpdatedAt = now
		r.items[existingID] = item
		return item, nil
	}

	newID, err := r.ids.NewID()
	if err != nil {
		return match.Match{}, fmt.Errorf("upsert match: %w", err)
	}
	item.ID = newID
	item.CreatedAt = now
	item.UpdatedAt = now
	r.items[newID] = item
	r.byExternal[item.ExternalID] = newID
	return item, nil
}

func (r *MatchRepository) GetByExternalID(_ context.Context, externalID string) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matchID, ok := r.byExternal[externalID]
	if !ok {
		return match.Match{}, false, nil
	}
	return r.items[matchID], true, nil
}

func (r *MatchRepository) FindByVenue(_ context.Context, venue string) (match.Match, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(venue))
	if needle == "" {
		return match.Match{}, false, nil
	}

	var (
		best  match.Match
		found bool
	)
	for _, item := range r.items {
		if !strings.Contains(strings.ToLower(item.Venue), needle) {
			continue
		}
		if !found || item.MatchDate.After(best.MatchDate) {
			best = item
			found = true
		}
	}
	return best, found, nil
}

func (r *MatchRepository) PatchScore(_ context.Context, matchID string, patch match.ScorePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[matchID]
	if !ok {
		return fmt.Errorf("patch score: match id=%s not found", matchID)
	}
	item.HomeScore = patch.HomeScore
	item.AwayScore = patch.AwayScore
	item.Status = patch.Status
	item.StatusCategory = match.Categorize(patch.Status)
	item.UpdatedAt = r.now().UTC()
	r.items[matchID] = item
	return nil
}

func (r *MatchRepository) ListByLeague(_ context.Context, leagueID string, limit int) ([]match.Match, error) {
	return r.list(func(m match.Match) bool { return m.LeagueID == leagueID }, limit), nil
}

func (r *MatchRepository) ListByCategory(_ context.Context, category match.Category, limit int) ([]match.Match, error) {
	return r.list(func(m match.Match) bool { return m.StatusCategory == category }, limit), nil
}

func (r *MatchRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

func (r *MatchRepository) list(keep func(match.Match) bool, limit int) []match.Match {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]match.Match, 0)
	for _, item := range r.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchDate.Before(out[j].MatchDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
