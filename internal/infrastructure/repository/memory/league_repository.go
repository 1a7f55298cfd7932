package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/riskibarqy/sports-feed/internal/domain/league"
	"github.com/riskibarqy/sports-feed/internal/platform/id"
)

type LeagueRepository struct {
	mu         sync.RWMutex
	ids        id.Generator
	items      map[string]league.League
	byExternal map[string]string
	now        func() time.Time
}

func NewLeagueRepository(ids id.Generator) *LeagueRepository {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &LeagueRepository{
		ids:        ids,
		items:      make(map[string]league.League),
		byExternal: make(map[string]string),
		now:        time.Now,
	}
}

func (r *LeagueRepository) Upsert(_ context.Context, item league.League) (league.League, error) {
	if err := item.Validate(); err != nil {
		return league.League{}, fmt.Errorf("upsert league: %w", err)
	}

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
		return league.League{}, fmt.Errorf("upsert league: %w", err)
	}
	item.ID = newID
	item.CreatedAt = now
	item.UpdatedAt = now
	r.items[newID] = item
	r.byExternal[item.ExternalID] = newID
	return item, nil
}

func (r *LeagueRepository) List(_ context.Context, sport string) ([]league.League, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]league.League, 0, len(r.items))
	for _, item := range r.items {
		if sport != "" && !strings.EqualFold(item.Sport, sport) {
			continue
		}
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *LeagueRepository) GetByID(_ context.Context, leagueID string) (league.League, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[leagueID]
	return item, ok, nil
}

func (r *LeagueRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
