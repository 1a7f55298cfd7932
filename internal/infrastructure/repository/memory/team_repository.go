package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/riskibarqy/sports-feed/internal/domain/team"
	"github.com/riskibarqy/sports-feed/internal/platform/id"
)

type TeamRepository struct {
	mu         sync.RWMutex
	ids        id.Generator
	items      map[string]team.Team
	byExternal map[string]string
	now        func() time.Time
}

func NewTeamRepository(ids id.Generator) *TeamRepository {
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}
	return &TeamRepository{
		ids:        ids,
		items:      make(map[string]team.Team),
		byExternal: make(map[string]string),
		now:        time.Now,
	}
}

func (r *TeamRepository) Upsert(_ context.Context, item team.Team) (team.Team, error) {
	if err := item.Validate(); err != nil {
		return team.Team{}, fmt.Errorf("upsert team: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	if existingID, ok := r.byExternal[item.ExternalID]; ok {
		stored := r.items[existingID]
		stored.Name = item.Name
		if item.Country != "" {
			stored.Country = item.Country
		}
		if item.LogoURL != "" {
			stored.LogoURL = item.LogoURL
		}
		stored.UpdatedAt = now
		r.items[existingID] = stored
		return stored, nil
	}

	newID, err := r.ids.NewID()
	if err != nil {
		return team.Team{}, fmt.Errorf("upsert team: %w", err)
	}
	item.ID = newID
	item.CreatedAt = now
	item.UpdatedAt = now
	r.items[newID] = item
	r.byExternal[item.ExternalID] = newID
	return item, nil
}

func (r *TeamRepository) GetByID(_ context.Context, teamID string) (team.Team, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[teamID]
	return item, ok, nil
}

func (r *TeamRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
