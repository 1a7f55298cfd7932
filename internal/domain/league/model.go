package league

import (
	"fmt"
	"strings"
	"time"
)

// League is a competition as reported by the fixture provider.
type League struct {
	ID         string
	ExternalID string
	Name       string
	Sport      string
	Country    string
	Season     string
	LogoURL    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks the fields required before an upsert.
func (l League) Validate() error {
	if strings.TrimSpace(l.ExternalID) == "" {
		return fmt.Errorf("league external id is required")
	}
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("league name is required")
	}
	if strings.TrimSpace(l.Sport) == "" {
		return fmt.Errorf("league sport is required")
	}
	return nil
}
