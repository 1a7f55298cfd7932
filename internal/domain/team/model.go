package team

import (
	"fmt"
	"strings"
	"time"
)

// Team is a club or national side referenced by matches.
type Team struct {
	ID         string
	ExternalID string
	Name       string
	Country    string
	LogoURL    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (t Team) Validate() error {
	if strings.TrimSpace(t.ExternalID) == "" {
		return fmt.Errorf("team external id is required")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team name is required")
	}
	return nil
}
