package news

import (
	"fmt"
	"strings"
	"time"
)

// Article is a news item keyed by its canonical URL.
type Article struct {
	ID          string
	Title       string
	Description string
	Content     string
	URL         string
	ImageURL    string
	PublishedAt *time.Time
	Source      string
	Sport       string
	CreatedAt   time.Time
}

func (a Article) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("article title is required")
	}
	if strings.TrimSpace(a.URL) == "" {
		return fmt.Errorf("article url is required")
	}
	return nil
}
