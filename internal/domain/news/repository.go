package news

import "context"

type Repository interface {
	// InsertIfAbsent stores the article unless its URL is already present.
	// inserted is false for duplicates; the stored row is left untouched.
	InsertIfAbsent(ctx context.Context, item Article) (inserted bool, err error)
	List(ctx context.Context, sport string, limit int) ([]Article, error)
}
