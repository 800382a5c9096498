package webserver

import (
	"context"

	"github.com/ironsmile/localmedia/src/models"
)

// Library is the query surface the handlers answer from. It is satisfied by
// *library.Provider.
type Library interface {
	Lookup(ctx context.Context, uri string) []models.Track
	Browse(ctx context.Context, uri string) []models.Ref
	Search(
		ctx context.Context,
		query map[string][]string,
		uris []string,
		exact bool,
		limit, offset int,
	) (models.SearchResult, error)
	GetDistinct(ctx context.Context, field string, query map[string][]string) ([]string, error)
	GetImages(ctx context.Context, uris []string) map[string][]models.Image
}
