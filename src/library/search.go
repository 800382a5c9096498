package library

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ironsmile/localmedia/src/catalog"
	"github.com/ironsmile/localmedia/src/models"
)

// Search finds the tracks which match every (field, values) pair in query.
// Uris limit the search to directories, artists or albums; other URIs are
// ignored. With exact set values must be equal to the indexed ones, otherwise
// they are full text matched.
//
// The number of results is capped by the configured maximum. An error is
// returned only when query names a field which is not searchable.
func (p *Provider) Search(
	ctx context.Context,
	query map[string][]string,
	uris []string,
	exact bool,
	limit, offset int,
) (models.SearchResult, error) {
	terms := queryTerms(query)

	result := models.SearchResult{
		URI:    composeURI("search", termParams(terms)),
		Tracks: []models.Track{},
	}

	var scopes [][]catalog.Filter
	for _, uri := range uris {
		scopes = append(scopes, scopeFilters(uri)...)
	}

	n := p.cfg.MaxSearchResults
	if limit > 0 && limit < n {
		n = limit
	}

	tracks, err := catalog.SearchTracks(ctx, p.db, terms, n, offset, exact, scopes)
	if errors.Is(err, catalog.ErrInvalidField) {
		return result, err
	}
	if err != nil {
		log.Error().Err(err).Str("uri", result.URI).Msg("error searching")
		return result, nil
	}
	if tracks != nil {
		result.Tracks = tracks
	}

	return result, nil
}

// GetDistinct returns the distinct values of field among the tracks matching
// every pair in query. The field "track" is accepted as an alias of
// "track_name".
func (p *Provider) GetDistinct(
	ctx context.Context,
	field string,
	query map[string][]string,
) ([]string, error) {
	if field == "track" {
		field = "track_name"
	}

	values, err := catalog.ListDistinct(ctx, p.db, catalog.SearchField(field), queryTerms(query))
	if errors.Is(err, catalog.ErrInvalidField) {
		return []string{}, err
	}
	if err != nil {
		log.Error().Err(err).Str("field", field).Msg("error listing distinct values")
		return []string{}, nil
	}

	return values, nil
}

// queryTerms flattens query into terms. Keys are sorted so the same query
// always yields the same terms.
func queryTerms(query map[string][]string) []catalog.Term {
	keys := make([]string, 0, len(query))
	for key := range query {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var terms []catalog.Term
	for _, key := range keys {
		for _, value := range query[key] {
			terms = append(terms, catalog.Term{
				Field: catalog.SearchField(key),
				Value: value,
			})
		}
	}

	return terms
}

// termParams encodes terms for the search result URI. Unlike params built by
// with, a key may repeat here.
func termParams(terms []catalog.Term) params {
	ps := make(params, 0, len(terms))
	for _, term := range terms {
		ps = append(ps, param{key: string(term.Field), value: term.Value})
	}
	return ps
}

// scopeFilters returns the filter groups for a search scope URI. A track is in
// scope when it matches all filters of any group.
func scopeFilters(uri string) [][]catalog.Filter {
	switch {
	case strings.HasPrefix(uri, directoryPrefix):
		query, err := parseParams(uri)
		if err != nil {
			log.Warn().Err(err).Str("uri", uri).Msg("ignoring search scope")
			return nil
		}
		if len(query) == 0 {
			return nil
		}
		group := make([]catalog.Filter, 0, len(query))
		for _, q := range query {
			group = append(group, catalog.Filter{Key: catalog.FilterKey(q.key), Value: q.value})
		}
		return [][]catalog.Filter{group}
	case strings.HasPrefix(uri, artistPrefix):
		return [][]catalog.Filter{
			{{Key: catalog.FilterArtist, Value: uri}},
			{{Key: catalog.FilterAlbumArtist, Value: uri}},
		}
	case strings.HasPrefix(uri, albumPrefix):
		return [][]catalog.Filter{
			{{Key: catalog.FilterAlbum, Value: uri}},
		}
	default:
		return nil
	}
}
