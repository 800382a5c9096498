package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ironsmile/localmedia/src/models"
)

// ErrInvalidLookupType is returned by Lookup for anything other than track,
// album and artist lookups.
var ErrInvalidLookupType = errors.New("invalid lookup type")

// Orderings usable with Browse.
var (
	// OrderDefault sorts by entry kind, then by name.
	OrderDefault = []string{"type", "name COLLATE NOCASE"}

	// OrderAlbumTracks keeps tracks in their album order.
	OrderAlbumTracks = []string{"disc_no", "track_no", "name"}

	// OrderArtistSortName sorts artists by their sort name if they have one.
	OrderArtistSortName = []string{"coalesce(sortname, name) COLLATE NOCASE"}
)

// Term is a single (field, value) pair of a search query.
type Term struct {
	Field SearchField
	Value string
}

// Lookup returns the tracks for a track, album or artist URI. Artists match in
// any of their roles.
func Lookup(ctx context.Context, db DBTX, kind models.RefType, uri string) ([]models.Track, error) {
	var where string
	switch kind {
	case models.RefTrack:
		where = "uri = ?"
	case models.RefAlbum:
		where = "album_uri = ?"
	case models.RefArtist:
		where = "? IN (artist_uri, albumartist_uri, composer_uri, performer_uri)"
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidLookupType, kind)
	}

	tracks, err := queryTracks(ctx, db, []string{where}, "docid", false, []any{uri})
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", uri, err)
	}

	return tracks, nil
}

// Browse lists entries of the given type which match all filters. Roles only
// apply to artist listings where an artist must be credited in at least one
// of them. Filters which do not apply to the browse type are ignored. Order is
// a list of expressions from the Order* variables.
func Browse(
	ctx context.Context,
	db DBTX,
	typ BrowseType,
	order []string,
	roles []Role,
	filters []Filter,
) ([]models.Ref, error) {
	preds, ok := browseFilters[typ]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBrowseType, typ)
	}

	where, args := preds.build(filters)
	if typ == BrowseArtist && len(roles) > 0 {
		clause, err := roleClause(roles)
		if err != nil {
			return nil, err
		}
		where = append([]string{clause}, where...)
	}

	whereStr := "1"
	if len(where) > 0 {
		whereStr = strings.Join(where, " AND ")
	}
	orderStr := strings.Join(order, ", ")

	var query string
	switch typ {
	case BrowseAny:
		query = `
			SELECT CASE WHEN album.uri IS NULL THEN 'track' ELSE 'album' END AS type,
			       coalesce(album.uri, track.uri) AS uri,
			       coalesce(album.name, track.name) AS name
			  FROM track LEFT OUTER JOIN album ON track.album = album.uri
			 WHERE ` + whereStr + `
			 GROUP BY coalesce(album.uri, track.uri)
			 ORDER BY ` + orderStr
	case BrowseAlbum:
		query = `
			SELECT 'album' AS type, uri AS uri, name AS name
			  FROM album
			 WHERE ` + whereStr + `
			 ORDER BY ` + orderStr
	case BrowseArtist:
		query = `
			SELECT 'artist' AS type, uri AS uri, name AS name
			  FROM artist
			 WHERE ` + whereStr + `
			 ORDER BY ` + orderStr
	case BrowseTrack:
		query = `
			SELECT 'track' AS type, uri AS uri, name AS name
			  FROM track
			 WHERE ` + whereStr + `
			 ORDER BY ` + orderStr
	}

	log.Debug().Str("query", query).Interface("args", args).Msg("sqlite browse query")

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("browsing %q: %w", typ, err)
	}
	defer rows.Close()

	refs := []models.Ref{}
	for rows.Next() {
		var refType, uri, name string
		if err := rows.Scan(&refType, &uri, &name); err != nil {
			return nil, fmt.Errorf("scanning browse result: %w", err)
		}
		refs = append(refs, models.Ref{Type: models.RefType(refType), URI: uri, Name: name})
	}

	return refs, rows.Err()
}

// SearchTracks finds tracks matching all query terms. With exact set terms
// have to be equal to the indexed value, otherwise they are full text matched.
// Scopes is a list of filter groups: a track has to match every filter in at
// least one group. Groups with no supported filters are ignored. An empty
// query matches every track.
func SearchTracks(
	ctx context.Context,
	db DBTX,
	query []Term,
	limit, offset int,
	exact bool,
	scopes [][]Filter,
) ([]models.Track, error) {
	var (
		where []string
		args  []any
	)

	if len(query) > 0 {
		var (
			clause string
			err    error
		)
		if exact {
			clause, err = indexedQuery(query)
		} else {
			clause, err = fulltextQuery(query)
		}
		if err != nil {
			return nil, err
		}
		where = append(where, clause)
		for _, term := range query {
			args = append(args, term.Value)
		}
	}

	var groups []string
	for _, scope := range scopes {
		preds, scopeArgs := searchFilters.build(scope)
		if len(preds) == 0 {
			log.Debug().Interface("filters", scope).Msg("skipped sqlite search filter")
			continue
		}
		groups = append(groups, "("+strings.Join(preds, " AND ")+")")
		args = append(args, scopeArgs...)
	}
	if len(groups) > 0 {
		where = append(where, "("+strings.Join(groups, " OR ")+")")
	}

	args = append(args, limit, offset)

	tracks, err := queryTracks(ctx, db, where, "docid", true, args)
	if err != nil {
		return nil, fmt.Errorf("searching tracks: %w", err)
	}

	return tracks, nil
}

// indexedQuery matches all terms exactly against the `search` view.
func indexedQuery(query []Term) (string, error) {
	terms := make([]string, 0, len(query))
	for _, term := range query {
		if term.Field == FieldAny {
			terms = append(terms, "? IN ("+anyFieldList()+")")
			continue
		}
		col, err := column(term.Field)
		if err != nil {
			return "", err
		}
		terms = append(terms, col+" = ?")
	}

	return "docid IN (SELECT docid FROM search WHERE " +
		strings.Join(terms, " AND ") + ")", nil
}

// fulltextQuery intersects the full text matches of every term.
func fulltextQuery(query []Term) (string, error) {
	terms := make([]string, 0, len(query))
	for _, term := range query {
		col := "fts"
		if term.Field != FieldAny {
			var err error
			if col, err = column(term.Field); err != nil {
				return "", err
			}
		}
		terms = append(terms, "SELECT docid FROM fts WHERE "+col+" MATCH ?")
	}

	return "docid IN (" + strings.Join(terms, " INTERSECT ") + ")", nil
}

// ListDistinct returns the distinct values of field among the tracks matching
// all query terms exactly.
func ListDistinct(ctx context.Context, db DBTX, field SearchField, query []Term) ([]string, error) {
	col, err := column(field)
	if err != nil {
		return nil, err
	}

	where := []string{col + " IS NOT NULL"}
	args := make([]any, 0, len(query))
	for _, term := range query {
		if term.Field == FieldAny {
			where = append(where, "? IN ("+anyFieldList()+")")
		} else {
			qcol, err := column(term.Field)
			if err != nil {
				return nil, err
			}
			where = append(where, qcol+" = ?")
		}
		args = append(args, term.Value)
	}

	stmt := "SELECT DISTINCT " + col + " FROM search WHERE " +
		strings.Join(where, " AND ") + " ORDER BY 1"
	log.Debug().Str("query", stmt).Interface("args", args).Msg("sqlite list query")

	return queryStrings(ctx, db, stmt, args...)
}

// Dates returns the distinct track dates formatted with an strftime format.
// Partial dates such as "2014" or "2014-03" are completed to the first day.
func Dates(ctx context.Context, db DBTX, format string) ([]string, error) {
	return queryStrings(ctx, db, `
		SELECT DISTINCT(strftime(?, substr(date || '-01-01', 1, 10))) AS date
		  FROM track
		 WHERE date IS NOT NULL
		 ORDER BY date
	`, format)
}

func queryStrings(ctx context.Context, db DBTX, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var val *string
		if err := rows.Scan(&val); err != nil {
			return nil, err
		}
		if val != nil {
			values = append(values, *val)
		}
	}

	return values, rows.Err()
}
