package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrInvalidField is returned for search or distinct queries on a field which
// is not in the search index.
var ErrInvalidField = errors.New("invalid search field")

// ErrInvalidBrowseType is returned when browsing for an unsupported kind of
// entries.
var ErrInvalidBrowseType = errors.New("invalid browse type")

// ErrInvalidRole is returned when browsing artists with an unknown role.
var ErrInvalidRole = errors.New("invalid artist role")

// FilterKey is one of the supported browse and search filters.
type FilterKey string

// All the filter keys understood by Browse and SearchTracks.
const (
	FilterAlbum       FilterKey = "album"
	FilterAlbumArtist FilterKey = "albumartist"
	FilterArtist      FilterKey = "artist"
	FilterComposer    FilterKey = "composer"
	FilterDate        FilterKey = "date"
	FilterGenre       FilterKey = "genre"
	FilterPerformer   FilterKey = "performer"
	FilterMaxAge      FilterKey = "max-age"
)

// Filter narrows a browse or search to entries matching Value.
type Filter struct {
	Key   FilterKey
	Value string
}

// Role is the role in which an artist is credited.
type Role string

// Artist roles.
const (
	RoleArtist      Role = "artist"
	RoleAlbumArtist Role = "albumartist"
	RoleComposer    Role = "composer"
	RolePerformer   Role = "performer"
)

// BrowseType selects which kind of entries Browse returns.
type BrowseType string

// Supported browse types. BrowseAny lists albums and the tracks which do not
// belong to an album.
const (
	BrowseAny    BrowseType = ""
	BrowseAlbum  BrowseType = "album"
	BrowseArtist BrowseType = "artist"
	BrowseTrack  BrowseType = "track"
)

// predicates maps a filter to a parametrized SQL predicate. Every predicate
// takes exactly one argument, the filter value.
type predicates map[FilterKey]string

var browseFilters = map[BrowseType]predicates{
	BrowseAny: {
		FilterAlbum:       "track.album = ?",
		FilterAlbumArtist: "album.artists = ?",
		FilterArtist:      "track.artists = ?",
		FilterComposer:    "track.composers = ?",
		FilterDate:        "track.date LIKE ? || '%'",
		FilterGenre:       "track.genre = ?",
		FilterPerformer:   "track.performers = ?",
		FilterMaxAge:      "track.last_modified >= (strftime('%s', 'now') - ?) * 1000",
	},
	BrowseArtist: {},
	BrowseAlbum: {
		FilterAlbumArtist: "artists = ?",
		FilterArtist:      "? IN (SELECT artists FROM track WHERE album = album.uri)",
		FilterComposer:    "? IN (SELECT composers FROM track WHERE album = album.uri)",
		FilterDate: `EXISTS (
			SELECT * FROM track WHERE album = album.uri AND date LIKE ? || '%'
		)`,
		FilterGenre:     "? IN (SELECT genre FROM track WHERE album = album.uri)",
		FilterPerformer: "? IN (SELECT performers FROM track WHERE album = album.uri)",
		FilterMaxAge: `EXISTS (
			SELECT *
			  FROM track
			 WHERE album = album.uri
			   AND last_modified >= (strftime('%s', 'now') - ?) * 1000
		)`,
	},
	BrowseTrack: {
		FilterAlbum:       "album = ?",
		FilterAlbumArtist: "? IN (SELECT artists FROM album WHERE uri = track.album)",
		FilterArtist:      "artists = ?",
		FilterComposer:    "composers = ?",
		FilterDate:        "date LIKE ? || '%'",
		FilterGenre:       "genre = ?",
		FilterPerformer:   "performers = ?",
		FilterMaxAge:      "last_modified >= (strftime('%s', 'now') - ?) * 1000",
	},
}

// rolePredicates are the artist browse predicates for every role. They take no
// arguments.
var rolePredicates = map[Role]string{
	RoleAlbumArtist: "EXISTS (SELECT * FROM album WHERE album.artists = artist.uri)",
	RoleArtist:      "EXISTS (SELECT * FROM track WHERE track.artists = artist.uri)",
	RoleComposer:    "EXISTS (SELECT * FROM track WHERE track.composers = artist.uri)",
	RolePerformer:   "EXISTS (SELECT * FROM track WHERE track.performers = artist.uri)",
}

// searchFilters are used for scoping searches. They work on the `tracks` view.
var searchFilters = predicates{
	FilterAlbum:       "album_uri = ?",
	FilterAlbumArtist: "albumartist_uri = ?",
	FilterArtist:      "artist_uri = ?",
	FilterComposer:    "composer_uri = ?",
	FilterDate:        "date LIKE ? || '%'",
	FilterGenre:       "genre = ?",
	FilterPerformer:   "performer_uri = ?",
	FilterMaxAge:      "last_modified >= (strftime('%s', 'now') - ?) * 1000",
}

// build returns the predicates and their arguments for filters. Filters which
// are not supported are skipped.
func (p predicates) build(filters []Filter) ([]string, []any) {
	var (
		where []string
		args  []any
	)

	for _, f := range filters {
		pred, ok := p[f.Key]
		if !ok {
			log.Debug().Str("key", string(f.Key)).Str("value", f.Value).
				Msg("skipped sqlite filter expression")
			continue
		}
		where = append(where, pred)
		args = append(args, f.Value)
	}

	return where, args
}

// roleClause returns the disjunction of the role predicates.
func roleClause(roles []Role) (string, error) {
	clauses := make([]string, 0, len(roles))
	for _, role := range roles {
		pred, ok := rolePredicates[role]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrInvalidRole, role)
		}
		clauses = append(clauses, pred)
	}
	return "(" + strings.Join(clauses, " OR ") + ")", nil
}

// SearchField is a column of the search index.
type SearchField string

// FieldAny matches a value in any of the search fields.
const FieldAny SearchField = "any"

// searchFields are the columns of the `search` view and the `fts` table. The
// order is used when matching FieldAny in exact mode.
var searchFields = []SearchField{
	"uri",
	"track_name",
	"album",
	"artist",
	"composer",
	"performer",
	"albumartist",
	"genre",
	"track_no",
	"disc_no",
	"date",
	"comment",
	"musicbrainz_trackid",
	"musicbrainz_albumid",
	"musicbrainz_artistid",
}

// column returns the search index column for field. Only names from the
// searchFields list are ever returned.
func column(field SearchField) (string, error) {
	for _, f := range searchFields {
		if f == field {
			return string(f), nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidField, field)
}

// anyFieldList is the comma separated list of all search columns.
func anyFieldList() string {
	cols := make([]string, len(searchFields))
	for i, f := range searchFields {
		cols[i] = string(f)
	}
	return strings.Join(cols, ", ")
}
