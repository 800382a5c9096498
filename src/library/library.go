// Package library is the read-only query surface of the local media library.
// It answers lookup, browse, search and distinct value queries for the host's
// library browsing interface.
//
// No method returns storage errors to the caller. Failures are logged and
// turned into empty results, so "nothing found" and "something went wrong"
// look the same. The only errors returned are for search and distinct queries
// on unknown fields.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ironsmile/localmedia/src/catalog"
	"github.com/ironsmile/localmedia/src/models"
	"github.com/ironsmile/localmedia/src/translator"
)

// RootDirectoryURI is the URI of the top level browse directory.
const RootDirectoryURI = "local:directory"

// RootDirectory is the Ref for the top level browse directory.
var RootDirectory = models.DirectoryRef(RootDirectoryURI, "Local media")

// URI prefixes of the entities in the catalog.
const (
	albumPrefix     = "local:album"
	artistPrefix    = "local:artist"
	trackPrefix     = "local:track"
	directoryPrefix = "local:directory"
)

// Config is the part of the configuration the query surface needs.
type Config struct {
	// MediaDir is the root directory of the media files.
	MediaDir string

	// Directories are the entries listed when browsing the root directory.
	Directories []models.Ref

	// UseArtistSortName orders artist listings by sort name instead of name.
	UseArtistSortName bool

	// MaxSearchResults caps the number of tracks returned by Search.
	MaxSearchResults int
}

// Provider answers queries against the catalog. It is safe for concurrent use
// but shares the single catalog connection with any writer using the same
// *sql.DB.
type Provider struct {
	db  *sql.DB
	cfg Config
}

// NewProvider returns a Provider which queries the catalog in db.
func NewProvider(db *sql.DB, cfg Config) *Provider {
	return &Provider{
		db:  db,
		cfg: cfg,
	}
}

// Open opens the catalog file at path and returns a Provider for it. Timeout
// is how long queries wait for a writer's lock.
func Open(path string, timeout time.Duration, cfg Config) (*Provider, error) {
	db, err := catalog.Open(path, timeout)
	if err != nil {
		return nil, err
	}
	return NewProvider(db, cfg), nil
}

// Load creates or upgrades the catalog schema and returns the number of tracks
// in the library.
func (p *Provider) Load(ctx context.Context) (int, error) {
	version, err := catalog.Load(ctx, p.db)
	if err != nil {
		return 0, err
	}
	log.Debug().Int("version", version).Msg("using sqlite database schema")

	return catalog.CountTracks(ctx, p.db)
}

// Close releases the catalog connection.
func (p *Provider) Close() error {
	return p.db.Close()
}

// Lookup returns the tracks for a track, album or artist URI. Artist URIs match
// tracks in which the artist is credited in any role.
func (p *Provider) Lookup(ctx context.Context, uri string) []models.Track {
	var kind models.RefType
	switch {
	case strings.HasPrefix(uri, albumPrefix):
		kind = models.RefAlbum
	case strings.HasPrefix(uri, artistPrefix):
		kind = models.RefArtist
	case strings.HasPrefix(uri, trackPrefix):
		kind = models.RefTrack
	default:
		log.Error().Str("uri", uri).Msg("lookup error: invalid lookup URI")
		return []models.Track{}
	}

	tracks, err := catalog.Lookup(ctx, p.db, kind, uri)
	if err != nil {
		log.Error().Err(err).Str("uri", uri).Msg("lookup error")
		return []models.Track{}
	}
	if tracks == nil {
		tracks = []models.Track{}
	}

	return tracks
}

// GetImages returns the images for every album and track URI in uris. Other
// URIs are not present in the result.
func (p *Provider) GetImages(ctx context.Context, uris []string) map[string][]models.Image {
	images := make(map[string][]models.Image)

	for _, uri := range uris {
		var (
			found []models.Image
			err   error
		)

		switch {
		case strings.HasPrefix(uri, albumPrefix):
			found, err = catalog.AlbumImages(ctx, p.db, uri)
		case strings.HasPrefix(uri, trackPrefix):
			found, err = catalog.TrackImages(ctx, p.db, uri)
		default:
			continue
		}

		if err != nil {
			log.Error().Err(err).Str("uri", uri).Msg("error getting images")
			continue
		}
		images[uri] = found
	}

	return images
}

// TranslateURI returns the file URI which the host's playback pipeline should
// use for a local track URI.
func (p *Provider) TranslateURI(uri string) (string, error) {
	fileURI, err := translator.LocalURIToFileURI(uri, p.cfg.MediaDir)
	if err != nil {
		return "", fmt.Errorf("translating %s: %w", uri, err)
	}
	return fileURI, nil
}
