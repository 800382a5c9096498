// Package storage is the single mutation surface of the media library. It
// validates incoming tracks, extracts their cover art into the image directory
// and drives the catalog within one long running transaction which is only
// committed on Flush and Close.
//
// A Provider is not safe for concurrent use. Writes must be serialized by the
// caller.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/ironsmile/localmedia/src/catalog"
	"github.com/ironsmile/localmedia/src/models"
)

// Config is the part of the configuration the storage provider needs.
type Config struct {
	// MediaDir is the root directory of the media files.
	MediaDir string

	// ImageDir is where extracted cover art is written.
	ImageDir string

	// ImageBaseURI is prepended to image file names to form image URIs.
	ImageBaseURI string

	// AlbumArtFiles are glob patterns for cover art files which are looked
	// up in the directory of every track.
	AlbumArtFiles []string

	// UseArtistMBIDURI derives artist URIs from MusicBrainz IDs if possible.
	UseArtistMBIDURI bool

	// UseAlbumMBIDURI derives album URIs from MusicBrainz IDs if possible.
	UseAlbumMBIDURI bool
}

// Provider stores tracks into the catalog. All writes between two flushes are
// part of the same transaction.
type Provider struct {
	db  *sql.DB
	fs  afero.Fs
	cfg Config
	tx  *sql.Tx

	// loaded is set once Load has brought the schema up to date.
	loaded bool
}

// New returns a Provider which writes into the catalog in db and stores images
// in fs. The Provider takes ownership of db and closes it on Close.
func New(db *sql.DB, fs afero.Fs, cfg Config) *Provider {
	return &Provider{
		db:  db,
		fs:  fs,
		cfg: cfg,
	}
}

// Open opens the catalog at path and returns a Provider for it which uses the
// operating system's file system.
func Open(path string, timeout time.Duration, cfg Config) (*Provider, error) {
	db, err := catalog.Open(path, timeout)
	if err != nil {
		return nil, err
	}
	return New(db, afero.NewOsFs(), cfg), nil
}

// Load creates or upgrades the catalog schema and makes sure the image
// directory exists. It returns the number of tracks in the catalog.
func (p *Provider) Load(ctx context.Context) (int, error) {
	if err := p.fs.MkdirAll(p.cfg.ImageDir, 0o755); err != nil {
		return 0, fmt.Errorf("creating image directory: %w", err)
	}

	version, err := catalog.Load(ctx, p.db)
	if err != nil {
		return 0, err
	}
	log.Debug().Int("version", version).Msg("using sqlite database schema")
	p.loaded = true

	return catalog.CountTracks(ctx, p.db)
}

// Begin returns every track in the catalog.
func (p *Provider) Begin(ctx context.Context) ([]models.Track, error) {
	conn, err := p.conn(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.Tracks(ctx, conn)
}

// Add stores track in the catalog. Cover art is taken from the embedded
// images in tags and from the files next to the track which match one of the
// configured patterns. Failing to extract images does not prevent the track
// from being stored.
func (p *Provider) Add(ctx context.Context, track models.Track, tags *models.Tags) error {
	log.Debug().Str("uri", track.URI).Msg("adding track")

	var images []string
	if track.Album != nil && track.Album.Name != "" {
		images = p.extractImages(track.URI, tags)
		log.Debug().Str("uri", track.URI).Strs("images", images).Msg("extracted images")
	}

	track, err := p.validateTrack(track)
	if err != nil {
		return err
	}

	conn, err := p.conn(ctx)
	if err != nil {
		return err
	}

	return catalog.InsertTrack(ctx, conn, track, images)
}

// Remove deletes the track with uri from the catalog. Albums and artists which
// are left without tracks are removed on Close.
func (p *Provider) Remove(ctx context.Context, uri string) error {
	conn, err := p.conn(ctx)
	if err != nil {
		return err
	}
	return catalog.DeleteTrack(ctx, conn, uri)
}

// Flush commits all changes since the last flush. It reports whether there
// was anything to commit.
func (p *Provider) Flush() (bool, error) {
	if p.tx == nil {
		return false, nil
	}

	tx := p.tx
	p.tx = nil
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing catalog changes: %w", err)
	}

	return true, nil
}

// Close removes orphaned albums and artists, commits all changes and closes
// the catalog. Afterwards every file in the image directory which is not
// referenced by an album is deleted. A catalog which was never loaded is
// only closed.
func (p *Provider) Close(ctx context.Context) error {
	if !p.loaded {
		if p.tx != nil {
			_ = p.tx.Rollback()
			p.tx = nil
		}
		return p.db.Close()
	}

	conn, err := p.conn(ctx)
	if err != nil {
		return errors.Join(err, p.db.Close())
	}

	if err := catalog.Cleanup(ctx, conn); err != nil {
		_ = p.tx.Rollback()
		p.tx = nil
		return errors.Join(err, p.db.Close())
	}

	if _, err := p.Flush(); err != nil {
		return errors.Join(err, p.db.Close())
	}

	uris, err := catalog.ImageURIs(ctx, p.db)
	if err := errors.Join(err, p.db.Close()); err != nil {
		return err
	}

	p.cleanupImages(uris)
	return nil
}

// Clear removes every image and empties the catalog. Errors are logged and
// reported as false.
func (p *Provider) Clear(ctx context.Context) bool {
	log.Info().Str("dir", p.cfg.ImageDir).Msg("clearing image directory")
	if err := p.clearImages(); err != nil {
		log.Warn().Err(err).Msg("error clearing image directory")
	}

	if p.tx != nil {
		_ = p.tx.Rollback()
		p.tx = nil
	}

	log.Info().Msg("clearing sqlite database")
	if err := catalog.Clear(ctx, p.db); err != nil {
		log.Error().Err(err).Msg("error clearing sqlite database")
		return false
	}

	return true
}

// conn returns the open transaction, starting one if there is none.
func (p *Provider) conn(ctx context.Context) (catalog.DBTX, error) {
	if p.tx != nil {
		return p.tx, nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting catalog transaction: %w", err)
	}
	p.tx = tx

	return tx, nil
}

// cleanupImages removes the files in the image directory whose URIs are not
// in uris.
func (p *Provider) cleanupImages(uris []string) {
	log.Info().Str("dir", p.cfg.ImageDir).Msg("cleaning up image directory")

	referenced := make(map[string]struct{}, len(uris))
	for _, uri := range uris {
		referenced[uri] = struct{}{}
	}

	err := afero.Walk(p.fs, p.cfg.ImageDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("error walking image directory")
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if _, ok := referenced[p.imageURI(info.Name())]; ok {
			return nil
		}

		log.Info().Str("path", path).Msg("deleting file")
		if err := p.fs.Remove(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("error deleting file")
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Msg("error cleaning up image directory")
	}
}

// clearImages empties the image directory.
func (p *Provider) clearImages() error {
	entries, err := afero.ReadDir(p.fs, p.cfg.ImageDir)
	if errors.Is(err, os.ErrNotExist) {
		return p.fs.MkdirAll(p.cfg.ImageDir, 0o755)
	}
	if err != nil {
		return err
	}

	var errs []error
	for _, entry := range entries {
		errs = append(errs, p.fs.RemoveAll(filepath.Join(p.cfg.ImageDir, entry.Name())))
	}

	return errors.Join(errs...)
}

// imageURI returns the URI under which an image file is served.
func (p *Provider) imageURI(name string) string {
	base := p.cfg.ImageBaseURI
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + name
}
