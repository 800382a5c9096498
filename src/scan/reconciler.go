// Package scan brings the catalog in line with the files in the media
// directory. A scan runs in four phases: it finds all files with their
// modification times, removes the tracks whose files are gone, picks the new
// and the changed files and finally reads them and stores the results.
//
// Scanning is sequential. Changes are committed every FlushThreshold files so
// an interrupted scan loses at most that many.
package scan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/ironsmile/localmedia/src/models"
	"github.com/ironsmile/localmedia/src/scanner"
	"github.com/ironsmile/localmedia/src/translator"
)

// MinDuration is the length of the shortest track which is added.
const MinDuration = 100 * time.Millisecond

// Storage is where the reconciler stores its results. It is satisfied by
// *storage.Provider.
type Storage interface {
	Load(ctx context.Context) (int, error)
	Begin(ctx context.Context) ([]models.Track, error)
	Add(ctx context.Context, track models.Track, tags *models.Tags) error
	Remove(ctx context.Context, uri string) error
	Flush() (bool, error)
	Close(ctx context.Context) error
}

// Config is the part of the configuration the reconciler needs.
type Config struct {
	// MediaDir is the root directory of the media files.
	MediaDir string

	// FollowSymlinks makes the file search follow symbolic links.
	FollowSymlinks bool

	// IncludedExtensions, when not empty, are the only file extensions
	// which are scanned.
	IncludedExtensions []string

	// ExcludedExtensions are never scanned. Only used when
	// IncludedExtensions is empty.
	ExcludedExtensions []string

	// Timeout is how long scanning a single file may take.
	Timeout time.Duration

	// FlushThreshold is the number of files after which changes are
	// committed. Zero commits only at the end.
	FlushThreshold int
}

// Options change a single scan.
type Options struct {
	// Limit caps the number of files scanned. Zero means no limit.
	Limit int

	// Force rescans files which have not changed.
	Force bool
}

// Reconciler scans the media directory into a Storage.
type Reconciler struct {
	cfg     Config
	storage Storage
	scanner scanner.Scanner
	clock   clockwork.Clock
}

// New returns a Reconciler. Clock is used for timing the scan progress.
func New(cfg Config, storage Storage, sc scanner.Scanner, clock clockwork.Clock) *Reconciler {
	return &Reconciler{
		cfg:     cfg,
		storage: storage,
		scanner: sc,
		clock:   clock,
	}
}

// Run performs a full scan. The storage is always closed at the end, even when
// the scan stops early because of the limit or ctx.
func (r *Reconciler) Run(ctx context.Context, opts Options) (err error) {
	defer func() {
		err = errors.Join(err, r.storage.Close(context.WithoutCancel(ctx)))
	}()

	mediaDir, err := resolveDir(r.cfg.MediaDir)
	if err != nil {
		return err
	}

	mtimes, err := r.findFiles(mediaDir)
	if err != nil {
		return err
	}

	toUpdate, inLibrary, err := r.checkTracks(ctx, mediaDir, mtimes, opts.Force)
	if err != nil {
		return err
	}

	for path := range r.filesToScan(mediaDir, mtimes, inLibrary) {
		toUpdate[path] = struct{}{}
	}

	r.scanFiles(ctx, mediaDir, mtimes, toUpdate, opts.Limit)
	return nil
}

func resolveDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving media directory: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolving media directory: %w", err)
	}
	return resolved, nil
}

func (r *Reconciler) findFiles(mediaDir string) (map[string]int64, error) {
	log.Info().Str("dir", mediaDir).Msg("finding files")

	mtimes, errs, err := FindMtimes(mediaDir, r.cfg.FollowSymlinks)
	if err != nil {
		return nil, err
	}
	log.Info().Str("dir", mediaDir).Msgf("found %d files", len(mtimes))

	if len(errs) > 0 {
		log.Warn().Str("dir", mediaDir).
			Msgf("encountered %d errors while finding files", len(errs))
	}
	for path, err := range errs {
		log.Warn().Err(err).Str("path", path).Msg("error finding file")
	}

	return mtimes, nil
}

// checkTracks removes the tracks whose files are gone. It returns the files
// which changed since they were scanned and all files which are in the
// catalog.
func (r *Reconciler) checkTracks(
	ctx context.Context,
	mediaDir string,
	mtimes map[string]int64,
	force bool,
) (map[string]struct{}, map[string]struct{}, error) {
	count, err := r.storage.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loading library: %w", err)
	}
	log.Info().Msgf("checking %d tracks from library", count)

	tracks, err := r.storage.Begin(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("reading library: %w", err)
	}

	var (
		toRemove  []string
		toUpdate  = make(map[string]struct{})
		inLibrary = make(map[string]struct{})
	)

	for _, track := range tracks {
		path, err := translator.LocalURIToPath(track.URI, mediaDir)
		if err != nil {
			log.Debug().Err(err).Str("uri", track.URI).Msg("removing track: invalid URI")
			toRemove = append(toRemove, track.URI)
			continue
		}

		mtime, ok := mtimes[path]
		switch {
		case !ok:
			log.Debug().Str("uri", track.URI).Msg("removing track: file not found")
			toRemove = append(toRemove, track.URI)
		case mtime > track.LastModified || force:
			toUpdate[path] = struct{}{}
		}
		inLibrary[path] = struct{}{}
	}

	log.Info().Msgf("removing %d missing tracks", len(toRemove))
	for _, uri := range toRemove {
		if err := r.storage.Remove(ctx, uri); err != nil {
			log.Warn().Err(err).Str("uri", uri).Msg("error removing track")
		}
	}

	return toUpdate, inLibrary, nil
}

// filesToScan returns the files which are not in the catalog yet and pass the
// hidden file and extension filters.
func (r *Reconciler) filesToScan(
	mediaDir string,
	mtimes map[string]int64,
	inLibrary map[string]struct{},
) map[string]struct{} {
	included := lowerAll(r.cfg.IncludedExtensions)
	excluded := lowerAll(r.cfg.ExcludedExtensions)

	found := make(map[string]struct{})
	for path := range mtimes {
		rel, err := filepath.Rel(mediaDir, path)
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("skipped file outside of media directory")
			continue
		}

		if isHidden(rel) {
			log.Debug().Str("path", path).Msg("skipped: hidden directory/file")
			continue
		}
		if !extensionAllowed(rel, included, excluded) {
			continue
		}
		if _, ok := inLibrary[path]; ok {
			continue
		}

		found[path] = struct{}{}
	}

	log.Info().Msgf("found %d tracks which need to be updated", len(found))
	return found
}

func isHidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

func extensionAllowed(rel string, included, excluded map[string]struct{}) bool {
	ext := strings.ToLower(filepath.Ext(rel))

	if len(included) > 0 {
		if _, ok := included[ext]; ok {
			log.Debug().Str("path", rel).Msg("added: file extension on included list")
			return true
		}
		log.Debug().Str("path", rel).Msg("skipped: file extension not on included list")
		return false
	}

	if _, ok := excluded[ext]; ok {
		log.Debug().Str("path", rel).Msg("skipped: file extension on excluded list")
		return false
	}

	log.Debug().Str("path", rel).Msg("included: file extension not on excluded list")
	return true
}

func lowerAll(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		set[strings.ToLower(ext)] = struct{}{}
	}
	return set
}

// sortedFiles returns files in case insensitive order.
func sortedFiles(files map[string]struct{}) []string {
	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Slice(paths, func(i, j int) bool {
		li, lj := strings.ToLower(paths[i]), strings.ToLower(paths[j])
		if li != lj {
			return li < lj
		}
		return paths[i] < paths[j]
	})
	return paths
}

func (r *Reconciler) scanFiles(
	ctx context.Context,
	mediaDir string,
	mtimes map[string]int64,
	files map[string]struct{},
	limit int,
) {
	log.Info().Msg("scanning...")

	paths := sortedFiles(files)
	if limit > 0 && limit < len(paths) {
		paths = paths[:limit]
	}

	prog := newProgress(r.clock, r.cfg.FlushThreshold, len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Msg("scan interrupted")
			break
		}

		r.scanFile(ctx, mediaDir, path, mtimes[path])

		if prog.increment() {
			prog.log()
			flushed, err := r.storage.Flush()
			if err != nil {
				log.Error().Err(err).Msg("error flushing progress")
			} else if flushed {
				log.Debug().Msg("progress flushed")
			}
		}
	}

	prog.log()
	log.Info().Msg("done scanning")
}

// scanFile reads a single file and adds it to the storage. Every failure is
// logged and the file is skipped.
func (r *Reconciler) scanFile(ctx context.Context, mediaDir, path string, mtime int64) {
	fileURI, err := translator.PathToFileURI(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed scanning")
		return
	}

	scanCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	res, err := r.scanner.Scan(scanCtx, fileURI)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("uri", fileURI).Msg("failed scanning")
		return
	case !res.Playable:
		log.Warn().Str("uri", fileURI).Msg("failed scanning: no audio found in file")
		return
	case res.Duration == nil:
		log.Warn().Str("uri", fileURI).Msg("failed scanning: no duration information found in file")
		return
	case *res.Duration < MinDuration:
		log.Warn().Str("uri", fileURI).
			Msgf("failed scanning: track shorter than %dms", MinDuration.Milliseconds())
		return
	}

	localURI, err := translator.PathToLocalTrackURI(path, mediaDir)
	if err != nil {
		log.Warn().Err(err).Str("uri", fileURI).Msg("failed scanning")
		return
	}

	track := scanner.TagsToTrack(&res.Tags)
	track.URI = localURI
	track.Length = res.Duration.Milliseconds()
	track.LastModified = mtime

	if err := r.storage.Add(ctx, track, &res.Tags); err != nil {
		log.Warn().Err(err).Str("uri", localURI).Msg("skipped")
		return
	}
	log.Debug().Str("uri", localURI).Msg("added")
}
