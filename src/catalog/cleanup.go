package catalog

import (
	"context"
	"database/sql"
	"fmt"
)

// Cleanup removes albums which no track references and artists which neither
// a track (in any role) nor an album references. It has to be run after every
// batch of deletes. Index statistics are refreshed afterwards.
func Cleanup(ctx context.Context, db DBTX) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM album WHERE NOT EXISTS (
			SELECT uri FROM track WHERE track.album = album.uri
		)
	`)
	if err != nil {
		return fmt.Errorf("removing orphaned albums: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		DELETE FROM artist WHERE NOT EXISTS (
			SELECT uri FROM track WHERE track.artists = artist.uri
			UNION
			SELECT uri FROM track WHERE track.composers = artist.uri
			UNION
			SELECT uri FROM track WHERE track.performers = artist.uri
			UNION
			SELECT uri FROM album WHERE album.artists = artist.uri
		)
	`)
	if err != nil {
		return fmt.Errorf("removing orphaned artists: %w", err)
	}

	if _, err := db.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("analyzing catalog: %w", err)
	}

	return nil
}

// Clear removes every track, album and artist and reclaims the disk space.
// VACUUM cannot run within a transaction so this requires the database handle
// itself.
func Clear(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}

	for _, stmt := range []string{
		"DELETE FROM track",
		"DELETE FROM album",
		"DELETE FROM artist",
		"DELETE FROM fts",
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing %q: %w", stmt, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing clear: %w", err)
	}

	if _, err := db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("vacuuming catalog: %w", err)
	}

	return nil
}
