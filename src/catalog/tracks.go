package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ironsmile/localmedia/src/models"
)

// dbTracksColumns is the column list used for every query which returns
// tracks from the `tracks` view. scanTrack depends on its order.
const dbTracksColumns = `
	uri, name, genre, track_no, disc_no, date, length, bitrate, comment,
	musicbrainz_id, last_modified,
	album_uri, album_name, album_num_tracks, album_num_discs, album_date,
	album_musicbrainz_id,
	albumartist_uri, albumartist_name, albumartist_sortname, albumartist_musicbrainz_id,
	artist_uri, artist_name, artist_sortname, artist_musicbrainz_id,
	composer_uri, composer_name, composer_sortname, composer_musicbrainz_id,
	performer_uri, performer_name, performer_sortname, performer_musicbrainz_id
`

// InsertTrack stores the track together with its album and artists. Rows with
// the same URI are replaced. Images is the list of image URIs stored with the
// album.
func InsertTrack(ctx context.Context, db DBTX, track models.Track, images []string) error {
	albumURI, err := insertAlbum(ctx, db, track.Album, images)
	if err != nil {
		return err
	}

	artistURIs := make([]any, 0, 3)
	for _, artist := range []*models.Artist{track.Artist, track.Composer, track.Performer} {
		uri, err := insertArtist(ctx, db, artist)
		if err != nil {
			return err
		}
		artistURIs = append(artistURIs, uri)
	}

	// Replacing is done as an explicit delete so that the full text index
	// triggers see the old row going away.
	if err := DeleteTrack(ctx, db, track.URI); err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO track (
			uri, name, album, artists, composers, performers, genre, track_no,
			disc_no, date, length, bitrate, comment, musicbrainz_id, last_modified
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		track.URI,
		track.Name,
		albumURI,
		artistURIs[0],
		artistURIs[1],
		artistURIs[2],
		nullString(track.Genre),
		nullInt(int64(track.TrackNo)),
		nullInt(int64(track.DiscNo)),
		nullString(track.Date),
		nullInt(track.Length),
		nullInt(int64(track.Bitrate)),
		nullString(track.Comment),
		nullString(track.MusicBrainzID),
		nullInt(track.LastModified),
	)
	if err != nil {
		return fmt.Errorf("inserting track %s: %w", track.URI, err)
	}

	return nil
}

// insertAlbum stores the album and returns the value for the album reference
// column. Albums without a name are not stored.
func insertAlbum(ctx context.Context, db DBTX, album *models.Album, images []string) (any, error) {
	if album == nil || album.Name == "" {
		return nil, nil
	}

	artistURI, err := insertArtist(ctx, db, album.Artist)
	if err != nil {
		return nil, err
	}

	var imagesVal any
	if len(images) > 0 {
		imagesVal = strings.Join(images, " ")
	}

	_, err = db.ExecContext(ctx, `
		INSERT OR REPLACE INTO album (
			uri, name, artists, num_tracks, num_discs, date, musicbrainz_id, images
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		album.URI,
		album.Name,
		artistURI,
		nullInt(int64(album.NumTracks)),
		nullInt(int64(album.NumDiscs)),
		nullString(album.Date),
		nullString(album.MusicBrainzID),
		imagesVal,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting album %s: %w", album.URI, err)
	}

	return album.URI, nil
}

// insertArtist stores the artist and returns the value for the artist
// reference column.
func insertArtist(ctx context.Context, db DBTX, artist *models.Artist) (any, error) {
	if artist == nil {
		return nil, nil
	}

	_, err := db.ExecContext(ctx, `
		INSERT OR REPLACE INTO artist (uri, name, sortname, musicbrainz_id)
		VALUES (?, ?, ?, ?)
	`,
		artist.URI,
		artist.Name,
		nullString(artist.SortName),
		nullString(artist.MusicBrainzID),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting artist %s: %w", artist.URI, err)
	}

	return artist.URI, nil
}

// DeleteTrack removes a single track. Albums and artists are left alone until
// the next Cleanup.
func DeleteTrack(ctx context.Context, db DBTX, uri string) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM track WHERE uri = ?", uri); err != nil {
		return fmt.Errorf("deleting track %s: %w", uri, err)
	}
	return nil
}

// CountTracks returns the number of tracks in the catalog.
func CountTracks(ctx context.Context, db DBTX) (int, error) {
	var count int
	err := db.QueryRowContext(ctx, "SELECT count(*) FROM track").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting tracks: %w", err)
	}
	return count, nil
}

// Tracks returns every track in the catalog.
func Tracks(ctx context.Context, db DBTX) ([]models.Track, error) {
	return queryTracks(ctx, db, nil, "docid", false, nil)
}

// Exists tells whether a track with this URI is in the catalog.
func Exists(ctx context.Context, db DBTX, uri string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT * FROM track WHERE uri = ?)", uri,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking for track %s: %w", uri, err)
	}
	return exists, nil
}

// queryTracks selects tracks from the `tracks` view.
//
//   - where - list of clauses which will be joined with "AND". Can be left
//     blank.
//
//   - orderBy - the order by statement as a whole. Can be left blank.
//
//   - paginate - adds "LIMIT ? OFFSET ?". The last two args must be the limit
//     and the offset then.
//
//   - args - the arguments for the placeholders in where.
func queryTracks(
	ctx context.Context,
	db DBTX,
	where []string,
	orderBy string,
	paginate bool,
	args []any,
) ([]models.Track, error) {
	whereStr := ""
	if len(where) > 0 {
		whereStr = "WHERE " + strings.Join(where, " AND ")
	}

	orderByStr := ""
	if orderBy != "" {
		orderByStr = "ORDER BY " + orderBy
	}

	limitStr := ""
	if paginate {
		limitStr = "LIMIT ? OFFSET ?"
	}

	query := fmt.Sprintf("SELECT %s FROM tracks %s %s %s",
		dbTracksColumns, whereStr, orderByStr, limitStr)
	log.Debug().Str("query", query).Interface("args", args).Msg("sqlite track query")

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	return collectTracks(rows)
}

// collectTracks reads all rows as returned by a query over dbTracksColumns and
// closes them.
func collectTracks(rows *sql.Rows) ([]models.Track, error) {
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning track: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tracks, nil
}

// nullArtist holds the nullable columns for a joined artist.
type nullArtist struct {
	uri, name, sortName, mbid sql.NullString
}

func (a *nullArtist) dest() []any {
	return []any{&a.uri, &a.name, &a.sortName, &a.mbid}
}

func (a *nullArtist) model() *models.Artist {
	if !a.uri.Valid {
		return nil
	}
	return &models.Artist{
		URI:           a.uri.String,
		Name:          a.name.String,
		SortName:      a.sortName.String,
		MusicBrainzID: a.mbid.String,
	}
}

// scanTrack scans a database row selected with dbTracksColumns.
func scanTrack(row scanner) (models.Track, error) {
	var (
		res models.Track

		genre, date, comment, mbid          sql.NullString
		trackNo, discNo, length, bitrate    sql.NullInt64
		lastModified                        sql.NullInt64
		albumURI, albumName, albumDate      sql.NullString
		albumMBID                           sql.NullString
		albumNumTracks, albumNumDiscs       sql.NullInt64
		albumArtist, artist, composer, perf nullArtist
	)

	dest := []any{
		&res.URI, &res.Name, &genre, &trackNo, &discNo, &date, &length, &bitrate,
		&comment, &mbid, &lastModified,
		&albumURI, &albumName, &albumNumTracks, &albumNumDiscs, &albumDate, &albumMBID,
	}
	dest = append(dest, albumArtist.dest()...)
	dest = append(dest, artist.dest()...)
	dest = append(dest, composer.dest()...)
	dest = append(dest, perf.dest()...)

	if err := row.Scan(dest...); err != nil {
		return res, err
	}

	res.Genre = genre.String
	res.Date = date.String
	res.Comment = comment.String
	res.MusicBrainzID = mbid.String
	res.TrackNo = int(trackNo.Int64)
	res.DiscNo = int(discNo.Int64)
	res.Length = length.Int64
	res.Bitrate = int(bitrate.Int64)
	res.LastModified = lastModified.Int64

	if albumURI.Valid {
		res.Album = &models.Album{
			URI:           albumURI.String,
			Name:          albumName.String,
			Artist:        albumArtist.model(),
			NumTracks:     int(albumNumTracks.Int64),
			NumDiscs:      int(albumNumDiscs.Int64),
			Date:          albumDate.String,
			MusicBrainzID: albumMBID.String,
		}
	}
	res.Artist = artist.model()
	res.Composer = composer.model()
	res.Performer = perf.model()

	return res, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
