package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/rs/zerolog/log"
	taglib "github.com/wtolson/go-taglib"
	"golang.org/x/sync/errgroup"

	"github.com/ironsmile/localmedia/src/models"
	"github.com/ironsmile/localmedia/src/translator"
)

// TagScanner is a Scanner which reads the audio properties with taglib and the
// tags with a pure Go tag reader. Both are read in parallel.
type TagScanner struct{}

// NewTagScanner returns a new TagScanner.
func NewTagScanner() *TagScanner {
	return &TagScanner{}
}

type scanOutcome struct {
	result Result
	err    error
}

// Scan implements Scanner. When ctx is done before the file has been read
// Scan returns the context's error. The reading itself cannot be interrupted
// and finishes in the background.
func (s *TagScanner) Scan(ctx context.Context, fileURI string) (Result, error) {
	path, err := translator.FileURIToPath(fileURI)
	if err != nil {
		return Result{}, err
	}

	done := make(chan scanOutcome, 1)
	go func() {
		res, err := s.scan(ctx, path)
		done <- scanOutcome{result: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return Result{}, fmt.Errorf("scanning %s: %w", fileURI, ctx.Err())
	case out := <-done:
		return out.result, out.err
	}
}

func (s *TagScanner) scan(ctx context.Context, path string) (Result, error) {
	var (
		res  Result
		meta tag.Metadata
	)

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		file, err := taglib.Read(path)
		if errors.Is(err, taglib.ErrInvalid) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading audio properties: %w", err)
		}
		defer file.Close()

		res.Playable = true
		if length := file.Length(); length > 0 {
			res.Duration = &length
		}
		if bitrate := file.Bitrate(); bitrate > 0 {
			res.Tags.Values = map[string][]string{
				TagBitrate: {strconv.Itoa(bitrate)},
			}
		}
		return nil
	})

	g.Go(func() error {
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()

		meta, err = tag.ReadFrom(file)
		if errors.Is(err, tag.ErrNoTagsFound) {
			meta = nil
			return nil
		}
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("could not read tags")
			meta = nil
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	if meta != nil {
		tags := metadataTags(meta)
		for key, values := range res.Tags.Values {
			tags.Values[key] = values
		}
		res.Tags = tags
	}

	return res, nil
}

// metadataTags converts the tag reader's metadata into tags.
func metadataTags(meta tag.Metadata) models.Tags {
	tags := models.Tags{Values: make(map[string][]string)}
	set := func(key, value string) {
		value = strings.TrimSpace(value)
		if value != "" {
			tags.Values[key] = append(tags.Values[key], value)
		}
	}
	setInt := func(key string, value int) {
		if value > 0 {
			set(key, strconv.Itoa(value))
		}
	}

	set(TagTitle, meta.Title())
	set(TagAlbum, meta.Album())
	set(TagArtist, meta.Artist())
	set(TagAlbumArtist, meta.AlbumArtist())
	set(TagComposer, meta.Composer())
	set(TagGenre, meta.Genre())
	set(TagComment, meta.Comment())

	trackNo, trackCount := meta.Track()
	setInt(TagTrackNumber, trackNo)
	setInt(TagTrackCount, trackCount)
	discNo, discCount := meta.Disc()
	setInt(TagDiscNumber, discNo)
	setInt(TagDiscCount, discCount)

	raw := meta.Raw()
	if date := rawString(raw, "date", "TDRC", "TYER", "©day"); date != "" {
		set(TagDate, date)
	} else {
		setInt(TagDate, meta.Year())
	}

	set(TagPerformer, rawString(raw, "performer", "TPE3"))
	set(TagArtistSortName, rawString(raw, "artistsort", "TSOP", "soar"))
	set(TagAlbumArtistSortName, rawString(raw, "albumartistsort", "TSO2", "soaa"))
	set(TagMusicBrainzTrackID, rawString(raw, "musicbrainz_trackid"))
	set(TagMusicBrainzArtistID, rawString(raw, "musicbrainz_artistid"))
	set(TagMusicBrainzAlbumID, rawString(raw, "musicbrainz_albumid"))
	set(TagMusicBrainzAlbumArtistID, rawString(raw, "musicbrainz_albumartistid"))

	if pic := meta.Picture(); pic != nil && len(pic.Data) > 0 {
		tags.Images = append(tags.Images, pic.Data)
	}

	return tags
}

// rawString returns the first of keys which is present in raw as a string.
// Keys are matched case insensitively.
func rawString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		for rawKey, value := range raw {
			if !strings.EqualFold(rawKey, key) {
				continue
			}
			if s, ok := value.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
