// Package scanner reads the audio properties and the tags of media files.
package scanner

//go:generate go run github.com/maxbrunsfeld/counterfeiter/v6 -generate

import (
	"context"
	"time"

	"github.com/ironsmile/localmedia/src/models"
)

//counterfeiter:generate . Scanner

// Scanner inspects a single media file.
type Scanner interface {
	// Scan reads the file at fileURI. It must give up once ctx is done.
	Scan(ctx context.Context, fileURI string) (Result, error)
}

// Result is what a Scanner found out about a file.
type Result struct {
	// Playable is false for files which contain no audio.
	Playable bool

	// Duration is nil when the length of the audio could not be determined.
	Duration *time.Duration

	// Tags are the metadata found in the file.
	Tags models.Tags
}

// Tag names used as keys in models.Tags.Values.
const (
	TagTitle                    = "title"
	TagAlbum                    = "album"
	TagArtist                   = "artist"
	TagArtistSortName           = "artist-sortname"
	TagAlbumArtist              = "album-artist"
	TagAlbumArtistSortName      = "album-artist-sortname"
	TagComposer                 = "composer"
	TagPerformer                = "performer"
	TagGenre                    = "genre"
	TagTrackNumber              = "track-number"
	TagTrackCount               = "track-count"
	TagDiscNumber               = "album-disc-number"
	TagDiscCount                = "album-disc-count"
	TagDate                     = "date"
	TagComment                  = "comment"
	TagBitrate                  = "bitrate"
	TagMusicBrainzTrackID       = "musicbrainz-trackid"
	TagMusicBrainzArtistID      = "musicbrainz-artistid"
	TagMusicBrainzAlbumID       = "musicbrainz-albumid"
	TagMusicBrainzAlbumArtistID = "musicbrainz-albumartistid"
)
