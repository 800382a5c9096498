package scanner

import (
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ironsmile/localmedia/src/models"
)

// TagsToTrack builds a track out of scanned tags. The URI, the length and the
// modification time are left for the caller to fill in. The catalog keeps a
// single artist per role so only the first of many artists is used.
func TagsToTrack(tags *models.Tags) models.Track {
	track := models.Track{
		Name:          tags.First(TagTitle),
		Artist:        tagsArtist(tags, TagArtist, TagArtistSortName, TagMusicBrainzArtistID),
		Composer:      tagsArtist(tags, TagComposer, "", ""),
		Performer:     tagsArtist(tags, TagPerformer, "", ""),
		Genre:         tags.First(TagGenre),
		TrackNo:       tagsInt(tags, TagTrackNumber),
		DiscNo:        tagsInt(tags, TagDiscNumber),
		Date:          tags.First(TagDate),
		Comment:       tags.First(TagComment),
		MusicBrainzID: tags.First(TagMusicBrainzTrackID),
		Bitrate:       tagsInt(tags, TagBitrate),
	}

	if name := tags.First(TagAlbum); name != "" {
		track.Album = &models.Album{
			Name: name,
			Artist: tagsArtist(tags, TagAlbumArtist, TagAlbumArtistSortName,
				TagMusicBrainzAlbumArtistID),
			NumTracks:     tagsInt(tags, TagTrackCount),
			NumDiscs:      tagsInt(tags, TagDiscCount),
			MusicBrainzID: tags.First(TagMusicBrainzAlbumID),
		}
	}

	return track
}

// tagsArtist returns the artist named in the tag nameKey or nil if there is
// none. Empty sortKey or idKey are not looked up.
func tagsArtist(tags *models.Tags, nameKey, sortKey, idKey string) *models.Artist {
	if tags == nil {
		return nil
	}

	names := tags.Values[nameKey]
	if len(names) == 0 || names[0] == "" {
		return nil
	}
	if len(names) > 1 {
		log.Warn().Str("tag", nameKey).Strs("values", names).
			Msg("multiple values for a single artist role, using the first")
	}

	artist := &models.Artist{Name: names[0]}
	if sortKey != "" {
		artist.SortName = tags.First(sortKey)
	}
	if idKey != "" {
		artist.MusicBrainzID = tags.First(idKey)
	}

	return artist
}

// tagsInt returns the tag as a number. Values such as "3/12" yield 3. Zero is
// returned for missing or malformed values.
func tagsInt(tags *models.Tags, key string) int {
	val := tags.First(key)
	if i := strings.IndexByte(val, '/'); i >= 0 {
		val = val[:i]
	}
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
