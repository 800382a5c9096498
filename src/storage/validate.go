package storage

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/ironsmile/localmedia/src/models"
	"github.com/ironsmile/localmedia/src/translator"
)

var (
	// ErrEmptyURI is returned when adding a track without a URI.
	ErrEmptyURI = errors.New("empty track URI")

	// ErrEmptyName is returned when adding an artist or an album without
	// a name.
	ErrEmptyName = errors.New("empty name")
)

// validateTrack fills in what is missing in track before storing it. A track
// without a name is named after its file. Artists and albums without URIs get
// ones derived from their contents. An album without a name is dropped.
func (p *Provider) validateTrack(track models.Track) (models.Track, error) {
	if track.URI == "" {
		return track, ErrEmptyURI
	}

	if track.Name == "" {
		path, err := translator.LocalURIToPath(track.URI, "")
		if err != nil {
			return track, err
		}
		base := filepath.Base(path)
		track.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if track.Album != nil && track.Album.Name != "" {
		album, err := p.validateAlbum(*track.Album)
		if err != nil {
			return track, err
		}
		track.Album = &album
	} else {
		track.Album = nil
	}

	for _, artist := range []**models.Artist{&track.Artist, &track.Composer, &track.Performer} {
		if *artist == nil {
			continue
		}
		validated, err := p.validateArtist(**artist)
		if err != nil {
			return track, err
		}
		*artist = &validated
	}

	return track, nil
}

func (p *Provider) validateAlbum(album models.Album) (models.Album, error) {
	if album.Name == "" {
		return album, fmt.Errorf("%w: album", ErrEmptyName)
	}

	if album.URI == "" {
		if p.cfg.UseAlbumMBIDURI && validMBID(album.MusicBrainzID) {
			album.URI = "local:album:mbid:" + album.MusicBrainzID
		} else {
			// The number of tracks differs between the discs of
			// multi-disc albums.
			hashed := album
			hashed.NumTracks = 0
			uri, err := modelURI("album", hashed)
			if err != nil {
				return album, err
			}
			album.URI = uri
		}
	}

	if album.Artist != nil {
		artist, err := p.validateArtist(*album.Artist)
		if err != nil {
			return album, err
		}
		album.Artist = &artist
	}

	return album, nil
}

func (p *Provider) validateArtist(artist models.Artist) (models.Artist, error) {
	if artist.Name == "" {
		return artist, fmt.Errorf("%w: artist", ErrEmptyName)
	}

	if artist.URI != "" {
		return artist, nil
	}

	if p.cfg.UseArtistMBIDURI && validMBID(artist.MusicBrainzID) {
		artist.URI = "local:artist:mbid:" + artist.MusicBrainzID
		return artist, nil
	}

	uri, err := modelURI("artist", artist)
	if err != nil {
		return artist, err
	}
	artist.URI = uri

	return artist, nil
}

// modelURI returns a URI which is derived from the contents of model. Equal
// models always get the same URI.
func modelURI(kind string, model any) (string, error) {
	encoded, err := json.Marshal(model)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", kind, err)
	}
	digest := md5.Sum(encoded)
	return "local:" + kind + ":md5:" + hex.EncodeToString(digest[:]), nil
}

// validMBID reports whether id is a MusicBrainz ID in its canonical
// hyphenated form. uuid.Parse alone also takes the braced, URN and bare hex
// forms.
func validMBID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}
