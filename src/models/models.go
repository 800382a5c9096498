// Package models contains the value types which flow between the catalog, the
// storage provider, the scan reconciler and the query surface.
package models

// Artist is a single person or group credited on a track or an album.
type Artist struct {
	URI           string `json:"uri,omitempty"`
	Name          string `json:"name,omitempty"`
	SortName      string `json:"sortname,omitempty"`
	MusicBrainzID string `json:"musicbrainz_id,omitempty"`
}

// Album is a release which groups tracks. Artist is the album artist and may
// be nil.
type Album struct {
	URI           string  `json:"uri,omitempty"`
	Name          string  `json:"name,omitempty"`
	Artist        *Artist `json:"artist,omitempty"`
	NumTracks     int     `json:"num_tracks,omitempty"`
	NumDiscs      int     `json:"num_discs,omitempty"`
	Date          string  `json:"date,omitempty"`
	MusicBrainzID string  `json:"musicbrainz_id,omitempty"`
}

// Track is a single playable media file in the library. Zero values stand for
// "not known".
type Track struct {
	URI           string  `json:"uri,omitempty"`
	Name          string  `json:"name,omitempty"`
	Album         *Album  `json:"album,omitempty"`
	Artist        *Artist `json:"artist,omitempty"`
	Composer      *Artist `json:"composer,omitempty"`
	Performer     *Artist `json:"performer,omitempty"`
	Genre         string  `json:"genre,omitempty"`
	TrackNo       int     `json:"track_no,omitempty"`
	DiscNo        int     `json:"disc_no,omitempty"`
	Date          string  `json:"date,omitempty"`
	Comment       string  `json:"comment,omitempty"`
	MusicBrainzID string  `json:"musicbrainz_id,omitempty"`

	// Length is the duration of the track in milliseconds.
	Length int64 `json:"length,omitempty"`

	// Bitrate is in kbit/s.
	Bitrate int `json:"bitrate,omitempty"`

	// LastModified is the file modification time in milliseconds since
	// the Unix epoch.
	LastModified int64 `json:"last_modified,omitempty"`
}

// Image is a piece of cover art stored in the image directory. Width and Height
// are zero when unknown.
type Image struct {
	URI    string `json:"uri"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// RefType is the kind of entry a Ref points to.
type RefType string

// All the different kinds of browse entries.
const (
	RefDirectory RefType = "directory"
	RefArtist    RefType = "artist"
	RefAlbum     RefType = "album"
	RefTrack     RefType = "track"
)

// Ref is a single entry in a browse listing.
type Ref struct {
	Type RefType `json:"type"`
	URI  string  `json:"uri"`
	Name string  `json:"name"`
}

// DirectoryRef returns a Ref for a browsable directory.
func DirectoryRef(uri, name string) Ref {
	return Ref{Type: RefDirectory, URI: uri, Name: name}
}

// SearchResult is the outcome of a single search. URI encodes the query terms
// so that the same search could be derived again.
type SearchResult struct {
	URI    string  `json:"uri"`
	Tracks []Track `json:"tracks"`
}

// Tags is what a scanner found in a single media file. Values are keyed by the
// tag names in the scanner package. Images holds the raw bytes of every
// embedded picture.
type Tags struct {
	Values map[string][]string
	Images [][]byte
}

// First returns the first value for a tag or an empty string.
func (t *Tags) First(key string) string {
	if t == nil || len(t.Values[key]) == 0 {
		return ""
	}
	return t.Values[key][0]
}
