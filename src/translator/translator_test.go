package translator

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testMediaDir = "/home/alice/Music"

func TestLocalURIToFileURI(t *testing.T) {
	tests := []struct {
		local string
		file  string
	}{
		{"local:directory:A/B", "file:///home/alice/Music/A/B"},
		{"local:directory:A%20B", "file:///home/alice/Music/A%20B"},
		{"local:directory:A+B", "file:///home/alice/Music/A%2BB"},
		{"local:directory:%C3%A6%C3%B8%C3%A5", "file:///home/alice/Music/%C3%A6%C3%B8%C3%A5"},
		{"local:track:A/B.mp3", "file:///home/alice/Music/A/B.mp3"},
		{"local:track:A%20B.mp3", "file:///home/alice/Music/A%20B.mp3"},
		{"local:track:A+B.mp3", "file:///home/alice/Music/A%2BB.mp3"},
		{"local:track:%C3%A6%C3%B8%C3%A5.mp3", "file:///home/alice/Music/%C3%A6%C3%B8%C3%A5.mp3"},
	}

	for _, test := range tests {
		t.Run(test.local, func(t *testing.T) {
			uri, err := LocalURIToFileURI(test.local, testMediaDir)
			require.NoError(t, err)
			assert.Equal(t, test.file, uri)
		})
	}
}

func TestLocalURIToPath(t *testing.T) {
	tests := []struct {
		uri  string
		path string
	}{
		{"local:directory:A/B", "/home/alice/Music/A/B"},
		{"local:directory:A%20B", "/home/alice/Music/A B"},
		{"local:directory:A+B", "/home/alice/Music/A+B"},
		{"local:directory:%C3%A6%C3%B8%C3%A5", "/home/alice/Music/\xc3\xa6\xc3\xb8\xc3\xa5"},
		{"local:track:A/B.mp3", "/home/alice/Music/A/B.mp3"},
		{"local:track:A%20B.mp3", "/home/alice/Music/A B.mp3"},
		{"local:track:A+B.mp3", "/home/alice/Music/A+B.mp3"},
		{"local:track:%C3%A6%C3%B8%C3%A5.mp3", "/home/alice/Music/\xc3\xa6\xc3\xb8\xc3\xa5.mp3"},
		{"local:directory:", "/home/alice/Music"},
	}

	for _, test := range tests {
		t.Run(test.uri, func(t *testing.T) {
			path, err := LocalURIToPath(test.uri, testMediaDir)
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(test.path), path)
		})
	}
}

func TestLocalURIToPathErrors(t *testing.T) {
	for _, uri := range []string{"A/B", "local:foo:A/B", "local:track:%zz"} {
		_, err := LocalURIToPath(uri, testMediaDir)
		if !errors.Is(err, ErrInvalidURI) {
			t.Errorf("expected ErrInvalidURI for %q but got %v", uri, err)
		}

		_, err = LocalURIToFileURI(uri, testMediaDir)
		if !errors.Is(err, ErrInvalidURI) {
			t.Errorf("expected ErrInvalidURI from file URI for %q but got %v", uri, err)
		}
	}
}

func TestPathToFileURI(t *testing.T) {
	tests := []struct {
		path string
		uri  string
	}{
		{"/foo", "file:///foo"},
		{"/æøå", "file:///%C3%A6%C3%B8%C3%A5"},
		{"/\x00\x01\x02", "file:///%00%01%02"},
		{"/a b/c+d", "file:///a%20b/c%2Bd"},
	}

	for _, test := range tests {
		uri, err := PathToFileURI(test.path)
		require.NoError(t, err)
		assert.Equal(t, test.uri, uri)

		back, err := FileURIToPath(uri)
		require.NoError(t, err)
		assert.Equal(t, test.path, back)
	}

	_, err := PathToFileURI("relative/path")
	assert.ErrorIs(t, err, ErrRelativePath)
}

func TestPathToLocalTrackURI(t *testing.T) {
	tests := []struct {
		path string
		uri  string
	}{
		{"foo", "local:track:foo"},
		{"/home/alice/Music/foo", "local:track:foo"},
		{"/home/alice/Music/a dir/b.mp3", "local:track:a%20dir/b.mp3"},
		{"æøå", "local:track:%C3%A6%C3%B8%C3%A5"},
		{"\x00\x01\x02", "local:track:%00%01%02"},
	}

	for _, test := range tests {
		uri, err := PathToLocalTrackURI(test.path, testMediaDir)
		require.NoError(t, err)
		assert.Equal(t, test.uri, uri)
	}
}

func TestTrackURIRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		segments := rapid.SliceOfN(
			rapid.StringMatching(`[a-zA-Z0-9 _%+#?&=é,;'()-]{1,10}`),
			1, 5,
		).Draw(t, "segments")

		for _, seg := range segments {
			if seg == "." || seg == ".." || strings.Trim(seg, ".") == "" {
				t.Skip("dot segments are not valid relative paths here")
			}
		}

		rel := filepath.Join(segments...)
		uri, err := PathToLocalTrackURI(rel, testMediaDir)
		if err != nil {
			t.Fatalf("encoding %q: %s", rel, err)
		}

		path, err := LocalURIToPath(uri, testMediaDir)
		if err != nil {
			t.Fatalf("decoding %q: %s", uri, err)
		}

		if want := filepath.Join(testMediaDir, rel); path != want {
			t.Fatalf("round trip of %q gave %q, expected %q", rel, path, want)
		}
	})
}
