package webserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsmile/localmedia/src/catalog"
	"github.com/ironsmile/localmedia/src/library"
	"github.com/ironsmile/localmedia/src/models"
	"github.com/ironsmile/localmedia/src/scaler"
	"github.com/ironsmile/localmedia/src/webserver"
)

const testTimeout = 10 * time.Second

const imageDir = "/data/images"

var (
	artist = &models.Artist{URI: "local:artist:a", Name: "Alpha"}
	album  = &models.Album{URI: "local:album:1", Name: "First", Artist: artist}

	testTracks = []models.Track{
		{URI: "local:track:a/1.mp3", Name: "One", Album: album, Artist: artist, Genre: "Rock"},
		{URI: "local:track:a/2.mp3", Name: "Two", Album: album, Artist: artist, Genre: "Jazz"},
	}

	albumImages = []string{"/local/abc-10x20.png"}
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)
	os.Exit(m.Run())
}

// getTestServer returns a server backed by an in-memory catalog with
// testTracks and an image directory with a single image.
func getTestServer(ctx context.Context, t *testing.T) http.Handler {
	t.Helper()

	db, err := catalog.Open(catalog.SQLiteMemoryFile, 0)
	require.NoError(t, err)

	lib := library.NewProvider(db, library.Config{
		Directories: []models.Ref{
			models.DirectoryRef("local:directory?type=album", "Albums"),
		},
		MaxSearchResults: 10,
	})
	t.Cleanup(func() { _ = lib.Close() })

	_, err = lib.Load(ctx)
	require.NoError(t, err)

	for _, track := range testTracks {
		require.NoError(t, catalog.InsertTrack(ctx, db, track, albumImages))
	}

	afs := afero.NewMemMapFs()
	require.NoError(t, afs.MkdirAll(imageDir, 0o755))
	require.NoError(t, afero.WriteFile(afs, imageDir+"/abc-10x20.png", []byte("png data"), 0o644))
	require.NoError(t, afero.WriteFile(afs, imageDir+"/cover-40x20.png", pngImage(t, 40, 20), 0o644))

	srv := webserver.NewServer(webserver.Config{
		ImageDir:     imageDir,
		ImageBaseURI: "/local/",
	}, lib, afs, scaler.New(ctx))

	return srv.Handler()
}

func pngImage(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewGray(image.Rect(0, 0, width, height))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestBrowseEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	h := getTestServer(ctx, t)

	resp := get(t, h, webserver.APIv1EndpointBrowse)
	require.Equal(t, http.StatusOK, resp.Code)

	var refs []models.Ref
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &refs))
	assert.Equal(t, []models.Ref{
		models.DirectoryRef("local:directory?type=album", "Albums"),
	}, refs)

	resp = get(t, h, webserver.APIv1EndpointBrowse+"?uri="+
		url.QueryEscape("local:album:1"))
	require.Equal(t, http.StatusOK, resp.Code)

	refs = nil
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &refs))
	require.Len(t, refs, 2)
	assert.Equal(t, models.RefTrack, refs[0].Type)
	assert.Equal(t, "local:track:a/1.mp3", refs[0].URI)
}

func TestLookupEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	h := getTestServer(ctx, t)

	resp := get(t, h, webserver.APIv1EndpointLookup+"?uri="+
		url.QueryEscape("local:track:a/2.mp3"))
	require.Equal(t, http.StatusOK, resp.Code)

	var tracks []models.Track
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &tracks))
	require.Len(t, tracks, 1)
	assert.Equal(t, "Two", tracks[0].Name)

	resp = get(t, h, webserver.APIv1EndpointLookup+"?uri=foobar:1")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, "[]", resp.Body.String())

	resp = get(t, h, webserver.APIv1EndpointLookup)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSearchEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	h := getTestServer(ctx, t)

	resp := get(t, h, webserver.APIv1EndpointSearch+"?exact=true&genre=Jazz")
	require.Equal(t, http.StatusOK, resp.Code)

	var result models.SearchResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.Equal(t, "local:search?genre=Jazz", result.URI)
	require.Len(t, result.Tracks, 1)
	assert.Equal(t, "local:track:a/2.mp3", result.Tracks[0].URI)

	resp = get(t, h, webserver.APIv1EndpointSearch+"?track_name=one&scope="+
		url.QueryEscape("local:album:1"))
	require.Equal(t, http.StatusOK, resp.Code)

	result = models.SearchResult{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Len(t, result.Tracks, 1)
	assert.Equal(t, "One", result.Tracks[0].Name)
}

func TestSearchEndpointBadRequests(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	h := getTestServer(ctx, t)

	for _, query := range []string{
		"?nosuchfield=x",
		"?exact=maybe&genre=Jazz",
		"?limit=many&genre=Jazz",
		"?offset=-1&genre=Jazz",
	} {
		resp := get(t, h, webserver.APIv1EndpointSearch+query)
		assert.Equal(t, http.StatusBadRequest, resp.Code, "query %s", query)
		assert.Contains(t, resp.Body.String(), `"error"`)
	}
}

func TestDistinctEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	h := getTestServer(ctx, t)

	resp := get(t, h, "/v1/distinct/genre")
	require.Equal(t, http.StatusOK, resp.Code)

	var values []string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &values))
	assert.ElementsMatch(t, []string{"Jazz", "Rock"}, values)

	resp = get(t, h, "/v1/distinct/nosuchfield")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestImagesEndpoint(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	h := getTestServer(ctx, t)

	resp := get(t, h, webserver.APIv1EndpointImages+"?uri="+
		url.QueryEscape("local:album:1")+"&uri=foobar:1")
	require.Equal(t, http.StatusOK, resp.Code)

	var images map[string][]models.Image
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &images))
	assert.Equal(t, map[string][]models.Image{
		"local:album:1": {{URI: "/local/abc-10x20.png", Width: 10, Height: 20}},
	}, images)
}

func TestImageFiles(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	h := getTestServer(ctx, t)

	resp := get(t, h, "/local/abc-10x20.png")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "png data", resp.Body.String())
	assert.Equal(t, "public, max-age=31536000", resp.Header().Get("Cache-Control"))

	resp = get(t, h, "/local/missing.png")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	for _, index := range []string{"/local/", "/local/index.html"} {
		resp = get(t, h, index)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), `<img src="abc-10x20.png"`)
		assert.True(t, strings.HasPrefix(resp.Header().Get("Content-Type"), "text/html"))
	}
}

func TestImageFilesThumbnail(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	h := getTestServer(ctx, t)

	resp := get(t, h, "/local/cover-40x20.png?width=10")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "image/jpeg", resp.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000", resp.Header().Get("Cache-Control"))

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(resp.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Width)
	assert.Equal(t, 5, cfg.Height)

	for _, width := range []string{"0", "wide", "100000"} {
		resp = get(t, h, "/local/cover-40x20.png?width="+width)
		assert.Equal(t, http.StatusBadRequest, resp.Code, "width %s", width)
	}

	resp = get(t, h, "/local/abc-10x20.png?width=10")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestImageFilesMissingDirectory(t *testing.T) {
	h := webserver.NewImageFilesHandler(afero.NewMemMapFs(), "/nowhere", nil)

	resp := get(t, h, "/")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.NotContains(t, resp.Body.String(), "<li>")
}

// TestServeStopsWithContext makes sure the server shuts down without an error
// once its context is cancelled.
func TestServeStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	lsn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := webserver.NewServer(webserver.Config{
		ImageDir:     imageDir,
		ImageBaseURI: "/local",
	}, nil, afero.NewMemMapFs(), nil)

	serveCtx, stop := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(serveCtx, lsn)
	}()

	resp, err := http.Get("http://" + lsn.Addr().String() + "/local/")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stop()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("server did not stop")
	}
}
