package webserver

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/spf13/afero"

	"github.com/ironsmile/localmedia/src/webserver/webutils"
)

// imageCacheMaxAge is how long clients may cache image files. Image file
// names are derived from their contents so they never change.
const imageCacheMaxAge = "public, max-age=31536000"

var imageIndexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><title>Local media images</title></head>
<body>
<ul>
{{range .}}<li><a href="{{.}}"><img src="{{.}}" alt="{{.}}"></a></li>
{{end}}</ul>
</body>
</html>
`))

// maxThumbnailWidth is the largest width accepted for scaled images.
const maxThumbnailWidth = 2048

// Scaler resizes images to a width. It is satisfied by *scaler.Scaler.
type Scaler interface {
	Scale(ctx context.Context, img io.Reader, toWidth int) ([]byte, error)
}

// ImageFilesHandler serves the image directory. Without a file name in its
// path it renders an index of all image files. With a "width" parameter and a
// scaler images are served as JPEG thumbnails of that width.
type ImageFilesHandler struct {
	fs     afero.Fs
	dir    string
	scaler Scaler
}

// ServeHTTP is required by the http.Handler's interface
func (ih ImageFilesHandler) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	InternalErrorOnErrorHandler(writer, req, ih.serve)
}

func (ih ImageFilesHandler) serve(writer http.ResponseWriter, req *http.Request) error {
	name := mux.Vars(req)["name"]
	if name == "" || name == "index.html" {
		return ih.index(writer)
	}

	if strings.ContainsAny(name, `/\`) || name == ".." {
		http.NotFoundHandler().ServeHTTP(writer, req)
		return nil
	}

	file, err := ih.fs.Open(filepath.Join(ih.dir, name))
	if err != nil {
		http.NotFoundHandler().ServeHTTP(writer, req)
		return nil
	}
	defer file.Close()

	st, err := file.Stat()
	if err != nil {
		return err
	}
	if !st.Mode().IsRegular() {
		http.NotFoundHandler().ServeHTTP(writer, req)
		return nil
	}

	if widthStr := req.URL.Query().Get("width"); widthStr != "" && ih.scaler != nil {
		width, err := strconv.Atoi(widthStr)
		if err != nil || width < 1 || width > maxThumbnailWidth {
			webutils.JSONError(writer, fmt.Sprintf(
				`"width" must be an integer between 1 and %d`, maxThumbnailWidth,
			), http.StatusBadRequest)
			return nil
		}
		return ih.serveScaled(writer, req, file, width)
	}

	writer.Header().Set("Cache-Control", imageCacheMaxAge)
	http.ServeContent(writer, req, name, st.ModTime(), file)
	return nil
}

func (ih ImageFilesHandler) serveScaled(
	writer http.ResponseWriter,
	req *http.Request,
	img io.Reader,
	width int,
) error {
	scaled, err := ih.scaler.Scale(req.Context(), img, width)
	if err != nil {
		return fmt.Errorf("scaling image: %w", err)
	}

	writer.Header().Set("Content-Type", "image/jpeg")
	writer.Header().Set("Cache-Control", imageCacheMaxAge)
	_, err = writer.Write(scaled)
	return err
}

func (ih ImageFilesHandler) index(writer http.ResponseWriter) error {
	var names []string
	err := afero.Walk(ih.fs, ih.dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil && path == ih.dir && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			names = append(names, info.Name())
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(names)

	writer.Header().Set("Content-Type", "text/html; charset=utf-8")
	return imageIndexTemplate.Execute(writer, names)
}

// NewImageFilesHandler returns a handler which serves the images in dir. The
// scaler may be nil in which case images are always served as they are.
func NewImageFilesHandler(afs afero.Fs, dir string, sclr Scaler) *ImageFilesHandler {
	return &ImageFilesHandler{
		fs:     afs,
		dir:    dir,
		scaler: sclr,
	}
}
