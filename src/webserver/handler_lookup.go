package webserver

import (
	"net/http"

	"github.com/ironsmile/localmedia/src/webserver/webutils"
)

// LookupHandler returns the tracks of a track, album or artist URI.
type LookupHandler struct {
	library Library
}

// ServeHTTP is required by the http.Handler's interface
func (lh LookupHandler) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	InternalErrorOnErrorHandler(writer, req, lh.lookup)
}

func (lh LookupHandler) lookup(writer http.ResponseWriter, req *http.Request) error {
	uri := req.URL.Query().Get("uri")
	if uri == "" {
		webutils.JSONError(writer, `missing "uri" parameter`, http.StatusBadRequest)
		return nil
	}

	return webutils.WriteJSON(writer, lh.library.Lookup(req.Context(), uri))
}

// NewLookupHandler returns a new LookupHandler for lib.
func NewLookupHandler(lib Library) *LookupHandler {
	return &LookupHandler{library: lib}
}

// ImagesHandler returns the images of album and track URIs keyed by URI.
type ImagesHandler struct {
	library Library
}

// ServeHTTP is required by the http.Handler's interface
func (ih ImagesHandler) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	InternalErrorOnErrorHandler(writer, req, ih.images)
}

func (ih ImagesHandler) images(writer http.ResponseWriter, req *http.Request) error {
	uris := req.URL.Query()["uri"]
	return webutils.WriteJSON(writer, ih.library.GetImages(req.Context(), uris))
}

// NewImagesHandler returns a new ImagesHandler for lib.
func NewImagesHandler(lib Library) *ImagesHandler {
	return &ImagesHandler{library: lib}
}
