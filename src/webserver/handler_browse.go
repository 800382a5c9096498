package webserver

import (
	"net/http"

	"github.com/ironsmile/localmedia/src/library"
	"github.com/ironsmile/localmedia/src/webserver/webutils"
)

// BrowseHandler is a http.Handler which lists the entries of a browse
// directory. Without an "uri" parameter the root directory is listed.
type BrowseHandler struct {
	library Library
}

// ServeHTTP is required by the http.Handler's interface
func (bh BrowseHandler) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	InternalErrorOnErrorHandler(writer, req, bh.browse)
}

func (bh BrowseHandler) browse(writer http.ResponseWriter, req *http.Request) error {
	uri := req.URL.Query().Get("uri")
	if uri == "" {
		uri = library.RootDirectoryURI
	}

	return webutils.WriteJSON(writer, bh.library.Browse(req.Context(), uri))
}

// NewBrowseHandler returns a new BrowseHandler which browses lib.
func NewBrowseHandler(lib Library) *BrowseHandler {
	return &BrowseHandler{library: lib}
}
