// Package webserver exposes the local media library over HTTP. It serves the
// extracted cover art from the image directory and answers browse, lookup,
// search and distinct value queries with JSON.
package webserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// shutdownTimeout is how long in-flight requests may run after the server
// has been asked to stop.
const shutdownTimeout = 5 * time.Second

// Config is the part of the configuration the web server needs.
type Config struct {
	// Listen is the address the server listens on.
	Listen string

	// ImageDir is the directory with the extracted images.
	ImageDir string

	// ImageBaseURI is the URL path under which images are served.
	ImageBaseURI string
}

// Server represents our webserver. It will be controlled from here.
type Server struct {
	cfg     Config
	library Library
	fs      afero.Fs
	scaler  Scaler
}

// NewServer returns a new Server using the supplied configuration cfg. Images
// are read from afs and thumbnails are made with sclr which may be nil.
func NewServer(cfg Config, lib Library, afs afero.Fs, sclr Scaler) *Server {
	return &Server{
		cfg:     cfg,
		library: lib,
		fs:      afs,
		scaler:  sclr,
	}
}

// Handler returns the router with all endpoints attached.
func (srv *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.StrictSlash(true)

	imageBase := srv.cfg.ImageBaseURI
	if !strings.HasSuffix(imageBase, "/") {
		imageBase += "/"
	}
	images := NewImageFilesHandler(srv.fs, srv.cfg.ImageDir, srv.scaler)
	router.Handle(imageBase, images).Methods(http.MethodGet, http.MethodHead)
	router.Handle(imageBase+"{name}", images).Methods(http.MethodGet, http.MethodHead)

	endpoints := map[string]http.Handler{
		APIv1EndpointBrowse:   NewBrowseHandler(srv.library),
		APIv1EndpointLookup:   NewLookupHandler(srv.library),
		APIv1EndpointSearch:   NewSearchHandler(srv.library),
		APIv1EndpointDistinct: NewDistinctHandler(srv.library),
		APIv1EndpointImages:   NewImagesHandler(srv.library),
	}
	for path, handler := range endpoints {
		router.Handle(path, handler).Methods(APIv1Methods[path]...)
	}

	return router
}

// ListenAndServe starts the server and blocks until ctx is cancelled or the
// server fails. A cancelled ctx is not an error.
func (srv *Server) ListenAndServe(ctx context.Context) error {
	lsn, err := net.Listen("tcp", srv.cfg.Listen)
	if err != nil {
		return err
	}
	return srv.Serve(ctx, lsn)
}

// Serve is like ListenAndServe but uses an existing listener.
func (srv *Server) Serve(ctx context.Context, lsn net.Listener) error {
	httpSrv := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- httpSrv.Serve(lsn)
	}()
	log.Info().Str("address", lsn.Addr().String()).Msg("webserver started")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	log.Info().Msg("webserver stopped")
	return nil
}
