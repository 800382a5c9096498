package webserver

import "net/http"

// The following are URL Path endpoints for certain API calls.
const (
	APIv1EndpointBrowse   = "/v1/browse"
	APIv1EndpointLookup   = "/v1/lookup"
	APIv1EndpointSearch   = "/v1/search"
	APIv1EndpointDistinct = "/v1/distinct/{field}"
	APIv1EndpointImages   = "/v1/images"
)

// APIv1Methods defines on which HTTP methods APIv1 endpoints will respond to.
// It is an uri_path => list of HTTP methods map.
var APIv1Methods = map[string][]string{
	APIv1EndpointBrowse:   {http.MethodGet},
	APIv1EndpointLookup:   {http.MethodGet},
	APIv1EndpointSearch:   {http.MethodGet},
	APIv1EndpointDistinct: {http.MethodGet},
	APIv1EndpointImages:   {http.MethodGet},
}
