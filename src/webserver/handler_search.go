package webserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ironsmile/localmedia/src/catalog"
	"github.com/ironsmile/localmedia/src/webserver/webutils"
)

// Parameters of the search endpoint which are not search terms.
const (
	searchParamExact  = "exact"
	searchParamLimit  = "limit"
	searchParamOffset = "offset"
	searchParamScope  = "scope"
)

// SearchHandler searches the library. Every query parameter which is not one
// of exact, limit, offset or scope is a search term.
type SearchHandler struct {
	library Library
}

// ServeHTTP is required by the http.Handler's interface
func (sh SearchHandler) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	InternalErrorOnErrorHandler(writer, req, sh.search)
}

func (sh SearchHandler) search(writer http.ResponseWriter, req *http.Request) error {
	params := req.URL.Query()

	exact, err := boolParam(params, searchParamExact)
	if err != nil {
		webutils.JSONError(writer, err.Error(), http.StatusBadRequest)
		return nil
	}
	limit, err := intParam(params, searchParamLimit)
	if err != nil {
		webutils.JSONError(writer, err.Error(), http.StatusBadRequest)
		return nil
	}
	offset, err := intParam(params, searchParamOffset)
	if err != nil {
		webutils.JSONError(writer, err.Error(), http.StatusBadRequest)
		return nil
	}
	scope := params[searchParamScope]

	query := make(map[string][]string)
	for key, values := range params {
		switch key {
		case searchParamExact, searchParamLimit, searchParamOffset, searchParamScope:
			continue
		}
		query[key] = values
	}

	result, err := sh.library.Search(req.Context(), query, scope, exact, limit, offset)
	if errors.Is(err, catalog.ErrInvalidField) {
		webutils.JSONError(writer, err.Error(), http.StatusBadRequest)
		return nil
	} else if err != nil {
		return err
	}

	return webutils.WriteJSON(writer, result)
}

// NewSearchHandler returns a new SearchHandler for processing search queries.
// They will be run against the supplied library.
func NewSearchHandler(lib Library) *SearchHandler {
	return &SearchHandler{library: lib}
}

// DistinctHandler lists the distinct values of the field in its path among the
// tracks matching the query parameters.
type DistinctHandler struct {
	library Library
}

// ServeHTTP is required by the http.Handler's interface
func (dh DistinctHandler) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	InternalErrorOnErrorHandler(writer, req, dh.distinct)
}

func (dh DistinctHandler) distinct(writer http.ResponseWriter, req *http.Request) error {
	field, ok := mux.Vars(req)["field"]
	if !ok {
		http.NotFoundHandler().ServeHTTP(writer, req)
		return nil
	}

	values, err := dh.library.GetDistinct(req.Context(), field, req.URL.Query())
	if errors.Is(err, catalog.ErrInvalidField) {
		webutils.JSONError(writer, err.Error(), http.StatusBadRequest)
		return nil
	} else if err != nil {
		return err
	}

	return webutils.WriteJSON(writer, values)
}

// NewDistinctHandler returns a new DistinctHandler for lib.
func NewDistinctHandler(lib Library) *DistinctHandler {
	return &DistinctHandler{library: lib}
}

func boolParam(params url.Values, name string) (bool, error) {
	val := params.Get(name)
	if val == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("wrong %q parameter: %w", name, err)
	}
	return b, nil
}

func intParam(params url.Values, name string) (int, error) {
	val := params.Get(name)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("wrong %q parameter: %w", name, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%q must not be negative", name)
	}
	return n, nil
}
