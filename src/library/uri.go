package library

import (
	"strings"

	"github.com/ironsmile/localmedia/src/translator"
)

// querySafe are the characters which are left as they are in the query part of
// composed URIs. Notably '&', '=', '+' and '#' are always escaped.
const querySafe = "!$'()*,;:@/?"

// param is a single key/value pair from a URI query.
type param struct {
	key, value string
}

// params is an ordered list of query parameters where every key appears at
// most once.
type params []param

// parseParams splits the query part of uri. A key which appears more than
// once keeps its first position and its last value.
func parseParams(uri string) (params, error) {
	i := strings.IndexByte(uri, '?')
	if i < 0 {
		return nil, nil
	}

	raw := uri[i+1:]
	if j := strings.IndexByte(raw, '#'); j >= 0 {
		raw = raw[:j]
	}

	var ps params
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}

		key, value, _ := strings.Cut(pair, "=")
		key, err := translator.Unquote(key)
		if err != nil {
			return nil, err
		}
		value, err = translator.Unquote(value)
		if err != nil {
			return nil, err
		}

		ps = ps.with(key, value)
	}

	return ps, nil
}

// get returns the value for key.
func (ps params) get(key string) (string, bool) {
	for _, p := range ps {
		if p.key == key {
			return p.value, true
		}
	}
	return "", false
}

// with returns a copy of ps with key set to value. Existing keys keep their
// position, new ones are appended.
func (ps params) with(key, value string) params {
	out := make(params, 0, len(ps)+1)
	found := false
	for _, p := range ps {
		if p.key == key {
			p.value = value
			found = true
		}
		out = append(out, p)
	}
	if !found {
		out = append(out, param{key: key, value: value})
	}
	return out
}

// without returns a copy of ps with key removed.
func (ps params) without(key string) params {
	out := make(params, 0, len(ps))
	for _, p := range ps {
		if p.key != key {
			out = append(out, p)
		}
	}
	return out
}

// encode returns the query string for ps.
func (ps params) encode() string {
	parts := make([]string, 0, len(ps))
	for _, p := range ps {
		parts = append(parts,
			translator.Quote(p.key, querySafe)+"="+translator.Quote(p.value, querySafe),
		)
	}
	return strings.Join(parts, "&")
}

// composeURI returns "local:<path>?<query>".
func composeURI(path string, ps params) string {
	return "local:" + path + "?" + ps.encode()
}

// directoryURI returns a browsable local directory URI with the query ps.
func directoryURI(ps params) string {
	return composeURI("directory", ps)
}
