package webutils_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ironsmile/localmedia/src/webserver/webutils"
)

// TestJSONError makes sure that the JSONError function really encodes the response
// as a valid JSON.
func TestJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	errMsg := "some error message for testing"

	webutils.JSONError(rec, errMsg, http.StatusBadGateway)

	res := rec.Result()
	defer func() {
		res.Body.Close()
	}()

	if res.StatusCode != http.StatusBadGateway {
		t.Errorf("Expected Bad Gateway status but got %d", res.StatusCode)
	}

	var respJSON struct {
		Error string `json:"error"`
	}
	dec := json.NewDecoder(res.Body)
	if err := dec.Decode(&respJSON); err != nil {
		t.Errorf("Failed decoding the JSON response: %s", err)
	}

	if respJSON.Error != errMsg {
		t.Errorf("Expected error `%s` but got `%s`", errMsg, respJSON.Error)
	}
}

// TestWriteJSON makes sure values are encoded with a JSON content type.
func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	if err := webutils.WriteJSON(rec, []string{"a", "b"}); err != nil {
		t.Fatalf("writing JSON: %s", err)
	}

	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("unexpected content type `%s`", ct)
	}

	var found []string
	if err := json.Unmarshal(rec.Body.Bytes(), &found); err != nil {
		t.Fatalf("decoding body: %s", err)
	}
	if len(found) != 2 || found[0] != "a" || found[1] != "b" {
		t.Errorf("unexpected body %v", found)
	}
}
