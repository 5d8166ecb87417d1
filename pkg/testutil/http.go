// Package testutil carries shared helpers for handler and integration tests:
// request builders, response assertions, and origin-stamped contexts.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewRequest builds a bodyless request for handler tests.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// NewJSONRequest builds a request whose body is the JSON encoding of body.
// A nil body yields an empty request with the JSON content type still set,
// which is what a client sending `{}`-less POSTs looks like.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, path, encodeBody(t, body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func encodeBody(t *testing.T, body any) *bytes.Reader {
	t.Helper()
	if body == nil {
		return bytes.NewReader(nil)
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err, "encode request body")
	return bytes.NewReader(raw)
}

// DoRequest runs req through handler and captures the response.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result),
		"response body is not a JSON object: %q", rec.Body.String())
	return result
}

// AssertStatus fails the test when the recorded status differs from want.
// The body is included in the failure message because a surprising status
// usually comes with an explanatory error payload.
func AssertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	assert.Equal(t, want, rec.Code, "unexpected status, body: %s", rec.Body.String())
}

// AssertStatusOK asserts a 200 response.
func AssertStatusOK(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	AssertStatus(t, rec, http.StatusOK)
}

// AssertErrorCode asserts the machine-readable "error" field of an error
// response body.
func AssertErrorCode(t *testing.T, rec *httptest.ResponseRecorder, wantCode string) {
	t.Helper()
	body := decodeBody(t, rec)
	assert.Equal(t, wantCode, body["error"], "unexpected error code")
}

// AssertStatusAndError asserts the status line and the error code together.
func AssertStatusAndError(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	AssertStatus(t, rec, wantStatus)
	AssertErrorCode(t, rec, wantCode)
}

// AssertJSONHasKey asserts the response object carries the given key.
func AssertJSONHasKey(t *testing.T, rec *httptest.ResponseRecorder, key string) {
	t.Helper()
	body := decodeBody(t, rec)
	assert.Contains(t, body, key)
}
