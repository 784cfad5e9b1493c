package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorsEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteErrors(w, http.StatusUnauthorized, "not logged in")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body ErrorsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "not logged in", body.Errors[0].Message)
}

func TestWriteTextHelpers(t *testing.T) {
	tests := []struct {
		name string
		fn   func(http.ResponseWriter, string)
		code int
	}{
		{name: "bad request", fn: WriteBadRequest, code: http.StatusBadRequest},
		{name: "unauthorized", fn: WriteUnauthorized, code: http.StatusUnauthorized},
		{name: "forbidden", fn: WriteForbidden, code: http.StatusForbidden},
		{name: "not found", fn: WriteNotFound, code: http.StatusNotFound},
		{name: "internal", fn: WriteInternalError, code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.fn(w, "boom")
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "boom", w.Body.String())
		})
	}
}

func TestWriteHTML(t *testing.T) {
	w := httptest.NewRecorder()
	WriteHTML(w, []byte("<html></html>"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
}
