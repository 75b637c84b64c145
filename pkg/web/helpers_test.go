package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func Test_RespondValidation(t *testing.T) {
	// given
	type payload struct {
		Quantity int32  `validate:"min=1"`
		Status   string `validate:"required"`
	}
	err := validator.New().Struct(payload{})
	rr := httptest.NewRecorder()

	// when
	RespondValidation(rr, discardLogger(), err)

	// then
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{
		"Quantity": "failed on rule: min",
		"Status":   "failed on rule: required",
	}, body["validation_errors"])
}

func Test_ParseUUID(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		wantOK bool
	}{
		{name: "valid", value: "8f14e45f-ceea-467e-a5b6-1f6f1d7e4f9b", wantOK: true},
		{name: "invalid", value: "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.SetPathValue("productId", tt.value)
			rr := httptest.NewRecorder()

			// when
			id, ok := ParseUUID(rr, req, discardLogger(), "productId")

			// then
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.value, id.String())
			} else {
				assert.Equal(t, http.StatusBadRequest, rr.Code)
			}
		})
	}
}

func Test_ParseOptionalGt(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected int32
		wantOK   bool
	}{
		{name: "absent", query: "", expected: 0, wantOK: true},
		{name: "positive", query: "?limit=5", expected: 5, wantOK: true},
		{name: "zero", query: "?limit=0"},
		{name: "not a number", query: "?limit=x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			rr := httptest.NewRecorder()

			// when
			got, ok := ParseOptionalGt(req, rr, discardLogger(), "limit", 0)

			// then
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}
