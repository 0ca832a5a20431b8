package respond

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tohum-ai/tohum/internal/model"
)

func TestWriteModelErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("remember: %w", model.ErrValidation), http.StatusBadRequest},
		{"not found", fmt.Errorf("append: %w", model.ErrNotFound), http.StatusNotFound},
		{"index down", fmt.Errorf("search: %w: dial tcp", model.ErrIndexUnavailable), http.StatusServiceUnavailable},
		{"store down", fmt.Errorf("insert: %w: disk io", model.ErrStoreUnavailable), http.StatusInternalServerError},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteModelError(rec, tc.err)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			var body ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tc.want {
				t.Errorf("body code = %d, want %d", body.Code, tc.want)
			}
			if body.Message == "" {
				t.Error("expected error message in body")
			}
		})
	}
}

func TestWriteJSONSetsContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, map[string]string{"id": "m-1"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}
}
