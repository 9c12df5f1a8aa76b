package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("bad input"), http.StatusBadRequest},
		{"conflict", Conflict("already friends"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("sign in"), http.StatusUnauthorized},
		{"forbidden", Forbidden("admins only"), http.StatusForbidden},
		{"not found", NotFound("no such group"), http.StatusNotFound},
		{"transient", Transient(errors.New("conn reset")), http.StatusInternalServerError},
		{"unclassified", errors.New("surprise"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("accept: %w", NotFound("no such user")), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("outer: %w", Conflict("dup"))
	if !Is(err, KindConflict) {
		t.Error("expected wrapped conflict to match KindConflict")
	}
	if Is(err, KindNotFound) {
		t.Error("conflict must not match KindNotFound")
	}
	if Is(errors.New("plain"), KindConflict) {
		t.Error("plain error must not match KindConflict")
	}
}

func TestWriteError_HidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, Transient(errors.New("dial tcp: connection refused")))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Success {
		t.Error("success must be false")
	}
	if body.Error != "an unexpected error occurred" {
		t.Errorf("internal cause leaked: %q", body.Error)
	}
}

func TestWriteError_KeepsCallerMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, Conflict("users are already friends"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "users are already friends" {
		t.Errorf("error = %q, want caller message", body.Error)
	}
}
