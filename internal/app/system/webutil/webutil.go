// Package webutil provides request parsing helpers shared by the
// feature handlers: JSON body decoding and ObjectID path parameters.
package webutil

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// maxBodyBytes caps request bodies. Message bodies and descriptions are
// short; anything larger is rejected before decoding.
const maxBodyBytes = 1 << 20

// DecodeJSON decodes the request body into dst. Unknown fields and
// trailing garbage are rejected so client typos surface as 400s instead
// of silently dropped fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("invalid request body: %v", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperr.Validation("invalid request body: unexpected trailing data")
	}
	return nil
}

// PathID parses the named chi URL parameter as an ObjectID.
func PathID(r *http.Request, name string) (primitive.ObjectID, error) {
	raw := chi.URLParam(r, name)
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid %s %q", name, raw)
	}
	return id, nil
}

// QueryBool reads a boolean query parameter, defaulting to false when
// absent or malformed.
func QueryBool(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

// QueryInt64 reads an integer query parameter, returning def when
// absent or malformed.
func QueryInt64(r *http.Request, name string, def int64) int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}

// QueryTime reads an RFC 3339 query parameter, returning the zero time
// when absent and a validation error when malformed.
func QueryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid %s: %v", name, err)
	}
	return t, nil
}
