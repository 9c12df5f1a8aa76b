package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const testKey = "0123456789abcdef0123456789abcdef"

func TestNewVerifier_EmptyKey(t *testing.T) {
	if _, err := NewVerifier("", zap.NewNop()); err == nil {
		t.Fatal("expected error for empty signing key")
	}
}

func TestLoadIdentity_RoundTrip(t *testing.T) {
	v, err := NewVerifier(testKey, zap.NewNop())
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	want := Identity{UserID: primitive.NewObjectID(), Name: "Pat Doe", Role: "member"}
	encoded, err := v.Encode(want)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var got Identity
	var found bool
	h := v.LoadIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = CurrentIdentity(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: encoded})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !found {
		t.Fatal("identity not found in context")
	}
	if got != want {
		t.Errorf("identity = %+v, want %+v", got, want)
	}
}

func TestLoadIdentity_TamperedCookie(t *testing.T) {
	v, _ := NewVerifier(testKey, zap.NewNop())

	var found bool
	h := v.LoadIdentity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = CurrentIdentity(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-signed-value"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if found {
		t.Error("tampered cookie must not yield an identity")
	}
}

func TestRequireSignedIn(t *testing.T) {
	h := RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Anonymous request is rejected.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}

	// Authenticated request passes.
	rec = httptest.NewRecorder()
	req := WithIdentity(httptest.NewRequest(http.MethodGet, "/", nil),
		Identity{UserID: primitive.NewObjectID(), Role: "member"})
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	h := RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name string
		role string
		want int
	}{
		{"admin allowed", "admin", http.StatusOK},
		{"member forbidden", "member", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := WithIdentity(httptest.NewRequest(http.MethodPost, "/", nil),
				Identity{UserID: primitive.NewObjectID(), Role: tt.role})
			h.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rec.Code)
	}
}
