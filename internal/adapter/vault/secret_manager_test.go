package vault

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func fakeVault(t *testing.T, secrets map[string]map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "test-token" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		data, ok := secrets[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"errors":[]}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": map[string]interface{}{"data": data},
		})
	}))
}

func TestSecretManager_Load(t *testing.T) {
	srv := fakeVault(t, map[string]map[string]interface{}{
		"/v1/secret/data/recognition/vision": {"api_key": "vision-key"},
		"/v1/secret/data/jwt":                {"secret": "jwt-secret"},
	})
	defer srv.Close()

	sm, err := NewSecretManager(srv.URL, "test-token", "", zap.NewNop())
	if err != nil {
		t.Fatalf("NewSecretManager failed: %v", err)
	}

	s, err := sm.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.VisionAPIKey != "vision-key" {
		t.Errorf("expected vision key, got %q", s.VisionAPIKey)
	}
	if s.JWTSecret != "jwt-secret" {
		t.Errorf("expected jwt secret, got %q", s.JWTSecret)
	}
	if s.OCRAPIKey != "" || s.DatabaseURL != "" {
		t.Errorf("expected missing secrets to stay empty, got %+v", s)
	}
}

func TestSecretManager_Forbidden(t *testing.T) {
	srv := fakeVault(t, nil)
	defer srv.Close()

	sm, _ := NewSecretManager(srv.URL, "wrong", "", zap.NewNop())
	if _, err := sm.Field(context.Background(), "jwt", "secret"); err == nil {
		t.Fatal("expected error for rejected token")
	}
}
