package config

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func vaultServer(t *testing.T, data map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/secret/data/tributai" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Vault-Token") != "test-token" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		if ns := r.Header.Get("X-Vault-Namespace"); ns != "" && ns != "catastro" {
			http.Error(w, "wrong namespace", http.StatusForbidden)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"data": data}})
	}))
	t.Cleanup(server.Close)
	t.Setenv("VAULT_ADDR", server.URL)
	t.Setenv("VAULT_TOKEN", "test-token")
	return server
}

func TestResolveVault_Success(t *testing.T) {
	vaultServer(t, map[string]any{"pg_password": "s3cret"})

	val, err := resolveVault("secret/data/tributai#pg_password")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "s3cret" {
		t.Errorf("expected 's3cret', got %q", val)
	}
}

func TestResolveVault_Namespace(t *testing.T) {
	vaultServer(t, map[string]any{"pg_password": "s3cret"})
	t.Setenv("VAULT_NAMESPACE", "catastro")

	if _, err := resolveVault("secret/data/tributai#pg_password"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveVault_MissingKey(t *testing.T) {
	vaultServer(t, map[string]any{"username": "admin"})

	_, err := resolveVault("secret/data/tributai#nonexistent")
	if err == nil {
		t.Error("expected error for missing key")
	}
}

func TestResolveVault_NotFound(t *testing.T) {
	vaultServer(t, map[string]any{"pg_password": "s3cret"})

	_, err := resolveVault("secret/data/other#pg_password")
	if err == nil {
		t.Error("expected error for unknown path")
	}
}

func TestResolveVault_InvalidFormat(t *testing.T) {
	t.Setenv("VAULT_ADDR", "http://localhost:8200")
	t.Setenv("VAULT_TOKEN", "test-token")

	_, err := resolveVault("no-hash-separator")
	if err == nil {
		t.Error("expected error for invalid format")
	}
}

func TestResolveVault_MissingEnv(t *testing.T) {
	t.Setenv("VAULT_ADDR", "")
	t.Setenv("VAULT_TOKEN", "")

	_, err := resolveVault("secret/data/path#key")
	if err == nil {
		t.Error("expected error when VAULT_ADDR not set")
	}
}

func TestResolveValue_Vault(t *testing.T) {
	vaultServer(t, map[string]any{"sqlserver_password": "hunter2"})

	val, err := ResolveValue("${VAULT:secret/data/tributai#sqlserver_password}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "hunter2" {
		t.Errorf("expected 'hunter2', got %q", val)
	}
}
