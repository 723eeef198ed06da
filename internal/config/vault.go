package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/vault/api"
)

// splitRef splits "path#key". The key part is optional when allowBare is set.
func splitRef(ref string, allowBare bool) (string, string, error) {
	path, key, found := strings.Cut(ref, "#")
	if !found {
		if allowBare {
			return path, "", nil
		}
		return "", "", fmt.Errorf("invalid secret reference %q: expected format path#key", ref)
	}
	if path == "" || key == "" {
		return "", "", fmt.Errorf("invalid secret reference %q: expected format path#key", ref)
	}
	return path, key, nil
}

func newVaultClient() (*api.Client, error) {
	addr := os.Getenv("VAULT_ADDR")
	if addr == "" {
		return nil, fmt.Errorf("VAULT_ADDR environment variable not set")
	}
	token := os.Getenv("VAULT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("VAULT_TOKEN environment variable not set")
	}

	cfg := api.DefaultConfig()
	cfg.Address = addr

	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating Vault client: %w", err)
	}
	client.SetToken(token)
	if ns := os.Getenv("VAULT_NAMESPACE"); ns != "" {
		client.SetNamespace(ns)
	}
	return client, nil
}

// resolveVault reads a database password from Vault.
// Format: secret/data/path#key
func resolveVault(ref string) (string, error) {
	path, key, err := splitRef(ref, false)
	if err != nil {
		return "", err
	}

	client, err := newVaultClient()
	if err != nil {
		return "", err
	}

	secret, err := client.Logical().Read(path)
	if err != nil {
		return "", fmt.Errorf("reading Vault secret at %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("no secret found at %s", path)
	}

	// KV v2 nests the payload under "data".
	data := secret.Data
	if inner, ok := data["data"].(map[string]any); ok {
		data = inner
	}
	return lookupKey(data, key, "Vault secret at "+path)
}

func lookupKey(data map[string]any, key, where string) (string, error) {
	val, ok := data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in %s", key, where)
	}
	str, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("value for key %q in %s is not a string", key, where)
	}
	return str, nil
}
