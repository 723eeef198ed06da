package config

import (
	"testing"
)

func TestSecretField(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		key     string
		want    string
		wantErr bool
	}{
		{"whole secret", "s3cret", "", "s3cret", false},
		{"json field", `{"username":"sa","password":"hunter2"}`, "password", "hunter2", false},
		{"missing field", `{"username":"sa"}`, "password", "", true},
		{"not json", "s3cret", "password", "", true},
		{"non-string field", `{"port":1433}`, "port", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := secretField(tt.secret, tt.key, "db/sqlserver")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitRef(t *testing.T) {
	path, key, err := splitRef("secret/data/tributai#pg_password", false)
	if err != nil || path != "secret/data/tributai" || key != "pg_password" {
		t.Errorf("got %q %q %v", path, key, err)
	}

	path, key, err = splitRef("prod/sqlserver", true)
	if err != nil || path != "prod/sqlserver" || key != "" {
		t.Errorf("bare ref: got %q %q %v", path, key, err)
	}

	for _, bad := range []string{"no-hash", "#key", "path#"} {
		if _, _, err := splitRef(bad, false); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}
