package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	body := fmt.Sprintf(`
auth:
  jwt_secret: "dormctl-test-secret"
database:
  driver: sqlite
  dsn: %q
backup:
  dir: %q
log:
  level: error
  format: json
`, filepath.Join(dir, "dormitory.db"), filepath.Join(dir, "backups"))
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestRun(t *testing.T) {
	configPath := writeConfig(t)

	// Cases share one database and run in order.
	tests := []struct {
		name    string
		command string
		args    []string
		stdin   string
		wantErr string
		want    []string
	}{
		{
			name:    "create admin",
			command: "create-user",
			args:    []string{"-name", "Root", "-email", "Root@Example.edu"},
			stdin:   "s3cret-password\n",
			want:    []string{"created admin account 1 for root@example.edu"},
		},
		{
			name:    "missing email",
			command: "create-user",
			args:    []string{"-name", "Root"},
			stdin:   "s3cret-password\n",
			wantErr: "-name and -email are required",
		},
		{
			name:    "unknown role",
			command: "create-user",
			args:    []string{"-name", "Ops", "-email", "ops@example.edu", "-role", "janitor"},
			stdin:   "s3cret-password\n",
			wantErr: `unknown role "janitor"`,
		},
		{
			name:    "weak password",
			command: "create-user",
			args:    []string{"-name", "Ops", "-email", "ops@example.edu", "-role", "cashier"},
			stdin:   "short\n",
			wantErr: "password",
		},
		{
			name:    "unknown dormitory",
			command: "create-user",
			args:    []string{"-name", "Ops", "-email", "ops@example.edu", "-role", "manager", "-dormitory", "42"},
			stdin:   "s3cret-password\n",
			wantErr: "not found",
		},
		{
			name:    "list empty",
			command: "list-backups",
			want:    []string{"ID", "CREATED", "TRIGGER", "FILE"},
		},
		{
			name:    "backup",
			command: "backup",
			want:    []string{"created backup 1 (dormitory-", ".json"},
		},
		{
			name:    "list after backup",
			command: "list-backups",
			want:    []string{"manual", ".json"},
		},
		{
			name:    "restore declined",
			command: "restore",
			args:    []string{"-id", "1"},
			stdin:   "n\n",
			wantErr: "aborted",
			want:    []string{"Every current row will be replaced"},
		},
		{
			name:    "restore confirmed",
			command: "restore",
			args:    []string{"-id", "1"},
			stdin:   "y\n",
		},
		{
			name:    "restore unknown",
			command: "restore",
			args:    []string{"-id", "7", "-yes"},
			wantErr: "backup not found",
		},
		{
			name:    "unknown command",
			command: "serve",
			wantErr: `unknown command "serve"`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(context.Background(), configPath, tt.command, tt.args, strings.NewReader(tt.stdin), &out)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			for _, w := range tt.want {
				assert.Contains(t, out.String(), w)
			}
		})
	}
}

func TestRun_AccountSurvivesRestore(t *testing.T) {
	configPath := writeConfig(t)
	ctx := context.Background()
	var out bytes.Buffer

	require.NoError(t, run(ctx, configPath, "create-user", []string{"-name", "Root", "-email", "root@example.edu"},
		strings.NewReader("s3cret-password\n"), &out))
	require.NoError(t, run(ctx, configPath, "backup", nil, strings.NewReader(""), &out))
	require.NoError(t, run(ctx, configPath, "restore", []string{"-id", "1", "-yes"}, strings.NewReader(""), &out))

	// The restored users table still holds the account, so the email is taken.
	err := run(ctx, configPath, "create-user", []string{"-name", "Again", "-email", "root@example.edu"},
		strings.NewReader("s3cret-password\n"), &out)
	assert.Error(t, err)
}

func TestRun_BadConfig(t *testing.T) {
	err := run(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), "migrate", nil, strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load configuration")
}
