package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `
app:
  port: 3000
  domain: example.org
totp:
  period: 30
  label: ops
instrument:
  log_mask_fields: "token, cookie,,authorization"
session:
  ttl_minutes: 15
`

func TestNewViperFromBytes(t *testing.T) {
	// Arrange
	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML), WithDefaults(map[string]any{
		"totp.skew": 1,
	}))
	if err != nil {
		t.Fatalf("NewViperFromBytes() error = %v", err)
	}

	// Assert
	if got := cfg.GetInt("app.port"); got != 3000 {
		t.Errorf("app.port = %d, want 3000", got)
	}
	if got := cfg.GetString("app.domain"); got != "example.org" {
		t.Errorf("app.domain = %q, want example.org", got)
	}
	if got := cfg.GetUint("totp.skew"); got != 1 {
		t.Errorf("totp.skew default = %d, want 1", got)
	}
	if got := cfg.GetMinute("session.ttl_minutes"); got != 15*time.Minute {
		t.Errorf("session.ttl_minutes = %v, want 15m", got)
	}

	fields := cfg.GetArray("instrument.log_mask_fields")
	want := []string{"token", "cookie", "authorization"}
	if len(fields) != len(want) {
		t.Fatalf("GetArray() = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("GetArray()[%d] = %q, want %q", i, fields[i], want[i])
		}
	}

	if got := cfg.GetArray("missing.key"); len(got) != 0 {
		t.Errorf("GetArray(missing) = %v, want empty", got)
	}
}

func TestNewViperFromBytes_EnvOverride(t *testing.T) {
	// Arrange
	t.Setenv("TOTP_LABEL", "from-env")
	t.Setenv("TWO_FA_ISSUER", "legacy-issuer")

	// Act
	cfg, err := NewViperFromBytes("yaml", []byte(sampleYAML), WithEnvAliases(map[string][]string{
		"totp.issuer": {"TOTP_ISSUER", "TWO_FA_ISSUER"},
	}))
	if err != nil {
		t.Fatalf("NewViperFromBytes() error = %v", err)
	}

	// Assert
	if got := cfg.GetString("totp.label"); got != "from-env" {
		t.Errorf("totp.label = %q, want from-env", got)
	}
	if got := cfg.GetString("totp.issuer"); got != "legacy-issuer" {
		t.Errorf("totp.issuer = %q, want legacy-issuer", got)
	}
}

func TestNewViperFromBytes_TypeRequired(t *testing.T) {
	if _, err := NewViperFromBytes(" ", nil); err == nil {
		t.Fatalf("expected error for empty config type")
	}
}

func TestNewViper_MissingFileUsesEnv(t *testing.T) {
	// Arrange
	t.Setenv("APP_DOMAIN", "env.local")
	p := filepath.Join(t.TempDir(), "absent.yaml")

	// Act
	cfg, err := NewViper(p)
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}

	// Assert
	if got := cfg.GetString("app.domain"); got != "env.local" {
		t.Errorf("app.domain = %q, want env.local", got)
	}
}

func TestNewViper_ReadsFile(t *testing.T) {
	// Arrange
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(sampleYAML), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// Act
	cfg, err := NewViper(p)
	if err != nil {
		t.Fatalf("NewViper() error = %v", err)
	}
	defer cfg.Close()

	// Assert
	if got := cfg.GetString("totp.label"); got != "ops" {
		t.Errorf("totp.label = %q, want ops", got)
	}
}

func TestViper_GetBinary(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "valid", value: "aGVsbG8=", want: "hello"},
		{name: "invalid", value: "%%%", want: ""},
		{name: "missing", value: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			cfg, err := NewViperFromBytes("yaml", []byte("blob: \""+tt.value+"\"\n"))
			if err != nil {
				t.Fatalf("NewViperFromBytes() error = %v", err)
			}

			// Act
			got := cfg.GetBinary("blob")

			// Assert
			if string(got) != tt.want {
				t.Fatalf("GetBinary() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestViper_GetArrayFromList(t *testing.T) {
	cfg, err := NewViperFromBytes("yaml", []byte("brokers: [\" a:9092 \", \"\", b:9092]\n"))
	if err != nil {
		t.Fatalf("NewViperFromBytes() error = %v", err)
	}

	got := cfg.GetArray("brokers")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("GetArray() = %v", got)
	}
}
