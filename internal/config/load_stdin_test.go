package config

import (
	"os"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o600)
}

func TestValidateSingleStdinFileSource_AllowsZeroOrOneStdinSource(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		v := viper.New()
		v.Set("database.dsn_file", "/tmp/dsn")
		v.Set("database.password_file", "/tmp/password")

		if err := validateSingleStdinFileSource(v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("one", func(t *testing.T) {
		v := viper.New()
		v.Set("database.dsn_file", "@-")
		v.Set("database.password_file", "/tmp/password")

		if err := validateSingleStdinFileSource(v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestValidateSingleStdinFileSource_RejectsMultipleStdinSources(t *testing.T) {
	v := viper.New()
	v.Set("database.dsn_file", "@-")
	v.Set("database.password_file", " @- ")

	err := validateSingleStdinFileSource(v)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	msg := err.Error()
	if !strings.Contains(msg, "database.dsn_file") || !strings.Contains(msg, "database.password_file") {
		t.Fatalf("error message missing expected keys: %s", msg)
	}
}

func TestLoad_DSNFileIgnoredWhenDSNSet(t *testing.T) {
	path := t.TempDir() + "/dsn"
	if err := writeFile(path, "host=from-file\n"); err != nil {
		t.Fatal(err)
	}

	v := newViper()
	v.Set("database.dsn", "host=explicit")
	v.Set("database.dsn_file", path)

	cfg, err := load(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.ConnectionString != "host=explicit" {
		t.Fatalf("expected explicit dsn, got %q", cfg.Database.ConnectionString)
	}
}

func TestLoad_DSNFileMissing(t *testing.T) {
	v := newViper()
	v.Set("database.dsn_file", t.TempDir()+"/missing")

	if _, err := load(v); err == nil || !strings.Contains(err.Error(), "DSN file") {
		t.Fatalf("expected DSN file error, got %v", err)
	}
}
