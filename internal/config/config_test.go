package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.QueuePolicy != "lifo" {
		t.Errorf("expected queue_policy %q, got %q", "lifo", cfg.QueuePolicy)
	}
	if cfg.FetchTimeout != DefaultFetchTimeout {
		t.Errorf("expected fetch_timeout %v, got %v", DefaultFetchTimeout, cfg.FetchTimeout)
	}
	if !cfg.CacheFailures {
		t.Error("expected cache_failures to default to true")
	}
}

func TestParse(t *testing.T) {
	data := `
mirror_dir = "/var/cache/imgcache"
mirror_max_bytes = 1048576
memory_capacity = 256
queue_policy = "FIFO"
fetch_timeout = "5s"
cache_failures = false
user_agent = "imgcache/1.0"
`
	cfg, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := Config{
		MirrorDir:      "/var/cache/imgcache",
		MirrorMaxBytes: 1048576,
		MemoryCapacity: 256,
		QueuePolicy:    "fifo",
		FetchTimeout:   5 * time.Second,
		CacheFailures:  false,
		UserAgent:      "imgcache/1.0",
	}
	if cfg != want {
		t.Errorf("Parse() = %+v, want %+v", cfg, want)
	}
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg != Default() {
		t.Errorf("Parse(nil) = %+v, want %+v", cfg, Default())
	}
}

func TestParseExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	cfg, err := Parse([]byte(`mirror_dir = "~/images"`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if want := filepath.Join(home, "images"); cfg.MirrorDir != want {
		t.Errorf("MirrorDir = %q, want %q", cfg.MirrorDir, want)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"bad toml", `mirror_dir = `, "failed to parse"},
		{"relative mirror dir", `mirror_dir = "cache"`, "mirror_dir must be absolute"},
		{"negative max bytes", `mirror_max_bytes = -1`, "invalid mirror_max_bytes"},
		{"negative capacity", `memory_capacity = -5`, "invalid memory_capacity"},
		{"unknown policy", `queue_policy = "random"`, "invalid queue_policy"},
		{"bad timeout", `fetch_timeout = "soon"`, "invalid fetch_timeout"},
		{"negative timeout", `fetch_timeout = "-1s"`, "invalid fetch_timeout"},
		{"unknown key", `mirror_size = 10`, "unknown config keys: mirror_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatalf("Parse(%q) expected error", tt.data)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantErr)
			}
			if cfg != Default() {
				t.Errorf("invalid config should return Default(), got %+v", cfg)
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadFile(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("LoadFile(missing) error = %v", err)
	}
	if cfg != Default() {
		t.Errorf("LoadFile(missing) = %+v, want defaults", cfg)
	}

	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`memory_capacity = 12`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.MemoryCapacity != 12 {
		t.Errorf("MemoryCapacity = %d, want 12", cfg.MemoryCapacity)
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		path    string
		wantErr bool
	}{
		{"", false},
		{"~", false},
		{"~/cache", false},
		{"/abs/cache", false},
		{".", true},
		{"rel/cache", true},
	}
	for _, tt := range tests {
		err := ValidatePath(tt.path, "mirror_dir")
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.path, err, tt.wantErr)
		}
	}
}
