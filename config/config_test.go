package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nats-io/nats.go"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Plugin.Descriptor != "plugin.yaml" {
		t.Errorf("expected default descriptor plugin.yaml, got %s", cfg.Plugin.Descriptor)
	}
	if len(cfg.Scan) != 2 {
		t.Fatalf("expected 2 default scan entries, got %d", len(cfg.Scan))
	}
	if cfg.Scan[0].Kind != KindCommand || cfg.Scan[1].Kind != KindListener {
		t.Errorf("unexpected default scan kinds: %+v", cfg.Scan)
	}
	if cfg.NATS.Enabled {
		t.Error("expected the in-process bus by default")
	}
	if cfg.NATS.URL != nats.DefaultURL {
		t.Errorf("expected NATS URL %s, got %s", nats.DefaultURL, cfg.NATS.URL)
	}
	if cfg.DevMode {
		t.Error("expected dev mode off by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default config",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing descriptor",
			modify:  func(c *Config) { c.Plugin.Descriptor = "" },
			wantErr: true,
		},
		{
			name:    "no scan entries",
			modify:  func(c *Config) { c.Scan = nil },
			wantErr: true,
		},
		{
			name:    "wildcard namespace",
			modify:  func(c *Config) { c.Scan[0].Namespace = "commands/*" },
			wantErr: true,
		},
		{
			name:    "nested namespace",
			modify:  func(c *Config) { c.Scan[0].Namespace = "plugins/admin/commands" },
			wantErr: false,
		},
		{
			name:    "unknown kind",
			modify:  func(c *Config) { c.Scan[1].Kind = "handler" },
			wantErr: true,
		},
		{
			name:    "nats enabled without url",
			modify:  func(c *Config) { c.NATS.Enabled = true; c.NATS.URL = "" },
			wantErr: true,
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Log.Level = "verbose" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	content := `
dev_mode: true
plugin:
  descriptor: "plugins/demo.yaml"
  data_dir: "data"
scan:
  - namespace: "demo/commands"
    kind: command
    shallow: true
index: "components.yaml"
nats:
  enabled: true
  url: "nats://test:4222"
metrics:
  addr: ":9090"
`
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}

	if !cfg.DevMode {
		t.Error("expected dev mode on")
	}
	if cfg.Plugin.Descriptor != "plugins/demo.yaml" {
		t.Errorf("expected descriptor plugins/demo.yaml, got %s", cfg.Plugin.Descriptor)
	}
	if len(cfg.Scan) != 1 || !cfg.Scan[0].Shallow || cfg.Scan[0].Namespace != "demo/commands" {
		t.Errorf("unexpected scan entries: %+v", cfg.Scan)
	}
	if cfg.Index != "components.yaml" {
		t.Errorf("expected index components.yaml, got %s", cfg.Index)
	}
	if !cfg.NATS.Enabled || cfg.NATS.URL != "nats://test:4222" {
		t.Errorf("unexpected NATS config: %+v", cfg.NATS)
	}
	// Unset fields keep their defaults
	if cfg.NATS.SubjectPrefix != "semwire.events" {
		t.Errorf("expected default subject prefix, got %s", cfg.NATS.SubjectPrefix)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level, got %s", cfg.Log.Level)
	}
}

func TestLoadFromFile_Invalid(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("scan: {not: [a list"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromFile(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestConfigMerge(t *testing.T) {
	base := DefaultConfig()
	override := &Config{
		DevMode: true,
		Plugin: PluginConfig{
			Descriptor: "other.yaml",
		},
		Scan: []ScanConfig{{Namespace: "extra", Kind: KindListener}},
	}

	base.Merge(override)

	if !base.DevMode {
		t.Error("expected dev mode turned on")
	}
	if base.Plugin.Descriptor != "other.yaml" {
		t.Errorf("expected descriptor other.yaml, got %s", base.Plugin.Descriptor)
	}
	if len(base.Scan) != 1 || base.Scan[0].Namespace != "extra" {
		t.Errorf("expected scan entries replaced, got %+v", base.Scan)
	}
	// Fields the override left empty remain from base
	if base.NATS.URL != nats.DefaultURL {
		t.Errorf("expected NATS URL to remain default, got %s", base.NATS.URL)
	}

	// Merging a zero config changes nothing
	before := *base
	base.Merge(&Config{})
	if base.Plugin.Descriptor != before.Plugin.Descriptor || !base.DevMode {
		t.Error("zero-value merge should not reset fields")
	}
	base.Merge(nil)
}

func TestConfigSaveToFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "subdir", "config.yaml")

	cfg := DefaultConfig()
	cfg.Plugin.Descriptor = "saved.yaml"

	if err := cfg.SaveToFile(configPath); err != nil {
		t.Fatalf("SaveToFile() error = %v", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Error("config file was not created")
	}

	loaded, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("failed to load saved config: %v", err)
	}
	if loaded.Plugin.Descriptor != "saved.yaml" {
		t.Errorf("expected descriptor saved.yaml, got %s", loaded.Plugin.Descriptor)
	}
	if len(loaded.Scan) != 2 {
		t.Errorf("expected scan entries to round-trip, got %d", len(loaded.Scan))
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		dir, path, want string
	}{
		{"/srv", "plugin.yaml", "/srv/plugin.yaml"},
		{"/srv", "/etc/plugin.yaml", "/etc/plugin.yaml"},
		{"/srv", "", ""},
	}
	for _, tt := range tests {
		if got := ResolvePath(tt.dir, tt.path); got != filepath.FromSlash(tt.want) {
			t.Errorf("ResolvePath(%q, %q) = %q, want %q", tt.dir, tt.path, got, tt.want)
		}
	}
}
