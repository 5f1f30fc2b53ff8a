package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const goodYAML = `logging:
  level: debug
  console: true
catalog:
  path: ./events.yaml
  watch: true
quiet_hours:
  enabled: true
  start: "22:00"
  end: "08:00"
channels:
  email: true
  messaging: true
  messaging_urgent_only: true
  push: true
dedup:
  banner_ttl: 8s
  digest_ttl: 24h
triggers:
  digest_cron: "0 8 * * *"
  imminent_lead: 30m
  scan_every: 1m
storage:
  driver: file
  path: ./store
`

const goodJSON = `{
  "logging": {"level": "info", "console": true},
  "catalog": {"path": "./events.yaml", "watch": false},
  "quiet_hours": {"enabled": false},
  "channels": {"email": true, "messaging": false, "push": true}
}`

func writeConfig(t *testing.T, name, body string) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return NewManager(path)
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	cfg, err := writeConfig(t, "config.yaml", goodYAML).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if !cfg.Catalog.Watch || cfg.Catalog.Path != "./events.yaml" {
		t.Fatalf("catalog = %+v", cfg.Catalog)
	}
	if !cfg.QuietHours.Enabled || cfg.QuietHours.Start != "22:00" || cfg.QuietHours.End != "08:00" {
		t.Fatalf("quiet_hours = %+v", cfg.QuietHours)
	}
	if !cfg.Channels.MessagingUrgentOnly {
		t.Fatalf("channels = %+v", cfg.Channels)
	}
	if cfg.Storage == nil || cfg.Storage.Driver != "file" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	cfg, err := writeConfig(t, "config.json", goodJSON).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Channels.Messaging || !cfg.Channels.Push {
		t.Fatalf("channels = %+v", cfg.Channels)
	}
	if cfg.Storage != nil {
		t.Fatalf("storage = %+v, want nil when omitted", cfg.Storage)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "config.yaml", goodYAML+"unknown_section:\n  x: 1\n")
	if _, err := m.Parse(); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestParseRejectsTrailingJSON(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "config.json", goodJSON+`{"logging":{}}`)
	if _, err := m.Parse(); err == nil {
		t.Fatal("trailing JSON accepted")
	}
}

func TestLoadCommitGet(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "config.yaml", goodYAML)
	if m.Get() != nil {
		t.Fatal("Get() before Load() not nil")
	}
	cfg, err := m.Load()
	if err != nil {
		t.Fatal(err)
	}
	if m.Get() != cfg {
		t.Fatal("Get() after Load() differs")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() *Config {
		return &Config{
			Catalog:    CatalogConfig{Path: "./events.yaml"},
			QuietHours: QuietHoursConfig{Enabled: true, Start: "22:00", End: "08:00"},
		}
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"missing catalog path", func(c *Config) { c.Catalog.Path = " " }, true},
		{"bad quiet start", func(c *Config) { c.QuietHours.Start = "25:00" }, true},
		{"bad quiet end", func(c *Config) { c.QuietHours.End = "8am" }, true},
		{"quiet disabled skips clocks", func(c *Config) {
			c.QuietHours = QuietHoursConfig{Enabled: false, Start: "nope"}
		}, false},
		{"bad banner ttl", func(c *Config) { c.Dedup.BannerTTL = "eight seconds" }, true},
		{"good durations", func(c *Config) {
			c.Dedup = DedupConfig{BannerTTL: "8s", DigestTTL: "24h"}
			c.Triggers = TriggersConfig{ImminentLead: "30m", ScanEvery: "1m"}
		}, false},
		{"bad scan cadence", func(c *Config) { c.Triggers.ScanEvery = "-1m" }, true},
		{"unknown storage driver", func(c *Config) {
			c.Storage = &StorageConfig{Driver: "postgres"}
		}, true},
		{"sqlite storage ok", func(c *Config) {
			c.Storage = &StorageConfig{Driver: "sqlite", Path: "./db", BusyTimeout: "5s"}
		}, false},
		{"nil config", nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cfg *Config
			if tc.mutate != nil {
				cfg = base()
				tc.mutate(cfg)
			}
			err := Validate(cfg)
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", " 30m "); err != nil || d != 30*time.Minute {
		t.Fatalf("got %v, %v", d, err)
	}
	if d, err := ParseDurationField("x", ""); err != nil || d != 0 {
		t.Fatalf("empty: got %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "-5s"); err == nil {
		t.Fatal("negative accepted")
	}
	if _, err := ParseDurationField("x", "soon"); err == nil {
		t.Fatal("garbage accepted")
	}
	if d, err := ParseDurationOrDefault("x", "", 8*time.Second); err != nil || d != 8*time.Second {
		t.Fatalf("default: got %v, %v", d, err)
	}
	if d, err := ParseDurationOrDefault("x", "10s", 8*time.Second); err != nil || d != 10*time.Second {
		t.Fatalf("explicit: got %v, %v", d, err)
	}
}

func TestSubscribePublish(t *testing.T) {
	t.Parallel()
	m := writeConfig(t, "config.yaml", goodYAML)
	sub := m.Subscribe(1)
	defer m.Unsubscribe(sub)

	cfg := &Config{Catalog: CatalogConfig{Path: "a"}}
	m.publish(cfg)
	select {
	case got := <-sub:
		if got != cfg {
			t.Fatal("wrong config delivered")
		}
	case <-time.After(time.Second):
		t.Fatal("publish did not deliver")
	}

	// A full buffer drops the oldest, keeps the newest.
	first := &Config{Catalog: CatalogConfig{Path: "first"}}
	second := &Config{Catalog: CatalogConfig{Path: "second"}}
	m.publish(first)
	m.publish(second)
	if got := <-sub; got != second {
		t.Fatalf("got %q, want newest", got.Catalog.Path)
	}
}
