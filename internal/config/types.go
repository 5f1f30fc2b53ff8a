package config

// Config is the full campusflow configuration.
//
// All durations are Go duration strings (e.g. "8s", "30m", "24h"). Files may
// be JSON or YAML; YAML is coerced to JSON before strict decoding.
type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Catalog locates the event source feed (.yaml/.yml or .ics).
	Catalog CatalogConfig `json:"catalog"`

	QuietHours QuietHoursConfig `json:"quiet_hours"`
	Channels   ChannelsConfig   `json:"channels"`
	Dedup      DedupConfig      `json:"dedup,omitempty"`
	Triggers   TriggersConfig   `json:"triggers,omitempty"`
	Storage    *StorageConfig   `json:"storage,omitempty"`
}

type LoggingConfig struct {
	Level   string     `json:"level"`
	Console bool       `json:"console"`
	File    FileConfig `json:"file,omitempty"`
}

type FileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type CatalogConfig struct {
	Path string `json:"path"`
	// Watch reloads the catalog on file changes and derives
	// new-event / location-change notification candidates from the diff.
	Watch bool `json:"watch"`
}

// QuietHoursConfig is the do-not-disturb window. Start/End are "HH:MM" on a
// 24h clock; Start > End wraps across midnight.
type QuietHoursConfig struct {
	Enabled bool   `json:"enabled"`
	Start   string `json:"start,omitempty"`
	End     string `json:"end,omitempty"`
}

// ChannelsConfig holds per-channel opt-ins. A disabled channel is treated as
// absent from every routing decision.
type ChannelsConfig struct {
	Email     bool `json:"email"`
	Messaging bool `json:"messaging"`
	// MessagingUrgentOnly restricts messaging to urgent notifications.
	MessagingUrgentOnly bool `json:"messaging_urgent_only,omitempty"`
	Push                bool `json:"push"`
}

// DedupConfig controls fingerprint TTLs.
//
// Defaults (when fields are omitted/zero):
//   - banner_ttl: "8s"
//   - digest_ttl: "24h"
type DedupConfig struct {
	BannerTTL string `json:"banner_ttl,omitempty"`
	DigestTTL string `json:"digest_ttl,omitempty"`
	// PersistDedup mirrors suppress-until keys to storage so a restart
	// inside a TTL window does not re-notify.
	PersistDedup bool `json:"persist_dedup,omitempty"`
}

// TriggersConfig controls the built-in trigger sources.
//
// Defaults (when fields are omitted/zero):
//   - digest_cron: "0 8 * * *"
//   - imminent_lead: "30m"
//   - scan_every: "1m"
type TriggersConfig struct {
	DigestCron   string `json:"digest_cron,omitempty"`
	ImminentLead string `json:"imminent_lead,omitempty"`
	ScanEvery    string `json:"scan_every,omitempty"`
}

// StorageConfig controls the optional persistence layer.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./campusflow_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
