package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks cross-field constraints that strict decoding cannot.
// It is also installed as the Manager's validator for live reloads.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.Catalog.Path) == "" {
		return errors.New("catalog.path is required")
	}

	if cfg.QuietHours.Enabled {
		if err := checkClock("quiet_hours.start", cfg.QuietHours.Start); err != nil {
			return err
		}
		if err := checkClock("quiet_hours.end", cfg.QuietHours.End); err != nil {
			return err
		}
	}

	for _, f := range []struct{ path, raw string }{
		{"dedup.banner_ttl", cfg.Dedup.BannerTTL},
		{"dedup.digest_ttl", cfg.Dedup.DigestTTL},
		{"triggers.imminent_lead", cfg.Triggers.ImminentLead},
		{"triggers.scan_every", cfg.Triggers.ScanEvery},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}

	if st := cfg.Storage; st != nil {
		switch strings.ToLower(strings.TrimSpace(st.Driver)) {
		case "", "none", "file", "sqlite", "sqlite3":
		default:
			return fmt.Errorf("storage.driver: unknown driver %q", st.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", st.BusyTimeout); err != nil {
			return err
		}
	}
	return nil
}

func checkClock(path, raw string) error {
	s := strings.TrimSpace(raw)
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[1]) != 2 {
		return fmt.Errorf("%s: invalid clock %q (want HH:MM)", path, raw)
	}
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return fmt.Errorf("%s: invalid clock %q: %w", path, raw, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return fmt.Errorf("%s: clock %q out of range", path, raw)
	}
	return nil
}
