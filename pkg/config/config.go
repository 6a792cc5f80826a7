// Package config loads the INI configuration file shared by the export and
// notifier tools.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/tanksense/tanksense/pkg/forecast"
)

// Sensit holds the [sensit] section: account credentials, the optional
// local cache path and history/forecast tuning.
type Sensit struct {
	Username        string
	Password        string
	Cache           string
	StartDate       time.Time
	RefillThreshold float64
}

// SMTP holds the [smtp] section used by the notifier.
type SMTP struct {
	Server   string
	Username string
	Password string
	Email    string
}

// File is a parsed configuration file.
type File struct {
	Sensit Sensit
	SMTP   SMTP
}

var startDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Load reads and validates the configuration at path. The sensit username
// and password are required; everything else is optional with defaults.
func Load(path string) (*File, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	sensit := cfg.Section("sensit")
	f := &File{
		Sensit: Sensit{
			Username:        sensit.Key("username").String(),
			Password:        sensit.Key("password").String(),
			Cache:           expandUser(sensit.Key("cache").String()),
			RefillThreshold: forecast.DefaultRefillThreshold,
		},
	}
	if f.Sensit.Username == "" {
		return nil, fmt.Errorf("config value 'username' not found in section 'sensit'")
	}
	if f.Sensit.Password == "" {
		return nil, fmt.Errorf("config value 'password' not found in section 'sensit'")
	}

	if raw := sensit.Key("start-date").String(); raw != "" {
		start, err := parseStartDate(raw)
		if err != nil {
			return nil, fmt.Errorf("config value 'start-date': %w", err)
		}
		f.Sensit.StartDate = start
	}
	if raw := sensit.Key("refill-threshold").String(); raw != "" {
		threshold, err := sensit.Key("refill-threshold").Float64()
		if err != nil {
			return nil, fmt.Errorf("config value 'refill-threshold': %w", err)
		}
		f.Sensit.RefillThreshold = threshold
	}

	smtp := cfg.Section("smtp")
	f.SMTP = SMTP{
		Server:   smtp.Key("server").String(),
		Username: smtp.Key("username").String(),
		Password: smtp.Key("password").String(),
		Email:    smtp.Key("email").String(),
	}
	return f, nil
}

// RequireSMTP validates that every [smtp] key the notifier needs is set.
func (f *File) RequireSMTP() error {
	for key, value := range map[string]string{
		"server":   f.SMTP.Server,
		"username": f.SMTP.Username,
		"password": f.SMTP.Password,
		"email":    f.SMTP.Email,
	} {
		if value == "" {
			return fmt.Errorf("config value '%s' not found in section 'smtp'", key)
		}
	}
	return nil
}

func parseStartDate(raw string) (time.Time, error) {
	for _, layout := range startDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date", raw)
}

// expandUser resolves a leading ~ in the cache path.
func expandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}
