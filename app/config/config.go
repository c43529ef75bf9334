// Package config deals with the optional YAML settings file. All settings are
// also available as flags/env; a loaded file overrides those values.
package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Settings is the YAML settings file shape
type Settings struct {
	Listen  string         `yaml:"listen,omitempty" json:"listen,omitempty" jsonschema:"description=listen address for the web dashboard"`
	DataDir string         `yaml:"data_dir,omitempty" json:"data_dir,omitempty" jsonschema:"description=directory holding the database and lock file"`
	Backup  BackupSettings `yaml:"backup,omitempty" json:"backup,omitempty"`
	Notify  NotifySettings `yaml:"notify,omitempty" json:"notify,omitempty"`
}

// BackupSettings controls scheduled CSV snapshots
type BackupSettings struct {
	Schedule string  `yaml:"schedule,omitempty" json:"schedule,omitempty" jsonschema:"description=cron schedule for snapshots,example=@daily"`
	Dir      string  `yaml:"dir,omitempty" json:"dir,omitempty" jsonschema:"description=snapshot directory"`
	Keep     int     `yaml:"keep,omitempty" json:"keep,omitempty" jsonschema:"description=how many snapshots to keep"`
	MinFree  float64 `yaml:"min_free,omitempty" json:"min_free,omitempty" jsonschema:"description=skip snapshots when free disk percent drops below"`
}

// NotifySettings controls backup failure notifications
type NotifySettings struct {
	Webhook string `yaml:"webhook,omitempty" json:"webhook,omitempty" jsonschema:"description=webhook URL notified on backup failures"`
}

// Load reads and validates a settings file
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return s, nil
}

// Validate checks field values without touching the filesystem
func (s Settings) Validate() error {
	if s.Backup.Schedule != "" {
		if _, err := cron.ParseStandard(s.Backup.Schedule); err != nil {
			return fmt.Errorf("invalid backup schedule %q: %w", s.Backup.Schedule, err)
		}
	}
	if s.Backup.Keep < 0 {
		return fmt.Errorf("backup keep must not be negative, got %d", s.Backup.Keep)
	}
	if s.Backup.MinFree < 0 || s.Backup.MinFree > 100 {
		return fmt.Errorf("backup min_free must be a percentage, got %v", s.Backup.MinFree)
	}
	if s.Notify.Webhook != "" {
		u, err := url.Parse(s.Notify.Webhook)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid notify webhook %q", s.Notify.Webhook)
		}
	}
	return nil
}

// GenerateSchema generates a JSON schema for the Settings struct
func GenerateSchema() (*jsonschema.Schema, error) {
	return jsonschema.Reflect(&Settings{}), nil
}
