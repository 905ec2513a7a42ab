package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Tiliavir/study-time-tracker/internal/storage"
)

// Config is the root configuration for stt, stored in ~/.stt/config.json.
// The file supports single-line // comments for documentation purposes.
type Config struct {
	// DataDir holds the CSV tables. Empty means ~/.stt.
	DataDir string `json:"data_dir"`
	// RetentionDays is the sliding window of entries kept on load.
	RetentionDays int `json:"retention_days"`
	// DefaultGoalMinutes is the daily goal used until one is set for the day.
	DefaultGoalMinutes int          `json:"default_goal_minutes"`
	Backup             BackupConfig `json:"backup"`
}

// BackupConfig selects where and when the entry table is backed up.
type BackupConfig struct {
	// Provider is "onedrive", "local" or "" (backups disabled).
	Provider string `json:"provider"`
	// Auto enables the once-a-day backup after commands that change data.
	Auto bool `json:"auto"`
	// FolderName is the remote folder holding the backups.
	FolderName string `json:"folder_name"`
	// LocalDir is the target directory for the "local" provider.
	LocalDir string         `json:"local_dir"`
	OneDrive OneDriveConfig `json:"onedrive"`
}

// OneDriveConfig holds Microsoft Graph settings.
type OneDriveConfig struct {
	// TenantID is the Azure AD tenant. Use "common" for personal/multi-tenant accounts.
	TenantID string `json:"tenant_id"`
	// ClientID is the Azure app (client) ID for the OAuth2 device code flow.
	ClientID string `json:"client_id"`
	// DriveID selects a shared drive. Empty = the signed-in user's drive.
	DriveID string `json:"drive_id"`
	// Parent is the item the backup folder is created under.
	Parent string `json:"parent"`
}

// Backup providers.
const (
	ProviderNone     = ""
	ProviderOneDrive = "onedrive"
	ProviderLocal    = "local"
)

const (
	// DefaultTenantID is the Microsoft "common" tenant (supports personal and
	// multi-tenant organisational accounts without additional registration).
	DefaultTenantID = "common"
	// DefaultClientID is the well-known public Azure CLI app ID.
	// It supports device code flow without a client secret and requires no
	// app registration. Replace with your own registered app ID for
	// organisational or production deployments.
	DefaultClientID = "04b07795-8542-4c4a-95af-30b2c573d5ab"
	// DefaultGoalMinutes is the daily goal when none is configured.
	DefaultGoalMinutes = 90
	// DefaultFolderName is the remote backup folder.
	DefaultFolderName = "StudyLog_Autobackups"
	// DefaultParent is the drive root.
	DefaultParent = "root"
)

// Default returns a Config pre-filled with the built-in defaults.
func Default() Config {
	return Config{
		RetentionDays:      storage.DefaultRetentionDays,
		DefaultGoalMinutes: DefaultGoalMinutes,
		Backup: BackupConfig{
			Provider:   ProviderNone,
			Auto:       true,
			FolderName: DefaultFolderName,
			OneDrive: OneDriveConfig{
				TenantID: DefaultTenantID,
				ClientID: DefaultClientID,
				Parent:   DefaultParent,
			},
		},
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing,
// allowing human-readable documentation inside the file.
const configTemplate = `// stt configuration – ~/.stt/config.json
//
// All settings are optional; the built-in defaults shown below work out of
// the box. Edit this file to customise stt behaviour.
{
  // Directory holding entries.csv, goals.csv and the backup log.
  // Leave empty to use ~/.stt.
  "data_dir": "",

  // Entries older than this many days are pruned when the log is loaded.
  "retention_days": 180,

  // Daily goal in minutes, used until "stt goal set" records one for the day.
  "default_goal_minutes": 90,

  // ── Backups ──────────────────────────────────────────────────────────────
  "backup": {
    // Where backups go:
    // • ""         – backups disabled (default)
    // • "onedrive" – a folder in your OneDrive (Microsoft Graph)
    // • "local"    – a folder on disk, see local_dir
    "provider": "",

    // Upload entries.csv once per day after a command that changes data.
    "auto": true,

    // Name of the folder that receives the backup files.
    "folder_name": "StudyLog_Autobackups",

    // Target directory for the "local" provider, e.g. a synced folder.
    "local_dir": "",

    "onedrive": {
      // Azure AD tenant ID.
      // • "common"  – personal Microsoft accounts and any organisation (default)
      // • Your organisation's tenant GUID, e.g. "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"
      "tenant_id": "common",

      // Azure application (client) ID used for the OAuth2 device code flow.
      // The built-in value is the public Azure CLI app – no app registration needed.
      "client_id": "04b07795-8542-4c4a-95af-30b2c573d5ab",

      // ID of a shared drive. Leave empty to use your own OneDrive.
      "drive_id": "",

      // Item the backup folder lives under; "root" is the top of the drive.
      "parent": "root"
    }
  }
}
`

// FilePath returns the path to ~/.stt/config.json.
func FilePath() (string, error) {
	base, err := storage.BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads ~/.stt/config.json, creating it with annotated defaults on first
// run.
func Load() (Config, error) {
	path, err := FilePath()
	if err != nil {
		return Default(), err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path, writing the annotated template there if
// the file does not exist. Lines starting with // are treated as comments and
// stripped before JSON parsing.
func LoadFrom(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		// First run: write the annotated template so users can discover options.
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("reading config file %s: %w", path, err)
	}

	// Keys missing from the file keep their default values.
	cfg := Default()
	if err := json.Unmarshal(stripLineComments(data), &cfg); err != nil {
		return Default(), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}

	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// fillDefaults replaces explicit zero values with the built-in defaults.
func (c *Config) fillDefaults() {
	if c.RetentionDays <= 0 {
		c.RetentionDays = storage.DefaultRetentionDays
	}
	if c.DefaultGoalMinutes <= 0 {
		c.DefaultGoalMinutes = DefaultGoalMinutes
	}
	if c.Backup.FolderName == "" {
		c.Backup.FolderName = DefaultFolderName
	}
	if c.Backup.OneDrive.TenantID == "" {
		c.Backup.OneDrive.TenantID = DefaultTenantID
	}
	if c.Backup.OneDrive.ClientID == "" {
		c.Backup.OneDrive.ClientID = DefaultClientID
	}
	if c.Backup.OneDrive.Parent == "" {
		c.Backup.OneDrive.Parent = DefaultParent
	}
	c.Backup.Provider = strings.ToLower(strings.TrimSpace(c.Backup.Provider))
}

// Validate checks values that have no sensible fallback.
func (c Config) Validate() error {
	switch c.Backup.Provider {
	case ProviderNone, ProviderOneDrive:
	case ProviderLocal:
		if c.Backup.LocalDir == "" {
			return fmt.Errorf(`backup.provider "local" needs backup.local_dir`)
		}
	default:
		return fmt.Errorf("unknown backup.provider %q (use \"onedrive\", \"local\" or \"\")", c.Backup.Provider)
	}
	if strings.ContainsAny(c.Backup.FolderName, `/\`) {
		return fmt.Errorf("backup.folder_name %q must not contain a path separator", c.Backup.FolderName)
	}
	return nil
}

// ResolveDataDir returns DataDir with a leading ~ expanded, or ~/.stt when
// DataDir is empty.
func (c Config) ResolveDataDir() (string, error) {
	if c.DataDir == "" {
		return storage.BaseDir()
	}
	return expandHome(c.DataDir)
}

// ResolveLocalDir returns Backup.LocalDir with a leading ~ expanded.
func (c Config) ResolveLocalDir() (string, error) {
	return expandHome(c.Backup.LocalDir)
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
