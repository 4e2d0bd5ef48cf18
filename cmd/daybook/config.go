// Config loading for the daybook CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDataDir       = "data_dir"
	cfgKeyBaseURL       = "remote.base_url"
	cfgKeyDocumentID    = "remote.document_id"
	cfgKeyBackupID      = "remote.backup_id"
	cfgKeyToken         = "remote.token"
	cfgKeySyncInterval  = "daemon.sync_interval"
	cfgKeyInboxDir      = "daemon.inbox_dir"
	cfgKeyLogFile       = "daemon.log_file"
	cfgKeyDashboardPort = "daemon.dashboard_port"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# Daybook configuration

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# Remote document service. Run 'daybook login' to store a token.
remote:
  base_url: ""
  document_id: "primary"
  backup_id: "backup"
  token: ""

# Sync daemon settings.
daemon:
  sync_interval: 5m
  dashboard_port: 8321
  # inbox_dir:
  # log_file:
`

// remoteConfig holds remote document service settings.
type remoteConfig struct {
	BaseURL    string `yaml:"base_url"`
	DocumentID string `yaml:"document_id"`
	BackupID   string `yaml:"backup_id"`
	Token      string `yaml:"token"`
}

// daemonConfig holds sync daemon settings.
type daemonConfig struct {
	SyncInterval  time.Duration `yaml:"sync_interval"`
	DashboardPort int           `yaml:"dashboard_port"`
	InboxDir      string        `yaml:"inbox_dir,omitempty"`
	LogFile       string        `yaml:"log_file,omitempty"`
}

// appConfig is the full CLI configuration.
type appConfig struct {
	configDir string

	DataDir string       `yaml:"data_dir,omitempty"`
	Remote  remoteConfig `yaml:"remote"`
	Daemon  daemonConfig `yaml:"daemon"`
}

// loadConfig reads config.yaml from the config directory using Viper,
// creating the directory and a default config.yaml on first run. A missing
// config.yaml is not an error.
func loadConfig(configDir string) (*appConfig, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyDocumentID, "primary")
	v.SetDefault(cfgKeyBackupID, "backup")
	v.SetDefault(cfgKeySyncInterval, "5m")
	v.SetDefault(cfgKeyDashboardPort, 8321)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return &appConfig{
		configDir: configDir,
		DataDir:   v.GetString(cfgKeyDataDir),
		Remote: remoteConfig{
			BaseURL:    v.GetString(cfgKeyBaseURL),
			DocumentID: v.GetString(cfgKeyDocumentID),
			BackupID:   v.GetString(cfgKeyBackupID),
			Token:      v.GetString(cfgKeyToken),
		},
		Daemon: daemonConfig{
			SyncInterval:  v.GetDuration(cfgKeySyncInterval),
			DashboardPort: v.GetInt(cfgKeyDashboardPort),
			InboxDir:      v.GetString(cfgKeyInboxDir),
			LogFile:       v.GetString(cfgKeyLogFile),
		},
	}, nil
}

// save writes the configuration back to config.yaml. Used by login to
// persist credentials.
func (c *appConfig) save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := filepath.Join(c.configDir, configFileExt)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ensureDefaultConfigFile creates a default config.yaml if the file does
// not exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
