package client

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// TOMLConfig represents the structure of the client config file
type TOMLConfig struct {
	Connection ConnectionSection `toml:"connection"`
	Local      LocalSection      `toml:"local"`
	UI         UISection         `toml:"ui"`
	Behavior   BehaviorSection   `toml:"behavior"`
	Metrics    MetricsSection    `toml:"metrics"`
}

type ConnectionSection struct {
	ServerURL                string `toml:"server_url"`
	User                     string `toml:"user"`
	Password                 string `toml:"password"`
	AutoReconnect            bool   `toml:"auto_reconnect"`
	ReconnectMaxDelaySeconds int    `toml:"reconnect_max_delay_seconds"`
	OutgoingQueueSize        int    `toml:"outgoing_queue_size"`
}

type LocalSection struct {
	StateDB string `toml:"state_db"`
	LogFile string `toml:"log_file"`
}

type UISection struct {
	ShowChannels    bool   `toml:"show_channels"`
	ShowUsers       bool   `toml:"show_users"`
	ShowTimestamps  bool   `toml:"show_timestamps"`
	TimestampFormat string `toml:"timestamp_format"` // 'relative' or 'absolute'
	Notifications   bool   `toml:"notifications"`
	CheckUpdates    bool   `toml:"check_updates"`
}

type BehaviorSection struct {
	DedupeHistory  bool `toml:"dedupe_history"`
	QueueWarnDepth int  `toml:"queue_warn_depth"`
}

type MetricsSection struct {
	ListenAddr string `toml:"listen_addr"` // empty disables the endpoint
}

// ConfigError represents a structured configuration error
type ConfigError struct {
	Path       string
	Message    string
	LineNumber int // 0 if not a parse error
}

func (e *ConfigError) Error() string {
	if e.LineNumber > 0 {
		return fmt.Sprintf("%s (line %d)", e.Message, e.LineNumber)
	}
	return e.Message
}

// getXDGConfigHome returns the XDG config directory
func getXDGConfigHome() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config")
}

// getXDGDataHome returns the XDG data directory
func getXDGDataHome() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".local", "share")
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/loungechat/config.toml
func DefaultConfigPath() string {
	return filepath.Join(getXDGConfigHome(), "loungechat", "config.toml")
}

// DefaultTOMLConfig returns the default TOML configuration
func DefaultTOMLConfig() TOMLConfig {
	// Use XDG paths by default
	dataDir := filepath.Join(getXDGDataHome(), "loungechat")

	return TOMLConfig{
		Connection: ConnectionSection{
			ServerURL:                "http://localhost:9000",
			AutoReconnect:            true,
			ReconnectMaxDelaySeconds: 30,
			OutgoingQueueSize:        100,
		},
		Local: LocalSection{
			StateDB: filepath.Join(dataDir, "state.db"),
			LogFile: filepath.Join(dataDir, "client.log"),
		},
		UI: UISection{
			ShowChannels:    true,
			ShowUsers:       true,
			ShowTimestamps:  true,
			TimestampFormat: "absolute",
			Notifications:   true,
			CheckUpdates:    false,
		},
		Behavior: BehaviorSection{
			DedupeHistory:  false,
			QueueWarnDepth: 1000,
		},
	}
}

// expandHome replaces a leading ~/ with the user's home directory
func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, path[2:]), nil
}

// LoadClientConfig loads configuration from a TOML file, creates default if not found
func LoadClientConfig(path string) (TOMLConfig, error) {
	path, err := expandHome(path)
	if err != nil {
		return TOMLConfig{}, err
	}

	// Check if file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		// File doesn't exist, create default config
		config := DefaultTOMLConfig()
		if err := writeDefaultConfig(path, config); err != nil {
			// If we can't write, just return defaults without error
			// (might be a permissions issue, but we can still run)
			return config, nil
		}
		return config, nil
	}

	// Start from defaults so sections missing from the file keep sane values
	config := DefaultTOMLConfig()
	if _, err := toml.DecodeFile(path, &config); err != nil {
		// Try to extract line number from TOML error
		lineNum := extractLineNumber(err.Error())
		return TOMLConfig{}, &ConfigError{
			Path:       path,
			Message:    cleanErrorMessage(err.Error()),
			LineNumber: lineNum,
		}
	}

	// Validate config values
	if err := validateConfig(&config); err != nil {
		return TOMLConfig{}, &ConfigError{
			Path:       path,
			Message:    err.Error(),
			LineNumber: 0,
		}
	}

	return config, nil
}

// extractLineNumber tries to extract a line number from a TOML parse error
func extractLineNumber(errMsg string) int {
	// TOML errors typically format like "line 12: ..." or "at line 12"
	re := regexp.MustCompile(`line (\d+)`)
	matches := re.FindStringSubmatch(errMsg)
	if len(matches) > 1 {
		if num, err := strconv.Atoi(matches[1]); err == nil {
			return num
		}
	}
	return 0
}

// cleanErrorMessage removes redundant parts from error messages
func cleanErrorMessage(errMsg string) string {
	// Remove "toml: " prefix if present
	errMsg = strings.TrimPrefix(errMsg, "toml: ")
	return errMsg
}

// validateConfig validates configuration values
func validateConfig(config *TOMLConfig) error {
	var errors []string

	// Validate server URL
	if strings.TrimSpace(config.Connection.ServerURL) == "" {
		errors = append(errors, "Server URL cannot be empty")
	} else if _, err := SocketURL(config.Connection.ServerURL); err != nil {
		errors = append(errors, fmt.Sprintf("Invalid server URL %q: %v", config.Connection.ServerURL, err))
	}

	// Validate reconnect delay
	if config.Connection.ReconnectMaxDelaySeconds < 0 {
		errors = append(errors, "Reconnect max delay cannot be negative")
	}

	if config.Connection.OutgoingQueueSize < 1 {
		errors = append(errors, fmt.Sprintf("Invalid outgoing queue size: %d (must be at least 1)", config.Connection.OutgoingQueueSize))
	}

	if config.Behavior.QueueWarnDepth < 0 {
		errors = append(errors, "Queue warn depth cannot be negative")
	}

	// Validate timestamp format
	if config.UI.TimestampFormat != "" && config.UI.TimestampFormat != "relative" && config.UI.TimestampFormat != "absolute" {
		errors = append(errors, fmt.Sprintf("Invalid timestamp format: %q (must be 'relative' or 'absolute')", config.UI.TimestampFormat))
	}

	// Validate state database path is not empty
	if strings.TrimSpace(config.Local.StateDB) == "" {
		errors = append(errors, "State database path cannot be empty")
	}

	if len(errors) > 0 {
		return fmt.Errorf("Configuration validation failed:\n  • %s", strings.Join(errors, "\n  • "))
	}

	return nil
}

// writeDefaultConfig writes the default config to a file
func writeDefaultConfig(path string, config TOMLConfig) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Create file
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	// Write header comment
	header := `# loungechat configuration
# This file was auto-generated with default values
# Edit as needed - changes take effect on next client start
# Leave connection.password empty to be prompted at startup

`
	if _, err := f.WriteString(header); err != nil {
		return err
	}

	// Encode config as TOML
	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetStateDBPath returns the state database path with ~ expanded
func (c *TOMLConfig) GetStateDBPath() (string, error) {
	return expandHome(c.Local.StateDB)
}

// GetLogFilePath returns the log file path with ~ expanded, or a file next to the state DB
func (c *TOMLConfig) GetLogFilePath() (string, error) {
	if strings.TrimSpace(c.Local.LogFile) != "" {
		return expandHome(c.Local.LogFile)
	}
	stateDB, err := c.GetStateDBPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(stateDB), "client.log"), nil
}

// ReconnectMaxDelay returns the reconnect backoff ceiling
func (c *ConnectionSection) ReconnectMaxDelay() time.Duration {
	if c.ReconnectMaxDelaySeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.ReconnectMaxDelaySeconds) * time.Second
}

// SocketURL turns a bouncer address into its Engine.IO websocket endpoint.
// http and https map to ws and wss; a bare host is treated as http.
func SocketURL(server string) (string, error) {
	server = strings.TrimSpace(server)
	if server == "" {
		return "", fmt.Errorf("server address is empty")
	}
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}

	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host")
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/socket.io/"
	u.RawQuery = "EIO=4&transport=websocket"
	u.Fragment = ""
	return u.String(), nil
}

// ResetConfigToDefault resets the config file to default values
// If backup is true, creates a backup with timestamp
func ResetConfigToDefault(path string, backup bool) error {
	path, err := expandHome(path)
	if err != nil {
		return err
	}

	// Create backup if requested
	if backup {
		backupPath := fmt.Sprintf("%s.backup-%s", path, time.Now().Format("2006-01-02"))
		if err := copyFile(path, backupPath); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}

	// Write default config
	config := DefaultTOMLConfig()
	if err := writeDefaultConfig(path, config); err != nil {
		return fmt.Errorf("failed to write default config: %w", err)
	}

	return nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
