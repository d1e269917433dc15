// Package assets embeds the desktop notification icon and writes it to disk
// where the notifier can find it.
package assets

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed icon.png
var IconPNG []byte

const iconHashKey = "icon_hash"

// ConfigStore is the slice of client state used to remember the icon hash
type ConfigStore interface {
	GetConfig(key string) (string, error)
	SetConfig(key, value string) error
}

// GetIconPath writes the embedded icon to dataDir if it is missing or stale
// and returns its path. Notification daemons need a file, not bytes.
func GetIconPath(dataDir string, state ConfigStore) (string, error) {
	iconPath := filepath.Join(dataDir, "icon.png")
	embeddedHash := calculateHash(IconPNG)

	storedHash := ""
	if state != nil {
		storedHash, _ = state.GetConfig(iconHashKey)
	}

	needsWrite := storedHash != embeddedHash
	if _, err := os.Stat(iconPath); os.IsNotExist(err) {
		needsWrite = true
	}
	if !needsWrite {
		return iconPath, nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create icon directory: %w", err)
	}
	if err := os.WriteFile(iconPath, IconPNG, 0644); err != nil {
		return "", fmt.Errorf("failed to write icon: %w", err)
	}
	if state != nil {
		_ = state.SetConfig(iconHashKey, embeddedHash)
	}
	return iconPath, nil
}

// calculateHash returns the SHA256 hash of data as a hex string
func calculateHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
