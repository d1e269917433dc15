package client

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Session is what the client remembers about one bouncer between runs
type Session struct {
	User              string
	Token             string
	LastActiveChannel int64 // -1 when unknown
	LastMessageID     int64
}

// State manages client-side persistent state
type State struct {
	db  *sql.DB
	dir string // Directory where state is stored
}

// OpenState opens or creates the client state database. logger may be nil.
func OpenState(path string, logger *log.Logger) (*State, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	// Configure for better reliability
	db.SetMaxOpenConns(1) // Client only needs one connection
	db.SetMaxIdleConns(1)

	// Enable WAL mode
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := runMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &State{
		db:  db,
		dir: dir,
	}, nil
}

// Close closes the state database
func (s *State) Close() error {
	return s.db.Close()
}

// GetConfig retrieves a configuration value
func (s *State) GetConfig(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM Config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetConfig stores a configuration value
func (s *State) SetConfig(key, value string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO Config (key, value) VALUES (?, ?)
	`, key, value)
	return err
}

// GetSession returns the stored session for a server, or an empty one
func (s *State) GetSession(serverURL string) (Session, error) {
	session := Session{LastActiveChannel: -1}
	err := s.db.QueryRow(`
		SELECT user, token, last_active_channel, last_message_id
		FROM Sessions
		WHERE server_url = ?
	`, serverURL).Scan(&session.User, &session.Token, &session.LastActiveChannel, &session.LastMessageID)
	if err == sql.ErrNoRows {
		return Session{LastActiveChannel: -1}, nil
	}
	if err != nil {
		return Session{LastActiveChannel: -1}, fmt.Errorf("failed to load session: %w", err)
	}
	return session, nil
}

// SetSessionToken stores the resume token issued by a server; an empty token forgets it
func (s *State) SetSessionToken(serverURL, user, token string) error {
	_, err := s.db.Exec(`
		INSERT INTO Sessions (server_url, user, token, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(server_url) DO UPDATE SET user = excluded.user, token = excluded.token, updated_at = excluded.updated_at
	`, serverURL, user, token, time.Now().Unix())
	return err
}

// SetResumePoint stores the channel and newest message id the user last saw
func (s *State) SetResumePoint(serverURL string, channelID, lastMessageID int64) error {
	_, err := s.db.Exec(`
		INSERT INTO Sessions (server_url, last_active_channel, last_message_id, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(server_url) DO UPDATE SET last_active_channel = excluded.last_active_channel,
			last_message_id = excluded.last_message_id, updated_at = excluded.updated_at
	`, serverURL, channelID, lastMessageID, time.Now().Unix())
	return err
}

// GetReadState returns the read state for a channel
func (s *State) GetReadState(channelID int64) (lastReadAt int64, lastReadMessageID *int64, err error) {
	var messageID sql.NullInt64
	err = s.db.QueryRow(`
		SELECT last_read_at, last_read_message_id
		FROM ReadState
		WHERE channel_id = ?
	`, channelID).Scan(&lastReadAt, &messageID)

	if err == sql.ErrNoRows {
		return 0, nil, nil
	}
	if err != nil {
		return 0, nil, err
	}

	if messageID.Valid {
		id := messageID.Int64
		lastReadMessageID = &id
	}

	return lastReadAt, lastReadMessageID, nil
}

// UpdateReadState updates the read state for a channel
func (s *State) UpdateReadState(channelID int64, timestamp int64, messageID *int64) error {
	var msgID sql.NullInt64
	if messageID != nil {
		msgID.Valid = true
		msgID.Int64 = *messageID
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO ReadState (channel_id, last_read_at, last_read_message_id)
		VALUES (?, ?, ?)
	`, channelID, timestamp, msgID)

	return err
}

// GetStateDir returns the directory where state is stored
func (s *State) GetStateDir() string {
	return s.dir
}
