package client

import (
	"io"
	"log"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestState(t *testing.T) *State {
	t.Helper()
	state, err := OpenState(filepath.Join(t.TempDir(), "nested", "state.db"), log.New(io.Discard, "", 0))
	require.NoError(t, err)
	t.Cleanup(func() { state.Close() })
	return state
}

func TestOpenState_AppliesMigrations(t *testing.T) {
	state := openTestState(t)

	var version int
	require.NoError(t, state.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))

	migrations, err := loadMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migrations)
	assert.Equal(t, migrations[len(migrations)-1].Version, version)
	assert.Equal(t, "nested", filepath.Base(state.GetStateDir()))
}

func TestOpenState_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")

	first, err := OpenState(path, nil)
	require.NoError(t, err)
	require.NoError(t, first.SetConfig("k", "v"))
	require.NoError(t, first.Close())

	second, err := OpenState(path, nil)
	require.NoError(t, err)
	defer second.Close()

	value, err := second.GetConfig("k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}

func TestState_Config(t *testing.T) {
	state := openTestState(t)

	value, err := state.GetConfig("missing")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, state.SetConfig("theme", "dark"))
	require.NoError(t, state.SetConfig("theme", "light"))
	value, err = state.GetConfig("theme")
	require.NoError(t, err)
	assert.Equal(t, "light", value)
}

func TestState_Sessions(t *testing.T) {
	state := openTestState(t)
	const server = "https://lounge.example.com"

	session, err := state.GetSession(server)
	require.NoError(t, err)
	assert.Equal(t, Session{LastActiveChannel: -1}, session)

	// Resume point before any token creates the row
	require.NoError(t, state.SetResumePoint(server, 12, 340))
	session, err = state.GetSession(server)
	require.NoError(t, err)
	assert.Equal(t, int64(12), session.LastActiveChannel)
	assert.Equal(t, int64(340), session.LastMessageID)
	assert.Empty(t, session.Token)

	// Storing a token keeps the resume point
	require.NoError(t, state.SetSessionToken(server, "alice", "tok"))
	session, err = state.GetSession(server)
	require.NoError(t, err)
	assert.Equal(t, Session{User: "alice", Token: "tok", LastActiveChannel: 12, LastMessageID: 340}, session)

	// And updating the resume point keeps the token
	require.NoError(t, state.SetResumePoint(server, 13, 400))
	session, err = state.GetSession(server)
	require.NoError(t, err)
	assert.Equal(t, "tok", session.Token)
	assert.Equal(t, int64(13), session.LastActiveChannel)

	// Clearing the token
	require.NoError(t, state.SetSessionToken(server, "alice", ""))
	session, err = state.GetSession(server)
	require.NoError(t, err)
	assert.Empty(t, session.Token)

	// Sessions are per server
	other, err := state.GetSession("http://other:9000")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), other.LastActiveChannel)
}

func TestState_ReadState(t *testing.T) {
	state := openTestState(t)

	at, id, err := state.GetReadState(5)
	require.NoError(t, err)
	assert.Zero(t, at)
	assert.Nil(t, id)

	msgID := int64(77)
	require.NoError(t, state.UpdateReadState(5, 1700000000, &msgID))
	at, id, err = state.GetReadState(5)
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), at)
	require.NotNil(t, id)
	assert.Equal(t, int64(77), *id)

	require.NoError(t, state.UpdateReadState(5, 1700000100, nil))
	_, id, err = state.GetReadState(5)
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestMockState_MatchesState(t *testing.T) {
	mock := NewMockState()
	const server = "s"

	require.NoError(t, mock.SetResumePoint(server, 3, 9))
	require.NoError(t, mock.SetSessionToken(server, "u", "t"))
	session, err := mock.GetSession(server)
	require.NoError(t, err)
	assert.Equal(t, Session{User: "u", Token: "t", LastActiveChannel: 3, LastMessageID: 9}, session)

	mock.SetSessionError(assert.AnError)
	_, err = mock.GetSession(server)
	assert.ErrorIs(t, err, assert.AnError)
}
