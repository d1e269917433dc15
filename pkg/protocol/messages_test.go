package protocol

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const initPayload = `{
	"active": 2,
	"token": "tok",
	"networks": [{
		"uuid": "u1",
		"name": "Libera",
		"nick": "duck",
		"channels": [
			{"id": 1, "name": "Libera", "type": "lobby", "topic": "", "messages": []},
			{"id": 2, "name": "#go", "type": "channel", "topic": "Go!", "totalMessages": 10, "messages": [
				{"id": 7, "from": {"mode": "@", "nick": "alice"}, "text": "hello", "type": "message",
				 "time": "2024-03-01T10:00:00.000Z", "self": false}
			]}
		]
	}]
}`

func TestDecodeInitEvent(t *testing.T) {
	ev, err := DecodeEvent(EventInit, json.RawMessage(initPayload))
	require.NoError(t, err)

	snapshot, ok := ev.(*InitEvent)
	require.True(t, ok)
	assert.Equal(t, int64(2), snapshot.Active)
	assert.Equal(t, "tok", snapshot.Token)
	require.Len(t, snapshot.Networks, 1)

	net := snapshot.Networks[0]
	assert.Equal(t, "u1", net.UUID)
	assert.Equal(t, "duck", net.Nick)
	require.Len(t, net.Channels, 2)
	assert.Equal(t, KindLobby, net.Channels[0].Type)
	assert.False(t, net.Channels[0].Type.IsMultiUser())
	assert.True(t, net.Channels[1].Type.IsMultiUser())

	msg := net.Channels[1].Messages[0]
	assert.Equal(t, int64(7), msg.ID)
	assert.Equal(t, User{Mode: "@", Nick: "alice"}, msg.From)
	assert.Equal(t, MessageKindMessage, msg.Type)
	assert.True(t, msg.Time.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.False(t, net.Channels[1].Loaded)
	assert.Nil(t, net.Channels[1].Users)
}

func TestDecodeEventKinds(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		payload string
		check   func(t *testing.T, ev Event)
	}{
		{
			name:    "msg",
			event:   EventMsg,
			payload: `{"chan":3,"msg":{"id":9,"from":{},"text":"","type":"join","time":"2024-03-01T10:00:00Z"}}`,
			check: func(t *testing.T, ev Event) {
				m := ev.(*MessageEvent)
				assert.Equal(t, int64(3), m.Chan)
				assert.False(t, m.Msg.From.HasNick())
				assert.False(t, m.Msg.Type.IsChat())
			},
		},
		{
			name:    "more",
			event:   EventMore,
			payload: `{"chan":3,"totalMessages":50,"messages":[{"id":1},{"id":2}]}`,
			check: func(t *testing.T, ev Event) {
				h := ev.(*HistoryEvent)
				require.Len(t, h.Messages, 2)
				assert.Equal(t, int64(1), h.Messages[0].ID)
				assert.Equal(t, 50, h.TotalMessages)
			},
		},
		{
			name:    "names",
			event:   EventNames,
			payload: `{"id":3,"users":[{"nick":"op","modes":["@","+"]},{"nick":"plain","modes":[]}]}`,
			check: func(t *testing.T, ev Event) {
				r := ev.(*RosterEvent)
				require.Len(t, r.Users, 2)
				assert.Equal(t, User{Nick: "op", Mode: "@"}, r.Users[0].ToUser())
				assert.Equal(t, User{Nick: "plain"}, r.Users[1].ToUser())
			},
		},
		{
			name:    "join",
			event:   EventJoin,
			payload: `{"network":"u1","index":1,"chan":{"id":12,"name":"#new","type":"channel"},"shouldOpen":true}`,
			check: func(t *testing.T, ev Event) {
				j := ev.(*JoinEvent)
				assert.Equal(t, "u1", j.Network)
				assert.Equal(t, 1, j.Index)
				assert.Equal(t, int64(12), j.Chan.ID)
				assert.True(t, j.ShouldOpen)
			},
		},
		{
			name:    "topic",
			event:   EventTopic,
			payload: `{"chan":3,"topic":"new topic"}`,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, "new topic", ev.(*TopicEvent).Topic)
			},
		},
		{
			name:    "nick",
			event:   EventNick,
			payload: `{"network":"u1","nick":"goose"}`,
			check: func(t *testing.T, ev Event) {
				assert.Equal(t, "goose", ev.(*NickEvent).Nick)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent(tt.event, json.RawMessage(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.event, ev.EventName())
			assert.True(t, IsStateEvent(tt.event))
			tt.check(t, ev)
		})
	}
}

func TestDecodeEventErrors(t *testing.T) {
	tests := []struct {
		name    string
		event   string
		payload string
		wantErr error
	}{
		{"unknown event", "configuration", `{}`, ErrUnknownEvent},
		{"missing payload", EventMsg, ``, ErrMalformedEvent},
		{"wrong shape", EventMsg, `[1,2,3]`, ErrMalformedEvent},
		{"bad id type", EventNames, `{"id":"three","users":[]}`, ErrMalformedEvent},
		{"join without channel", EventJoin, `{"network":"u1","index":0}`, ErrMalformedEvent},
		{"join without network", EventJoin, `{"index":0,"chan":{"id":1}}`, ErrMalformedEvent},
		{"init with null network", EventInit, `{"active":1,"networks":[null]}`, ErrMalformedEvent},
		{"init with null channel", EventInit, `{"active":1,"networks":[{"uuid":"u","channels":[null]}]}`, ErrMalformedEvent},
		{"bad time", EventMsg, `{"chan":1,"msg":{"id":1,"time":"yesterday"}}`, ErrMalformedEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := DecodeEvent(tt.event, json.RawMessage(tt.payload))
			assert.Nil(t, ev)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIsStateEventExcludesAuth(t *testing.T) {
	assert.False(t, IsStateEvent(EventAuthStart))
	assert.False(t, IsStateEvent(EventAuthSuccess))
	assert.False(t, IsStateEvent(EventAuthFailed))
}

func TestMessageMentions(t *testing.T) {
	m := Message{Text: "hey Duck, look"}
	assert.True(t, m.Mentions("duck"))
	assert.False(t, m.Mentions("goose"))
	assert.False(t, m.Mentions(""))
}

func TestChannelOldestMessageID(t *testing.T) {
	c := &Channel{}
	_, ok := c.OldestMessageID()
	assert.False(t, ok)

	c.Messages = []Message{{ID: 4}, {ID: 5}}
	id, ok := c.OldestMessageID()
	assert.True(t, ok)
	assert.Equal(t, int64(4), id)
}

func TestAuthRequestEncoding(t *testing.T) {
	data, err := json.Marshal(AuthRequest{User: "duck", Password: "pw"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":"duck","password":"pw","hasConfig":false}`, string(data))

	data, err = json.Marshal(AuthRequest{User: "duck", Token: "t", LastMessage: 9, OpenChannel: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"user":"duck","token":"t","lastMessage":9,"openChannel":2,"hasConfig":false}`, string(data))
}
