package protocol

import (
	"encoding/json"
	"testing"

	"pgregory.net/rapid"
)

// TestEventRoundTrip checks that any input request survives encode, frame decode and split
func TestEventRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		original := InputRequest{
			Target: rapid.Int64().Draw(t, "target"),
			Text:   rapid.String().Draw(t, "text"),
		}

		text, err := EncodeEvent(RequestInput, original)
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		frame, err := DecodeFrame(text)
		if err != nil {
			t.Fatalf("frame decode failed: %v", err)
		}
		if !frame.IsEvent() {
			t.Fatalf("expected event frame, got engine=%q socket=%q", frame.Engine, frame.Socket)
		}

		name, payload, err := SplitEvent(frame.Data)
		if err != nil {
			t.Fatalf("split failed: %v", err)
		}
		if name != RequestInput {
			t.Fatalf("name mismatch: got %q", name)
		}

		var decoded InputRequest
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatalf("payload decode failed: %v", err)
		}
		if decoded != original {
			t.Fatalf("payload mismatch: got %+v, want %+v", decoded, original)
		}
	})
}

// TestFrameHeaderRoundTrip checks namespace and ack id encoding
func TestFrameHeaderRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		namespace := "/" + rapid.StringMatching(`[a-z]{0,8}`).Draw(t, "namespace")
		original := &Frame{
			Engine:    EngineMessage,
			Socket:    rapid.SampledFrom([]byte{SocketConnect, SocketEvent, SocketAck}).Draw(t, "socket"),
			Namespace: namespace,
			AckID:     rapid.Int64Range(-1, 1<<40).Draw(t, "ack"),
			Data:      json.RawMessage(`["x",1]`),
		}

		text, err := EncodeFrame(original)
		if err != nil {
			t.Fatalf("encode failed: %v", err)
		}

		decoded, err := DecodeFrame(text)
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}

		if decoded.Socket != original.Socket {
			t.Fatalf("socket mismatch: got %q, want %q", decoded.Socket, original.Socket)
		}
		if decoded.Namespace != original.Namespace {
			t.Fatalf("namespace mismatch: got %q, want %q", decoded.Namespace, original.Namespace)
		}
		if decoded.AckID != original.AckID {
			t.Fatalf("ack mismatch: got %d, want %d", decoded.AckID, original.AckID)
		}
		if string(decoded.Data) != string(original.Data) {
			t.Fatalf("data mismatch: got %s", decoded.Data)
		}
	})
}

// TestDecodeFrameNeverPanics feeds arbitrary text to the decoders
func TestDecodeFrameNeverPanics(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		frame, err := DecodeFrame(text)
		if err != nil || !frame.IsEvent() {
			return
		}
		name, payload, err := SplitEvent(frame.Data)
		if err != nil {
			return
		}
		_, _ = DecodeEvent(name, payload)
	})
}
