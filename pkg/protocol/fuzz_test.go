package protocol

import (
	"testing"
)

// FuzzDecodeFrame ensures malformed socket text never panics the decoders
func FuzzDecodeFrame(f *testing.F) {
	f.Add("2")
	f.Add(`0{"sid":"a","pingInterval":25000,"pingTimeout":20000}`)
	f.Add(`40`)
	f.Add(`42["msg",{"chan":1,"msg":{"id":1,"text":"hi"}}]`)
	f.Add(`42["init",{"active":1,"networks":[{"uuid":"u","channels":[{"id":1}]}]}]`)
	f.Add(`42/ns,12["names",{"id":1,"users":[{"nick":"a","modes":["@"]}]}]`)
	f.Add(`42["join",{"network":"u","chan":null}]`)

	f.Fuzz(func(t *testing.T, text string) {
		frame, err := DecodeFrame(text)
		if err != nil || !frame.IsEvent() {
			return
		}
		name, payload, err := SplitEvent(frame.Data)
		if err != nil {
			return
		}
		// Should never panic
		_, _ = DecodeEvent(name, payload)
	})
}
