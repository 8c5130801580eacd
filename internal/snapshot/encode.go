// internal/snapshot/encode.go
package snapshot

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EncodeFrame serializes a snapshot as one wire frame: a single compact
// JSON object terminated by exactly one newline. The same encoding is
// used on the local channel and on the serial link.
func EncodeFrame(s Snapshot) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return append(b, '\n'), nil
}

// DecodeFrame parses one wire frame back into a snapshot.
// A trailing newline is accepted and ignored.
func DecodeFrame(frame []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(bytes.TrimRight(frame, "\n"), &s); err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: decode: %w", err)
	}
	return s, nil
}
