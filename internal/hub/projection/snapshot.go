package projection

import (
	"encoding/json"
	"fmt"
)

// snapshotVersion guards the persisted state shape. Bump it when a State
// field changes meaning; decoding an unknown version fails so stale
// snapshots are rebuilt from the journal instead of misread.
const snapshotVersion = 1

type snapshotEnvelope struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

// EncodeSnapshot serializes state for the snapshot store.
func EncodeSnapshot(state State) ([]byte, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot state: %w", err)
	}
	return json.Marshal(snapshotEnvelope{Version: snapshotVersion, State: raw})
}

// DecodeSnapshot restores state written by EncodeSnapshot.
func DecodeSnapshot(raw []byte) (State, error) {
	var envelope snapshotEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return State{}, fmt.Errorf("decode snapshot: %w", err)
	}
	if envelope.Version != snapshotVersion {
		return State{}, fmt.Errorf("unsupported snapshot version %d", envelope.Version)
	}
	var state State
	if err := json.Unmarshal(envelope.State, &state); err != nil {
		return State{}, fmt.Errorf("decode snapshot state: %w", err)
	}
	return state.normalize(), nil
}
