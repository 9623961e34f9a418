package ws

import "encoding/json"

// MessageType constants for the registry stream protocol.
const (
	// Server -> Client
	TypeRegistryUpdate = "registry_update"
	TypeError          = "error"

	// Client -> Server
	TypePing = "ping"
)

// Message is the envelope exchanged on /ws/registry.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RegistryUpdatePayload carries the entries touched by an update.
type RegistryUpdatePayload struct {
	Entries []RegistryEntry `json:"entries"`
}

// RegistryEntry is the wire form of one registry row.
type RegistryEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}
