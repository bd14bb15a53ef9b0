package models

import (
	"encoding/json"
	"time"
)

// SessionRecord is the durable mirror of an in-memory session. It carries
// everything needed to reconnect a token to its identity after a restart,
// minus the live browser handles.
type SessionRecord struct {
	Token      string    `json:"token"`
	Identifier string    `json:"identifier"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CredentialRecord stores a portal password at rest. The secret is always
// the sealed (AES-GCM, base64) form; plaintext only exists while a relogin
// is actively typing it into the portal form.
type CredentialRecord struct {
	Identifier      string    `json:"identifier"`
	EncryptedSecret string    `json:"encryptedSecret"`
	CreatedAt       time.Time `json:"createdAt"`
}

// CategoryValue is one scraped category inside a StudentRecord document.
type CategoryValue struct {
	Data        json.RawMessage `json:"data"`
	LastUpdated time.Time       `json:"lastUpdated"`
}
