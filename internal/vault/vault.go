// Package vault seals portal passwords for storage. Secrets rest only in
// AES-256-GCM sealed form; the relogin flow opens them transiently while the
// browser types them into the portal.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/webstream-tools/pwi-gateway/internal/store"
	"github.com/webstream-tools/pwi-gateway/pkg/models"
)

// ErrNoCredential is returned when no credential record exists for an
// identifier.
var ErrNoCredential = errors.New("no stored credential")

type Vault struct {
	aead  cipher.AEAD
	store store.Store
}

// New builds a vault from a 32-byte key.
func New(key []byte, s store.Store) (*Vault, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("vault key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Vault{aead: aead, store: s}, nil
}

// Seal encrypts a plaintext secret into its at-rest form.
func (v *Vault) Seal(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Open decrypts an at-rest secret back to plaintext.
func (v *Vault) Open(sealed string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", err
	}
	if len(raw) < v.aead.NonceSize() {
		return "", errors.New("sealed secret too short")
	}
	nonce, ciphertext := raw[:v.aead.NonceSize()], raw[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("failed to open sealed secret: %w", err)
	}
	return string(plaintext), nil
}

// SaveCredential seals and persists a secret for later relogin.
func (v *Vault) SaveCredential(ctx context.Context, identifier, secret string) error {
	sealed, err := v.Seal(secret)
	if err != nil {
		return err
	}
	record := models.CredentialRecord{
		Identifier:      identifier,
		EncryptedSecret: sealed,
		CreatedAt:       time.Now(),
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return v.store.Set(ctx, store.CollUsers, identifier, encoded)
}

// LoadCredential retrieves and opens the stored secret for an identifier.
func (v *Vault) LoadCredential(ctx context.Context, identifier string) (string, error) {
	raw, ok, err := v.store.Get(ctx, store.CollUsers, identifier)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoCredential
	}
	var record models.CredentialRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return "", err
	}
	return v.Open(record.EncryptedSecret)
}
