// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import "encoding/json"

// BSO is the server's atomic record envelope (Basic Storage Object). The
// payload field is an opaque string on the wire; for regular collections it
// is a JSON-encoded [EncryptedEnvelope], for meta/global it is a cleartext
// JSON document.
type BSO struct {
	ID        string          `json:"id"`
	Modified  ServerTimestamp `json:"modified,omitempty"`
	SortIndex *int            `json:"sortindex,omitempty"`
	TTL       *int            `json:"ttl,omitempty"`
	Payload   string          `json:"payload"`
}

// EncryptedEnvelope is the decoded payload of an encrypted BSO: the AES-CBC
// IV, the ciphertext, and an HMAC-SHA256 computed over the base64-encoded
// ciphertext. IV and Ciphertext are base64; HMAC is lowercase hex.
type EncryptedEnvelope struct {
	IV         string `json:"IV"`
	Ciphertext string `json:"ciphertext"`
	HMAC       string `json:"hmac"`
}

// Envelope parses the BSO payload as an [EncryptedEnvelope].
func (b *BSO) Envelope() (EncryptedEnvelope, error) {
	var env EncryptedEnvelope
	err := json.Unmarshal([]byte(b.Payload), &env)
	return env, err
}

// SetEnvelope serializes env into the BSO payload.
func (b *BSO) SetEnvelope(env EncryptedEnvelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	b.Payload = string(raw)
	return nil
}
