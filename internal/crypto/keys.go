// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"encoding/json"
	"fmt"

	"github.com/MKhiriev/go-sync-engine/models"
)

// keysPayload is the cleartext layout of the crypto/keys record.
type keysPayload struct {
	ID          string               `json:"id"`
	Collection  string               `json:"collection"`
	Default     [2]string            `json:"default"`
	Collections map[string][2]string `json:"collections"`
}

// CollectionKeys holds the decrypted key bundles for one session: the
// "default" bundle plus any per-collection overrides. Bundles are immutable
// for the lifetime of the value; a changed crypto/keys record on the server
// means the whole value is discarded and rebuilt.
type CollectionKeys struct {
	// Timestamp is the server modified time of the crypto/keys BSO the
	// bundles were decrypted from. Used to detect rotation.
	Timestamp models.ServerTimestamp

	defaultBundle KeyBundle
	collections   map[string]KeyBundle
}

// NewRandomCollectionKeys builds a fresh set with a random default bundle and
// no per-collection overrides, for first-sync key provisioning.
func NewRandomCollectionKeys() (*CollectionKeys, error) {
	def, err := NewRandomBundle()
	if err != nil {
		return nil, err
	}
	return &CollectionKeys{defaultBundle: def, collections: map[string]KeyBundle{}}, nil
}

// CollectionKeysFromBSO decrypts the crypto/keys BSO with the root bundle
// and unpacks every contained key pair. Any HMAC or envelope failure is
// returned as-is so the caller can distinguish key-material problems from
// network problems.
func CollectionKeysFromBSO(bso models.BSO, root KeyBundle) (*CollectionKeys, error) {
	env, err := bso.Envelope()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}

	cleartext, err := root.Decrypt(env)
	if err != nil {
		return nil, err
	}

	var payload keysPayload
	if err := json.Unmarshal(cleartext, &payload); err != nil {
		return nil, fmt.Errorf("%w: decode keys payload: %v", ErrMalformedEnvelope, err)
	}

	def, err := NewKeyBundleFromB64(payload.Default[0], payload.Default[1])
	if err != nil {
		return nil, fmt.Errorf("default bundle: %w", err)
	}

	colls := make(map[string]KeyBundle, len(payload.Collections))
	for name, pair := range payload.Collections {
		bundle, err := NewKeyBundleFromB64(pair[0], pair[1])
		if err != nil {
			return nil, fmt.Errorf("bundle for collection %s: %w", name, err)
		}
		colls[name] = bundle
	}

	return &CollectionKeys{
		Timestamp:     bso.Modified,
		defaultBundle: def,
		collections:   colls,
	}, nil
}

// KeyForCollection returns the bundle for the named collection, falling back
// to the default bundle when no dedicated override exists.
func (c *CollectionKeys) KeyForCollection(collection string) KeyBundle {
	if bundle, ok := c.collections[collection]; ok {
		return bundle
	}
	return c.defaultBundle
}

// Default returns the default bundle.
func (c *CollectionKeys) Default() KeyBundle { return c.defaultBundle }

// ToBSO encrypts the key set under the root bundle and wraps it in the
// crypto/keys BSO, ready for upload during first-sync provisioning.
func (c *CollectionKeys) ToBSO(root KeyBundle) (models.BSO, error) {
	payload := keysPayload{
		ID:          "keys",
		Collection:  "crypto",
		Default:     c.defaultBundle.ToB64Pair(),
		Collections: make(map[string][2]string, len(c.collections)),
	}
	for name, bundle := range c.collections {
		payload.Collections[name] = bundle.ToB64Pair()
	}

	cleartext, err := json.Marshal(payload)
	if err != nil {
		return models.BSO{}, fmt.Errorf("marshal keys payload: %w", err)
	}

	env, err := root.Encrypt(cleartext)
	if err != nil {
		return models.BSO{}, fmt.Errorf("encrypt keys payload: %w", err)
	}

	bso := models.BSO{ID: "keys"}
	if err := bso.SetEnvelope(env); err != nil {
		return models.BSO{}, err
	}
	return bso, nil
}
