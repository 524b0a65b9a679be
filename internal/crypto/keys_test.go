package crypto

import (
	"bytes"
	"errors"
	"testing"

	"github.com/MKhiriev/go-sync-engine/models"
)

func TestCollectionKeys_BSORoundTrip(t *testing.T) {
	root, err := DeriveRootBundle([]byte("master secret"))
	if err != nil {
		t.Fatalf("DeriveRootBundle error: %v", err)
	}

	keys, err := NewRandomCollectionKeys()
	if err != nil {
		t.Fatalf("NewRandomCollectionKeys error: %v", err)
	}
	override, err := NewRandomBundle()
	if err != nil {
		t.Fatalf("NewRandomBundle error: %v", err)
	}
	keys.collections["bookmarks"] = override

	bso, err := keys.ToBSO(root)
	if err != nil {
		t.Fatalf("ToBSO error: %v", err)
	}
	if bso.ID != "keys" {
		t.Fatalf("bso id = %q, want keys", bso.ID)
	}
	bso.Modified = 1712345678090

	restored, err := CollectionKeysFromBSO(bso, root)
	if err != nil {
		t.Fatalf("CollectionKeysFromBSO error: %v", err)
	}

	if restored.Timestamp != 1712345678090 {
		t.Errorf("Timestamp = %d, want 1712345678090", int64(restored.Timestamp))
	}
	if !bytes.Equal(restored.Default().EncryptionKey(), keys.Default().EncryptionKey()) {
		t.Error("default bundle lost in round trip")
	}
	if !bytes.Equal(restored.KeyForCollection("bookmarks").EncryptionKey(), override.EncryptionKey()) {
		t.Error("per-collection override lost in round trip")
	}
}

func TestCollectionKeys_DefaultFallback(t *testing.T) {
	keys, err := NewRandomCollectionKeys()
	if err != nil {
		t.Fatalf("NewRandomCollectionKeys error: %v", err)
	}

	got := keys.KeyForCollection("history")
	if !bytes.Equal(got.EncryptionKey(), keys.Default().EncryptionKey()) {
		t.Fatal("collection without an override must get the default bundle")
	}
}

func TestCollectionKeysFromBSO_WrongRootKey(t *testing.T) {
	root, err := DeriveRootBundle([]byte("master secret"))
	if err != nil {
		t.Fatalf("DeriveRootBundle error: %v", err)
	}
	wrong, err := DeriveRootBundle([]byte("another secret"))
	if err != nil {
		t.Fatalf("DeriveRootBundle error: %v", err)
	}

	keys, err := NewRandomCollectionKeys()
	if err != nil {
		t.Fatalf("NewRandomCollectionKeys error: %v", err)
	}
	bso, err := keys.ToBSO(root)
	if err != nil {
		t.Fatalf("ToBSO error: %v", err)
	}

	if _, err := CollectionKeysFromBSO(bso, wrong); !errors.Is(err, ErrHMACMismatch) {
		t.Fatalf("wrong root key: got %v, want ErrHMACMismatch", err)
	}
}

func TestCollectionKeysFromBSO_GarbagePayload(t *testing.T) {
	root, err := DeriveRootBundle([]byte("master secret"))
	if err != nil {
		t.Fatalf("DeriveRootBundle error: %v", err)
	}

	bso := models.BSO{ID: "keys", Payload: "not json at all"}
	if _, err := CollectionKeysFromBSO(bso, root); !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("garbage payload: got %v, want ErrMalformedEnvelope", err)
	}

	// A well-formed envelope whose cleartext is not a keys document.
	env, err := root.Encrypt([]byte("[1,2,3]"))
	if err != nil {
		t.Fatalf("Encrypt error: %v", err)
	}
	if err := bso.SetEnvelope(env); err != nil {
		t.Fatalf("SetEnvelope error: %v", err)
	}
	if _, err := CollectionKeysFromBSO(bso, root); !errors.Is(err, ErrMalformedEnvelope) {
		t.Fatalf("non-keys cleartext: got %v, want ErrMalformedEnvelope", err)
	}
}
