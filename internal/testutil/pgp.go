package testutil

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/ProtonMail/go-crypto/openpgp"
	"github.com/ProtonMail/go-crypto/openpgp/armor"
)

// Signer is a throwaway OpenPGP key used to produce test signatures.
type Signer struct {
	Entity *openpgp.Entity
}

var (
	signerMu sync.Mutex
	signers  = map[string]*openpgp.Entity{}
)

// NewSigner returns a signing key whose user id is name. Keys are generated
// once per name and reused across tests in the same binary.
func NewSigner(t *testing.T, name string) *Signer {
	t.Helper()

	signerMu.Lock()
	defer signerMu.Unlock()

	if e, ok := signers[name]; ok {
		return &Signer{Entity: e}
	}

	e, err := openpgp.NewEntity(name, "test", "release@example.org", nil)
	if err != nil {
		t.Fatalf("generate key %q: %v", name, err)
	}
	signers[name] = e
	return &Signer{Entity: e}
}

// Fingerprint returns the upper-case hex fingerprint.
func (s *Signer) Fingerprint() string {
	return fmt.Sprintf("%X", s.Entity.PrimaryKey.Fingerprint)
}

// PublicKey returns the public key, armored when armored is true.
func (s *Signer) PublicKey(t *testing.T, armored bool) []byte {
	t.Helper()

	var buf bytes.Buffer
	if !armored {
		if err := s.Entity.Serialize(&buf); err != nil {
			t.Fatalf("serialize key: %v", err)
		}
		return buf.Bytes()
	}

	w, err := armor.Encode(&buf, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("armor key: %v", err)
	}
	if err := s.Entity.Serialize(w); err != nil {
		t.Fatalf("serialize key: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close armor: %v", err)
	}
	return buf.Bytes()
}

// WritePublicKey writes the armored public key to path.
func (s *Signer) WritePublicKey(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, s.PublicKey(t, true), 0o644); err != nil {
		t.Fatalf("write public key: %v", err)
	}
}

// Sign returns a detached signature over payload.
func (s *Signer) Sign(t *testing.T, payload []byte, armored bool) []byte {
	t.Helper()

	var buf bytes.Buffer
	var err error
	if armored {
		err = openpgp.ArmoredDetachSign(&buf, s.Entity, bytes.NewReader(payload), nil)
	} else {
		err = openpgp.DetachSign(&buf, s.Entity, bytes.NewReader(payload), nil)
	}
	if err != nil {
		t.Fatalf("sign payload: %v", err)
	}
	return buf.Bytes()
}
