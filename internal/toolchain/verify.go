package toolchain

import (
	"context"
	"fmt"
)

// Verifier checks an artifact against the provisioned trust store.
type Verifier struct {
	store KeyStore
}

// NewVerifier creates a verifier backed by store.
func NewVerifier(store KeyStore) *Verifier {
	return &Verifier{store: store}
}

// Verify returns the signer fingerprint. Any failure is fatal; there is no
// unverified fallback.
func (v *Verifier) Verify(ctx context.Context, artifact *Artifact) (string, error) {
	signer, err := v.store.Verify(ctx, artifact.SignaturePath, artifact.PayloadPath)
	if err != nil {
		return "", err
	}
	if signer == "" {
		return "", fmt.Errorf("signature accepted without a signer")
	}
	return signer, nil
}
