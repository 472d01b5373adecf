package keystore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/swiftup/internal/testutil"
)

const testPublisher = "Swift Automatic Signing Key #4"

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestOpenPGPStore_ImportAndVerify(t *testing.T) {
	dir := t.TempDir()
	signer := testutil.NewSigner(t, testPublisher)
	payload := []byte("swift toolchain bytes")

	store := NewOpenPGPStore(filepath.Join(dir, "keyrings"), "swift", nil)
	keysPath := writeFile(t, dir, "all-keys.asc", signer.PublicKey(t, true))
	if err := store.Import(context.Background(), keysPath); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	payloadPath := writeFile(t, dir, "swift.tar.gz", payload)

	tests := []struct {
		name    string
		sig     []byte
		payload string
		wantErr bool
	}{
		{
			name:    "armored_signature",
			sig:     signer.Sign(t, payload, true),
			payload: payloadPath,
		},
		{
			name:    "binary_signature",
			sig:     signer.Sign(t, payload, false),
			payload: payloadPath,
		},
		{
			name:    "tampered_payload",
			sig:     signer.Sign(t, payload, true),
			payload: writeFile(t, dir, "tampered.tar.gz", []byte("swift toolchain bytez")),
			wantErr: true,
		},
		{
			name:    "garbage_signature",
			sig:     []byte("not a signature at all"),
			payload: payloadPath,
			wantErr: true,
		},
		{
			name:    "missing_payload",
			sig:     signer.Sign(t, payload, true),
			payload: filepath.Join(dir, "nonexistent"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sigPath := writeFile(t, t.TempDir(), "sig", tt.sig)

			fpr, err := store.Verify(context.Background(), sigPath, tt.payload)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if fpr != signer.Fingerprint() {
				t.Errorf("signer = %s, want %s", fpr, signer.Fingerprint())
			}
		})
	}
}

func TestOpenPGPStore_VerifyUnknownSigner(t *testing.T) {
	dir := t.TempDir()
	trusted := testutil.NewSigner(t, testPublisher)
	rogue := testutil.NewSigner(t, "Rogue Key")
	payload := []byte("payload")

	store := NewOpenPGPStore(dir, "swift", nil)
	if err := store.Import(context.Background(), writeFile(t, dir, "keys.asc", trusted.PublicKey(t, true))); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	sigPath := writeFile(t, dir, "payload.sig", rogue.Sign(t, payload, true))
	payloadPath := writeFile(t, dir, "payload", payload)

	if _, err := store.Verify(context.Background(), sigPath, payloadPath); err == nil {
		t.Fatal("signature from a key outside the keyring must not verify")
	}
}

func TestOpenPGPStore_VerifyEmptyKeyring(t *testing.T) {
	dir := t.TempDir()
	store := NewOpenPGPStore(dir, "swift", nil)

	_, err := store.Verify(context.Background(), writeFile(t, dir, "sig", []byte("x")), writeFile(t, dir, "p", []byte("y")))
	if !errors.Is(err, ErrEmptyKeyring) {
		t.Fatalf("expected ErrEmptyKeyring, got %v", err)
	}
}

func TestOpenPGPStore_ImportDeduplicates(t *testing.T) {
	dir := t.TempDir()
	a := testutil.NewSigner(t, testPublisher)
	b := testutil.NewSigner(t, "Swift 5.x Release Signing Key")

	store := NewOpenPGPStore(dir, "swift", nil)
	doc := keysDocument(t, a, b, a)
	if err := store.Import(context.Background(), writeFile(t, dir, "keys.gpg", doc)); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	keys, err := store.Keys()
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 unique keys, got %d: %v", len(keys), keys)
	}
}

func TestOpenPGPStore_ImportReplacesKeyring(t *testing.T) {
	dropped := testutil.NewSigner(t, testPublisher)
	current := testutil.NewSigner(t, "Swift 6.x Release Signing Key")
	payload := []byte("payload")

	tests := []struct {
		name   string
		signer *testutil.Signer
		valid  bool
	}{
		{name: "dropped_key", signer: dropped, valid: false},
		{name: "current_key", signer: current, valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store := NewOpenPGPStore(dir, "swift", nil)
			ctx := context.Background()

			for _, s := range []*testutil.Signer{dropped, current} {
				if err := store.Import(ctx, writeFile(t, dir, "keys.asc", s.PublicKey(t, true))); err != nil {
					t.Fatalf("Import failed: %v", err)
				}
			}

			keys, err := store.Keys()
			if err != nil {
				t.Fatalf("Keys failed: %v", err)
			}
			if len(keys) != 1 || keys[0] != current.Fingerprint() {
				t.Fatalf("keyring = %v, want only %s", keys, current.Fingerprint())
			}

			sigPath := writeFile(t, dir, "payload.sig", tt.signer.Sign(t, payload, true))
			payloadPath := writeFile(t, dir, "payload", payload)
			_, err = store.Verify(ctx, sigPath, payloadPath)
			if tt.valid && err != nil {
				t.Errorf("Verify failed: %v", err)
			}
			if !tt.valid && err == nil {
				t.Error("signature from a key missing from the latest keys document verified")
			}
		})
	}
}

// keysDocument concatenates binary public keys into one keys document.
func keysDocument(t *testing.T, signers ...*testutil.Signer) []byte {
	t.Helper()
	var doc []byte
	for _, s := range signers {
		doc = append(doc, s.PublicKey(t, false)...)
	}
	return doc
}

func TestOpenPGPStore_ImportInvalid(t *testing.T) {
	dir := t.TempDir()
	store := NewOpenPGPStore(dir, "swift", nil)

	if err := store.Import(context.Background(), writeFile(t, dir, "keys.asc", []byte("<html>404</html>"))); err == nil {
		t.Fatal("expected error importing garbage")
	}
	if err := store.Import(context.Background(), filepath.Join(dir, "missing.asc")); err == nil {
		t.Fatal("expected error importing missing file")
	}
	if _, err := os.Stat(store.KeyringPath()); !os.IsNotExist(err) {
		t.Error("failed import must not create a keyring")
	}
}

func TestOpenPGPStore_Refresh(t *testing.T) {
	signer := testutil.NewSigner(t, testPublisher)
	other := testutil.NewSigner(t, "Unrelated Key")

	var queries []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pks/lookup" || r.URL.Query().Get("op") != "get" {
			http.NotFound(w, r)
			return
		}
		search := r.URL.Query().Get("search")
		queries = append(queries, search)
		if search == "0x"+signer.Fingerprint() {
			w.Write(signer.PublicKey(t, true))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	dir := t.TempDir()
	store := NewOpenPGPStore(dir, "swift", server.Client())
	ctx := context.Background()

	if err := store.Import(ctx, writeFile(t, dir, "keys.gpg", keysDocument(t, signer, other))); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if err := store.Refresh(ctx, server.URL, "swift"); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(queries) != 1 || queries[0] != "0x"+signer.Fingerprint() {
		t.Errorf("expected a single lookup for the publisher key, got %v", queries)
	}

	if err := store.Refresh(ctx, server.URL, "nobody"); !errors.Is(err, ErrNoMatchingKeys) {
		t.Errorf("expected ErrNoMatchingKeys, got %v", err)
	}

	if err := store.Refresh(ctx, server.URL, "unrelated"); err == nil {
		t.Error("expected error when keyserver does not know the key")
	}
}

func TestOpenPGPStore_RefreshRejectsSubstitutedKey(t *testing.T) {
	signer := testutil.NewSigner(t, testPublisher)
	impostor := testutil.NewSigner(t, "Rogue Key")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(impostor.PublicKey(t, true))
	}))
	defer server.Close()

	dir := t.TempDir()
	store := NewOpenPGPStore(dir, "swift", server.Client())
	if err := store.Import(context.Background(), writeFile(t, dir, "keys.asc", signer.PublicKey(t, true))); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	err := store.Refresh(context.Background(), server.URL, "swift")
	if err == nil || !strings.Contains(err.Error(), "different key") {
		t.Fatalf("expected substituted key to be rejected, got %v", err)
	}

	keys, _ := store.Keys()
	if len(keys) != 1 || keys[0] != signer.Fingerprint() {
		t.Errorf("keyring changed after rejected refresh: %v", keys)
	}
}

func TestOpenPGPStore_RefreshWithoutKeyring(t *testing.T) {
	store := NewOpenPGPStore(t.TempDir(), "swift", nil)
	if err := store.Refresh(context.Background(), "hkp://keyserver.example", "Swift"); err == nil {
		t.Fatal("expected error refreshing an absent keyring")
	}
}

func TestLookupURL(t *testing.T) {
	tests := []struct {
		keyserver string
		want      string
		wantErr   bool
	}{
		{
			keyserver: "hkp://keyserver.ubuntu.com",
			want:      "http://keyserver.ubuntu.com:11371/pks/lookup?op=get&options=mr&search=0xABCD",
		},
		{
			keyserver: "hkp://keys.example:8080",
			want:      "http://keys.example:8080/pks/lookup?op=get&options=mr&search=0xABCD",
		},
		{
			keyserver: "hkps://keys.openpgp.org",
			want:      "https://keys.openpgp.org/pks/lookup?op=get&options=mr&search=0xABCD",
		},
		{
			keyserver: "https://keyserver.ubuntu.com",
			want:      "https://keyserver.ubuntu.com/pks/lookup?op=get&options=mr&search=0xABCD",
		},
		{keyserver: "ldap://keys.example", wantErr: true},
		{keyserver: "keyserver.ubuntu.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.keyserver, func(t *testing.T) {
			got, err := lookupURL(tt.keyserver, "abcd")
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("lookupURL() = %s, want %s", got, tt.want)
			}
		})
	}
}
