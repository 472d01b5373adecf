package keystore

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
)

var (
	// ErrEmptyKeyring is returned when verifying against a keyring with no keys.
	ErrEmptyKeyring = errors.New("keyring is empty")
	// ErrNoMatchingKeys is returned when a refresh selects no keys.
	ErrNoMatchingKeys = errors.New("no keys match publisher")
)

const armorSignatureHeader = "-----BEGIN PGP SIGNATURE-----"

// OpenPGPStore is a file-backed keyring verified in-process.
type OpenPGPStore struct {
	keyringPath string
	client      *http.Client
}

// NewOpenPGPStore creates a store whose keyring lives at keyringDir/name.gpg.
func NewOpenPGPStore(keyringDir, name string, client *http.Client) *OpenPGPStore {
	if client == nil {
		client = http.DefaultClient
	}
	return &OpenPGPStore{
		keyringPath: filepath.Join(keyringDir, name+".gpg"),
		client:      client,
	}
}

// KeyringPath returns the keyring file location.
func (s *OpenPGPStore) KeyringPath() string {
	return s.keyringPath
}

// Import reads an armored or binary keys document and makes it the keyring.
// Keys absent from the document are no longer trusted afterwards.
func (s *OpenPGPStore) Import(ctx context.Context, keysPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	imported, err := readKeyFile(keysPath)
	if err != nil {
		return fmt.Errorf("read keys: %w", err)
	}
	if len(imported) == 0 {
		return fmt.Errorf("no keys found in %s", keysPath)
	}

	return s.save(merge(nil, imported))
}

// Refresh re-fetches every key whose user id mentions publisher (or whose
// fingerprint or key id equals it) from keyserver and replaces the local copy.
func (s *OpenPGPStore) Refresh(ctx context.Context, keyserver, publisher string) error {
	keyring, err := s.load()
	if err != nil {
		return fmt.Errorf("load keyring: %w", err)
	}

	selected := selectKeys(keyring, publisher)
	if len(selected) == 0 {
		return fmt.Errorf("%w: %s", ErrNoMatchingKeys, publisher)
	}

	for _, entity := range selected {
		fpr := fingerprint(entity)

		fetched, err := fetchKey(ctx, s.client, keyserver, fpr)
		if err != nil {
			return fmt.Errorf("refresh key %s: %w", fpr, err)
		}

		var found bool
		for _, candidate := range fetched {
			if fingerprint(candidate) == fpr {
				keyring = merge(keyring, openpgp.EntityList{candidate})
				found = true
			}
		}
		if !found {
			return fmt.Errorf("refresh key %s: keyserver returned a different key", fpr)
		}
	}

	return s.save(keyring)
}

// Verify checks a detached signature and returns the signer's fingerprint.
func (s *OpenPGPStore) Verify(ctx context.Context, signaturePath, payloadPath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	keyring, err := s.load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrEmptyKeyring
		}
		return "", fmt.Errorf("load keyring: %w", err)
	}

	sigFile, err := os.Open(signaturePath)
	if err != nil {
		return "", fmt.Errorf("open signature: %w", err)
	}
	defer sigFile.Close()

	payloadFile, err := os.Open(payloadPath)
	if err != nil {
		return "", fmt.Errorf("open payload: %w", err)
	}
	defer payloadFile.Close()

	sig := bufio.NewReader(sigFile)
	peek, _ := sig.Peek(len(armorSignatureHeader))

	var signer *openpgp.Entity
	if bytes.Equal(peek, []byte(armorSignatureHeader)) {
		signer, err = openpgp.CheckArmoredDetachedSignature(keyring, payloadFile, sig, nil)
	} else {
		signer, err = openpgp.CheckDetachedSignature(keyring, payloadFile, sig, nil)
	}
	if err != nil {
		return "", fmt.Errorf("verify signature: %w", err)
	}

	return fingerprint(signer), nil
}

// Keys returns the fingerprints currently in the keyring.
func (s *OpenPGPStore) Keys() ([]string, error) {
	keyring, err := s.load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, ErrEmptyKeyring) {
			return nil, nil
		}
		return nil, err
	}

	fprs := make([]string, 0, len(keyring))
	for _, e := range keyring {
		fprs = append(fprs, fingerprint(e))
	}
	return fprs, nil
}

// load reads the keyring file. A missing file is reported as fs.ErrNotExist.
func (s *OpenPGPStore) load() (openpgp.EntityList, error) {
	keyring, err := readKeyFile(s.keyringPath)
	if err != nil {
		return nil, err
	}
	if len(keyring) == 0 {
		return nil, ErrEmptyKeyring
	}
	return keyring, nil
}

// save writes the keyring atomically (temp file + rename).
func (s *OpenPGPStore) save(keyring openpgp.EntityList) error {
	if err := os.MkdirAll(filepath.Dir(s.keyringPath), 0o755); err != nil {
		return fmt.Errorf("create keyring dir: %w", err)
	}

	var buf bytes.Buffer
	for _, e := range keyring {
		if err := e.Serialize(&buf); err != nil {
			return fmt.Errorf("serialize key %s: %w", fingerprint(e), err)
		}
	}

	tmpPath := s.keyringPath + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write keyring: %w", err)
	}
	if err := os.Rename(tmpPath, s.keyringPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename keyring: %w", err)
	}

	return nil
}

// readKeyFile reads an armored keyring, falling back to the binary format.
func readKeyFile(path string) (openpgp.EntityList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		keyring, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("read keyring %s: %w", path, err)
		}
	}

	return keyring, nil
}

// merge returns base with every entity of add inserted, replacing entities
// that share a fingerprint.
func merge(base, add openpgp.EntityList) openpgp.EntityList {
	index := make(map[string]int, len(base))
	out := make(openpgp.EntityList, 0, len(base)+len(add))
	for _, e := range base {
		index[fingerprint(e)] = len(out)
		out = append(out, e)
	}

	for _, e := range add {
		fpr := fingerprint(e)
		if i, ok := index[fpr]; ok {
			out[i] = e
			continue
		}
		index[fpr] = len(out)
		out = append(out, e)
	}

	return out
}

func selectKeys(keyring openpgp.EntityList, publisher string) openpgp.EntityList {
	needle := strings.ToLower(strings.TrimSpace(publisher))
	if needle == "" {
		return nil
	}
	hexNeedle := strings.ToUpper(strings.TrimPrefix(needle, "0x"))

	var selected openpgp.EntityList
	for _, e := range keyring {
		fpr := fingerprint(e)
		if fpr == hexNeedle || (len(hexNeedle) >= 16 && strings.HasSuffix(fpr, hexNeedle)) {
			selected = append(selected, e)
			continue
		}
		for name := range e.Identities {
			if strings.Contains(strings.ToLower(name), needle) {
				selected = append(selected, e)
				break
			}
		}
	}

	return selected
}

func fingerprint(e *openpgp.Entity) string {
	if e == nil || e.PrimaryKey == nil {
		return ""
	}
	return fmt.Sprintf("%X", e.PrimaryKey.Fingerprint)
}
