package keystore

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"
)

const (
	// hkpPort is the conventional port for plain hkp:// key servers.
	hkpPort = "11371"
	// maxKeyResponse bounds a key server response.
	maxKeyResponse = 1 << 20
)

// lookupURL builds the HKP "get" URL for a key fingerprint.
//
//	hkp://host        -> http://host:11371/pks/lookup?...
//	hkps://host       -> https://host/pks/lookup?...
//	http(s)://host    -> unchanged scheme and port
func lookupURL(keyserver, fingerprint string) (string, error) {
	u, err := url.Parse(keyserver)
	if err != nil {
		return "", fmt.Errorf("parse keyserver %q: %w", keyserver, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("keyserver %q has no host", keyserver)
	}

	switch u.Scheme {
	case "hkp":
		u.Scheme = "http"
		if u.Port() == "" {
			u.Host = net.JoinHostPort(u.Hostname(), hkpPort)
		}
	case "hkps":
		u.Scheme = "https"
	case "http", "https":
	default:
		return "", fmt.Errorf("unsupported keyserver scheme: %s", u.Scheme)
	}

	u.Path = "/pks/lookup"
	u.RawQuery = url.Values{
		"op":      {"get"},
		"options": {"mr"},
		"search":  {"0x" + strings.ToUpper(fingerprint)},
	}.Encode()

	return u.String(), nil
}

// fetchKey downloads the current public key material for fingerprint.
func fetchKey(ctx context.Context, client *http.Client, keyserver, fingerprint string) (openpgp.EntityList, error) {
	keyURL, err := lookupURL(keyserver, fingerprint)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, keyURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query keyserver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("keyserver returned status %d for %s", resp.StatusCode, fingerprint)
	}

	entities, err := openpgp.ReadArmoredKeyRing(io.LimitReader(resp.Body, maxKeyResponse))
	if err != nil {
		return nil, fmt.Errorf("parse keyserver response: %w", err)
	}

	return entities, nil
}
