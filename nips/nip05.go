package nips

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// NIP-05 maps DNS-based identifiers (user@domain) to public keys via
// the domain's /.well-known/nostr.json document.

var (
	// ErrInvalidIdentifier reports an identifier not shaped
	// user@domain.
	ErrInvalidIdentifier = errors.New("nips: identifier must be user@domain")
	// ErrNameNotFound reports a well-known document without the
	// requested name.
	ErrNameNotFound = errors.New("nips: name not present in nostr.json")
)

// WellKnown is the /.well-known/nostr.json document.
type WellKnown struct {
	Names map[string]string `json:"names"`
}

var wellKnownClient = &http.Client{Timeout: 10 * time.Second}

// ResolveIdentifier fetches the pubkey registered for identifier.
func ResolveIdentifier(ctx context.Context, identifier string) (string, error) {
	parts := strings.Split(identifier, "@")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", ErrInvalidIdentifier
	}
	name, domain := parts[0], parts[1]

	url := fmt.Sprintf("https://%s/.well-known/nostr.json?name=%s", domain, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := wellKnownClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nips: nostr.json request returned %s", resp.Status)
	}

	var doc WellKnown
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", err
	}
	pubkey, ok := doc.Names[name]
	if !ok {
		return "", ErrNameNotFound
	}
	return pubkey, nil
}

// CheckIdentifier reports whether identifier resolves to pubkey.
func CheckIdentifier(ctx context.Context, identifier, pubkey string) (bool, error) {
	resolved, err := ResolveIdentifier(ctx, identifier)
	if err != nil {
		return false, err
	}
	return resolved == pubkey, nil
}
