package nips

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// RelayInformation is the NIP-11 relay information document, fetched
// over HTTP from the relay's websocket URL with the nostr+json accept
// header.
type RelayInformation struct {
	Name          string `json:"name,omitempty"`
	Description   string `json:"description,omitempty"`
	PubKey        string `json:"pubkey,omitempty"`
	Contact       string `json:"contact,omitempty"`
	SupportedNIPs []int  `json:"supported_nips,omitempty"`
	Software      string `json:"software,omitempty"`
	Version       string `json:"version,omitempty"`
}

// Supports reports whether the document lists nip.
func (ri *RelayInformation) Supports(nip int) bool {
	for _, n := range ri.SupportedNIPs {
		if n == nip {
			return true
		}
	}
	return false
}

var relayInfoClient = &http.Client{Timeout: 10 * time.Second}

// FetchRelayInformation retrieves the information document for a
// ws:// or wss:// relay URL.
func FetchRelayInformation(ctx context.Context, relayURL string) (*RelayInformation, error) {
	u, err := url.Parse(relayURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "ws":
		u.Scheme = "http"
	case "wss":
		u.Scheme = "https"
	default:
		return nil, fmt.Errorf("nips: relay url scheme must be ws or wss, got %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/nostr+json")

	resp, err := relayInfoClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nips: relay information request returned %s", resp.Status)
	}

	var info RelayInformation
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, err
	}
	return &info, nil
}
