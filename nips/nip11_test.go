package nips

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchRelayInformation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/nostr+json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"name":"test relay","supported_nips":[1,11,13],"software":"fake","version":"0.1"}`))
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	info, err := FetchRelayInformation(context.Background(), wsURL)
	require.NoError(t, err)
	assert.Equal(t, "test relay", info.Name)
	assert.Equal(t, []int{1, 11, 13}, info.SupportedNIPs)
	assert.True(t, info.Supports(13))
	assert.False(t, info.Supports(42))
}

func TestFetchRelayInformationRejectsNonWebsocketURL(t *testing.T) {
	_, err := FetchRelayInformation(context.Background(), "https://example.com")
	assert.Error(t, err)
}

func TestFetchRelayInformationSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := FetchRelayInformation(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"))
	assert.Error(t, err)
}
