package errors

import (
	"fmt"
	"sort"
	"strings"
)

// Client-side error constructors.

// URLParseError reports a relay URL that is not a valid ws:// or
// wss:// endpoint.
func URLParseError(url string, cause error) *AppError {
	return Wrap(cause, ErrorTypeValidation, "URL_PARSE_ERROR",
		fmt.Sprintf("invalid relay url %q", url))
}

// ConnectionError reports a transport-level dial failure.
func ConnectionError(url string, cause error) *AppError {
	return Wrap(cause, ErrorTypeNetwork, "CONNECTION_ERROR",
		fmt.Sprintf("connecting to relay %s failed", url))
}

// AlreadyConnectedError reports an AddRelay for a URL already in the
// session table. The duplicate is rejected rather than silently
// accepted so caller bugs surface.
func AlreadyConnectedError(url string) *AppError {
	return New(ErrorTypeValidation, "ALREADY_CONNECTED",
		fmt.Sprintf("relay %s is already connected", url))
}

// RelayNotFoundError reports an operation against a URL absent from
// the session table.
func RelayNotFoundError(url string) *AppError {
	return New(ErrorTypeValidation, "RELAY_NOT_FOUND",
		fmt.Sprintf("relay %s is not connected", url))
}

// SendError reports a failed frame send on one relay's channel.
func SendError(url string, cause error) *AppError {
	return Wrap(cause, ErrorTypeNetwork, "SEND_ERROR",
		fmt.Sprintf("sending to relay %s failed", url))
}

// NoRelaysError reports an operation attempted with an empty session
// table or with every relay unreachable.
func NoRelaysError(op string) *AppError {
	return New(ErrorTypeNetwork, "NO_RELAYS",
		fmt.Sprintf("%s failed: no reachable relays", op))
}

// CollectTimeoutError reports a one-shot collection that returned
// partial results because some relays never settled in time.
func CollectTimeoutError(pending []string) *AppError {
	return New(ErrorTypeTimeout, "COLLECT_TIMEOUT",
		fmt.Sprintf("collection timed out waiting for: %s", strings.Join(pending, ", ")))
}

// FanoutError aggregates per-relay failures from a best-effort
// fan-out. Sends already delivered to other relays are not rolled
// back; the caller sees which relays failed and which succeeded.
type FanoutError struct {
	Op       string
	Failures map[string]error
}

func (e *FanoutError) Error() string {
	urls := make([]string, 0, len(e.Failures))
	for url := range e.Failures {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	parts := make([]string, 0, len(urls))
	for _, url := range urls {
		parts = append(parts, fmt.Sprintf("%s: %v", url, e.Failures[url]))
	}
	return fmt.Sprintf("%s failed on %d relay(s): %s", e.Op, len(urls), strings.Join(parts, "; "))
}
