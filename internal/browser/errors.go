package browser

import (
	"fmt"
	"strings"
)

// LaunchError represents a failure to start a browser session.
type LaunchError struct {
	Message string
	Cause   error
}

func (e *LaunchError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("launch error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("launch error: %s", e.Message)
}

func (e *LaunchError) Unwrap() error {
	return e.Cause
}

// NavigationError represents a failure to reach the target URL. Navigation
// is a primary signal, so this is fatal to the acquisition attempt.
type NavigationError struct {
	URL   string
	Cause error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Cause)
}

func (e *NavigationError) Unwrap() error {
	return e.Cause
}

// proxyRejectionSignatures are the network error classes that indicate the
// proxied path was rejected, as opposed to the target site being down.
// Only these trigger the direct-path fallback.
var proxyRejectionSignatures = []string{
	"ERR_TUNNEL_CONNECTION_FAILED",
	"ERR_PROXY_CONNECTION_FAILED",
	"ERR_NO_SUPPORTED_PROXIES",
	"ERR_PROXY_AUTH_UNSUPPORTED",
	"ERR_PROXY_CERTIFICATE_INVALID",
	"407 Proxy Authentication Required",
}

// IsProxyRejected reports whether the error matches a recognized
// proxy-rejection signature.
func IsProxyRejected(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, sig := range proxyRejectionSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}
