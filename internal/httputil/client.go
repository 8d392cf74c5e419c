package httputil

import (
	"net/http"
	"time"
)

// DefaultTimeout matches the fixed request timeout the live feed has
// always been fetched with.
const DefaultTimeout = 15 * time.Second

// NewClient returns an HTTP client with standard timeout configuration.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}
