package customHttpClient

import (
	"net/http"

	"github.com/avellore/ragstack/internal/config"
)

var customTransport = &http.Transport{
	MaxIdleConns:        config.MaxIdleConns,
	MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
	IdleConnTimeout:     config.IdleConnTimeout,
}

var pooled = &http.Client{
	Transport: customTransport,
	Timeout:   config.FetchTimeout,
}

// Pooled returns the shared client for outbound content fetches so crawls
// reuse connections instead of opening one per page.
func Pooled() *http.Client {
	return pooled
}
