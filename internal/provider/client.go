// Package provider fetches aerodrome data from the DECEA services: rotaer
// and NOTAMs from AISWEB, METAR and TAF from REDEMET.
//
// Every fetch is a single best-effort request. Failures are returned as
// errors here and turned into Unavailable outcomes by the Gatherer.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultAISWEBURL  = "https://api.decea.mil.br/aisweb/"
	DefaultREDEMETURL = "https://api-redemet.decea.mil.br"

	// NOTAM look-back window requested from AISWEB, in minutes (3 days).
	DefaultNotamWindow = 4320

	defaultTimeout   = 10 * time.Second
	defaultCacheSize = 256
	defaultCacheTTL  = 6 * time.Hour
	maxBodyBytes     = 4 << 20

	maxIdleConns        = 10
	maxConnsPerHost     = 4
	idleConnTimeout     = 90 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
)

// Config holds endpoints and credentials. Credentials never leave this
// package.
type Config struct {
	AISWEBURL   string
	AISWEBKey   string
	AISWEBPass  string
	REDEMETURL  string
	REDEMETKey  string
	NotamWindow int
	Timeout     time.Duration
	CacheSize   int
	CacheTTL    time.Duration
	UserAgent   string
}

// DefaultConfig returns the production endpoints without credentials.
func DefaultConfig() Config {
	return Config{
		AISWEBURL:   DefaultAISWEBURL,
		REDEMETURL:  DefaultREDEMETURL,
		NotamWindow: DefaultNotamWindow,
		Timeout:     defaultTimeout,
		CacheSize:   defaultCacheSize,
		CacheTTL:    defaultCacheTTL,
		UserAgent:   "preflight/1.0",
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.AISWEBURL == "" {
		c.AISWEBURL = d.AISWEBURL
	}
	if c.REDEMETURL == "" {
		c.REDEMETURL = d.REDEMETURL
	}
	if c.NotamWindow <= 0 {
		c.NotamWindow = d.NotamWindow
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.CacheSize <= 0 {
		c.CacheSize = d.CacheSize
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
	return c
}

// newHTTPClient builds a pooled client shared by both services.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        maxIdleConns,
			MaxConnsPerHost:     maxConnsPerHost,
			IdleConnTimeout:     idleConnTimeout,
			TLSHandshakeTimeout: tlsHandshakeTimeout,
		},
	}
}

// StatusError is a non-200 response.
type StatusError struct {
	Service string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status: %d", e.Service, e.Code)
}

// get performs one GET and returns the body. The request carries ctx.
func get(ctx context.Context, hc *http.Client, service, rawURL string, q url.Values, userAgent string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%s: bad url: %w", service, err)
	}
	if len(q) > 0 {
		merged := u.Query()
		for k, vs := range q {
			for _, v := range vs {
				merged.Add(k, v)
			}
		}
		u.RawQuery = merged.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", service, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: executing request: %w", service, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Service: service, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: reading body: %w", service, err)
	}
	return body, nil
}
