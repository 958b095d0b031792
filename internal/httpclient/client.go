// Package httpclient holds the shared HTTP client used by the OpenAI
// backend and the entry API store.
package httpclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/oukeidos/mdtrans/internal/version"
)

const (
	// DefaultTimeout bounds a whole request, including reading the body.
	// Long documents can take several minutes to translate in one call.
	DefaultTimeout = 10 * time.Minute
	// MaxResponseBytes is the body limit applied by DoAndRead.
	MaxResponseBytes = 8 * 1024 * 1024

	maxIdleConns          = 100
	maxIdleConnsPerHost   = 20
	idleConnTimeout       = 120 * time.Second
	tlsHandshakeTimeout   = 30 * time.Second
	expectContinueTimeout = 2 * time.Second
)

// ErrTooLarge is returned when a response body exceeds the read limit.
var ErrTooLarge = errors.New("response body too large")

var (
	mu            sync.Mutex
	sharedClient  *http.Client
	testingClient *http.Client
)

// userAgent tags outgoing requests that do not set their own agent.
type userAgent struct {
	base  http.RoundTripper
	agent string
}

func (u userAgent) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", u.agent)
	}
	return u.base.RoundTrip(req)
}

// UserAgent is sent with every request made through NewClient.
func UserAgent() string {
	return "mdtrans/" + version.Version
}

// NewClient returns a client with pooled connections and the given timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: userAgent{
			agent: UserAgent(),
			base: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          maxIdleConns,
				MaxIdleConnsPerHost:   maxIdleConnsPerHost,
				IdleConnTimeout:       idleConnTimeout,
				TLSHandshakeTimeout:   tlsHandshakeTimeout,
				ExpectContinueTimeout: expectContinueTimeout,
			},
		},
	}
}

// Default returns the process-wide client.
func Default() *http.Client {
	mu.Lock()
	defer mu.Unlock()
	if testingClient != nil {
		return testingClient
	}
	if sharedClient == nil {
		sharedClient = NewClient(DefaultTimeout)
	}
	return sharedClient
}

// SetDefaultForTesting makes Default return client until restore is called.
func SetDefaultForTesting(client *http.Client) (restore func()) {
	mu.Lock()
	prev := testingClient
	testingClient = client
	mu.Unlock()
	return func() {
		mu.Lock()
		testingClient = prev
		mu.Unlock()
	}
}

// DoAndRead sends req and reads at most MaxResponseBytes of the body.
func DoAndRead(client *http.Client, req *http.Request) ([]byte, *http.Response, error) {
	return DoAndReadLimit(client, req, MaxResponseBytes)
}

// DoAndReadLimit sends req, reads the whole body and closes it. A body
// longer than limit fails with ErrTooLarge.
func DoAndReadLimit(client *http.Client, req *http.Request, limit int64) ([]byte, *http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.ContentLength > limit {
		return nil, resp, fmt.Errorf("%w (limit %d bytes)", ErrTooLarge, limit)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, resp, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, resp, fmt.Errorf("%w (limit %d bytes)", ErrTooLarge, limit)
	}
	return body, resp, nil
}
