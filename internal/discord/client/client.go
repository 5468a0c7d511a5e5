package client

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/diamondburned/arikawa/v3/api"
	"github.com/diamondburned/arikawa/v3/gateway"
	"github.com/diamondburned/arikawa/v3/session"
	"github.com/diamondburned/arikawa/v3/state"
	"github.com/diamondburned/arikawa/v3/state/store/defaultstore"
	"github.com/diamondburned/arikawa/v3/utils/handler"
	"github.com/diamondburned/arikawa/v3/utils/httputil"
	"github.com/diamondburned/arikawa/v3/utils/httputil/httpdriver"
)

// UserAgent is sent on every REST request of the user session.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:136.0) Gecko/20100101 Firefox/136.0"

// Intents covers guild metadata, member lists and presences.
const Intents = gateway.IntentGuilds |
	gateway.IntentGuildMembers |
	gateway.IntentGuildPresences

var (
	// ErrTokenMissing indicates that no user token was configured.
	ErrTokenMissing = errors.New("discord token is not configured")
	// ErrInvalidProxy indicates that the proxy URL could not be parsed.
	ErrInvalidProxy = errors.New("invalid proxy URL")
)

// Options configures the user session.
type Options struct {
	Token    string
	ProxyURL string
	Timeout  time.Duration
	Intents  gateway.Intents
}

// ParseProxy parses an optional proxy URL. An empty string yields nil.
func ParseProxy(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil //nolint:nilnil // no proxy configured
	}

	proxy, err := url.Parse(raw)
	if err != nil || proxy.Scheme == "" || proxy.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxy, raw)
	}

	return proxy, nil
}

// NewHTTPClient creates an HTTP client that routes through proxy when set.
func NewHTTPClient(proxy *url.URL, timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   20 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
	}

	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// NewState creates an arikawa State for the scanning user session.
func NewState(opts Options) (*state.State, error) {
	if opts.Token == "" {
		return nil, ErrTokenMissing
	}

	proxy, err := ParseProxy(opts.ProxyURL)
	if err != nil {
		return nil, err
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	if opts.Intents == 0 {
		opts.Intents = Intents
	}

	httpClient := NewHTTPClient(proxy, opts.Timeout)
	driver := httpdriver.WrapClient(*httpClient)

	apiClient := api.NewCustomClient(opts.Token, &httputil.Client{
		Client:  driver,
		Timeout: opts.Timeout,
	})

	identifier := gateway.DefaultIdentifier(opts.Token)
	sess := session.NewCustom(identifier, apiClient, handler.New())

	s := state.NewFromSession(sess, defaultstore.New())
	s.AddIntents(opts.Intents)

	s.UserAgent = UserAgent
	s.Timeout = opts.Timeout

	return s, nil
}
