package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/firefly-engineering/legacy-relay/internal/errors"
	"github.com/firefly-engineering/legacy-relay/internal/form"
)

// Upstream is the legacy API the relay forwards to.
type Upstream interface {
	// Post sends one form-urlencoded body and returns the JSON reply.
	Post(ctx context.Context, body string) (*UpstreamResponse, error)
}

// UpstreamResponse is a successfully parsed upstream reply.
type UpstreamResponse struct {
	StatusCode int
	Body       json.RawMessage
}

// HTTPUpstream posts to a fixed URL. It applies no timeout and never
// retries; the request context is the only bound on a call.
type HTTPUpstream struct {
	URL    string
	Client *http.Client
}

// NewHTTPUpstream creates an upstream for url. A nil transport gets a
// default one, dialing IPv4 addresses first when ipv4First is set.
func NewHTTPUpstream(url string, transport http.RoundTripper, ipv4First bool) *HTTPUpstream {
	if transport == nil {
		transport = newTransport(ipv4First)
	}
	return &HTTPUpstream{
		URL:    url,
		Client: &http.Client{Transport: transport},
	}
}

var _ Upstream = (*HTTPUpstream)(nil)

// Post implements Upstream. Upstream status codes are not treated as
// errors: any reply whose body is valid JSON is returned.
func (u *HTTPUpstream) Post(ctx context.Context, body string) (*UpstreamResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.URL, strings.NewReader(body))
	if err != nil {
		return nil, errors.RelayFailure(err)
	}
	req.Header.Set("Content-Type", form.ContentTypeForm)

	resp, err := u.Client.Do(req)
	if err != nil {
		return nil, errors.RelayFailure(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.RelayFailure(fmt.Errorf("failed to read upstream response: %w", err))
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return nil, errors.RelayFailure(fmt.Errorf("invalid JSON from upstream: %w", err))
	}

	return &UpstreamResponse{
		StatusCode: resp.StatusCode,
		Body:       compact.Bytes(),
	}, nil
}

// newTransport clones the default transport, swapping in an IPv4-first
// dialer when requested.
func newTransport(ipv4First bool) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	if ipv4First {
		dialer := &net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}
		t.DialContext = ipv4FirstDialer(dialer, net.DefaultResolver)
	}
	return t
}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// ipv4FirstDialer resolves the host itself and tries IPv4 addresses before
// IPv6 ones, returning the first successful connection.
func ipv4FirstDialer(d *net.Dialer, resolver *net.Resolver) dialFunc {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		if net.ParseIP(host) != nil {
			return d.DialContext(ctx, network, addr)
		}

		addrs, err := resolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, err
		}
		if len(addrs) == 0 {
			return nil, fmt.Errorf("no addresses found for %s", host)
		}

		var firstErr error
		for _, ip := range sortIPv4First(addrs) {
			conn, err := d.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
			if err == nil {
				return conn, nil
			}
			if firstErr == nil {
				firstErr = err
			}
		}
		return nil, firstErr
	}
}

// sortIPv4First returns the addresses with IPv4 entries ahead of IPv6 ones,
// keeping resolver order within each family.
func sortIPv4First(addrs []net.IPAddr) []net.IP {
	ips := make([]net.IP, len(addrs))
	for i, a := range addrs {
		ips[i] = a.IP
	}
	sort.SliceStable(ips, func(i, j int) bool {
		return ips[i].To4() != nil && ips[j].To4() == nil
	})
	return ips
}
