package readiness

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
)

type Probe interface {
	Check(ctx context.Context) error
	String() string
}

// HTTPProbe succeeds when a GET against url returns a 2xx status.
type HTTPProbe struct {
	client *resty.Client
	url    string
}

func NewHTTPProbe(url string, timeout time.Duration) *HTTPProbe {
	return &HTTPProbe{
		client: resty.New().SetTimeout(timeout),
		url:    url,
	}
}

func (p *HTTPProbe) Check(ctx context.Context) error {
	res, err := p.client.R().SetContext(ctx).Get(p.url)
	if err != nil {
		return fmt.Errorf("health check request to %s failed: %w", p.url, err)
	}
	if !res.IsSuccess() {
		return fmt.Errorf("health check %s returned status %d", p.url, res.StatusCode())
	}
	return nil
}

func (p *HTTPProbe) String() string {
	return "http " + p.url
}

// TCPProbe succeeds once something accepts connections on addr.
type TCPProbe struct {
	addr   string
	dialer net.Dialer
}

func NewTCPProbe(addr string, timeout time.Duration) *TCPProbe {
	return &TCPProbe{addr: addr, dialer: net.Dialer{Timeout: timeout}}
}

func (p *TCPProbe) Check(ctx context.Context) error {
	conn, err := p.dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		return fmt.Errorf("unable to connect to %s: %w", p.addr, err)
	}
	return conn.Close()
}

func (p *TCPProbe) String() string {
	return "tcp " + p.addr
}

type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Check(ctx context.Context) error {
	return f(ctx)
}

func (f ProbeFunc) String() string {
	return "func"
}
