package connectivity

import (
	"context"
	"fmt"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"net"
	"net/url"
	"time"
)

// Probe a Signal driven by periodically dialling the rate provider.
// It starts out online so the first fetch is attempted.
type Probe struct {
	notifier

	// address host:port to dial
	address string

	// interval between checks
	interval time.Duration

	// timeout for a single dial
	timeout time.Duration

	dial func(ctx context.Context, network, address string) (net.Conn, error)

	logger log.Logger
}

// NewProbe returns a Probe dialling address every interval
func NewProbe(address string, interval, timeout time.Duration, logger log.Logger) *Probe {
	dialer := &net.Dialer{}
	return &Probe{
		notifier: newNotifier(true),
		address:  address,
		interval: interval,
		timeout:  timeout,
		dial:     dialer.DialContext,
		logger:   logger,
	}
}

// AddressFor derives the host:port to probe from a provider base url
func AddressFor(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parsing provider url: %w", err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("provider url without host: %v", rawURL)
	}
	port := u.Port()
	if port == "" {
		port = "443"
		if u.Scheme == "http" {
			port = "80"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}

// Check dials once and publishes the result
func (p *Probe) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	conn, err := p.dial(ctx, "tcp", p.address)
	online := err == nil
	if online {
		_ = conn.Close()
	}

	if online != p.Online() {
		level.Info(p.logger).Log("msg", "connectivity changed", "online", online, "address", p.address, "err", err)
	}
	p.set(online)
	return online
}

// Run checks immediately and then every interval until ctx is done
func (p *Probe) Run(ctx context.Context) {
	p.Check(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.Check(ctx)
		case <-ctx.Done():
			return
		}
	}
}
