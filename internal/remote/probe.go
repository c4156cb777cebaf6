package remote

import (
	"context"
	"net"
	"time"
)

// Prober reports connectivity by opening a TCP connection to a known host.
type Prober struct {
	address string
	timeout time.Duration
	dial    func(ctx context.Context, network, address string) (net.Conn, error)
}

func NewProber(address string, timeout time.Duration) *Prober {
	d := &net.Dialer{Timeout: timeout}
	return &Prober{address: address, timeout: timeout, dial: d.DialContext}
}

func (p *Prober) Available(ctx context.Context) bool {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	conn, err := p.dial(ctx, "tcp", p.address)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
