package pool

import (
	"context"
	"net"
	"time"
)

// Dialer opens a raw connection to a single replica.
type Dialer interface {
	Dial(ctx context.Context) (net.Conn, error)
	Addr() string
}

type NetDialer struct {
	Network string
	Address string

	// ConnectTimeout bounds a single dial attempt. 0 = no bound.
	ConnectTimeout time.Duration
}

func (T NetDialer) Dial(ctx context.Context) (net.Conn, error) {
	d := net.Dialer{
		Timeout: T.ConnectTimeout,
	}
	return d.DialContext(ctx, T.Network, T.Address)
}

func (T NetDialer) Addr() string {
	return T.Address
}

var _ Dialer = NetDialer{}
