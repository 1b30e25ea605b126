package cluster

import (
	"go.uber.org/zap"

	"gfx.cafe/gfx/shardgat/lib/util/dur"
)

// Options carries the settings shared by every shard of a topology.
type Options struct {
	// ConnectTimeout is the default dial timeout per replica. A node's
	// own connect_timeout takes precedence when set.
	ConnectTimeout dur.Duration
	// MaxConnectTimeout is the cluster-wide ceiling: every per-node
	// timeout is saturated to it before a pool is built. 0 = no ceiling.
	MaxConnectTimeout dur.Duration

	// MaxConnections caps each shard pool. 0 = unlimited.
	MaxConnections int
	// RetryPasses bounds failover retries per acquire, passed through
	// to the shard pools.
	RetryPasses int

	// IsLocal decides whether an address points at this process, in
	// which case queries run in-process instead of over a connection.
	// nil classifies every address as remote.
	IsLocal func(Address) bool

	Logger *zap.Logger
}

func (T Options) logger() *zap.Logger {
	if T.Logger != nil {
		return T.Logger
	}
	return zap.NewNop()
}

func (T Options) isLocal(addr Address) bool {
	if T.IsLocal == nil {
		return false
	}
	return T.IsLocal(addr)
}

// SelfPredicate builds an IsLocal rule from this server's own listen
// host and port: an address is local when it resolves to the same IP
// and uses the same port. Resolution happens once, here.
func SelfPredicate(listenHost string, listenPort uint16) (func(Address) bool, error) {
	self, err := resolve(listenHost, listenPort)
	if err != nil {
		return nil, err
	}
	selfIP := self.Addr()

	return func(addr Address) bool {
		return addr.Port == listenPort && addr.ResolvedAddress.Addr() == selfIP
	}, nil
}
