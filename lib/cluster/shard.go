package cluster

import (
	"strings"

	"gfx.cafe/gfx/shardgat/lib/pool"
)

// Shard is one unit of horizontal partitioning: an ordered group of
// replica addresses that hold the same data. Replica order is failover
// priority and is preserved exactly as configured.
type Shard struct {
	// Number is the 1-based shard ordinal from the configuration. It
	// can differ from the shard's position after single-shard
	// derivation.
	Number int
	Weight int

	// LocalAddresses are the replicas that live in this process;
	// queries against them never touch the network.
	LocalAddresses []Address

	// Pool is the shared failover handle over the shard's remote
	// replicas, nil when all replicas are local.
	Pool *pool.Pool

	// DirNames are the spool directories for asynchronous writes to
	// this shard: one per remote replica, or a single comma-joined
	// entry when the shard replicates internally.
	DirNames []string

	// InternalReplication means writes fan out across replicas
	// server-side; a writer should address only the first reachable
	// replica.
	InternalReplication bool
}

func (T *Shard) IsLocal() bool {
	return len(T.LocalAddresses) > 0
}

func (T *Shard) HasRemoteConnections() bool {
	return T.Pool != nil
}

func (T *Shard) LocalNodeCount() int {
	return len(T.LocalAddresses)
}

// newShard classifies the replicas as local or remote, using the
// injected predicate once per address, and builds the shared failover
// pool over the remote ones in configured order.
func newShard(number, weight int, replicas []Address, nodes []NodeConfig, internalReplication bool, options Options) Shard {
	shard := Shard{
		Number:              number,
		Weight:              weight,
		InternalReplication: internalReplication,
	}

	var dialers []pool.Dialer
	var remoteDirs []string
	for i, addr := range replicas {
		if options.isLocal(addr) {
			shard.LocalAddresses = append(shard.LocalAddresses, addr)
			continue
		}

		timeout := options.ConnectTimeout
		if i < len(nodes) && nodes[i].ConnectTimeout != 0 {
			timeout = nodes[i].ConnectTimeout
		}
		dialers = append(dialers, pool.NetDialer{
			Network:        "tcp",
			Address:        addr.ResolvedAddress.String(),
			ConnectTimeout: Saturate(timeout, options.MaxConnectTimeout).Duration(),
		})
		remoteDirs = append(remoteDirs, addr.DirName())
	}

	if len(dialers) > 0 {
		shard.Pool = pool.NewPool(pool.Options{
			Dialers:        dialers,
			MaxConnections: options.MaxConnections,
			RetryPasses:    options.RetryPasses,
			Logger:         options.Logger,
		})
		if internalReplication {
			shard.DirNames = []string{strings.Join(remoteDirs, ",")}
		} else {
			shard.DirNames = remoteDirs
		}
	}

	return shard
}
