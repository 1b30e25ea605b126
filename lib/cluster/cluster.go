package cluster

import (
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/minio/sha256-simd"

	"gfx.cafe/gfx/shardgat/lib/util/dur"
	"gfx.cafe/gfx/shardgat/lib/util/maths"
)

// Cluster is an immutable topology: an ordered shard sequence plus the
// derived routing structures. Once built it is freely shared between
// goroutines without synchronization.
type Cluster struct {
	shards []Shard

	// Exactly one of the two views is populated, mirroring the
	// construction mode. Both are index-aligned with shards.
	addresses             []Address
	addressesWithFailover [][]Address

	slotToShard []int
	fingerprint string

	localShardCount  int
	remoteShardCount int
}

// New builds a topology from one cluster config. Any failure aborts
// the whole build; no partially constructed Cluster is returned.
func New(name string, config Config, options Options) (*Cluster, error) {
	if len(config.Nodes) > 0 && len(config.Shards) > 0 {
		return nil, ParseError{
			Cluster: name,
			Detail:  "a cluster lists nodes or shards, not both",
		}
	}

	T := new(Cluster)

	switch {
	case len(config.Nodes) > 0:
		// flat mode: every node is its own shard of weight 1
		for i, node := range config.Nodes {
			addr, err := NewAddress(node, 0)
			if err != nil {
				return nil, attribute(err, name)
			}
			T.shards = append(T.shards, newShard(i+1, 1, []Address{addr}, []NodeConfig{node}, false, options))
			T.addresses = append(T.addresses, addr)
		}

	case len(config.Shards) > 0:
		for i, group := range config.Shards {
			weight := group.weight()
			if weight < 0 {
				return nil, ParseError{
					Cluster: name,
					Detail:  "shard weight cannot be negative",
				}
			}
			if len(group.Replicas) == 0 {
				return nil, ParseError{
					Cluster: name,
					Detail:  "shard has no replicas",
				}
			}

			replicas := make([]Address, 0, len(group.Replicas))
			for j, node := range group.Replicas {
				addr, err := NewAddress(node, j+1)
				if err != nil {
					return nil, attribute(err, name)
				}
				replicas = append(replicas, addr)
			}

			T.shards = append(T.shards, newShard(i+1, weight, replicas, group.Replicas, group.InternalReplication, options))
			T.addressesWithFailover = append(T.addressesWithFailover, replicas)
		}
	}

	T.initMisc()
	return T, nil
}

// NewFromAddresses builds a topology from a matrix of "host:port"
// replica names, one inner list per shard, sharing one set of
// credentials. Every shard is treated as remote.
func NewFromAddresses(names [][]string, user, password string, options Options) (*Cluster, error) {
	remote := options
	remote.IsLocal = nil

	T := new(Cluster)
	for i, shardNames := range names {
		replicas := make([]Address, 0, len(shardNames))
		for j, hostPort := range shardNames {
			addr, err := ParseAddress(hostPort, user, password, j+1)
			if err != nil {
				return nil, err
			}
			replicas = append(replicas, addr)
		}
		T.shards = append(T.shards, newShard(i+1, 1, replicas, nil, false, remote))
		T.addressesWithFailover = append(T.addressesWithFailover, replicas)
	}

	T.initMisc()
	return T, nil
}

// attribute stamps the owning cluster onto parse errors raised below
// the cluster level.
func attribute(err error, name string) error {
	if pe, ok := err.(ParseError); ok && pe.Cluster == "" {
		pe.Cluster = name
		return pe
	}
	return err
}

func (T *Cluster) initMisc() {
	T.localShardCount = 0
	T.remoteShardCount = 0
	for i := range T.shards {
		if T.shards[i].IsLocal() {
			T.localShardCount++
		}
		if T.shards[i].HasRemoteConnections() {
			T.remoteShardCount++
		}
	}

	var slots int
	for i := range T.shards {
		slots += T.shards[i].Weight
	}
	T.slotToShard = make([]int, 0, slots)
	for i := range T.shards {
		for w := 0; w < T.shards[i].Weight; w++ {
			T.slotToShard = append(T.slotToShard, i)
		}
	}

	T.fingerprint = hashAddresses(T.replicaGroups())
}

func (T *Cluster) replicaGroups() [][]Address {
	if T.addressesWithFailover != nil {
		return T.addressesWithFailover
	}
	groups := make([][]Address, 0, len(T.addresses))
	for i := range T.addresses {
		groups = append(groups, T.addresses[i:i+1])
	}
	return groups
}

// hashAddresses hashes the ordered (host, port) sequence across all
// shards and replicas. Order matters: replica order is failover
// priority, so reordering must change the result. Hosts are length
// framed so adjacent fields cannot alias.
func hashAddresses(groups [][]Address) string {
	h := sha256.New()
	var buf [binary.MaxVarintLen64]byte
	for _, replicas := range groups {
		for _, addr := range replicas {
			n := binary.PutUvarint(buf[:], uint64(len(addr.Host)))
			_, _ = h.Write(buf[:n])
			_, _ = io.WriteString(h, addr.Host)
			binary.BigEndian.PutUint16(buf[:2], addr.Port)
			_, _ = h.Write(buf[:2])
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint identifies the ordered address set of this topology.
// Two topologies with equal fingerprints describe the same routing;
// resharding uses this to check source and destination agree.
func (T *Cluster) Fingerprint() string {
	return T.fingerprint
}

func (T *Cluster) ShardCount() int {
	return len(T.shards)
}

func (T *Cluster) LocalShardCount() int {
	return T.localShardCount
}

func (T *Cluster) RemoteShardCount() int {
	return T.remoteShardCount
}

// Shards is the ordered shard sequence. Callers must not modify it.
func (T *Cluster) Shards() []Shard {
	return T.shards
}

// Addresses is the flat per-shard address view. Populated only for
// topologies built from node lists.
func (T *Cluster) Addresses() []Address {
	return T.addresses
}

// AddressesWithFailover is the per-shard replica list view. Populated
// only for topologies built from shard groups or name matrices.
func (T *Cluster) AddressesWithFailover() [][]Address {
	return T.addressesWithFailover
}

// SlotToShard maps each weighted routing slot to a shard position.
// Its length is the sum of all shard weights; shard i holds exactly
// weight_i contiguous slots. How a slot is picked (round robin,
// random, row hash) is the caller's business.
func (T *Cluster) SlotToShard() []int {
	return T.slotToShard
}

// AnyShard returns the first shard in positional order.
func (T *Cluster) AnyShard() (*Shard, error) {
	if len(T.shards) == 0 {
		return nil, ErrEmptyCluster
	}
	return &T.shards[0], nil
}

// AnyRemoteShard scans for the first shard with remote connections.
func (T *Cluster) AnyRemoteShard() (*Shard, bool) {
	for i := range T.shards {
		if T.shards[i].HasRemoteConnections() {
			return &T.shards[i], true
		}
	}
	return nil, false
}

// WithSingleShard derives an independent topology holding only the
// shard at the given position, preserving its weight, classification
// and connection handle. Counts, slots and fingerprint are recomputed
// over that shard alone.
func (T *Cluster) WithSingleShard(index int) (*Cluster, error) {
	if index < 0 || index >= len(T.shards) {
		return nil, ShardIndexError{
			Index:  index,
			Shards: len(T.shards),
		}
	}

	sub := &Cluster{
		shards: []Shard{T.shards[index]},
	}
	if T.addressesWithFailover != nil {
		sub.addressesWithFailover = [][]Address{T.addressesWithFailover[index]}
	} else if T.addresses != nil {
		sub.addresses = []Address{T.addresses[index]}
	}

	sub.initMisc()
	return sub, nil
}

// Saturate clamps a per-node timeout to the cluster-wide ceiling so a
// single misconfigured node cannot exceed it. limit 0 = no ceiling.
func Saturate(v, limit dur.Duration) dur.Duration {
	if limit == 0 {
		return v
	}
	return maths.Min(v, limit)
}
