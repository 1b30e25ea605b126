package cluster

import "gfx.cafe/gfx/shardgat/lib/util/dur"

// Config describes one cluster. Exactly one of Nodes and Shards may be
// set: Nodes lists independent single-node shards of weight 1, Shards
// lists replicated shard groups. Both empty is a valid empty cluster.
type Config struct {
	Nodes  []NodeConfig  `toml:"nodes" yaml:"nodes" json:"nodes,omitempty"`
	Shards []ShardConfig `toml:"shards" yaml:"shards" json:"shards,omitempty"`
}

type NodeConfig struct {
	Host     string `toml:"host" yaml:"host" json:"host"`
	Port     uint16 `toml:"port" yaml:"port" json:"port"`
	User     string `toml:"user" yaml:"user" json:"user,omitempty"`
	Password string `toml:"password" yaml:"password" json:"password,omitempty"`
	Database string `toml:"database" yaml:"database" json:"database,omitempty"`

	// ConnectTimeout overrides the cluster-wide dial timeout for this
	// node. It is clamped to Options.MaxConnectTimeout before use.
	ConnectTimeout dur.Duration `toml:"connect_timeout" yaml:"connect_timeout" json:"connect_timeout,omitempty"`
}

type ShardConfig struct {
	// Weight is the shard's share of routing slots. nil = 1. A weight
	// of 0 keeps the shard in the topology but routes nothing to it.
	Weight *int `toml:"weight" yaml:"weight" json:"weight,omitempty"`

	// InternalReplication means the servers fan writes out across
	// replicas themselves, so a writer should address only the first
	// reachable replica.
	InternalReplication bool `toml:"internal_replication" yaml:"internal_replication" json:"internal_replication,omitempty"`

	Replicas []NodeConfig `toml:"replicas" yaml:"replicas" json:"replicas"`
}

func (T ShardConfig) weight() int {
	if T.Weight == nil {
		return 1
	}
	return *T.Weight
}
