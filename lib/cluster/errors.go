package cluster

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrEmptyCluster is returned by operations that need at least one
// shard when the cluster has none.
var ErrEmptyCluster = errors.New("cluster is empty")

// ParseError reports malformed or missing cluster configuration.
type ParseError struct {
	Cluster string
	Detail  string
}

func (T ParseError) Error() string {
	if T.Cluster == "" {
		return fmt.Sprintf("invalid cluster config: %s", T.Detail)
	}
	return fmt.Sprintf("invalid config for cluster %q: %s", T.Cluster, T.Detail)
}

var _ error = ParseError{}

// ResolveError reports that a configured host could not be resolved
// while the topology was being built.
type ResolveError struct {
	Host string
	Port uint16
	Err  error
}

func (T ResolveError) Error() string {
	return fmt.Sprintf("cannot resolve %s: %v", net.JoinHostPort(T.Host, strconv.Itoa(int(T.Port))), T.Err)
}

func (T ResolveError) Unwrap() error {
	return T.Err
}

var _ error = ResolveError{}

// UnknownClusterError reports a registry lookup for a name that was not
// installed by the last successful load.
type UnknownClusterError struct {
	Name string
}

func (T UnknownClusterError) Error() string {
	return fmt.Sprintf("unknown cluster: %q", T.Name)
}

var _ error = UnknownClusterError{}

// ShardIndexError reports a single-shard derivation with an index
// outside the shard sequence.
type ShardIndexError struct {
	Index  int
	Shards int
}

func (T ShardIndexError) Error() string {
	return fmt.Sprintf("shard index %d out of range (cluster has %d shards)", T.Index, T.Shards)
}

var _ error = ShardIndexError{}
