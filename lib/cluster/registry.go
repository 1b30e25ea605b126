package cluster

import (
	"sync"

	"go.uber.org/zap"

	"gfx.cafe/gfx/shardgat/lib/instrumentation/prom"
	"gfx.cafe/gfx/shardgat/lib/util/maps"
)

// Registry is the named set of topologies currently in effect. It is
// owned by the execution context and passed down explicitly; there is
// no package-level instance.
//
// Readers share the installed Cluster values; a reload never mutates
// an installed topology, it swaps in a whole new mapping. A query that
// captured a Cluster before a reload keeps seeing its snapshot.
type Registry struct {
	clusters map[string]*Cluster
	mu       sync.RWMutex

	log *zap.Logger
}

func NewRegistry(configs map[string]Config, options Options) (*Registry, error) {
	T := &Registry{
		log: options.logger(),
	}
	if err := T.Update(configs, options); err != nil {
		return nil, err
	}
	return T, nil
}

// Get returns the shared topology registered under name.
func (T *Registry) Get(name string) (*Cluster, error) {
	T.mu.RLock()
	defer T.mu.RUnlock()

	c, ok := T.clusters[name]
	if !ok {
		return nil, UnknownClusterError{Name: name}
	}
	return c, nil
}

// Update rebuilds every named topology from configs and installs the
// result. All building (parsing, resolution, pool construction) runs
// outside the lock; the lock covers only the map swap. If any cluster
// fails to build, the previously installed mapping stays untouched.
func (T *Registry) Update(configs map[string]Config, options Options) error {
	next := make(map[string]*Cluster, len(configs))
	for name, config := range configs {
		c, err := New(name, config, options)
		if err != nil {
			prom.Registry.Reloads(prom.ReloadLabels{Outcome: "error"}).Inc()
			T.log.Error("topology reload aborted",
				zap.String("cluster", name),
				zap.Error(err),
			)
			return err
		}
		next[name] = c
	}

	T.mu.Lock()
	T.clusters = next
	T.mu.Unlock()

	prom.Registry.Reloads(prom.ReloadLabels{Outcome: "ok"}).Inc()
	for name, c := range next {
		labels := prom.ClusterLabels{Cluster: name}
		prom.Topology.Shards(labels).Set(float64(c.ShardCount()))
		prom.Topology.LocalShards(labels).Set(float64(c.LocalShardCount()))
		prom.Topology.RemoteShards(labels).Set(float64(c.RemoteShardCount()))
		prom.Topology.Slots(labels).Set(float64(len(c.SlotToShard())))
		T.log.Info("installed cluster topology",
			zap.String("cluster", name),
			zap.Int("shards", c.ShardCount()),
			zap.String("fingerprint", c.Fingerprint()),
		)
	}
	return nil
}

// Container is a copy of the current name to topology mapping, safe to
// iterate without holding the registry lock.
func (T *Registry) Container() map[string]*Cluster {
	T.mu.RLock()
	defer T.mu.RUnlock()
	return maps.Clone(T.clusters)
}
