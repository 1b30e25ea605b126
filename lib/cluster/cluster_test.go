package cluster

import (
	"errors"
	"testing"
	"time"

	"gfx.cafe/gfx/shardgat/lib/util/dur"
)

func node(host string, port uint16) NodeConfig {
	return NodeConfig{
		Host: host,
		Port: port,
	}
}

func weight(w int) *int {
	return &w
}

func mustCluster(t *testing.T, name string, config Config, options Options) *Cluster {
	t.Helper()
	c, err := New(name, config, options)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// loopbackLocal classifies 127.0.0.1 replicas as in-process.
func loopbackLocal(addr Address) bool {
	return addr.Host == "127.0.0.1"
}

func TestSlotTable(t *testing.T) {
	for _, weights := range [][]int{
		{1},
		{1, 1},
		{2, 0, 3},
		{5, 2, 0, 1},
	} {
		var config Config
		sum := 0
		for i, w := range weights {
			config.Shards = append(config.Shards, ShardConfig{
				Weight:   weight(w),
				Replicas: []NodeConfig{node("192.0.2.1", uint16(9000+i))},
			})
			sum += w
		}

		c := mustCluster(t, "slots", config, Options{})
		slots := c.SlotToShard()
		if len(slots) != sum {
			t.Errorf("weights %v: expected %d slots, got %d", weights, sum, len(slots))
		}

		counts := make([]int, len(weights))
		for i, shard := range slots {
			counts[shard]++
			if i > 0 && slots[i] < slots[i-1] {
				t.Errorf("weights %v: slot table %v is not contiguous", weights, slots)
			}
		}
		for i, w := range weights {
			if counts[i] != w {
				t.Errorf("weights %v: shard %d occupies %d slots, expected %d", weights, i, counts[i], w)
			}
		}
	}
}

func TestWeightedLocalRemoteScenario(t *testing.T) {
	config := Config{
		Shards: []ShardConfig{
			{
				Replicas: []NodeConfig{node("127.0.0.1", 9000)},
			},
			{
				Weight: weight(3),
				Replicas: []NodeConfig{
					node("192.0.2.10", 9000),
					node("192.0.2.11", 9000),
				},
			},
		},
	}

	c := mustCluster(t, "test", config, Options{IsLocal: loopbackLocal})

	if c.ShardCount() != 2 {
		t.Error("expected 2 shards, got", c.ShardCount())
	}
	if c.LocalShardCount() != 1 {
		t.Error("expected 1 local shard, got", c.LocalShardCount())
	}
	if c.RemoteShardCount() != 1 {
		t.Error("expected 1 remote shard, got", c.RemoteShardCount())
	}

	slots := c.SlotToShard()
	if len(slots) != 4 {
		t.Fatal("expected 4 slots, got", len(slots))
	}
	if slots[0] != 0 {
		t.Error("expected slot 0 to map to shard 0, got", slots[0])
	}
	for i := 1; i < 4; i++ {
		if slots[i] != 1 {
			t.Errorf("expected slot %d to map to shard 1, got %d", i, slots[i])
		}
	}

	shards := c.Shards()
	if !shards[0].IsLocal() || shards[0].HasRemoteConnections() {
		t.Error("shard 0 should be purely local")
	}
	if shards[0].Pool != nil {
		t.Error("local shard should not hold a pool")
	}
	if shards[1].IsLocal() || !shards[1].HasRemoteConnections() {
		t.Error("shard 1 should be purely remote")
	}
	if shards[1].Pool == nil || shards[1].Pool.Replicas() != 2 {
		t.Error("shard 1 should pool both replicas")
	}
}

func TestMixedShardClassification(t *testing.T) {
	config := Config{
		Shards: []ShardConfig{
			{
				Replicas: []NodeConfig{
					node("127.0.0.1", 9000),
					node("192.0.2.10", 9000),
				},
			},
		},
	}

	c := mustCluster(t, "mixed", config, Options{IsLocal: loopbackLocal})

	shard, err := c.AnyShard()
	if err != nil {
		t.Fatal(err)
	}
	if !shard.IsLocal() {
		t.Error("mixed shard should report local")
	}
	if !shard.HasRemoteConnections() {
		t.Error("mixed shard should report remote connections")
	}
	if shard.LocalNodeCount() != 1 {
		t.Error("expected 1 local node, got", shard.LocalNodeCount())
	}
	if c.LocalShardCount() != 1 || c.RemoteShardCount() != 1 {
		t.Error("mixed shard should count as both local and remote")
	}
}

func TestFingerprint(t *testing.T) {
	pair := func(nodes ...NodeConfig) *Cluster {
		return mustCluster(t, "fp", Config{Nodes: nodes}, Options{})
	}

	a := pair(node("192.0.2.1", 9000), node("192.0.2.2", 9000))
	same := pair(node("192.0.2.1", 9000), node("192.0.2.2", 9000))
	if a.Fingerprint() != same.Fingerprint() {
		t.Error("identical address sequences should fingerprint equally")
	}

	reordered := pair(node("192.0.2.2", 9000), node("192.0.2.1", 9000))
	if a.Fingerprint() == reordered.Fingerprint() {
		t.Error("reordering addresses should change the fingerprint")
	}

	otherPort := pair(node("192.0.2.1", 9000), node("192.0.2.2", 9001))
	if a.Fingerprint() == otherPort.Fingerprint() {
		t.Error("changing a port should change the fingerprint")
	}

	otherHost := pair(node("192.0.2.1", 9000), node("192.0.2.3", 9000))
	if a.Fingerprint() == otherHost.Fingerprint() {
		t.Error("changing a host should change the fingerprint")
	}
}

func TestFingerprintReplicaOrder(t *testing.T) {
	group := func(replicas ...NodeConfig) *Cluster {
		return mustCluster(t, "fp", Config{
			Shards: []ShardConfig{{Replicas: replicas}},
		}, Options{})
	}

	a := group(node("192.0.2.1", 9000), node("192.0.2.2", 9000))
	b := group(node("192.0.2.2", 9000), node("192.0.2.1", 9000))
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("replica order carries failover priority and must affect the fingerprint")
	}
}

func TestFingerprintAcrossModes(t *testing.T) {
	// a node list and the equivalent single-replica shard groups
	// describe the same ordered address sequence
	flat := mustCluster(t, "flat", Config{
		Nodes: []NodeConfig{node("192.0.2.1", 9000), node("192.0.2.2", 9000)},
	}, Options{})
	grouped := mustCluster(t, "grouped", Config{
		Shards: []ShardConfig{
			{Replicas: []NodeConfig{node("192.0.2.1", 9000)}},
			{Replicas: []NodeConfig{node("192.0.2.2", 9000)}},
		},
	}, Options{})

	if flat.Fingerprint() != grouped.Fingerprint() {
		t.Error("equivalent ordered address sequences should fingerprint equally")
	}
}

func TestWithSingleShard(t *testing.T) {
	config := Config{
		Shards: []ShardConfig{
			{Replicas: []NodeConfig{node("127.0.0.1", 9000)}},
			{
				Weight: weight(3),
				Replicas: []NodeConfig{
					node("192.0.2.10", 9000),
					node("192.0.2.11", 9000),
				},
			},
		},
	}
	c := mustCluster(t, "test", config, Options{IsLocal: loopbackLocal})

	sub, err := c.WithSingleShard(1)
	if err != nil {
		t.Fatal(err)
	}
	if sub.ShardCount() != 1 {
		t.Fatal("expected 1 shard, got", sub.ShardCount())
	}

	shard := sub.Shards()[0]
	if shard.Number != 2 {
		t.Error("shard ordinal should survive derivation, got", shard.Number)
	}
	if shard.Weight != 3 {
		t.Error("shard weight should survive derivation, got", shard.Weight)
	}
	if shard.IsLocal() || !shard.HasRemoteConnections() {
		t.Error("classification should survive derivation")
	}
	if shard.Pool != c.Shards()[1].Pool {
		t.Error("the connection handle should be shared, not rebuilt")
	}

	if len(sub.SlotToShard()) != 3 {
		t.Error("expected 3 slots, got", len(sub.SlotToShard()))
	}
	for _, s := range sub.SlotToShard() {
		if s != 0 {
			t.Error("all slots of a single-shard topology should map to shard 0")
		}
	}

	// fingerprint covers only the kept shard
	only := mustCluster(t, "only", Config{Shards: config.Shards[1:]}, Options{})
	if sub.Fingerprint() != only.Fingerprint() {
		t.Error("derived fingerprint should equal a topology of just that shard")
	}
	if sub.Fingerprint() == c.Fingerprint() {
		t.Error("derived fingerprint should differ from the full topology")
	}
}

func TestWithSingleShardOutOfRange(t *testing.T) {
	c := mustCluster(t, "test", Config{
		Nodes: []NodeConfig{node("192.0.2.1", 9000)},
	}, Options{})

	for _, index := range []int{1, 7, -1} {
		_, err := c.WithSingleShard(index)
		var sie ShardIndexError
		if !errors.As(err, &sie) {
			t.Errorf("index %d: expected ShardIndexError, got %v", index, err)
			continue
		}
		if sie.Index != index || sie.Shards != 1 {
			t.Errorf("index %d: error carries wrong values: %+v", index, sie)
		}
	}
}

func TestAnyShard(t *testing.T) {
	empty := mustCluster(t, "empty", Config{}, Options{})
	if empty.ShardCount() != 0 {
		t.Fatal("expected an empty cluster")
	}
	if _, err := empty.AnyShard(); !errors.Is(err, ErrEmptyCluster) {
		t.Error("expected ErrEmptyCluster, got", err)
	}

	c := mustCluster(t, "test", Config{
		Nodes: []NodeConfig{node("192.0.2.1", 9000), node("192.0.2.2", 9000)},
	}, Options{})
	shard, err := c.AnyShard()
	if err != nil {
		t.Fatal(err)
	}
	if shard.Number != 1 {
		t.Error("AnyShard should return the first shard, got", shard.Number)
	}
}

func TestAnyRemoteShard(t *testing.T) {
	local := mustCluster(t, "local", Config{
		Nodes: []NodeConfig{node("127.0.0.1", 9000)},
	}, Options{IsLocal: loopbackLocal})
	if _, ok := local.AnyRemoteShard(); ok {
		t.Error("all-local cluster should have no remote shard")
	}

	mixed := mustCluster(t, "mixed", Config{
		Nodes: []NodeConfig{
			node("127.0.0.1", 9000),
			node("192.0.2.1", 9000),
		},
	}, Options{IsLocal: loopbackLocal})
	shard, ok := mixed.AnyRemoteShard()
	if !ok {
		t.Fatal("expected a remote shard")
	}
	if shard.Number != 2 {
		t.Error("expected the first remote shard, got", shard.Number)
	}
}

func TestNewFromAddresses(t *testing.T) {
	c, err := NewFromAddresses([][]string{
		{"127.0.0.1:9000"},
		{"127.0.0.1:9001", "127.0.0.1:9002"},
	}, "writer", "secret", Options{IsLocal: loopbackLocal})
	if err != nil {
		t.Fatal(err)
	}

	if c.ShardCount() != 2 {
		t.Fatal("expected 2 shards, got", c.ShardCount())
	}
	// matrix mode ignores the local predicate
	if c.LocalShardCount() != 0 || c.RemoteShardCount() != 2 {
		t.Error("matrix-built shards should all be remote")
	}

	groups := c.AddressesWithFailover()
	if len(groups) != 2 || len(groups[1]) != 2 {
		t.Fatal("expected the replica view to mirror the matrix")
	}
	if groups[1][0].ReplicaNum != 1 || groups[1][1].ReplicaNum != 2 {
		t.Error("replica ordinals should be 1-based in matrix order")
	}
	if groups[0][0].User != "writer" || groups[0][0].Password != "secret" {
		t.Error("credentials should be shared across the matrix")
	}
	if c.Addresses() != nil {
		t.Error("flat view should stay empty in matrix mode")
	}
}

func TestParseErrors(t *testing.T) {
	for name, config := range map[string]Config{
		"both forms": {
			Nodes:  []NodeConfig{node("192.0.2.1", 9000)},
			Shards: []ShardConfig{{Replicas: []NodeConfig{node("192.0.2.2", 9000)}}},
		},
		"negative weight": {
			Shards: []ShardConfig{{
				Weight:   weight(-1),
				Replicas: []NodeConfig{node("192.0.2.1", 9000)},
			}},
		},
		"no replicas": {
			Shards: []ShardConfig{{}},
		},
		"missing host": {
			Nodes: []NodeConfig{{Port: 9000}},
		},
		"missing port": {
			Nodes: []NodeConfig{{Host: "192.0.2.1"}},
		},
	} {
		_, err := New("bad", config, Options{})
		var pe ParseError
		if !errors.As(err, &pe) {
			t.Errorf("%s: expected ParseError, got %v", name, err)
			continue
		}
		if pe.Cluster != "bad" {
			t.Errorf("%s: error should name the cluster, got %q", name, pe.Cluster)
		}
	}
}

func TestResolveFailureAbortsBuild(t *testing.T) {
	// .invalid never resolves (RFC 2606)
	_, err := New("bad", Config{
		Shards: []ShardConfig{{
			Replicas: []NodeConfig{
				node("192.0.2.1", 9000),
				node("host.invalid", 9000),
			},
		}},
	}, Options{})

	var re ResolveError
	if !errors.As(err, &re) {
		t.Fatal("expected ResolveError, got", err)
	}
	if re.Host != "host.invalid" || re.Port != 9000 {
		t.Errorf("error carries wrong endpoint: %+v", re)
	}
}

func TestDirNames(t *testing.T) {
	replicas := []NodeConfig{
		{Host: "192.0.2.1", Port: 9000, User: "writer"},
		{Host: "192.0.2.2", Port: 9000, User: "writer"},
	}

	plain := mustCluster(t, "plain", Config{
		Shards: []ShardConfig{{Replicas: replicas}},
	}, Options{})
	shard := plain.Shards()[0]
	if len(shard.DirNames) != 2 {
		t.Fatal("expected one dir per remote replica, got", shard.DirNames)
	}
	if shard.DirNames[0] != "writer@192.0.2.1:9000" {
		t.Error("unexpected dir name", shard.DirNames[0])
	}

	internal := mustCluster(t, "internal", Config{
		Shards: []ShardConfig{{
			InternalReplication: true,
			Replicas:            replicas,
		}},
	}, Options{})
	shard = internal.Shards()[0]
	if len(shard.DirNames) != 1 {
		t.Fatal("internal replication should join the dirs, got", shard.DirNames)
	}
	if shard.DirNames[0] != "writer@192.0.2.1:9000,writer@192.0.2.2:9000" {
		t.Error("unexpected joined dir name", shard.DirNames[0])
	}
	if !shard.InternalReplication {
		t.Error("the flag should be exposed on the shard")
	}
}

func TestSaturate(t *testing.T) {
	for _, tc := range []struct {
		v, limit, expect time.Duration
	}{
		{time.Second, time.Minute, time.Second},
		{time.Minute, time.Minute, time.Minute},
		{time.Hour, time.Minute, time.Minute},
		{time.Hour, 0, time.Hour},
		{0, time.Minute, 0},
	} {
		got := Saturate(dur.Duration(tc.v), dur.Duration(tc.limit))
		if got.Duration() != tc.expect {
			t.Errorf("Saturate(%v, %v) = %v, expected %v", tc.v, tc.limit, got.Duration(), tc.expect)
		}
	}
}
