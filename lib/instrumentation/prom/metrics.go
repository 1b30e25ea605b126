package prom

import (
	"gfx.cafe/open/gotoprom"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	gotoprom.MustInit(&Registry, "shardgat_registry", prometheus.Labels{})
	gotoprom.MustInit(&Topology, "shardgat_topology", prometheus.Labels{})
	gotoprom.MustInit(&Pool, "shardgat_pool", prometheus.Labels{})
}

type ReloadLabels struct {
	Outcome string `label:"outcome"`
}

var Registry struct {
	Reloads func(ReloadLabels) prometheus.Counter `name:"reloads" help:"topology reload attempts by outcome"`
}

type ClusterLabels struct {
	Cluster string `label:"cluster"`
}

var Topology struct {
	Shards       func(ClusterLabels) prometheus.Gauge `name:"shards" help:"shards in cluster"`
	LocalShards  func(ClusterLabels) prometheus.Gauge `name:"local_shards" help:"shards with in-process replicas"`
	RemoteShards func(ClusterLabels) prometheus.Gauge `name:"remote_shards" help:"shards with remote connections"`
	Slots        func(ClusterLabels) prometheus.Gauge `name:"slots" help:"weighted routing slots in cluster"`
}

type DialLabels struct {
	Address string `label:"address"`
	Outcome string `label:"outcome"`
}

var Pool struct {
	Dials func(DialLabels) prometheus.Counter `name:"dials" help:"replica dial attempts by outcome"`
}
