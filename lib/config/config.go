package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"gfx.cafe/gfx/shardgat/lib/cluster"
	"gfx.cafe/gfx/shardgat/lib/util/dur"
)

type Global struct {
	General  General                   `toml:"general" yaml:"general" json:"general"`
	Clusters map[string]cluster.Config `toml:"clusters" yaml:"clusters" json:"clusters"`
}

type General struct {
	// ListenHost and ListenPort identify this server; cluster replicas
	// that resolve to the same endpoint run in-process.
	ListenHost string `toml:"listen_host" yaml:"listen_host" json:"listen_host"`
	ListenPort uint16 `toml:"listen_port" yaml:"listen_port" json:"listen_port"`

	ConnectTimeout dur.Duration `toml:"connect_timeout" yaml:"connect_timeout" json:"connect_timeout"`
	// MaxConnectTimeout is the ceiling applied to every per-node
	// connect timeout.
	MaxConnectTimeout dur.Duration `toml:"max_connect_timeout" yaml:"max_connect_timeout" json:"max_connect_timeout"`

	MaxConnections int `toml:"max_connections" yaml:"max_connections" json:"max_connections"`
	RetryPasses    int `toml:"retry_passes" yaml:"retry_passes" json:"retry_passes"`
}

// Load reads a topology file, picking the decoder by extension
// (toml, or yaml for everything else, json included).
func Load(path string) (*Global, error) {
	var g Global
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.TrimPrefix(filepath.Ext(path), ".") {
	case "toml":
		if err := toml.Unmarshal(file, &g); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(file, &g); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	for name, c := range g.Clusters {
		for i := range c.Nodes {
			expandEnv(&c.Nodes[i])
		}
		for i := range c.Shards {
			for j := range c.Shards[i].Replicas {
				expandEnv(&c.Shards[i].Replicas[j])
			}
		}
		g.Clusters[name] = c
	}

	return &g, nil
}

// expandEnv resolves ENV$NAME references so credentials can stay out
// of the file itself.
func expandEnv(node *cluster.NodeConfig) {
	if strings.HasPrefix(node.Host, "ENV$") {
		node.Host = os.Getenv(strings.TrimPrefix(node.Host, "ENV$"))
	}
	if strings.HasPrefix(node.User, "ENV$") {
		node.User = os.Getenv(strings.TrimPrefix(node.User, "ENV$"))
	}
	if strings.HasPrefix(node.Password, "ENV$") {
		node.Password = os.Getenv(strings.TrimPrefix(node.Password, "ENV$"))
	}
}

// Options assembles the cluster build options described by General.
func (T *Global) Options() (cluster.Options, error) {
	options := cluster.Options{
		ConnectTimeout:    T.General.ConnectTimeout,
		MaxConnectTimeout: T.General.MaxConnectTimeout,
		MaxConnections:    T.General.MaxConnections,
		RetryPasses:       T.General.RetryPasses,
	}
	if T.General.ListenHost != "" {
		isLocal, err := cluster.SelfPredicate(T.General.ListenHost, T.General.ListenPort)
		if err != nil {
			return cluster.Options{}, err
		}
		options.IsLocal = isLocal
	}
	return options, nil
}
