package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"gfx.cafe/gfx/shardgat/lib/cluster"
	"gfx.cafe/gfx/shardgat/lib/config"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "shardgat",
	Short: "inspect and validate cluster topology files",

	SilenceUsage: true,
}

func init() {
	flags := pflag.NewFlagSet("shardgat", pflag.ContinueOnError)
	flags.StringVarP(&configPath, "config", "c", "shardgat.yaml", "topology file to load")
	flags.StringVar(&logLevel, "log-level", "info", "zap log level")
	rootCmd.PersistentFlags().AddFlagSet(flags)

	rootCmd.AddCommand(checkCmd, fingerprintCmd, slotsCmd)
}

func load() (*cluster.Registry, error) {
	level, err := zap.ParseAtomicLevel(logLevel)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = level
	log, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	g, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	options, err := g.Options()
	if err != nil {
		return nil, err
	}
	options.Logger = log

	return cluster.NewRegistry(g.Clusters, options)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "build every cluster in the topology file and report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		registry, err := load()
		if err != nil {
			return err
		}
		for name, c := range registry.Container() {
			fmt.Printf("%s: %d shards (%d local, %d remote), %d slots, fingerprint %s\n",
				name,
				c.ShardCount(),
				c.LocalShardCount(),
				c.RemoteShardCount(),
				len(c.SlotToShard()),
				c.Fingerprint(),
			)
		}
		return nil
	},
}

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint <cluster>",
	Short: "print the address fingerprint of one cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := load()
		if err != nil {
			return err
		}
		c, err := registry.Get(args[0])
		if err != nil {
			return err
		}
		fmt.Println(c.Fingerprint())
		return nil
	},
}

var slotsCmd = &cobra.Command{
	Use:   "slots <cluster>",
	Short: "print the weighted slot routing table of one cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := load()
		if err != nil {
			return err
		}
		c, err := registry.Get(args[0])
		if err != nil {
			return err
		}
		for slot, shard := range c.SlotToShard() {
			fmt.Printf("%d\t%d\n", slot, c.Shards()[shard].Number)
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
