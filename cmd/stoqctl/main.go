package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "stoqctl",
	Short:   "stoqctl administers a STOQ cluster over its HTTP/JSON admin API",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("stoqctl version %s\nCommit: %s\n", Version, Commit))

	rootCmd.PersistentFlags().String("node", "127.0.0.1:8443", "admin API address of a cluster node")
	rootCmd.PersistentFlags().Bool("insecure", false, "skip TLS certificate verification (development only)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(shardsCmd)
	rootCmd.AddCommand(bftCmd)
	rootCmd.AddCommand(txnCmd)
	rootCmd.AddCommand(proxyCmd)
}

func clientFromFlags(cmd *cobra.Command) *client {
	addr, _ := cmd.Flags().GetString("node")
	insecure, _ := cmd.Flags().GetBool("insecure")
	return newClient(addr, insecure)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cluster status as seen by one node",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		var status map[string]any
		if err := c.get("/v1/cluster/status", &status); err != nil {
			return err
		}
		printJSON(status)
		return nil
	},
}

var shardsCmd = &cobra.Command{
	Use:   "shards",
	Short: "Manage shards",
}

var shardsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List shards owned or known by this node",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		var shards []map[string]any
		if err := c.get("/v1/shards", &shards); err != nil {
			return err
		}
		printJSON(shards)
		return nil
	},
}

func init() {
	shardsCmd.AddCommand(shardsListCmd)
}

var bftCmd = &cobra.Command{
	Use:   "bft",
	Short: "Inspect Byzantine fault detection state",
}

var bftIsolatedCmd = &cobra.Command{
	Use:   "isolated",
	Short: "List peers currently isolated for suspected Byzantine behavior",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		var isolated []map[string]any
		if err := c.get("/v1/bft/isolated", &isolated); err != nil {
			return err
		}
		printJSON(isolated)
		return nil
	},
}

func init() {
	bftCmd.AddCommand(bftIsolatedCmd)
}
