package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Allocate, resolve and release proxy overlay addresses",
}

var proxyAllocateCmd = &cobra.Command{
	Use:   "allocate <kind> <id>",
	Short: "Allocate a proxy address for an asset",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		req := map[string]string{"asset_kind": args[0], "asset_id": args[1]}
		var resp struct {
			Address string `json:"address"`
		}
		if err := c.post("/v1/proxy/allocate", req, &resp); err != nil {
			return err
		}
		fmt.Println(resp.Address)
		return nil
	},
}

var proxyResolveCmd = &cobra.Command{
	Use:   "resolve <address>",
	Short: "Resolve a proxy address back to its asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		var resp struct {
			AssetKind string `json:"asset_kind"`
			AssetID   string `json:"asset_id"`
		}
		if err := c.get("/v1/proxy/resolve?address="+url.QueryEscape(args[0]), &resp); err != nil {
			return err
		}
		fmt.Printf("%s:%s\n", resp.AssetKind, resp.AssetID)
		return nil
	},
}

var proxyReleaseCmd = &cobra.Command{
	Use:   "release <kind> <id>",
	Short: "Release a previously allocated proxy address",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		req := map[string]string{"asset_kind": args[0], "asset_id": args[1]}
		if err := c.post("/v1/proxy/release", req, nil); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	proxyCmd.AddCommand(proxyAllocateCmd)
	proxyCmd.AddCommand(proxyResolveCmd)
	proxyCmd.AddCommand(proxyReleaseCmd)
}
