package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var txnCmd = &cobra.Command{
	Use:   "txn",
	Short: "Drive a transaction's begin/read/write/commit/rollback lifecycle",
}

var txnBeginCmd = &cobra.Command{
	Use:   "begin",
	Short: "Begin a new transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		isolation, _ := cmd.Flags().GetString("isolation")
		c := clientFromFlags(cmd)
		var resp struct {
			TxnID string `json:"txn_id"`
		}
		if err := c.post("/v1/txn/begin", map[string]string{"isolation": isolation}, &resp); err != nil {
			return err
		}
		fmt.Println(resp.TxnID)
		return nil
	},
}

var txnReadCmd = &cobra.Command{
	Use:   "read <txn-id> <key>",
	Short: "Read a key within a transaction",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		var resp struct {
			Value []byte `json:"value"`
			Found bool   `json:"found"`
		}
		req := map[string]string{"txn_id": args[0], "key": args[1]}
		if err := c.post("/v1/txn/read", req, &resp); err != nil {
			return err
		}
		if !resp.Found {
			fmt.Println("(not found)")
			return nil
		}
		fmt.Println(string(resp.Value))
		return nil
	},
}

var txnWriteCmd = &cobra.Command{
	Use:   "write <txn-id> <key> <value>",
	Short: "Write a key within a transaction",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		req := map[string]any{"txn_id": args[0], "key": args[1], "value": []byte(args[2])}
		if err := c.post("/v1/txn/write", req, nil); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

var txnCommitCmd = &cobra.Command{
	Use:   "commit <txn-id>",
	Short: "Commit a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		var resp struct {
			CommitTs      uint64   `json:"commit_ts"`
			CommittedKeys []string `json:"committed_keys"`
		}
		if err := c.post("/v1/txn/commit", map[string]string{"txn_id": args[0]}, &resp); err != nil {
			return err
		}
		fmt.Printf("committed at ts=%d (%d keys)\n", resp.CommitTs, len(resp.CommittedKeys))
		return nil
	},
}

var txnRollbackCmd = &cobra.Command{
	Use:   "rollback <txn-id>",
	Short: "Roll back a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := clientFromFlags(cmd)
		if err := c.post("/v1/txn/rollback", map[string]string{"txn_id": args[0]}, nil); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

func init() {
	txnBeginCmd.Flags().String("isolation", "serializable", "isolation level (read_committed, repeatable_read, serializable)")

	txnCmd.AddCommand(txnBeginCmd)
	txnCmd.AddCommand(txnReadCmd)
	txnCmd.AddCommand(txnWriteCmd)
	txnCmd.AddCommand(txnCommitCmd)
	txnCmd.AddCommand(txnRollbackCmd)
}
