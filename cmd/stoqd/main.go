package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hypermesh/stoq/pkg/api"
	"github.com/hypermesh/stoq/pkg/log"
	"github.com/hypermesh/stoq/pkg/orchestrator"
	"github.com/hypermesh/stoq/pkg/security"
	"github.com/hypermesh/stoq/pkg/types"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

const apiShutdownTimeout = 5 * time.Second

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "stoqd",
	Short:   "stoqd runs one STOQ cluster member",
	Version: Version,
	RunE:    runDaemon,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("stoqd version %s\nCommit: %s\n", Version, Commit))

	rootCmd.Flags().String("node-id", "", "this node's id (required)")
	rootCmd.Flags().String("bind-addr", "::1", "transport bind address (IPv6)")
	rootCmd.Flags().Int("port", 7400, "transport bind port")
	rootCmd.Flags().String("api-addr", "127.0.0.1:8443", "HTTP/JSON admin API listen address")
	rootCmd.Flags().String("data-dir", "./data", "on-disk data directory")
	rootCmd.Flags().StringSlice("peer", nil, "peer in id=host:port form, repeatable (must include self)")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().Bool("log-json", false, "emit structured JSON logs")
	_ = rootCmd.MarkFlagRequired("node-id")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logLevel, _ := cmd.Flags().GetString("log-level")
	logJSON, _ := cmd.Flags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(logLevel), JSONOutput: logJSON})

	nodeID, _ := cmd.Flags().GetString("node-id")
	bindAddr, _ := cmd.Flags().GetString("bind-addr")
	port, _ := cmd.Flags().GetInt("port")
	apiAddr, _ := cmd.Flags().GetString("api-addr")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	peerFlags, _ := cmd.Flags().GetStringSlice("peer")

	peers, err := parsePeers(peerFlags)
	if err != nil {
		return fmt.Errorf("stoqd: %w", err)
	}
	if _, ok := peers[types.NodeID(nodeID)]; !ok {
		return fmt.Errorf("stoqd: --peer must include an entry for --node-id %s", nodeID)
	}

	ip := net.ParseIP(bindAddr)
	if ip == nil {
		return fmt.Errorf("stoqd: invalid --bind-addr %q", bindAddr)
	}

	cfg := orchestrator.DefaultConfig()
	cfg.Self = types.NodeID(nodeID)
	cfg.BindAddr = ip
	cfg.Port = port
	cfg.DataDir = dataDir
	cfg.Peers = peers

	node, err := orchestrator.New(cfg)
	if err != nil {
		return fmt.Errorf("stoqd: build node: %w", err)
	}

	certDir, err := ensureNodeCertificate(node, nodeID, ip)
	if err != nil {
		return fmt.Errorf("stoqd: %w", err)
	}

	apiServer, err := api.NewServer(node, node.TrustRoot(), certDir)
	if err != nil {
		return fmt.Errorf("stoqd: build API server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	node.Start(ctx)
	fmt.Printf("node %s listening on [%s]:%d, admin API on %s\n", nodeID, bindAddr, port, apiAddr)

	errCh := make(chan error, 1)
	go func() {
		if err := apiServer.Start(apiAddr); err != nil {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("shutting down...")
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "admin API error: %v\n", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), apiShutdownTimeout)
	defer shutdownCancel()
	_ = apiServer.Stop(shutdownCtx)
	cancel()
	node.Stop()
	return nil
}

func parsePeers(flags []string) (map[types.NodeID]orchestrator.PeerAddr, error) {
	peers := make(map[types.NodeID]orchestrator.PeerAddr, len(flags))
	for _, entry := range flags {
		id, hostport, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --peer %q, want id=host:port", entry)
		}
		host, portStr, err := net.SplitHostPort(hostport)
		if err != nil {
			return nil, fmt.Errorf("invalid --peer %q: %w", entry, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid --peer %q: bad port: %w", entry, err)
		}
		peers[types.NodeID(id)] = orchestrator.PeerAddr{Host: host, Port: port}
	}
	return peers, nil
}

// ensureNodeCertificate issues and persists this node's TLS certificate
// on first run, mirroring the manager's own bootstrap-if-absent check.
func ensureNodeCertificate(node *orchestrator.Node, nodeID string, bindIP net.IP) (string, error) {
	certDir, err := security.GetCertDir("node", nodeID)
	if err != nil {
		return "", fmt.Errorf("get cert directory: %w", err)
	}
	if security.CertExists(certDir) {
		return certDir, nil
	}

	var ipAddresses []net.IP
	if bindIP != nil && !bindIP.IsUnspecified() {
		ipAddresses = []net.IP{bindIP}
	}
	dnsNames := []string{fmt.Sprintf("node-%s", nodeID), "localhost"}

	cert, err := node.TrustRoot().IssueNodeCertificate(nodeID, dnsNames, ipAddresses)
	if err != nil {
		return "", fmt.Errorf("issue node certificate: %w", err)
	}
	if err := security.SaveCertToFile(cert, certDir); err != nil {
		return "", fmt.Errorf("save node certificate: %w", err)
	}
	if err := security.SaveCACertToFile(node.TrustRoot().GetRootCACert(), certDir); err != nil {
		return "", fmt.Errorf("save CA certificate: %w", err)
	}
	return certDir, nil
}
