package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"time"

	"github.com/hypermesh/stoq/pkg/metrics"
	"github.com/hypermesh/stoq/pkg/orchestrator"
	"github.com/hypermesh/stoq/pkg/security"
)

// Server is the HTTP/JSON administrative surface over one node.
type Server struct {
	node *orchestrator.Node
	mux  *http.ServeMux
	http *http.Server
}

// NewServer builds a Server for node, securing it with node's own
// trust root: the server presents a node certificate and requests a
// client certificate but neither requires nor verifies one; routes are
// gated by HTTP method and, for POST routes, by leadership.
func NewServer(node *orchestrator.Node, trustRoot *security.TrustRoot, certDir string) (*Server, error) {
	if !security.CertExists(certDir) {
		return nil, fmt.Errorf("api: node certificate not found at %s", certDir)
	}
	cert, err := security.LoadCertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("api: load node certificate: %w", err)
	}
	caCert, err := security.LoadCACertFromFile(certDir)
	if err != nil {
		return nil, fmt.Errorf("api: load CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AddCert(caCert)

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{*cert},
		ClientAuth:   tls.RequestClientCert,
		ClientCAs:    pool,
		MinVersion:   tls.VersionTLS13,
	}

	s := &Server{node: node, mux: http.NewServeMux()}
	s.routes()
	s.http = &http.Server{
		Handler:      s.mux,
		TLSConfig:    tlsConfig,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() {
	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ready", s.handleReady)

	s.mux.Handle("/v1/cluster/status", s.readOnly(s.handleClusterStatus))
	s.mux.Handle("/v1/shards", s.readOnly(s.handleListShards))
	s.mux.Handle("/v1/bft/isolated", s.readOnly(s.handleListIsolated))

	s.mux.Handle("/v1/txn/begin", s.writeOnly(s.handleTxnBegin))
	s.mux.Handle("/v1/txn/read", s.writeOnly(s.handleTxnRead))
	s.mux.Handle("/v1/txn/write", s.writeOnly(s.handleTxnWrite))
	s.mux.Handle("/v1/txn/commit", s.writeOnly(s.handleTxnCommit))
	s.mux.Handle("/v1/txn/rollback", s.writeOnly(s.handleTxnRollback))

	s.mux.Handle("/v1/proxy/allocate", s.writeOnly(s.handleProxyAllocate))
	s.mux.Handle("/v1/proxy/resolve", s.readOnly(s.handleProxyResolve))
	s.mux.Handle("/v1/proxy/release", s.writeOnly(s.handleProxyRelease))
}

// Start serves HTTPS on addr. It blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.http.Addr = addr
	return s.http.ListenAndServeTLS("", "") // certs are already in TLSConfig
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
