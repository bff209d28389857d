package trustroot

import (
	"context"
	"fmt"
	"sync"

	"github.com/hypermesh/stoq/pkg/log"
	"github.com/hypermesh/stoq/pkg/storage"
	"github.com/miekg/dns"
)

// DefaultListenAddr is where the record service listens for bootstrap
// queries before a caller has an established transport connection.
const DefaultListenAddr = "[::1]:8853"

// Config holds trust root record-service configuration.
type Config struct {
	ListenAddr string // bootstrap listen address (default DefaultListenAddr)
	Domain     string // search domain (default "stoq")
}

// Server answers bootstrap name-resolution queries over a conventional
// DNS transport, serving AAAA records straight out of the resolver's
// record bucket. It is the only network path to the records: no
// resolution runs over a transport connection, and in-process callers
// such as the transport's connect path use Resolver directly.
type Server struct {
	resolver   *Resolver
	dnsServer  *dns.Server
	listenAddr string
	mu         sync.RWMutex
	running    bool
}

// NewServer creates a trust root record server backed by store.
func NewServer(store storage.Store, cfg *Config) (*Server, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}

	resolver, err := NewResolver(store, cfg.Domain)
	if err != nil {
		return nil, err
	}

	return &Server{resolver: resolver, listenAddr: cfg.ListenAddr}, nil
}

// Resolver exposes the underlying Resolver so other components (the
// transport's connect path) can resolve in-process without a round trip
// through this server.
func (s *Server) Resolver() *Resolver { return s.resolver }

// Start begins serving bootstrap queries over UDP.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("trustroot: record server already running")
	}
	s.running = true
	s.mu.Unlock()

	log.Logger.Info().
		Str("component", "trustroot").
		Str("address", s.listenAddr).
		Msg("starting trust root record server")

	mux := dns.NewServeMux()
	mux.HandleFunc(".", s.handleQuery)

	s.dnsServer = &dns.Server{Addr: s.listenAddr, Net: "udp", Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		if err := s.dnsServer.ListenAndServe(); err != nil {
			log.Logger.Error().
				Err(err).
				Str("component", "trustroot").
				Msg("record server error")
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return err
	case <-ctx.Done():
		return s.Stop()
	default:
		return nil
	}
}

// Stop shuts the server down; idempotent.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	log.Logger.Info().Str("component", "trustroot").Msg("stopping trust root record server")
	if s.dnsServer != nil {
		if err := s.dnsServer.Shutdown(); err != nil {
			return fmt.Errorf("trustroot: stop record server: %w", err)
		}
	}
	s.running = false
	return nil
}

// IsRunning reports whether the server is currently accepting queries.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func (s *Server) handleQuery(w dns.ResponseWriter, r *dns.Msg) {
	msg := &dns.Msg{}
	msg.SetReply(r)
	msg.Authoritative = true

	for _, q := range r.Question {
		if q.Qtype != dns.TypeAAAA {
			msg.Rcode = dns.RcodeNotImplemented
			continue
		}

		ips, err := s.resolver.Resolve(q.Name)
		if err != nil {
			log.Logger.Debug().
				Err(err).
				Str("component", "trustroot").
				Str("query", q.Name).
				Msg("query did not resolve")
			msg.Rcode = dns.RcodeNameError
			continue
		}

		for _, ip := range ips {
			msg.Answer = append(msg.Answer, &dns.AAAA{
				Hdr: dns.RR_Header{
					Name:   q.Name,
					Rrtype: dns.TypeAAAA,
					Class:  dns.ClassINET,
					Ttl:    10,
				},
				AAAA: ip,
			})
		}
	}

	if err := w.WriteMsg(msg); err != nil {
		log.Logger.Error().Err(err).Str("component", "trustroot").Msg("failed to write response")
	}
}
