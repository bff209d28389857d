/*
Package api implements the cluster's administrative surface: an
HTTP/JSON server over an orchestrator.Node exposing transaction
lifecycle, shard listing, cluster status, the proxy overlay's
allocate/resolve/release operations, and Byzantine isolation state.

# Architecture

	┌──────────────────── CLIENT (stoqctl) ───────────────────┐
	│  HTTP/JSON over TLS                                       │
	└─────────────────────┬────────────────────────────────────┘
	                      │ :8443
	┌─────────────────────▼──── CLUSTER MEMBER ─────────────────┐
	│  ┌──────────────────────────────────────────────┐        │
	│  │      Server (pkg/api)                         │        │
	│  │  - TLS; client cert not verified              │        │
	│  │  - leader-forwarding on writes                │        │
	│  │  - read-only method gating                    │        │
	│  └──────────────────┬───────────────────────────┘        │
	│                     │                                     │
	│  ┌──────────────────▼───────────────────────────┐        │
	│  │         orchestrator.Node                     │        │
	│  └────────────────────────────────────────────────┘       │
	└─────────────────────────────────────────────────────────┘

POST endpoints (txn begin/read/write/commit/rollback, proxy
allocate/release) are rejected with 409 Conflict and an X-Stoq-Leader
header on a
follower; GET endpoints (status, shard listing, proxy resolve) answer
from any node.
*/
package api
