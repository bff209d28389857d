// Package security implements the cluster's trust root: a self-signed
// root certificate authority that issues short-lived node and client
// certificates, verifies peer chains during the transport handshake, and
// maintains a revocation set. It also holds the symmetric-encryption
// helpers used to protect the root key at rest and to derive the
// cluster-wide key that protection uses.
//
// The root certificate is long-lived (10 years); node and client
// certificates are short-lived (90 days) and are expected to rotate
// before then — TrustRoot.Revoke lets an operator cut one off early.
// Root key material is never stored in the clear: it is AES-256-GCM
// sealed under a key derived from the cluster id (DeriveKeyFromClusterID)
// before being written to the "ca" bucket of the node's durable store.
package security
