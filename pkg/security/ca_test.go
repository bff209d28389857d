package security

import (
	"net"
	"testing"

	"github.com/hypermesh/stoq/pkg/storage"
	"github.com/stretchr/testify/require"
)

func newTestTrustRoot(t *testing.T) *TrustRoot {
	t.Helper()
	key := DeriveKeyFromClusterID("test-cluster")
	require.NoError(t, SetClusterEncryptionKey(key))

	store, err := storage.NewBoltStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ca, err := NewTrustRoot(store)
	require.NoError(t, err)
	require.NoError(t, ca.Initialize())
	return ca
}

func TestTrustRootInitializeAndPersist(t *testing.T) {
	ca := newTestTrustRoot(t)
	require.True(t, ca.IsInitialized())
	require.NoError(t, ca.SaveToStore())

	reloaded, err := NewTrustRoot(&passthroughStore{bucket: ca.bucket})
	require.NoError(t, err)
	require.NoError(t, reloaded.LoadFromStore())
	require.Equal(t, ca.GetRootCACert(), reloaded.GetRootCACert())
}

// passthroughStore lets a test reopen a TrustRoot against the same
// already-created bucket without reopening the underlying bbolt file.
type passthroughStore struct {
	bucket storage.Bucket
}

func (s *passthroughStore) Bucket(name string) (storage.Bucket, error) { return s.bucket, nil }
func (s *passthroughStore) Update(fn func(tx storage.Tx) error) error  { return nil }
func (s *passthroughStore) View(fn func(tx storage.Tx) error) error    { return nil }
func (s *passthroughStore) Close() error                              { return nil }

func TestIssueAndVerifyNodeCertificate(t *testing.T) {
	ca := newTestTrustRoot(t)

	cert, err := ca.IssueNodeCertificate("node-1", []string{"node-1.stoq"}, []net.IP{net.ParseIP("::1")})
	require.NoError(t, err)
	require.NotNil(t, cert.Leaf)

	require.NoError(t, ca.VerifyCertificate(cert.Leaf))
}

func TestRevokedCertificateFailsVerification(t *testing.T) {
	ca := newTestTrustRoot(t)

	cert, err := ca.IssueNodeCertificate("node-2", nil, nil)
	require.NoError(t, err)
	require.NoError(t, ca.VerifyCertificate(cert.Leaf))

	require.NoError(t, ca.Revoke(cert.Leaf))
	require.True(t, ca.IsRevoked(cert.Leaf.SerialNumber.String()))
	require.Error(t, ca.VerifyCertificate(cert.Leaf))
}

func TestFingerprintStable(t *testing.T) {
	ca := newTestTrustRoot(t)
	cert, err := ca.IssueNodeCertificate("node-3", nil, nil)
	require.NoError(t, err)

	a := Fingerprint(cert.Leaf)
	b := Fingerprint(cert.Leaf)
	require.Equal(t, a, b)
}
