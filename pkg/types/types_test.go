package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProxyAddressRoundTrip(t *testing.T) {
	var addr ProxyAddress
	for i := range addr.NetworkID {
		addr.NetworkID[i] = byte(i)
	}
	for i := range addr.NodeID {
		addr.NodeID[i] = byte(i + 1)
	}
	addr.Port = 4242
	for i := range addr.AccessToken {
		addr.AccessToken[i] = byte(i + 2)
	}

	parsed, err := ParseProxyAddress(addr.String())
	require.NoError(t, err)
	require.Equal(t, addr.NetworkID, parsed.NetworkID)
	require.Equal(t, addr.NodeID, parsed.NodeID)
	require.Equal(t, addr.Port, parsed.Port)
}

func TestParseProxyAddressRejectsBadGrammar(t *testing.T) {
	cases := []string{
		"tcp://aa:bb/1",
		"hypermesh://zz/1",
		"hypermesh://" + "00000000000000000000000000000000" + ":" + "0000000000000000" + "/notaport",
	}
	for _, c := range cases {
		_, err := ParseProxyAddress(c)
		require.Error(t, err, c)
	}
}

func TestKeyRangeContains(t *testing.T) {
	r := KeyRange{Lo: []byte("a"), Hi: []byte("m")}
	require.True(t, r.Contains([]byte("a")))
	require.True(t, r.Contains([]byte("f")))
	require.False(t, r.Contains([]byte("m")))
	require.False(t, r.Contains([]byte("0")))

	open := KeyRange{Lo: []byte("m")}
	require.True(t, open.Contains([]byte("zzzz")))
}

func TestNewTxnIDUnique(t *testing.T) {
	a := NewTxnID()
	b := NewTxnID()
	require.NotEqual(t, a, b)
	require.NotEmpty(t, a.String())
}
