package common

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticEndpoints(t *testing.T) {
	addrs := []string{"localhost:9080", "dgraph-1:9080"}
	set := NewStaticEndpoints(&addrs)
	require.Equal(t, EndpointsStatic, set.Kind())
	require.Equal(t, 2, set.Len())

	resolved, err := set.Resolve()
	require.NoError(t, err)
	require.Equal(t, addrs, resolved)

	_, err = NewStaticEndpoints(nil).Resolve()
	require.True(t, IsKind(err, ErrKindTransport))
}

func TestOwnedEndpoints(t *testing.T) {
	input := []string{" localhost:9080", "http://alpha:8080", "/tmp/dgo.sock"}
	set, err := NewOwnedEndpoints(input)
	require.NoError(t, err)
	require.Equal(t, EndpointsOwned, set.Kind())

	// the set owns its copy
	input[0] = "changed:1"
	resolved, err := set.Resolve()
	require.NoError(t, err)
	require.Equal(t, []string{"localhost:9080", "http://alpha:8080", "/tmp/dgo.sock"}, resolved)
	require.Equal(t, "[localhost:9080,http://alpha:8080,/tmp/dgo.sock]", set.String())

	for _, bad := range []string{"", "localhost", "http://", "bad host:80", "localhost:"} {
		_, err := NewOwnedEndpoints([]string{bad})
		require.True(t, IsKind(err, ErrKindInvalidArgument), "address %q", bad)
	}

	_, err = NewOwnedEndpoints(nil)
	require.NoError(t, err)
}

func TestLiteralEndpoints(t *testing.T) {
	set := NewLiteralEndpoints("localhost:9080", "grpc://alpha:9080")
	require.Equal(t, EndpointsLiteral, set.Kind())

	resolved, err := set.Resolve()
	require.NoError(t, err)
	require.Len(t, resolved, 2)

	// literals are checked when resolved
	_, err = NewLiteralEndpoints("localhost:9080", "nope").Resolve()
	require.True(t, IsKind(err, ErrKindTransport))

	_, err = NewLiteralEndpoints().Resolve()
	require.True(t, IsKind(err, ErrKindTransport))
}
