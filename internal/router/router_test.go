package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyx3211/edgeserve/internal/httpcore"
)

func TestFindExactMatch(t *testing.T) {
	called := false
	r := NewBuilder().
		Register("POST", "/api/login", func(*httpcore.Connection) { called = true }).
		Build()

	h, ok := r.Find("POST", "/api/login")
	require.True(t, ok)
	h(nil)
	assert.True(t, called)
}

func TestFindRejectsPrefixAndWildcard(t *testing.T) {
	r := NewBuilder().
		Register("GET", "/api/user", func(*httpcore.Connection) {}).
		Build()

	_, ok := r.Find("GET", "/api/user/extra")
	assert.False(t, ok)
	_, ok = r.Find("GET", "/api")
	assert.False(t, ok)
}

func TestFindIsMethodSensitive(t *testing.T) {
	r := NewBuilder().
		Register("GET", "/x", func(*httpcore.Connection) {}).
		Build()

	_, ok := r.Find("POST", "/x")
	assert.False(t, ok)
}

func TestRegisterSameRouteTwiceReplacesHandler(t *testing.T) {
	r := NewBuilder().
		Register("GET", "/x", func(*httpcore.Connection) {}).
		Register("GET", "/x", func(*httpcore.Connection) {}).
		Build()

	_, ok := r.Find("GET", "/x")
	assert.True(t, ok)
	assert.Len(t, r.routes, 1)
}
