package urlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodePercentEscapes(t *testing.T) {
	assert.Equal(t, "my file", Decode("my%20file"))
	assert.Equal(t, "foo&bar", Decode("foo%26bar"))
}

func TestDecodeLeavesPlusLiteral(t *testing.T) {
	assert.Equal(t, "a+b", Decode("a+b"))
}

func TestDecodeFormTreatsPlusAsSpace(t *testing.T) {
	assert.Equal(t, "a b", DecodeForm("a+b"))
}

func TestDecodeFallsBackOnMalformedEscape(t *testing.T) {
	assert.Equal(t, "100%", Decode("100%"))
}

func TestSplitParamsBasic(t *testing.T) {
	got := map[string]string{}
	SplitParams("username=admin&password=123456", DecodeForm, func(k, v string) bool {
		got[k] = v
		return true
	})
	assert.Equal(t, "admin", got["username"])
	assert.Equal(t, "123456", got["password"])
}

func TestSplitParamsStopsAtCallerBound(t *testing.T) {
	var seen []string
	SplitParams("a=1&b=2&c=3", DecodeForm, func(k, v string) bool {
		seen = append(seen, k)
		return len(seen) < 2
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}

func TestSplitParamsEmptyIsNoop(t *testing.T) {
	called := false
	SplitParams("", DecodeForm, func(string, string) bool {
		called = true
		return true
	})
	assert.False(t, called)
}

func TestSplitParamsKeyWithoutValue(t *testing.T) {
	got := map[string]string{}
	SplitParams("flag&key=val", DecodeForm, func(k, v string) bool {
		got[k] = v
		return true
	})
	value, ok := got["flag"]
	assert.True(t, ok)
	assert.Equal(t, "", value)
}
