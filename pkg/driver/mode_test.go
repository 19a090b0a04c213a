package driver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	cases := map[string]Mode{
		"process":  Process,
		"external": External,
		"internal": Internal,
	}
	for in, want := range cases {
		got, err := ParseMode(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestParseMode_Unknown(t *testing.T) {
	_, err := ParseMode("bogus")
	require.Error(t, err)
}
