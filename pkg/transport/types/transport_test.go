package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportTypeString(t *testing.T) {
	assert.Equal(t, "stdio", TransportTypeStdio.String())
	assert.Equal(t, "sse", TransportTypeSSE.String())
	assert.Equal(t, "streamable-http", TransportTypeStreamableHTTP.String())
}

func TestParseTransportType(t *testing.T) {
	cases := []struct {
		in      string
		want    TransportType
		wantErr bool
	}{
		{"stdio", TransportTypeStdio, false},
		{"STDIO", TransportTypeStdio, false},
		{"sse", TransportTypeSSE, false},
		{"streamable-http", TransportTypeStreamableHTTP, false},
		{"STREAMABLE-HTTP", TransportTypeStreamableHTTP, false},
		{"bogus", "", true},
		{"", "", true},
	}
	for _, c := range cases {
		got, err := ParseTransportType(c.in)
		if c.wantErr {
			require.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, c.want, got)
	}
}

func TestTransportTypeRoundTrip(t *testing.T) {
	for _, tt := range []TransportType{TransportTypeStdio, TransportTypeSSE, TransportTypeStreamableHTTP} {
		parsed, err := ParseTransportType(tt.String())
		require.NoError(t, err)
		assert.Equal(t, tt, parsed)
	}
}
