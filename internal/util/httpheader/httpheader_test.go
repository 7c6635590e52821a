package httpheader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseContentRange(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		wantStart int64
		wantEnd   int64
		wantTotal int64
		wantErr   bool
	}{
		{name: "full", header: "bytes 0-99/100", wantStart: 0, wantEnd: 99, wantTotal: 100},
		{name: "resumed", header: "bytes 500-999/1000", wantStart: 500, wantEnd: 999, wantTotal: 1000},
		{name: "unknown total", header: "bytes 10-19/*", wantStart: 10, wantEnd: 19, wantTotal: -1},
		{name: "missing total", header: "bytes 0-99", wantErr: true},
		{name: "missing end", header: "bytes 0/100", wantErr: true},
		{name: "bad start", header: "bytes x-9/10", wantErr: true},
		{name: "unsatisfied", header: "bytes */100", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, total, err := ParseContentRange(tt.header)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestCleanETag(t *testing.T) {
	assert.Equal(t, "abc", CleanETag(`"abc"`))
	assert.Equal(t, "abc", CleanETag(`W/"abc"`))
	assert.Equal(t, "abc", CleanETag(`abc`))
	assert.True(t, IsWeakETag(`W/"abc"`))
	assert.False(t, IsWeakETag(`"abc"`))
}
