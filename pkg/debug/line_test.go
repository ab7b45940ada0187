package debug_test

import (
	"testing"
	"time"

	"github.com/aretw0/tabstate/pkg/debug"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    debug.Line
		wantErr bool
	}{
		{
			name:  "start",
			input: "1b4e28ba-2fa1-11d2-883f-0016d3cca427 - START - add_tab\n",
			want:  debug.Line{ID: "1b4e28ba-2fa1-11d2-883f-0016d3cca427", Phase: debug.PhaseStart, Kind: "add_tab"},
		},
		{
			name:  "end",
			input: "1b4e28ba-2fa1-11d2-883f-0016d3cca427 - END [1200 ns]",
			want:  debug.Line{ID: "1b4e28ba-2fa1-11d2-883f-0016d3cca427", Phase: debug.PhaseEnd, Elapsed: 1200 * time.Nanosecond},
		},
		{name: "empty", input: "", wantErr: true},
		{name: "no id", input: " - START - add_tab", wantErr: true},
		{name: "no kind", input: "x - START - ", wantErr: true},
		{name: "bad elapsed", input: "x - END [soon ns]", wantErr: true},
		{name: "missing unit", input: "x - END [12]", wantErr: true},
		{name: "unknown phase", input: "x - MIDDLE - add_tab", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := debug.ParseLine(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, debug.ErrMalformedLine)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLine_RoundTrip(t *testing.T) {
	start := debug.FormatStart("abc", "select_tab")
	assert.Equal(t, "abc - START - select_tab", start)

	end := debug.FormatEnd("abc", 42*time.Microsecond)
	assert.Equal(t, "abc - END [42000 ns]", end)

	parsed, err := debug.ParseLine(end)
	require.NoError(t, err)
	assert.Equal(t, end, parsed.String())
}
