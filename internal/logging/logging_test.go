package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	testCases := []struct {
		name      string
		verbose   bool
		format    string
		wantDebug bool
		wantJSON  bool
	}{
		{name: "quiet text", verbose: false, format: "text"},
		{name: "verbose text", verbose: true, format: "text", wantDebug: true},
		{name: "verbose json", verbose: true, format: "JSON", wantDebug: true, wantJSON: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(&buf, tc.verbose, tc.format)

			logger.Debug("Fetching stargazer page", "page", 3)
			if !tc.wantDebug {
				assert.Empty(t, buf.String())
			} else {
				assert.Contains(t, buf.String(), "Fetching stargazer page")
			}

			buf.Reset()
			logger.Warn("Could not read stored token")
			require.NotEmpty(t, buf.String())
			if tc.wantJSON {
				var line map[string]any
				require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
				assert.Equal(t, "WARN", line["level"])
			} else {
				assert.Contains(t, buf.String(), "level=WARN")
			}
		})
	}
}
