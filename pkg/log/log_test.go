package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitJSONOutputRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})

	WithComponent("test").Info().Msg("should be suppressed")
	WithComponent("test").Warn().Msg("should appear")

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "should appear", line["message"])
	require.Equal(t, "test", line["component"])
}

func TestComponentHelpersTagTheirField(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})

	WithTxID(42).Debug().Msg("tx")
	WithQueryID("q-1").Debug().Msg("query")
	WithProcedure("gds.pageRank").Debug().Msg("procedure")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)

	var txLine, queryLine, procLine map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &txLine))
	require.NoError(t, json.Unmarshal(lines[1], &queryLine))
	require.NoError(t, json.Unmarshal(lines[2], &procLine))

	require.Equal(t, float64(42), txLine["tx_id"])
	require.Equal(t, "q-1", queryLine["query_id"])
	require.Equal(t, "gds.pageRank", procLine["procedure"])
}
