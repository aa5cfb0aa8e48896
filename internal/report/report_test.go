package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wearlab-data/motion.report/internal/wearable/summary"
)

func testRows() []summary.WindowSummary {
	return []summary.WindowSummary{
		{Pair: 0, Start: 0, Stop: 99, N: 100, Mean: 1.02, Std: 0.1, P95: 1.35},
		{Pair: 1, Start: 100, Stop: 199, N: 100, Mean: 0.97, Std: 0.05, P95: 1.1},
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "subject01.cwa", testRows()))

	html := buf.String()
	assert.Contains(t, html, "echarts")
	assert.Contains(t, html, "subject01.cwa")
	assert.Contains(t, html, "w0")
	assert.Contains(t, html, "w1")
	assert.Contains(t, html, "95th percentile")
}

func TestRender_NoRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, "empty session", nil))
	assert.Contains(t, buf.String(), "empty session")
}

func TestRenderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, RenderFile(path, "subject01.cwa", testRows()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "echarts")
}
