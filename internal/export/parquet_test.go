package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wearlab-data/motion.report/internal/wearable"
)

func testStream(t *testing.T) *wearable.Stream {
	t.Helper()
	st := wearable.NewStream(3, 3, 1, wearable.WithTemp|wearable.WithLight)
	for i := 0; i < 3; i++ {
		err := st.Push(1468152000+float64(i)*0.01, []float64{0.01 * float64(i), 0, 1}, 22.5, 120, 0)
		require.NoError(t, err)
	}
	st.Truncate()
	return st
}

func TestMarshalParquet(t *testing.T) {
	data, err := MarshalParquet(testStream(t))
	require.NoError(t, err)
	require.NotEmpty(t, data)
	// Parquet files open and close with the magic "PAR1".
	assert.Equal(t, "PAR1", string(data[:4]))
	assert.Equal(t, "PAR1", string(data[len(data)-4:]))
}

func TestMarshalParquet_EmptyStream(t *testing.T) {
	st := wearable.NewStream(0, 3, 1, 0)
	st.Truncate()
	data, err := MarshalParquet(st)
	require.NoError(t, err)
	assert.NotEmpty(t, data, "an empty stream still yields a valid file with schema metadata")
}

func TestISOTimestamp(t *testing.T) {
	cases := []struct {
		epoch float64
		want  string
	}{
		{1468152000, "2016-07-10T12:00:00.000Z"},
		{1468152000.25, "2016-07-10T12:00:00.250Z"},
		{1468152000.5, "2016-07-10T12:00:00.500Z"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isoTimestamp(tc.epoch), "epoch %v", tc.epoch)
	}
}

func TestWriteParquetFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.parquet")
	require.NoError(t, WriteParquetFile(path, testStream(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PAR1", string(data[:4]))
}
