// Package export writes decoded streams to columnar files for downstream
// analysis tooling.
package export

import (
	"math"
	"os"
	"time"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/wearlab-data/motion.report/internal/wearable"
)

type sampleRow struct {
	TSUTCISO string  `parquet:"name=ts_utc_iso, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	EpochS   float64 `parquet:"name=epoch_s, type=DOUBLE"`
	AccXG    float64 `parquet:"name=acc_x_g, type=DOUBLE"`
	AccYG    float64 `parquet:"name=acc_y_g, type=DOUBLE"`
	AccZG    float64 `parquet:"name=acc_z_g, type=DOUBLE"`
	TempC    float64 `parquet:"name=temp_c, type=DOUBLE"`
	Light    float64 `parquet:"name=light, type=DOUBLE"`
	Lux      float64 `parquet:"name=lux, type=DOUBLE"`
}

// MarshalParquet serialises a decoded stream to parquet bytes, one row per
// sample. Six-axis streams export the accelerometer channels (the last
// three); channels the format lacks are written as zero.
func MarshalParquet(st *wearable.Stream) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, new(sampleRow), 4)
	if err != nil {
		return nil, err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	accOffset := 0
	if st.Axes > 3 {
		accOffset = st.Axes - 3
	}
	for i := 0; i < st.Len(); i++ {
		frame := st.Frame(i)
		row := sampleRow{
			TSUTCISO: isoTimestamp(st.TS[i]),
			EpochS:   st.TS[i],
			AccXG:    frame[accOffset],
			AccYG:    frame[accOffset+1],
			AccZG:    frame[accOffset+2],
		}
		if st.Temp != nil {
			row.TempC = st.Temp[i]
		}
		if st.Light != nil {
			row.Light = st.Light[i]
		}
		if st.Lux != nil {
			row.Lux = st.Lux[i]
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, err
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}

// isoTimestamp formats epoch seconds as UTC ISO 8601 with millisecond
// precision, keeping the sub-second part the sampling interval carries.
func isoTimestamp(epoch float64) string {
	sec := math.Floor(epoch)
	nsec := int64(math.Round((epoch - sec) * 1e9))
	return time.Unix(int64(sec), nsec).UTC().Format("2006-01-02T15:04:05.000Z")
}

// WriteParquetFile writes the stream to a parquet file at path.
func WriteParquetFile(path string, st *wearable.Stream) error {
	data, err := MarshalParquet(st)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
