// Command motion-report decodes a wearable IMU recording (Axivity CWA,
// GeneActiv BIN or ActiGraph GT3X) into a uniform sample stream with day
// window indices, and optionally stores summaries, exports parquet or
// renders an HTML activity report.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wearlab-data/motion.report/internal/export"
	"github.com/wearlab-data/motion.report/internal/monitoring"
	"github.com/wearlab-data/motion.report/internal/report"
	"github.com/wearlab-data/motion.report/internal/version"
	"github.com/wearlab-data/motion.report/internal/weardb"
	"github.com/wearlab-data/motion.report/internal/wearable"
	"github.com/wearlab-data/motion.report/internal/wearable/actigraph"
	"github.com/wearlab-data/motion.report/internal/wearable/axivity"
	"github.com/wearlab-data/motion.report/internal/wearable/geneactiv"
	"github.com/wearlab-data/motion.report/internal/wearable/summary"
)

var (
	inPath      = flag.String("in", "", "input recording (.cwa, .bin or .gt3x)")
	format      = flag.String("format", "", "input format: cwa, bin or gt3x (default: from file extension)")
	windowsFlag = flag.String("windows", "0:24", "comma-separated base:period hour windows, e.g. 0:24,8:12")
	maxDays     = flag.Int("max-days", wearable.MaxDays, "maximum number of days to index")
	configPath  = flag.String("config", "", "optional session config JSON (overrides -windows and -max-days)")
	dbPath      = flag.String("db", "", "optional sqlite database to store the session summary in")
	parquetPath = flag.String("parquet", "", "optional parquet output path for the decoded samples")
	reportPath  = flag.String("report", "", "optional HTML activity report output path")
	quiet       = flag.Bool("quiet", false, "suppress per-unit skip diagnostics")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Printf("motion-report %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if *quiet {
		monitoring.SetLogger(nil)
	}
	if *inPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	spec, days, err := sessionSettings()
	if err != nil {
		log.Fatalf("invalid session settings: %v", err)
	}

	f := *format
	if f == "" {
		f = strings.TrimPrefix(strings.ToLower(filepath.Ext(*inPath)), ".")
	}

	var result *decodeResult
	switch f {
	case "cwa":
		result, err = decodeCWA(*inPath, spec, days)
	case "bin":
		result, err = decodeBIN(*inPath, spec, days)
	case "gt3x":
		result, err = decodeGT3X(*inPath, spec, days)
	default:
		log.Fatalf("unknown format %q (want cwa, bin or gt3x)", f)
	}
	if err != nil {
		log.Fatalf("decode %s: %v", *inPath, err)
	}

	st := result.stream
	st.Truncate()
	log.Printf("decoded %d samples across %d days (%d window pairs, %d bad %s)",
		st.Len(), result.nDays, st.DayPairs(), result.badUnits, result.unitName)

	rows := summary.Summarize(st)

	if *dbPath != "" {
		if err := storeSession(result, rows); err != nil {
			log.Fatalf("store session: %v", err)
		}
	}
	if *parquetPath != "" {
		if err := export.WriteParquetFile(*parquetPath, st); err != nil {
			log.Fatalf("write parquet: %v", err)
		}
		log.Printf("wrote %s", *parquetPath)
	}
	if *reportPath != "" {
		title := fmt.Sprintf("%s (%s)", filepath.Base(*inPath), f)
		if err := report.RenderFile(*reportPath, title, rows); err != nil {
			log.Fatalf("write report: %v", err)
		}
		log.Printf("wrote %s", *reportPath)
	}
}

type decodeResult struct {
	stream    *wearable.Stream
	format    string
	deviceID  string
	frequency float64
	badUnits  int
	unitName  string
	nDays     int
}

func sessionSettings() (wearable.WindowSpec, int, error) {
	if *configPath != "" {
		cfg, err := wearable.LoadSessionConfig(*configPath)
		if err != nil {
			return nil, 0, err
		}
		if cfg.Debug != nil && *cfg.Debug {
			// Config debug wins over -quiet.
			monitoring.SetLogger(log.Printf)
		}
		return cfg.Windows(), *cfg.MaxDays, nil
	}
	spec, err := parseWindows(*windowsFlag)
	if err != nil {
		return nil, 0, err
	}
	return spec, *maxDays, spec.Validate()
}

func parseWindows(s string) (wearable.WindowSpec, error) {
	var spec wearable.WindowSpec
	for _, part := range strings.Split(s, ",") {
		base, period, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return nil, fmt.Errorf("window %q: want base:period", part)
		}
		b, err := strconv.Atoi(base)
		if err != nil {
			return nil, fmt.Errorf("window %q: %v", part, err)
		}
		p, err := strconv.Atoi(period)
		if err != nil {
			return nil, fmt.Errorf("window %q: %v", part, err)
		}
		spec = append(spec, wearable.Window{BaseHour: b, PeriodHours: p})
	}
	return spec, nil
}

func decodeCWA(path string, spec wearable.WindowSpec, days int) (*decodeResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	nBlocks := int((fi.Size() - axivity.HeaderSize) / axivity.BlockSize)

	header := make([]byte, axivity.HeaderSize)
	if _, err := io.ReadFull(f, header); err != nil {
		return nil, err
	}
	info, err := axivity.ReadHeader(header, nBlocks)
	if err != nil {
		return nil, err
	}

	st := wearable.NewStream(info.MaxSamples(), info.Axes, len(spec), wearable.WithTemp)
	block := make([]byte, axivity.BlockSize)
	for b := 0; b < nBlocks; b++ {
		if _, err := io.ReadFull(f, block); err != nil {
			break
		}
		if err := axivity.ReadBlock(info, block, st); err != nil {
			if errors.Is(err, wearable.ErrStreamFull) {
				return nil, err
			}
			monitoring.Logf("block %d skipped: %v", b, err)
		}
	}
	nDays, err := axivity.Finalize(info, st, spec, days)
	if err != nil {
		return nil, err
	}
	return &decodeResult{
		stream:    st,
		format:    "cwa",
		deviceID:  strconv.FormatUint(uint64(info.DeviceID), 10),
		frequency: info.Frequency,
		badUnits:  info.BadBlocks,
		unitName:  "blocks",
		nDays:     nDays,
	}, nil
}

func decodeBIN(path string, spec wearable.WindowSpec, days int) (*decodeResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	info, err := geneactiv.ReadHeader(r)
	if err != nil {
		return nil, err
	}

	st := wearable.NewStream(info.MaxSamples(), 3, len(spec), wearable.WithTemp|wearable.WithLight)
readPages:
	for p := 0; p < info.NPages; p++ {
		err := geneactiv.ReadPage(r, info, st)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			break readPages
		case errors.Is(err, geneactiv.ErrBlockFSWarn):
			monitoring.Logf("page %d: %v", p, err)
		case errors.Is(err, geneactiv.ErrBlockFS), errors.Is(err, wearable.ErrStreamFull):
			return nil, err
		default:
			monitoring.Logf("page %d skipped: %v", p, err)
		}
	}
	nDays, err := geneactiv.Finalize(info, st, spec, days)
	if err != nil {
		return nil, err
	}
	return &decodeResult{
		stream:    st,
		format:    "bin",
		frequency: info.Frequency,
		badUnits:  info.FSErrCount,
		unitName:  "pages",
		nDays:     nDays,
	}, nil
}

func decodeGT3X(path string, spec wearable.WindowSpec, days int) (*decodeResult, error) {
	ar, err := actigraph.OpenZip(path)
	if err != nil {
		return nil, err
	}
	defer ar.Close()

	dec, err := actigraph.NewDecoder(ar, spec, days)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	st := wearable.NewStream(dec.Info.MaxSamples(), 3, len(spec), wearable.WithLux)
	for {
		if err := dec.ReadRecord(st); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
	}
	nDays := dec.Finalize(st)
	return &decodeResult{
		stream:    st,
		format:    "gt3x",
		deviceID:  dec.Info.Serial,
		frequency: float64(dec.Info.SampleRate),
		badUnits:  dec.BadRecords,
		unitName:  "records",
		nDays:     nDays,
	}, nil
}

func storeSession(res *decodeResult, rows []summary.WindowSummary) error {
	db, err := weardb.Open(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.InsertSession(&weardb.Session{
		Format:    res.format,
		Path:      *inPath,
		DeviceID:  res.deviceID,
		Frequency: res.frequency,
		Samples:   int64(res.stream.Len()),
		BadUnits:  int64(res.badUnits),
		NDays:     int64(res.nDays),
	})
	if err != nil {
		return err
	}
	if err := db.InsertWindowSummaries(id, rows); err != nil {
		return err
	}
	log.Printf("stored session %s in %s", id, *dbPath)
	return nil
}
