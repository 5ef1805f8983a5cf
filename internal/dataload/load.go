// Package dataload reads the study dataset into a cohort.Frame.  Two input
// layouts are supported: a CSV file with a header row, and a directory of
// compressed binary columns (bcols), optionally sharded into buckets.
package dataload

import (
	"fmt"
	"math"
	"os"

	"github.com/kshedden/dstream/dstream"
	"github.com/kshedden/gocols/config"
	"go.uber.org/zap"

	"github.com/brookluers/kmreport/internal/cohort"
)

// csv chunk size; the frame materializes everything anyway.
const csize = 100000

// CSV loads a CSV file, parsing the named columns as float64 and string
// respectively.  Numeric cells that do not parse become missing values.
func CSV(path string, floatVars, stringVars []string, lg *zap.Logger) (*cohort.Frame, error) {

	fid, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataload: %w", err)
	}
	defer fid.Close()

	ds := dstream.FromCSV(fid).SetFloatVars(floatVars).SetStringVars(stringVars).SetChunkSize(csize).HasHeader().Done()

	f, err := cohort.FromDstream(ds)
	if err != nil {
		return nil, fmt.Errorf("dataload: reading %s: %w", path, err)
	}

	lg.Info("loaded csv dataset",
		zap.String("path", path),
		zap.Int("records", f.NumRec()),
		zap.Int("columns", len(f.Names())))

	return f, nil
}

// BCols loads a directory of binary column files.  When include is
// non-empty only those columns are read.
func BCols(dir string, include []string, lg *zap.Logger) (*cohort.Frame, error) {

	br := dstream.NewBCols(dir, csize)
	if len(include) > 0 {
		br = br.Include(include)
	}
	ds := br.Done()

	f, err := cohort.FromDstream(ds)
	if err != nil {
		return nil, fmt.Errorf("dataload: reading %s: %w", dir, err)
	}

	lg.Info("loaded bcols dataset",
		zap.String("dir", dir),
		zap.Int("records", f.NumRec()),
		zap.Int("columns", len(f.Names())))

	return f, nil
}

// Buckets loads a bucketed bcols directory, concatenating the buckets in
// order into one frame.
func Buckets(dir string, include []string, lg *zap.Logger) (*cohort.Frame, error) {

	conf := config.GetConfig(dir)

	var f *cohort.Frame
	for k := 0; k < int(conf.NumBuckets); k++ {
		bp := config.BucketPath(k, dir)
		g, err := BCols(bp, include, lg)
		if err != nil {
			return nil, fmt.Errorf("dataload: bucket %d: %w", k, err)
		}
		if f == nil {
			f = g
			continue
		}
		if err := f.Append(g); err != nil {
			return nil, fmt.Errorf("dataload: bucket %d: %w", k, err)
		}
	}
	if f == nil {
		return nil, fmt.Errorf("dataload: %s has no buckets", dir)
	}

	lg.Info("loaded bucketed dataset",
		zap.String("dir", dir),
		zap.Int("buckets", int(conf.NumBuckets)),
		zap.Int("records", f.NumRec()))

	return f, nil
}

// RecodeStr derives a numeric column dst from the categorical column src
// using the given value map.  Unmapped and missing levels become missing.
func RecodeStr(f *cohort.Frame, src, dst string, mapping map[string]float64) (*cohort.Frame, error) {

	col, ok := f.Str(src)
	if !ok {
		return nil, fmt.Errorf("dataload: recode source %q is not a categorical column", src)
	}

	v := make([]float64, len(col))
	for i, s := range col {
		x, ok := mapping[s]
		if !ok {
			x = math.NaN()
		}
		v[i] = x
	}

	g := f.Clone()
	if err := g.AddFloat(dst, v); err != nil {
		return nil, fmt.Errorf("dataload: %w", err)
	}
	return g, nil
}

// Describe logs per-column spread at debug level for the numeric columns.
func Describe(f *cohort.Frame, lg *zap.Logger) error {

	var num []string
	for _, na := range f.Names() {
		if f.IsFloat(na) {
			num = append(num, na)
		}
	}
	if len(num) == 0 {
		return nil
	}

	ds, err := f.ToDstream(num...)
	if err != nil {
		return err
	}
	ds.Reset()

	for name, s := range dstream.Describe(ds) {
		lg.Debug("column summary",
			zap.String("column", name),
			zap.Float64("sd", s.SD))
	}

	return nil
}
