// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/csv"
	"io"
	"io/ioutil"
	"os"
	"strconv"

	"github.com/akualab/bw"
	"github.com/akualab/bw/checkpoint"
	"github.com/akualab/bw/corpus"
	"github.com/akualab/bw/density"
	"github.com/akualab/bw/lattice"
	"github.com/akualab/bw/model"
	"github.com/akualab/bw/trainer"
	"github.com/cheggaaa/pb/v3"
	"github.com/golang/glog"
	"gopkg.in/yaml.v2"
)

var statsHeader = []string{"offset", "id", "frames", "active", "loglik", "loglik_per_frame", "duration_ms", "error"}

func doTrain() {

	cfg, e := bw.ReadConfig(*trainConfig)
	bw.Fatal(e)

	// Command flags overwrite config file params.
	optionalStringParam(*trainModelIn, &cfg.ModelIn)
	optionalStringParam(*trainControl, &cfg.ControlFile)
	optionalStringParam(*trainOutputDir, &cfg.OutputDir)
	if *trainViterbi {
		cfg.Viterbi = true
	}
	cfg.SetDefaults()
	bw.Fatal(cfg.Validate())
	glog.Infof("read configuration:\n%+v", cfg)

	inv, e := model.ReadFile(cfg.ModelIn)
	bw.Fatal(e)
	gauden, e := density.NewGauden(inv.Mean, inv.Var)
	bw.Fatal(e)
	var assigner lattice.Assigner
	if len(*trainDict) > 0 {
		dict, e := readDict(*trainDict)
		bw.Fatal(e)
		assigner = dict
	}
	var builder lattice.Builder = &lattice.ModelBuilder{Inv: inv, Assigner: assigner}
	if len(*trainFiller) > 0 {
		builder = &lattice.FillerBuilder{Inv: inv, Assigner: assigner, Filler: *trainFiller, Prob: *trainFillerP}
	}

	c, e := corpus.Open(cfg.ControlFile)
	bw.Fatal(e)
	store := checkpoint.NewStore(cfg.OutputDir, checkpoint.NewRetryPolicy(cfg))
	tr, e := trainer.New(cfg, inv, gauden, builder, store)
	bw.Fatal(e)

	if *trainResume {
		ok, e := tr.Resume(c)
		bw.Fatal(e)
		if !ok {
			glog.Infof("no checkpoint in %s, starting from the beginning", cfg.OutputDir)
		}
	}

	var sw *statsWriter
	if len(*trainStats) > 0 {
		sw, e = newStatsWriter(*trainStats, *trainResume)
		bw.Fatal(e)
	}
	var bar *pb.ProgressBar
	if *trainProgress {
		bar = pb.StartNew(c.Remaining())
	}
	tr.OnUtterance = func(st trainer.Stats) {
		if bar != nil {
			bar.Increment()
		}
		if sw != nil {
			sw.write(st)
		}
	}

	e = tr.Run(c)
	if bar != nil {
		bar.Finish()
	}
	if sw != nil {
		bw.Fatal(sw.close())
	}
	bw.Fatal(e)
	totals := tr.Totals()
	glog.Infof("accumulated %d utterances (%d skipped), %d frames, avg loglik/frame %.4f",
		totals.Utterances, totals.Skipped, totals.Frames, totals.AvgLogLik())
}

func optionalStringParam(flagValue string, param *string) {
	if len(flagValue) > 0 {
		*param = flagValue
	}
}

// readDict reads a YAML map from word to model names.
func readDict(fn string) (lattice.MapAssigner, error) {
	b, e := ioutil.ReadFile(fn)
	if e != nil {
		return nil, e
	}
	var dict lattice.MapAssigner
	if e = yaml.Unmarshal(b, &dict); e != nil {
		return nil, e
	}
	return dict, nil
}

type statsWriter struct {
	f *os.File
	w *csv.Writer
}

func newStatsWriter(fn string, appendRows bool) (*statsWriter, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendRows {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, e := os.OpenFile(fn, flags, 0644)
	if e != nil {
		return nil, e
	}
	sw := &statsWriter{f: f, w: csv.NewWriter(f)}
	if fi, e := f.Stat(); e == nil && fi.Size() == 0 {
		sw.w.Write(statsHeader)
	}
	return sw, nil
}

func (sw *statsWriter) write(st trainer.Stats) {
	var perFrame float64
	if st.Frames > 0 {
		perFrame = st.LogLik / float64(st.Frames)
	}
	errMsg := ""
	if st.Err != nil {
		errMsg = st.Err.Error()
	}
	sw.w.Write([]string{
		strconv.Itoa(st.Offset),
		st.ID,
		strconv.Itoa(st.Frames),
		strconv.Itoa(st.Active),
		strconv.FormatFloat(st.LogLik, 'g', -1, 64),
		strconv.FormatFloat(perFrame, 'g', -1, 64),
		strconv.FormatInt(st.Duration.Milliseconds(), 10),
		errMsg,
	})
}

func (sw *statsWriter) close() error {
	sw.w.Flush()
	if e := sw.w.Error(); e != nil {
		sw.f.Close()
		return e
	}
	return sw.f.Close()
}

// readStats returns the per-frame log-likelihoods of the accumulated utterances.
func readStats(r io.Reader) ([]float64, error) {
	rows, e := csv.NewReader(r).ReadAll()
	if e != nil {
		return nil, e
	}
	var vals []float64
	for i, row := range rows {
		if i == 0 || len(row) != len(statsHeader) || len(row[7]) > 0 {
			continue
		}
		v, e := strconv.ParseFloat(row[5], 64)
		if e != nil {
			return nil, e
		}
		vals = append(vals, v)
	}
	return vals, nil
}
