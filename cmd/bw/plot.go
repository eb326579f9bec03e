// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"

	"github.com/akualab/bw"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func doPlot() {

	f, e := os.Open(*plotStats)
	bw.Fatal(e)
	vals, e := readStats(f)
	f.Close()
	bw.Fatal(e)
	p, e := histogram(vals, *plotBins)
	bw.Fatal(e)
	bw.Fatal(p.Save(6*vg.Inch, 4*vg.Inch, *plotOut))
	glog.Infof("wrote histogram of %d utterances to %s", len(vals), *plotOut)
}

func histogram(vals []float64, bins int) (*plot.Plot, error) {

	if len(vals) == 0 {
		return nil, errors.New("no accumulated utterances to plot")
	}
	p := plot.New()
	p.Title.Text = "Log-likelihood per frame"
	p.X.Label.Text = "log-likelihood / frame"
	p.Y.Label.Text = "utterances"

	h, e := plotter.NewHist(plotter.Values(vals), bins)
	if e != nil {
		return nil, e
	}
	p.Add(h)
	return p, nil
}
