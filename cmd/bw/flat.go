// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"github.com/akualab/bw"
	"github.com/akualab/bw/model"
	"github.com/golang/glog"
)

func doFlat() {

	inv := model.Flat(model.FlatSpec{
		Models:         *flatModels,
		CD:             *flatCD,
		NumStates:      *flatStates,
		NumStreams:     len(*flatDims),
		VectorLength:   *flatDims,
		NumDensities:   *flatDensities,
		SemiContinuous: *flatSemi,
	})
	bw.Fatal(inv.Validate())
	bw.Fatal(inv.WriteFile(*flatOut))
	glog.Infof("wrote inventory with %d models, %d senones, %d codebooks to %s",
		len(inv.Models), inv.NumMixW(), inv.NumCodebooks(), *flatOut)
}
