// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"flag"
	"io/ioutil"
	"os"
	osuser "os/user"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/akualab/bw"
	"github.com/golang/glog"
	"gopkg.in/alecthomas/kingpin.v2"
)

const (
	appName    = "bw"
	appVersion = "0.1"
)

var (
	props  *Properties
	logDir *string
)

var (
	app         = kingpin.New(appName, "Baum-Welch accumulator for HMM acoustic models.")
	logToStderr = app.Flag("log-stderr", "Logs are written to standard error instead of files.").Default("true").Bool()
	vLevel      = app.Flag("log-level", "Enable V-leveled logging at the specified level.").Default("0").Short('v').String()

	train          = app.Command("train", "Accumulate reestimation counts over a corpus.")
	trainConfig    = train.Flag("config", "Training config file (YAML).").Short('c').Required().String()
	trainModelIn   = train.Flag("model-in", "Input model inventory, overrides config.").Short('i').String()
	trainControl   = train.Flag("control", "Corpus control file, overrides config.").Short('d').String()
	trainOutputDir = train.Flag("output-dir", "Accumulator output dir, overrides config.").Short('o').String()
	trainDict      = train.Flag("dict", "Dictionary mapping transcript words to model names (YAML).").String()
	trainFiller    = train.Flag("filler", "Optional filler model between words, such as silence.").String()
	trainFillerP   = train.Flag("filler-prob", "Probability of visiting the filler after a word.").Default("0.2").Float64()
	trainViterbi   = train.Flag("viterbi", "Accumulate along the best path only.").Bool()
	trainResume    = train.Flag("resume", "Resume from the checkpoint in the output dir.").Bool()
	trainStats     = train.Flag("stats", "Write per-utterance statistics to this CSV file.").String()
	trainProgress  = train.Flag("progress", "Show a progress bar.").Default("true").Bool()

	flat          = app.Command("flat", "Create a model inventory with flat parameters.")
	flatModels    = flat.Flag("models", "Context independent model names.").Required().Strings()
	flatCD        = flat.Flag("cd", "Context dependent model as name=ci_name.").StringMap()
	flatStates    = flat.Flag("states", "Emitting states per model.").Default("3").Int()
	flatDims      = flat.Flag("dim", "Vector length of each feature stream.").Default("13").Ints()
	flatDensities = flat.Flag("densities", "Gaussians per mixture.").Default("4").Int()
	flatSemi      = flat.Flag("semi", "Share a single codebook.").Bool()
	flatOut       = flat.Flag("out", "Output inventory file.").Short('o').Required().String()

	plotCmd   = app.Command("plot", "Plot a histogram of per-frame log-likelihoods.")
	plotStats = plotCmd.Flag("stats", "Statistics CSV written by train.").Required().String()
	plotOut   = plotCmd.Flag("out", "Output image file (png, svg, pdf).").Short('o').Default("loglik.png").String()
	plotBins  = plotCmd.Flag("bins", "Number of histogram bins.").Default("40").Int()
)

// Properties of bw.
type Properties struct {
	Workspace string `toml:"workspace_dir"`
	LogDir    string `toml:"log_dir"`
}

func init() {
	currDir, e1 := os.Getwd()
	bw.Fatal(e1)
	propPath := currDir
	u, e2 := osuser.Current()
	if e2 == nil {
		propPath = filepath.Join(u.HomeDir, ".config", "bw")
	}
	propPath = filepath.Join(propPath, "properties.toml")
	propEnvVar := os.Getenv("BW_PROPERTIES")
	if len(propEnvVar) > 0 {
		propPath = propEnvVar
	}

	// Read toml properties file from propPath.
	props = new(Properties)
	dat, e3 := ioutil.ReadFile(propPath)
	if e3 == nil {
		_, e4 := toml.Decode(string(dat), props)
		bw.Fatal(e4)
	}
	defaultLogDir := filepath.Join(currDir, "log")
	if len(props.LogDir) > 0 {
		defaultLogDir = props.LogDir
	}
	logDir = app.Flag("log", "Log output dir.").Default(defaultLogDir).String()
}

func main() {
	app.Version(appVersion)
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))
	initGlog()
	defer glog.Flush()
	printAppValues()
	checkDir(props.Workspace)

	switch cmd {
	case train.FullCommand():
		glog.V(3).Info("start train command")
		doTrain()
	case flat.FullCommand():
		glog.V(3).Info("start flat command")
		doFlat()
	case plotCmd.FullCommand():
		glog.V(3).Info("start plot command")
		doPlot()
	default:
		app.Usage(os.Args[1:])
	}
}

// Creates dir if it doesn't exist.
func checkDir(path string) {

	if len(path) == 0 {
		return
	}
	e := os.MkdirAll(path, 0755)
	if e != nil {
		glog.Fatal(e)
	}
}

func initGlog() {

	checkDir(*logDir)
	if *logToStderr {
		flag.Set("alsologtostderr", "true")
	}
	flag.Set("v", *vLevel)
	flag.Set("log_dir", *logDir)
}

func printAppValues() {
	glog.Info("app properties: ", *props)
	glog.Info("app version: ", appVersion)
	glog.Info("app log to std err: ", *logToStderr)
	glog.Info("app log level: ", *vLevel)
	glog.Info("app log dir: ", *logDir)
}
