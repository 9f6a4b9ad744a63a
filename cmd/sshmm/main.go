// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command sshmm trains sequence-structure motif models of RNA binding
// proteins.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	osuser "os/user"
	"path/filepath"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang/glog"
	sshmm "github.com/phychaos/ssHMM"
	"github.com/phychaos/ssHMM/batch"
	"github.com/phychaos/ssHMM/train"
	"gopkg.in/alecthomas/kingpin.v2"
)

const (
	appName    = "sshmm"
	appVersion = "0.1"
)

// Exit codes.
const (
	exitOK     = 0
	exitFail   = 1
	exitConfig = 2
	exitInput  = 3
)

var (
	props  *Properties
	logDir *string
)

var (
	app         = kingpin.New(appName, "Sequence-structure hidden Markov models of RNA binding motifs.")
	logToStderr = app.Flag("log-stderr", "Logs are written to standard error instead of files.").Default("true").Bool()
	vLevel      = app.Flag("log-level", "Enable V-leveled logging at the specified level.").Default("0").Short('v').String()

	trainCmd     = app.Command("train", "Train a motif model on a sequence/structure dataset.")
	trainConfig  = trainCmd.Flag("config", "Yaml config file.").Short('c').String()
	trainSeq     = trainCmd.Flag("seq", "Sequence FASTA file.").String()
	trainStruct  = trainCmd.Flag("struct", "Structure FASTA file.").String()
	trainOut     = trainCmd.Flag("out", "Output dir.").Short('o').String()
	trainName    = trainCmd.Flag("name", "Name of the run.").String()
	trainModelIn = trainCmd.Flag("model-in", "Start from this model instead of random params.").String()
	overrides    = trainOverrides(trainCmd)

	batchCmd    = app.Command("batch", "Train one model per dataset listed in the config batch section.")
	batchConfig = batchCmd.Flag("config", "Yaml config file.").Short('c').Required().ExistingFile()
	batchJobs   = batchCmd.Flag("jobs", "Number of concurrent training runs.").Default("1").Int()

	alignCmd    = app.Command("align", "Print the Viterbi alignment of every observation.")
	alignModel  = alignCmd.Flag("model", "Model file.").Short('m').Required().ExistingFile()
	alignSeq    = alignCmd.Flag("seq", "Sequence FASTA file.").Required().ExistingFile()
	alignStruct = alignCmd.Flag("struct", "Structure FASTA file.").Required().ExistingFile()
	alignBest   = alignCmd.Flag("only-best-shape", "Keep only the best structure candidate.").Bool()
	alignMask   = alignCmd.Flag("viewpoint-mask", "Restrict the motif to the uppercase core.").Default("true").Bool()

	scoreCmd    = app.Command("score", "Print the log likelihood and motif start of every observation.")
	scoreModel  = scoreCmd.Flag("model", "Model file.").Short('m').Required().ExistingFile()
	scoreSeq    = scoreCmd.Flag("seq", "Sequence FASTA file.").Required().ExistingFile()
	scoreStruct = scoreCmd.Flag("struct", "Structure FASTA file.").Required().ExistingFile()
	scoreOut    = scoreCmd.Flag("score-file", "Output file, stdout when empty.").Short('t').String()

	randCmd     = app.Command("rand", "Generate random sequence/structure records.")
	randModel   = randCmd.Flag("model", "Sample from this model.").Short('m').String()
	randMotif   = randCmd.Flag("motif-seq", "Plant this motif sequence instead of sampling from a model.").String()
	randMotifSt = randCmd.Flag("motif-struct", "Structure of the planted motif.").String()
	randAlpha   = randCmd.Flag("structure-alphabet", "Structure alphabet of planted records.").Default(sshmm.Contexts).Enum(sshmm.Contexts, sshmm.DotBracket)
	randNum     = randCmd.Flag("num", "Number of records.").Default("100").Int()
	randLength  = randCmd.Flag("length", "Record length.").Default("20").Int()
	randSeed    = randCmd.Flag("seed", "Seed for random number generator.").Default("0").Int64()
	randSeqOut  = randCmd.Flag("seq-out", "Sequence FASTA output file.").Required().String()
	randStOut   = randCmd.Flag("struct-out", "Structure FASTA output file.").Required().String()

	graphCmd   = app.Command("graph", "Export a model graph for rendering.")
	graphModel = graphCmd.Flag("model", "Model file.").Short('m').Required().ExistingFile()
	graphOut   = graphCmd.Flag("out", "Yaml output file.").Short('o').Required().String()
	graphMax   = graphCmd.Flag("max-symbols", "Number of emission symbols per state.").Default("5").Int()
)

// Properties of sshmm.
type Properties struct {
	Workspace string `toml:"workspace_dir"`
	LogDir    string `toml:"log_dir"`
}

func init() {
	currDir, e1 := os.Getwd()
	sshmm.Fatal(e1)
	propPath := currDir
	u, e2 := osuser.Current()
	if e2 == nil {
		propPath = filepath.Join(u.HomeDir, ".config", appName)
	}
	propPath = filepath.Join(propPath, "properties.toml")
	propEnvVar := os.Getenv("SSHMM_PROPERTIES")
	if len(propEnvVar) > 0 {
		propPath = propEnvVar
	}

	// Read toml config file from propPath.
	props = new(Properties)
	dat, e3 := ioutil.ReadFile(propPath)
	if e3 == nil {
		_, e4 := toml.Decode(string(dat), props)
		sshmm.Fatal(e4)
	} else {
		glog.V(2).Infof("unable to read properties file - %v", e3)
	}
	defaultLogDir := filepath.Join(currDir, "log")
	if len(props.LogDir) > 0 {
		defaultLogDir = props.LogDir
	}
	logDir = app.Flag("log", "Log output dir.").Default(defaultLogDir).String()
}

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	app.Version(appVersion)
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))
	initGlog()
	printAppValues()
	checkDir(props.Workspace)

	var err error
	switch cmd {
	case trainCmd.FullCommand():
		glog.V(3).Info("start train command")
		err = doTrain()
	case batchCmd.FullCommand():
		glog.V(3).Info("start batch command")
		err = doBatch()
	case alignCmd.FullCommand():
		glog.V(3).Info("start align command")
		err = doAlign()
	case scoreCmd.FullCommand():
		glog.V(3).Info("start score command")
		err = doScore()
	case randCmd.FullCommand():
		glog.V(3).Info("start rand command")
		err = doRand()
	case graphCmd.FullCommand():
		glog.V(3).Info("start graph command")
		err = doGraph()
	}
	code := exitCode(err)
	glog.Flush()
	os.Exit(code)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, sshmm.ErrNonConvergence):
		glog.Warning(err)
		return exitOK
	case errors.Is(err, sshmm.ErrConfiguration):
		glog.Error(err)
		return exitConfig
	case errors.Is(err, sshmm.ErrInputFormat):
		glog.Error(err)
		return exitInput
	}
	glog.Error(err)
	return exitFail
}

// loadConfig reads the yaml config, if any, and applies the command line
// values that were given.
func loadConfig() (*sshmm.Config, error) {

	cfg := sshmm.DefaultConfig()
	if *trainConfig != "" {
		c, err := sshmm.ReadConfig(*trainConfig)
		if err != nil {
			return nil, err
		}
		cfg = c
	}
	if props.Workspace != "" && cfg.OutDir == "." {
		cfg.OutDir = props.Workspace
	}
	setString(&cfg.Name, *trainName)
	setString(&cfg.SequenceFile, *trainSeq)
	setString(&cfg.StructureFile, *trainStruct)
	setString(&cfg.OutDir, *trainOut)
	setString(&cfg.ModelIn, *trainModelIn)
	overrides.apply(cfg)
	if cfg.SequenceFile == "" || cfg.StructureFile == "" {
		return nil, fmt.Errorf("%w: sequence and structure files are required", sshmm.ErrConfiguration)
	}
	return cfg, cfg.Validate()
}

func doTrain() error {

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if glog.V(1) {
		glog.Infof("config: %+v", *cfg)
	}
	job := batch.Job{Name: cfg.Name, Config: *cfg}
	if err := os.MkdirAll(batch.Dir(job), 0755); err != nil {
		return err
	}
	if err := cfg.WriteFile(filepath.Join(batch.Dir(job), "config.yaml")); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	res, err := batch.Train(ctx, job)
	if res != nil {
		fmt.Printf("%s: %s after %d iterations (%v), log prob %f\n",
			cfg.Name, res.State, res.Iterations, res.Elapsed.Round(time.Millisecond), res.BestLogProb)
	}
	return err
}

func doBatch() error {

	cfg, err := sshmm.ReadConfig(*batchConfig)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	jobs, err := batch.Jobs(cfg)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("%w: no datasets in batch section of [%s]", sshmm.ErrConfiguration, *batchConfig)
	}
	ctx, cancel := signalContext()
	defer cancel()

	var first error
	for _, o := range batch.Run(ctx, jobs, *batchJobs, batch.Train) {
		state := train.Failed
		if o.Result != nil {
			state = o.Result.State
		}
		fmt.Printf("%s\t%s\t%v\n", o.Job.Name, state, o.Err)
		if o.Err != nil && first == nil && !errors.Is(o.Err, sshmm.ErrNonConvergence) {
			first = o.Err
		}
	}
	return first
}

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

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
