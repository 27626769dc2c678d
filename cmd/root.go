package cmd

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/gojags/gojags/config"
)

// startupParams holds everything the commands need at startup: flag values,
// the resolved config, and the output/trace loggers.
type startupParams struct {
	cfgFile   string
	verbose   bool
	traceFile string

	modelFile    string
	dataFile     string
	initFiles    []string
	monitorNames []string

	chains     int
	burnin     int
	samples    int
	thin       int
	jitter     float64
	randomSeed int64
	maxSeconds int64

	engineBin   string
	monitorAddr string
	workDir     string
	keepWork    bool

	outDir  string
	outStem string

	burnThreshold float64
	burnPoints    int
	window        int
	bins          int

	cfg   *config.Config
	out   *log.Logger
	trace *log.Logger
}

// Setup resolves config and loggers. The returned closer must be called when
// the command finishes.
func (sp *startupParams) Setup() (func(), error) {
	closer := func() {}

	cfg, err := config.Load(sp.cfgFile)
	if err != nil {
		return closer, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return closer, err
	}

	// Flags beat env and file, but only when actually set
	if len(sp.engineBin) > 0 {
		cfg.Engine = sp.engineBin
	}
	if sp.chains > 0 {
		cfg.Chains = sp.chains
	}
	if sp.burnin >= 0 {
		cfg.Burnin = sp.burnin
	}
	if sp.samples > 0 {
		cfg.Samples = sp.samples
	}
	if sp.thin > 0 {
		cfg.Thin = sp.thin
	}
	if sp.randomSeed != 0 {
		cfg.Seed = sp.randomSeed
	}
	if len(sp.monitorAddr) > 0 {
		cfg.MonitorAddr = sp.monitorAddr
	}
	if err := cfg.Check(); err != nil {
		return closer, err
	}
	sp.cfg = cfg

	sp.out = log.New(os.Stdout, "", 0)

	switch {
	case len(sp.traceFile) > 0:
		f, err := os.Create(sp.traceFile)
		if err != nil {
			return closer, errors.Wrapf(err, "Could not CREATE trace file %s", sp.traceFile)
		}
		closer = func() { f.Close() }
		sp.trace = log.New(f, "", 0)
	case sp.verbose:
		sp.trace = log.New(os.Stdout, "TRACE ", 0)
	default:
		sp.trace = log.New(io.Discard, "", 0)
	}

	return closer, nil
}

var sp = &startupParams{}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gojags",
	Short: "Drive an external MCMC engine and diagnose its chains",
	Long: `gojags runs Bayesian models through an external MCMC sampler and
post-processes the returned posterior chains. Among other features:

  - Declarative model text passed through to the engine untouched
  - Data and per-chain initial values marshaled in the dump format
  - CODA-format chain files read and written
  - Gelman-Rubin shrink factors, effective sample size, and burn-in trimming
`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a model through the engine and report on the chains",
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunSampler(sp)
	},
}

var diagCmd = &cobra.Command{
	Use:   "diag",
	Short: "Diagnose previously written chain files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return DiagReport(sp)
	},
}

var trimCmd = &cobra.Command{
	Use:   "trim",
	Short: "Select a burn-in cutoff and write trimmed chain files",
	RunE: func(cmd *cobra.Command, args []string) error {
		return TrimChains(sp)
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once
// to the rootCmd.
func Execute() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&sp.cfgFile, "config", "c", "", "config file (default is $HOME/.gojags.yaml)")
	pf.BoolVarP(&sp.verbose, "verbose", "v", false, "Verbose logging (default is much more parsimonious)")
	pf.StringVarP(&sp.traceFile, "trace", "t", "", "Trace file for engine output and reports")
	pf.Int64VarP(&sp.randomSeed, "seed", "r", 0, "Random seed for generated initial values")
	pf.StringVar(&sp.engineBin, "engine", "", "Engine binary to run")
	pf.StringVarP(&sp.outDir, "out-dir", "o", ".", "Directory for chain output files")
	pf.StringVar(&sp.outStem, "stem", "CODA", "File stem for chain output files")
	pf.IntVar(&sp.window, "window", 2000, "Draw window for split-half distances")
	pf.IntVar(&sp.bins, "bins", 20, "Histogram bins for split-half distances")

	rf := runCmd.Flags()
	rf.StringVarP(&sp.modelFile, "model", "m", "", "Model file to pass to the engine")
	rf.StringVarP(&sp.dataFile, "data", "d", "", "Data file in dump format")
	rf.StringSliceVarP(&sp.initFiles, "inits", "i", nil, "Initial-value files, one per chain (generated when omitted)")
	rf.StringSliceVarP(&sp.monitorNames, "monitor", "M", nil, "Parameters to monitor")
	rf.IntVarP(&sp.chains, "chains", "n", 0, "Number of parallel chains")
	rf.IntVarP(&sp.burnin, "burnin", "b", -1, "Burn-in iterations before monitoring")
	rf.IntVarP(&sp.samples, "samples", "s", 0, "Stored draws per chain")
	rf.IntVar(&sp.thin, "thin", 0, "Thinning interval")
	rf.Float64Var(&sp.jitter, "jitter", 0.0, "Relative perturbation of initial values per chain (0 disables)")
	rf.Int64Var(&sp.maxSeconds, "max-seconds", 0, "Maximum run time (0 means no limit)")
	rf.StringVar(&sp.monitorAddr, "monitor-addr", "", "HTTP address for run progress (empty disables)")
	rf.StringVar(&sp.workDir, "work-dir", "", "Engine workspace directory (default is a temp dir)")
	rf.BoolVar(&sp.keepWork, "keep-work", false, "Keep the engine workspace after the run")
	runCmd.MarkFlagRequired("model")
	runCmd.MarkFlagRequired("monitor")

	tf := trimCmd.Flags()
	tf.Float64Var(&sp.burnThreshold, "threshold", 1.1, "Shrink-factor threshold for burn-in selection")
	tf.IntVar(&sp.burnPoints, "points", 20, "Candidate cut points between 0 and half the draws")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(diagCmd)
	rootCmd.AddCommand(trimCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
