// cmd/root.go
package cmd

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pegasus-sim/pegasus-sim/sim"
	"github.com/pegasus-sim/pegasus-sim/sim/kv"
	"github.com/pegasus-sim/pegasus-sim/sim/memcachekv"
	"github.com/pegasus-sim/pegasus-sim/sim/pegasuskv"
	"github.com/pegasus-sim/pegasus-sim/sim/workload"
)

var (
	flagKeys         int
	flagKeyLength    int
	flagValueLength  int
	flagGets         float64
	flagPuts         float64
	flagAlpha        float64
	flagKeyType      string
	flagIntervalType string
	flagIntervalUs   float64
	flagNodes        int
	flagProcs        int
	flagDurationUs   int64
	flagApp          string
	flagConfigType   string
	flagIPLoadMode   string
	flagLoadBound    float64
	flagReportMs     int64
	flagWriteMode    string
	flagEpochMs      int64
	flagInitKey      bool
	flagCDFFile      string
	flagEpochFile    string
	flagConfigFile   string
	flagSeed         int64
	flagLogLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "pegasus-sim",
	Short: "Discrete-event simulator for a rack-scale coherence directory",
}

// yamlFlags mirrors the CLI flag set for --config file loading; CLI flags
// always override values given in the file.
type yamlFlags struct {
	Keys         *int     `yaml:"keys"`
	Length       *int     `yaml:"length"`
	Values       *int     `yaml:"values"`
	Gets         *float64 `yaml:"gets"`
	Puts         *float64 `yaml:"puts"`
	Alpha        *float64 `yaml:"alpha"`
	KeyType      *string  `yaml:"keytype"`
	IntervalType *string  `yaml:"intervaltype"`
	Interval     *float64 `yaml:"interval"`
	Nodes        *int     `yaml:"nodes"`
	Procs        *int     `yaml:"procs"`
	Duration     *int64   `yaml:"duration"`
	App          *string  `yaml:"app"`
	ConfigType   *string  `yaml:"configtype"`
	IPLoadMode   *string  `yaml:"iploadmode"`
	LoadBound    *float64 `yaml:"loadbound"`
	Report       *int64   `yaml:"report"`
	WriteMode    *string  `yaml:"writemode"`
	Epoch        *int64   `yaml:"epoch"`
	InitKey      *bool    `yaml:"initkey"`
	CDFFile      *string  `yaml:"cdffile"`
	EpochFile    *string  `yaml:"epochfile"`
	Seed         *int64   `yaml:"seed"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a workload against the simulator",
	RunE:  runSimulation,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	runCmd.Flags().IntVar(&flagKeys, "keys", defaultKeys, "number of keys in the workload's key population")
	runCmd.Flags().IntVar(&flagKeyLength, "length", defaultKeyLength, "key byte length")
	runCmd.Flags().IntVar(&flagValueLength, "values", defaultValueLength, "value byte length")
	runCmd.Flags().Float64Var(&flagGets, "gets", defaultGets, "GET fraction")
	runCmd.Flags().Float64Var(&flagPuts, "puts", defaultPuts, "PUT fraction (DEL = 1 - gets - puts)")
	runCmd.Flags().Float64Var(&flagAlpha, "alpha", defaultAlpha, "Zipf exponent (keytype=zipf only)")
	runCmd.Flags().StringVar(&flagKeyType, "keytype", defaultKeyType, "key distribution: unif | zipf")
	runCmd.Flags().StringVar(&flagIntervalType, "intervaltype", defaultIntervalType, "interarrival distribution: unif | poiss")
	runCmd.Flags().Float64Var(&flagIntervalUs, "interval", defaultIntervalUs, "mean microseconds between requests")
	runCmd.Flags().IntVar(&flagNodes, "nodes", defaultNodes, "cache node count")
	runCmd.Flags().IntVar(&flagProcs, "procs", defaultProcs, "processors per cache node")
	runCmd.Flags().Int64Var(&flagDurationUs, "duration", defaultDurationUs, "simulated duration in microseconds")
	runCmd.Flags().StringVar(&flagApp, "app", defaultApp, "application: memcache | pegasus")
	runCmd.Flags().StringVar(&flagConfigType, "configtype", defaultConfigType, "memcache configuration policy: static | loadbalance | boundedload | vload | avgload | routing")
	runCmd.Flags().StringVar(&flagIPLoadMode, "iploadmode", "ipload", "vload submode: iload | pload | ipload")
	runCmd.Flags().Float64Var(&flagLoadBound, "loadbound", defaultLoadBound, "load bound c (>= 1) for bounded-load policies")
	runCmd.Flags().Int64Var(&flagReportMs, "report", defaultReportMs, "loadbalance rebalance interval in milliseconds")
	runCmd.Flags().StringVar(&flagWriteMode, "writemode", defaultWriteMode, "write fan-out mode: anynode | update | invalidate")
	runCmd.Flags().Int64Var(&flagEpochMs, "epoch", defaultEpochMs, "per-epoch latency rollover window in milliseconds (0 disables)")
	runCmd.Flags().BoolVar(&flagInitKey, "initkey", false, "treat the first GET of an uninitialized key as a PUT")
	runCmd.Flags().StringVar(&flagCDFFile, "cdffile", "", "optional output path for the latency CDF")
	runCmd.Flags().StringVar(&flagEpochFile, "epochfile", "", "optional output path for per-epoch latency stats")
	runCmd.Flags().StringVar(&flagConfigFile, "config", "", "optional YAML file pre-populating these flags")
	runCmd.Flags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 draws and logs a random seed)")
	runCmd.Flags().StringVar(&flagLogLevel, "log", defaultLogLevel, "log level: debug, info, warn, error")

	rootCmd.AddCommand(runCmd)
}

// malformedArgsError marks a flag-validation failure as exit code 1.
type malformedArgsError struct{ err error }

func (m *malformedArgsError) Error() string { return m.err.Error() }
func (m *malformedArgsError) Unwrap() error { return m.err }

func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var malformed *malformedArgsError
	if errors.As(err, &malformed) {
		return 1
	}
	var protoErr *sim.ProtocolError
	if errors.As(err, &protoErr) {
		return 2
	}
	return 1
}

func runSimulation(cmd *cobra.Command, args []string) error {
	if flagConfigFile != "" {
		if err := applyYAMLDefaults(cmd, flagConfigFile); err != nil {
			return &malformedArgsError{err}
		}
	}

	level, err := logrus.ParseLevel(flagLogLevel)
	if err != nil {
		return &malformedArgsError{fmt.Errorf("invalid log level %q: %w", flagLogLevel, err)}
	}
	logrus.SetLevel(level)

	seed := flagSeed
	if seed == 0 {
		seed = rand.New(rand.NewSource(time.Now().UnixNano())).Int63()
		logrus.Infof("no --seed given, drew seed=%d", seed)
	}

	wlCfg := workload.Config{
		NumKeys:      flagKeys,
		KeyLength:    flagKeyLength,
		ValueLength:  flagValueLength,
		GetRatio:     flagGets,
		PutRatio:     flagPuts,
		KeyType:      flagKeyType,
		Alpha:        flagAlpha,
		IntervalType: flagIntervalType,
		IntervalUs:   flagIntervalUs,
		Duration:     flagDurationUs,
	}
	if err := wlCfg.Validate(); err != nil {
		return &malformedArgsError{err}
	}
	if flagNodes < 1 {
		return &malformedArgsError{fmt.Errorf("nodes must be >= 1, got %d", flagNodes)}
	}
	if flagProcs < 1 {
		return &malformedArgsError{fmt.Errorf("procs must be >= 1, got %d", flagProcs)}
	}

	logrus.Infof("starting run: app=%s configtype=%s nodes=%d duration=%dus seed=%d",
		flagApp, flagConfigType, flagNodes, flagDurationUs, seed)

	s := sim.NewSimulator(flagDurationUs, flagEpochMs*1000, seed)
	rng := s.RNG()

	gen, err := workload.NewGenerator(wlCfg, rng.ForSubsystem(sim.SubsystemWorkload))
	if err != nil {
		return &malformedArgsError{err}
	}

	switch flagApp {
	case "pegasus":
		err = buildPegasusDeployment(s, gen)
	default:
		err = buildMemcacheDeployment(s, gen)
	}
	if err != nil {
		return err
	}

	if err := s.Run(); err != nil {
		return err
	}

	printAndWriteStats(s)
	logrus.Info("simulation complete")
	return nil
}

func buildMemcacheDeployment(s *sim.Simulator, gen *workload.Generator) error {
	writeMode, err := memcachekv.ParseWriteMode(flagWriteMode)
	if err != nil {
		return &malformedArgsError{err}
	}

	// Client completions go into the simulator's Stats, which Run rolls
	// forward each tick and printAndWriteStats reports.
	stats := kv.NewStats(flagEpochMs * 1000)
	stats.Stats = s.Stats
	rng := s.RNG()

	config, migrationAdvisor, err := buildMemcacheConfig()
	if err != nil {
		return &malformedArgsError{err}
	}

	// Cache nodes take ids 0..flagNodes-1 (what every Configuration
	// implementation indexes its per-node state by); the client gets the
	// next id so it never collides with a cache node.
	clientID := flagNodes
	client := memcachekv.NewClient(clientID, s, config, gen, stats, rng.ForSubsystem(sim.SubsystemNode(clientID)), writeMode, flagInitKey)
	clientNode := sim.NewNode(clientID, sim.Rack(0), 1, client, rng.ForSubsystem(sim.SubsystemNode(clientID)), true, false, 0)
	if err := s.AddNode(clientNode); err != nil {
		return err
	}

	for i := 0; i < flagNodes; i++ {
		nodeRNG := rng.ForSubsystem(sim.SubsystemNode(i))
		server := memcachekv.NewServer(i, s, kv.NewStore(), migrationAdvisor)
		node := sim.NewNode(i, sim.Rack(0), flagProcs, server, nodeRNG, false, true, 0)
		if err := s.AddNode(node); err != nil {
			return err
		}
	}
	return nil
}

func buildMemcacheConfig() (memcachekv.Configuration, memcachekv.MigrationAdvisor, error) {
	switch flagConfigType {
	case "loadbalance":
		// loadbound doubles here as the per-node max acceptable key rate
		// (ops/sec), the same role spec.md's LoadBalanceConfig calls max_rate.
		c, err := memcachekv.NewLoadBalanceConfig(flagNodes, flagLoadBound, flagReportMs*1000)
		return c, nil, err
	case "boundedload":
		c, err := memcachekv.NewBoundedLoadConfig(flagNodes, flagLoadBound)
		return c, nil, err
	case "vload":
		mode, err := memcachekv.ParseIPLoadMode(flagIPLoadMode)
		if err != nil {
			return nil, nil, err
		}
		c, err := memcachekv.NewBoundedIPLoadConfig(flagNodes, flagLoadBound, mode)
		return c, nil, err
	case "avgload":
		c, err := memcachekv.NewBoundedAverageLoadConfig(flagNodes, flagLoadBound)
		return c, nil, err
	case "routing":
		c, err := memcachekv.NewRoutingConfig(flagNodes, flagLoadBound)
		if err != nil {
			return nil, nil, err
		}
		return c, c, nil
	default:
		c, err := memcachekv.NewStaticConfig(flagNodes, 1)
		return c, nil, err
	}
}

func buildPegasusDeployment(s *sim.Simulator, gen *workload.Generator) error {
	// Client completions go into the simulator's Stats, which Run rolls
	// forward each tick and printAndWriteStats reports.
	stats := kv.NewStats(flagEpochMs * 1000)
	stats.Stats = s.Stats
	rng := s.RNG()

	dirNode := 0
	config := pegasuskv.NewSingleDirectoryConfig(flagNodes, dirNode, rng.ForSubsystem(sim.SubsystemConfig))

	clientID := flagNodes
	client := pegasuskv.NewClient(clientID, s, config, gen, stats, rng.ForSubsystem(sim.SubsystemNode(clientID)))
	clientNode := sim.NewNode(clientID, sim.Rack(0), 1, client, rng.ForSubsystem(sim.SubsystemNode(clientID)), true, false, 0)
	if err := s.AddNode(clientNode); err != nil {
		return err
	}

	for i := 0; i < flagNodes; i++ {
		nodeRNG := rng.ForSubsystem(sim.SubsystemNode(i))
		server := pegasuskv.NewServer(i, s, kv.NewStore(), config)
		node := sim.NewNode(i, sim.Rack(0), flagProcs, server, nodeRNG, false, true, 0)
		if err := s.AddNode(node); err != nil {
			return err
		}
	}
	return nil
}

func printAndWriteStats(s *sim.Simulator) {
	report := s.Stats.Dump()
	fmt.Printf("total_ops=%d throughput_ops_per_sec=%.2f avg_latency_us=%.2f p50=%.2f p90=%.2f p99=%.2f\n",
		report.TotalOps, report.ThroughputOpsPerSec, report.AverageLatencyUs, report.MedianLatencyUs, report.P90LatencyUs, report.P99LatencyUs)

	if flagCDFFile != "" {
		if err := writeCDFFile(flagCDFFile, s.Stats.CDF()); err != nil {
			logrus.Warnf("failed writing cdffile: %v", err)
		}
	}
	if flagEpochFile != "" {
		if err := writeEpochFile(flagEpochFile, s.Stats.EpochReports()); err != nil {
			logrus.Warnf("failed writing epochfile: %v", err)
		}
	}
}

func writeCDFFile(path string, points []sim.CDFPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, p := range points {
		if _, err := fmt.Fprintf(f, "%d %f\n", p.LatencyUs, p.CumulativeFraction); err != nil {
			return err
		}
	}
	return nil
}

func writeEpochFile(path string, reports []sim.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for i, r := range reports {
		epochMs := int64(i+1) * flagEpochMs
		if _, err := fmt.Fprintf(f, "%d %f %f %f %f\n", epochMs, r.AverageLatencyUs, r.MedianLatencyUs, r.P90LatencyUs, r.P99LatencyUs); err != nil {
			return err
		}
	}
	return nil
}

// applyYAMLDefaults loads path and, for every field the user did not pass
// on the command line, assigns it into the matching flag variable. CLI
// flags always take precedence over the file.
func applyYAMLDefaults(cmd *cobra.Command, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	var y yamlFlags
	if err := yaml.Unmarshal(data, &y); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	changed := cmd.Flags().Changed
	assignInt(changed, "keys", y.Keys, &flagKeys)
	assignInt(changed, "length", y.Length, &flagKeyLength)
	assignInt(changed, "values", y.Values, &flagValueLength)
	assignFloat(changed, "gets", y.Gets, &flagGets)
	assignFloat(changed, "puts", y.Puts, &flagPuts)
	assignFloat(changed, "alpha", y.Alpha, &flagAlpha)
	assignString(changed, "keytype", y.KeyType, &flagKeyType)
	assignString(changed, "intervaltype", y.IntervalType, &flagIntervalType)
	assignFloat(changed, "interval", y.Interval, &flagIntervalUs)
	assignInt(changed, "nodes", y.Nodes, &flagNodes)
	assignInt(changed, "procs", y.Procs, &flagProcs)
	assignInt64(changed, "duration", y.Duration, &flagDurationUs)
	assignString(changed, "app", y.App, &flagApp)
	assignString(changed, "configtype", y.ConfigType, &flagConfigType)
	assignString(changed, "iploadmode", y.IPLoadMode, &flagIPLoadMode)
	assignFloat(changed, "loadbound", y.LoadBound, &flagLoadBound)
	assignInt64(changed, "report", y.Report, &flagReportMs)
	assignString(changed, "writemode", y.WriteMode, &flagWriteMode)
	assignInt64(changed, "epoch", y.Epoch, &flagEpochMs)
	assignBool(changed, "initkey", y.InitKey, &flagInitKey)
	assignString(changed, "cdffile", y.CDFFile, &flagCDFFile)
	assignString(changed, "epochfile", y.EpochFile, &flagEpochFile)
	assignInt64(changed, "seed", y.Seed, &flagSeed)
	return nil
}

func assignInt(changed func(string) bool, name string, v *int, dst *int) {
	if v != nil && !changed(name) {
		*dst = *v
	}
}
func assignInt64(changed func(string) bool, name string, v *int64, dst *int64) {
	if v != nil && !changed(name) {
		*dst = *v
	}
}
func assignFloat(changed func(string) bool, name string, v *float64, dst *float64) {
	if v != nil && !changed(name) {
		*dst = *v
	}
}
func assignString(changed func(string) bool, name string, v *string, dst *string) {
	if v != nil && !changed(name) {
		*dst = *v
	}
}
func assignBool(changed func(string) bool, name string, v *bool, dst *bool) {
	if v != nil && !changed(name) {
		*dst = *v
	}
}
