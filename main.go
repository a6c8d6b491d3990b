// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/spf13/cobra"
	"github.com/ttbt-io/carnetverify/config"
	"github.com/ttbt-io/carnetverify/fixture"
	"github.com/ttbt-io/carnetverify/verify"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes of the run command.
const (
	exitFail         = 1
	exitInconclusive = 2
)

var (
	configPath string
	logJSON    bool
	debugMode  bool

	v = config.New()
)

var rootCmd = &cobra.Command{
	Use:           "carnetverify",
	Short:         "Browser verification harness for Mon Carnet de Voyage",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run [scenario...|all]",
	Short: "Run verification scenarios against the application",
	Long: `Run opens a fresh browser session per scenario, drives the application
and reports PASS, FAIL or INCONCLUSIVE for each one.

Exit status is 1 if any scenario failed, 2 if none failed but at least one
was inconclusive, 0 otherwise.`,
	RunE: runScenarios,
}

var serveFixtureCmd = &cobra.Command{
	Use:   "serve-fixture",
	Short: "Serve the stand-in application used to exercise the scenarios",
	RunE:  serveFixture,
}

var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Print the effective DOM contract as JSON",
	RunE:  printContract,
}

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "List stored results, or print one in full",
	Args:  cobra.MaximumNArgs(1),
	RunE:  report,
}

var (
	listFlag         bool
	fixtureFlag      bool
	reportJSONFlag   bool
	breakDraggable   bool
	breakPersistence bool
	breakPrompt      bool
	breakModalClose  bool
	breakDraftMarker bool
	extraMarkers     bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to a YAML config file")
	pf.BoolVar(&logJSON, "log-json", false, "Emit JSON logs")
	pf.BoolVar(&debugMode, "debug", false, "Enable debug logging")
	pf.String("store-dir", "", "Directory for stored results (empty disables storage)")
	v.BindPFlag("store_dir", pf.Lookup("store-dir"))

	rf := runCmd.Flags()
	rf.String("base-url", "", "Base URL of the application")
	rf.Bool("headless", true, "Run the browser headless")
	rf.String("chrome-url", "", "DevTools websocket URL of an already running browser")
	rf.String("artifacts-dir", "", "Directory for screenshots")
	rf.BoolVar(&listFlag, "list", false, "List scenario names and exit")
	v.BindPFlag("base_url", rf.Lookup("base-url"))
	v.BindPFlag("headless", rf.Lookup("headless"))
	v.BindPFlag("chrome_url", rf.Lookup("chrome-url"))
	v.BindPFlag("artifacts_dir", rf.Lookup("artifacts-dir"))

	ff := serveFixtureCmd.Flags()
	ff.String("addr", "", "The TCP address to listen to")
	ff.String("data-dir", "", "Directory for circuit data")
	ff.Duration("hydration-delay", 0, "Delay before circuits are pushed to the page")
	ff.Bool("empty", false, "Serve no circuits")
	ff.BoolVar(&breakDraggable, "break-draggable", false, "Create markers without the draggable class")
	ff.BoolVar(&breakPersistence, "break-persistence", false, "Drop visited toggle changes")
	ff.BoolVar(&breakPrompt, "break-prompt", false, "Show no prompt on right-click")
	ff.BoolVar(&breakModalClose, "break-modal-close", false, "Make the modal impossible to close")
	ff.BoolVar(&breakDraftMarker, "break-draft-marker", false, "Add no marker on right-click")
	ff.BoolVar(&extraMarkers, "extra-markers", false, "Render point-of-interest markers around the map")
	v.BindPFlag("fixture.addr", ff.Lookup("addr"))
	v.BindPFlag("fixture.data_dir", ff.Lookup("data-dir"))
	v.BindPFlag("fixture.hydration_delay", ff.Lookup("hydration-delay"))
	v.BindPFlag("fixture.empty", ff.Lookup("empty"))

	contractCmd.Flags().BoolVar(&fixtureFlag, "fixture", false, "Print the fixture's contract instead")
	reportCmd.Flags().BoolVar(&reportJSONFlag, "json", false, "Print results as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveFixtureCmd)
	rootCmd.AddCommand(contractCmd)
	rootCmd.AddCommand(reportCmd)
}

type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitFail)
	}
}

func newLogger() (*zap.Logger, error) {
	if logJSON {
		cfg := zap.NewProductionConfig()
		if debugMode {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		return cfg.Build()
	}
	cfg := zap.NewDevelopmentConfig()
	if !debugMode {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return cfg.Build()
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	cfg, err := config.Load(v, configPath)
	if err != nil {
		logger.Sync()
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openStorage opens dir, encrypted when CARNET_MASTER_KEY is set.
func openStorage(dir string, logger *zap.Logger) (*storage.Storage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	keyFile := filepath.Join(dir, "master.key")
	var masterKey crypto.MasterKey
	if passphrase := os.Getenv("CARNET_MASTER_KEY"); passphrase != "" {
		var err error
		masterKey, err = crypto.ReadMasterKey([]byte(passphrase), keyFile)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read master key: %w", err)
			}
			logger.Info("Initializing new master encryption key")
			if masterKey, err = crypto.CreateMasterKey(); err != nil {
				return nil, fmt.Errorf("failed to create master key: %w", err)
			}
			if err := masterKey.Save([]byte(passphrase), keyFile); err != nil {
				return nil, fmt.Errorf("failed to save master key: %w", err)
			}
		}
	} else if _, err := os.Stat(keyFile); err == nil {
		return nil, fmt.Errorf("%s exists but CARNET_MASTER_KEY is not set", keyFile)
	}
	s := storage.New(dir, masterKey)
	s.EnableCompression(true)
	return s, nil
}

func openResultStore(dir string, logger *zap.Logger) (*verify.Store, error) {
	if dir == "" {
		return nil, nil
	}
	s, err := openStorage(dir, logger)
	if err != nil {
		return nil, err
	}
	return verify.NewStore(dir, s), nil
}

func runScenarios(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	suite := cfg.Suite()
	if listFlag {
		for _, sc := range suite.All() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-26s %s\n", sc.Name, sc.Description)
		}
		return nil
	}
	selected, err := suite.Select(args)
	if err != nil {
		return err
	}
	store, err := openResultStore(cfg.StoreDir, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := &verify.Runner{
		Options:   cfg.SessionOptions(logger),
		Artifacts: cfg.ArtifactsDir,
		Logger:    logger,
		Store:     store,
	}
	logger.Info("Starting verification", zap.String("base_url", cfg.BaseURL), zap.Int("scenarios", len(selected)))
	results := runner.RunAll(ctx, selected)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Verdict, r.Scenario, r.Duration().Round(time.Millisecond))
	}
	w.Flush()

	if len(results) < len(selected) {
		return &exitError{code: exitFail, msg: "interrupted"}
	}
	switch verify.Summary(results) {
	case verify.Fail:
		return &exitError{code: exitFail, msg: "verification failed"}
	case verify.Inconclusive:
		return &exitError{code: exitInconclusive, msg: "verification inconclusive"}
	}
	return nil
}

func serveFixture(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()

	s, err := openStorage(cfg.Fixture.DataDir, logger)
	if err != nil {
		return err
	}
	server, err := fixture.StartServer(fixture.Options{
		Addr:             cfg.Fixture.Addr,
		DataDir:          cfg.Fixture.DataDir,
		Storage:          s,
		Logger:           logger,
		HydrationDelay:   cfg.Fixture.HydrationDelay,
		Empty:            cfg.Fixture.Empty,
		BreakDraggable:   breakDraggable,
		BreakPersistence: breakPersistence,
		BreakPrompt:      breakPrompt,
		BreakModalClose:  breakModalClose,
		BreakDraftMarker: breakDraftMarker,
		ExtraMarkers:     extraMarkers,
	})
	if err != nil {
		return fmt.Errorf("failed to start fixture: %w", err)
	}
	logger.Info("Fixture ready", zap.String("url", server.URL()))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("Gracefully stopped.")
	return nil
}

func printContract(cmd *cobra.Command, args []string) error {
	c := fixture.Contract()
	if !fixtureFlag {
		cfg, err := config.Load(v, configPath)
		if err != nil {
			return err
		}
		c = cfg.Contract
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

func report(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()
	if cfg.StoreDir == "" {
		return errors.New("no result store configured, set --store-dir or store_dir")
	}
	store, err := openResultStore(cfg.StoreDir, logger)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	if len(args) == 1 {
		res, err := store.Load(args[0])
		if err != nil {
			return err
		}
		return enc.Encode(res)
	}
	results, err := store.List()
	if err != nil {
		return err
	}
	if reportJSONFlag {
		return enc.Encode(results)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tRUN ID\tSCENARIO\tVERDICT\tDURATION\tFAILED STEP")
	for _, r := range results {
		step := ""
		if r.Failure != nil {
			step = r.Failure.Step
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Started.Format(time.RFC3339), r.RunID, r.Scenario, r.Verdict, r.Duration().Round(time.Millisecond), step)
	}
	return w.Flush()
}
