package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/uniconnect/batch"
)

const banner = "============================================================"

// =============================================================================
// 🔍 scan 命令
// =============================================================================

func (a *app) runScan(ctx context.Context, args []string) int {
	flags := a.newFlagSet("scan")
	var common commonOpts
	common.register(flags)
	var configPath, promptsPath, credential, output, dbPath string
	var mock, quiet bool
	var rps float64
	var seed int64
	stringFlag(flags, &configPath, "config", "c", "Path to connector config")
	stringFlag(flags, &promptsPath, "prompts", "p", "Prompts file, one per line")
	stringFlag(flags, &credential, "credential", "k", "API credential")
	boolFlag(flags, &mock, "mock", "m", "Use canned responses instead of real API calls")
	stringFlag(flags, &output, "output", "o", "Export results to a JSON file")
	boolFlag(flags, &quiet, "quiet", "q", "Suppress progress output")
	flags.StringVar(&dbPath, "db", "", "Save the run to a SQLite history file")
	flags.Float64Var(&rps, "rate", -1, "Max prompts per second (overrides scan.rate_per_second)")
	flags.Int64Var(&seed, "seed", 0, "Seed for the mock analyzer and sender (overrides scan.seed)")
	if err := flags.Parse(args); err != nil {
		return parseExitCode(err)
	}
	if configPath == "" || promptsPath == "" {
		fmt.Fprintln(a.stderr, "Error: --config and --prompts are required")
		return 1
	}

	env, err := a.setup(&common)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	defer env.close()

	cfg, ok := a.loadConnectorConfig(configPath)
	if !ok {
		return 1
	}

	scanCfg := env.cfg.Scan
	if rps >= 0 {
		scanCfg.RatePerSecond = rps
	}
	if seed != 0 {
		scanCfg.Seed = seed
	}
	if dbPath != "" {
		scanCfg.ResultsDB = dbPath
	}
	if scanCfg.Seed == 0 {
		scanCfg.Seed = time.Now().UnixNano()
	}

	var sender batch.Sender
	if mock {
		sender = batch.NewMockSender(scanCfg.Seed)
	} else {
		if cfg.Auth != nil {
			credential, err = resolveCredential(credential, cfg.Provider, env.lookupEnv)
			if err != nil {
				fmt.Fprintf(a.stderr, "Error: %v\n", err)
				fmt.Fprintln(a.stderr, "       Or use --mock for testing without real API calls.")
				return 1
			}
		}
		conn, err := env.newConnector(cfg, credential)
		if err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
		defer conn.Close()
		sender = conn
	}

	mode := "LIVE MODE"
	if mock {
		mode = "MOCK MODE"
	}
	fmt.Fprintf(a.stdout, "\n%s\nAI RESPONSE SCANNER - %s\n%s\n", banner, mode, banner)
	fmt.Fprintf(a.stdout, "Config:    %s\n", cfg.Name)
	fmt.Fprintf(a.stdout, "Provider:  %s\n", cfg.Provider)
	fmt.Fprintf(a.stdout, "Endpoint:  %s%s\n", cfg.BaseURL, cfg.Request.Endpoint)
	fmt.Fprintf(a.stdout, "Prompts:   %s\n%s\n\n", promptsPath, banner)

	prompts, err := batch.LoadPrompts(promptsPath)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintf(a.stdout, "Loaded %d prompts\n\n", len(prompts))

	opts := []batch.Option{
		batch.WithAnalyzer(batch.NewMockAnalyzer(scanCfg.Seed)),
		batch.WithRateLimit(scanCfg.RatePerSecond, scanCfg.Burst),
		batch.WithLogger(env.logger),
	}
	if !quiet {
		opts = append(opts, batch.WithProgress(func(i, total int, r batch.Result) {
			fmt.Fprintln(a.stdout, batch.ProgressLine(i, total, r))
		}))
	}
	if env.metrics != nil {
		opts = append(opts, batch.WithVerdictObserver(env.metrics))
	}

	code := 0
	results, err := batch.NewScanner(sender, opts...).ScanAll(ctx, prompts)
	if err != nil {
		fmt.Fprintf(a.stderr, "\nScan stopped after %d of %d prompts: %v\n", len(results), len(prompts), err)
		code = 1
	}

	batch.PrintSummary(a.stdout, cfg.Name, results)

	report := batch.NewReport(cfg.Name, cfg.Provider, results)
	if output != "" {
		if err := report.WriteJSON(output); err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(a.stdout, "\nResults exported to: %s\n", output)
	}

	if scanCfg.ResultsDB != "" {
		if err := a.saveRun(scanCfg.ResultsDB, report, env.logger); err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintf(a.stdout, "Run %s saved to: %s\n", report.RunID, scanCfg.ResultsDB)
	}
	return code
}

// saveRun 把报告写入 SQLite；使用独立 context，中断后仍保存已完成的部分
func (a *app) saveRun(path string, report *batch.Report, logger *zap.Logger) (err error) {
	store, err := batch.OpenStore(path, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return store.SaveReport(ctx, report)
}
