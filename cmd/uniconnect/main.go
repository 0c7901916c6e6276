// =============================================================================
// uniconnect 主入口
// =============================================================================
// 使用方法:
//
//	uniconnect send --config configs/openai.json --prompt "Hello"
//	uniconnect generate --spec specs/openai.yaml --output configs/openai.json
//	uniconnect scan --config configs/openai.json --prompts prompts.txt --mock
//	uniconnect version
// =============================================================================

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/uniconnect/config"
	"github.com/BaSui01/uniconnect/connector"
	"github.com/BaSui01/uniconnect/internal/metrics"
	"github.com/BaSui01/uniconnect/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{stdout: os.Stdout, stderr: os.Stderr, lookupEnv: os.LookupEnv}
	code := a.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

// app 持有命令的输入输出，便于测试
type app struct {
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv envLookup
}

func (a *app) run(ctx context.Context, args []string) int {
	if len(args) < 1 {
		a.printUsage(a.stderr)
		return 1
	}

	switch args[0] {
	case "send":
		return a.runSend(ctx, args[1:])
	case "generate":
		return a.runGenerate(ctx, args[1:])
	case "scan":
		return a.runScan(ctx, args[1:])
	case "version":
		a.printVersion()
		return 0
	case "help", "-h", "--help":
		a.printUsage(a.stdout)
		return 0
	default:
		fmt.Fprintf(a.stderr, "Unknown command: %s\n", args[0])
		a.printUsage(a.stderr)
		return 1
	}
}

// =============================================================================
// 🔧 公共参数与运行环境
// =============================================================================

// commonOpts 所有子命令共享的参数
type commonOpts struct {
	settings string
	envFile  string
	logLevel string
}

func (o *commonOpts) register(fs *flag.FlagSet) {
	fs.StringVar(&o.settings, "settings", "", "Path to application settings (YAML)")
	fs.StringVar(&o.envFile, "env-file", ".env", "Optional .env file consulted after the process environment")
	fs.StringVar(&o.logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
}

// newFlagSet 创建输出到 stderr 的 FlagSet
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parseExitCode 与 flag.ExitOnError 相同：-h 返回 0，其余解析错误返回 2
func parseExitCode(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return 2
}

// stringFlag 注册同一变量的长短两个名字
func stringFlag(fs *flag.FlagSet, p *string, long, short, usage string) {
	fs.StringVar(p, long, "", usage)
	if short != "" {
		fs.StringVar(p, short, "", usage+" (shorthand)")
	}
}

func boolFlag(fs *flag.FlagSet, p *bool, long, short, usage string) {
	fs.BoolVar(p, long, false, usage)
	if short != "" {
		fs.BoolVar(p, short, false, usage+" (shorthand)")
	}
}

// environment 一次命令运行所需的配置、日志与观测组件
type environment struct {
	cfg       *config.Config
	logger    *zap.Logger
	lookupEnv envLookup
	telemetry *telemetry.Providers
	metrics   *metrics.Collector
}

func (a *app) setup(opts *commonOpts) (*environment, error) {
	dotenv, err := loadDotEnv(opts.envFile)
	if err != nil {
		return nil, err
	}
	lookup := layeredEnv(a.lookupEnv, dotenv)

	cfg, err := config.NewLoader().
		WithConfigPath(opts.settings).
		WithEnvLookup(lookup).
		Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	logger := initLogger(cfg.Log)

	providers, err := telemetry.Init(cfg.Telemetry, Version, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
		providers = &telemetry.Providers{}
	}

	env := &environment{
		cfg:       cfg,
		logger:    logger,
		lookupEnv: lookup,
		telemetry: providers,
	}
	if cfg.Metrics.Enabled {
		env.metrics = metrics.NewCollector(cfg.Metrics.Namespace, logger)
	}
	return env, nil
}

// close 写出指标快照并关闭遥测
func (e *environment) close() {
	if e.metrics != nil && e.cfg.Metrics.TextfilePath != "" {
		if err := e.metrics.WriteTextfile(e.cfg.Metrics.TextfilePath); err != nil {
			e.logger.Warn("failed to write metrics", zap.Error(err))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.telemetry.Shutdown(ctx); err != nil {
		e.logger.Warn("telemetry shutdown failed", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// connectorOptions 把应用配置转换为连接器选项
func (e *environment) connectorOptions() ([]connector.Option, error) {
	policy, err := e.cfg.Retry.Policy()
	if err != nil {
		return nil, err
	}
	opts := []connector.Option{
		connector.WithRetryPolicy(policy),
		connector.WithLogger(e.logger),
		connector.WithTracerProvider(e.telemetry.TracerProvider()),
	}
	if e.metrics != nil {
		opts = append(opts, connector.WithObserver(e.metrics))
	}
	return opts, nil
}

// newConnector 加载连接器配置并创建连接器；http.timeout 覆盖配置中的超时
func (e *environment) newConnector(cfg *connector.Config, credential string) (*connector.Connector, error) {
	if t := e.cfg.HTTP.Timeout; t > 0 {
		cfg.TimeoutSeconds = int(math.Ceil(t.Seconds()))
	}
	opts, err := e.connectorOptions()
	if err != nil {
		return nil, err
	}
	return connector.New(cfg, credential, opts...)
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func (a *app) printVersion() {
	fmt.Fprintf(a.stdout, "uniconnect %s\n", Version)
	fmt.Fprintf(a.stdout, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(a.stdout, "  Git Commit: %s\n", GitCommit)
}

func (a *app) printUsage(w io.Writer) {
	fmt.Fprintln(w, `uniconnect - Universal AI API connector

Usage:
  uniconnect <command> [options]

Commands:
  send      Send one prompt through a connector config
  generate  Generate a connector config from an OpenAPI document
  scan      Send every prompt in a file and summarize the verdicts
  version   Show version information
  help      Show this help message

Options for 'send':
  -c, --config <path>       Connector config (JSON or YAML)
  -p, --prompt <text>       Prompt to send
  -k, --credential <key>    API credential (or {PROVIDER}_API_KEY / API_KEY)
  -v, --verbose             Show the raw response
      --json                Print the full response as JSON

Options for 'generate':
  -s, --spec <path|url>     OpenAPI document (YAML or JSON)
  -o, --output <path>       Where to write the config (stdout when omitted)
  -m, --model <name>        Model to put in static fields
      --base-url <url>      Override servers[0].url
      --name <name>         Override the config name
  -v, --verbose             Show candidate endpoints and auth

Options for 'scan':
  -c, --config <path>       Connector config
  -p, --prompts <path>      Prompts file, one per line
  -k, --credential <key>    API credential
  -m, --mock                Answer with canned responses, no API calls
  -o, --output <path>       Export results as JSON
  -q, --quiet               Suppress progress output
      --db <path>           Save the run to a SQLite history file
      --rate <n>            Max prompts per second
      --seed <n>            Seed for the mock analyzer

Common options:
  --settings <path>         Application settings (YAML)
  --env-file <path>         .env file (default ".env")
  --log-level <level>       Override the log level

Examples:
  uniconnect send -c configs/openai.json -p "Hello, how are you?"
  uniconnect generate -s specs/anthropic.yaml -o configs/anthropic.json -m claude-3-haiku-20240307
  uniconnect scan -c configs/openai.json -p prompts.txt --mock -o results.json
  uniconnect version`)
}
