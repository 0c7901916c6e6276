package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/uniconnect/connector"
)

const divider = "----------------------------------------"

// =============================================================================
// 📨 send 命令
// =============================================================================

func (a *app) runSend(ctx context.Context, args []string) int {
	flags := a.newFlagSet("send")
	var common commonOpts
	common.register(flags)
	var configPath, prompt, credential string
	var verbose, asJSON bool
	stringFlag(flags, &configPath, "config", "c", "Path to connector config")
	stringFlag(flags, &prompt, "prompt", "p", "Prompt to send")
	stringFlag(flags, &credential, "credential", "k", "API credential")
	boolFlag(flags, &verbose, "verbose", "v", "Show the raw response")
	flags.BoolVar(&asJSON, "json", false, "Print the full response as JSON")
	if err := flags.Parse(args); err != nil {
		return parseExitCode(err)
	}
	if configPath == "" || prompt == "" {
		fmt.Fprintln(a.stderr, "Error: --config and --prompt are required")
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

	if cfg.Auth != nil {
		credential, err = resolveCredential(credential, cfg.Provider, env.lookupEnv)
		if err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
	}

	conn, err := env.newConnector(cfg, credential)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	defer conn.Close()

	if !asJSON {
		fmt.Fprintf(a.stdout, "Connecting to: %s\n", cfg.Name)
		fmt.Fprintf(a.stdout, "Prompt: %s\n", preview(prompt, 50))
		fmt.Fprintln(a.stdout, divider)
	}

	resp := conn.Send(ctx, prompt)
	env.logger.Debug("send finished",
		zap.String("kind", string(resp.ErrorKind)),
		zap.Int64("latency_ms", resp.LatencyMS),
		zap.Int("retries", resp.Retries),
	)

	if asJSON {
		enc := json.NewEncoder(a.stdout)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		_ = enc.Encode(resp)
	} else {
		a.printResponse(resp, verbose)
	}

	if !resp.Success {
		return 1
	}
	return 0
}

func (a *app) printResponse(resp *connector.Response, verbose bool) {
	if resp.Success {
		fmt.Fprintf(a.stdout, "Response:\n%s\n", resp.Content)
	} else {
		fmt.Fprintf(a.stdout, "Error: %s\n", resp.Error)
		fmt.Fprintf(a.stdout, "Error type: %s\n", resp.ErrorKind)
		if resp.StatusCode != 0 {
			fmt.Fprintf(a.stdout, "Status code: %d\n", resp.StatusCode)
		}
	}
	if resp.Retries > 0 {
		fmt.Fprintf(a.stdout, "Retries: %d\n", resp.Retries)
	}
	if verbose && resp.RawResponse != nil {
		raw, err := json.MarshalIndent(resp.RawResponse, "", "  ")
		if err == nil {
			fmt.Fprintln(a.stdout, divider)
			fmt.Fprintf(a.stdout, "Raw response:\n%s\n", raw)
		}
	}
}

// loadConnectorConfig 加载连接器配置并打印友好的错误
func (a *app) loadConnectorConfig(path string) (*connector.Config, bool) {
	cfg, err := connector.LoadConfig(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(a.stderr, "Error: Config file not found: %s\n", path)
		} else {
			fmt.Fprintf(a.stderr, "Error loading config: %v\n", err)
		}
		return nil, false
	}
	return cfg, true
}

// preview 截断到 n 个字符，超出时追加 "..."
func preview(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}
