package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/BaSui01/uniconnect/openapi"
)

// maxShownCandidates 详细模式下显示的候选端点数
const maxShownCandidates = 5

// =============================================================================
// 🧬 generate 命令
// =============================================================================

func (a *app) runGenerate(ctx context.Context, args []string) int {
	flags := a.newFlagSet("generate")
	var common commonOpts
	common.register(flags)
	var spec, output, model, baseURL, name string
	var verbose bool
	stringFlag(flags, &spec, "spec", "s", "OpenAPI document path or URL")
	stringFlag(flags, &output, "output", "o", "Output path for the generated config")
	stringFlag(flags, &model, "model", "m", "Model name to use in the config")
	flags.StringVar(&baseURL, "base-url", "", "Override servers[0].url")
	flags.StringVar(&name, "name", "", "Override the config name")
	boolFlag(flags, &verbose, "verbose", "v", "Show detailed parsing info")
	if err := flags.Parse(args); err != nil {
		return parseExitCode(err)
	}
	if spec == "" {
		fmt.Fprintln(a.stderr, "Error: --spec is required")
		return 1
	}

	env, err := a.setup(&common)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	defer env.close()

	policy, err := env.cfg.Retry.Policy()
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	gen := openapi.NewGenerator(openapi.GeneratorConfig{
		Timeout: env.cfg.HTTP.FetchTimeout,
		Retry:   policy,
	}, env.logger)

	// 没有 --output 时配置写到 stdout，说明信息改写到 stderr
	info := a.stdout
	if output == "" {
		info = a.stderr
	}

	fmt.Fprintf(info, "Parsing OpenAPI spec: %s\n", spec)
	doc, err := gen.LoadSpec(ctx, spec)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}

	if verbose {
		title := doc.Info.Title
		if title == "" {
			title = "Unknown"
		}
		fmt.Fprintf(info, "\nAPI: %s\n", title)
		fmt.Fprintf(info, "Base URL: %s\n", doc.BaseURL())
		fmt.Fprintf(info, "Provider: %s\n", openapi.ProviderName(doc.Info.Title))

		candidates := doc.FindChatEndpoints()
		fmt.Fprintf(info, "\nFound %d potential chat endpoints:\n", len(candidates))
		for i, c := range candidates {
			if i == maxShownCandidates {
				break
			}
			fmt.Fprintf(info, "  %s\n", c)
			if c.Summary != "" {
				fmt.Fprintf(info, "       %s\n", c.Summary)
			}
		}

		auth := doc.DetectAuth()
		fmt.Fprintf(info, "\nAuth: %s - %s\n", auth.Location, auth.KeyName)
	}

	cfg, err := gen.Generate(doc, openapi.GenerateOptions{Model: model, BaseURL: baseURL, Name: name})
	if err != nil {
		if errors.Is(err, openapi.ErrNoChatEndpoint) {
			fmt.Fprintf(a.stderr, "\nError: %v\n", err)
		} else {
			fmt.Fprintf(a.stderr, "\nError: generate config: %v\n", err)
		}
		return 1
	}

	if output == "" {
		data, err := cfg.Marshal()
		if err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", err)
			return 1
		}
		_, _ = a.stdout.Write(data)
	} else {
		if err := cfg.Save(output); err != nil {
			fmt.Fprintf(a.stderr, "\nError: %v\n", err)
			return 1
		}
		fmt.Fprintf(info, "\nGenerated config: %s\n", output)
	}

	fmt.Fprintln(info, "\nConfig summary:")
	fmt.Fprintf(info, "  Name: %s\n", cfg.Name)
	fmt.Fprintf(info, "  Provider: %s\n", cfg.Provider)
	fmt.Fprintf(info, "  Endpoint: %s\n", cfg.Request.Endpoint)
	fmt.Fprintf(info, "  Prompt field: %s\n", cfg.Request.PromptField)
	fmt.Fprintf(info, "  Response field: %s\n", cfg.Response.ResponseField)
	if len(cfg.Request.ExtraHeaders) > 0 {
		fmt.Fprintln(info, "  Extra headers are drafts taken from schema examples; review them before use.")
	}
	return 0
}
