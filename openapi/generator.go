package openapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/uniconnect/connector"
	"github.com/BaSui01/uniconnect/retry"
	"github.com/BaSui01/uniconnect/types"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	defaultMaxTokens  = 1024
	defaultErrorField = "error.message"
	maxSpecBytes      = 16 << 20
)

// ErrNoChatEndpoint is returned when no POST operation scores above zero.
var ErrNoChatEndpoint = errors.New("no suitable chat endpoint found in spec")

// Generator loads OpenAPI documents and derives connector configs from them.
type Generator struct {
	httpClient *http.Client
	policy     retry.Policy
	logger     *zap.Logger
	cache      map[string]*Document
	mu         sync.RWMutex
	group      singleflight.Group
}

// GeneratorConfig configures the generator.
type GeneratorConfig struct {
	Timeout time.Duration
	// Retry governs remote spec downloads. The zero value uses retry.DefaultPolicy.
	Retry retry.Policy
}

// NewGenerator creates a new config generator.
func NewGenerator(config GeneratorConfig, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	policy := config.Retry
	if policy.MaxRetries == 0 && policy.BaseDelay == 0 && policy.RetryOn == nil {
		policy = retry.DefaultPolicy()
	}
	return &Generator{
		httpClient: &http.Client{Timeout: timeout},
		policy:     policy.Normalize(),
		logger:     logger.With(zap.String("component", "openapi_generator")),
		cache:      make(map[string]*Document),
	}
}

// LoadSpec loads an OpenAPI document from an http(s) URL or a file path.
// Documents are cached per source; concurrent loads of one source share a fetch.
func (g *Generator) LoadSpec(ctx context.Context, source string) (*Document, error) {
	g.mu.RLock()
	if doc, ok := g.cache[source]; ok {
		g.mu.RUnlock()
		return doc, nil
	}
	g.mu.RUnlock()

	v, err, _ := g.group.Do(source, func() (any, error) {
		var data []byte
		var err error
		if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
			data, err = g.fetchFromURL(ctx, source)
		} else {
			data, err = os.ReadFile(source)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load spec: %w", err)
		}

		doc, err := Parse(data)
		if err != nil {
			return nil, err
		}

		g.mu.Lock()
		g.cache[source] = doc
		g.mu.Unlock()

		g.logger.Info("loaded OpenAPI spec",
			zap.String("source", source),
			zap.String("title", doc.Info.Title),
			zap.String("version", doc.Info.Version),
			zap.Int("paths", doc.Paths.Len()),
		)
		return doc, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Document), nil
}

func (g *Generator) fetchFromURL(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	_, err := retry.Do(ctx, g.policy, g.logger, func(int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := g.httpClient.Do(req)
		if err != nil {
			return types.NewError(connector.ClassifyError(err), "fetch spec").WithCause(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			_, _ = io.Copy(io.Discard, resp.Body)
			kind := connector.ClassifyStatus(resp.StatusCode)
			if kind == types.KindSuccess {
				kind = types.KindUnknown
			}
			return types.NewError(kind, fmt.Sprintf("HTTP %d", resp.StatusCode)).WithHTTPStatus(resp.StatusCode)
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxSpecBytes))
		if err != nil {
			return types.NewError(connector.ClassifyError(err), "read spec").WithCause(err)
		}
		return nil
	})
	return body, err
}

// GenerateOptions tunes the generated config.
type GenerateOptions struct {
	// Model overrides the model found in the request schema.
	Model string
	// BaseURL overrides servers[0].url.
	BaseURL string
	// Name overrides info.title.
	Name string
}

// Generate derives a connector config from the best-scoring chat endpoint.
// Required header values are unverified drafts taken from schema examples.
func (g *Generator) Generate(doc *Document, opts GenerateOptions) (*connector.Config, error) {
	candidates := doc.FindChatEndpoints()
	if len(candidates) == 0 {
		return nil, ErrNoChatEndpoint
	}
	best := candidates[0]

	auth := doc.DetectAuth()
	promptField, static := doc.InferPromptField(best.RequestSchema)
	responseField := doc.InferResponseField(best.ResponseSchema)

	props := doc.properties(best.RequestSchema)
	if opts.Model != "" {
		static["model"] = opts.Model
	} else if ms := doc.ResolveSchema(props["model"]); ms != nil {
		if ms.Example != nil {
			static["model"] = ms.Example
		} else if ms.Default != nil {
			static["model"] = ms.Default
		}
	}
	for _, req := range doc.required(best.RequestSchema) {
		if req == "max_tokens" {
			static["max_tokens"] = defaultMaxTokens
			break
		}
	}

	headers := map[string]string{}
	for _, h := range best.RequiredHeaders {
		if h.Name == "" {
			continue
		}
		if auth.Location == connector.AuthHeader && strings.EqualFold(h.Name, auth.KeyName) {
			continue
		}
		headers[h.Name] = h.Value
	}

	name := opts.Name
	if name == "" {
		name = doc.Info.Title
	}
	if name == "" {
		name = "Unknown API"
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = doc.BaseURL()
	}

	cfg := &connector.Config{
		Name:     name,
		Provider: ProviderName(doc.Info.Title),
		Version:  connector.DefaultVersion,
		BaseURL:  baseURL,
		Auth:     &auth,
		Request: &connector.RequestSpec{
			Endpoint:     best.Path,
			Method:       http.MethodPost,
			PromptField:  promptField,
			StaticFields: static,
			ContentType:  connector.DefaultContentType,
			ExtraHeaders: headers,
		},
		Response: &connector.ResponseSpec{
			ResponseField: responseField,
			ErrorField:    defaultErrorField,
		},
		TimeoutSeconds: connector.DefaultTimeoutSeconds,
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("generated config for %s: %w", best.Path, err)
	}

	g.logger.Info("generated connector config",
		zap.String("endpoint", best.Path),
		zap.Float64("score", best.Score),
		zap.String("provider", cfg.Provider),
		zap.String("prompt_field", promptField),
		zap.String("response_field", responseField),
		zap.String("auth", string(auth.Location)),
		zap.Int("candidates", len(candidates)),
	)
	return cfg, nil
}
