package batch

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BaSui01/uniconnect/types"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Result is the outcome of scanning one prompt.
type Result struct {
	Prompt     string          `json:"prompt"`
	Response   *string         `json:"response"`
	Verdict    Verdict         `json:"verdict"`
	Confidence float64         `json:"confidence"`
	LatencyMS  int64           `json:"latency_ms"`
	Error      *string         `json:"error"`
	ErrorKind  types.ErrorKind `json:"error_type,omitempty"`
	Retries    int             `json:"retries"`
}

// VerdictObserver is notified of every scanned prompt.
type VerdictObserver interface {
	ObserveVerdict(verdict string, confidence float64)
}

// ProgressFunc reports each finished prompt. i is 0-based.
type ProgressFunc func(i, total int, r Result)

// Option configures a Scanner.
type Option func(*Scanner)

// WithAnalyzer replaces the default mock analyzer.
func WithAnalyzer(a Analyzer) Option {
	return func(s *Scanner) {
		if a != nil {
			s.analyzer = a
		}
	}
}

// WithRateLimit paces sends to rps prompts per second. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Scanner) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scanner) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(s *Scanner) { s.progress = fn }
}

// WithVerdictObserver registers a verdict observer, usually a metrics collector.
func WithVerdictObserver(o VerdictObserver) Option {
	return func(s *Scanner) { s.observer = o }
}

// Scanner sends a list of prompts one after another and judges each response.
type Scanner struct {
	sender   Sender
	analyzer Analyzer
	limiter  *rate.Limiter
	logger   *zap.Logger
	progress ProgressFunc
	observer VerdictObserver
}

// NewScanner creates a Scanner. Without WithAnalyzer it uses a time-seeded MockAnalyzer.
func NewScanner(sender Sender, opts ...Option) *Scanner {
	s := &Scanner{
		sender: sender,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.analyzer == nil {
		s.analyzer = NewMockAnalyzer(time.Now().UnixNano())
	}
	s.logger = s.logger.With(zap.String("component", "scanner"))
	return s
}

// ScanPrompt sends one prompt and analyzes the answer. Failed sends get VerdictError.
func (s *Scanner) ScanPrompt(ctx context.Context, prompt string) Result {
	start := time.Now()
	resp := s.sender.Send(ctx, prompt)
	latency := time.Since(start).Milliseconds()
	if resp.LatencyMS > 0 {
		latency = resp.LatencyMS
	}

	if !resp.Success {
		msg := resp.Error
		return Result{
			Prompt:    prompt,
			Verdict:   VerdictError,
			LatencyMS: latency,
			Error:     &msg,
			ErrorKind: resp.ErrorKind,
			Retries:   resp.Retries,
		}
	}

	verdict, confidence := s.analyzer.Analyze(ctx, prompt, resp.Content)
	content := resp.Content
	return Result{
		Prompt:     prompt,
		Response:   &content,
		Verdict:    verdict,
		Confidence: confidence,
		LatencyMS:  latency,
		Retries:    resp.Retries,
	}
}

// ScanAll scans prompts in order. It stops early, returning the results so far
// and ctx's error, when ctx is cancelled.
func (s *Scanner) ScanAll(ctx context.Context, prompts []string) ([]Result, error) {
	results := make([]Result, 0, len(prompts))
	for i, prompt := range prompts {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return results, err
			}
		} else if err := ctx.Err(); err != nil {
			return results, err
		}

		r := s.ScanPrompt(ctx, prompt)
		results = append(results, r)

		s.logger.Debug("prompt scanned",
			zap.Int("index", i),
			zap.String("verdict", string(r.Verdict)),
			zap.Int64("latency_ms", r.LatencyMS),
			zap.Int("retries", r.Retries),
		)
		if s.observer != nil {
			s.observer.ObserveVerdict(string(r.Verdict), r.Confidence)
		}
		if s.progress != nil {
			s.progress(i, len(prompts), r)
		}
	}
	return results, nil
}

// LoadPrompts reads one prompt per line, trimming whitespace and skipping blank lines.
func LoadPrompts(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}
	defer f.Close()

	var prompts []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			prompts = append(prompts, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read prompts: %w", err)
	}
	return prompts, nil
}
