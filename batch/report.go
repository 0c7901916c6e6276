package batch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Summary aggregates a list of results.
type Summary struct {
	Total         int            `json:"total"`
	Good          int            `json:"good"`
	Bad           int            `json:"bad"`
	Errors        int            `json:"errors"`
	TotalRetries  int            `json:"total_retries"`
	AvgLatencyMS  float64        `json:"avg_latency_ms"`
	AvgConfidence float64        `json:"avg_confidence"`
	ErrorKinds    map[string]int `json:"error_kinds,omitempty"`
}

// Summarize computes counts and averages. AvgConfidence ignores error verdicts.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	if s.Total == 0 {
		return s
	}

	var latency int64
	var confidence float64
	for _, r := range results {
		latency += r.LatencyMS
		s.TotalRetries += r.Retries
		switch r.Verdict {
		case VerdictGood:
			s.Good++
		case VerdictBad:
			s.Bad++
		case VerdictError:
			s.Errors++
			kind := string(r.ErrorKind)
			if kind == "" {
				kind = "unknown"
			}
			if s.ErrorKinds == nil {
				s.ErrorKinds = make(map[string]int)
			}
			s.ErrorKinds[kind]++
			continue
		}
		confidence += r.Confidence
	}

	s.AvgLatencyMS = float64(latency) / float64(s.Total)
	if n := s.Total - s.Errors; n > 0 {
		s.AvgConfidence = confidence / float64(n)
	}
	return s
}

// Report is the exported record of one scan run.
type Report struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Config    string    `json:"config"`
	Provider  string    `json:"provider,omitempty"`
	Total     int       `json:"total"`
	Summary   Summary   `json:"summary"`
	Results   []Result  `json:"results"`
}

// NewReport builds a report with a fresh run id.
func NewReport(configName, provider string, results []Result) *Report {
	if results == nil {
		results = []Result{}
	}
	return &Report{
		RunID:     uuid.NewString(),
		Timestamp: time.Now(),
		Config:    configName,
		Provider:  provider,
		Total:     len(results),
		Summary:   Summarize(results),
		Results:   results,
	}
}

// WriteJSON writes the report as indented JSON, creating parent directories.
func (r *Report) WriteJSON(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

const rule = "============================================================"

// PrintSummary writes the human-readable summary, error breakdown and bad responses.
func PrintSummary(w io.Writer, configName string, results []Result) {
	fmt.Fprintf(w, "\n%s\nSCAN SUMMARY - %s\n%s\n", rule, configName, rule)

	s := Summarize(results)
	if s.Total == 0 {
		fmt.Fprintf(w, "No prompts scanned.\n%s\n", rule)
		return
	}

	pct := func(n int) float64 { return 100 * float64(n) / float64(s.Total) }
	fmt.Fprintf(w, "Total prompts:     %d\n", s.Total)
	fmt.Fprintf(w, "Good responses:    %d (%.1f%%)\n", s.Good, pct(s.Good))
	fmt.Fprintf(w, "Bad responses:     %d (%.1f%%)\n", s.Bad, pct(s.Bad))
	fmt.Fprintf(w, "Errors:            %d (%.1f%%)\n", s.Errors, pct(s.Errors))
	fmt.Fprintf(w, "Avg latency:       %.0fms\n", s.AvgLatencyMS)
	fmt.Fprintf(w, "Avg confidence:    %.2f\n", s.AvgConfidence)
	if s.TotalRetries > 0 {
		fmt.Fprintf(w, "Total retries:     %d\n", s.TotalRetries)
	}
	fmt.Fprintln(w, rule)

	if s.Errors > 0 {
		fmt.Fprintln(w, "\nERRORS:")
		kinds := make([]string, 0, len(s.ErrorKinds))
		for k := range s.ErrorKinds {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool {
			if s.ErrorKinds[kinds[i]] != s.ErrorKinds[kinds[j]] {
				return s.ErrorKinds[kinds[i]] > s.ErrorKinds[kinds[j]]
			}
			return kinds[i] < kinds[j]
		})
		for _, k := range kinds {
			fmt.Fprintf(w, "  %s: %d\n", k, s.ErrorKinds[k])
		}
		fmt.Fprintln(w)
	}

	if s.Bad > 0 {
		fmt.Fprintln(w, "\nBAD RESPONSES:")
		for _, r := range results {
			if r.Verdict != VerdictBad {
				continue
			}
			resp := "N/A"
			if r.Response != nil {
				resp = truncate(*r.Response, 100)
			}
			fmt.Fprintf(w, "  Prompt: %s...\n", truncate(r.Prompt, 50))
			fmt.Fprintf(w, "  Response: %s...\n\n", resp)
		}
	}
}

// ProgressLine formats one progress entry for a finished prompt.
func ProgressLine(i, total int, r Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d/%d] %s...\n", i+1, total, truncate(r.Prompt, 40))
	fmt.Fprintf(&b, "         %s (confidence: %.2f, latency: %dms)", r.Verdict, r.Confidence, r.LatencyMS)
	if r.Verdict == VerdictError && r.Error != nil {
		fmt.Fprintf(&b, " %s", *r.Error)
	}
	return b.String()
}
