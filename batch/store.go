package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/BaSui01/uniconnect/internal/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ScanRun is one persisted scan run.
type ScanRun struct {
	ID            string    `gorm:"primaryKey;size:36"`
	Config        string    `gorm:"index"`
	Provider      string
	StartedAt     time.Time `gorm:"index"`
	Total         int
	Good          int
	Bad           int
	Errors        int
	TotalRetries  int
	AvgLatencyMS  float64
	AvgConfidence float64
}

// ScanRecord is one persisted prompt result.
type ScanRecord struct {
	ID         uint   `gorm:"primaryKey"`
	RunID      string `gorm:"index;size:36"`
	Seq        int
	Prompt     string
	Response   *string
	Verdict    string `gorm:"index"`
	Confidence float64
	LatencyMS  int64
	Error      *string
	ErrorKind  string
	Retries    int
}

// Store keeps scan history in SQLite.
type Store struct {
	db     *database.DB
	logger *zap.Logger
}

// OpenStore opens or creates the history database at path and migrates the schema.
func OpenStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := database.Open(database.DefaultConfig(path), logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(&ScanRun{}, &ScanRecord{}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate scan history: %w", err)
	}
	return &Store{db: db, logger: logger.With(zap.String("component", "scan_store"))}, nil
}

// SaveReport persists the run and its results in one transaction.
func (s *Store) SaveReport(ctx context.Context, r *Report) error {
	run := ScanRun{
		ID:            r.RunID,
		Config:        r.Config,
		Provider:      r.Provider,
		StartedAt:     r.Timestamp,
		Total:         r.Summary.Total,
		Good:          r.Summary.Good,
		Bad:           r.Summary.Bad,
		Errors:        r.Summary.Errors,
		TotalRetries:  r.Summary.TotalRetries,
		AvgLatencyMS:  r.Summary.AvgLatencyMS,
		AvgConfidence: r.Summary.AvgConfidence,
	}
	records := make([]ScanRecord, len(r.Results))
	for i, res := range r.Results {
		records[i] = ScanRecord{
			RunID:      r.RunID,
			Seq:        i,
			Prompt:     res.Prompt,
			Response:   res.Response,
			Verdict:    string(res.Verdict),
			Confidence: res.Confidence,
			LatencyMS:  res.LatencyMS,
			Error:      res.Error,
			ErrorKind:  string(res.ErrorKind),
			Retries:    res.Retries,
		}
	}

	err := s.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 100).Error
	})
	if err != nil {
		return fmt.Errorf("save scan run %s: %w", r.RunID, err)
	}
	s.logger.Debug("scan run saved", zap.String("run_id", r.RunID), zap.Int("records", len(records)))
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]ScanRun, error) {
	q := s.db.Gorm().WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []ScanRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list scan runs: %w", err)
	}
	return runs, nil
}

// Records returns a run's results in scan order.
func (s *Store) Records(ctx context.Context, runID string) ([]ScanRecord, error) {
	var recs []ScanRecord
	err := s.db.Gorm().WithContext(ctx).
		Where("run_id = ?", runID).
		Order("seq ASC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("load scan records: %w", err)
	}
	return recs, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
