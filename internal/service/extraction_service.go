package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"aria/internal/domain"
	"aria/internal/export"
	"aria/internal/extraction"
	"aria/internal/logger"
	"aria/internal/metrics"
	"aria/internal/port"
)

const (
	exportPageSize = 500
	maxExportRows  = 10000
)

// ExtractInput is one extraction request. An empty ConversationID runs a
// stateless pass that is neither persisted nor carried forward.
type ExtractInput struct {
	ConversationID string    `json:"conversation_id"`
	Conversation   string    `json:"conversation"`
	ReferenceTime  time.Time `json:"reference_time"`
}

// ExtractResult is a finished pass.
type ExtractResult struct {
	Record          *domain.TransactionRecord
	Run             *domain.ExtractionRun
	HandedOff       bool
	FieldProvenance map[string]string
}

// BatchResult is the outcome for one conversation of a batch.
type BatchResult struct {
	ConversationID string
	Result         *ExtractResult
	Err            error
}

// ExtractionConfig holds settings for the extraction service.
type ExtractionConfig struct {
	Concurrency   int
	MaxBatch      int
	ArchiveBucket string
	ArchivePrefix string
}

// ExtractionService defines the extraction contract exposed to handlers and the CLI.
type ExtractionService interface {
	Extract(ctx context.Context, input ExtractInput) (*ExtractResult, error)
	ExtractBatch(ctx context.Context, inputs []ExtractInput) ([]BatchResult, error)
	GetLatest(ctx context.Context, conversationID string) (*domain.ExtractionRun, error)
	ListByConversation(ctx context.Context, conversationID string, offset, limit int) ([]domain.ExtractionRun, int, error)
	ExportConversation(ctx context.Context, conversationID string) ([]export.Sheet, error)
	ExportLatest(ctx context.Context, txType domain.TransactionType) (*export.Sheet, error)
}

type extractionService struct {
	coordinator *extraction.Coordinator
	runRepo     port.ExtractionRunRepository
	storage     port.ObjectStorage
	notifier    port.HandoffNotifier
	metrics     *metrics.Metrics
	cfg         ExtractionConfig
	log         zerolog.Logger
}

// NewExtractionService creates a new ExtractionService implementation.
// storage may be nil to disable archiving.
func NewExtractionService(
	coordinator *extraction.Coordinator,
	runRepo port.ExtractionRunRepository,
	storage port.ObjectStorage,
	notifier port.HandoffNotifier,
	m *metrics.Metrics,
	cfg ExtractionConfig,
	log zerolog.Logger,
) ExtractionService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &extractionService{
		coordinator: coordinator,
		runRepo:     runRepo,
		storage:     storage,
		notifier:    notifier,
		metrics:     m,
		cfg:         cfg,
		log:         log,
	}
}

func (s *extractionService) Extract(ctx context.Context, input ExtractInput) (*ExtractResult, error) {
	conversation := strings.TrimSpace(input.Conversation)
	if conversation == "" {
		return nil, domain.ErrInvalidConversation
	}
	convID := strings.TrimSpace(input.ConversationID)
	log := logger.FromContext(ctx, s.log).With().Str("conversation_id", convID).Logger()

	var prior *domain.TransactionRecord
	if convID != "" {
		var err error
		prior, err = s.loadPrior(ctx, convID, log)
		if err != nil {
			return nil, err
		}
	}

	in := extraction.Input{Conversation: conversation, ReferenceTime: input.ReferenceTime}
	if prior != nil {
		t := prior.Type()
		in.PriorType = &t
		in.Prior = prior
	}

	start := time.Now()
	out, err := s.coordinator.Run(logger.WithContext(ctx, log), in)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveFailure(failureReason(err), elapsed)
		log.Warn().Err(err).Msg("extractionService.Extract: pass failed")
		return nil, err
	}
	s.metrics.ObservePass(out.Record, elapsed)

	result := &ExtractResult{Record: out.Record, FieldProvenance: out.FieldProvenance}
	if convID == "" {
		return result, nil
	}

	body, err := json.Marshal(out.Record)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	run := &domain.ExtractionRun{
		ConversationID:   convID,
		TransactionType:  out.Record.Type(),
		Status:           out.Record.Status(),
		Record:           body,
		ConversationHash: ConversationHash(conversation),
		ModelUsed:        out.ModelUsed,
		DurationMS:       elapsed.Milliseconds(),
	}
	if err := s.runRepo.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("saving extraction run: %w", err)
	}
	result.Run = run

	log.Info().Int("pass", run.Pass).Str("transaction_type", string(run.TransactionType)).
		Str("status", string(run.Status)).Int64("duration_ms", run.DurationMS).
		Msg("extractionService.Extract: pass saved")

	s.archive(ctx, run, log)

	if out.Record.Status() == domain.TransactionStatusCompleted &&
		(prior == nil || prior.Status() != domain.TransactionStatusCompleted) {
		result.HandedOff = s.handoff(ctx, run, out.Record, log)
	}
	return result, nil
}

// loadPrior returns the record of the conversation's latest pass, or nil when there is
// none or it no longer satisfies the current schemas.
func (s *extractionService) loadPrior(ctx context.Context, convID string, log zerolog.Logger) (*domain.TransactionRecord, error) {
	run, err := s.runRepo.GetLatest(ctx, convID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading prior pass: %w", err)
	}
	rec, err := extraction.DecodeRecord(s.coordinator.Registry(), run.Record)
	if err != nil {
		log.Warn().Err(err).Int("pass", run.Pass).Msg("extractionService.Extract: ignoring unreadable prior record")
		return nil, nil
	}
	return rec, nil
}

func (s *extractionService) archive(ctx context.Context, run *domain.ExtractionRun, log zerolog.Logger) {
	if s.storage == nil || s.cfg.ArchiveBucket == "" {
		return
	}
	key := path.Join(s.cfg.ArchivePrefix, run.ConversationID, strconv.Itoa(run.Pass)+".json")
	_, err := s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.ArchiveBucket,
		Key:         key,
		Body:        bytes.NewReader(run.Record),
		ContentType: "application/json",
		Size:        int64(len(run.Record)),
	})
	if err != nil {
		s.metrics.ArchiveFailures.Inc()
		log.Error().Err(err).Str("key", key).Msg("extractionService.Extract: archive upload failed")
	}
}

func (s *extractionService) handoff(ctx context.Context, run *domain.ExtractionRun, rec *domain.TransactionRecord, log zerolog.Logger) bool {
	if s.notifier == nil {
		return false
	}
	err := s.notifier.NotifyHandoff(ctx, port.Handoff{ConversationID: run.ConversationID, Pass: run.Pass, Record: rec})
	if err != nil {
		s.metrics.HandoffsTotal.WithLabelValues("failed").Inc()
		log.Error().Err(err).Int("pass", run.Pass).Msg("extractionService.Extract: handoff failed")
		return false
	}
	s.metrics.HandoffsTotal.WithLabelValues("sent").Inc()
	return true
}

// ExtractBatch runs independent conversations concurrently, bounded by the configured
// concurrency. Results are returned in input order; per-conversation failures are
// reported in BatchResult.Err.
func (s *extractionService) ExtractBatch(ctx context.Context, inputs []ExtractInput) ([]BatchResult, error) {
	if s.cfg.MaxBatch > 0 && len(inputs) > s.cfg.MaxBatch {
		return nil, fmt.Errorf("%w: %d > %d", domain.ErrBatchTooLarge, len(inputs), s.cfg.MaxBatch)
	}
	seen := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		id := strings.TrimSpace(in.ConversationID)
		if id == "" {
			continue
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateConversation, id)
		}
		seen[id] = true
	}

	results := make([]BatchResult, len(inputs))
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup

	for i := range inputs {
		in := inputs[i]
		results[i].ConversationID = in.ConversationID

		select {
		case <-ctx.Done():
			results[i].Err = ctx.Err()
			continue
		case sem <- struct{}{}: // acquire
		}

		wg.Add(1)
		s.metrics.BatchInFlight.Inc()
		go func() {
			defer wg.Done()
			defer func() { <-sem }() // release
			defer s.metrics.BatchInFlight.Dec()

			res, err := s.Extract(ctx, in)
			results[i].Result = res
			results[i].Err = err
		}()
	}
	wg.Wait()

	return results, nil
}

func (s *extractionService) GetLatest(ctx context.Context, conversationID string) (*domain.ExtractionRun, error) {
	return s.runRepo.GetLatest(ctx, conversationID)
}

func (s *extractionService) ListByConversation(ctx context.Context, conversationID string, offset, limit int) ([]domain.ExtractionRun, int, error) {
	return s.runRepo.ListByConversation(ctx, conversationID, offset, limit)
}

// ExportConversation returns every pass of the conversation, one sheet per transaction type
// in registry order.
func (s *extractionService) ExportConversation(ctx context.Context, conversationID string) ([]export.Sheet, error) {
	var runs []domain.ExtractionRun
	for offset := 0; offset < maxExportRows; offset += exportPageSize {
		page, total, err := s.runRepo.ListByConversation(ctx, conversationID, offset, exportPageSize)
		if err != nil {
			return nil, err
		}
		runs = append(runs, page...)
		if len(runs) >= total || len(page) == 0 {
			break
		}
	}
	if len(runs) == 0 {
		return nil, domain.ErrNotFound
	}

	byType := make(map[domain.TransactionType][]export.Row)
	for i := range runs {
		row, ok := s.toRow(&runs[i])
		if ok {
			byType[runs[i].TransactionType] = append(byType[runs[i].TransactionType], row)
		}
	}

	var sheets []export.Sheet
	for _, t := range s.coordinator.Registry().AllTypes() {
		rows, ok := byType[t]
		if !ok {
			continue
		}
		specs, _ := s.coordinator.Registry().FieldsFor(t)
		sheets = append(sheets, export.Sheet{Type: t, Specs: specs, Rows: rows})
	}
	return sheets, nil
}

// ExportLatest returns the latest pass of every conversation currently of txType.
func (s *extractionService) ExportLatest(ctx context.Context, txType domain.TransactionType) (*export.Sheet, error) {
	specs, err := s.coordinator.Registry().FieldsFor(txType)
	if err != nil {
		return nil, err
	}
	sheet := &export.Sheet{Type: txType, Specs: specs}
	for offset := 0; offset < maxExportRows; offset += exportPageSize {
		page, total, err := s.runRepo.ListLatestByType(ctx, txType, offset, exportPageSize)
		if err != nil {
			return nil, err
		}
		for i := range page {
			if row, ok := s.toRow(&page[i]); ok {
				sheet.Rows = append(sheet.Rows, row)
			}
		}
		if offset+len(page) >= total || len(page) == 0 {
			break
		}
	}
	return sheet, nil
}

func (s *extractionService) toRow(run *domain.ExtractionRun) (export.Row, bool) {
	rec, err := extraction.DecodeRecord(s.coordinator.Registry(), run.Record)
	if err != nil {
		s.log.Warn().Err(err).Str("conversation_id", run.ConversationID).Int("pass", run.Pass).
			Msg("extractionService: skipping unreadable record in export")
		return export.Row{}, false
	}
	return export.Row{ConversationID: run.ConversationID, Pass: run.Pass, CreatedAt: run.CreatedAt, Record: rec}, true
}

// ConversationHash fingerprints the conversation text a pass was computed from.
func ConversationHash(conversation string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(conversation)))
	return hex.EncodeToString(sum[:])
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnknownTransactionType):
		return "unknown_type"
	case errors.Is(err, domain.ErrExtractionUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
