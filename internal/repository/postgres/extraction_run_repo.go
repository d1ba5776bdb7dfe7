package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"aria/internal/domain"
	"aria/internal/port"
)

// createAttempts bounds retries when two passes for one conversation race for the same number.
const createAttempts = 3

type extractionRunRepo struct {
	db *sqlx.DB
}

// NewExtractionRunRepo creates a new PostgreSQL-backed ExtractionRunRepository.
func NewExtractionRunRepo(db *sqlx.DB) port.ExtractionRunRepository {
	return &extractionRunRepo{db: db}
}

func (r *extractionRunRepo) Create(ctx context.Context, run *domain.ExtractionRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now().UTC()

	query := `INSERT INTO extraction_runs
		(id, conversation_id, pass, transaction_type, status, record,
		 conversation_hash, model_used, duration_ms, created_at)
		VALUES ($1, $2,
		 COALESCE((SELECT MAX(pass) FROM extraction_runs WHERE conversation_id = $2), 0) + 1,
		 $3, $4, $5, $6, $7, $8, $9)
		RETURNING pass`

	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		err = r.db.GetContext(ctx, &run.Pass, query,
			run.ID, run.ConversationID, run.TransactionType, run.Status, []byte(run.Record),
			run.ConversationHash, run.ModelUsed, run.DurationMS, run.CreatedAt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "duplicate key") {
			break
		}
	}
	return fmt.Errorf("extractionRunRepo.Create: %w", err)
}

func (r *extractionRunRepo) GetLatest(ctx context.Context, conversationID string) (*domain.ExtractionRun, error) {
	var run domain.ExtractionRun
	err := r.db.GetContext(ctx, &run,
		`SELECT * FROM extraction_runs WHERE conversation_id = $1
		 ORDER BY pass DESC LIMIT 1`, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("extractionRunRepo.GetLatest: %w", err)
	}
	return &run, nil
}

func (r *extractionRunRepo) ListByConversation(ctx context.Context, conversationID string, offset, limit int) ([]domain.ExtractionRun, int, error) {
	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM extraction_runs WHERE conversation_id = $1", conversationID)
	if err != nil {
		return nil, 0, fmt.Errorf("extractionRunRepo.ListByConversation count: %w", err)
	}

	var runs []domain.ExtractionRun
	err = r.db.SelectContext(ctx, &runs,
		`SELECT * FROM extraction_runs WHERE conversation_id = $1
		 ORDER BY pass ASC LIMIT $2 OFFSET $3`,
		conversationID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("extractionRunRepo.ListByConversation: %w", err)
	}
	return runs, total, nil
}

// ListLatestByType returns the newest pass of every conversation whose latest
// pass is of txType, most recent first.
func (r *extractionRunRepo) ListLatestByType(ctx context.Context, txType domain.TransactionType, offset, limit int) ([]domain.ExtractionRun, int, error) {
	const latest = `SELECT DISTINCT ON (conversation_id) *
		FROM extraction_runs
		ORDER BY conversation_id, pass DESC`

	var total int
	err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM (`+latest+`) l WHERE l.transaction_type = $1`, txType)
	if err != nil {
		return nil, 0, fmt.Errorf("extractionRunRepo.ListLatestByType count: %w", err)
	}

	var runs []domain.ExtractionRun
	err = r.db.SelectContext(ctx, &runs,
		`SELECT * FROM (`+latest+`) l WHERE l.transaction_type = $1
		 ORDER BY l.created_at DESC LIMIT $2 OFFSET $3`,
		txType, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("extractionRunRepo.ListLatestByType: %w", err)
	}
	return runs, total, nil
}
