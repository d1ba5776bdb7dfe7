package postgres_test

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aria/internal/domain"
	"aria/internal/port"
	"aria/internal/repository/postgres"
)

// openTestDB connects to ARIA_TEST_DATABASE_URL and applies the schema. Tests are
// skipped when the variable is unset.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("ARIA_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ARIA_TEST_DATABASE_URL not set")
	}
	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	schema, err := os.ReadFile("../../../db/migrations/000001_create_extraction_runs.up.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(schema))
	require.NoError(t, err)
	return db
}

func newRun(convID string, txType domain.TransactionType, status domain.TransactionStatus) *domain.ExtractionRun {
	return &domain.ExtractionRun{
		ConversationID:   convID,
		TransactionType:  txType,
		Status:           status,
		Record:           json.RawMessage(`{"transaction_type":"` + string(txType) + `"}`),
		ConversationHash: "0000000000000000000000000000000000000000000000000000000000000000",
		ModelUsed:        "test",
	}
}

func create(t *testing.T, repo port.ExtractionRunRepository, run *domain.ExtractionRun) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), run))
}

func TestExtractionRunRepo_PassNumbering(t *testing.T) {
	repo := postgres.NewExtractionRunRepo(openTestDB(t))
	ctx := context.Background()
	convID := "conv-" + uuid.NewString()

	first := newRun(convID, domain.TransactionTypeHotelBooking, domain.TransactionStatusInquiring)
	create(t, repo, first)
	second := newRun(convID, domain.TransactionTypeHotelBooking, domain.TransactionStatusPending)
	create(t, repo, second)

	assert.Equal(t, 1, first.Pass)
	assert.Equal(t, 2, second.Pass)

	latest, err := repo.GetLatest(ctx, convID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.Pass)
	assert.Equal(t, domain.TransactionStatusPending, latest.Status)
	assert.JSONEq(t, string(second.Record), string(latest.Record))

	runs, total, err := repo.ListByConversation(ctx, convID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, runs, 2)
	assert.Equal(t, 1, runs[0].Pass)
}

func TestExtractionRunRepo_ConcurrentCreate(t *testing.T) {
	repo := postgres.NewExtractionRunRepo(openTestDB(t))
	convID := "conv-" + uuid.NewString()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = repo.Create(context.Background(), newRun(convID, domain.TransactionTypeBillPayment, domain.TransactionStatusInquiring))
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	_, total, err := repo.ListByConversation(context.Background(), convID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestExtractionRunRepo_GetLatest_NotFound(t *testing.T) {
	repo := postgres.NewExtractionRunRepo(openTestDB(t))

	_, err := repo.GetLatest(context.Background(), "conv-"+uuid.NewString())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExtractionRunRepo_ListLatestByType(t *testing.T) {
	repo := postgres.NewExtractionRunRepo(openTestDB(t))
	ctx := context.Background()

	// The first conversation changed type on its second pass and must only count as a purchase.
	switched := "conv-" + uuid.NewString()
	create(t, repo, newRun(switched, domain.TransactionTypeBillPayment, domain.TransactionStatusInquiring))
	create(t, repo, newRun(switched, domain.TransactionTypeProductPurchase, domain.TransactionStatusInquiring))
	stayed := "conv-" + uuid.NewString()
	create(t, repo, newRun(stayed, domain.TransactionTypeProductPurchase, domain.TransactionStatusPending))

	runs, _, err := repo.ListLatestByType(ctx, domain.TransactionTypeProductPurchase, 0, 1000)
	require.NoError(t, err)
	ids := map[string]int{}
	for _, r := range runs {
		ids[r.ConversationID] = r.Pass
	}
	assert.Equal(t, 2, ids[switched])
	assert.Equal(t, 1, ids[stayed])

	bills, _, err := repo.ListLatestByType(ctx, domain.TransactionTypeBillPayment, 0, 1000)
	require.NoError(t, err)
	for _, r := range bills {
		assert.NotEqual(t, switched, r.ConversationID)
	}
}
