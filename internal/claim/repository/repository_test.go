package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	claimdomain "github.com/smallbiznis/chainpay/internal/claim/domain"
	"github.com/smallbiznis/chainpay/internal/migration"
)

func setupClaimTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := migration.RunMigrations(db); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db
}

var testIDSeq int64 = 1000

func nextID(t *testing.T) snowflake.ID {
	t.Helper()
	testIDSeq++
	return snowflake.ID(testIDSeq)
}

func newClaim(t *testing.T, paymentID snowflake.ID, hash string, chainID int64) *claimdomain.SignedClaim {
	t.Helper()
	claim := &claimdomain.SignedClaim{
		ID:               nextID(t),
		OrderPaymentID:   paymentID,
		RecipientAddress: "0x00000000000000000000000000000000000000aa",
		PrimaryCurrency:  "USD",
		LogicalAmount:    decimal.RequireFromString("100000000000000000000"),
		USDPerETH:        decimal.RequireFromString("4000"),
		SenderAddress:    "0x00000000000000000000000000000000000000bb",
		RawMessage:       `{"senderAddress":"0xbb"}`,
		Signature:        "0xsig",
	}
	if hash != "" {
		claim.TransactionHash = &hash
		claim.ChainID = &chainID
	}
	return claim
}

func mustInsert(t *testing.T, db *gorm.DB, repo claimdomain.Repository, claim *claimdomain.SignedClaim) {
	t.Helper()
	if err := repo.Insert(context.Background(), db, claim); err != nil {
		t.Fatalf("insert claim: %v", err)
	}
}

func TestInsertRejectsDuplicateTransactionHash(t *testing.T) {
	db := setupClaimTestDB(t)
	repo := Provide()

	mustInsert(t, db, repo, newClaim(t, 1, "0xabc", 1))

	err := repo.Insert(context.Background(), db, newClaim(t, 2, "0xabc", 1))
	if !errors.Is(err, claimdomain.ErrConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
}

func TestInsertNormalizesTransactionHash(t *testing.T) {
	db := setupClaimTestDB(t)
	repo := Provide()

	mustInsert(t, db, repo, newClaim(t, 1, "0xABC", 1))

	err := repo.Insert(context.Background(), db, newClaim(t, 2, "0xabc", 1))
	if !errors.Is(err, claimdomain.ErrConstraintViolation) {
		t.Fatalf("expected case-insensitive hash collision, got %v", err)
	}
}

func TestInsertRequiresChainIDWithHash(t *testing.T) {
	db := setupClaimTestDB(t)
	repo := Provide()

	claim := newClaim(t, 1, "0xdef", 1)
	claim.ChainID = nil
	if err := repo.Insert(context.Background(), db, claim); !errors.Is(err, claimdomain.ErrChainWithoutHash) {
		t.Fatalf("expected chain/hash pairing error, got %v", err)
	}

	claim = newClaim(t, 1, "", 0)
	chain := int64(10)
	claim.ChainID = &chain
	if err := repo.Insert(context.Background(), db, claim); !errors.Is(err, claimdomain.ErrChainWithoutHash) {
		t.Fatalf("expected chain/hash pairing error, got %v", err)
	}
}

func TestMarkConfirmedAllowsSingleClaim(t *testing.T) {
	db := setupClaimTestDB(t)
	repo := Provide()
	ctx := context.Background()

	claim := newClaim(t, 1, "0xaaa", 1)
	mustInsert(t, db, repo, claim)

	if err := repo.MarkConfirmed(ctx, db, claim.ID, "transfer verified"); err != nil {
		t.Fatalf("mark confirmed: %v", err)
	}

	stored, err := repo.FindConfirmedByPayment(ctx, db, 1)
	if err != nil {
		t.Fatalf("find confirmed: %v", err)
	}
	if stored == nil || stored.ID != claim.ID {
		t.Fatalf("expected claim %d confirmed, got %+v", claim.ID, stored)
	}
	if !stored.IsConfirmed || stored.VerificationFailedPermanently {
		t.Fatalf("outcome fields inconsistent: %+v", stored)
	}
	if stored.VerificationExplanation != "transfer verified" {
		t.Fatalf("explanation not recorded: %q", stored.VerificationExplanation)
	}
}

func TestMarkConfirmedIsIdempotent(t *testing.T) {
	db := setupClaimTestDB(t)
	repo := Provide()
	ctx := context.Background()

	claim := newClaim(t, 1, "0xaab", 1)
	mustInsert(t, db, repo, claim)

	if err := repo.MarkConfirmed(ctx, db, claim.ID, "ok"); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	if err := repo.MarkConfirmed(ctx, db, claim.ID, "ok again"); err != nil {
		t.Fatalf("repeat confirm should be a no-op, got %v", err)
	}
}

func TestMarkConfirmedRejectsSecondClaimOnSamePayment(t *testing.T) {
	db := setupClaimTestDB(t)
	repo := Provide()
	ctx := context.Background()

	first := newClaim(t, 1, "0xbb1", 1)
	second := newClaim(t, 1, "0xbb2", 1)
	mustInsert(t, db, repo, first)
	mustInsert(t, db, repo, second)

	if err := repo.MarkConfirmed(ctx, db, first.ID, "ok"); err != nil {
		t.Fatalf("confirm first: %v", err)
	}

	err := repo.MarkConfirmed(ctx, db, second.ID, "ok")
	if !errors.Is(err, claimdomain.ErrConstraintViolation) {
		t.Fatalf("expected constraint violation, got %v", err)
	}

	claims, err := repo.ListByPayment(ctx, db, 1)
	if err != nil {
		t.Fatalf("list claims: %v", err)
	}
	confirmed := 0
	for _, c := range claims {
		if c.IsConfirmed {
			confirmed++
		}
	}
	if confirmed != 1 {
		t.Fatalf("expected exactly one confirmed claim, got %d", confirmed)
	}
}

func TestMarkConfirmedRejectsHashConfirmedElsewhere(t *testing.T) {
	db := setupClaimTestDB(t)
	repo := Provide()
	ctx := context.Background()

	// Simulate pre-uniqueness legacy rows sharing a hash across payments.
	for i, paymentID := range []int64{1, 2} {
		if err := db.Exec(
			`INSERT INTO signed_claims (
				id, order_payment_id, created_at, recipient_address,
				primary_currency, logical_amount, sender_address, raw_message,
				signature, chain_id, transaction_hash
			) VALUES (?, ?, CURRENT_TIMESTAMP, '0xaa', 'USD', 1, '0xbb', 'm', 's', 1, ?)`,
			100+i,
			paymentID,
			fmt.Sprintf("0xshared-%d", i),
		).Error; err != nil {
			t.Fatalf("seed claim: %v", err)
		}
	}
	if err := db.Exec(
		`UPDATE signed_claims SET transaction_hash = '0xshared' WHERE id IN (100, 101)`,
	).Error; err == nil {
		t.Fatalf("expected unique index to reject shared hash")
	}

	// The partial index only covers non-null hashes, so a hashless claim
	// can coexist; confirming it must not trip the hash backstop.
	claim := newClaim(t, 3, "", 0)
	mustInsert(t, db, repo, claim)
	if err := repo.MarkConfirmed(ctx, db, claim.ID, "manual"); err != nil {
		t.Fatalf("confirm hashless claim: %v", err)
	}
}

func TestMarkConfirmedRejectsInvalidClaim(t *testing.T) {
	db := setupClaimTestDB(t)
	repo := Provide()
	ctx := context.Background()

	claim := newClaim(t, 1, "0xcc1", 1)
	mustInsert(t, db, repo, claim)

	if err := repo.MarkInvalid(ctx, db, claim.ID, "bad signature"); err != nil {
		t.Fatalf("mark invalid: %v", err)
	}
	err := repo.MarkConfirmed(ctx, db, claim.ID, "ok")
	if !errors.Is(err, claimdomain.ErrConstraintViolation) {
		t.Fatalf("expected invalid claim to stay unconfirmed, got %v", err)
	}
}

func TestMarkInvalidIsIdempotentAndMonotonic(t *testing.T) {
	db := setupClaimTestDB(t)
	repo := Provide()
	ctx := context.Background()

	claim := newClaim(t, 1, "0xdd1", 1)
	mustInsert(t, db, repo, claim)

	if err := repo.MarkInvalid(ctx, db, claim.ID, "amount mismatch"); err != nil {
		t.Fatalf("mark invalid: %v", err)
	}
	if err := repo.MarkInvalid(ctx, db, claim.ID, "different reason"); err != nil {
		t.Fatalf("repeat mark invalid: %v", err)
	}

	claims, err := repo.ListByPayment(ctx, db, 1)
	if err != nil {
		t.Fatalf("list claims: %v", err)
	}
	if len(claims) != 1 {
		t.Fatalf("expected 1 claim, got %d", len(claims))
	}
	got := claims[0]
	if !got.Invalid || !got.VerificationFailedPermanently || got.IsConfirmed {
		t.Fatalf("unexpected outcome fields: %+v", got)
	}
	if got.VerificationExplanation != "amount mismatch" {
		t.Fatalf("repeated invalidation overwrote explanation: %q", got.VerificationExplanation)
	}
}

func TestMarkInvalidNeverTouchesConfirmedClaim(t *testing.T) {
	db := setupClaimTestDB(t)
	repo := Provide()
	ctx := context.Background()

	claim := newClaim(t, 1, "0xee1", 1)
	mustInsert(t, db, repo, claim)
	if err := repo.MarkConfirmed(ctx, db, claim.ID, "ok"); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	if err := repo.MarkInvalid(ctx, db, claim.ID, "oops"); err != nil {
		t.Fatalf("mark invalid on confirmed claim should no-op, got %v", err)
	}

	stored, err := repo.FindConfirmedByPayment(ctx, db, 1)
	if err != nil {
		t.Fatalf("find confirmed: %v", err)
	}
	if stored == nil || stored.Invalid || !stored.IsConfirmed {
		t.Fatalf("confirmed claim mutated: %+v", stored)
	}
}

func TestListByPaymentKeepsSubmissionOrderAndInvalidClaims(t *testing.T) {
	db := setupClaimTestDB(t)
	repo := Provide()
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var ids []snowflake.ID
	for i := 0; i < 3; i++ {
		claim := newClaim(t, 7, fmt.Sprintf("0xord%d", i), 1)
		claim.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		mustInsert(t, db, repo, claim)
		ids = append(ids, claim.ID)
	}
	if err := repo.MarkInvalid(ctx, db, ids[0], "not mined"); err != nil {
		t.Fatalf("mark invalid: %v", err)
	}

	claims, err := repo.ListByPayment(ctx, db, 7)
	if err != nil {
		t.Fatalf("list claims: %v", err)
	}
	if len(claims) != 3 {
		t.Fatalf("invalid claims must stay listed, got %d", len(claims))
	}
	for i, claim := range claims {
		if claim.ID != ids[i] {
			t.Fatalf("claims out of submission order: %v", claims)
		}
	}
}

func TestAnotherClaimSubmittedIgnoresInvalidClaims(t *testing.T) {
	db := setupClaimTestDB(t)
	repo := Provide()
	ctx := context.Background()

	submitted, err := repo.AnotherClaimSubmitted(ctx, db, 9)
	if err != nil {
		t.Fatalf("another claim submitted: %v", err)
	}
	if submitted {
		t.Fatalf("no claims yet, expected false")
	}

	claim := newClaim(t, 9, "0xff1", 1)
	mustInsert(t, db, repo, claim)

	submitted, err = repo.AnotherClaimSubmitted(ctx, db, 9)
	if err != nil {
		t.Fatalf("another claim submitted: %v", err)
	}
	if !submitted {
		t.Fatalf("expected advisory signal once a valid claim exists")
	}

	if err := repo.MarkInvalid(ctx, db, claim.ID, "rejected"); err != nil {
		t.Fatalf("mark invalid: %v", err)
	}
	submitted, err = repo.AnotherClaimSubmitted(ctx, db, 9)
	if err != nil {
		t.Fatalf("another claim submitted: %v", err)
	}
	if submitted {
		t.Fatalf("invalidated claims must not block resubmission")
	}
}
