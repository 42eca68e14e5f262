package biz

import (
	"context"
	"math"
	"testing"

	apperrors "github.com/sealvault/sealvault-backend/internal/pkg/errors"
)

func TestSplitFee(t *testing.T) {
	tests := []struct {
		name          string
		amount        uint64
		bps           uint64
		wantFee       uint64
		wantRemainder uint64
	}{
		{name: "one percent", amount: 1000, bps: 100, wantFee: 10, wantRemainder: 990},
		{name: "zero rate", amount: 1000, bps: 0, wantFee: 0, wantRemainder: 1000},
		{name: "max rate", amount: 1000, bps: MaxFeeRateBps, wantFee: 100, wantRemainder: 900},
		{name: "floor division", amount: 99, bps: 100, wantFee: 0, wantRemainder: 99},
		{name: "floor division odd", amount: 10001, bps: 250, wantFee: 250, wantRemainder: 9751},
		{name: "zero amount", amount: 0, bps: 100, wantFee: 0, wantRemainder: 0},
		{
			name:          "huge payment does not wrap",
			amount:        math.MaxUint64 / 100,
			bps:           MaxFeeRateBps,
			wantFee:       18446744073709551,
			wantRemainder: math.MaxUint64/100 - 18446744073709551,
		},
		{
			name:          "max payment at max rate",
			amount:        math.MaxUint64,
			bps:           MaxFeeRateBps,
			wantFee:       1844674407370955161,
			wantRemainder: math.MaxUint64 - 1844674407370955161,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fee, remainder := SplitFee(tt.amount, tt.bps)
			if fee != tt.wantFee || remainder != tt.wantRemainder {
				t.Errorf("SplitFee(%d, %d) = (%d, %d), want (%d, %d)",
					tt.amount, tt.bps, fee, remainder, tt.wantFee, tt.wantRemainder)
			}
			if fee+remainder != tt.amount {
				t.Errorf("fee %d + remainder %d != amount %d", fee, remainder, tt.amount)
			}
		})
	}
}

// fakeLedgerRepo holds the singleton row in memory.
type fakeLedgerRepo struct {
	ledger *ProtocolLedger
}

func (r *fakeLedgerRepo) Bootstrap(_ context.Context, admin string, feeRateBps uint64, now int64) error {
	if r.ledger != nil {
		return nil // existing row wins
	}
	r.ledger = &ProtocolLedger{Admin: admin, FeeRateBps: feeRateBps, UpdatedAt: now}
	return nil
}

func (r *fakeLedgerRepo) Get(_ context.Context) (*ProtocolLedger, error) {
	if r.ledger == nil {
		return nil, apperrors.New(apperrors.ErrLedgerNotFound)
	}
	cp := *r.ledger
	return &cp, nil
}

func (r *fakeLedgerRepo) GetForUpdate(ctx context.Context) (*ProtocolLedger, error) {
	return r.Get(ctx)
}

func (r *fakeLedgerRepo) Save(_ context.Context, l *ProtocolLedger) error {
	cp := *l
	r.ledger = &cp
	return nil
}

type fakeActivityRepo struct {
	activities map[string]map[string]*UserActivity
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{activities: make(map[string]map[string]*UserActivity)}
}

func (r *fakeActivityRepo) Record(_ context.Context, userAddress, operation string, bytes uint64, now int64) error {
	if r.activities[userAddress] == nil {
		r.activities[userAddress] = make(map[string]*UserActivity)
	}
	a, ok := r.activities[userAddress][operation]
	if !ok {
		a = &UserActivity{UserAddress: userAddress, Operation: operation}
		r.activities[userAddress][operation] = a
	}
	a.Count++
	a.TotalBytes += bytes
	a.LastAt = now
	return nil
}

func (r *fakeActivityRepo) ListByUser(_ context.Context, userAddress string) ([]*UserActivity, error) {
	out := make([]*UserActivity, 0, len(r.activities[userAddress]))
	for _, a := range r.activities[userAddress] {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

type passTx struct{}

func (passTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopEvents struct{}

func (nopEvents) Publish(context.Context, string, interface{}) {}

func newLedgerUseCase(t *testing.T) (*LedgerUseCase, *fakeLedgerRepo) {
	t.Helper()
	repo := &fakeLedgerRepo{}
	uc := NewLedgerUseCase(repo, newFakeActivityRepo(), passTx{}, nopEvents{})
	if err := uc.Bootstrap(context.Background(), "0xadmin", 100, 1000); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	return uc, repo
}

func TestBootstrap(t *testing.T) {
	repo := &fakeLedgerRepo{}
	uc := NewLedgerUseCase(repo, newFakeActivityRepo(), passTx{}, nopEvents{})
	ctx := context.Background()

	if err := uc.Bootstrap(ctx, "", 100, 1000); err == nil {
		t.Error("Bootstrap() without admin should fail")
	}
	if err := uc.Bootstrap(ctx, "0xadmin", MaxFeeRateBps+1, 1000); apperrors.ExtractCode(err) != apperrors.ErrInvalidFeeRate {
		t.Errorf("Bootstrap() over cap: code = %d, want %d",
			apperrors.ExtractCode(err), apperrors.ErrInvalidFeeRate)
	}

	if err := uc.Bootstrap(ctx, "0xadmin", 100, 1000); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	// Idempotent: a second boot never rewrites the row.
	if err := uc.Bootstrap(ctx, "0xother", 500, 2000); err != nil {
		t.Fatalf("second Bootstrap() error = %v", err)
	}
	l, _ := uc.Stats(ctx)
	if l.Admin != "0xadmin" || l.FeeRateBps != 100 {
		t.Errorf("ledger = %+v, want the original bootstrap values", l)
	}
}

func TestCollectFee(t *testing.T) {
	uc, repo := newLedgerUseCase(t)
	ctx := context.Background()

	fee, remainder, err := uc.CollectFee(ctx, 1000, 4096, 2000)
	if err != nil {
		t.Fatalf("CollectFee() error = %v", err)
	}
	if fee != 10 || remainder != 990 {
		t.Errorf("CollectFee(1000) = (%d, %d), want (10, 990)", fee, remainder)
	}

	l := repo.ledger
	if l.FeesCollected != 10 {
		t.Errorf("FeesCollected = %d, want 10", l.FeesCollected)
	}
	if l.TotalTransfers != 1 {
		t.Errorf("TotalTransfers = %d, want 1", l.TotalTransfers)
	}
	if l.TotalDataTransferred != 4096 {
		t.Errorf("TotalDataTransferred = %d, want 4096", l.TotalDataTransferred)
	}

	if _, _, err := uc.CollectFee(ctx, 500, 1024, 3000); err != nil {
		t.Fatalf("CollectFee() error = %v", err)
	}
	if repo.ledger.FeesCollected != 15 {
		t.Errorf("FeesCollected = %d, want 15 after second collection", repo.ledger.FeesCollected)
	}
	if repo.ledger.TotalTransfers != 2 {
		t.Errorf("TotalTransfers = %d, want 2", repo.ledger.TotalTransfers)
	}
}

func TestUpdateFeeRate(t *testing.T) {
	uc, repo := newLedgerUseCase(t)
	ctx := context.Background()

	if err := uc.UpdateFeeRate(ctx, "0xother", 200, 2000); apperrors.ExtractCode(err) != apperrors.ErrNotAuthorized {
		t.Errorf("non-admin: code = %d, want %d", apperrors.ExtractCode(err), apperrors.ErrNotAuthorized)
	}
	if err := uc.UpdateFeeRate(ctx, "0xadmin", MaxFeeRateBps+1, 2000); apperrors.ExtractCode(err) != apperrors.ErrInvalidFeeRate {
		t.Errorf("over cap: code = %d, want %d", apperrors.ExtractCode(err), apperrors.ErrInvalidFeeRate)
	}

	if err := uc.UpdateFeeRate(ctx, "0xadmin", MaxFeeRateBps, 2000); err != nil {
		t.Fatalf("UpdateFeeRate() at cap error = %v", err)
	}
	if repo.ledger.FeeRateBps != MaxFeeRateBps {
		t.Errorf("FeeRateBps = %d, want %d", repo.ledger.FeeRateBps, MaxFeeRateBps)
	}

	// The new rate applies to the next collection.
	fee, _, err := uc.CollectFee(ctx, 1000, 0, 3000)
	if err != nil {
		t.Fatalf("CollectFee() error = %v", err)
	}
	if fee != 100 {
		t.Errorf("fee = %d, want 100 at 10%%", fee)
	}
}

func TestWithdraw(t *testing.T) {
	uc, repo := newLedgerUseCase(t)
	ctx := context.Background()

	if _, _, err := uc.CollectFee(ctx, 10000, 0, 2000); err != nil {
		t.Fatalf("CollectFee() error = %v", err)
	}
	// 100 collected at 100 bps.

	if _, err := uc.Withdraw(ctx, "0xadmin", 0, 3000); err == nil {
		t.Error("Withdraw(0) should fail")
	}
	if _, err := uc.Withdraw(ctx, "0xother", 50, 3000); apperrors.ExtractCode(err) != apperrors.ErrNotAuthorized {
		t.Errorf("non-admin: code = %d, want %d", apperrors.ExtractCode(err), apperrors.ErrNotAuthorized)
	}
	if _, err := uc.Withdraw(ctx, "0xadmin", 101, 3000); apperrors.ExtractCode(err) != apperrors.ErrInsufficientBalance {
		t.Errorf("over balance: code = %d, want %d", apperrors.ExtractCode(err), apperrors.ErrInsufficientBalance)
	}
	if repo.ledger.FeesCollected != 100 {
		t.Errorf("FeesCollected = %d, want 100 untouched after failed withdrawals", repo.ledger.FeesCollected)
	}

	remaining, err := uc.Withdraw(ctx, "0xadmin", 60, 3000)
	if err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if remaining != 40 {
		t.Errorf("remaining = %d, want 40", remaining)
	}

	remaining, err = uc.Withdraw(ctx, "0xadmin", 40, 4000)
	if err != nil {
		t.Fatalf("Withdraw() error = %v", err)
	}
	if remaining != 0 {
		t.Errorf("remaining = %d, want 0", remaining)
	}
}

func TestIsAdmin(t *testing.T) {
	uc, _ := newLedgerUseCase(t)
	ctx := context.Background()

	ok, err := uc.IsAdmin(ctx, "0xadmin")
	if err != nil || !ok {
		t.Errorf("IsAdmin(admin) = (%v, %v), want (true, nil)", ok, err)
	}
	ok, _ = uc.IsAdmin(ctx, "0xother")
	if ok {
		t.Error("IsAdmin(other) should be false")
	}
	ok, _ = uc.IsAdmin(ctx, "")
	if ok {
		t.Error("IsAdmin(\"\") should be false")
	}
}

func TestRecordActivity(t *testing.T) {
	uc, _ := newLedgerUseCase(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := uc.RecordActivity(ctx, "0xabc", OpUpload, 100, int64(2000+i)); err != nil {
			t.Fatalf("RecordActivity() error = %v", err)
		}
	}
	if err := uc.RecordActivity(ctx, "0xabc", OpSend, 50, 3000); err != nil {
		t.Fatalf("RecordActivity() error = %v", err)
	}

	activities, err := uc.UserActivities(ctx, "0xabc")
	if err != nil {
		t.Fatalf("UserActivities() error = %v", err)
	}
	if len(activities) != 2 {
		t.Fatalf("activities = %d, want 2 (one row per operation kind)", len(activities))
	}
	for _, a := range activities {
		switch a.Operation {
		case OpUpload:
			if a.Count != 3 || a.TotalBytes != 300 || a.LastAt != 2002 {
				t.Errorf("upload aggregate = %+v, want count 3, bytes 300, last 2002", a)
			}
		case OpSend:
			if a.Count != 1 || a.TotalBytes != 50 {
				t.Errorf("send aggregate = %+v, want count 1, bytes 50", a)
			}
		default:
			t.Errorf("unexpected operation %q", a.Operation)
		}
	}
}
