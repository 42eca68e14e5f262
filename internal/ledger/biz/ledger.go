package biz

import (
	"context"
	"math/bits"

	apperrors "github.com/sealvault/sealvault-backend/internal/pkg/errors"
)

// MaxFeeRateBps caps the protocol fee at 10%.
const MaxFeeRateBps = 1000

// FeeRateDenominator converts basis points to a fraction of the payment.
const FeeRateDenominator = 10000

// Activity operation kinds recorded per user.
const (
	OpUpload = "upload"
	OpSend   = "send"
	OpClaim  = "claim"
)

// ProtocolLedger is the process-wide singleton: global counters, the
// withdrawable fee balance and the admin identity fixed at bootstrap.
type ProtocolLedger struct {
	Admin                string
	FeeRateBps           uint64
	FeesCollected        uint64
	TotalTransfers       uint64
	TotalDataTransferred uint64
	UpdatedAt            int64
}

// UserActivity aggregates one user's operations of one kind: a running count
// and byte total instead of an unbounded append-only history.
type UserActivity struct {
	UserAddress string
	Operation   string
	Count       uint64
	TotalBytes  uint64
	LastAt      int64
}

// LedgerRepo persists the singleton ledger row. GetForUpdate must lock it for
// the surrounding transaction; every fee mutation and counter bump goes
// through that lock.
type LedgerRepo interface {
	Bootstrap(ctx context.Context, admin string, feeRateBps uint64, now int64) error
	Get(ctx context.Context) (*ProtocolLedger, error)
	GetForUpdate(ctx context.Context) (*ProtocolLedger, error)
	Save(ctx context.Context, l *ProtocolLedger) error
}

// ActivityRepo upserts per-user activity aggregates.
type ActivityRepo interface {
	Record(ctx context.Context, userAddress, operation string, bytes uint64, now int64) error
	ListByUser(ctx context.Context, userAddress string) ([]*UserActivity, error)
}

// Transactor runs a function inside one all-or-nothing transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher emits ledger signals for external consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload interface{})
}

// Event names published by this module.
const (
	EventFeeRateUpdated = "protocol.fee_rate_updated"
	EventFeesWithdrawn  = "protocol.fees_withdrawn"
)

// SplitFee divides a payment into the protocol's cut and the remainder that
// goes back to the sender. The product is taken in 128 bits so the split
// stays exact for any uint64 payment. fee + remainder == amount always holds.
func SplitFee(amount, feeRateBps uint64) (fee, remainder uint64) {
	// feeRateBps never exceeds MaxFeeRateBps, so the high word is below the
	// denominator and the division cannot overflow.
	hi, lo := bits.Mul64(amount, feeRateBps)
	fee, _ = bits.Div64(hi, lo, FeeRateDenominator)
	return fee, amount - fee
}

// LedgerUseCase contains business logic for the protocol ledger.
type LedgerUseCase struct {
	repo     LedgerRepo
	activity ActivityRepo
	tx       Transactor
	events   EventPublisher
}

func NewLedgerUseCase(repo LedgerRepo, activity ActivityRepo, tx Transactor, events EventPublisher) *LedgerUseCase {
	return &LedgerUseCase{repo: repo, activity: activity, tx: tx, events: events}
}

// Bootstrap creates the singleton row if it does not exist yet. The admin
// identity is fixed here and never rotated.
func (uc *LedgerUseCase) Bootstrap(ctx context.Context, admin string, feeRateBps uint64, now int64) error {
	if admin == "" {
		return apperrors.NewValidationError("admin")
	}
	if feeRateBps > MaxFeeRateBps {
		return apperrors.New(apperrors.ErrInvalidFeeRate)
	}
	return uc.repo.Bootstrap(ctx, admin, feeRateBps, now)
}

// Stats returns the current ledger view.
func (uc *LedgerUseCase) Stats(ctx context.Context) (*ProtocolLedger, error) {
	return uc.repo.Get(ctx)
}

// IsAdmin reports whether the caller is the ledger admin.
func (uc *LedgerUseCase) IsAdmin(ctx context.Context, caller string) (bool, error) {
	l, err := uc.repo.Get(ctx)
	if err != nil {
		return false, err
	}
	return caller != "" && caller == l.Admin, nil
}

// CollectFee splits the payment at the current fee rate, adds the protocol's
// cut to the withdrawable balance and bumps the global counters. It must run
// inside the caller's transaction so the transfer insert and the ledger
// mutation commit or fail together.
func (uc *LedgerUseCase) CollectFee(ctx context.Context, payment uint64, size uint64, now int64) (fee, remainder uint64, err error) {
	err = uc.tx.InTx(ctx, func(ctx context.Context) error {
		l, err := uc.repo.GetForUpdate(ctx)
		if err != nil {
			return err
		}
		fee, remainder = SplitFee(payment, l.FeeRateBps)
		l.FeesCollected += fee
		l.TotalTransfers++
		l.TotalDataTransferred += size
		l.UpdatedAt = now
		return uc.repo.Save(ctx, l)
	})
	if err != nil {
		return 0, 0, err
	}
	return fee, remainder, nil
}

// RecordUpload bumps the global counters for an upload registration. Uploads
// and sends share the same counters.
func (uc *LedgerUseCase) RecordUpload(ctx context.Context, size uint64, now int64) error {
	return uc.tx.InTx(ctx, func(ctx context.Context) error {
		l, err := uc.repo.GetForUpdate(ctx)
		if err != nil {
			return err
		}
		l.TotalTransfers++
		l.TotalDataTransferred += size
		l.UpdatedAt = now
		return uc.repo.Save(ctx, l)
	})
}

// RecordActivity upserts the caller's aggregate for one operation kind.
func (uc *LedgerUseCase) RecordActivity(ctx context.Context, userAddress, operation string, bytes uint64, now int64) error {
	return uc.activity.Record(ctx, userAddress, operation, bytes, now)
}

// UserActivities returns the caller's activity aggregates.
func (uc *LedgerUseCase) UserActivities(ctx context.Context, userAddress string) ([]*UserActivity, error) {
	return uc.activity.ListByUser(ctx, userAddress)
}

// UpdateFeeRate changes the protocol fee rate. Admin only; the 10% cap is a
// hard failure, not a clamp.
func (uc *LedgerUseCase) UpdateFeeRate(ctx context.Context, caller string, feeRateBps uint64, now int64) error {
	if feeRateBps > MaxFeeRateBps {
		return apperrors.New(apperrors.ErrInvalidFeeRate)
	}
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		l, err := uc.repo.GetForUpdate(ctx)
		if err != nil {
			return err
		}
		if caller != l.Admin {
			return apperrors.New(apperrors.ErrNotAuthorized, "only the admin may change the fee rate")
		}
		l.FeeRateBps = feeRateBps
		l.UpdatedAt = now
		return uc.repo.Save(ctx, l)
	})
	if err != nil {
		return err
	}
	uc.events.Publish(ctx, EventFeeRateUpdated, map[string]interface{}{
		"fee_rate_bps": feeRateBps,
		"timestamp":    now,
	})
	return nil
}

// Withdraw moves collected fees out to the admin. Admin only; withdrawing
// more than the balance is a hard failure, never a clamp.
func (uc *LedgerUseCase) Withdraw(ctx context.Context, caller string, amount uint64, now int64) (remaining uint64, err error) {
	if amount == 0 {
		return 0, apperrors.NewValidationError("amount")
	}
	err = uc.tx.InTx(ctx, func(ctx context.Context) error {
		l, err := uc.repo.GetForUpdate(ctx)
		if err != nil {
			return err
		}
		if caller != l.Admin {
			return apperrors.New(apperrors.ErrNotAuthorized, "only the admin may withdraw fees")
		}
		if l.FeesCollected < amount {
			return apperrors.New(apperrors.ErrInsufficientBalance)
		}
		l.FeesCollected -= amount
		l.UpdatedAt = now
		remaining = l.FeesCollected
		return uc.repo.Save(ctx, l)
	})
	if err != nil {
		return 0, err
	}
	uc.events.Publish(ctx, EventFeesWithdrawn, map[string]interface{}{
		"amount":    amount,
		"remaining": remaining,
		"timestamp": now,
	})
	return remaining, nil
}
