package biz

import (
	"context"

	"github.com/google/uuid"
	apperrors "github.com/sealvault/sealvault-backend/internal/pkg/errors"
	"github.com/sealvault/sealvault-backend/internal/pkg/validator"
)

// Status is the transfer lifecycle state. StatusExpired is advisory only: no
// code path writes it, expiry is always decided by CanClaim / the claim-time
// check against ExpiresAt.
type Status string

const (
	StatusPending   Status = "pending"
	StatusClaimed   Status = "claimed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

const msPerHour = 3600000

// Transfer is one sender-to-recipient file bundle handoff. Everything except
// Status and ClaimedAt is immutable after creation; transfers are never
// deleted, they stay as audit records.
type Transfer struct {
	ID            string
	Sender        string
	Recipient     string
	EncryptedCID  string
	MetadataCID   string
	SealPublicKey []byte
	Algorithm     string
	Message       string
	FileCount     int
	TotalSize     uint64
	GasFeePaid    uint64
	Status        Status
	CreatedAt     int64
	ExpiresAt     *int64
	ClaimedAt     *int64
}

// CanClaim is the pure claimability predicate: recipient match, still
// pending, not past expiry. Display logic only, it never authorizes.
func (t *Transfer) CanClaim(user string, now int64) bool {
	return t.Recipient == user && t.Status == StatusPending && !t.Expired(now)
}

// Expired reports whether the transfer is past its expiry. The stored status
// still reads pending in that case.
func (t *Transfer) Expired(now int64) bool {
	return t.ExpiresAt != nil && now > *t.ExpiresAt
}

// TransferRepo defines persistence for transfers. GetForUpdate must lock the
// row for the surrounding transaction.
type TransferRepo interface {
	Create(ctx context.Context, t *Transfer) error
	GetByID(ctx context.Context, id string) (*Transfer, error)
	GetForUpdate(ctx context.Context, id string) (*Transfer, error)
	UpdateStatus(ctx context.Context, t *Transfer) error
	ListBySender(ctx context.Context, sender string) ([]*Transfer, error)
	ListByRecipient(ctx context.Context, recipient string) ([]*Transfer, error)
}

// FeeLedger is the slice of the protocol ledger the transfer path needs: the
// fee is skimmed before the transfer exists, inside the same transaction.
type FeeLedger interface {
	CollectFee(ctx context.Context, payment uint64, size uint64, now int64) (fee, remainder uint64, err error)
	IsAdmin(ctx context.Context, caller string) (bool, error)
	RecordActivity(ctx context.Context, userAddress, operation string, bytes uint64, now int64) error
}

// Activity operation kinds forwarded to the ledger.
const (
	opSend  = "send"
	opClaim = "claim"
)

// Transactor runs a function inside one all-or-nothing transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher emits transfer signals for external consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload interface{})
}

// Event names published by this module.
const (
	EventTransferCreated   = "transfer.created"
	EventTransferClaimed   = "transfer.claimed"
	EventTransferCancelled = "transfer.cancelled"
)

// SendRequest carries everything needed to register a transfer.
type SendRequest struct {
	Sender         string
	Recipient      string
	EncryptedCID   string
	MetadataCID    string
	SealPublicKey  []byte
	Algorithm      string
	Message        string
	FileCount      int
	TotalSize      uint64
	ExpiresInHours uint64 // 0 means no expiry
	Payment        uint64
}

// SendResult is the created transfer plus the fee split applied to the
// sender's payment. Remainder goes back to the sender.
type SendResult struct {
	Transfer  *Transfer
	FeePaid   uint64
	Remainder uint64
}

// TransferUseCase contains business logic for the transfer lifecycle.
type TransferUseCase struct {
	repo   TransferRepo
	ledger FeeLedger
	tx     Transactor
	events EventPublisher
}

func NewTransferUseCase(repo TransferRepo, ledger FeeLedger, tx Transactor, events EventPublisher) *TransferUseCase {
	return &TransferUseCase{repo: repo, ledger: ledger, tx: tx, events: events}
}

// Send registers an encrypted file bundle for a recipient. The protocol fee
// is skimmed from the payment and the transfer starts pending, all in one
// transaction.
func (uc *TransferUseCase) Send(ctx context.Context, req *SendRequest, now int64) (*SendResult, error) {
	if req.Payment == 0 {
		return nil, apperrors.New(apperrors.ErrInsufficientFee)
	}
	if !validator.IsValidAddress(req.Recipient) || req.Recipient == req.Sender {
		return nil, apperrors.New(apperrors.ErrInvalidRecipient)
	}
	if len(req.SealPublicKey) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidSealKey)
	}
	if req.EncryptedCID == "" {
		return nil, apperrors.NewValidationError("encrypted_cid")
	}
	if req.MetadataCID == "" {
		return nil, apperrors.NewValidationError("metadata_cid")
	}
	if req.FileCount <= 0 {
		return nil, apperrors.NewValidationError("file_count")
	}

	var expiresAt *int64
	if req.ExpiresInHours > 0 {
		exp := now + int64(req.ExpiresInHours)*msPerHour
		expiresAt = &exp
	}

	result := &SendResult{}
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		fee, remainder, err := uc.ledger.CollectFee(ctx, req.Payment, req.TotalSize, now)
		if err != nil {
			return err
		}

		t := &Transfer{
			ID:            uuid.New().String(),
			Sender:        req.Sender,
			Recipient:     req.Recipient,
			EncryptedCID:  req.EncryptedCID,
			MetadataCID:   req.MetadataCID,
			SealPublicKey: req.SealPublicKey,
			Algorithm:     req.Algorithm,
			Message:       req.Message,
			FileCount:     req.FileCount,
			TotalSize:     req.TotalSize,
			GasFeePaid:    fee,
			Status:        StatusPending,
			CreatedAt:     now,
			ExpiresAt:     expiresAt,
		}
		if err := uc.repo.Create(ctx, t); err != nil {
			return err
		}
		if err := uc.ledger.RecordActivity(ctx, req.Sender, opSend, req.TotalSize, now); err != nil {
			return err
		}

		result.Transfer = t
		result.FeePaid = fee
		result.Remainder = remainder
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.events.Publish(ctx, EventTransferCreated, map[string]interface{}{
		"transfer_id": result.Transfer.ID,
		"sender":      result.Transfer.Sender,
		"recipient":   result.Transfer.Recipient,
		"file_count":  result.Transfer.FileCount,
		"timestamp":   now,
	})
	return result, nil
}

// Claim transitions a pending transfer to claimed. Only the recipient may
// claim, only while pending, only before expiry.
func (uc *TransferUseCase) Claim(ctx context.Context, id, caller string, now int64) (*Transfer, error) {
	var claimed *Transfer
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		t, err := uc.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if t.Recipient != caller {
			return apperrors.New(apperrors.ErrNotAuthorized, "only the recipient may claim a transfer")
		}
		switch t.Status {
		case StatusPending:
		case StatusCancelled:
			return apperrors.New(apperrors.ErrTransferCancelled)
		default:
			return apperrors.New(apperrors.ErrAlreadyClaimed)
		}
		if t.Expired(now) {
			return apperrors.New(apperrors.ErrTransferExpired)
		}

		t.Status = StatusClaimed
		t.ClaimedAt = &now
		if err := uc.repo.UpdateStatus(ctx, t); err != nil {
			return err
		}
		if err := uc.ledger.RecordActivity(ctx, caller, opClaim, t.TotalSize, now); err != nil {
			return err
		}
		claimed = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.events.Publish(ctx, EventTransferClaimed, map[string]interface{}{
		"transfer_id": claimed.ID,
		"recipient":   claimed.Recipient,
		"timestamp":   now,
	})
	return claimed, nil
}

// EmergencyCancel forces a transfer to cancelled regardless of its current
// state, including already claimed ones. Admin override, audit trail stays.
func (uc *TransferUseCase) EmergencyCancel(ctx context.Context, id, caller string, now int64) (*Transfer, error) {
	var cancelled *Transfer
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		isAdmin, err := uc.ledger.IsAdmin(ctx, caller)
		if err != nil {
			return err
		}
		if !isAdmin {
			return apperrors.New(apperrors.ErrNotAuthorized, "only the admin may cancel a transfer")
		}

		t, err := uc.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		t.Status = StatusCancelled
		if err := uc.repo.UpdateStatus(ctx, t); err != nil {
			return err
		}
		cancelled = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.events.Publish(ctx, EventTransferCancelled, map[string]interface{}{
		"transfer_id": cancelled.ID,
		"timestamp":   now,
	})
	return cancelled, nil
}

// Get returns a transfer by id.
func (uc *TransferUseCase) Get(ctx context.Context, id string) (*Transfer, error) {
	return uc.repo.GetByID(ctx, id)
}

// SealKey returns the seal public key and algorithm, visible only to the
// transfer's sender or recipient.
func (uc *TransferUseCase) SealKey(ctx context.Context, id, caller string) ([]byte, string, error) {
	t, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if caller != t.Sender && caller != t.Recipient {
		return nil, "", apperrors.New(apperrors.ErrNotAuthorized, "seal key is visible to sender and recipient only")
	}
	return t.SealPublicKey, t.Algorithm, nil
}

// ListBySender returns the caller's outgoing transfers.
func (uc *TransferUseCase) ListBySender(ctx context.Context, sender string) ([]*Transfer, error) {
	return uc.repo.ListBySender(ctx, sender)
}

// ListByRecipient returns the caller's incoming transfers.
func (uc *TransferUseCase) ListByRecipient(ctx context.Context, recipient string) ([]*Transfer, error) {
	return uc.repo.ListByRecipient(ctx, recipient)
}
