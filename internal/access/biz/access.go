package biz

import (
	"context"

	"github.com/google/uuid"
	apperrors "github.com/sealvault/sealvault-backend/internal/pkg/errors"
)

// AccessControl is the aggregate root owning one condition and the per-user
// access history for one file. Only the owner may replace the condition.
type AccessControl struct {
	ID        string
	FileCID   string
	Owner     string
	Condition Condition
	CreatedAt int64
	UpdatedAt int64
}

// AccessControlRepo defines persistence for access-control aggregates.
// GetForUpdate must lock the aggregate row for the remainder of the
// surrounding transaction so that concurrent validations serialize.
type AccessControlRepo interface {
	Create(ctx context.Context, ac *AccessControl) error
	GetByID(ctx context.Context, id string) (*AccessControl, error)
	GetByFileCID(ctx context.Context, fileCID string) (*AccessControl, error)
	GetForUpdate(ctx context.Context, id string) (*AccessControl, error)
	Save(ctx context.Context, ac *AccessControl) error
	GetUserRecord(ctx context.Context, controlID, userAddress string) (*UserAccessRecord, error)
	UpsertUserRecord(ctx context.Context, controlID string, rec *UserAccessRecord) error
	ListUserRecords(ctx context.Context, controlID string) ([]*UserAccessRecord, error)
}

// Transactor runs a function inside one all-or-nothing transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher emits access-decision signals for external consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload interface{})
}

// Event names published by this module.
const (
	EventAccessGranted = "access.granted"
	EventAccessDenied  = "access.denied"
)

// AccessControlUseCase contains business logic for access-control operations
type AccessControlUseCase struct {
	repo   AccessControlRepo
	tx     Transactor
	events EventPublisher
}

func NewAccessControlUseCase(repo AccessControlRepo, tx Transactor, events EventPublisher) *AccessControlUseCase {
	return &AccessControlUseCase{repo: repo, tx: tx, events: events}
}

// Create stores a new access control for a file. The running access counter
// always starts at zero.
func (uc *AccessControlUseCase) Create(ctx context.Context, fileCID, owner string, cond Condition, now int64) (*AccessControl, error) {
	if fileCID == "" {
		return nil, apperrors.NewValidationError("file_cid")
	}
	if owner == "" {
		return nil, apperrors.NewValidationError("owner")
	}
	if err := cond.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidCondition)
	}

	cond.CurrentAccessCount = 0
	ac := &AccessControl{
		ID:        uuid.New().String(),
		FileCID:   fileCID,
		Owner:     owner,
		Condition: cond,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Create(ctx, ac); err != nil {
		return nil, err
	}
	return ac, nil
}

// Update replaces the whole condition. Only the owner may do this; the
// running access counter is carried over from the previous condition so the
// quota keeps counting, every other field is overwritten.
func (uc *AccessControlUseCase) Update(ctx context.Context, id, caller string, cond Condition, now int64) (*AccessControl, error) {
	if err := cond.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInvalidCondition)
	}

	var updated *AccessControl
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		ac, err := uc.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if ac.Owner != caller {
			return apperrors.New(apperrors.ErrNotAuthorized, "only the owner may update an access control")
		}

		cond.CurrentAccessCount = ac.Condition.CurrentAccessCount
		ac.Condition = cond
		ac.UpdatedAt = now

		if err := uc.repo.Save(ctx, ac); err != nil {
			return err
		}
		updated = ac
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ValidateAndRecord evaluates the caller's access and, on grant, records it:
// the caller's access record is upserted (first access time set once) and the
// condition's running counter moves up by exactly one. Evaluation and
// recording happen under the aggregate's row lock, so two concurrent callers
// cannot both slip past a nearly exhausted quota.
func (uc *AccessControlUseCase) ValidateAndRecord(ctx context.Context, id string, ident Identity, now int64) (Decision, error) {
	var (
		decision Decision
		fileCID  string
	)
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		ac, err := uc.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		fileCID = ac.FileCID

		rec, err := uc.repo.GetUserRecord(ctx, id, ident.Address)
		if err != nil {
			return err
		}

		decision = Evaluate(&ac.Condition, ident, now, rec)
		if !decision.Granted {
			return nil
		}

		if rec == nil {
			rec = &UserAccessRecord{
				UserAddress:     ident.Address,
				FirstAccessTime: now,
			}
		}
		rec.AccessCount++
		rec.AccessTimestamp = now
		if ident.Email != "" {
			rec.UserEmail = ident.Email
		}
		if err := uc.repo.UpsertUserRecord(ctx, id, rec); err != nil {
			return err
		}

		ac.Condition.CurrentAccessCount++
		ac.UpdatedAt = now
		return uc.repo.Save(ctx, ac)
	})
	if err != nil {
		return Decision{}, err
	}

	event := EventAccessDenied
	if decision.Granted {
		event = EventAccessGranted
	}
	uc.events.Publish(ctx, event, map[string]interface{}{
		"access_control_id": id,
		"file_cid":          fileCID,
		"user_address":      ident.Address,
		"reason":            decision.Reason,
		"timestamp":         now,
	})

	return decision, nil
}

// Preview evaluates access without recording anything. It is a UI hint, not
// an authorization gate: nothing is locked and no counter moves.
func (uc *AccessControlUseCase) Preview(ctx context.Context, id string, ident Identity, now int64) (Decision, error) {
	ac, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return Decision{}, err
	}
	rec, err := uc.repo.GetUserRecord(ctx, id, ident.Address)
	if err != nil {
		return Decision{}, err
	}
	return Evaluate(&ac.Condition, ident, now, rec), nil
}

// Get returns the aggregate by id.
func (uc *AccessControlUseCase) Get(ctx context.Context, id string) (*AccessControl, error) {
	return uc.repo.GetByID(ctx, id)
}

// GetByFileCID returns the aggregate guarding the given file.
func (uc *AccessControlUseCase) GetByFileCID(ctx context.Context, fileCID string) (*AccessControl, error) {
	return uc.repo.GetByFileCID(ctx, fileCID)
}

// ListUserRecords returns the per-user access history in insertion order.
func (uc *AccessControlUseCase) ListUserRecords(ctx context.Context, id string) ([]*UserAccessRecord, error) {
	if _, err := uc.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return uc.repo.ListUserRecords(ctx, id)
}
