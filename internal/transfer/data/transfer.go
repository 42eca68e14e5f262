package data

import (
	"context"

	"github.com/sealvault/sealvault-backend/internal/pkg/database"
	apperrors "github.com/sealvault/sealvault-backend/internal/pkg/errors"
	"github.com/sealvault/sealvault-backend/internal/transfer/biz"
	"gorm.io/gorm/clause"
)

// TransferPO represents the database model. Timestamps are unix milliseconds
// to match the rest of the protocol's clock.
type TransferPO struct {
	ID            string `gorm:"type:uuid;primarykey"`
	Sender        string `gorm:"size:128;not null;index"`
	Recipient     string `gorm:"size:128;not null;index"`
	EncryptedCID  string `gorm:"column:encrypted_cid;size:255;not null"`
	MetadataCID   string `gorm:"column:metadata_cid;size:255;not null"`
	SealPublicKey []byte `gorm:"type:bytea;not null"`
	Algorithm     string `gorm:"size:64"`
	Message       string `gorm:"type:text"`
	FileCount     int    `gorm:"not null"`
	TotalSize     uint64 `gorm:"not null"`
	GasFeePaid    uint64 `gorm:"not null"`
	Status        string `gorm:"size:20;not null;default:'pending'"`
	CreatedAt     int64  `gorm:"not null"`
	ExpiresAt     *int64
	ClaimedAt     *int64
}

func (TransferPO) TableName() string {
	return "file_transfers"
}

// TransferRepo implements biz.TransferRepo
type TransferRepo struct {
	db *database.DB
}

func NewTransferRepo(db *database.DB) biz.TransferRepo {
	return &TransferRepo{db: db}
}

func (r *TransferRepo) Create(ctx context.Context, t *biz.Transfer) error {
	return r.db.GetDBFromContext(ctx).Create(toPO(t)).Error
}

func (r *TransferRepo) GetByID(ctx context.Context, id string) (*biz.Transfer, error) {
	var po TransferPO
	if err := r.db.GetDBFromContext(ctx).Where("id = ?", id).First(&po).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrTransferNotFound, id)
		}
		return nil, err
	}
	return toTransfer(&po), nil
}

// GetForUpdate locks the transfer row until the surrounding transaction ends.
func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*biz.Transfer, error) {
	var po TransferPO
	err := r.db.GetDBFromContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrTransferNotFound, id)
		}
		return nil, err
	}
	return toTransfer(&po), nil
}

func (r *TransferRepo) UpdateStatus(ctx context.Context, t *biz.Transfer) error {
	return r.db.GetDBFromContext(ctx).
		Model(&TransferPO{ID: t.ID}).
		Updates(map[string]interface{}{
			"status":     string(t.Status),
			"claimed_at": t.ClaimedAt,
		}).Error
}

func (r *TransferRepo) ListBySender(ctx context.Context, sender string) ([]*biz.Transfer, error) {
	return r.list(ctx, "sender = ?", sender)
}

func (r *TransferRepo) ListByRecipient(ctx context.Context, recipient string) ([]*biz.Transfer, error) {
	return r.list(ctx, "recipient = ?", recipient)
}

func (r *TransferRepo) list(ctx context.Context, query string, arg interface{}) ([]*biz.Transfer, error) {
	var pos []TransferPO
	if err := r.db.GetDBFromContext(ctx).Where(query, arg).Order("created_at DESC").Find(&pos).Error; err != nil {
		return nil, err
	}

	transfers := make([]*biz.Transfer, len(pos))
	for i := range pos {
		transfers[i] = toTransfer(&pos[i])
	}
	return transfers, nil
}

func toPO(t *biz.Transfer) *TransferPO {
	return &TransferPO{
		ID:            t.ID,
		Sender:        t.Sender,
		Recipient:     t.Recipient,
		EncryptedCID:  t.EncryptedCID,
		MetadataCID:   t.MetadataCID,
		SealPublicKey: t.SealPublicKey,
		Algorithm:     t.Algorithm,
		Message:       t.Message,
		FileCount:     t.FileCount,
		TotalSize:     t.TotalSize,
		GasFeePaid:    t.GasFeePaid,
		Status:        string(t.Status),
		CreatedAt:     t.CreatedAt,
		ExpiresAt:     t.ExpiresAt,
		ClaimedAt:     t.ClaimedAt,
	}
}

func toTransfer(po *TransferPO) *biz.Transfer {
	return &biz.Transfer{
		ID:            po.ID,
		Sender:        po.Sender,
		Recipient:     po.Recipient,
		EncryptedCID:  po.EncryptedCID,
		MetadataCID:   po.MetadataCID,
		SealPublicKey: po.SealPublicKey,
		Algorithm:     po.Algorithm,
		Message:       po.Message,
		FileCount:     po.FileCount,
		TotalSize:     po.TotalSize,
		GasFeePaid:    po.GasFeePaid,
		Status:        biz.Status(po.Status),
		CreatedAt:     po.CreatedAt,
		ExpiresAt:     po.ExpiresAt,
		ClaimedAt:     po.ClaimedAt,
	}
}
