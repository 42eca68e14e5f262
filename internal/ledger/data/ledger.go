package data

import (
	"context"

	"github.com/sealvault/sealvault-backend/internal/ledger/biz"
	"github.com/sealvault/sealvault-backend/internal/pkg/database"
	apperrors "github.com/sealvault/sealvault-backend/internal/pkg/errors"
	"gorm.io/gorm/clause"
)

// ledgerRowID pins the singleton to one row.
const ledgerRowID = 1

// ProtocolLedgerPO represents the singleton ledger row.
type ProtocolLedgerPO struct {
	ID                   int    `gorm:"primarykey"`
	Admin                string `gorm:"size:128;not null"`
	FeeRateBps           uint64 `gorm:"not null"`
	FeesCollected        uint64 `gorm:"not null;default:0"`
	TotalTransfers       uint64 `gorm:"not null;default:0"`
	TotalDataTransferred uint64 `gorm:"not null;default:0"`
	UpdatedAt            int64  `gorm:"not null"`
}

func (ProtocolLedgerPO) TableName() string {
	return "protocol_ledger"
}

// LedgerRepo implements biz.LedgerRepo
type LedgerRepo struct {
	db *database.DB
}

func NewLedgerRepo(db *database.DB) biz.LedgerRepo {
	return &LedgerRepo{db: db}
}

// Bootstrap creates the singleton row if absent. An existing row wins: the
// admin identity and rate survive restarts with different config.
func (r *LedgerRepo) Bootstrap(ctx context.Context, admin string, feeRateBps uint64, now int64) error {
	po := &ProtocolLedgerPO{
		ID:         ledgerRowID,
		Admin:      admin,
		FeeRateBps: feeRateBps,
		UpdatedAt:  now,
	}
	return r.db.GetDBFromContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(po).Error
}

func (r *LedgerRepo) Get(ctx context.Context) (*biz.ProtocolLedger, error) {
	var po ProtocolLedgerPO
	if err := r.db.GetDBFromContext(ctx).Where("id = ?", ledgerRowID).First(&po).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrLedgerNotFound)
		}
		return nil, err
	}
	return toLedger(&po), nil
}

// GetForUpdate locks the singleton row. Every fee mutation and counter bump
// in a transaction serializes behind this lock.
func (r *LedgerRepo) GetForUpdate(ctx context.Context) (*biz.ProtocolLedger, error) {
	var po ProtocolLedgerPO
	err := r.db.GetDBFromContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", ledgerRowID).
		First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrLedgerNotFound)
		}
		return nil, err
	}
	return toLedger(&po), nil
}

func (r *LedgerRepo) Save(ctx context.Context, l *biz.ProtocolLedger) error {
	return r.db.GetDBFromContext(ctx).
		Model(&ProtocolLedgerPO{ID: ledgerRowID}).
		Updates(map[string]interface{}{
			"fee_rate_bps":           l.FeeRateBps,
			"fees_collected":         l.FeesCollected,
			"total_transfers":        l.TotalTransfers,
			"total_data_transferred": l.TotalDataTransferred,
			"updated_at":             l.UpdatedAt,
		}).Error
}

func toLedger(po *ProtocolLedgerPO) *biz.ProtocolLedger {
	return &biz.ProtocolLedger{
		Admin:                po.Admin,
		FeeRateBps:           po.FeeRateBps,
		FeesCollected:        po.FeesCollected,
		TotalTransfers:       po.TotalTransfers,
		TotalDataTransferred: po.TotalDataTransferred,
		UpdatedAt:            po.UpdatedAt,
	}
}
