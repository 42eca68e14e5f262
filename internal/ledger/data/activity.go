package data

import (
	"context"

	"github.com/sealvault/sealvault-backend/internal/ledger/biz"
	"github.com/sealvault/sealvault-backend/internal/pkg/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserActivityPO aggregates one user's operations of one kind in place: a
// counter row, not an append-only event log.
type UserActivityPO struct {
	ID          uint64 `gorm:"primarykey"`
	UserAddress string `gorm:"size:128;not null;uniqueIndex:idx_user_activities_user_op,priority:1"`
	Operation   string `gorm:"size:32;not null;uniqueIndex:idx_user_activities_user_op,priority:2"`
	Count       uint64 `gorm:"not null;default:0"`
	TotalBytes  uint64 `gorm:"not null;default:0"`
	LastAt      int64  `gorm:"not null"`
}

func (UserActivityPO) TableName() string {
	return "user_activities"
}

// ActivityRepo implements biz.ActivityRepo
type ActivityRepo struct {
	db *database.DB
}

func NewActivityRepo(db *database.DB) biz.ActivityRepo {
	return &ActivityRepo{db: db}
}

// Record upserts the (user, operation) aggregate atomically in the database,
// so concurrent callers never lose an increment.
func (r *ActivityRepo) Record(ctx context.Context, userAddress, operation string, bytes uint64, now int64) error {
	po := &UserActivityPO{
		UserAddress: userAddress,
		Operation:   operation,
		Count:       1,
		TotalBytes:  bytes,
		LastAt:      now,
	}
	return r.db.GetDBFromContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_address"}, {Name: "operation"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":       gorm.Expr("user_activities.count + 1"),
				"total_bytes": gorm.Expr("user_activities.total_bytes + ?", bytes),
				"last_at":     now,
			}),
		}).
		Create(po).Error
}

func (r *ActivityRepo) ListByUser(ctx context.Context, userAddress string) ([]*biz.UserActivity, error) {
	var pos []UserActivityPO
	err := r.db.GetDBFromContext(ctx).
		Where("user_address = ?", userAddress).
		Order("operation ASC").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	activities := make([]*biz.UserActivity, len(pos))
	for i, po := range pos {
		activities[i] = &biz.UserActivity{
			UserAddress: po.UserAddress,
			Operation:   po.Operation,
			Count:       po.Count,
			TotalBytes:  po.TotalBytes,
			LastAt:      po.LastAt,
		}
	}
	return activities, nil
}
