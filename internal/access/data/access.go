package data

import (
	"context"
	"database/sql/driver"
	"encoding/json"

	"github.com/sealvault/sealvault-backend/internal/access/biz"
	"github.com/sealvault/sealvault-backend/internal/pkg/database"
	apperrors "github.com/sealvault/sealvault-backend/internal/pkg/errors"
	"gorm.io/gorm/clause"
)

// StringSetJSON stores an identity allow-list as a JSONB column.
type StringSetJSON []string

func (j *StringSetJSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, j)
}

func (j StringSetJSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// AccessControlPO represents the aggregate root's database model. The
// embedded condition is flattened into columns; the running access counter
// lives on the same row so the row lock covers both.
type AccessControlPO struct {
	ID                 string        `gorm:"type:uuid;primarykey"`
	FileCID            string        `gorm:"column:file_cid;size:255;not null;uniqueIndex"`
	Owner              string        `gorm:"size:128;not null;index"`
	ConditionType      string        `gorm:"size:64"`
	AllowedEmails      StringSetJSON `gorm:"type:jsonb"`
	AllowedAddresses   StringSetJSON `gorm:"type:jsonb"`
	AllowedSuinsNames  StringSetJSON `gorm:"type:jsonb"`
	AccessStartTime    *int64
	AccessEndTime      *int64
	MaxAccessDuration  *int64
	RequireAll         bool    `gorm:"not null;default:false"`
	MaxAccessCount     *uint64 `gorm:"column:max_access_count"`
	CurrentAccessCount uint64  `gorm:"not null;default:0"`
	CreatedAt          int64   `gorm:"not null"`
	UpdatedAt          int64   `gorm:"not null"`
}

func (AccessControlPO) TableName() string {
	return "file_access_controls"
}

// UserAccessRecordPO represents one user's access history row. One row per
// (control, user) pair; counters aggregate in place.
type UserAccessRecordPO struct {
	ID              uint64 `gorm:"primarykey"`
	ControlID       string `gorm:"type:uuid;not null;uniqueIndex:idx_access_records_control_user,priority:1"`
	UserAddress     string `gorm:"size:128;not null;uniqueIndex:idx_access_records_control_user,priority:2"`
	UserEmail       string `gorm:"size:255"`
	AccessTimestamp int64  `gorm:"not null"`
	AccessCount     uint64 `gorm:"not null;default:0"`
	FirstAccessTime int64  `gorm:"not null"`
}

func (UserAccessRecordPO) TableName() string {
	return "user_access_records"
}

// AccessControlRepo implements biz.AccessControlRepo
type AccessControlRepo struct {
	db *database.DB
}

func NewAccessControlRepo(db *database.DB) biz.AccessControlRepo {
	return &AccessControlRepo{db: db}
}

func (r *AccessControlRepo) Create(ctx context.Context, ac *biz.AccessControl) error {
	return r.db.GetDBFromContext(ctx).Create(toPO(ac)).Error
}

func (r *AccessControlRepo) GetByID(ctx context.Context, id string) (*biz.AccessControl, error) {
	var po AccessControlPO
	if err := r.db.GetDBFromContext(ctx).Where("id = ?", id).First(&po).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrAccessControlNotFound, id)
		}
		return nil, err
	}
	return toAccessControl(&po), nil
}

func (r *AccessControlRepo) GetByFileCID(ctx context.Context, fileCID string) (*biz.AccessControl, error) {
	var po AccessControlPO
	if err := r.db.GetDBFromContext(ctx).Where("file_cid = ?", fileCID).First(&po).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrAccessControlNotFound, fileCID)
		}
		return nil, err
	}
	return toAccessControl(&po), nil
}

// GetForUpdate locks the aggregate row until the surrounding transaction
// ends. Validation and recording against the same file serialize here.
func (r *AccessControlRepo) GetForUpdate(ctx context.Context, id string) (*biz.AccessControl, error) {
	var po AccessControlPO
	err := r.db.GetDBFromContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.New(apperrors.ErrAccessControlNotFound, id)
		}
		return nil, err
	}
	return toAccessControl(&po), nil
}

func (r *AccessControlRepo) Save(ctx context.Context, ac *biz.AccessControl) error {
	return r.db.GetDBFromContext(ctx).Save(toPO(ac)).Error
}

func (r *AccessControlRepo) GetUserRecord(ctx context.Context, controlID, userAddress string) (*biz.UserAccessRecord, error) {
	var po UserAccessRecordPO
	err := r.db.GetDBFromContext(ctx).
		Where("control_id = ? AND user_address = ?", controlID, userAddress).
		First(&po).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return toUserRecord(&po), nil
}

func (r *AccessControlRepo) UpsertUserRecord(ctx context.Context, controlID string, rec *biz.UserAccessRecord) error {
	po := &UserAccessRecordPO{
		ControlID:       controlID,
		UserAddress:     rec.UserAddress,
		UserEmail:       rec.UserEmail,
		AccessTimestamp: rec.AccessTimestamp,
		AccessCount:     rec.AccessCount,
		FirstAccessTime: rec.FirstAccessTime,
	}
	// first_access_time is deliberately absent from the update set: it is
	// written once on insert and never moves.
	return r.db.GetDBFromContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "control_id"}, {Name: "user_address"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"user_email":       rec.UserEmail,
				"access_timestamp": rec.AccessTimestamp,
				"access_count":     rec.AccessCount,
			}),
		}).
		Create(po).Error
}

func (r *AccessControlRepo) ListUserRecords(ctx context.Context, controlID string) ([]*biz.UserAccessRecord, error) {
	var pos []UserAccessRecordPO
	err := r.db.GetDBFromContext(ctx).
		Where("control_id = ?", controlID).
		Order("id ASC").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	records := make([]*biz.UserAccessRecord, len(pos))
	for i := range pos {
		records[i] = toUserRecord(&pos[i])
	}
	return records, nil
}

func toPO(ac *biz.AccessControl) *AccessControlPO {
	return &AccessControlPO{
		ID:                 ac.ID,
		FileCID:            ac.FileCID,
		Owner:              ac.Owner,
		ConditionType:      ac.Condition.ConditionType,
		AllowedEmails:      ac.Condition.AllowedEmails,
		AllowedAddresses:   ac.Condition.AllowedAddresses,
		AllowedSuinsNames:  ac.Condition.AllowedSuinsNames,
		AccessStartTime:    ac.Condition.AccessStartTime,
		AccessEndTime:      ac.Condition.AccessEndTime,
		MaxAccessDuration:  ac.Condition.MaxAccessDuration,
		RequireAll:         ac.Condition.RequireAllConditions,
		MaxAccessCount:     ac.Condition.MaxAccessCount,
		CurrentAccessCount: ac.Condition.CurrentAccessCount,
		CreatedAt:          ac.CreatedAt,
		UpdatedAt:          ac.UpdatedAt,
	}
}

func toAccessControl(po *AccessControlPO) *biz.AccessControl {
	return &biz.AccessControl{
		ID:      po.ID,
		FileCID: po.FileCID,
		Owner:   po.Owner,
		Condition: biz.Condition{
			ConditionType:        po.ConditionType,
			AllowedEmails:        po.AllowedEmails,
			AllowedAddresses:     po.AllowedAddresses,
			AllowedSuinsNames:    po.AllowedSuinsNames,
			AccessStartTime:      po.AccessStartTime,
			AccessEndTime:        po.AccessEndTime,
			MaxAccessDuration:    po.MaxAccessDuration,
			RequireAllConditions: po.RequireAll,
			MaxAccessCount:       po.MaxAccessCount,
			CurrentAccessCount:   po.CurrentAccessCount,
		},
		CreatedAt: po.CreatedAt,
		UpdatedAt: po.UpdatedAt,
	}
}

func toUserRecord(po *UserAccessRecordPO) *biz.UserAccessRecord {
	return &biz.UserAccessRecord{
		UserAddress:     po.UserAddress,
		UserEmail:       po.UserEmail,
		AccessTimestamp: po.AccessTimestamp,
		AccessCount:     po.AccessCount,
		FirstAccessTime: po.FirstAccessTime,
	}
}
