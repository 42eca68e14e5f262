package data

import (
	"context"

	"github.com/sealvault/sealvault-backend/internal/pkg/database"
	apperrors "github.com/sealvault/sealvault-backend/internal/pkg/errors"
	"github.com/sealvault/sealvault-backend/internal/upload/biz"
)

// FileRecordPO represents one upload registration.
type FileRecordPO struct {
	CID       string `gorm:"column:cid;size:255;primarykey"`
	Filename  string `gorm:"size:255;not null"`
	Size      uint64 `gorm:"not null"`
	Uploader  string `gorm:"size:128;not null;index"`
	CreatedAt int64  `gorm:"not null"`
}

func (FileRecordPO) TableName() string {
	return "file_records"
}

// FileRepo implements biz.FileRepo
type FileRepo struct {
	db *database.DB
}

func NewFileRepo(db *database.DB) biz.FileRepo {
	return &FileRepo{db: db}
}

func (r *FileRepo) Create(ctx context.Context, f *biz.FileRecord) error {
	po := &FileRecordPO{
		CID:       f.CID,
		Filename:  f.Filename,
		Size:      f.Size,
		Uploader:  f.Uploader,
		CreatedAt: f.CreatedAt,
	}
	return r.db.GetDBFromContext(ctx).Create(po).Error
}

func (r *FileRepo) GetByCID(ctx context.Context, cid string) (*biz.FileRecord, error) {
	var po FileRecordPO
	if err := r.db.GetDBFromContext(ctx).Where("cid = ?", cid).First(&po).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, apperrors.NewNotFoundError(cid)
		}
		return nil, err
	}
	return toFileRecord(&po), nil
}

func (r *FileRepo) ListByUploader(ctx context.Context, uploader string) ([]*biz.FileRecord, error) {
	var pos []FileRecordPO
	err := r.db.GetDBFromContext(ctx).
		Where("uploader = ?", uploader).
		Order("created_at DESC").
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	records := make([]*biz.FileRecord, len(pos))
	for i := range pos {
		records[i] = toFileRecord(&pos[i])
	}
	return records, nil
}

func toFileRecord(po *FileRecordPO) *biz.FileRecord {
	return &biz.FileRecord{
		CID:       po.CID,
		Filename:  po.Filename,
		Size:      po.Size,
		Uploader:  po.Uploader,
		CreatedAt: po.CreatedAt,
	}
}
