package biz

import (
	"context"
	"time"

	apperrors "github.com/sealvault/sealvault-backend/internal/pkg/errors"
)

// FileRecord is the registration of one uploaded blob. The CID is opaque:
// the bytes live in the external blob store, this engine only keeps the
// bookkeeping row.
type FileRecord struct {
	CID       string
	Filename  string
	Size      uint64
	Uploader  string
	CreatedAt int64
}

// FileRepo persists upload registrations.
type FileRepo interface {
	Create(ctx context.Context, f *FileRecord) error
	GetByCID(ctx context.Context, cid string) (*FileRecord, error)
	ListByUploader(ctx context.Context, uploader string) ([]*FileRecord, error)
}

// ActivityLedger is the slice of the protocol ledger the upload path needs.
type ActivityLedger interface {
	RecordUpload(ctx context.Context, size uint64, now int64) error
	RecordActivity(ctx context.Context, userAddress, operation string, bytes uint64, now int64) error
}

const opUpload = "upload"

// Transactor runs a function inside one all-or-nothing transaction.
type Transactor interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BlobStore mints presigned URLs against the external blob store and checks
// whether a blob has landed.
type BlobStore interface {
	PresignedPut(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	PresignedGet(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	StatObject(ctx context.Context, objectName string) (int64, error)
}

// DefaultURLExpiry bounds how long a minted blob URL stays usable.
const DefaultURLExpiry = 15 * time.Minute

// UploadUseCase contains business logic for upload registration.
type UploadUseCase struct {
	repo   FileRepo
	ledger ActivityLedger
	tx     Transactor
	blobs  BlobStore
}

func NewUploadUseCase(repo FileRepo, ledger ActivityLedger, tx Transactor, blobs BlobStore) *UploadUseCase {
	return &UploadUseCase{repo: repo, ledger: ledger, tx: tx, blobs: blobs}
}

// Register records an upload and bumps the global and per-user counters in
// one transaction. It also mints a presigned PUT URL for the blob itself.
func (uc *UploadUseCase) Register(ctx context.Context, cid, filename string, size uint64, uploader string, now int64) (*FileRecord, string, error) {
	if cid == "" {
		return nil, "", apperrors.NewValidationError("cid")
	}
	if filename == "" {
		return nil, "", apperrors.NewValidationError("filename")
	}
	if size == 0 {
		return nil, "", apperrors.NewValidationError("size")
	}

	rec := &FileRecord{
		CID:       cid,
		Filename:  filename,
		Size:      size,
		Uploader:  uploader,
		CreatedAt: now,
	}
	err := uc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := uc.repo.Create(ctx, rec); err != nil {
			return err
		}
		if err := uc.ledger.RecordUpload(ctx, size, now); err != nil {
			return err
		}
		return uc.ledger.RecordActivity(ctx, uploader, opUpload, size, now)
	})
	if err != nil {
		return nil, "", err
	}

	uploadURL, err := uc.blobs.PresignedPut(ctx, cid, DefaultURLExpiry)
	if err != nil {
		// The registration stands; the client can re-request a URL.
		return rec, "", nil
	}
	return rec, uploadURL, nil
}

// Get returns one upload registration.
func (uc *UploadUseCase) Get(ctx context.Context, cid string) (*FileRecord, error) {
	return uc.repo.GetByCID(ctx, cid)
}

// ListByUploader returns the caller's upload registrations.
func (uc *UploadUseCase) ListByUploader(ctx context.Context, uploader string) ([]*FileRecord, error) {
	return uc.repo.ListByUploader(ctx, uploader)
}

// DownloadURL mints a presigned GET URL for a registered blob. Registration
// only reserves the CID; the blob must have actually landed in the store
// before a download URL makes sense.
func (uc *UploadUseCase) DownloadURL(ctx context.Context, cid string) (string, error) {
	if _, err := uc.repo.GetByCID(ctx, cid); err != nil {
		return "", err
	}
	if _, err := uc.blobs.StatObject(ctx, cid); err != nil {
		return "", apperrors.New(apperrors.ErrNotFound, "blob has not been uploaded yet")
	}
	return uc.blobs.PresignedGet(ctx, cid, DefaultURLExpiry)
}
