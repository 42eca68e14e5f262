package service

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sealvault/sealvault-backend/internal/auth/middleware"
	"github.com/sealvault/sealvault-backend/internal/pkg/logger"
	"github.com/sealvault/sealvault-backend/internal/pkg/response"
	"github.com/sealvault/sealvault-backend/internal/upload/biz"
	"go.uber.org/zap"
)

type UploadService struct {
	uc  *biz.UploadUseCase
	log *logger.Logger
}

func NewUploadService(uc *biz.UploadUseCase, log *logger.Logger) *UploadService {
	return &UploadService{uc: uc, log: log}
}

type RegisterUploadRequest struct {
	CID      string `json:"cid" binding:"required"`
	Filename string `json:"filename" binding:"required"`
	Size     uint64 `json:"size" binding:"required"`
}

type FileRecordResponse struct {
	CID       string `json:"cid"`
	Filename  string `json:"filename"`
	Size      uint64 `json:"size"`
	Uploader  string `json:"uploader"`
	CreatedAt int64  `json:"created_at"`
	UploadURL string `json:"upload_url,omitempty"`
}

func (s *UploadService) Register(c *gin.Context) {
	var req RegisterUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	uploader := middleware.CallerAddress(c)
	rec, uploadURL, err := s.uc.Register(c.Request.Context(), req.CID, req.Filename, req.Size,
		uploader, time.Now().UnixMilli())
	if err != nil {
		s.log.WithContext(c.Request.Context()).Warn("register upload failed",
			zap.String("cid", req.CID),
			zap.String("uploader", uploader),
			zap.Error(err))
		response.HandleError(c, err)
		return
	}

	response.Created(c, &FileRecordResponse{
		CID:       rec.CID,
		Filename:  rec.Filename,
		Size:      rec.Size,
		Uploader:  rec.Uploader,
		CreatedAt: rec.CreatedAt,
		UploadURL: uploadURL,
	})
}

func (s *UploadService) Get(c *gin.Context) {
	rec, err := s.uc.Get(c.Request.Context(), c.Param("cid"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, &FileRecordResponse{
		CID:       rec.CID,
		Filename:  rec.Filename,
		Size:      rec.Size,
		Uploader:  rec.Uploader,
		CreatedAt: rec.CreatedAt,
	})
}

func (s *UploadService) ListMine(c *gin.Context) {
	records, err := s.uc.ListByUploader(c.Request.Context(), middleware.CallerAddress(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	out := make([]*FileRecordResponse, len(records))
	for i, rec := range records {
		out[i] = &FileRecordResponse{
			CID:       rec.CID,
			Filename:  rec.Filename,
			Size:      rec.Size,
			Uploader:  rec.Uploader,
			CreatedAt: rec.CreatedAt,
		}
	}
	response.Success(c, gin.H{"files": out})
}

func (s *UploadService) DownloadURL(c *gin.Context) {
	url, err := s.uc.DownloadURL(c.Request.Context(), c.Param("cid"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, gin.H{"download_url": url})
}

func (s *UploadService) RegisterRoutes(r *gin.RouterGroup) {
	files := r.Group("/files")
	{
		files.POST("/upload", s.Register)
		files.GET("", s.ListMine)
		files.GET("/:cid", s.Get)
		files.GET("/:cid/download-url", s.DownloadURL)
	}
}
