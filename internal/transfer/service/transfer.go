package service

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sealvault/sealvault-backend/internal/auth/middleware"
	"github.com/sealvault/sealvault-backend/internal/pkg/logger"
	"github.com/sealvault/sealvault-backend/internal/pkg/response"
	"github.com/sealvault/sealvault-backend/internal/transfer/biz"
	"go.uber.org/zap"
)

type TransferService struct {
	uc  *biz.TransferUseCase
	log *logger.Logger
}

func NewTransferService(uc *biz.TransferUseCase, log *logger.Logger) *TransferService {
	return &TransferService{uc: uc, log: log}
}

type SendRequest struct {
	Recipient      string `json:"recipient" binding:"required"`
	EncryptedCID   string `json:"encrypted_cid" binding:"required"`
	MetadataCID    string `json:"metadata_cid" binding:"required"`
	SealPublicKey  string `json:"seal_public_key" binding:"required"` // base64
	Algorithm      string `json:"algorithm"`
	Message        string `json:"message"`
	FileCount      int    `json:"file_count" binding:"required"`
	TotalSize      uint64 `json:"total_size"`
	ExpiresInHours uint64 `json:"expires_in_hours"`
	Payment        uint64 `json:"payment"`
}

type TransferResponse struct {
	ID         string `json:"id"`
	Sender     string `json:"sender"`
	Recipient  string `json:"recipient"`
	FileCount  int    `json:"file_count"`
	TotalSize  uint64 `json:"total_size"`
	GasFeePaid uint64 `json:"gas_fee_paid"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	CreatedAt  int64  `json:"created_at"`
	ExpiresAt  *int64 `json:"expires_at,omitempty"`
	ClaimedAt  *int64 `json:"claimed_at,omitempty"`
}

type SendResponse struct {
	Transfer  *TransferResponse `json:"transfer"`
	FeePaid   uint64            `json:"fee_paid"`
	Remainder uint64            `json:"remainder"`
}

func (s *TransferService) Send(c *gin.Context) {
	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	sealKey, err := base64.StdEncoding.DecodeString(req.SealPublicKey)
	if err != nil {
		response.BadRequest(c, "seal_public_key must be base64 encoded")
		return
	}

	result, err := s.uc.Send(c.Request.Context(), &biz.SendRequest{
		Sender:         middleware.CallerAddress(c),
		Recipient:      req.Recipient,
		EncryptedCID:   req.EncryptedCID,
		MetadataCID:    req.MetadataCID,
		SealPublicKey:  sealKey,
		Algorithm:      req.Algorithm,
		Message:        req.Message,
		FileCount:      req.FileCount,
		TotalSize:      req.TotalSize,
		ExpiresInHours: req.ExpiresInHours,
		Payment:        req.Payment,
	}, nowMillis())
	if err != nil {
		s.log.WithContext(c.Request.Context()).Warn("send transfer failed", zap.Error(err))
		response.HandleError(c, err)
		return
	}

	response.Created(c, &SendResponse{
		Transfer:  toResponse(result.Transfer),
		FeePaid:   result.FeePaid,
		Remainder: result.Remainder,
	})
}

func (s *TransferService) Claim(c *gin.Context) {
	t, err := s.uc.Claim(c.Request.Context(), c.Param("id"), middleware.CallerAddress(c), nowMillis())
	if err != nil {
		s.log.WithContext(c.Request.Context()).Warn("claim transfer failed",
			zap.String("transfer_id", c.Param("id")),
			zap.Error(err))
		response.HandleError(c, err)
		return
	}

	response.Success(c, toResponse(t))
}

func (s *TransferService) Get(c *gin.Context) {
	t, err := s.uc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toResponse(t))
}

type SealKeyResponse struct {
	SealPublicKey string `json:"seal_public_key"` // base64
	Algorithm     string `json:"algorithm"`
}

func (s *TransferService) SealKey(c *gin.Context) {
	key, algorithm, err := s.uc.SealKey(c.Request.Context(), c.Param("id"), middleware.CallerAddress(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, &SealKeyResponse{
		SealPublicKey: base64.StdEncoding.EncodeToString(key),
		Algorithm:     algorithm,
	})
}

func (s *TransferService) CanClaim(c *gin.Context) {
	t, err := s.uc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"can_claim": t.CanClaim(middleware.CallerAddress(c), nowMillis()),
	})
}

func (s *TransferService) ListSent(c *gin.Context) {
	s.list(c, s.uc.ListBySender)
}

func (s *TransferService) ListReceived(c *gin.Context) {
	s.list(c, s.uc.ListByRecipient)
}

func (s *TransferService) list(c *gin.Context, fetch func(ctx context.Context, addr string) ([]*biz.Transfer, error)) {
	transfers, err := fetch(c.Request.Context(), middleware.CallerAddress(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	out := make([]*TransferResponse, len(transfers))
	for i, t := range transfers {
		out[i] = toResponse(t)
	}
	response.Success(c, gin.H{"transfers": out})
}

func toResponse(t *biz.Transfer) *TransferResponse {
	return &TransferResponse{
		ID:         t.ID,
		Sender:     t.Sender,
		Recipient:  t.Recipient,
		FileCount:  t.FileCount,
		TotalSize:  t.TotalSize,
		GasFeePaid: t.GasFeePaid,
		Status:     string(t.Status),
		Message:    t.Message,
		CreatedAt:  t.CreatedAt,
		ExpiresAt:  t.ExpiresAt,
		ClaimedAt:  t.ClaimedAt,
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func (s *TransferService) RegisterRoutes(r *gin.RouterGroup) {
	transfers := r.Group("/transfers")
	{
		transfers.POST("", s.Send)
		transfers.POST("/:id/claim", s.Claim)
		transfers.GET("/:id", s.Get)
		transfers.GET("/:id/seal-key", s.SealKey)
		transfers.GET("/:id/can-claim", s.CanClaim)
		transfers.GET("/sent", s.ListSent)
		transfers.GET("/received", s.ListReceived)
	}
}
