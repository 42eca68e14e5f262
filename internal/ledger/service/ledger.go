package service

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sealvault/sealvault-backend/internal/auth/middleware"
	"github.com/sealvault/sealvault-backend/internal/ledger/biz"
	"github.com/sealvault/sealvault-backend/internal/pkg/logger"
	"github.com/sealvault/sealvault-backend/internal/pkg/response"
	transferbiz "github.com/sealvault/sealvault-backend/internal/transfer/biz"
	"go.uber.org/zap"
)

type LedgerService struct {
	uc        *biz.LedgerUseCase
	transfers *transferbiz.TransferUseCase
	log       *logger.Logger
}

func NewLedgerService(uc *biz.LedgerUseCase, transfers *transferbiz.TransferUseCase, log *logger.Logger) *LedgerService {
	return &LedgerService{uc: uc, transfers: transfers, log: log}
}

type StatsResponse struct {
	FeeRateBps           uint64 `json:"fee_rate_bps"`
	FeesCollected        uint64 `json:"fees_collected"`
	TotalTransfers       uint64 `json:"total_transfers"`
	TotalDataTransferred uint64 `json:"total_data_transferred"`
	UpdatedAt            int64  `json:"updated_at"`
}

// Stats is public: the admin identity stays out of the response.
func (s *LedgerService) Stats(c *gin.Context) {
	l, err := s.uc.Stats(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, &StatsResponse{
		FeeRateBps:           l.FeeRateBps,
		FeesCollected:        l.FeesCollected,
		TotalTransfers:       l.TotalTransfers,
		TotalDataTransferred: l.TotalDataTransferred,
		UpdatedAt:            l.UpdatedAt,
	})
}

type ActivityResponse struct {
	Operation  string `json:"operation"`
	Count      uint64 `json:"count"`
	TotalBytes uint64 `json:"total_bytes"`
	LastAt     int64  `json:"last_at"`
}

func (s *LedgerService) MyActivities(c *gin.Context) {
	activities, err := s.uc.UserActivities(c.Request.Context(), middleware.CallerAddress(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	out := make([]*ActivityResponse, len(activities))
	for i, a := range activities {
		out[i] = &ActivityResponse{
			Operation:  a.Operation,
			Count:      a.Count,
			TotalBytes: a.TotalBytes,
			LastAt:     a.LastAt,
		}
	}
	response.Success(c, gin.H{"activities": out})
}

type UpdateFeeRateRequest struct {
	FeeRateBps uint64 `json:"fee_rate_bps"`
}

func (s *LedgerService) UpdateFeeRate(c *gin.Context) {
	var req UpdateFeeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	caller := middleware.CallerAddress(c)
	if err := s.uc.UpdateFeeRate(c.Request.Context(), caller, req.FeeRateBps, time.Now().UnixMilli()); err != nil {
		s.log.WithContext(c.Request.Context()).Warn("update fee rate failed",
			zap.String("caller", caller),
			zap.Uint64("fee_rate_bps", req.FeeRateBps),
			zap.Error(err))
		response.HandleError(c, err)
		return
	}

	s.log.Info("protocol fee rate updated",
		zap.String("caller", caller),
		zap.Uint64("fee_rate_bps", req.FeeRateBps))
	response.Success(c, gin.H{"fee_rate_bps": req.FeeRateBps})
}

type WithdrawRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
}

func (s *LedgerService) Withdraw(c *gin.Context) {
	var req WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	caller := middleware.CallerAddress(c)
	remaining, err := s.uc.Withdraw(c.Request.Context(), caller, req.Amount, time.Now().UnixMilli())
	if err != nil {
		s.log.WithContext(c.Request.Context()).Warn("fee withdrawal failed",
			zap.String("caller", caller),
			zap.Uint64("amount", req.Amount),
			zap.Error(err))
		response.HandleError(c, err)
		return
	}

	s.log.Info("protocol fees withdrawn",
		zap.String("caller", caller),
		zap.Uint64("amount", req.Amount),
		zap.Uint64("remaining", remaining))
	response.Success(c, gin.H{"withdrawn": req.Amount, "remaining": remaining})
}

// EmergencyCancel force-cancels a transfer regardless of its state. Admin only.
func (s *LedgerService) EmergencyCancel(c *gin.Context) {
	caller := middleware.CallerAddress(c)
	t, err := s.transfers.EmergencyCancel(c.Request.Context(), c.Param("id"), caller, time.Now().UnixMilli())
	if err != nil {
		s.log.WithContext(c.Request.Context()).Warn("emergency cancel failed",
			zap.String("caller", caller),
			zap.String("transfer_id", c.Param("id")),
			zap.Error(err))
		response.HandleError(c, err)
		return
	}

	s.log.Info("transfer force-cancelled",
		zap.String("caller", caller),
		zap.String("transfer_id", t.ID))
	response.Success(c, gin.H{"id": t.ID, "status": string(t.Status)})
}

// RegisterPublicRoutes mounts the stats endpoint. It needs no token, so it
// goes on the group outside the auth layer.
func (s *LedgerService) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/protocol/stats", s.Stats)
}

// RegisterRoutes mounts the per-user activity endpoint.
func (s *LedgerService) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/activities", s.MyActivities)
}

// RegisterAdminRoutes mounts the admin-only endpoints. The admin check lives
// in the use cases, not in middleware; these routes just group the surface.
func (s *LedgerService) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.PUT("/protocol/fee-rate", s.UpdateFeeRate)
	r.POST("/protocol/withdraw", s.Withdraw)
	r.POST("/transfers/:id/cancel", s.EmergencyCancel)
}
