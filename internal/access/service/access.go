package service

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sealvault/sealvault-backend/internal/access/biz"
	"github.com/sealvault/sealvault-backend/internal/auth/middleware"
	"github.com/sealvault/sealvault-backend/internal/pkg/logger"
	"github.com/sealvault/sealvault-backend/internal/pkg/response"
	"go.uber.org/zap"
)

type AccessService struct {
	uc  *biz.AccessControlUseCase
	log *logger.Logger
}

func NewAccessService(uc *biz.AccessControlUseCase, log *logger.Logger) *AccessService {
	return &AccessService{uc: uc, log: log}
}

// ConditionPayload is the wire form of an access condition, shared between
// create and update.
type ConditionPayload struct {
	ConditionType        string   `json:"condition_type"`
	AllowedEmails        []string `json:"allowed_emails"`
	AllowedAddresses     []string `json:"allowed_addresses"`
	AllowedSuinsNames    []string `json:"allowed_suins_names"`
	AccessStartTime      *int64   `json:"access_start_time"`
	AccessEndTime        *int64   `json:"access_end_time"`
	MaxAccessDuration    *int64   `json:"max_access_duration"`
	RequireAllConditions bool     `json:"require_all_conditions"`
	MaxAccessCount       *uint64  `json:"max_access_count"`
}

func (p *ConditionPayload) toCondition() biz.Condition {
	return biz.Condition{
		ConditionType:        p.ConditionType,
		AllowedEmails:        p.AllowedEmails,
		AllowedAddresses:     p.AllowedAddresses,
		AllowedSuinsNames:    p.AllowedSuinsNames,
		AccessStartTime:      p.AccessStartTime,
		AccessEndTime:        p.AccessEndTime,
		MaxAccessDuration:    p.MaxAccessDuration,
		RequireAllConditions: p.RequireAllConditions,
		MaxAccessCount:       p.MaxAccessCount,
	}
}

type CreateAccessControlRequest struct {
	FileCID   string           `json:"file_cid" binding:"required"`
	Condition ConditionPayload `json:"condition" binding:"required"`
}

type UpdateAccessControlRequest struct {
	Condition ConditionPayload `json:"condition" binding:"required"`
}

type AccessControlResponse struct {
	ID                 string           `json:"id"`
	FileCID            string           `json:"file_cid"`
	Owner              string           `json:"owner"`
	Condition          ConditionPayload `json:"condition"`
	CurrentAccessCount uint64           `json:"current_access_count"`
	CreatedAt          int64            `json:"created_at"`
	UpdatedAt          int64            `json:"updated_at"`
}

type DecisionResponse struct {
	Granted bool   `json:"granted"`
	Reason  string `json:"reason,omitempty"`
}

type UserAccessRecordResponse struct {
	UserAddress     string `json:"user_address"`
	UserEmail       string `json:"user_email,omitempty"`
	AccessTimestamp int64  `json:"access_timestamp"`
	AccessCount     uint64 `json:"access_count"`
	FirstAccessTime int64  `json:"first_access_time"`
}

func (s *AccessService) Create(c *gin.Context) {
	var req CreateAccessControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ac, err := s.uc.Create(c.Request.Context(), req.FileCID, middleware.CallerAddress(c),
		req.Condition.toCondition(), time.Now().UnixMilli())
	if err != nil {
		s.log.WithContext(c.Request.Context()).Warn("create access control failed",
			zap.String("file_cid", req.FileCID),
			zap.Error(err))
		response.HandleError(c, err)
		return
	}

	response.Created(c, toControlResponse(ac))
}

func (s *AccessService) Update(c *gin.Context) {
	var req UpdateAccessControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ac, err := s.uc.Update(c.Request.Context(), c.Param("id"), middleware.CallerAddress(c),
		req.Condition.toCondition(), time.Now().UnixMilli())
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toControlResponse(ac))
}

// Validate evaluates the caller against the condition and, on grant, records
// the access. Denials come back as 200 with granted=false so clients can
// render the reason.
func (s *AccessService) Validate(c *gin.Context) {
	decision, err := s.uc.ValidateAndRecord(c.Request.Context(), c.Param("id"),
		callerIdentity(c), time.Now().UnixMilli())
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, DecisionResponse{Granted: decision.Granted, Reason: decision.Reason})
}

// Check is the read-only preview: same evaluation, nothing recorded.
func (s *AccessService) Check(c *gin.Context) {
	decision, err := s.uc.Preview(c.Request.Context(), c.Param("id"),
		callerIdentity(c), time.Now().UnixMilli())
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, DecisionResponse{Granted: decision.Granted, Reason: decision.Reason})
}

func (s *AccessService) Get(c *gin.Context) {
	ac, err := s.uc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toControlResponse(ac))
}

func (s *AccessService) GetByFile(c *gin.Context) {
	ac, err := s.uc.GetByFileCID(c.Request.Context(), c.Param("cid"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, toControlResponse(ac))
}

func (s *AccessService) Records(c *gin.Context) {
	records, err := s.uc.ListUserRecords(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	out := make([]*UserAccessRecordResponse, len(records))
	for i, r := range records {
		out[i] = &UserAccessRecordResponse{
			UserAddress:     r.UserAddress,
			UserEmail:       r.UserEmail,
			AccessTimestamp: r.AccessTimestamp,
			AccessCount:     r.AccessCount,
			FirstAccessTime: r.FirstAccessTime,
		}
	}
	response.Success(c, gin.H{"records": out})
}

func callerIdentity(c *gin.Context) biz.Identity {
	return biz.Identity{
		Address:   middleware.CallerAddress(c),
		Email:     middleware.CallerEmail(c),
		SuinsName: middleware.CallerSuinsName(c),
	}
}

func toControlResponse(ac *biz.AccessControl) *AccessControlResponse {
	return &AccessControlResponse{
		ID:      ac.ID,
		FileCID: ac.FileCID,
		Owner:   ac.Owner,
		Condition: ConditionPayload{
			ConditionType:        ac.Condition.ConditionType,
			AllowedEmails:        ac.Condition.AllowedEmails,
			AllowedAddresses:     ac.Condition.AllowedAddresses,
			AllowedSuinsNames:    ac.Condition.AllowedSuinsNames,
			AccessStartTime:      ac.Condition.AccessStartTime,
			AccessEndTime:        ac.Condition.AccessEndTime,
			MaxAccessDuration:    ac.Condition.MaxAccessDuration,
			RequireAllConditions: ac.Condition.RequireAllConditions,
			MaxAccessCount:       ac.Condition.MaxAccessCount,
		},
		CurrentAccessCount: ac.Condition.CurrentAccessCount,
		CreatedAt:          ac.CreatedAt,
		UpdatedAt:          ac.UpdatedAt,
	}
}

func (s *AccessService) RegisterRoutes(r *gin.RouterGroup) {
	controls := r.Group("/access-controls")
	{
		controls.POST("", s.Create)
		controls.PUT("/:id", s.Update)
		controls.GET("/:id", s.Get)
		controls.POST("/:id/validate", s.Validate)
		controls.GET("/:id/check", s.Check)
		controls.GET("/:id/records", s.Records)
	}
	r.GET("/files/:cid/access-control", s.GetByFile)
}
