package handler

import (
	"time"

	appfees "github.com/feeledger/backend/internal/application/fees"
	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles payment recording and verification endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *appfees.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *appfees.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// AllocationRequest is one slice of the recorded amount, either against an
// existing due or as a described custom charge
type AllocationRequest struct {
	DueID    *string `json:"due_id" binding:"omitempty,uuid"`
	Amount   float64 `json:"amount" binding:"required,gt=0"`
	Label    string  `json:"label"`
	Category string  `json:"category"`
	Notes    string  `json:"notes"`
}

// RecordPaymentRequest represents a request to record a payment
type RecordPaymentRequest struct {
	StudentID       string              `json:"student_id" binding:"required,uuid"`
	PaymentDate     string              `json:"payment_date"`
	Method          string              `json:"method" binding:"required,oneof=CASH BANK_TRANSFER UPI CHEQUE ONLINE OTHER"`
	ReferenceNumber string              `json:"reference_number"`
	Remarks         string              `json:"remarks"`
	AcademicYear    string              `json:"academic_year" binding:"required,academic_year"`
	Allocations     []AllocationRequest `json:"allocations" binding:"required,min=1,dive"`
	Verify          bool                `json:"verify"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID              string            `json:"id"`
	StudentID       string            `json:"student_id"`
	PaymentDate     time.Time         `json:"payment_date"`
	Method          string            `json:"method"`
	ReferenceNumber string            `json:"reference_number,omitempty"`
	Remarks         string            `json:"remarks,omitempty"`
	AcademicYear    string            `json:"academic_year"`
	Status          string            `json:"status"`
	TotalAmount     string            `json:"total_amount"`
	Allocations     fees.Allocations  `json:"allocations"`
	ImportKey       *string           `json:"import_key,omitempty"`
	VerifiedBy      *uuid.UUID        `json:"verified_by,omitempty"`
	VerifiedAt      *time.Time        `json:"verified_at,omitempty"`
	RejectedBy      *uuid.UUID        `json:"rejected_by,omitempty"`
	RejectedAt      *time.Time        `json:"rejected_at,omitempty"`
	RejectReason    string            `json:"reject_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

func toPaymentResponse(p *fees.Payment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID.String(),
		StudentID:       p.StudentID.String(),
		PaymentDate:     p.PaymentDate,
		Method:          p.Method.String(),
		ReferenceNumber: p.ReferenceNumber,
		Remarks:         p.Remarks,
		AcademicYear:    p.AcademicYear,
		Status:          p.Status.String(),
		TotalAmount:     p.TotalAmount().String(),
		Allocations:     p.Allocations,
		ImportKey:       p.ImportKey,
		VerifiedBy:      p.VerifiedBy,
		VerifiedAt:      p.VerifiedAt,
		RejectedBy:      p.RejectedBy,
		RejectedAt:      p.RejectedAt,
		RejectReason:    p.RejectReason,
		CreatedAt:       p.CreatedAt,
	}
}

// RegisterRoutes registers payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payments := rg.Group("/payments")
	{
		payments.POST("", h.RecordPayment)
		payments.GET("", h.ListPayments)
		payments.GET("/:id", h.GetPayment)
		payments.POST("/:id/verify", h.VerifyPayment)
		payments.POST("/:id/reject", h.RejectPayment)
	}
}

// RecordPayment records a payment and credits the targeted dues atomically
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Acting user is required to record a payment")
		return
	}

	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		h.BadRequest(c, "Invalid student ID")
		return
	}

	paymentDate := time.Now()
	if req.PaymentDate != "" {
		paymentDate, err = parseDateTime(req.PaymentDate)
		if err != nil {
			h.BadRequest(c, "Invalid payment date")
			return
		}
	}

	allocations := make([]fees.AllocationRequest, 0, len(req.Allocations))
	for i := range req.Allocations {
		a := req.Allocations[i]
		ar := fees.AllocationRequest{
			Amount:   decimal.NewFromFloat(a.Amount),
			Label:    a.Label,
			Category: a.Category,
			Notes:    a.Notes,
		}
		if a.DueID != nil {
			dueID, err := uuid.Parse(*a.DueID)
			if err != nil {
				h.BadRequest(c, "Invalid due ID in allocation")
				return
			}
			ar.DueID = &dueID
		}
		allocations = append(allocations, ar)
	}

	result, err := h.paymentService.RecordPayment(c.Request.Context(), appfees.RecordPaymentRequest{
		StudentID:       studentID,
		PaymentDate:     paymentDate,
		Method:          fees.PaymentMethod(req.Method),
		ReferenceNumber: req.ReferenceNumber,
		Remarks:         req.Remarks,
		AcademicYear:    req.AcademicYear,
		Allocations:     allocations,
		AutoVerify:      req.Verify,
		CreatedBy:       userID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// ListPayments lists payments matching the filter
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	listReq := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&listReq); err != nil {
		h.BadRequest(c, err.Error())
		return
	}
	if listReq.Page == 0 {
		listReq.Page = 1
	}
	if listReq.PageSize == 0 {
		listReq.PageSize = 20
	}

	filter := fees.PaymentFilter{
		AcademicYear: c.Query("academic_year"),
	}
	if s := c.Query("student_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			h.BadRequest(c, "Invalid student ID")
			return
		}
		filter.StudentID = &id
	}
	if s := c.Query("status"); s != "" {
		status := fees.PaymentStatus(s)
		if !status.IsValid() {
			h.BadRequest(c, "Invalid payment status")
			return
		}
		filter.Status = &status
	}
	if s := c.Query("method"); s != "" {
		method := fees.PaymentMethod(s)
		if !method.IsValid() {
			h.BadRequest(c, "Invalid payment method")
			return
		}
		filter.Method = &method
	}
	if s := c.Query("due_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			h.BadRequest(c, "Invalid due ID")
			return
		}
		filter.DueID = &id
	}

	page := shared.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
		OrderBy:  listReq.OrderBy,
		OrderDir: listReq.OrderDir,
	}

	result, err := h.paymentService.ListPayments(c.Request.Context(), filter, page)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]PaymentResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, toPaymentResponse(&result.Items[i]))
	}
	h.SuccessWithMeta(c, items, result.Total, listReq.Page, listReq.PageSize)
}

// GetPayment returns one payment with its allocations
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}
	paymentID := uuid.MustParse(idReq.ID)

	payment, err := h.paymentService.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(payment))
}

// VerifyPayment marks a pending payment as verified
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Acting user is required to verify a payment")
		return
	}

	payment, err := h.paymentService.VerifyPayment(c.Request.Context(), uuid.MustParse(idReq.ID), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(payment))
}

// RejectPaymentRequest carries the mandatory rejection reason
type RejectPaymentRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

// RejectPayment rejects a pending payment and reverses its due credits
func (h *PaymentHandler) RejectPayment(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid payment ID")
		return
	}

	var req RejectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Acting user is required to reject a payment")
		return
	}

	payment, err := h.paymentService.RejectPayment(c.Request.Context(), uuid.MustParse(idReq.ID), userID, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toPaymentResponse(payment))
}
