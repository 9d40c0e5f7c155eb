package handler

import (
	"time"

	appfees "github.com/feeledger/backend/internal/application/fees"
	"github.com/feeledger/backend/internal/domain/calendar"
	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DueHandler serves the due ledger endpoints
type DueHandler struct {
	BaseHandler
	dueService *appfees.DueService
}

// NewDueHandler creates a new DueHandler
func NewDueHandler(dueService *appfees.DueService) *DueHandler {
	return &DueHandler{dueService: dueService}
}

// DueResponse represents a due in API responses. Status and outstanding are
// derived from the amounts at response time.
type DueResponse struct {
	ID           string     `json:"id"`
	StudentID    string     `json:"student_id"`
	ClassID      string     `json:"class_id"`
	AcademicYear string     `json:"academic_year"`
	DueType      string     `json:"due_type"`
	DueMonth     *string    `json:"due_month,omitempty"`
	ItemType     string     `json:"item_type"`
	Amount       string     `json:"amount"`
	PaidAmount   string     `json:"paid_amount"`
	Outstanding  string     `json:"outstanding"`
	Status       string     `json:"status"`
	RetiredAt    *time.Time `json:"retired_at,omitempty"`
	RetireReason string     `json:"retire_reason,omitempty"`
}

func toDueResponse(d *fees.Due) DueResponse {
	resp := DueResponse{
		ID:           d.ID.String(),
		StudentID:    d.StudentID.String(),
		ClassID:      d.ClassID.String(),
		AcademicYear: d.AcademicYear,
		DueType:      d.DueType.String(),
		ItemType:     d.ItemType,
		Amount:       d.Amount.String(),
		PaidAmount:   d.PaidAmount.String(),
		Outstanding:  d.Outstanding().String(),
		Status:       d.Status().String(),
		RetiredAt:    d.RetiredAt,
		RetireReason: d.RetireReason,
	}
	if d.DueMonth != nil {
		s := d.DueMonth.String()
		resp.DueMonth = &s
	}
	return resp
}

// StudentStatementResponse is a student's dues plus folded totals
type StudentStatementResponse struct {
	StudentID string          `json:"student_id"`
	Dues      []DueResponse   `json:"dues"`
	Summary   fees.DueSummary `json:"summary"`
}

// RegisterRoutes registers due ledger routes
func (h *DueHandler) RegisterRoutes(rg *gin.RouterGroup) {
	dues := rg.Group("/dues")
	{
		dues.GET("", h.ListDues)
		dues.POST("/:id/retire", h.RetireDue)
	}
	students := rg.Group("/students")
	{
		students.GET("/:id/dues", h.GetStudentStatement)
		students.POST("/:id/dues/generate", h.GenerateStudentDues)
	}
}

// ListDues lists dues matching the filter. Status filters on the derived
// settlement state.
func (h *DueHandler) ListDues(c *gin.Context) {
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

	filter := fees.DueFilter{
		AcademicYear:   c.Query("academic_year"),
		ItemType:       c.Query("item_type"),
		IncludeRetired: c.Query("include_retired") == "true",
	}
	if s := c.Query("student_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			h.BadRequest(c, "Invalid student ID")
			return
		}
		filter.StudentID = &id
	}
	if s := c.Query("class_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			h.BadRequest(c, "Invalid class ID")
			return
		}
		filter.ClassID = &id
	}
	if s := c.Query("due_type"); s != "" {
		dueType := fees.DueType(s)
		if !dueType.IsValid() {
			h.BadRequest(c, "Invalid due type")
			return
		}
		filter.DueType = &dueType
	}
	if s := c.Query("status"); s != "" {
		status := fees.DueStatus(s)
		if !status.IsValid() {
			h.BadRequest(c, "Invalid due status")
			return
		}
		filter.Status = &status
	}
	if s := c.Query("month"); s != "" {
		month := calendar.MonthKey(s)
		if !month.IsValid() {
			h.BadRequest(c, "Invalid month key")
			return
		}
		filter.DueMonth = &month
	}

	page := shared.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
		OrderBy:  listReq.OrderBy,
		OrderDir: listReq.OrderDir,
	}

	result, err := h.dueService.ListDues(c.Request.Context(), filter, page)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]DueResponse, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, toDueResponse(&result.Items[i]))
	}
	h.SuccessWithMeta(c, items, result.Total, listReq.Page, listReq.PageSize)
}

// GetStudentStatement returns every active due of one student for one
// academic year with the billed/paid/pending summary
func (h *DueHandler) GetStudentStatement(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid student ID")
		return
	}

	academicYear := c.Query("academic_year")
	if academicYear == "" {
		h.BadRequest(c, "academic_year is required")
		return
	}

	statement, err := h.dueService.GetStudentDues(c.Request.Context(), uuid.MustParse(idReq.ID), academicYear)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	dues := make([]DueResponse, 0, len(statement.Dues))
	for i := range statement.Dues {
		dues = append(dues, toDueResponse(&statement.Dues[i]))
	}
	h.Success(c, StudentStatementResponse{
		StudentID: statement.StudentID.String(),
		Dues:      dues,
		Summary:   statement.Summary,
	})
}

// GenerateStudentDues bills a student for an academic year from the class
// fee structure. Idempotent; existing dues are skipped.
func (h *DueHandler) GenerateStudentDues(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid student ID")
		return
	}

	academicYear := c.Query("academic_year")
	if academicYear == "" {
		h.BadRequest(c, "academic_year is required")
		return
	}

	result, err := h.dueService.GenerateStudentDues(c.Request.Context(), uuid.MustParse(idReq.ID), academicYear)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// RetireDueRequest carries the mandatory retirement reason
type RetireDueRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=255"`
}

// RetireDue soft-retires a due so it stops appearing in the ledger
func (h *DueHandler) RetireDue(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid due ID")
		return
	}

	var req RetireDueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if err := h.dueService.RetireDue(c.Request.Context(), uuid.MustParse(idReq.ID), req.Reason); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"retired": true})
}
