package handler

import (
	"github.com/feeledger/backend/internal/domain/calendar"
	"github.com/feeledger/backend/internal/domain/fees"
	"github.com/feeledger/backend/internal/domain/shared"
	"github.com/feeledger/backend/internal/domain/student"
	"github.com/feeledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CatalogHandler serves the read-only reference data behind the ledger:
// classes, academic years, fee structures and the student register.
type CatalogHandler struct {
	BaseHandler
	classRepo        student.SchoolClassRepository
	studentRepo      student.StudentRepository
	yearRepo         calendar.AcademicYearRepository
	feeStructureRepo fees.FeeStructureRepository
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(
	classRepo student.SchoolClassRepository,
	studentRepo student.StudentRepository,
	yearRepo calendar.AcademicYearRepository,
	feeStructureRepo fees.FeeStructureRepository,
) *CatalogHandler {
	return &CatalogHandler{
		classRepo:        classRepo,
		studentRepo:      studentRepo,
		yearRepo:         yearRepo,
		feeStructureRepo: feeStructureRepo,
	}
}

// FeeStructureResponse carries a fee structure with the recomputed per
// occupancy totals. Stored totals are shown next to the verified totals so
// data-entry variance is visible instead of silently trusted.
type FeeStructureResponse struct {
	ID             string                  `json:"id"`
	ClassID        string                  `json:"class_id"`
	AcademicYear   string                  `json:"academic_year"`
	Detail         fees.FeeStructureDetail `json:"detail"`
	StoredTotal    string                  `json:"stored_total"`
	VerifiedTotals map[string]string       `json:"verified_totals"`
}

func toFeeStructureResponse(fs *fees.FeeStructure) FeeStructureResponse {
	resp := FeeStructureResponse{
		ID:             fs.ID.String(),
		ClassID:        fs.ClassID.String(),
		AcademicYear:   fs.AcademicYear,
		Detail:         fs.Detail,
		StoredTotal:    fs.StoredTotal.String(),
		VerifiedTotals: make(map[string]string),
	}
	for occ := range fs.Detail.Components {
		if total, err := fs.VerifiedTotal(occ); err == nil {
			resp.VerifiedTotals[string(occ)] = total.String()
		}
	}
	return resp
}

// RegisterRoutes registers catalog routes
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/classes", h.ListClasses)
	rg.GET("/academic-years", h.ListAcademicYears)
	rg.GET("/academic-years/current", h.GetCurrentAcademicYear)
	rg.GET("/fee-structures", h.ListFeeStructures)
	rg.GET("/classes/:id/fee-structure", h.GetClassFeeStructure)
	rg.GET("/students", h.ListStudents)
	rg.GET("/students/:id", h.GetStudent)
}

// ListClasses lists classes in display order
func (h *CatalogHandler) ListClasses(c *gin.Context) {
	includeInactive := c.Query("include_inactive") == "true"
	classes, err := h.classRepo.FindAll(c.Request.Context(), includeInactive)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, classes)
}

// ListAcademicYears lists academic years, newest first
func (h *CatalogHandler) ListAcademicYears(c *gin.Context) {
	years, err := h.yearRepo.FindAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, years)
}

// GetCurrentAcademicYear returns the single current academic year
func (h *CatalogHandler) GetCurrentAcademicYear(c *gin.Context) {
	year, err := h.yearRepo.FindCurrent(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, year)
}

// ListFeeStructures lists every class's fee structure for an academic year
func (h *CatalogHandler) ListFeeStructures(c *gin.Context) {
	academicYear := c.Query("academic_year")
	if academicYear == "" {
		h.BadRequest(c, "academic_year is required")
		return
	}

	structures, err := h.feeStructureRepo.FindByYear(c.Request.Context(), academicYear)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]FeeStructureResponse, 0, len(structures))
	for i := range structures {
		items = append(items, toFeeStructureResponse(&structures[i]))
	}
	h.Success(c, items)
}

// GetClassFeeStructure returns the fee structure billed for one class in one
// academic year
func (h *CatalogHandler) GetClassFeeStructure(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid class ID")
		return
	}

	academicYear := c.Query("academic_year")
	if academicYear == "" {
		h.BadRequest(c, "academic_year is required")
		return
	}

	fs, err := h.feeStructureRepo.FindByClassAndYear(c.Request.Context(), uuid.MustParse(idReq.ID), academicYear)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toFeeStructureResponse(fs))
}

// ListStudents lists students matching the filter
func (h *CatalogHandler) ListStudents(c *gin.Context) {
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

	filter := student.StudentFilter{
		AcademicYear:    c.Query("academic_year"),
		Name:            listReq.Search,
		OnlySynthesized: c.Query("only_synthesized") == "true",
		IncludeArchived: c.Query("include_archived") == "true",
	}
	if s := c.Query("class_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			h.BadRequest(c, "Invalid class ID")
			return
		}
		filter.ClassID = &id
	}

	page := shared.Filter{
		Page:     listReq.Page,
		PageSize: listReq.PageSize,
		OrderBy:  listReq.OrderBy,
		OrderDir: listReq.OrderDir,
	}

	result, err := h.studentRepo.FindByFilter(c.Request.Context(), filter, page)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.Total, listReq.Page, listReq.PageSize)
}

// GetStudent returns one student
func (h *CatalogHandler) GetStudent(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid student ID")
		return
	}

	st, err := h.studentRepo.FindByID(c.Request.Context(), uuid.MustParse(idReq.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, st)
}
