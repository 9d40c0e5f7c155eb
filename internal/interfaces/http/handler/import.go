package handler

import (
	"github.com/feeledger/backend/internal/application/importer"
	"github.com/feeledger/backend/internal/domain/bulk"
	"github.com/feeledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ImportHandler handles bulk payment reconciliation uploads
type ImportHandler struct {
	BaseHandler
	importService *importer.PaymentImportService
	batchRepo     bulk.ImportBatchRepository
	maxFileSize   int64
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importService *importer.PaymentImportService, batchRepo bulk.ImportBatchRepository, maxFileSize int64) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		batchRepo:     batchRepo,
		maxFileSize:   maxFileSize,
	}
}

// RegisterRoutes registers import routes
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	imports := rg.Group("/imports")
	{
		imports.POST("/payments", h.ImportPayments)
		imports.GET("", h.ListBatches)
		imports.GET("/:id", h.GetBatch)
	}
}

// ImportPayments accepts a register sheet upload and reconciles it into
// payments. The whole batch summary comes back in one response; sheets are
// small enough that synchronous processing is fine.
func (h *ImportHandler) ImportPayments(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Acting user is required to import payments")
		return
	}

	academicYear := c.PostForm("academic_year")
	if academicYear == "" {
		h.BadRequest(c, "academic_year is required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "A sheet file is required")
		return
	}
	if fileHeader.Size > h.maxFileSize {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeFileTooLarge), dto.ErrCodeFileTooLarge, "Sheet exceeds the maximum allowed size")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Could not read the uploaded sheet")
		return
	}
	defer file.Close()

	batch, err := h.importService.ImportPayments(c.Request.Context(), importer.ImportRequest{
		Reader:       file,
		FileName:     fileHeader.Filename,
		FileSize:     fileHeader.Size,
		AcademicYear: academicYear,
		ImportedBy:   userID,
	})
	if err != nil {
		// The failed batch, when one was recorded, rides along in the error
		// envelope so the failure is inspectable.
		if batch != nil {
			resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeValidation, err.Error(), getRequestID(c))
			resp.Data = batch
			c.JSON(dto.GetHTTPStatus(dto.ErrCodeValidation), resp)
			return
		}
		h.HandleError(c, err)
		return
	}

	h.Created(c, batch)
}

// ListBatches lists reconciliation batches, newest first
func (h *ImportHandler) ListBatches(c *gin.Context) {
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

	filter := bulk.ImportBatchFilter{
		AcademicYear: c.Query("academic_year"),
	}
	if s := c.Query("status"); s != "" {
		status := bulk.ImportStatus(s)
		if !status.IsValid() {
			h.BadRequest(c, "Invalid batch status")
			return
		}
		filter.Status = &status
	}
	if s := c.Query("source"); s != "" {
		source := bulk.ImportSource(s)
		if !source.IsValid() {
			h.BadRequest(c, "Invalid import source")
			return
		}
		filter.Source = &source
	}

	result, err := h.batchRepo.FindAll(c.Request.Context(), filter, listReq.Page, listReq.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, result.Items, result.TotalCount, listReq.Page, listReq.PageSize)
}

// GetBatch returns one batch with its counters and row errors
func (h *ImportHandler) GetBatch(c *gin.Context) {
	var idReq dto.IDRequest
	if err := c.ShouldBindUri(&idReq); err != nil {
		h.BadRequest(c, "Invalid batch ID")
		return
	}

	batch, err := h.batchRepo.FindByID(c.Request.Context(), uuid.MustParse(idReq.ID))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, batch)
}
