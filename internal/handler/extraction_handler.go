package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"aria/internal/domain"
	"aria/internal/export"
	"aria/internal/service"
)

const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"

	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ExtractionHandler handles extraction endpoints.
type ExtractionHandler struct {
	extractionService service.ExtractionService
}

// NewExtractionHandler creates a new ExtractionHandler.
func NewExtractionHandler(extractionService service.ExtractionService) *ExtractionHandler {
	return &ExtractionHandler{extractionService: extractionService}
}

// Extract handles POST /api/v1/extractions
// @Summary Extract a transaction
// @Description Run one extraction pass over the conversation so far. Passes with a conversation_id are stored and build on the previous pass.
// @Tags extractions
// @Accept json
// @Produce json
// @Param request body ExtractRequest true "Conversation to extract from"
// @Success 200 {object} Response{data=ExtractResponse} "Stateless pass result"
// @Success 201 {object} Response{data=ExtractResponse} "Stored pass result"
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Failure 422 {object} ErrorResponseBody "Unsupported transaction type"
// @Failure 429 {object} ErrorResponseBody "Providers rate limited"
// @Failure 503 {object} ErrorResponseBody "Extraction unavailable"
// @Security BearerAuth
// @Router /extractions [post]
func (h *ExtractionHandler) Extract(c *gin.Context) {
	var req ExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "conversation is required")
		return
	}
	input, err := toExtractInput(&req)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REFERENCE_DATE", err.Error())
		return
	}

	result, err := h.extractionService.Extract(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	if result.Run != nil {
		RespondCreated(c, toExtractResponse(result))
		return
	}
	RespondOK(c, toExtractResponse(result))
}

// ExtractBatch handles POST /api/v1/extractions/batch
// @Summary Extract a batch of conversations
// @Description Run one extraction pass for each conversation concurrently. Failures are reported per conversation.
// @Tags extractions
// @Accept json
// @Produce json
// @Param request body BatchExtractRequest true "Conversations to extract from"
// @Success 200 {object} Response{data=BatchExtractResponse} "Batch results in request order"
// @Failure 400 {object} ErrorResponseBody "Invalid request or duplicate conversation"
// @Failure 413 {object} ErrorResponseBody "Batch too large"
// @Security BearerAuth
// @Router /extractions/batch [post]
func (h *ExtractionHandler) ExtractBatch(c *gin.Context) {
	var req BatchExtractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "conversations must be a non-empty list and each needs conversation text")
		return
	}

	inputs := make([]service.ExtractInput, len(req.Conversations))
	for i := range req.Conversations {
		in, err := toExtractInput(&req.Conversations[i])
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REFERENCE_DATE", fmt.Sprintf("conversations[%d]: %v", i, err))
			return
		}
		inputs[i] = in
	}

	results, err := h.extractionService.ExtractBatch(c.Request.Context(), inputs)
	if err != nil {
		HandleError(c, err)
		return
	}

	resp := BatchExtractResponse{Results: make([]BatchItemResponse, len(results))}
	for i, r := range results {
		item := BatchItemResponse{ConversationID: r.ConversationID}
		if r.Err != nil {
			_, code, msg := MapDomainError(r.Err)
			item.Error = &APIError{Code: code, Message: msg}
			resp.Failed++
		} else {
			item.Result = toExtractResponse(r.Result)
			resp.Succeeded++
		}
		resp.Results[i] = item
	}
	RespondOK(c, resp)
}

// ListByConversation handles GET /api/v1/conversations/:id/extractions
// @Summary List extraction passes
// @Description List the stored passes of a conversation, oldest first
// @Tags extractions
// @Produce json
// @Param id path string true "Conversation ID"
// @Param offset query int false "Pagination offset" default(0)
// @Param limit query int false "Pagination limit" default(20)
// @Success 200 {object} Response{data=[]domain.ExtractionRun,meta=PagMeta} "Passes"
// @Security BearerAuth
// @Router /conversations/{id}/extractions [get]
func (h *ExtractionHandler) ListByConversation(c *gin.Context) {
	offset, limit := parsePagination(c)

	runs, total, err := h.extractionService.ListByConversation(c.Request.Context(), c.Param("id"), offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, runs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// GetLatest handles GET /api/v1/conversations/:id/extractions/latest
// @Summary Get the latest extraction pass
// @Description Get the most recent stored pass of a conversation
// @Tags extractions
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} Response{data=domain.ExtractionRun} "Latest pass"
// @Failure 404 {object} ErrorResponseBody "No passes stored for the conversation"
// @Security BearerAuth
// @Router /conversations/{id}/extractions/latest [get]
func (h *ExtractionHandler) GetLatest(c *gin.Context) {
	run, err := h.extractionService.GetLatest(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, run)
}

// ExportConversation handles GET /api/v1/conversations/:id/extractions/export
// @Summary Export a conversation's passes
// @Description Download every stored pass as CSV or XLSX. XLSX has one sheet per transaction type; CSV covers the type of the latest pass unless type is given.
// @Tags exports
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Conversation ID"
// @Param format query string false "csv or xlsx" default(csv)
// @Param type query string false "Transaction type for CSV output"
// @Success 200 {file} file "Export file"
// @Failure 400 {object} ErrorResponseBody "Unsupported format"
// @Failure 404 {object} ErrorResponseBody "No passes stored for the conversation"
// @Security BearerAuth
// @Router /conversations/{id}/extractions/export [get]
func (h *ExtractionHandler) ExportConversation(c *gin.Context) {
	format, ok := parseFormat(c)
	if !ok {
		return
	}
	convID := c.Param("id")

	sheets, err := h.extractionService.ExportConversation(c.Request.Context(), convID)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := sanitizeFilename(convID) + "-extractions"
	if format == formatXLSX {
		writeXLSX(c, filename, sheets)
		return
	}

	sheet, found := pickSheet(sheets, domain.TransactionType(c.Query("type")))
	if !found {
		HandleError(c, domain.ErrNotFound)
		return
	}
	writeCSV(c, filename, sheet)
}

// ExportLatest handles GET /api/v1/exports/:type
// @Summary Export latest records of a transaction type
// @Description Download the latest pass of every conversation whose current transaction type matches
// @Tags exports
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param type path string true "Transaction type"
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} file "Export file"
// @Failure 400 {object} ErrorResponseBody "Unsupported format"
// @Failure 422 {object} ErrorResponseBody "Unknown transaction type"
// @Security BearerAuth
// @Router /exports/{type} [get]
func (h *ExtractionHandler) ExportLatest(c *gin.Context) {
	format, ok := parseFormat(c)
	if !ok {
		return
	}
	txType := domain.TransactionType(c.Param("type"))

	sheet, err := h.extractionService.ExportLatest(c.Request.Context(), txType)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := string(txType) + "-latest"
	if format == formatXLSX {
		writeXLSX(c, filename, []export.Sheet{*sheet})
		return
	}
	writeCSV(c, filename, sheet)
}

func toExtractInput(req *ExtractRequest) (service.ExtractInput, error) {
	in := service.ExtractInput{ConversationID: strings.TrimSpace(req.ConversationID), Conversation: req.Conversation}
	if req.ReferenceDate == "" {
		return in, nil
	}
	t, err := parseReferenceDate(req.ReferenceDate)
	if err != nil {
		return in, err
	}
	in.ReferenceTime = t
	return in, nil
}

func parseReferenceDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("reference_date %q must be YYYY-MM-DD or RFC 3339", s)
}

func toExtractResponse(r *service.ExtractResult) *ExtractResponse {
	resp := &ExtractResponse{Record: r.Record, FieldProvenance: r.FieldProvenance, HandedOff: r.HandedOff}
	if r.Run != nil {
		resp.ConversationID = r.Run.ConversationID
		resp.Pass = r.Run.Pass
		resp.ModelUsed = r.Run.ModelUsed
		if !r.Run.CreatedAt.IsZero() {
			created := r.Run.CreatedAt
			resp.CreatedAt = &created
		}
	}
	return resp
}

func parseFormat(c *gin.Context) (string, bool) {
	format := strings.ToLower(c.DefaultQuery("format", formatCSV))
	if format != formatCSV && format != formatXLSX {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
		return "", false
	}
	return format, true
}

// pickSheet returns the sheet for want, or when want is empty the sheet holding the highest pass.
func pickSheet(sheets []export.Sheet, want domain.TransactionType) (*export.Sheet, bool) {
	var best *export.Sheet
	bestPass := -1
	for i := range sheets {
		if want != "" {
			if sheets[i].Type == want {
				return &sheets[i], true
			}
			continue
		}
		for _, r := range sheets[i].Rows {
			if r.Pass > bestPass {
				best, bestPass = &sheets[i], r.Pass
			}
		}
	}
	return best, best != nil
}

func writeCSV(c *gin.Context, filename string, sheet *export.Sheet) {
	var buf bytes.Buffer
	w := export.NewWriter(&buf, sheet.Specs)
	if err := w.WriteHeader(); err != nil {
		HandleError(c, err)
		return
	}
	if err := w.WriteRows(sheet.Rows); err != nil {
		HandleError(c, err)
		return
	}
	w.Flush()
	if err := w.Error(); err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`.csv"`)
	c.Data(http.StatusOK, contentTypeCSV, buf.Bytes())
}

func writeXLSX(c *gin.Context, filename string, sheets []export.Sheet) {
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, sheets); err != nil {
		HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`.xlsx"`)
	c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}

func sanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "conversation"
	}
	return b.String()
}

func parsePagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return offset, limit
}
