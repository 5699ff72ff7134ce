package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/domain"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/http/response"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/services"
)

type CurationHandler struct {
	log             *logger.Logger
	curationService services.CurationService
}

func NewCurationHandler(log *logger.Logger, curationService services.CurationService) *CurationHandler {
	return &CurationHandler{
		log:             log.With("handler", "CurationHandler"),
		curationService: curationService,
	}
}

func (h *CurationHandler) RequestBatch(c *gin.Context) {
	var req services.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	res, err := h.curationService.RequestBatch(c.Request.Context(), req)
	if err != nil {
		h.log.Error("RequestBatch failed", "category", req.Category, "error", err)
		response.RespondServiceError(c, "batch_failed", err)
		return
	}
	response.RespondCreated(c, res)
}

func (h *CurationHandler) ListCategories(c *gin.Context) {
	stats, err := h.curationService.ListCategories(c.Request.Context())
	if err != nil {
		h.log.Error("ListCategories failed", "error", err)
		response.RespondServiceError(c, "load_categories_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"categories": stats})
}

func (h *CurationHandler) GetCategoryStats(c *gin.Context) {
	name := c.Param("name")
	stats, err := h.curationService.GetCategoryStats(c.Request.Context(), name)
	if err != nil {
		response.RespondServiceError(c, "load_category_failed", err)
		return
	}
	response.RespondOK(c, stats)
}

func (h *CurationHandler) ExportCorpus(c *gin.Context) {
	phrases, err := h.curationService.ExportCorpus(c.Request.Context(), c.Query("category"), c.Query("difficulty"))
	if err != nil {
		response.RespondServiceError(c, "export_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"phrases": phrases, "count": len(phrases)})
}

func (h *CurationHandler) ImportCorpus(c *gin.Context) {
	var body struct {
		Entries []services.ImportEntry `json:"entries"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	report, err := h.curationService.ImportCorpus(c.Request.Context(), body.Entries)
	if err != nil {
		h.log.Error("ImportCorpus failed", "error", err)
		response.RespondServiceError(c, "import_failed", err)
		return
	}
	response.RespondOK(c, report)
}

func (h *CurationHandler) OverridePhrase(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var body struct {
		Difficulty string `json:"difficulty"`
		Reason     string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	phrase, err := h.curationService.OverridePhrase(c.Request.Context(), id, domain.Difficulty(body.Difficulty), body.Reason)
	if err != nil {
		response.RespondServiceError(c, "override_failed", err)
		return
	}
	response.RespondOK(c, phrase)
}

func (h *CurationHandler) DeletePhrase(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	if err := h.curationService.DeletePhrase(c.Request.Context(), id); err != nil {
		response.RespondServiceError(c, "delete_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": id})
}

func (h *CurationHandler) ListRuns(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.RespondError(c, http.StatusBadRequest, "invalid_limit", fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	runs, err := h.curationService.ListRuns(c.Request.Context(), c.Query("category"), limit)
	if err != nil {
		response.RespondServiceError(c, "load_runs_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}
