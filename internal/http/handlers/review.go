package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jamespheffernan/words-on-phone-sub001/internal/http/response"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/platform/logger"
	"github.com/jamespheffernan/words-on-phone-sub001/internal/services"
)

type ReviewHandler struct {
	log             *logger.Logger
	curationService services.CurationService
}

func NewReviewHandler(log *logger.Logger, curationService services.CurationService) *ReviewHandler {
	return &ReviewHandler{
		log:             log.With("handler", "ReviewHandler"),
		curationService: curationService,
	}
}

func (h *ReviewHandler) ListPending(c *gin.Context) {
	items, err := h.curationService.ListPendingReviews(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.log.Error("ListPending failed", "error", err)
		response.RespondServiceError(c, "load_reviews_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

func (h *ReviewHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return
	}
	var body struct {
		Approve    bool   `json:"approve"`
		ResolvedBy string `json:"resolved_by"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	item, err := h.curationService.ResolveReview(c.Request.Context(), id, body.Approve, body.ResolvedBy)
	if err != nil {
		response.RespondServiceError(c, "resolve_failed", err)
		return
	}
	response.RespondOK(c, item)
}
