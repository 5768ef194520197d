package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/amber-aim/ad-placement-go/internal/apperr"
	"github.com/amber-aim/ad-placement-go/internal/models"
	"github.com/amber-aim/ad-placement-go/pkg/logger"
)

// SuggestAds runs the ad-matching agent for an analyzed video. A video
// without a placement document yields an empty success response.
func (h *Handler) SuggestAds(c *gin.Context) {
	var req models.SuggestAdsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleError(c, apperr.Wrap(apperr.CodeInvalidRequest, "invalid request payload", err))
		return
	}

	response, err := h.suggester.SuggestAds(c.Request.Context(), req.VideoID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	logger.Log.Info("Ads suggestion completed",
		zap.String("video_id", req.VideoID),
		zap.Int("suggested_ads_count", len(response.SuggestedAds)),
	)

	c.JSON(http.StatusOK, response)
}
