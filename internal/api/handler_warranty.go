package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"warranty-backend/internal/warranty"
)

// PostActivate handles POST /api/warranty/activate.
func (h *Handler) PostActivate(c *gin.Context) {
	var req warranty.ActivationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.Activate(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// PostCheck handles POST /api/warranty/check.
func (h *Handler) PostCheck(c *gin.Context) {
	var req warranty.CheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.Check(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetVerify handles GET /api/warranty/verify/:token, the deep link
// printed on certificates.
func (h *Handler) GetVerify(c *gin.Context) {
	result, err := h.svc.VerifyCheck(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetOptions handles GET /api/warranty/options, exposing the form
// choices the activation page renders.
func (h *Handler) GetOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"warranty_months":    h.cfg.Warranty.DefaultWarrantyMonths,
		"warranty_attribute": h.cfg.Warranty.WarrantyAttribute,
		"auto_activate":      h.cfg.Warranty.AutoActivate,
	})
}
