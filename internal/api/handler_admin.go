package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"warranty-backend/internal/model"
	"warranty-backend/internal/mw"
	"warranty-backend/internal/store"
	"warranty-backend/internal/warranty"
)

type loginRequest struct {
	Password string `json:"password" binding:"required"`
}

// PostLogin handles POST /api/admin/login.
func (h *Handler) PostLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.cfg.Admin.Password == "" || req.Password != h.cfg.Admin.Password {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	ttl := time.Duration(h.cfg.Admin.TokenTTLMinutes) * time.Minute
	token, err := mw.IssueAdminToken(h.cfg.Admin.JWTSecret, ttl)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_in": int(ttl.Seconds())})
}

// GetWarranties handles GET /api/admin/warranties.
func (h *Handler) GetWarranties(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := store.ListFilter{
		Status:  model.Status(c.Query("status")),
		Search:  c.Query("search"),
		OrderBy: c.Query("order_by"),
		Desc:    c.DefaultQuery("order", "desc") == "desc",
		Limit:   limit,
		Offset:  offset,
	}
	if filter.Status != "" && !filter.Status.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}

	recs, total, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"warranties": recs, "total": total})
}

// GetStats handles GET /api/admin/stats.
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.store.Stats(c.Request.Context(), time.Now().UTC())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetWarranty handles GET /api/admin/warranties/:id.
func (h *Handler) GetWarranty(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		return
	}
	rec, err := h.store.FindByID(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	if rec == nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "warranty not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// PostWarranty handles POST /api/admin/warranties, the "add new"
// action.
func (h *Handler) PostWarranty(c *gin.Context) {
	var req warranty.AdminUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id, err := h.svc.AdminCreate(c.Request.Context(), req)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// PutWarranty handles PUT /api/admin/warranties/:id.
func (h *Handler) PutWarranty(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		return
	}
	var req warranty.AdminUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.svc.AdminUpdate(c.Request.Context(), id, req); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "warranty updated successfully"})
}

// DeleteWarranty handles DELETE /api/admin/warranties/:id.
func (h *Handler) DeleteWarranty(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PostApprove handles POST /api/admin/warranties/:id/activate.
func (h *Handler) PostApprove(c *gin.Context) {
	id, err := recordID(c)
	if err != nil {
		return
	}
	rec, err := h.svc.Approve(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type bulkRequest struct {
	Action string  `json:"action" binding:"required"`
	IDs    []int64 `json:"ids" binding:"required"`
}

// PostBulk handles POST /api/admin/warranties/bulk.
func (h *Handler) PostBulk(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	count, err := h.svc.BulkAction(c.Request.Context(), req.Action, req.IDs)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": count})
}

func recordID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid warranty ID"})
		return 0, errInvalidID
	}
	return id, nil
}

var errInvalidID = &warranty.ValidationError{Field: "id", Message: "invalid warranty ID"}
