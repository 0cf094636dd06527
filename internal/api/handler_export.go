package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"warranty-backend/internal/csvio"
	"warranty-backend/internal/model"
)

// GetExport handles GET /api/admin/warranties/export, streaming a CSV
// download.
func (h *Handler) GetExport(c *gin.Context) {
	status := model.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}

	filename := fmt.Sprintf("warranties-export-%s.csv", time.Now().Format("2006-01-02-15-04-05"))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := csvio.WriteExport(c.Request.Context(), c.Writer, h.store, status); err != nil {
		// Headers may already be out; nothing sensible left to send.
		c.Abort()
	}
}

// PostImport handles POST /api/admin/warranties/import with a
// multipart CSV upload.
func (h *Handler) PostImport(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "please select a CSV file to import"})
		return
	}

	f, err := file.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer f.Close()

	updateExisting := c.PostForm("update_existing") == "true"
	result, err := csvio.Import(c.Request.Context(), f, h.store, updateExisting)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
