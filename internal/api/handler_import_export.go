package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"pm-tracker-backend/internal/sheet"
)

// ExportMachines handles GET /pm-machines/export/excel?search=.
func (h *Handler) ExportMachines(c *gin.Context) {
	data, err := h.svc.Export(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sheet.ExportFilename))
	c.Data(http.StatusOK, sheet.ContentType, data)
}

// ImportMachines handles POST /pm-machines/import/excel with a multipart
// "file" part.
func (h *Handler) ImportMachines(c *gin.Context) {
	if h.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer f.Close()

	summary, err := h.svc.ImportFile(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("Import completed. %d machines processed.", summary.Imported),
		"imported": summary.Imported,
		"errors":   summary.Errors,
	})
}
