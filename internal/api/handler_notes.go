package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetNote handles GET /machine-notes/:idMsn.
func (h *Handler) GetNote(c *gin.Context) {
	n, err := h.svc.Note(c.Request.Context(), c.Param("idMsn"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

type saveNoteRequest struct {
	IDMsn   string `json:"idMsn"`
	Content string `json:"content"`
}

// SaveNote handles POST /machine-notes.
func (h *Handler) SaveNote(c *gin.Context) {
	var req saveNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	n, err := h.svc.SaveNote(c.Request.Context(), req.IDMsn, req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}
