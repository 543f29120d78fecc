package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pm-tracker-backend/internal/pm"
)

// ListMachines handles GET /pm-machines?search=.
func (h *Handler) ListMachines(c *gin.Context) {
	machines, err := h.svc.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, machines)
}

// GetMachine handles GET /pm-machines/:idMsn.
func (h *Handler) GetMachine(c *gin.Context) {
	m, err := h.svc.Get(c.Request.Context(), c.Param("idMsn"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// CreateMachine handles POST /pm-machines.
func (h *Handler) CreateMachine(c *gin.Context) {
	var in pm.MachineInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	m, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// UpdateMachine handles PUT /pm-machines/:idMsn with a partial field set.
func (h *Handler) UpdateMachine(c *gin.Context) {
	var p pm.MachinePatch
	if err := c.ShouldBindJSON(&p); err != nil {
		badRequest(c)
		return
	}

	m, err := h.svc.Patch(c.Request.Context(), c.Param("idMsn"), p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// EditMachine handles PATCH /pm-machines/:idMsn. Only the descriptive
// fields are accepted.
func (h *Handler) EditMachine(c *gin.Context) {
	var in pm.EditInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c)
		return
	}

	m, err := h.svc.Edit(c.Request.Context(), c.Param("idMsn"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type completeRequest struct {
	TglSelesaiPM string `json:"tglSelesaiPM"`
}

// CompleteMachine handles POST /pm-machines/:idMsn/complete.
func (h *Handler) CompleteMachine(c *gin.Context) {
	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	m, err := h.svc.Complete(c.Request.Context(), c.Param("idMsn"), req.TglSelesaiPM)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

type rescheduleRequest struct {
	PeriodePM string `json:"periodePM"`
}

// RescheduleMachine handles POST /pm-machines/:idMsn/reschedule.
func (h *Handler) RescheduleMachine(c *gin.Context) {
	var req rescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c)
		return
	}

	m, err := h.svc.Reschedule(c.Request.Context(), c.Param("idMsn"), req.PeriodePM)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

// DeleteMachine handles DELETE /pm-machines/:idMsn?deleteAll=. Without
// deleteAll=true only the maintenance cycle is cleared.
func (h *Handler) DeleteMachine(c *gin.Context) {
	deleteAll, _ := strconv.ParseBool(c.DefaultQuery("deleteAll", "false"))

	if err := h.svc.Delete(c.Request.Context(), c.Param("idMsn"), deleteAll); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Machine data deleted successfully"})
}
