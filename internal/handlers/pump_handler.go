package handlers

import (
	"github.com/gin-gonic/gin"

	"rewards-service/internal/models"
	"rewards-service/internal/services"
)

func (h *Handler) ListPumps(c *gin.Context) {
	pumps, err := h.Pumps.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, pumps, "Pumps fetched")
}

func (h *Handler) GetPump(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	pump, err := h.Pumps.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, pump, "Pump fetched")
}

func (h *Handler) CreatePump(c *gin.Context) {
	var req services.PumpDTO
	if !bindJSON(c, &req) {
		return
	}
	pump, err := h.Pumps.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	created(c, pump, "Pump created")
}

func (h *Handler) UpdatePump(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req services.UpdatePumpDTO
	if !bindJSON(c, &req) {
		return
	}
	pump, err := h.Pumps.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, pump, "Pump updated")
}

func (h *Handler) DeletePump(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	if err := h.Pumps.Delete(c.Request.Context(), actor(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, nil, "Pump deleted")
}

func (h *Handler) AssignPump(c *gin.Context) {
	var req services.AssignPumpDTO
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.Pumps.Assign(c.Request.Context(), actor(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, assignment, "Pump assigned")
}

func (h *Handler) ListPumpAssignments(c *gin.Context) {
	pumpID, valid := queryID(c, "pump_id")
	if !valid {
		return
	}
	employerID, valid := queryID(c, "employer_id")
	if !valid {
		return
	}
	out, err := h.Pumps.Assignments(c.Request.Context(), services.ListPumpAssignmentsDTO{
		PumpID:     pumpID,
		EmployerID: employerID,
		Status:     c.Query("status"),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, out, "Pump assignments fetched")
}

// MyPumps lists the pumps the calling employer currently operates.
func (h *Handler) MyPumps(c *gin.Context) {
	out, err := h.Pumps.Assignments(c.Request.Context(), services.ListPumpAssignmentsDTO{
		EmployerID: actor(c).ID,
		Status:     models.AssignmentActive,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, out, "Assigned pumps fetched")
}
