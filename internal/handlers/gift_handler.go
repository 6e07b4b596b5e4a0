package handlers

import (
	"github.com/gin-gonic/gin"

	"rewards-service/internal/services"
)

func (h *Handler) ListGifts(c *gin.Context) {
	active, valid := queryBool(c, "active")
	if !valid {
		return
	}
	// Only staff see inactive gifts.
	if !actor(c).IsStaff() {
		yes := true
		active = &yes
	}
	res, err := h.Gifts.List(c.Request.Context(), services.ListGiftsDTO{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Active:   active,
		Page:     pageParams(c),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	paginated(c, res)
}

func (h *Handler) GetGift(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	gift, err := h.Gifts.GetFor(c.Request.Context(), actor(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, gift, "Gift fetched")
}

func (h *Handler) CreateGift(c *gin.Context) {
	var req services.GiftDTO
	if !bindJSON(c, &req) {
		return
	}
	gift, err := h.Gifts.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	created(c, gift, "Gift created")
}

func (h *Handler) UpdateGift(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req services.UpdateGiftDTO
	if !bindJSON(c, &req) {
		return
	}
	gift, err := h.Gifts.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, gift, "Gift updated")
}

func (h *Handler) DeleteGift(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	if err := h.Gifts.Delete(c.Request.Context(), actor(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, nil, "Gift deleted")
}

func (h *Handler) AvailableGifts(c *gin.Context) {
	out, err := h.Gifts.AvailableForUser(c.Request.Context(), actor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, out, "Available gifts fetched")
}

func (h *Handler) AssignGift(c *gin.Context) {
	var req services.AssignGiftDTO
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.Assignments.Assign(c.Request.Context(), actor(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	created(c, assignment, "Gift assigned")
}

func (h *Handler) ApproveGiftAssignment(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	assignment, err := h.Assignments.Approve(c.Request.Context(), actor(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, assignment, "Gift assignment approved")
}

func (h *Handler) EmployerGifts(c *gin.Context) {
	out, err := h.Assignments.ListForAssignee(c.Request.Context(), actor(c).ID, c.Query("status"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, out, "Assigned gifts fetched")
}

func (h *Handler) EmployerGiftStatus(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	assignment, err := h.Assignments.StatusFor(c.Request.Context(), actor(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, gin.H{
		"id":           assignment.ID,
		"gift":         assignment.Gift,
		"status":       assignment.Status,
		"availability": assignment.Availability,
		"expires_at":   assignment.ExpiresAt,
	}, "Gift assignment status")
}

type AvailabilityRequest struct {
	Availability string `json:"availability" binding:"required"`
}

func (h *Handler) UpdateGiftAvailability(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req AvailabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	assignment, err := h.Assignments.UpdateAvailability(c.Request.Context(), actor(c), id, req.Availability)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, assignment, "Availability updated")
}
