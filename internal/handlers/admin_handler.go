package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"rewards-service/internal/services"
)

func (h *Handler) GetSettings(c *gin.Context) {
	st, err := h.Settings.Get(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, st, "Settings fetched")
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req services.UpdateSettingsDTO
	if !bindJSON(c, &req) {
		return
	}
	st, err := h.Settings.Update(c.Request.Context(), actor(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, st, "Settings updated")
}

func (h *Handler) DashboardStats(c *gin.Context) {
	from, to, err := services.ParseDateRange(c.DefaultQuery("range", "day"), c.Query("from"), c.Query("to"), time.Now())
	if err != nil {
		h.respondError(c, err)
		return
	}
	stats, err := h.Dashboard.Stats(c.Request.Context(), actor(c), from, to)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, stats, "Dashboard stats")
}

func (h *Handler) ListNotifications(c *gin.Context) {
	unread, valid := queryBool(c, "unread")
	if !valid {
		return
	}
	res, err := h.Notifications.List(c.Request.Context(), actor(c).ID, unread != nil && *unread, pageParams(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	paginated(c, res)
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	if err := h.Notifications.MarkRead(c.Request.Context(), actor(c).ID, id); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, nil, "Notification marked as read")
}
