package handlers

import (
	"github.com/gin-gonic/gin"

	"rewards-service/internal/services"
)

func (h *Handler) CreateRedemption(c *gin.Context) {
	var req services.CreateRedemptionDTO
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.Redemptions.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	created(c, r, "Redemption requested")
}

func (h *Handler) ListRedemptions(c *gin.Context) {
	userID, valid := queryID(c, "user_id")
	if !valid {
		return
	}
	res, err := h.Redemptions.List(c.Request.Context(), actor(c), services.ListRedemptionsDTO{
		Status: c.Query("status"),
		UserID: userID,
		Page:   pageParams(c),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	paginated(c, res)
}

func (h *Handler) GetRedemption(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	r, err := h.Redemptions.Get(c.Request.Context(), actor(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, r, "Redemption fetched")
}

type ProcessRedemptionRequest struct {
	Status  string `json:"status" binding:"required"`
	Comment string `json:"comment"`
}

func (h *Handler) ProcessRedemption(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req ProcessRedemptionRequest
	if !bindJSON(c, &req) {
		return
	}
	r, err := h.Redemptions.Process(c.Request.Context(), actor(c), id, req.Status, req.Comment)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, r, "Redemption "+r.Status)
}

// UserRewardPoints returns the caller's balance and a page of ledger history.
func (h *Handler) UserRewardPoints(c *gin.Context) {
	id := actor(c).ID
	balance, err := h.Ledger.Balance(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	history, err := h.Ledger.History(c.Request.Context(), id, pageParams(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, gin.H{"balance": balance, "history": history}, "Reward points fetched")
}
