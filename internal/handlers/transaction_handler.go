package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"rewards-service/internal/services"
)

func (h *Handler) RecordTransaction(c *gin.Context) {
	var req services.RecordTransactionDTO
	if !bindJSON(c, &req) {
		return
	}
	txn, err := h.Transactions.Record(c.Request.Context(), actor(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	created(c, txn, "Transaction recorded")
}

func (h *Handler) ListEmployerTransactions(c *gin.Context) {
	pumpID, valid := queryID(c, "pump_id")
	if !valid {
		return
	}

	data := services.ListTransactionsDTO{
		PumpID: pumpID,
		Status: c.Query("status"),
		Page:   pageParams(c),
	}
	if from, to := c.Query("from"), c.Query("to"); from != "" || to != "" {
		start, end, err := services.ParseDateRange("", from, to, time.Now())
		if err != nil || from == "" || to == "" {
			badRequest(c, "from and to must both be set as YYYY-MM-DD")
			return
		}
		data.From, data.To = &start, &end
	}

	res, err := h.Transactions.ListForEmployer(c.Request.Context(), actor(c).ID, data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paginated(c, res)
}

func (h *Handler) GetTransaction(c *gin.Context) {
	txn, err := h.Transactions.GetByInvoice(c.Request.Context(), actor(c), c.Param("invoice"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, txn, "Transaction fetched")
}

func (h *Handler) EmployerRewardPoints(c *gin.Context) {
	summary, err := h.Transactions.RewardSummary(c.Request.Context(), actor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, summary, "Reward points summary")
}
