package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rewards-service/internal/middleware"
)

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	res, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	h.setSessionCookie(c, res.Token, int(h.SessionTTL.Seconds()))
	ok(c, res, "Login successful")
}

func (h *Handler) Logout(c *gin.Context) {
	if claims, found := middleware.GetClaims(c); found {
		if err := h.Auth.Logout(c.Request.Context(), claims); err != nil {
			h.respondError(c, err)
			return
		}
	}
	h.setSessionCookie(c, "", -1)
	ok(c, nil, "Logged out")
}

func (h *Handler) Me(c *gin.Context) {
	user, err := h.Users.Get(c.Request.Context(), actor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, user, "Current user")
}

func (h *Handler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.CookieName, value, maxAge, "/", "", h.CookieSecure, true)
}
