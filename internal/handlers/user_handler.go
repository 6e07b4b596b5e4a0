package handlers

import (
	"github.com/gin-gonic/gin"

	"rewards-service/internal/services"
)

func (h *Handler) ListUsers(c *gin.Context) {
	active, valid := queryBool(c, "active")
	if !valid {
		return
	}
	res, err := h.Users.List(c.Request.Context(), services.ListUsersDTO{
		Role:   c.Query("role"),
		Search: c.Query("search"),
		Active: active,
		Page:   pageParams(c),
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	paginated(c, res)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	user, err := h.Users.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, user, "User fetched")
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req services.CreateUserDTO
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Users.Create(c.Request.Context(), actor(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	created(c, user, "User created")
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req services.UpdateUserDTO
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.Users.Update(c.Request.Context(), actor(c), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, user, "User updated")
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	if err := h.Users.Delete(c.Request.Context(), actor(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, nil, "User deleted")
}

func (h *Handler) AssignUser(c *gin.Context) {
	var req services.AssignUserDTO
	if !bindJSON(c, &req) {
		return
	}
	binding, err := h.Users.AssignToEmployer(c.Request.Context(), actor(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, binding, "User assigned to employer")
}

func (h *Handler) EmployerUsers(c *gin.Context) {
	users, err := h.Users.EmployerUsers(c.Request.Context(), actor(c).ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ok(c, users, "Assigned users fetched")
}
