package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"rewards-service/internal/middleware"
	"rewards-service/internal/services"
	"rewards-service/pkg/common"
)

// Handler exposes the services over HTTP.
type Handler struct {
	Auth          *services.AuthService
	Users         *services.UserService
	Pumps         *services.PumpService
	Transactions  *services.TransactionService
	Ledger        *services.LedgerService
	Gifts         *services.GiftService
	Assignments   *services.GiftAssignmentService
	Redemptions   *services.RedemptionService
	Settings      *services.SettingsService
	Notifications *services.NotificationService
	Dashboard     *services.DashboardService

	CookieName   string
	CookieSecure bool
	SessionTTL   time.Duration
	Logger       *zap.Logger
}

// respondError maps service errors onto HTTP statuses. Anything unknown is
// logged and reported as a 500 without details.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal Server Error"

	switch {
	case errors.Is(err, services.ErrValidation):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrUnauthorized):
		status, message = http.StatusUnauthorized, err.Error()
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrUserInactive):
		status, message = http.StatusForbidden, err.Error()
	case errors.Is(err, services.ErrNotFound):
		status, message = http.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	default:
		_ = c.Error(err)
		if h.Logger != nil {
			h.Logger.Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
		}
	}

	c.JSON(status, common.NewErrorResponse(message, nil, status))
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, common.NewErrorResponse(message, nil, http.StatusBadRequest))
}

func ok(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, common.NewSuccessResponse(data, message))
}

func created(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusCreated, common.NewCreatedResponse(data, message))
}

func paginated(c *gin.Context, res common.PaginationResult) {
	c.JSON(http.StatusOK, gin.H{
		"status":  http.StatusOK,
		"success": res.Success,
		"message": res.Message,
		"data":    res,
	})
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryID(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryBool(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		badRequest(c, "Invalid "+name)
		return nil, false
	}
	return &v, true
}

func pageParams(c *gin.Context) common.PageParams {
	return common.ParsePageParams(c.Query("page"), c.Query("limit"))
}

// actor is always present behind the Auth middleware.
func actor(c *gin.Context) services.Actor {
	a, _ := middleware.GetActor(c)
	return a
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
