package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"sale-products/internal/users"

	"github.com/gin-gonic/gin"
)

type UserService interface {
	Register(ctx context.Context, username, password string) (users.User, error)
	Authenticate(ctx context.Context, username, password string) (users.User, error)
}

type SessionManager interface {
	Login(w http.ResponseWriter, r *http.Request, userID int64) error
	Logout(w http.ResponseWriter, r *http.Request) error
}

type Handler struct {
	service  UserService
	sessions SessionManager
	logger   *slog.Logger
}

func NewHandler(svc UserService, sessions SessionManager, logger *slog.Logger) *Handler {
	return &Handler{service: svc, sessions: sessions, logger: logger}
}

type credentialsForm struct {
	Username string `form:"username" json:"username" binding:"required" example:"seller1"`
	Password string `form:"password" json:"password" binding:"required" example:"s3cret"`
}

type errorResponse struct {
	Error string `json:"error" example:"invalid username or password"`
}

// RegisterUser godoc
// @Summary      Register a user
// @Tags         user
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username  formData  string  true  "Username"
// @Param        password  formData  string  true  "Password"
// @Success      201  {object}  users.User
// @Failure      400  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/user/register [post]
func (h *Handler) RegisterUser(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.service.Register(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrUsernameTaken):
			c.JSON(http.StatusConflict, errorResponse{Error: users.ErrUsernameTaken.Error()})
		case errors.Is(err, users.ErrInvalidCredentials):
			c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to register user"})
		}
		return
	}

	c.JSON(http.StatusCreated, user)
}

// Login godoc
// @Summary      Log in and start a session
// @Tags         user
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        username  formData  string  true  "Username"
// @Param        password  formData  string  true  "Password"
// @Success      200  {object}  users.User
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/user/login [post]
func (h *Handler) Login(c *gin.Context) {
	var form credentialsForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.service.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, errorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to log in"})
		return
	}

	if err := h.sessions.Login(c.Writer, c.Request, user.ID); err != nil {
		h.logger.Error("save session", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to log in"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// Logout godoc
// @Summary      End the current session
// @Tags         user
// @Success      204
// @Failure      500  {object}  errorResponse
// @Router       /api/v1/user/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Writer, c.Request); err != nil {
		h.logger.Error("clear session", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to log out"})
		return
	}
	c.Status(http.StatusNoContent)
}

func RegisterRoutes(router *gin.Engine, handler *Handler) {
	user := router.Group("/api/v1/user")
	user.POST("/register", handler.RegisterUser)
	user.POST("/login", handler.Login)
	user.POST("/logout", handler.Logout)
}
