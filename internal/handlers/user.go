package handlers

import (
	"errors"
	"net/http"

	"github.com/AviRoy1988/receipe-api/internal/auth"
	dom "github.com/AviRoy1988/receipe-api/internal/domain"
	"github.com/AviRoy1988/receipe-api/internal/dto"
	"github.com/AviRoy1988/receipe-api/internal/service"

	"github.com/gin-gonic/gin"
)

// UserHandler handles registration, token issuance and the caller's profile.
type UserHandler struct {
	userSvc *service.UserService
	tokens  *auth.TokenStore
}

// NewUserHandler returns a new UserHandler.
func NewUserHandler(userSvc *service.UserService, tokens *auth.TokenStore) *UserHandler {
	return &UserHandler{userSvc: userSvc, tokens: tokens}
}

func userToResponse(u dom.User) dto.UserResponse {
	return dto.UserResponse{Name: u.Name, Email: u.Email}
}

// Create godoc
// @Summary      Create a user
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        body  body      dto.CreateUserRequest  true  "New user"
// @Success      201   {object}  dto.UserResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /user/create/ [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	u, err := h.userSvc.Register(c.Request.Context(), service.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
	})
	if err != nil {
		respondUserError(c, err, "registration failed")
		return
	}
	c.JSON(http.StatusCreated, userToResponse(u))
}

// Token godoc
// @Summary      Create an auth token
// @Tags         user
// @Accept       json
// @Produce      json
// @Param        body  body      dto.TokenRequest  true  "Credentials"
// @Success      200   {object}  dto.TokenResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      429   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /user/token/ [post]
func (h *UserHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	ctx := c.Request.Context()
	user, err := h.userSvc.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "authentication failed"})
		return
	}
	token, err := h.tokens.Issue(ctx, user.ID)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to create token"})
		return
	}
	c.JSON(http.StatusOK, dto.TokenResponse{Token: token})
}

// Logout godoc
// @Summary      Revoke the presented token
// @Tags         user
// @Security     TokenAuth
// @Success      204
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /user/logout/ [post]
func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.tokens.Revoke(c.Request.Context(), auth.TokenFromContext(c)); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "failed to revoke token"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Profile godoc
// @Summary      Retrieve the authenticated user
// @Tags         user
// @Produce      json
// @Security     TokenAuth
// @Success      200   {object}  dto.UserResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Router       /user/me/ [get]
func (h *UserHandler) Profile(c *gin.Context) {
	u, ok := auth.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "authentication credentials were not provided"})
		return
	}
	c.JSON(http.StatusOK, userToResponse(u))
}

// UpdateProfile godoc
// @Summary      Partially update the authenticated user
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     TokenAuth
// @Param        body  body      dto.UpdateProfileRequest  true  "Fields to change"
// @Success      200   {object}  dto.UserResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /user/me/ [patch]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	h.update(c, service.UpdateInput{Email: req.Email, Name: req.Name, Password: req.Password})
}

// ReplaceProfile godoc
// @Summary      Replace the authenticated user's email, name and password
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     TokenAuth
// @Param        body  body      dto.ReplaceProfileRequest  true  "Full profile"
// @Success      200   {object}  dto.UserResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      401   {object}  dto.ErrorResponse
// @Failure      500   {object}  dto.ErrorResponse
// @Router       /user/me/ [put]
func (h *UserHandler) ReplaceProfile(c *gin.Context) {
	var req dto.ReplaceProfileRequest
	if err := c.ShouldBind(&req); err != nil {
		respondBindError(c, err)
		return
	}
	h.update(c, service.UpdateInput{Email: &req.Email, Name: &req.Name, Password: &req.Password})
}

func (h *UserHandler) update(c *gin.Context, in service.UpdateInput) {
	u, ok := auth.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "authentication credentials were not provided"})
		return
	}
	updated, err := h.userSvc.UpdateProfile(c.Request.Context(), u.ID, in)
	if err != nil {
		respondUserError(c, err, "update failed")
		return
	}
	c.JSON(http.StatusOK, userToResponse(updated))
}
