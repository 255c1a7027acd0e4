package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tutorlane/tutorlane-api/internal/models"
	"github.com/tutorlane/tutorlane-api/internal/service"
	appErrors "github.com/tutorlane/tutorlane-api/pkg/errors"
	"github.com/tutorlane/tutorlane-api/pkg/response"
)

var allowedAvatarExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
	".webp": {},
}

// AuthHandler wires HTTP endpoints to the auth service.
type AuthHandler struct {
	service       *service.AuthService
	maxAvatarSize int64
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc *service.AuthService, maxAvatarSize int64) *AuthHandler {
	if maxAvatarSize <= 0 {
		maxAvatarSize = 5 << 20
	}
	return &AuthHandler{service: svc, maxAvatarSize: maxAvatarSize}
}

// Register godoc
// @Summary Register a new account
// @Description Create a student or tutor account and open a session
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	res, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.WithToken(c, http.StatusCreated, res.Token, res)
}

// Login godoc
// @Summary Authenticate user
// @Description Authenticate by email, password and role
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.WithToken(c, http.StatusOK, res.Token, res)
}

// Logout godoc
// @Summary Close the current session
// @Description Sessions are stateless; the client discards the token
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	response.Message(c, http.StatusOK, "logged out")
}

// Me godoc
// @Summary Current account profile
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	info, err := h.service.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, info, nil)
}

// DeactivateAccount godoc
// @Summary Deactivate the current account
// @Description Disables the account; subsequent requests with any existing token are rejected
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/me [delete]
func (h *AuthHandler) DeactivateAccount(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.DeactivateAccount(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "account deactivated")
}

// UpdateProfile godoc
// @Summary Update profile fields
// @Description Partial update of name, phone and bio
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.UpdateProfileRequest true "Profile payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/update-profile [patch]
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid profile payload"))
		return
	}

	info, err := h.service.UpdateProfile(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, info, nil)
}

// UploadAvatar godoc
// @Summary Upload profile picture
// @Tags Authentication
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param avatar formData file true "Avatar image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/upload-avatar [post]
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "avatar file is required"))
		return
	}
	if fileHeader.Size > h.maxAvatarSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "avatar exceeds the maximum allowed size"))
		return
	}
	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	if _, ok := allowedAvatarExtensions[ext]; !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "avatar must be a jpg, png or webp image"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read avatar"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxAvatarSize+1))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read avatar"))
		return
	}

	info, err := h.service.UploadAvatar(c.Request.Context(), claims.UserID, fileHeader.Filename, data)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, info, nil)
}

// ChangePassword godoc
// @Summary Change password in-session
// @Tags Authentication
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChangePasswordRequest true "Password payload"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid change password payload"))
		return
	}

	res, err := h.service.ChangePassword(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.WithToken(c, http.StatusOK, res.Token, res)
}

// ForgotPassword godoc
// @Summary Request a password reset mail
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.ForgotPasswordRequest true "Forgot password payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid forgot password payload"))
		return
	}

	if err := h.service.ForgotPassword(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.Message(c, http.StatusOK, "password reset mail sent")
}

// ResetPassword godoc
// @Summary Complete a password reset
// @Tags Authentication
// @Accept json
// @Produce json
// @Param token path string true "Reset token"
// @Param payload body models.ResetPasswordRequest true "New password payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /auth/reset-password/{token} [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reset password payload"))
		return
	}

	res, err := h.service.ResetPassword(c.Request.Context(), c.Param("token"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.WithToken(c, http.StatusOK, res.Token, res)
}
