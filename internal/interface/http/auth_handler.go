package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	authapp "github.com/oksasatya/readly/internal/application"
	"github.com/oksasatya/readly/internal/domain/entity"
	"github.com/oksasatya/readly/internal/interface/middleware"
	"github.com/oksasatya/readly/pkg/apperror"
	"github.com/oksasatya/readly/pkg/helpers"
	"github.com/oksasatya/readly/pkg/response"
	"github.com/oksasatya/readly/pkg/validation"
)

type AuthHandler struct {
	Svc     *authapp.Service
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *authapp.Service, logger *logrus.Logger, cookies *helpers.Manager) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: cookies}
}

type signupRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type verifyEmailRequest struct {
	Code string `json:"code" binding:"required,code6"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type resetPasswordRequest struct {
	Password string `json:"password" binding:"required"`
}

func userData(u entity.PublicUser) gin.H { return gin.H{"user": u} }

// Signup POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "All fields are required", validation.ToDetails(err))
		return
	}
	u, sess, err := h.Svc.Signup(c.Request.Context(), authapp.SignupInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
	})
	// the account exists once a session is issued, even if the email failed
	if sess.Token != "" {
		h.Cookies.SetSession(c, sess.Token, sess.ExpiresAt)
	}
	if err != nil {
		writeError(c, err, 0)
		return
	}
	response.Payload(c, http.StatusCreated, "User created successfully", userData(u))
}

// VerifyEmail POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "Verification code is required", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.VerifyEmail(c.Request.Context(), req.Code)
	if err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	response.Payload(c, http.StatusOK, "Email verified successfully", userData(u))
}

// ResendVerification POST /api/auth/verify-email/resend (session required)
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		writeError(c, apperror.Auth("Unauthorized - no session"), 0)
		return
	}
	if err := h.Svc.ResendVerification(c.Request.Context(), id.UserID); err != nil {
		writeError(c, err, http.StatusNotFound)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Verification code sent to your email", nil)
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "Email and password are required", validation.ToDetails(err))
		return
	}
	u, sess, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err, 0)
		return
	}
	h.Cookies.SetSession(c, sess.Token, sess.ExpiresAt)
	response.Payload(c, http.StatusOK, "Logged in successfully", userData(u))
}

// Logout POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	h.Cookies.Clear(c)
	response.Success[any](c, http.StatusOK, nil, "Logged out successfully", nil)
}

// ForgotPassword POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "Email is required", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		writeError(c, err, http.StatusNotFound)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Password reset link sent to your email", nil)
}

// ResetPassword POST /api/auth/reset-password/:token
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "Password is required", validation.ToDetails(err))
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), c.Param("token"), req.Password); err != nil {
		writeError(c, err, http.StatusBadRequest)
		return
	}
	response.Success[any](c, http.StatusOK, nil, "Password reset successful", nil)
}

// CheckAuth GET /api/auth/check-auth (session required)
func (h *AuthHandler) CheckAuth(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		writeError(c, apperror.Auth("Unauthorized - no session"), 0)
		return
	}
	u, err := h.Svc.CheckAuth(c.Request.Context(), id.UserID)
	if err != nil {
		writeError(c, err, http.StatusNotFound)
		return
	}
	response.Payload(c, http.StatusOK, "", userData(u))
}

// Users GET /api/auth/users (session required)
func (h *AuthHandler) Users(c *gin.Context) {
	users, err := h.Svc.ListUsers(c.Request.Context())
	if err != nil {
		writeError(c, err, 0)
		return
	}
	response.Payload(c, http.StatusOK, "", gin.H{"users": users, "totalUsers": len(users)})
}

// Admins GET /api/auth/admins (session required)
func (h *AuthHandler) Admins(c *gin.Context) {
	admins, err := h.Svc.ListAdmins(c.Request.Context())
	if err != nil {
		writeError(c, err, 0)
		return
	}
	response.Payload(c, http.StatusOK, "", gin.H{"admins": admins, "totalAdmins": len(admins)})
}

// SearchUsers GET /api/auth/users/search?q=&size= (admin only)
func (h *AuthHandler) SearchUsers(c *gin.Context) {
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	users, err := h.Svc.SearchUsers(c.Request.Context(), c.Query("q"), size)
	if err != nil {
		writeError(c, err, 0)
		return
	}
	response.Payload(c, http.StatusOK, "", gin.H{"users": users})
}
