package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"auth_backend/internal/auth"
	"auth_backend/internal/common"
	"auth_backend/internal/models"
	"auth_backend/internal/otp"
	"auth_backend/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type OTPService interface {
	SendOTP(ctx context.Context, phone string) (models.Verification, error)
	VerifyOTP(ctx context.Context, phone, code string) error
}

type Handler struct {
	serviceLayer service.Service
	otp          OTPService
	log          *slog.Logger
}

type errorResponse struct {
	Message string `json:"message"`
}

type otpResponse struct {
	Success      bool                 `json:"success"`
	Message      string               `json:"message,omitempty"`
	Verification *models.Verification `json:"verification,omitempty"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type sendOTPRequest struct {
	Phone string `json:"phone"`
}

type verifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

func newErrorResponse(c *gin.Context, statusCode int, errMessage string) {
	c.AbortWithStatusJSON(statusCode, errorResponse{Message: errMessage})
}

func newOTPErrorResponse(c *gin.Context, statusCode int, errMessage string) {
	c.AbortWithStatusJSON(statusCode, otpResponse{Success: false, Message: errMessage})
}

func NewHandler(srvc service.Service, otpService OTPService, lgr *slog.Logger) *Handler {
	return &Handler{
		serviceLayer: srvc,
		otp:          otpService,
		log:          lgr,
	}
}

func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()

	router.Use(
		requestID(),
		requestLogger(h.log),
		recovery(h.log),
		cors.Default(),
	)

	router.GET("/health", h.Health)

	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", h.Register)
		authRoutes.POST("/login", h.Login)
		authRoutes.POST("/refresh", h.RefreshTokens)
		authRoutes.POST("/sendOTP", h.SendOTP)
		authRoutes.POST("/verifyOTP", h.VerifyOTP)
	}

	return router
}

// bindJSON decodes the request body into req. An empty body leaves req zeroed
// so that missing fields are reported by the service layer.
func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	const op = "handler.Register"

	log := h.log.With(slog.String("op", op))

	var req credentialsRequest
	if err := bindJSON(c, &req); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "invalid request body")

		return
	}

	if err := h.serviceLayer.Register(c.Request.Context(), req.Email, req.Password); err != nil {
		h.authError(c, log, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "user registered"})
}

// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	const op = "handler.Login"

	log := h.log.With(slog.String("op", op))

	var req credentialsRequest
	if err := bindJSON(c, &req); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "invalid request body")

		return
	}

	pair, err := h.serviceLayer.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.authError(c, log, err)

		return
	}

	c.JSON(http.StatusOK, pair)
}

// POST /auth/refresh
func (h *Handler) RefreshTokens(c *gin.Context) {
	const op = "handler.RefreshTokens"

	log := h.log.With(slog.String("op", op))

	var req refreshRequest
	if err := bindJSON(c, &req); err != nil {
		log.Error("failed to read request body", slog.Any("error", err))

		newErrorResponse(c, http.StatusBadRequest, "invalid request body")

		return
	}

	pair, err := h.serviceLayer.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.authError(c, log, err)

		return
	}

	c.JSON(http.StatusOK, pair)
}

// POST /auth/sendOTP
func (h *Handler) SendOTP(c *gin.Context) {
	const op = "handler.SendOTP"

	log := h.log.With(slog.String("op", op))

	// A body that fails to decode is passed on as empty: the service reports
	// missing configuration before it looks at the fields.
	var req sendOTPRequest
	if err := bindJSON(c, &req); err != nil {
		log.Warn("failed to read request body", slog.Any("error", err))
		req = sendOTPRequest{}
	}

	v, err := h.otp.SendOTP(c.Request.Context(), req.Phone)
	if err != nil {
		h.otpError(c, log, err)

		return
	}

	c.JSON(http.StatusOK, otpResponse{Success: true, Verification: &v})
}

// POST /auth/verifyOTP
func (h *Handler) VerifyOTP(c *gin.Context) {
	const op = "handler.VerifyOTP"

	log := h.log.With(slog.String("op", op))

	var req verifyOTPRequest
	if err := bindJSON(c, &req); err != nil {
		log.Warn("failed to read request body", slog.Any("error", err))
		req = verifyOTPRequest{}
	}

	if err := h.otp.VerifyOTP(c.Request.Context(), req.Phone, req.Code); err != nil {
		h.otpError(c, log, err)

		return
	}

	c.JSON(http.StatusOK, otpResponse{Success: true, Message: "OTP verified"})
}

func (h *Handler) authError(c *gin.Context, log *slog.Logger, err error) {
	status, msg := http.StatusInternalServerError, common.ErrInternal.Error()

	switch {
	case errors.Is(err, common.ErrValidation):
		status, msg = http.StatusBadRequest, common.ErrValidation.Error()
	case errors.Is(err, common.ErrDuplicateUser):
		status, msg = http.StatusBadRequest, common.ErrDuplicateUser.Error()
	case errors.Is(err, common.ErrNotFound):
		status, msg = http.StatusNotFound, common.ErrNotFound.Error()
	case errors.Is(err, common.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, common.ErrInvalidCredentials.Error()
	case errors.Is(err, common.ErrMissingToken):
		status, msg = http.StatusUnauthorized, common.ErrMissingToken.Error()
	case errors.Is(err, common.ErrInvalidToken):
		status, msg = http.StatusForbidden, common.ErrInvalidToken.Error()

		var tokenErr *auth.TokenError
		if errors.As(err, &tokenErr) {
			msg = tokenErr.Error()
		}
	case errors.Is(err, common.ErrConfiguration):
		status, msg = http.StatusInternalServerError, common.ErrConfiguration.Error()
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", slog.Any("error", err))
	} else {
		log.Info("request rejected", slog.Int("status", status), slog.Any("error", err))
	}

	newErrorResponse(c, status, msg)
}

func (h *Handler) otpError(c *gin.Context, log *slog.Logger, err error) {
	status, msg := http.StatusInternalServerError, common.ErrInternal.Error()

	switch {
	case errors.Is(err, common.ErrConfiguration):
		msg = common.ErrConfiguration.Error()
	case errors.Is(err, common.ErrValidation):
		status, msg = http.StatusBadRequest, common.ErrValidation.Error()
	case errors.Is(err, common.ErrVerificationFailed):
		status, msg = http.StatusBadRequest, common.ErrVerificationFailed.Error()
	case errors.Is(err, common.ErrProvider):
		msg = otp.ProviderMessage(err)
	}

	if status >= http.StatusInternalServerError {
		log.Error("otp request failed", slog.Any("error", err))
	} else {
		log.Info("otp request rejected", slog.Int("status", status), slog.Any("error", err))
	}

	newOTPErrorResponse(c, status, msg)
}
