package auth

import (
	"net/http"

	"github.com/abduss/bitbeem/internal/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterRoutes mounts identity endpoints under /user.
func RegisterRoutes(router *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	userGroup := router.Group("/user")
	{
		userGroup.POST("/register", handler.register)
	}
}

type httpHandler struct {
	service *Service
}

type registerResponse struct {
	Key      string `json:"key"`
	Username string `json:"username"`
}

func (h *httpHandler) register(c *gin.Context) {
	identity, err := h.service.Register(c.Request.Context(), RegisterInput{
		Username: c.GetHeader("username"),
		Password: c.GetHeader("password"),
	})
	if err != nil {
		switch err {
		case ErrRegistrationDisabled:
			c.JSON(http.StatusForbidden, gin.H{"error": "registration is disabled"})
		case ErrUsernameTaken:
			c.JSON(http.StatusConflict, gin.H{"error": "username already registered"})
		case ErrInvalidCredentials:
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password headers are required"})
		default:
			logger.FromContext(c, h.service.log).Error("register failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register user"})
		}
		return
	}

	c.JSON(http.StatusCreated, registerResponse{Key: identity.Key, Username: identity.Username})
}
