package controllers

import (
	"github.com/Govind-619/LibTrack/services"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/gin-gonic/gin"
)

// AuthController handles sign-in for every role
type AuthController struct {
	roster *services.RosterService
}

func NewAuthController(roster *services.RosterService) *AuthController {
	return &AuthController{roster: roster}
}

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /api/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	utils.LogInfo("Login called")
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid login request: %v", err)
		utils.BadRequest(c, "Invalid input", utils.BindingErrors(err))
		return
	}
	utils.LogDebug("Processing login request for email: %s", req.Email)

	result, err := ac.roster.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		utils.RespondError(c, utils.MsgInvalidCreds, err)
		return
	}
	utils.Success(c, utils.MsgLoginSuccess, result)
}

// GET /api/auth/me
func (ac *AuthController) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	utils.Success(c, "Profile retrieved successfully", gin.H{"user": user})
}
