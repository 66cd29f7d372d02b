package controllers

import (
	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/services"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/gin-gonic/gin"
)

// LibraryController manages libraries and their Razorpay accounts
type LibraryController struct {
	roster *services.RosterService
}

func NewLibraryController(roster *services.RosterService) *LibraryController {
	return &LibraryController{roster: roster}
}

type librarianRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Phone    string `json:"phone" binding:"required"`
}

type createLibraryRequest struct {
	Name                  string            `json:"name" binding:"required,max=255"`
	ContactEmail          string            `json:"contact_email" binding:"required,email"`
	ContactPhone          string            `json:"contact_phone" binding:"required"`
	Address               string            `json:"address"`
	RazorpayKeyID         string            `json:"razorpay_key_id"`
	RazorpayKeySecret     string            `json:"razorpay_key_secret"`
	RazorpayWebhookSecret string            `json:"razorpay_webhook_secret"`
	Librarian             *librarianRequest `json:"librarian"`
}

// POST /api/libraries
func (lc *LibraryController) CreateLibrary(c *gin.Context) {
	utils.LogInfo("CreateLibrary called")
	var req createLibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid create library request: %v", err)
		utils.BadRequest(c, utils.MsgInvalidRequest, utils.BindingErrors(err))
		return
	}

	in := services.CreateLibraryInput{
		Name:                  req.Name,
		ContactEmail:          req.ContactEmail,
		ContactPhone:          req.ContactPhone,
		Address:               req.Address,
		RazorpayKeyID:         req.RazorpayKeyID,
		RazorpayKeySecret:     req.RazorpayKeySecret,
		RazorpayWebhookSecret: req.RazorpayWebhookSecret,
	}
	if req.Librarian != nil {
		in.Librarian = &services.LibrarianInput{
			Name:     req.Librarian.Name,
			Email:    req.Librarian.Email,
			Password: req.Librarian.Password,
			Phone:    req.Librarian.Phone,
		}
	}

	library, err := lc.roster.CreateLibrary(c.Request.Context(), in)
	if err != nil {
		utils.RespondError(c, "Failed to create library", err)
		return
	}
	utils.Created(c, utils.MsgCreateSuccess, gin.H{"library": library})
}

// GET /api/libraries
func (lc *LibraryController) ListLibraries(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	if user.Role != models.RoleAdmin {
		if user.LibraryID == nil {
			utils.Forbidden(c, utils.MsgAccessForbidden)
			return
		}
		library, err := lc.roster.GetLibrary(c.Request.Context(), *user.LibraryID)
		if err != nil {
			utils.RespondError(c, "Library not found", err)
			return
		}
		utils.Success(c, "Libraries retrieved successfully", gin.H{"libraries": []models.Library{*library}})
		return
	}

	libraries, err := lc.roster.ListLibraries(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		utils.RespondError(c, "Failed to load libraries", err)
		return
	}
	utils.Success(c, "Libraries retrieved successfully", gin.H{"libraries": libraries})
}

// GET /api/libraries/:id
func (lc *LibraryController) GetLibrary(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !authorizeLibrary(c, id) {
		return
	}
	library, err := lc.roster.GetLibrary(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, "Library not found", err)
		return
	}
	utils.Success(c, "Library retrieved successfully", gin.H{"library": library})
}

type updateLibraryRequest struct {
	Name                  *string `json:"name" binding:"omitempty,max=255"`
	ContactPhone          *string `json:"contact_phone"`
	Address               *string `json:"address"`
	EmailNotifications    *bool   `json:"email_notifications"`
	RazorpayKeyID         *string `json:"razorpay_key_id"`
	RazorpayKeySecret     *string `json:"razorpay_key_secret"`
	RazorpayWebhookSecret *string `json:"razorpay_webhook_secret"`
	IsVerifiedRazorpay    *bool   `json:"is_verified_razorpay"`
}

// PUT /api/libraries/:id
func (lc *LibraryController) UpdateLibrary(c *gin.Context) {
	utils.LogInfo("UpdateLibrary called")
	id, ok := parseID(c, "id")
	if !ok || !authorizeLibrary(c, id) {
		return
	}
	var req updateLibraryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, utils.MsgInvalidRequest, utils.BindingErrors(err))
		return
	}
	// Only the platform admin vouches for a library's gateway account.
	if user, _ := currentUser(c); req.IsVerifiedRazorpay != nil && user.Role != models.RoleAdmin {
		utils.Forbidden(c, "Only admins can verify Razorpay accounts")
		return
	}

	library, err := lc.roster.UpdateLibrary(c.Request.Context(), id, services.UpdateLibraryInput{
		Name:                  req.Name,
		ContactPhone:          req.ContactPhone,
		Address:               req.Address,
		EmailNotifications:    req.EmailNotifications,
		RazorpayKeyID:         req.RazorpayKeyID,
		RazorpayKeySecret:     req.RazorpayKeySecret,
		RazorpayWebhookSecret: req.RazorpayWebhookSecret,
		IsVerifiedRazorpay:    req.IsVerifiedRazorpay,
	})
	if err != nil {
		utils.RespondError(c, "Failed to update library", err)
		return
	}
	utils.Success(c, utils.MsgUpdateSuccess, gin.H{"library": library})
}

// DELETE /api/libraries/:id
func (lc *LibraryController) DeactivateLibrary(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := lc.roster.DeactivateLibrary(c.Request.Context(), id); err != nil {
		utils.RespondError(c, "Failed to deactivate library", err)
		return
	}
	utils.LogInfo("Library %d deactivated", id)
	utils.Success(c, "Library deactivated successfully", nil)
}
