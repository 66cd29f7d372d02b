package controllers

import (
	"errors"
	"strconv"

	"github.com/Govind-619/LibTrack/middleware"
	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/services"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/gin-gonic/gin"
)

// parseID reads a positive numeric path parameter, answering 400 otherwise
func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		utils.BadRequest(c, "Invalid "+param, c.Param(param))
		return 0, false
	}
	return uint(id), true
}

func currentUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		utils.Unauthorized(c, "Please login for access")
	}
	return user, ok
}

// worksAt reports whether user is an admin or the librarian of libraryID
func worksAt(user *models.User, libraryID uint) bool {
	if user.Role == models.RoleAdmin {
		return true
	}
	return user.Role == models.RoleLibrarian && user.LibraryID != nil && *user.LibraryID == libraryID
}

// authorizeLibrary lets admins and the library's own librarians through
func authorizeLibrary(c *gin.Context, libraryID uint) bool {
	user, ok := currentUser(c)
	if !ok {
		return false
	}
	if !worksAt(user, libraryID) {
		utils.LogError("User %d denied access to library %d", user.ID, libraryID)
		utils.Forbidden(c, utils.MsgAccessForbidden)
		return false
	}
	return true
}

// authorizeStudent lets through staff of the student's library and the student themself
func authorizeStudent(c *gin.Context, student *models.Student) bool {
	user, ok := currentUser(c)
	if !ok {
		return false
	}
	if worksAt(user, student.LibraryID) || (user.Role == models.RoleStudent && student.UserID == user.ID) {
		return true
	}
	utils.LogError("User %d denied access to student %d", user.ID, student.ID)
	utils.Forbidden(c, utils.MsgAccessForbidden)
	return false
}

// authorizePayment applies authorizeStudent to the payment's owner
func authorizePayment(c *gin.Context, roster *services.RosterService, payment *models.PaymentRecord) bool {
	user, ok := currentUser(c)
	if !ok {
		return false
	}
	if worksAt(user, payment.LibraryID) {
		return true
	}
	if user.Role == models.RoleStudent {
		student, err := roster.StudentForUser(c.Request.Context(), user.ID)
		if err != nil && !errors.Is(err, utils.ErrNotFound) {
			utils.RespondError(c, "Failed to load student profile", err)
			return false
		}
		if err == nil && student.ID == payment.StudentID {
			return true
		}
	}
	utils.Forbidden(c, utils.MsgAccessForbidden)
	return false
}
