package controllers

import (
	"strconv"
	"time"

	"github.com/Govind-619/LibTrack/models"
	"github.com/Govind-619/LibTrack/repository"
	"github.com/Govind-619/LibTrack/services"
	"github.com/Govind-619/LibTrack/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// StudentController manages library members
type StudentController struct {
	roster *services.RosterService
}

func NewStudentController(roster *services.RosterService) *StudentController {
	return &StudentController{roster: roster}
}

type createStudentRequest struct {
	LibraryID uint            `json:"library_id"`
	Name      string          `json:"name" binding:"required,max=255"`
	Email     string          `json:"email" binding:"required,email"`
	Phone     string          `json:"phone" binding:"required"`
	Address   string          `json:"address"`
	Timing    string          `json:"timing"`
	Fee       decimal.Decimal `json:"fee"`
	JoinDate  string          `json:"join_date" binding:"omitempty,datetime=2006-01-02"`
}

// POST /api/students
func (sc *StudentController) CreateStudent(c *gin.Context) {
	utils.LogInfo("CreateStudent called")
	var req createStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.LogError("Invalid create student request: %v", err)
		utils.BadRequest(c, utils.MsgInvalidRequest, utils.BindingErrors(err))
		return
	}
	user, ok := currentUser(c)
	if !ok {
		return
	}
	// Librarians always enroll into their own library.
	if req.LibraryID == 0 && user.LibraryID != nil {
		req.LibraryID = *user.LibraryID
	}
	if req.LibraryID == 0 {
		utils.BadRequest(c, "library_id is required", nil)
		return
	}
	if !authorizeLibrary(c, req.LibraryID) {
		return
	}

	var joined time.Time
	if req.JoinDate != "" {
		joined, _ = time.ParseInLocation("2006-01-02", req.JoinDate, time.Local)
	}

	result, err := sc.roster.CreateStudent(c.Request.Context(), services.CreateStudentInput{
		LibraryID: req.LibraryID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		Timing:    req.Timing,
		Fee:       req.Fee,
		JoinDate:  joined,
	})
	if err != nil {
		utils.RespondError(c, "Failed to create student", err)
		return
	}
	utils.Created(c, utils.MsgCreateSuccess, result)
}

// GET /api/students?library_id=&status=&search=
func (sc *StudentController) ListStudents(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var libraryID uint
	if raw := c.Query("library_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			utils.BadRequest(c, "Invalid library_id", raw)
			return
		}
		libraryID = uint(id)
	} else if user.LibraryID != nil {
		libraryID = *user.LibraryID
	}
	if libraryID == 0 {
		utils.BadRequest(c, "library_id is required", nil)
		return
	}
	if !authorizeLibrary(c, libraryID) {
		return
	}

	students, err := sc.roster.ListStudents(c.Request.Context(), libraryID, repository.StudentFilter{
		Status:         models.StudentStatus(c.Query("status")),
		Search:         c.Query("search"),
		IncludeDeleted: c.Query("include_deleted") == "true",
	})
	if err != nil {
		utils.RespondError(c, "Failed to load students", err)
		return
	}
	utils.Success(c, "Students retrieved successfully", gin.H{"students": students, "count": len(students)})
}

// GET /api/students/me
func (sc *StudentController) GetOwnProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	student, err := sc.roster.StudentForUser(c.Request.Context(), user.ID)
	if err != nil {
		utils.RespondError(c, "Student profile not found", err)
		return
	}
	utils.Success(c, "Student retrieved successfully", gin.H{"student": student})
}

// GET /api/students/:id
func (sc *StudentController) GetStudent(c *gin.Context) {
	student, ok := sc.loadStudent(c)
	if !ok {
		return
	}
	utils.Success(c, "Student retrieved successfully", gin.H{"student": student})
}

type updateStudentRequest struct {
	Name    *string          `json:"name" binding:"omitempty,max=255"`
	Phone   *string          `json:"phone"`
	Address *string          `json:"address"`
	Timing  *string          `json:"timing"`
	Fee     *decimal.Decimal `json:"fee"`
	Status  *string          `json:"status" binding:"omitempty,oneof=active inactive suspended"`
}

// PUT /api/students/:id
func (sc *StudentController) UpdateStudent(c *gin.Context) {
	utils.LogInfo("UpdateStudent called")
	var req updateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, utils.MsgInvalidRequest, utils.BindingErrors(err))
		return
	}
	student, ok := sc.loadStudent(c)
	if !ok {
		return
	}
	if !authorizeLibrary(c, student.LibraryID) {
		return
	}

	in := services.UpdateStudentInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		Timing:  req.Timing,
		Fee:     req.Fee,
	}
	if req.Status != nil {
		status := models.StudentStatus(*req.Status)
		in.Status = &status
	}
	updated, err := sc.roster.UpdateStudent(c.Request.Context(), student.ID, in)
	if err != nil {
		utils.RespondError(c, "Failed to update student", err)
		return
	}
	utils.Success(c, utils.MsgUpdateSuccess, gin.H{"student": updated})
}

// DELETE /api/students/:id
func (sc *StudentController) DeleteStudent(c *gin.Context) {
	student, ok := sc.loadStudent(c)
	if !ok {
		return
	}
	if !authorizeLibrary(c, student.LibraryID) {
		return
	}
	if err := sc.roster.DeleteStudent(c.Request.Context(), student.ID); err != nil {
		utils.RespondError(c, "Failed to delete student", err)
		return
	}
	utils.LogInfo("Student %d deleted", student.ID)
	utils.Success(c, utils.MsgDeleteSuccess, nil)
}

func (sc *StudentController) loadStudent(c *gin.Context) (*models.Student, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	student, err := sc.roster.GetStudent(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, "Student not found", err)
		return nil, false
	}
	if !authorizeStudent(c, student) {
		return nil, false
	}
	return student, true
}
