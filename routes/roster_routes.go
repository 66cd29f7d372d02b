package routes

import (
	"github.com/Govind-619/LibTrack/controllers"
	"github.com/Govind-619/LibTrack/middleware"
	"github.com/Govind-619/LibTrack/models"
	"github.com/gin-gonic/gin"
)

func initRosterRoutes(api *gin.RouterGroup, deps Dependencies) {
	libraries := controllers.NewLibraryController(deps.Roster)
	students := controllers.NewStudentController(deps.Roster)
	dashboard := controllers.NewDashboardController(deps.Dashboard)

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(deps.Store.Users(), deps.JWTSecret))

	staffOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleLibrarian)
	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	libraryGroup := authed.Group("/libraries")
	{
		libraryGroup.POST("", adminOnly, libraries.CreateLibrary)
		libraryGroup.GET("", staffOnly, libraries.ListLibraries)
		libraryGroup.GET("/:id", staffOnly, libraries.GetLibrary)
		libraryGroup.PUT("/:id", staffOnly, libraries.UpdateLibrary)
		libraryGroup.DELETE("/:id", adminOnly, libraries.DeactivateLibrary)
	}

	studentGroup := authed.Group("/students")
	{
		studentGroup.GET("/me", middleware.RequireRoles(models.RoleStudent), students.GetOwnProfile)
		studentGroup.GET("/:id", students.GetStudent)
		studentGroup.POST("", staffOnly, students.CreateStudent)
		studentGroup.GET("", staffOnly, students.ListStudents)
		studentGroup.PUT("/:id", staffOnly, students.UpdateStudent)
		studentGroup.DELETE("/:id", staffOnly, students.DeleteStudent)
	}

	authed.GET("/dashboard/library/:libraryId", staffOnly, dashboard.LibrarySummary)
}
