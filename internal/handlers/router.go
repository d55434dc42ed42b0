package handlers

import (
	"net/http"
	"strings"
	"task_tracker/internal/config"
	"task_tracker/internal/middleware"
	"task_tracker/internal/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type RouterParams struct {
	fx.In

	Config   *config.Config
	Logger   *zap.Logger
	Auth     middleware.Authenticator
	AuthH    *AuthHandler
	Users    *UserHandler
	Projects *ProjectHandler
	Tasks    *TaskHandler
}

func NewRouter(p RouterParams) *gin.Engine {
	setGinMode(p.Config.GinMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(p.Logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = p.Config.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive"})
	})

	session := middleware.Authenticate(p.Auth)
	admin := middleware.RequireRole(string(models.RoleAdmin))

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", p.AuthH.Login)
		authGroup.POST("/register", p.AuthH.Register)
		authGroup.POST("/logout", p.AuthH.Logout)
		authGroup.GET("/check", session, p.AuthH.Check)
		authGroup.POST("/get", session, p.AuthH.CurrentUser)
	}

	users := r.Group("/users")
	{
		users.POST("/set-password/:id", p.Users.SetPassword)
		users.POST("/create", session, admin, p.Users.Create)
		users.GET("/read", session, p.Users.List)
		users.GET("/read/:projectId", session, p.Users.ListProjectMembers)
		users.PUT("/:id", session, admin, p.Users.Update)
		users.PUT("/:id/activate", session, admin, p.Users.SetActive)
		users.POST("/:id/setup-link", session, admin, p.Users.ResendSetupLink)
	}

	projects := r.Group("/projects", session)
	{
		projects.GET("/get", p.Projects.List)
		projects.GET("/get/:id", p.Projects.Get)
		projects.POST("/add", admin, p.Projects.Create)
		projects.PUT("/:id", admin, p.Projects.Update)
	}

	tasks := r.Group("/tasks", session)
	{
		tasks.POST("/create/:projectId", p.Tasks.Create)
		tasks.GET("/read", admin, p.Tasks.ListAll)
		tasks.GET("/project/:projectId", p.Tasks.ListByProject)
		tasks.GET("/user/mytask", p.Tasks.MyTasks)
		tasks.PUT("/:id", p.Tasks.Update)
		tasks.PATCH("/:id/status", p.Tasks.TransitionStatus)
		tasks.PATCH("/tasks/:id/status", p.Tasks.TransitionStatus)
		tasks.DELETE("/:id", admin, p.Tasks.Delete)
		tasks.POST("/:id/comments", p.Tasks.AddComment)
		tasks.GET("/:id/comments", p.Tasks.ListComments)
	}

	return r
}

func setGinMode(mode string) {
	switch strings.ToLower(mode) {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}
}
