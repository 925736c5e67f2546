package app

import (
	"lms_backend/docs"
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerCourseRoutes(authGroup, c)
		a.registerAttemptRoutes(authGroup, c)
		a.registerChatRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}
}

func (a *App) registerCourseRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/profile", c.auth.GetProfile)

	rg.GET("/courses", c.course.ListCourses)
	rg.POST("/courses", c.course.CreateCourse)
	rg.GET("/courses/:id", c.course.GetCourse)
	rg.PUT("/courses/:id", c.course.UpdateCourse)
	rg.GET("/courses/:id/members", c.course.ListMembers)

	// 邀请码加入课程
	rg.POST("/invites/redeem", c.invite.RedeemInvite)

	rg.GET("/courses/:id/quizzes", c.quiz.ListQuizzes)
	rg.GET("/quizzes/:id", c.quiz.GetQuiz)
}

func (a *App) registerAttemptRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.POST("/quizzes/:id/attempts", c.attempt.Enroll)
	rg.GET("/attempts/:id", c.attempt.GetAttempt)
	rg.PUT("/attempts/:id/answers", c.attempt.SaveAnswers)
	rg.PUT("/attempts/:id/answers/auto", c.attempt.AutoSaveAnswer)
	rg.PUT("/attempts/:id/submit", c.attempt.Submit)
	rg.PUT("/attempts/:id/ban", c.attempt.Ban)
	rg.DELETE("/attempts/:id", c.attempt.Delete)
}

func (a *App) registerChatRoutes(rg *gin.RouterGroup, c *controllers) {
	rg.GET("/courses/:id/rooms", c.chat.ListRooms)
	rg.GET("/rooms/:id/messages", c.chat.History)
	rg.POST("/rooms/:id/messages", c.chat.PostMessage)
	rg.GET("/rooms/:id/ws", c.chat.ServeWS)
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher, model.Admin))
	{
		teacher.GET("/quizzes/:id", c.quiz.GetQuizWithAnswers)
		teacher.GET("/quizzes/:id/attempts", c.attempt.ListByQuiz)
	}

	// 课程管理动作：服务层校验课程归属
	rg.POST("/courses/:id/quizzes", c.quiz.CreateQuiz)
	rg.POST("/courses/:id/invites", c.invite.CreateInvite)
	rg.GET("/courses/:id/invites", c.invite.ListInvites)
	rg.DELETE("/invites/:id", c.invite.RevokeInvite)
	rg.POST("/courses/:id/rooms", c.chat.CreateRoom)
}
