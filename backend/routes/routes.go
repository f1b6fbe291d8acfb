package routes

import (
	"cognitory/backend/config"
	"cognitory/backend/controllers"
	"cognitory/backend/middleware"
	"cognitory/backend/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Deps is everything the handlers need, built once by main.
type Deps struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Mailer   services.Mailer
	Storage  services.Storage
	Gatherer prometheus.Gatherer
}

func SetupRoutes(app *fiber.App, deps Deps) {
	db, cfg := deps.DB, deps.Cfg

	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api/v1")

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(db)
	superMiddleware := middleware.SuperMiddleware(db)

	// User routes
	userController := controllers.NewUserController(db, cfg, deps.Mailer)
	user := api.Group("/user")
	user.Post("/signup", userController.Signup)
	user.Post("/login", userController.Login)
	user.Post("/forgot-password", userController.ForgotPassword)
	user.Post("/reset-password/:token", userController.ResetPassword)
	user.Post("/change-password", authMiddleware, userController.ChangePassword)
	user.Get("/me", authMiddleware, userController.Me)
	user.Post("/approve/:id", authMiddleware, adminMiddleware, userController.ApproveUser)
	user.Get("/", authMiddleware, adminMiddleware, userController.GetUsers)

	// Enterprise routes
	enterpriseController := controllers.NewEnterpriseController(db, cfg)
	enterprise := api.Group("/enterprise", authMiddleware)
	enterprise.Get("/", enterpriseController.GetEnterprises)
	enterprise.Post("/", adminMiddleware, enterpriseController.CreateEnterprise)
	enterprise.Get("/:id", enterpriseController.GetEnterprise)
	enterprise.Patch("/:id", adminMiddleware, enterpriseController.UpdateEnterprise)

	// Class routes
	classController := controllers.NewClassController(db, cfg)
	class := api.Group("/class", authMiddleware)
	class.Get("/", classController.GetClasses)
	class.Post("/", adminMiddleware, classController.CreateClass)
	class.Get("/:id", classController.GetClass)
	class.Patch("/:id", adminMiddleware, classController.UpdateClass)

	// Subject routes
	subjectController := controllers.NewSubjectController(db, cfg)
	subject := api.Group("/subject", authMiddleware)
	subject.Get("/", subjectController.GetSubjects)
	subject.Post("/", adminMiddleware, subjectController.CreateSubject)
	subject.Get("/:id", subjectController.GetSubject)
	subject.Patch("/:id", adminMiddleware, subjectController.UpdateSubject)

	// Topic routes
	topicController := controllers.NewTopicController(db, cfg)
	topic := api.Group("/topic", authMiddleware)
	topic.Get("/", topicController.GetTopics)
	topic.Post("/", adminMiddleware, topicController.CreateTopic)
	topic.Get("/:id", topicController.GetTopic)
	topic.Patch("/:id", adminMiddleware, topicController.UpdateTopic)

	// Subtopic routes
	subtopicController := controllers.NewSubtopicController(db, cfg)
	subtopic := api.Group("/subtopic", authMiddleware)
	subtopic.Get("/", subtopicController.GetSubtopics)
	subtopic.Post("/", adminMiddleware, subtopicController.CreateSubtopic)
	subtopic.Get("/:id", subtopicController.GetSubtopic)
	subtopic.Patch("/:id", adminMiddleware, subtopicController.UpdateSubtopic)

	// Level routes
	levelController := controllers.NewLevelController(db, cfg)
	level := api.Group("/level", authMiddleware)
	level.Get("/", levelController.GetLevels)
	level.Post("/", adminMiddleware, levelController.CreateLevel)
	level.Get("/:id", levelController.GetLevel)
	level.Patch("/:id", adminMiddleware, levelController.UpdateLevel)

	// Question routes; the fixed paths go before /:id
	questionController := controllers.NewQuestionController(db, cfg)
	question := api.Group("/question", authMiddleware)
	question.Get("/", questionController.GetQuestions)
	question.Post("/", questionController.CreateQuestion)
	question.Get("/review", adminMiddleware, questionController.GetReviewQueue)
	question.Get("/stats", adminMiddleware, questionController.GetQuestionStats)
	question.Get("/:id", questionController.GetQuestion)
	question.Patch("/:id", questionController.UpdateQuestion)
	question.Delete("/:id", questionController.DeleteQuestion)
	question.Patch("/:id/restore", superMiddleware, questionController.RestoreQuestion)

	// Review routes
	reviewController := controllers.NewReviewController(db, cfg)
	review := api.Group("/review", authMiddleware)
	review.Post("/:questionId", adminMiddleware, reviewController.ReviewQuestion)
	review.Get("/:questionId", reviewController.GetReview)

	// Curriculum routes
	curriculumController := controllers.NewCurriculumController(db, cfg)
	api.Get("/curriculum", authMiddleware, superMiddleware, curriculumController.GetFullCurriculum)

	// Util routes
	utilController := controllers.NewUtilController(deps.Storage)
	api.Post("/util/upload", authMiddleware, utilController.Upload)
}
