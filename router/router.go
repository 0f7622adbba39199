package router

import (
	"time"

	"chatbot/api"
	"chatbot/config"
	_ "chatbot/docs"
	"chatbot/middleware"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// CORS 中间件
	r.Use(CORSMiddleware())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 路由组
	v1 := r.Group("/api/v1")
	{
		// 认证相关路由（无需登录）
		authHandler := api.NewAuthHandler(cfg)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", middleware.RateLimit(10, time.Minute), authHandler.Login)
			auth.POST("/send-code", authHandler.SendVerificationCode)
		}

		// 需要 JWT 认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth())
		{
			// 用户相关
			authorized.GET("/auth/profile", authHandler.GetProfile)

			// 问答（检索+生成成本高，单独限流）
			chatHandler := api.NewChatHandler(cfg)
			askRate := cfg.Chat.RatePerMinute
			if askRate <= 0 {
				askRate = 20
			}
			authorized.POST("/ask", middleware.RateLimit(askRate, time.Minute), chatHandler.Ask)

			// 会话相关
			conversationHandler := api.NewConversationHandler()
			conversations := authorized.Group("/conversations")
			{
				conversations.GET("", conversationHandler.List)
				conversations.POST("", conversationHandler.Create)
				conversations.GET("/:id", conversationHandler.Get)
				conversations.PUT("/:id", conversationHandler.Update)
				conversations.DELETE("/:id", conversationHandler.Delete)
				conversations.PATCH("/:id/favourite", conversationHandler.ToggleFavourite)
				conversations.PATCH("/:id/archive", conversationHandler.ToggleArchive)
				conversations.GET("/:id/title", conversationHandler.Title)

				// 会话内消息
				messageHandler := api.NewMessageHandler()
				conversations.GET("/:id/messages", messageHandler.List)
				conversations.POST("/:id/messages", messageHandler.Create)
			}

			// 提问与回答记录
			qaHandler := api.NewQAHandler()
			authorized.GET("/questions", qaHandler.ListQuestions)
			authorized.GET("/responses", qaHandler.ListResponses)

			// 导出
			exportHandler := api.NewExportHandler()
			authorized.GET("/export/excel", exportHandler.ExportExcel)
		}
	}

	return r
}
