package router

import (
	"github.com/coachpulse/internal/handler"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, sessionSecret string) *gin.Engine {
	r := gin.Default()

	// 配置会话中间件
	store := cookie.NewStore([]byte(sessionSecret))
	r.Use(sessions.Sessions("coachpulse_session", store))

	// 静态文件服务（上传的日志图片）
	r.Static("/static", "./web/static")

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/api/login", api.Login)
	r.GET("/api/logout", api.Logout)

	// 学员端入口：日志提交与推送订阅由 App 携带自身凭证调用，鉴权在网关层处理
	client := r.Group("/api/clients/:id")
	{
		client.POST("/smart-logs", api.CreateSmartLog)
		client.GET("/smart-logs", api.ListSmartLogs)
		client.POST("/push-subscriptions", api.CreatePushSubscription)
	}
	r.PUT("/api/smart-logs/:id", api.UpdateSmartLog)
	r.GET("/api/smart-logs/:id", api.GetSmartLog)
	r.DELETE("/api/push-subscriptions/:id", api.DeletePushSubscription)
	r.POST("/api/uploads", api.UploadImage)

	// 教练端路由，需要会话认证
	coach := r.Group("/api")
	coach.Use(handler.AuthRequired())
	{
		coach.GET("/clients/:id/triggers", api.ListTriggers)
		coach.POST("/triggers/:id/resolve", api.ResolveTrigger)
		coach.GET("/clients/:id/events", api.ListProgressEvents)
		coach.GET("/clients/:id/reminder-settings", api.GetReminderSettings)
		coach.PUT("/clients/:id/reminder-settings", api.UpdateReminderSettings)
		coach.GET("/plans/:id/preview", api.PreviewPlan)

		admin := coach.Group("/admin")
		{
			admin.POST("/insights/run", api.RunInsightDetection)
			admin.POST("/reminders/run", api.RunReminderDispatch)
		}
	}

	return r
}
