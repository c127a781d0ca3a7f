package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coachpulse/internal/config"
	"github.com/coachpulse/internal/db"
	"github.com/coachpulse/internal/handler"
	"github.com/coachpulse/internal/router"
	"github.com/coachpulse/internal/scheduler"
	"github.com/coachpulse/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// 按需创建初始教练账号
	if err := db.EnsureCoach(cfg.CoachUserName, cfg.CoachPassword); err != nil {
		log.Fatalf("failed to ensure coach account: %v", err)
	}

	systemService := service.NewSystemSettingService(db.DB)
	classifier := service.NewAILogClassifier(systemService)
	processor := service.NewSmartLogProcessor(db.DB, classifier)
	insightService := service.NewEngagementInsightService(db.DB)
	pushSender := service.NewWebPushSender(db.DB, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber)
	reminderService := service.NewReminderService(db.DB, pushSender, insightService)

	// 两个后台调度器：洞察检测与提醒推送
	insightScheduler := scheduler.New("insight-detector", cfg.InsightInterval, cfg.InsightWarmup, func() {
		insightService.DetectAllClients()
	})
	reminderScheduler := scheduler.New("reminder-dispatcher", cfg.ReminderInterval, cfg.ReminderWarmup, func() {
		reminderService.ProcessAll(context.Background())
	})

	if err := insightScheduler.Start(); err != nil {
		log.Fatalf("failed to start insight scheduler: %v", err)
	}
	if err := reminderScheduler.Start(); err != nil {
		log.Fatalf("failed to start reminder scheduler: %v", err)
	}

	// 收到终止信号时先停调度器再退出
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		insightScheduler.Stop()
		reminderScheduler.Stop()
		os.Exit(0)
	}()

	api := handler.NewAPI(db.DB, processor, insightService, reminderService, systemService, cfg.UploadDir, cfg.UploadURLPath)
	r := router.SetupRouter(api, cfg.SessionSecret)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
