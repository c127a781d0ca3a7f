package handler

import (
	"github.com/coachpulse/internal/service"
	"gorm.io/gorm"
)

// API 汇集 HTTP 处理器共享的依赖。
type API struct {
	db        *gorm.DB
	processor *service.SmartLogProcessor
	insights  *service.EngagementInsightService
	reminders *service.ReminderService
	system    *service.SystemSettingService
	uploadDir string
	uploadURL string
}

// NewAPI 构造处理器集合，依赖由 main 统一注入。
func NewAPI(
	gdb *gorm.DB,
	processor *service.SmartLogProcessor,
	insights *service.EngagementInsightService,
	reminders *service.ReminderService,
	system *service.SystemSettingService,
	uploadDir, uploadURL string,
) *API {
	return &API{
		db:        gdb,
		processor: processor,
		insights:  insights,
		reminders: reminders,
		system:    system,
		uploadDir: uploadDir,
		uploadURL: uploadURL,
	}
}

// DB 暴露底层数据库实例，供路由层的轻量查询使用。
func (a *API) DB() *gorm.DB {
	return a.db
}
