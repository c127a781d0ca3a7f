package db

import (
	"time"

	"gorm.io/gorm"
)

// ClientReminderSettings 定义了学员的提醒配置
// 首次被提醒调度器处理时按默认值惰性创建：安静时段 21:00-08:00、每日上限 5 条、
// 各类提醒全部开启、不活跃阈值 1 天
type ClientReminderSettings struct {
	gorm.Model
	ClientID                   uint `gorm:"uniqueIndex"`
	RemindersEnabled           bool `gorm:"default:true"`
	GoalRemindersEnabled       bool `gorm:"default:true"`
	PlanRemindersEnabled       bool `gorm:"default:true"`
	InactivityRemindersEnabled bool `gorm:"default:true"`
	InactivityThresholdDays    int  `gorm:"default:1"`
	QuietHoursStart            string `gorm:"default:21:00"`
	QuietHoursEnd              string `gorm:"default:08:00"`
	Timezone                   string
	MaxRemindersPerDay         int `gorm:"default:5"`
}

// SentReminder 是推送提醒的追加式审计账单
// SentDate 为学员本地日历日（2006-01-02），当日去重与每日上限均以此为准
type SentReminder struct {
	gorm.Model
	ClientID         uint   `gorm:"index:idx_sent_client_date"`
	ReminderType     string `gorm:"not null"`
	ReminderCategory string
	Title            string
	Message          string
	SentAt           time.Time
	SentDate         string `gorm:"index:idx_sent_client_date"`
	DeliveryStatus   string
	RelatedGoalID    *uint
	RelatedPlanID    *uint
}
