package db

import (
	"time"

	"gorm.io/gorm"
)

const (
	// PlanStatusAssigned 表示计划已下发但学员尚未确认开始。
	PlanStatusAssigned = "assigned"
	// PlanStatusActive 表示学员正在执行的计划。
	PlanStatusActive = "active"
	// PlanStatusArchived 表示已归档的计划。
	PlanStatusArchived = "archived"
)

// SharedPlan 定义了教练派发给学员的计划
// Content 为 Markdown 正文，按星期划分的小节可被提醒调度器解析出“今日安排”
type SharedPlan struct {
	gorm.Model
	ClientID   uint `gorm:"index"`
	CoachID    uint
	Title      string `gorm:"not null"`
	Content    string
	Status     string `gorm:"default:assigned;index"`
	AssignedAt time.Time
}
