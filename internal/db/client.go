package db

import (
	"time"

	"gorm.io/gorm"
)

// Client 定义了学员模型
// Timezone 为 IANA 时区名（如 Asia/Shanghai），提醒与安静时段均按学员本地时间计算
// JoinedAt 记录加入教练计划的时间，新学员的活跃度分析以此为兜底基准
type Client struct {
	gorm.Model
	CoachID  uint `gorm:"index"`
	Coach    Coach
	Name     string `gorm:"not null"`
	Email    string
	Timezone string `gorm:"default:UTC"`
	JoinedAt time.Time
	IsActive bool `gorm:"default:true"`
}

// Location 解析学员时区，解析失败时回退 UTC。
func (c *Client) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}
