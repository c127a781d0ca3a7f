package db

import (
	"time"

	"gorm.io/gorm"
)

// TriggerType 是互动触发器的封闭类型枚举。
type TriggerType string

const (
	// TriggerTypeInactivity 表示整体失联。
	TriggerTypeInactivity TriggerType = "inactivity"
	// TriggerTypeNutritionConcern 表示饮食记录中断。
	TriggerTypeNutritionConcern TriggerType = "nutrition_concern"
	// TriggerTypeMissedWorkout 表示训练记录中断。
	TriggerTypeMissedWorkout TriggerType = "missed_workout"
)

// TriggerSeverity 是触发器严重度，low < medium < high。
type TriggerSeverity string

const (
	// SeverityLow 表示轻度关注。
	SeverityLow TriggerSeverity = "low"
	// SeverityMedium 表示建议跟进。
	SeverityMedium TriggerSeverity = "medium"
	// SeverityHigh 表示需要尽快联系学员。
	SeverityHigh TriggerSeverity = "high"
)

var severityRank = map[TriggerSeverity]int{
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// Rank 返回严重度的序数，未知值记为 0。
func (s TriggerSeverity) Rank() int {
	return severityRank[s]
}

// EngagementTrigger 定义了面向教练的互动触发器
// Reason/RecommendedAction 均存储 i18n 模板键与参数而非自由文本，渲染交给展示层
// 不变量：同一 (ClientID, Type) 同时至多存在一条未解决记录
type EngagementTrigger struct {
	gorm.Model
	ClientID     uint `gorm:"index:idx_trigger_client_type"`
	CoachID      uint `gorm:"index"`
	Type         TriggerType     `gorm:"index:idx_trigger_client_type"`
	Severity     TriggerSeverity `gorm:"not null"`
	ReasonKey    string          `gorm:"not null"`
	ReasonParams EventPayload    `gorm:"serializer:json"`
	ActionKey    string
	IsResolved   bool `gorm:"default:false;index"`
	DetectedAt   time.Time
	ResolvedAt   *time.Time
}
