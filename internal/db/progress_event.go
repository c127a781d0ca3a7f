package db

import (
	"time"

	"gorm.io/gorm"
)

// EventType 是进度事件的封闭类别枚举。
type EventType string

const (
	// EventTypeWeight 表示体重记录。
	EventTypeWeight EventType = "weight"
	// EventTypeNutrition 表示饮食记录。
	EventTypeNutrition EventType = "nutrition"
	// EventTypeWorkout 表示训练记录。
	EventTypeWorkout EventType = "workout"
	// EventTypeSteps 表示步数记录。
	EventTypeSteps EventType = "steps"
	// EventTypeSleep 表示睡眠记录。
	EventTypeSleep EventType = "sleep"
	// EventTypeMood 表示情绪打卡。
	EventTypeMood EventType = "checkin_mood"
)

// EventTypes 按固定顺序列出全部事件类别，遍历场景以此保证穷尽。
var EventTypes = []EventType{
	EventTypeWeight,
	EventTypeNutrition,
	EventTypeWorkout,
	EventTypeSteps,
	EventTypeSleep,
	EventTypeMood,
}

// EventPayload 承载事件的类别专属归一化数据，以 JSON 形式入库。
type EventPayload map[string]any

// ProgressEvent 定义了由智能日志派生出的类型化进度事件
// 同一条 SmartLog 每个类别至多派生一条事件；重新分析时旧事件整体删除后重建
type ProgressEvent struct {
	gorm.Model
	ClientID      uint `gorm:"index:idx_event_client_type"`
	SmartLogID    uint `gorm:"index"`
	EventType     EventType `gorm:"index:idx_event_client_type"`
	DateForMetric time.Time
	Data          EventPayload `gorm:"serializer:json"`
	Confidence    float64
	NeedsReview   bool
}
