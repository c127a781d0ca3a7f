package db

import (
	"time"

	"gorm.io/gorm"
)

const (
	// GoalStatusActive 表示进行中的长期目标。
	GoalStatusActive = "active"
	// GoalStatusCompleted 表示已完成的目标。
	GoalStatusCompleted = "completed"
	// GoalStatusPaused 表示暂停中的目标。
	GoalStatusPaused = "paused"
)

// Goal 定义了学员的长期目标
// GoalType 区分目标方向（fitness/strength/nutrition/weight_loss/habit 等），
// 洞察检测与目标提醒都依据类型判断相关性
type Goal struct {
	gorm.Model
	ClientID   uint `gorm:"index"`
	Client     Client
	Title      string `gorm:"not null"`
	GoalType   string `gorm:"index"`
	TargetDate *time.Time
	Status     string `gorm:"default:active"`
}

var (
	workoutGoalTypes   = map[string]bool{"fitness": true, "workout": true, "strength": true, "endurance": true}
	nutritionGoalTypes = map[string]bool{"nutrition": true, "weight_loss": true, "diet": true}
)

// IsWorkoutType 判断目标是否属于训练类。
func (g *Goal) IsWorkoutType() bool {
	return workoutGoalTypes[g.GoalType]
}

// IsNutritionType 判断目标是否属于饮食类。
func (g *Goal) IsNutritionType() bool {
	return nutritionGoalTypes[g.GoalType]
}
