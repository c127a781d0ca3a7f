package db

import (
	"time"

	"gorm.io/gorm"
)

const (
	// SmartLogStatusPending 表示日志等待处理。
	SmartLogStatusPending = "pending"
	// SmartLogStatusProcessing 表示处理流程进行中。
	SmartLogStatusProcessing = "processing"
	// SmartLogStatusCompleted 表示处理成功结束。
	SmartLogStatusCompleted = "completed"
	// SmartLogStatusFailed 表示处理以错误终止，需要学员重新提交。
	SmartLogStatusFailed = "failed"
)

// SmartLog 定义了学员自由记录的智能日志
// RawText 与 MediaURLs 至少一项非空才会进入 AI 解析；两者皆空的日志直接标记完成。
// AIClassification / AIParsedData 为两阶段解析结果，重新分析时整体替换；
// 两字段显式指定列名，默认命名策略会把 AI 前缀拆成 a_i。
type SmartLog struct {
	gorm.Model
	ClientID         uint `gorm:"index"`
	Client           Client
	RawText          string
	MediaURLs        []string  `gorm:"serializer:json"`
	LocalDate        time.Time // 学员本地日历日
	ProcessingStatus string    `gorm:"default:pending;index"`
	AIClassification *AIClassification `gorm:"column:ai_classification;serializer:json"`
	AIParsedData     *AIParsedData     `gorm:"column:ai_parsed_data;serializer:json"`
	ProcessingError  string
}

// AIClassification 是粗分类阶段的结构化判断结果。
type AIClassification struct {
	DetectedEventTypes []string `json:"detected_event_types"`
	HasWeight          bool     `json:"has_weight"`
	HasNutrition       bool     `json:"has_nutrition"`
	HasWorkout         bool     `json:"has_workout"`
	HasSteps           bool     `json:"has_steps"`
	HasSleep           bool     `json:"has_sleep"`
	HasMood            bool     `json:"has_mood"`
	OverallConfidence  float64  `json:"overall_confidence"`
}

// HasAnyCategory 判断是否至少命中一个可提取类别。
func (c AIClassification) HasAnyCategory() bool {
	return c.HasWeight || c.HasNutrition || c.HasWorkout || c.HasSteps || c.HasSleep || c.HasMood
}

// AIParsedData 是细粒度提取阶段的结果，各类别子记录按需出现。
type AIParsedData struct {
	Nutrition *NutritionData `json:"nutrition,omitempty"`
	Workout   *WorkoutData   `json:"workout,omitempty"`
	Weight    *WeightData    `json:"weight,omitempty"`
	Steps     *StepsData     `json:"steps,omitempty"`
	Sleep     *SleepData     `json:"sleep,omitempty"`
	Mood      *MoodData      `json:"mood,omitempty"`
}

// IsEmpty 判断提取结果是否没有任何子记录。
func (p AIParsedData) IsEmpty() bool {
	return p.Nutrition == nil && p.Workout == nil && p.Weight == nil &&
		p.Steps == nil && p.Sleep == nil && p.Mood == nil
}

// NutritionData 记录饮食提取结果。
// 无 _est 后缀的字段来自学员明确记录，_est 字段为模型估算，取值时前者优先。
type NutritionData struct {
	Description string   `json:"description,omitempty"`
	MealType    string   `json:"meal_type,omitempty"`
	Calories    *float64 `json:"calories,omitempty"`
	CaloriesEst *float64 `json:"calories_est,omitempty"`
	ProteinG    *float64 `json:"protein_g,omitempty"`
	ProteinGEst *float64 `json:"protein_g_est,omitempty"`
	CarbsG      *float64 `json:"carbs_g,omitempty"`
	CarbsGEst   *float64 `json:"carbs_g_est,omitempty"`
	FatG        *float64 `json:"fat_g,omitempty"`
	FatGEst     *float64 `json:"fat_g_est,omitempty"`
	Confidence  float64  `json:"confidence"`
}

// WorkoutData 记录训练提取结果。
type WorkoutData struct {
	Activity       string   `json:"activity,omitempty"`
	DurationMin    *int     `json:"duration_min,omitempty"`
	Intensity      string   `json:"intensity,omitempty"`
	CaloriesBurned *float64 `json:"calories_burned,omitempty"`
	Confidence     float64  `json:"confidence"`
}

// WeightData 记录体重提取结果，Unit 取 kg 或 lbs。
type WeightData struct {
	Value      float64 `json:"value"`
	Unit       string  `json:"unit"`
	Confidence float64 `json:"confidence"`
}

// StepsData 记录步数提取结果。
type StepsData struct {
	Count      int     `json:"count"`
	Confidence float64 `json:"confidence"`
}

// SleepData 记录睡眠提取结果。
type SleepData struct {
	Hours      float64 `json:"hours"`
	Quality    string  `json:"quality,omitempty"`
	Confidence float64 `json:"confidence"`
}

// MoodData 记录情绪打卡提取结果，Rating 取 1-5。
type MoodData struct {
	Rating     *int    `json:"rating,omitempty"`
	Note       string  `json:"note,omitempty"`
	Confidence float64 `json:"confidence"`
}
