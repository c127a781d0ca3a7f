package service

import (
	"time"

	"github.com/coachpulse/internal/db"
)

// lbsToKg 为磅转千克的固定换算系数。
const lbsToKg = 0.453592

// 各类别的置信度验收线，低于该值的事件标记 needs_review。
const (
	weightReviewThreshold    = 0.8
	stepsReviewThreshold     = 0.8
	nutritionReviewThreshold = 0.7
	workoutReviewThreshold   = 0.7
	sleepReviewThreshold     = 0.7
	moodReviewThreshold      = 0.7
)

// MaterializeEvents 将提取结果映射为进度事件草稿，纯函数、无 I/O。
// 每个类别独立产出至多一条事件，顺序固定：weight、nutrition、workout、steps、sleep、mood。
func MaterializeEvents(clientID, smartLogID uint, date time.Time, parsed db.AIParsedData) []db.ProgressEvent {
	events := make([]db.ProgressEvent, 0, 6)

	draft := func(eventType db.EventType, data db.EventPayload, confidence, threshold float64) db.ProgressEvent {
		return db.ProgressEvent{
			ClientID:      clientID,
			SmartLogID:    smartLogID,
			EventType:     eventType,
			DateForMetric: date,
			Data:          data,
			Confidence:    confidence,
			NeedsReview:   confidence < threshold,
		}
	}

	if w := parsed.Weight; w != nil {
		events = append(events, draft(db.EventTypeWeight, weightPayload(*w), w.Confidence, weightReviewThreshold))
	}

	if n := parsed.Nutrition; n != nil {
		events = append(events, draft(db.EventTypeNutrition, nutritionPayload(*n), n.Confidence, nutritionReviewThreshold))
	}

	if w := parsed.Workout; w != nil {
		data := db.EventPayload{"activity": w.Activity}
		if w.DurationMin != nil {
			data["duration_min"] = *w.DurationMin
		}
		if w.Intensity != "" {
			data["intensity"] = w.Intensity
		}
		if w.CaloriesBurned != nil {
			data["calories_burned"] = *w.CaloriesBurned
		}
		events = append(events, draft(db.EventTypeWorkout, data, w.Confidence, workoutReviewThreshold))
	}

	if s := parsed.Steps; s != nil {
		data := db.EventPayload{"count": s.Count}
		events = append(events, draft(db.EventTypeSteps, data, s.Confidence, stepsReviewThreshold))
	}

	if s := parsed.Sleep; s != nil {
		data := db.EventPayload{"hours": s.Hours}
		if s.Quality != "" {
			data["quality"] = s.Quality
		}
		events = append(events, draft(db.EventTypeSleep, data, s.Confidence, sleepReviewThreshold))
	}

	if m := parsed.Mood; m != nil {
		data := db.EventPayload{}
		if m.Rating != nil {
			data["rating"] = *m.Rating
		}
		if m.Note != "" {
			data["note"] = m.Note
		}
		events = append(events, draft(db.EventTypeMood, data, m.Confidence, moodReviewThreshold))
	}

	return events
}

// weightPayload 同时保留原始单位数值与千克归一化值。
func weightPayload(w db.WeightData) db.EventPayload {
	valueKg := w.Value
	unit := w.Unit
	if unit == "" {
		unit = "kg"
	}
	if unit == "lbs" || unit == "lb" {
		valueKg = w.Value * lbsToKg
	}
	return db.EventPayload{
		"value":    w.Value,
		"unit":     unit,
		"value_kg": valueKg,
	}
}

// nutritionPayload 按字段优先使用学员明确记录的数值，估算值仅作兜底并记录来源。
func nutritionPayload(n db.NutritionData) db.EventPayload {
	data := db.EventPayload{}
	if n.Description != "" {
		data["description"] = n.Description
	}
	if n.MealType != "" {
		data["meal_type"] = n.MealType
	}

	estimated := make([]string, 0, 4)
	pick := func(field string, logged, est *float64) {
		switch {
		case logged != nil:
			data[field] = *logged
		case est != nil:
			data[field] = *est
			estimated = append(estimated, field)
		}
	}
	pick("calories", n.Calories, n.CaloriesEst)
	pick("protein_g", n.ProteinG, n.ProteinGEst)
	pick("carbs_g", n.CarbsG, n.CarbsGEst)
	pick("fat_g", n.FatG, n.FatGEst)

	if len(estimated) > 0 {
		data["estimated_fields"] = estimated
	}
	return data
}
