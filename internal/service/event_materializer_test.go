package service

import (
	"testing"
	"time"

	"github.com/coachpulse/internal/db"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestMaterializeWeightLbsNormalization(t *testing.T) {
	date := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	parsed := db.AIParsedData{
		Weight: &db.WeightData{Value: 180, Unit: "lbs", Confidence: 0.9},
	}

	events := MaterializeEvents(7, 42, date, parsed)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.EventType != db.EventTypeWeight {
		t.Fatalf("unexpected event type: %s", event.EventType)
	}
	if event.ClientID != 7 || event.SmartLogID != 42 {
		t.Fatalf("unexpected references: client=%d log=%d", event.ClientID, event.SmartLogID)
	}

	valueKg, ok := event.Data["value_kg"].(float64)
	if !ok {
		t.Fatalf("expected value_kg in payload: %#v", event.Data)
	}
	if valueKg != 180*0.453592 {
		t.Fatalf("unexpected kg value: %v", valueKg)
	}
	if event.Data["value"].(float64) != 180 || event.Data["unit"].(string) != "lbs" {
		t.Fatalf("original value/unit not preserved: %#v", event.Data)
	}
	if event.NeedsReview {
		t.Fatal("confidence 0.9 should not need review")
	}
}

func TestMaterializeWeightLowConfidenceNeedsReview(t *testing.T) {
	parsed := db.AIParsedData{
		Weight: &db.WeightData{Value: 82.5, Unit: "kg", Confidence: 0.75},
	}

	events := MaterializeEvents(1, 1, time.Now(), parsed)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if !events[0].NeedsReview {
		t.Fatal("confidence 0.75 is below the 0.8 weight threshold")
	}
	if events[0].Data["value_kg"].(float64) != 82.5 {
		t.Fatalf("kg input should pass through unchanged: %#v", events[0].Data)
	}
}

func TestMaterializeNutritionPrefersLoggedValues(t *testing.T) {
	parsed := db.AIParsedData{
		Nutrition: &db.NutritionData{
			Description: "鸡胸肉沙拉",
			MealType:    "lunch",
			Calories:    floatPtr(520),
			CaloriesEst: floatPtr(610),
			ProteinGEst: floatPtr(42),
			Confidence:  0.65,
		},
	}

	events := MaterializeEvents(1, 1, time.Now(), parsed)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.EventType != db.EventTypeNutrition {
		t.Fatalf("unexpected event type: %s", event.EventType)
	}
	if event.Data["calories"].(float64) != 520 {
		t.Fatalf("logged calories should win over estimate: %#v", event.Data)
	}
	if event.Data["protein_g"].(float64) != 42 {
		t.Fatalf("estimated protein should fill the gap: %#v", event.Data)
	}

	estimated, ok := event.Data["estimated_fields"].([]string)
	if !ok || len(estimated) != 1 || estimated[0] != "protein_g" {
		t.Fatalf("unexpected estimated fields: %#v", event.Data["estimated_fields"])
	}
	if !event.NeedsReview {
		t.Fatal("confidence 0.65 is below the 0.7 nutrition threshold")
	}
}

func TestMaterializeEmptyParsedData(t *testing.T) {
	events := MaterializeEvents(1, 1, time.Now(), db.AIParsedData{})
	if len(events) != 0 {
		t.Fatalf("expected no events, got %d", len(events))
	}
}

func TestMaterializeAllCategoriesInFixedOrder(t *testing.T) {
	parsed := db.AIParsedData{
		Nutrition: &db.NutritionData{Calories: floatPtr(400), Confidence: 0.8},
		Workout:   &db.WorkoutData{Activity: "晨跑", DurationMin: intPtr(30), Confidence: 0.9},
		Weight:    &db.WeightData{Value: 70, Unit: "kg", Confidence: 0.95},
		Steps:     &db.StepsData{Count: 8200, Confidence: 0.85},
		Sleep:     &db.SleepData{Hours: 7.5, Quality: "good", Confidence: 0.8},
		Mood:      &db.MoodData{Rating: intPtr(4), Confidence: 0.9},
	}

	events := MaterializeEvents(1, 1, time.Now(), parsed)
	if len(events) != 6 {
		t.Fatalf("expected 6 events, got %d", len(events))
	}

	wantOrder := []db.EventType{
		db.EventTypeWeight,
		db.EventTypeNutrition,
		db.EventTypeWorkout,
		db.EventTypeSteps,
		db.EventTypeSleep,
		db.EventTypeMood,
	}
	for i, want := range wantOrder {
		if events[i].EventType != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, events[i].EventType)
		}
	}
}
