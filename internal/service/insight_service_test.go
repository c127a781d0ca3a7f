package service

import (
	"testing"
	"time"

	"github.com/coachpulse/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var insightTestNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func setupInsightTest(t *testing.T) (*gorm.DB, *EngagementInsightService, func()) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&db.Client{}, &db.Goal{}, &db.ProgressEvent{}, &db.EngagementTrigger{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	svc := NewEngagementInsightService(gdb).WithNow(func() time.Time { return insightTestNow })
	cleanup := func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	return gdb, svc, cleanup
}

func createInsightClient(t *testing.T, gdb *gorm.DB, joinedDaysAgo int) *db.Client {
	t.Helper()
	client := &db.Client{
		CoachID:  1,
		Name:     "王小明",
		JoinedAt: insightTestNow.AddDate(0, 0, -joinedDaysAgo),
	}
	if err := gdb.Create(client).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

func createGoal(t *testing.T, gdb *gorm.DB, clientID uint, goalType string) {
	t.Helper()
	goal := &db.Goal{ClientID: clientID, Title: "长期目标", GoalType: goalType, Status: db.GoalStatusActive}
	if err := gdb.Create(goal).Error; err != nil {
		t.Fatalf("create goal: %v", err)
	}
}

func createEvent(t *testing.T, gdb *gorm.DB, clientID uint, eventType db.EventType, daysAgo int) {
	t.Helper()
	event := &db.ProgressEvent{
		ClientID:      clientID,
		SmartLogID:    1,
		EventType:     eventType,
		DateForMetric: insightTestNow.AddDate(0, 0, -daysAgo),
		Confidence:    0.9,
	}
	if err := gdb.Create(event).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}
}

func TestDetectMissedWorkoutCreatesHighSeverityTrigger(t *testing.T) {
	gdb, svc, cleanup := setupInsightTest(t)
	defer cleanup()

	client := createInsightClient(t, gdb, 60)
	createGoal(t, gdb, client.ID, "fitness")
	createEvent(t, gdb, client.ID, db.EventTypeWorkout, 8)
	createEvent(t, gdb, client.ID, db.EventTypeMood, 1)

	result, err := svc.DetectForClient(client)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if result.Created != 1 || result.Escalated != 0 || result.Resolved != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	var triggers []db.EngagementTrigger
	if err := gdb.Where("client_id = ?", client.ID).Find(&triggers).Error; err != nil {
		t.Fatalf("load triggers: %v", err)
	}
	if len(triggers) != 1 {
		t.Fatalf("expected exactly 1 trigger, got %d", len(triggers))
	}

	trigger := triggers[0]
	if trigger.Type != db.TriggerTypeMissedWorkout {
		t.Fatalf("expected missed_workout, got %s", trigger.Type)
	}
	if trigger.Severity != db.SeverityHigh {
		t.Fatalf("8 days without workout should be high, got %s", trigger.Severity)
	}
	if trigger.ReasonKey != "trigger.missed_workout.reason" {
		t.Fatalf("unexpected reason key: %s", trigger.ReasonKey)
	}
	if days, ok := trigger.ReasonParams["days"].(float64); !ok || days != 8 {
		t.Fatalf("unexpected reason params: %#v", trigger.ReasonParams)
	}
	if trigger.CoachID != client.CoachID {
		t.Fatalf("trigger should carry the coach id, got %d", trigger.CoachID)
	}
}

func TestDetectIsIdempotent(t *testing.T) {
	gdb, svc, cleanup := setupInsightTest(t)
	defer cleanup()

	client := createInsightClient(t, gdb, 60)
	createGoal(t, gdb, client.ID, "fitness")
	createEvent(t, gdb, client.ID, db.EventTypeWorkout, 8)
	createEvent(t, gdb, client.ID, db.EventTypeMood, 1)

	if _, err := svc.DetectForClient(client); err != nil {
		t.Fatalf("first detect: %v", err)
	}
	result, err := svc.DetectForClient(client)
	if err != nil {
		t.Fatalf("second detect: %v", err)
	}
	if result.Created != 0 || result.Escalated != 0 || result.Resolved != 0 {
		t.Fatalf("second run should be a no-op: %+v", result)
	}

	var count int64
	if err := gdb.Model(&db.EngagementTrigger{}).
		Where("client_id = ? AND is_resolved = ?", client.ID, false).
		Count(&count).Error; err != nil {
		t.Fatalf("count triggers: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected a single unresolved trigger, got %d", count)
	}
}

func TestSeverityNeverDowngraded(t *testing.T) {
	gdb, svc, cleanup := setupInsightTest(t)
	defer cleanup()

	client := createInsightClient(t, gdb, 60)
	createGoal(t, gdb, client.ID, "fitness")
	createEvent(t, gdb, client.ID, db.EventTypeWorkout, 8)
	createEvent(t, gdb, client.ID, db.EventTypeMood, 1)

	if _, err := svc.DetectForClient(client); err != nil {
		t.Fatalf("first detect: %v", err)
	}

	// 新的训练记录让天数降到 5，候选降为 medium，但已有 high 不回落
	createEvent(t, gdb, client.ID, db.EventTypeWorkout, 5)
	result, err := svc.DetectForClient(client)
	if err != nil {
		t.Fatalf("second detect: %v", err)
	}
	if result.Escalated != 0 || result.Created != 0 {
		t.Fatalf("downgrade must not count as change: %+v", result)
	}

	var trigger db.EngagementTrigger
	if err := gdb.Where("client_id = ? AND type = ?", client.ID, db.TriggerTypeMissedWorkout).
		First(&trigger).Error; err != nil {
		t.Fatalf("load trigger: %v", err)
	}
	if trigger.Severity != db.SeverityHigh {
		t.Fatalf("severity must stay high, got %s", trigger.Severity)
	}
	if days, ok := trigger.ReasonParams["days"].(float64); !ok || days != 5 {
		t.Fatalf("reason params should refresh to the new day count: %#v", trigger.ReasonParams)
	}
}

func TestEscalationOnlyOnSeverityIncrease(t *testing.T) {
	gdb, svc, cleanup := setupInsightTest(t)
	defer cleanup()

	client := createInsightClient(t, gdb, 60)
	createGoal(t, gdb, client.ID, "strength")
	createEvent(t, gdb, client.ID, db.EventTypeWorkout, 5)
	createEvent(t, gdb, client.ID, db.EventTypeMood, 1)

	if _, err := svc.DetectForClient(client); err != nil {
		t.Fatalf("first detect: %v", err)
	}

	var trigger db.EngagementTrigger
	if err := gdb.Where("client_id = ? AND type = ?", client.ID, db.TriggerTypeMissedWorkout).
		First(&trigger).Error; err != nil {
		t.Fatalf("load trigger: %v", err)
	}
	if trigger.Severity != db.SeverityMedium {
		t.Fatalf("5 days should be medium, got %s", trigger.Severity)
	}

	// 三天后复检：训练间隔越过 high 线，打卡保持活跃避免整体失联规则抢先
	later := insightTestNow.AddDate(0, 0, 3)
	svc.WithNow(func() time.Time { return later })
	event := &db.ProgressEvent{
		ClientID: client.ID, SmartLogID: 2, EventType: db.EventTypeMood,
		DateForMetric: later.AddDate(0, 0, -1), Confidence: 0.9,
	}
	if err := gdb.Create(event).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}

	result, err := svc.DetectForClient(client)
	if err != nil {
		t.Fatalf("second detect: %v", err)
	}
	if result.Escalated != 1 || result.Created != 0 {
		t.Fatalf("expected a single escalation: %+v", result)
	}

	if err := gdb.First(&trigger, trigger.ID).Error; err != nil {
		t.Fatalf("reload trigger: %v", err)
	}
	if trigger.Severity != db.SeverityHigh {
		t.Fatalf("expected escalation to high, got %s", trigger.Severity)
	}
}

func TestInactivitySuppressesOtherRules(t *testing.T) {
	gdb, svc, cleanup := setupInsightTest(t)
	defer cleanup()

	client := createInsightClient(t, gdb, 10)
	createGoal(t, gdb, client.ID, "fitness")
	createGoal(t, gdb, client.ID, "nutrition")

	result, err := svc.DetectForClient(client)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("expected only the inactivity trigger: %+v", result)
	}

	var triggers []db.EngagementTrigger
	if err := gdb.Where("client_id = ?", client.ID).Find(&triggers).Error; err != nil {
		t.Fatalf("load triggers: %v", err)
	}
	if len(triggers) != 1 || triggers[0].Type != db.TriggerTypeInactivity {
		t.Fatalf("inactivity should suppress nutrition/workout rules: %+v", triggers)
	}
	if triggers[0].Severity != db.SeverityHigh {
		t.Fatalf("10 days fully silent should be high, got %s", triggers[0].Severity)
	}
}

func TestAutoResolveOnRecovery(t *testing.T) {
	gdb, svc, cleanup := setupInsightTest(t)
	defer cleanup()

	client := createInsightClient(t, gdb, 60)
	createGoal(t, gdb, client.ID, "fitness")
	createEvent(t, gdb, client.ID, db.EventTypeWorkout, 8)
	createEvent(t, gdb, client.ID, db.EventTypeMood, 1)

	if _, err := svc.DetectForClient(client); err != nil {
		t.Fatalf("first detect: %v", err)
	}

	createEvent(t, gdb, client.ID, db.EventTypeWorkout, 1)
	result, err := svc.DetectForClient(client)
	if err != nil {
		t.Fatalf("second detect: %v", err)
	}
	if result.Resolved != 1 || result.Created != 0 {
		t.Fatalf("expected auto-resolve: %+v", result)
	}

	var trigger db.EngagementTrigger
	if err := gdb.Where("client_id = ? AND type = ?", client.ID, db.TriggerTypeMissedWorkout).
		First(&trigger).Error; err != nil {
		t.Fatalf("load trigger: %v", err)
	}
	if !trigger.IsResolved || trigger.ResolvedAt == nil {
		t.Fatalf("trigger should be resolved with a timestamp: %+v", trigger)
	}
}

func TestRecentClientIsNotFlagged(t *testing.T) {
	gdb, svc, cleanup := setupInsightTest(t)
	defer cleanup()

	client := createInsightClient(t, gdb, 1)
	createGoal(t, gdb, client.ID, "fitness")

	result, err := svc.DetectForClient(client)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if result.Created != 0 {
		t.Fatalf("a one-day-old client must not trigger anything: %+v", result)
	}
}
