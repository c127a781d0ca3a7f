package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/coachpulse/internal/db"
	"gorm.io/gorm"
)

// 触发阈值（天）。优先级：inactivity 触发时压制其余两条规则，避免同一名
// 失联学员被重复标记三次。
const (
	inactivityHighDays   = 5
	inactivityMediumDays = 3
	nutritionHighDays    = 5
	nutritionMediumDays  = 3
	workoutHighDays      = 7
	workoutMediumDays    = 4
)

// 自动解除阈值（天）。刻意低于触发阈值形成滞回：学员恢复记录后触发器很快解除，
// 而不是在触发线附近反复抖动。
const (
	inactivityRecoveryDays = 2
	nutritionRecoveryDays  = 2
	workoutRecoveryDays    = 3
)

// ActivityAnalysis 描述学员各类活动的最近程度（天数）。
// 某类事件从未出现时按入营天数兜底，新学员不会被立即判定为失联。
type ActivityAnalysis struct {
	DaysSinceMeal    int
	DaysSinceWorkout int
	DaysSinceCheckIn int
	DaysSinceAny     int
}

// InsightResult 汇总一次检测对触发器的变更数量。
type InsightResult struct {
	Created   int
	Escalated int
	Resolved  int
}

// EngagementInsightService 周期性评估学员活跃度并维护互动触发器的生命周期。
type EngagementInsightService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewEngagementInsightService 构造 EngagementInsightService。
func NewEngagementInsightService(gdb *gorm.DB) *EngagementInsightService {
	return &EngagementInsightService{db: gdb, now: time.Now}
}

// WithNow 允许在测试中固定当前时间。
func (s *EngagementInsightService) WithNow(now func() time.Time) *EngagementInsightService {
	if now != nil {
		s.now = now
	}
	return s
}

// AnalyzeActivity 计算学员饮食、训练与打卡（情绪/体重/睡眠）的各自最近天数。
func (s *EngagementInsightService) AnalyzeActivity(client *db.Client) (ActivityAnalysis, error) {
	joined := client.JoinedAt
	if joined.IsZero() {
		joined = client.CreatedAt
	}

	meal, err := s.daysSinceEvent(client.ID, joined, db.EventTypeNutrition)
	if err != nil {
		return ActivityAnalysis{}, err
	}
	workout, err := s.daysSinceEvent(client.ID, joined, db.EventTypeWorkout)
	if err != nil {
		return ActivityAnalysis{}, err
	}
	checkin, err := s.daysSinceEvent(client.ID, joined, db.EventTypeMood, db.EventTypeWeight, db.EventTypeSleep)
	if err != nil {
		return ActivityAnalysis{}, err
	}

	return ActivityAnalysis{
		DaysSinceMeal:    meal,
		DaysSinceWorkout: workout,
		DaysSinceCheckIn: checkin,
		DaysSinceAny:     min(meal, workout, checkin),
	}, nil
}

func (s *EngagementInsightService) daysSinceEvent(clientID uint, joined time.Time, types ...db.EventType) (int, error) {
	var event db.ProgressEvent
	err := s.db.Where("client_id = ? AND event_type IN ?", clientID, types).
		Order("date_for_metric DESC").
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return s.daysSince(joined), nil
		}
		return 0, fmt.Errorf("load latest event: %w", err)
	}
	return s.daysSince(event.DateForMetric), nil
}

func (s *EngagementInsightService) daysSince(t time.Time) int {
	days := int(s.now().Sub(t).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

type triggerCandidate struct {
	Type      db.TriggerType
	Severity  db.TriggerSeverity
	ReasonKey string
	Params    db.EventPayload
	ActionKey string
}

// evaluateRules 按优先级运行触发规则，返回当前适用的候选集合。
func evaluateRules(analysis ActivityAnalysis, hasWorkoutGoals, hasNutritionGoals bool) []triggerCandidate {
	candidates := make([]triggerCandidate, 0, 3)

	if analysis.DaysSinceAny >= inactivityMediumDays {
		severity := db.SeverityMedium
		if analysis.DaysSinceAny >= inactivityHighDays {
			severity = db.SeverityHigh
		}
		candidates = append(candidates, triggerCandidate{
			Type:      db.TriggerTypeInactivity,
			Severity:  severity,
			ReasonKey: "trigger.inactivity.reason",
			Params:    db.EventPayload{"days": analysis.DaysSinceAny},
			ActionKey: "trigger.inactivity.action",
		})
		// 整体失联优先，压制其余规则
		return candidates
	}

	if hasNutritionGoals && analysis.DaysSinceMeal >= nutritionMediumDays {
		severity := db.SeverityMedium
		if analysis.DaysSinceMeal >= nutritionHighDays {
			severity = db.SeverityHigh
		}
		candidates = append(candidates, triggerCandidate{
			Type:      db.TriggerTypeNutritionConcern,
			Severity:  severity,
			ReasonKey: "trigger.nutrition_concern.reason",
			Params:    db.EventPayload{"days": analysis.DaysSinceMeal},
			ActionKey: "trigger.nutrition_concern.action",
		})
	}

	if hasWorkoutGoals && analysis.DaysSinceWorkout >= workoutMediumDays {
		severity := db.SeverityMedium
		if analysis.DaysSinceWorkout >= workoutHighDays {
			severity = db.SeverityHigh
		}
		candidates = append(candidates, triggerCandidate{
			Type:      db.TriggerTypeMissedWorkout,
			Severity:  severity,
			ReasonKey: "trigger.missed_workout.reason",
			Params:    db.EventPayload{"days": analysis.DaysSinceWorkout},
			ActionKey: "trigger.missed_workout.action",
		})
	}

	return candidates
}

// recoveryMet 判断触发器类型对应的恢复条件是否满足。
func recoveryMet(triggerType db.TriggerType, analysis ActivityAnalysis) bool {
	switch triggerType {
	case db.TriggerTypeInactivity:
		return analysis.DaysSinceAny < inactivityRecoveryDays
	case db.TriggerTypeNutritionConcern:
		return analysis.DaysSinceMeal < nutritionRecoveryDays
	case db.TriggerTypeMissedWorkout:
		return analysis.DaysSinceWorkout < workoutRecoveryDays
	}
	return false
}

// DetectForClient 对单个学员执行 分析 → 自动解除 → 规则评估 → 对账 的完整流程。
// 不变量：同一 (学员, 类型) 至多一条未解决触发器；严重度只升不降。
func (s *EngagementInsightService) DetectForClient(client *db.Client) (InsightResult, error) {
	var result InsightResult

	analysis, err := s.AnalyzeActivity(client)
	if err != nil {
		return result, err
	}

	var goals []db.Goal
	if err := s.db.Where("client_id = ? AND status = ?", client.ID, db.GoalStatusActive).Find(&goals).Error; err != nil {
		return result, fmt.Errorf("load active goals: %w", err)
	}
	hasWorkoutGoals, hasNutritionGoals := false, false
	for i := range goals {
		if goals[i].IsWorkoutType() {
			hasWorkoutGoals = true
		}
		if goals[i].IsNutritionType() {
			hasNutritionGoals = true
		}
	}

	var unresolved []db.EngagementTrigger
	if err := s.db.Where("client_id = ? AND is_resolved = ?", client.ID, false).Find(&unresolved).Error; err != nil {
		return result, fmt.Errorf("load unresolved triggers: %w", err)
	}

	existing := make(map[db.TriggerType]*db.EngagementTrigger, len(unresolved))
	now := s.now()
	for i := range unresolved {
		trigger := &unresolved[i]
		if recoveryMet(trigger.Type, analysis) {
			trigger.IsResolved = true
			trigger.ResolvedAt = &now
			if err := s.db.Save(trigger).Error; err != nil {
				return result, fmt.Errorf("auto-resolve trigger: %w", err)
			}
			result.Resolved++
			continue
		}
		existing[trigger.Type] = trigger
	}

	for _, cand := range evaluateRules(analysis, hasWorkoutGoals, hasNutritionGoals) {
		current, ok := existing[cand.Type]
		if !ok {
			trigger := db.EngagementTrigger{
				ClientID:     client.ID,
				CoachID:      client.CoachID,
				Type:         cand.Type,
				Severity:     cand.Severity,
				ReasonKey:    cand.ReasonKey,
				ReasonParams: cand.Params,
				ActionKey:    cand.ActionKey,
				DetectedAt:   now,
			}
			if err := s.db.Create(&trigger).Error; err != nil {
				return result, fmt.Errorf("create trigger: %w", err)
			}
			result.Created++
			continue
		}

		escalated := cand.Severity.Rank() > current.Severity.Rank()
		reasonChanged := current.ReasonKey != cand.ReasonKey || !payloadEqual(current.ReasonParams, cand.Params)
		if !escalated && !reasonChanged {
			continue
		}

		if escalated {
			current.Severity = cand.Severity
		}
		current.ReasonKey = cand.ReasonKey
		current.ReasonParams = cand.Params
		current.ActionKey = cand.ActionKey
		current.DetectedAt = now
		if err := s.db.Save(current).Error; err != nil {
			return result, fmt.Errorf("update trigger: %w", err)
		}
		if escalated {
			result.Escalated++
		}
	}

	return result, nil
}

// DetectAllClients 遍历所有活跃学员执行检测，单个学员的失败只记录日志不影响批次。
func (s *EngagementInsightService) DetectAllClients() InsightResult {
	var aggregate InsightResult

	var clients []db.Client
	if err := s.db.Where("is_active = ?", true).Find(&clients).Error; err != nil {
		log.Printf("[INSIGHT] load active clients failed: %v", err)
		return aggregate
	}

	for i := range clients {
		result, err := s.DetectForClient(&clients[i])
		if err != nil {
			log.Printf("[INSIGHT] detect client %d failed: %v", clients[i].ID, err)
			continue
		}
		aggregate.Created += result.Created
		aggregate.Escalated += result.Escalated
		aggregate.Resolved += result.Resolved
	}

	log.Printf("[INSIGHT] cycle done: clients=%d created=%d escalated=%d resolved=%d",
		len(clients), aggregate.Created, aggregate.Escalated, aggregate.Resolved)
	return aggregate
}

// payloadEqual 通过 JSON 规范化比较两个参数集合，规避 int/float64 的反序列化差异。
func payloadEqual(a, b db.EventPayload) bool {
	left, errA := json.Marshal(a)
	right, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(left, right)
}
