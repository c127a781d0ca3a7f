package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/coachpulse/internal/db"
	"gorm.io/gorm"
)

// 跳过原因。跳过是正常流转而非错误，对学员静默，仅在运维日志中可见。
const (
	SkipReasonDisabled       = "reminders_disabled"
	SkipReasonQuietHours     = "quiet_hours"
	SkipReasonDailyLimit     = "daily_limit_reached"
	SkipReasonNoSubscription = "no_push_subscription"
)

// 提醒类型。
const (
	ReminderTypeDailyCheckin      = "daily_checkin"
	ReminderTypeInactivityMeal    = "inactivity_meal"
	ReminderTypeInactivityWorkout = "inactivity_workout"
	ReminderTypeInactivityCheckin = "inactivity_checkin"
	ReminderTypePlanNudge         = "plan_nudge"
)

const sentDateFormat = "2006-01-02"

// 进餐提醒的学员本地小时窗口。
var checkinWindows = []struct {
	Category  string
	StartHour int
	EndHour   int
}{
	{"breakfast", 7, 10},
	{"lunch", 11, 14},
	{"dinner", 17, 20},
}

// ReminderOptions 控制单次处理的行为。
type ReminderOptions struct {
	// BypassQuietHours 跳过安静时段检查，用于管理端手动触发。
	BypassQuietHours bool
}

// ReminderResult 汇总一次处理的发送数量与跳过原因。
type ReminderResult struct {
	Sent          int
	SkippedReason string
}

type reminderCandidate struct {
	Type          string
	Category      string
	Title         string
	Message       string
	RelatedGoalID *uint
	RelatedPlanID *uint
}

// ReminderService 为学员计算并推送提醒：每日打卡、不活跃、目标与计划四类，
// 按固定优先级排序，经安静时段与每日上限约束后投递。
type ReminderService struct {
	db       *gorm.DB
	push     PushSender
	insights *EngagementInsightService
	now      func() time.Time
}

// NewReminderService 构造 ReminderService。
func NewReminderService(gdb *gorm.DB, push PushSender, insights *EngagementInsightService) *ReminderService {
	return &ReminderService{db: gdb, push: push, insights: insights, now: time.Now}
}

// WithNow 允许在测试中固定当前时间。
func (s *ReminderService) WithNow(now func() time.Time) *ReminderService {
	if now != nil {
		s.now = now
	}
	return s
}

// ProcessForClient 为单个学员执行一轮提醒计算与投递。
func (s *ReminderService) ProcessForClient(ctx context.Context, client *db.Client, opts ReminderOptions) (ReminderResult, error) {
	settings, err := s.getOrCreateSettings(client)
	if err != nil {
		return ReminderResult{}, err
	}

	if !settings.RemindersEnabled {
		return ReminderResult{SkippedReason: SkipReasonDisabled}, nil
	}

	loc := s.clientLocation(client, settings)
	localNow := s.now().In(loc)
	today := localNow.Format(sentDateFormat)

	if !opts.BypassQuietHours && withinQuietHours(localNow, settings.QuietHoursStart, settings.QuietHoursEnd) {
		return ReminderResult{SkippedReason: SkipReasonQuietHours}, nil
	}

	var sentToday int64
	if err := s.db.Model(&db.SentReminder{}).
		Where("client_id = ? AND sent_date = ?", client.ID, today).
		Count(&sentToday).Error; err != nil {
		return ReminderResult{}, fmt.Errorf("count sent reminders: %w", err)
	}

	limit := settings.MaxRemindersPerDay
	if limit <= 0 {
		limit = 5
	}
	if int(sentToday) >= limit {
		return ReminderResult{SkippedReason: SkipReasonDailyLimit}, nil
	}

	candidates, err := s.buildCandidates(client, settings, localNow, today)
	if err != nil {
		return ReminderResult{}, err
	}
	if len(candidates) == 0 {
		return ReminderResult{}, nil
	}

	// 只保留今天剩余的配额，优先级顺序在生成阶段已确定
	remaining := limit - int(sentToday)
	if len(candidates) > remaining {
		candidates = candidates[:remaining]
	}

	result := ReminderResult{}
	for _, cand := range candidates {
		outcome, err := s.push.SendToClient(ctx, client.ID, PushMessage{
			Title:    cand.Title,
			Body:     cand.Message,
			Category: cand.Type,
		})
		if err != nil {
			log.Printf("[REMINDER] push to client %d failed: %v", client.ID, err)
			continue
		}
		if outcome.Delivered == 0 {
			continue
		}

		record := db.SentReminder{
			ClientID:         client.ID,
			ReminderType:     cand.Type,
			ReminderCategory: cand.Category,
			Title:            cand.Title,
			Message:          cand.Message,
			SentAt:           s.now(),
			SentDate:         today,
			DeliveryStatus:   "sent",
			RelatedGoalID:    cand.RelatedGoalID,
			RelatedPlanID:    cand.RelatedPlanID,
		}
		if err := s.db.Create(&record).Error; err != nil {
			log.Printf("[REMINDER] record sent reminder for client %d failed: %v", client.ID, err)
			continue
		}
		result.Sent++
	}

	// 有候选却一条都没送达：大概率是学员没有任何有效订阅，给出可区分的原因
	if result.Sent == 0 {
		result.SkippedReason = SkipReasonNoSubscription
	}
	return result, nil
}

// ProcessAll 遍历所有活跃学员，单个学员的失败只记录日志不影响批次。
func (s *ReminderService) ProcessAll(ctx context.Context) ReminderResult {
	var aggregate ReminderResult

	var clients []db.Client
	if err := s.db.Where("is_active = ?", true).Find(&clients).Error; err != nil {
		log.Printf("[REMINDER] load active clients failed: %v", err)
		return aggregate
	}

	for i := range clients {
		result, err := s.ProcessForClient(ctx, &clients[i], ReminderOptions{})
		if err != nil {
			log.Printf("[REMINDER] process client %d failed: %v", clients[i].ID, err)
			continue
		}
		aggregate.Sent += result.Sent
	}

	log.Printf("[REMINDER] cycle done: clients=%d sent=%d", len(clients), aggregate.Sent)
	return aggregate
}

// getOrCreateSettings 惰性创建学员的提醒配置，默认值见模型注释。
func (s *ReminderService) getOrCreateSettings(client *db.Client) (db.ClientReminderSettings, error) {
	var settings db.ClientReminderSettings
	err := s.db.Where("client_id = ?", client.ID).First(&settings).Error
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return settings, fmt.Errorf("load reminder settings: %w", err)
	}

	settings = db.ClientReminderSettings{
		ClientID:                   client.ID,
		RemindersEnabled:           true,
		GoalRemindersEnabled:       true,
		PlanRemindersEnabled:       true,
		InactivityRemindersEnabled: true,
		InactivityThresholdDays:    1,
		QuietHoursStart:            "21:00",
		QuietHoursEnd:              "08:00",
		Timezone:                   client.Timezone,
		MaxRemindersPerDay:         5,
	}
	if err := s.db.Create(&settings).Error; err != nil {
		return settings, fmt.Errorf("create reminder settings: %w", err)
	}
	return settings, nil
}

func (s *ReminderService) clientLocation(client *db.Client, settings db.ClientReminderSettings) *time.Location {
	tz := strings.TrimSpace(settings.Timezone)
	if tz == "" {
		tz = client.Timezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}

// withinQuietHours 判断本地时间是否落在安静时段内，start > end 表示窗口跨午夜。
func withinQuietHours(localNow time.Time, start, end string) bool {
	startMin, okStart := parseClockMinutes(start)
	endMin, okEnd := parseClockMinutes(end)
	if !okStart || !okEnd || startMin == endMin {
		return false
	}

	nowMin := localNow.Hour()*60 + localNow.Minute()
	if startMin < endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	// 跨午夜窗口
	return nowMin >= startMin || nowMin < endMin
}

func parseClockMinutes(clock string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(clock), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// buildCandidates 按固定优先级生成候选提醒：每日打卡 > 不活跃 > 目标 > 计划。
func (s *ReminderService) buildCandidates(client *db.Client, settings db.ClientReminderSettings, localNow time.Time, today string) ([]reminderCandidate, error) {
	candidates := make([]reminderCandidate, 0, 4)

	checkins, err := s.dailyCheckinCandidates(client.ID, localNow, today)
	if err != nil {
		return nil, err
	}
	candidates = append(candidates, checkins...)

	if settings.InactivityRemindersEnabled {
		inactivity, err := s.inactivityCandidates(client, settings, today)
		if err != nil {
			// 活跃度分析失败不应阻断其余类别的提醒
			log.Printf("[REMINDER] inactivity analysis for client %d failed: %v", client.ID, err)
		} else {
			candidates = append(candidates, inactivity...)
		}
	}

	if settings.GoalRemindersEnabled {
		goals, err := s.goalCandidates(client.ID, today)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, goals...)
	}

	if settings.PlanRemindersEnabled {
		plan, err := s.planCandidate(client.ID, localNow, today)
		if err != nil {
			return nil, err
		}
		if plan != nil {
			candidates = append(candidates, *plan)
		}
	}

	return candidates, nil
}

func (s *ReminderService) dailyCheckinCandidates(clientID uint, localNow time.Time, today string) ([]reminderCandidate, error) {
	hour := localNow.Hour()
	candidates := make([]reminderCandidate, 0, 1)

	for _, window := range checkinWindows {
		if hour < window.StartHour || hour >= window.EndHour {
			continue
		}
		sent, err := s.alreadySent(clientID, ReminderTypeDailyCheckin, window.Category, today)
		if err != nil {
			return nil, err
		}
		if sent {
			continue
		}
		text := pickText(checkinTexts[window.Category])
		candidates = append(candidates, reminderCandidate{
			Type:     ReminderTypeDailyCheckin,
			Category: window.Category,
			Title:    text.Title,
			Message:  text.Body,
		})
	}
	return candidates, nil
}

func (s *ReminderService) inactivityCandidates(client *db.Client, settings db.ClientReminderSettings, today string) ([]reminderCandidate, error) {
	analysis, err := s.insights.AnalyzeActivity(client)
	if err != nil {
		return nil, err
	}

	threshold := settings.InactivityThresholdDays
	if threshold < 1 {
		threshold = 1
	}

	type check struct {
		Type      string
		Days      int
		Threshold int
		Text      reminderText
	}
	checks := []check{
		{ReminderTypeInactivityMeal, analysis.DaysSinceMeal, threshold, mealInactivityText(analysis.DaysSinceMeal)},
		{ReminderTypeInactivityWorkout, analysis.DaysSinceWorkout, threshold, workoutInactivityText(analysis.DaysSinceWorkout)},
		// 综合打卡提醒更宽松一档，避免与前两类同日轰炸
		{ReminderTypeInactivityCheckin, analysis.DaysSinceAny, threshold + 1, checkinInactivityText(analysis.DaysSinceAny)},
	}

	candidates := make([]reminderCandidate, 0, len(checks))
	for _, c := range checks {
		if c.Days < c.Threshold {
			continue
		}
		sent, err := s.alreadySent(client.ID, c.Type, "", today)
		if err != nil {
			return nil, err
		}
		if sent {
			continue
		}
		candidates = append(candidates, reminderCandidate{
			Type:     c.Type,
			Category: "inactivity",
			Title:    c.Text.Title,
			Message:  c.Text.Body,
		})
	}
	return candidates, nil
}

func (s *ReminderService) goalCandidates(clientID uint, today string) ([]reminderCandidate, error) {
	var goals []db.Goal
	if err := s.db.Where("client_id = ? AND status = ?", clientID, db.GoalStatusActive).Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("load active goals: %w", err)
	}
	if len(goals) == 0 {
		return nil, nil
	}

	// 一次性取出今天已发送的类型集合，目标数量再多也只查一次
	var sentTypes []string
	if err := s.db.Model(&db.SentReminder{}).
		Where("client_id = ? AND sent_date = ?", clientID, today).
		Distinct().Pluck("reminder_type", &sentTypes).Error; err != nil {
		return nil, fmt.Errorf("load sent reminder types: %w", err)
	}
	sentSet := make(map[string]bool, len(sentTypes))
	for _, t := range sentTypes {
		sentSet[t] = true
	}

	candidates := make([]reminderCandidate, 0, len(goals))
	for i := range goals {
		goal := goals[i]
		reminderType := "goal_" + goal.GoalType
		if sentSet[reminderType] {
			continue
		}
		sentSet[reminderType] = true

		text := goalReminderText(goal)
		goalID := goal.ID
		candidates = append(candidates, reminderCandidate{
			Type:          reminderType,
			Category:      "goal",
			Title:         text.Title,
			Message:       text.Body,
			RelatedGoalID: &goalID,
		})
	}
	return candidates, nil
}

func (s *ReminderService) planCandidate(clientID uint, localNow time.Time, today string) (*reminderCandidate, error) {
	sent, err := s.alreadySent(clientID, ReminderTypePlanNudge, "", today)
	if err != nil {
		return nil, err
	}
	if sent {
		return nil, nil
	}

	var plan db.SharedPlan
	err = s.db.Where("client_id = ? AND status IN ?", clientID, []string{db.PlanStatusActive, db.PlanStatusAssigned}).
		Order("assigned_at DESC").
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest plan: %w", err)
	}

	activity := TodayPlanActivity(plan.Content, localNow.Weekday())
	text := planReminderText(plan.Title, activity)
	planID := plan.ID
	return &reminderCandidate{
		Type:          ReminderTypePlanNudge,
		Category:      "plan",
		Title:         text.Title,
		Message:       text.Body,
		RelatedPlanID: &planID,
	}, nil
}

func (s *ReminderService) alreadySent(clientID uint, reminderType, category, today string) (bool, error) {
	query := s.db.Model(&db.SentReminder{}).
		Where("client_id = ? AND reminder_type = ? AND sent_date = ?", clientID, reminderType, today)
	if category != "" {
		query = query.Where("reminder_category = ?", category)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check sent reminder: %w", err)
	}
	return count > 0, nil
}
