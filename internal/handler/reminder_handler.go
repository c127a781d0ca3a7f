package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/coachpulse/internal/db"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type reminderSettingsPayload struct {
	RemindersEnabled           *bool   `json:"reminders_enabled"`
	GoalRemindersEnabled       *bool   `json:"goal_reminders_enabled"`
	PlanRemindersEnabled       *bool   `json:"plan_reminders_enabled"`
	InactivityRemindersEnabled *bool   `json:"inactivity_reminders_enabled"`
	InactivityThresholdDays    *int    `json:"inactivity_threshold_days"`
	QuietHoursStart            *string `json:"quiet_hours_start"`
	QuietHoursEnd              *string `json:"quiet_hours_end"`
	Timezone                   *string `json:"timezone"`
	MaxRemindersPerDay         *int    `json:"max_reminders_per_day"`
}

// GetReminderSettings 返回学员的提醒配置，未初始化时返回默认值
func (a *API) GetReminderSettings(c *gin.Context) {
	clientID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "学员 ID 不正确")
		return
	}

	var settings db.ClientReminderSettings
	if err := a.db.Where("client_id = ?", clientID).First(&settings).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusInternalServerError, "获取提醒配置失败")
			return
		}
		settings = db.ClientReminderSettings{
			ClientID:                   clientID,
			RemindersEnabled:           true,
			GoalRemindersEnabled:       true,
			PlanRemindersEnabled:       true,
			InactivityRemindersEnabled: true,
			InactivityThresholdDays:    1,
			QuietHoursStart:            "21:00",
			QuietHoursEnd:              "08:00",
			MaxRemindersPerDay:         5,
		}
	}

	c.JSON(http.StatusOK, reminderSettingsView(settings))
}

// UpdateReminderSettings 局部更新学员的提醒配置
func (a *API) UpdateReminderSettings(c *gin.Context) {
	clientID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "学员 ID 不正确")
		return
	}

	var client db.Client
	if err := a.db.First(&client, clientID).Error; err != nil {
		respondError(c, http.StatusNotFound, "学员不存在")
		return
	}

	var payload reminderSettingsPayload
	if !bindJSON(c, &payload, "请求格式不正确") {
		return
	}

	var settings db.ClientReminderSettings
	if err := a.db.Where("client_id = ?", clientID).First(&settings).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusInternalServerError, "获取提醒配置失败")
			return
		}
		settings = db.ClientReminderSettings{
			ClientID:                   clientID,
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
	}

	applyReminderSettings(&settings, payload)

	if err := a.db.Save(&settings).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "保存提醒配置失败")
		return
	}
	c.JSON(http.StatusOK, reminderSettingsView(settings))
}

func applyReminderSettings(settings *db.ClientReminderSettings, payload reminderSettingsPayload) {
	if payload.RemindersEnabled != nil {
		settings.RemindersEnabled = *payload.RemindersEnabled
	}
	if payload.GoalRemindersEnabled != nil {
		settings.GoalRemindersEnabled = *payload.GoalRemindersEnabled
	}
	if payload.PlanRemindersEnabled != nil {
		settings.PlanRemindersEnabled = *payload.PlanRemindersEnabled
	}
	if payload.InactivityRemindersEnabled != nil {
		settings.InactivityRemindersEnabled = *payload.InactivityRemindersEnabled
	}
	if payload.InactivityThresholdDays != nil && *payload.InactivityThresholdDays >= 1 {
		settings.InactivityThresholdDays = *payload.InactivityThresholdDays
	}
	if payload.QuietHoursStart != nil {
		settings.QuietHoursStart = strings.TrimSpace(*payload.QuietHoursStart)
	}
	if payload.QuietHoursEnd != nil {
		settings.QuietHoursEnd = strings.TrimSpace(*payload.QuietHoursEnd)
	}
	if payload.Timezone != nil {
		settings.Timezone = strings.TrimSpace(*payload.Timezone)
	}
	if payload.MaxRemindersPerDay != nil && *payload.MaxRemindersPerDay >= 1 {
		settings.MaxRemindersPerDay = *payload.MaxRemindersPerDay
	}
}

func reminderSettingsView(settings db.ClientReminderSettings) gin.H {
	return gin.H{
		"client_id":                    settings.ClientID,
		"reminders_enabled":            settings.RemindersEnabled,
		"goal_reminders_enabled":       settings.GoalRemindersEnabled,
		"plan_reminders_enabled":       settings.PlanRemindersEnabled,
		"inactivity_reminders_enabled": settings.InactivityRemindersEnabled,
		"inactivity_threshold_days":    settings.InactivityThresholdDays,
		"quiet_hours_start":            settings.QuietHoursStart,
		"quiet_hours_end":              settings.QuietHoursEnd,
		"timezone":                     settings.Timezone,
		"max_reminders_per_day":        settings.MaxRemindersPerDay,
	}
}

type pushSubscriptionPayload struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// CreatePushSubscription 注册或刷新学员浏览器的推送订阅
func (a *API) CreatePushSubscription(c *gin.Context) {
	clientID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "学员 ID 不正确")
		return
	}

	var payload pushSubscriptionPayload
	if !bindJSON(c, &payload, "请求格式不正确") {
		return
	}
	if strings.TrimSpace(payload.Endpoint) == "" || payload.P256dh == "" || payload.Auth == "" {
		respondError(c, http.StatusBadRequest, "订阅信息不完整")
		return
	}

	subscription := db.PushSubscription{
		ClientID: clientID,
		Endpoint: strings.TrimSpace(payload.Endpoint),
		P256dh:   payload.P256dh,
		Auth:     payload.Auth,
	}
	// 同一端点重复注册时刷新密钥即可
	if err := a.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"client_id", "p256dh", "auth", "updated_at"}),
	}).Create(&subscription).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "保存订阅失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": subscription.ID})
}

// DeletePushSubscription 注销一条推送订阅
func (a *API) DeletePushSubscription(c *gin.Context) {
	subscriptionID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "订阅 ID 不正确")
		return
	}

	if err := a.db.Delete(&db.PushSubscription{}, subscriptionID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "删除订阅失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
