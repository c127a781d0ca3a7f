package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/coachpulse/internal/db"
	"github.com/coachpulse/internal/locale"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ListTriggers 返回学员的互动触发器，默认只看未解决的
func (a *API) ListTriggers(c *gin.Context) {
	clientID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "学员 ID 不正确")
		return
	}

	query := a.db.Where("client_id = ?", clientID)
	if c.Query("all") == "" {
		query = query.Where("is_resolved = ?", false)
	}

	var triggers []db.EngagementTrigger
	if err := query.Order("detected_at DESC").Find(&triggers).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "获取触发器失败")
		return
	}

	language := requestLanguage(c)
	items := make([]gin.H, 0, len(triggers))
	for _, trigger := range triggers {
		items = append(items, gin.H{
			"id":                 trigger.ID,
			"client_id":          trigger.ClientID,
			"type":               trigger.Type,
			"severity":           trigger.Severity,
			"reason":             locale.Render(language, trigger.ReasonKey, trigger.ReasonParams),
			"recommended_action": locale.Render(language, trigger.ActionKey, trigger.ReasonParams),
			"is_resolved":        trigger.IsResolved,
			"detected_at":        trigger.DetectedAt,
			"resolved_at":        trigger.ResolvedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// ResolveTrigger 由教练手动关闭一条触发器
func (a *API) ResolveTrigger(c *gin.Context) {
	triggerID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "触发器 ID 不正确")
		return
	}

	var trigger db.EngagementTrigger
	if err := a.db.First(&trigger, triggerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "触发器不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取触发器失败")
		return
	}

	if !trigger.IsResolved {
		now := time.Now()
		trigger.IsResolved = true
		trigger.ResolvedAt = &now
		if err := a.db.Save(&trigger).Error; err != nil {
			respondError(c, http.StatusInternalServerError, "更新触发器失败")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"id": trigger.ID, "is_resolved": true})
}

// ListProgressEvents 返回学员的进度事件，可按类型过滤
func (a *API) ListProgressEvents(c *gin.Context) {
	clientID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "学员 ID 不正确")
		return
	}

	query := a.db.Where("client_id = ?", clientID)
	if eventType := c.Query("type"); eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}

	var events []db.ProgressEvent
	if err := query.Order("date_for_metric DESC").Limit(200).Find(&events).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "获取进度事件失败")
		return
	}

	items := make([]gin.H, 0, len(events))
	for _, event := range events {
		items = append(items, gin.H{
			"id":              event.ID,
			"smart_log_id":    event.SmartLogID,
			"event_type":      event.EventType,
			"date_for_metric": event.DateForMetric.Format(localDateFormat),
			"data":            event.Data,
			"confidence":      event.Confidence,
			"needs_review":    event.NeedsReview,
		})
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// RunInsightDetection 管理端手动触发一轮洞察检测
func (a *API) RunInsightDetection(c *gin.Context) {
	result := a.insights.DetectAllClients()
	c.JSON(http.StatusOK, gin.H{
		"created":   result.Created,
		"escalated": result.Escalated,
		"resolved":  result.Resolved,
	})
}

// RunReminderDispatch 管理端手动触发一轮提醒推送
func (a *API) RunReminderDispatch(c *gin.Context) {
	result := a.reminders.ProcessAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"sent": result.Sent})
}
