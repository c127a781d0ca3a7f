package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/coachpulse/internal/db"
	"github.com/coachpulse/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const localDateFormat = "2006-01-02"

type smartLogPayload struct {
	RawText   string   `json:"raw_text"`
	MediaURLs []string `json:"media_urls"`
	LocalDate string   `json:"local_date"`
}

// CreateSmartLog 接收学员提交的新日志并内联执行解析流水线
func (a *API) CreateSmartLog(c *gin.Context) {
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

	var payload smartLogPayload
	if !bindJSON(c, &payload, "请求格式不正确") {
		return
	}

	localDate, ok := resolveLocalDate(payload.LocalDate, &client)
	if !ok {
		respondError(c, http.StatusBadRequest, "日期格式不正确")
		return
	}

	entry := db.SmartLog{
		ClientID:         client.ID,
		RawText:          payload.RawText,
		MediaURLs:        payload.MediaURLs,
		LocalDate:        localDate,
		ProcessingStatus: db.SmartLogStatusPending,
	}
	if err := a.db.Create(&entry).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "保存日志失败")
		return
	}

	result, _ := a.processor.Process(c.Request.Context(), entry.ID)
	respondSmartLog(c, a.db, entry.ID, result)
}

// UpdateSmartLog 处理学员编辑：重置解析状态、清理旧结果后重新处理
func (a *API) UpdateSmartLog(c *gin.Context) {
	logID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "日志 ID 不正确")
		return
	}

	var entry db.SmartLog
	if err := a.db.First(&entry, logID).Error; err != nil {
		respondError(c, http.StatusNotFound, "日志不存在")
		return
	}

	var payload smartLogPayload
	if !bindJSON(c, &payload, "请求格式不正确") {
		return
	}

	entry.RawText = payload.RawText
	entry.MediaURLs = payload.MediaURLs
	if payload.LocalDate != "" {
		var client db.Client
		if err := a.db.First(&client, entry.ClientID).Error; err == nil {
			if localDate, ok := resolveLocalDate(payload.LocalDate, &client); ok {
				entry.LocalDate = localDate
			}
		}
	}
	if err := a.db.Save(&entry).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "更新日志失败")
		return
	}

	if err := a.processor.ResetForReanalysis(entry.ID); err != nil {
		if errors.Is(err, service.ErrSmartLogNotFound) {
			respondError(c, http.StatusNotFound, "日志不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "重置日志状态失败")
		return
	}

	result, _ := a.processor.Process(c.Request.Context(), entry.ID)
	respondSmartLog(c, a.db, entry.ID, result)
}

// GetSmartLog 返回单条日志及其解析状态
func (a *API) GetSmartLog(c *gin.Context) {
	logID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "日志 ID 不正确")
		return
	}

	var entry db.SmartLog
	if err := a.db.First(&entry, logID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "日志不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取日志失败")
		return
	}

	c.JSON(http.StatusOK, smartLogView(entry))
}

// ListSmartLogs 返回学员的日志列表，按创建时间倒序
func (a *API) ListSmartLogs(c *gin.Context) {
	clientID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "学员 ID 不正确")
		return
	}

	var entries []db.SmartLog
	if err := a.db.Where("client_id = ?", clientID).
		Order("created_at DESC").Limit(100).Find(&entries).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "获取日志列表失败")
		return
	}

	items := make([]gin.H, 0, len(entries))
	for _, entry := range entries {
		items = append(items, smartLogView(entry))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func resolveLocalDate(raw string, client *db.Client) (time.Time, bool) {
	if raw == "" {
		now := time.Now().In(client.Location())
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), true
	}
	parsed, err := time.Parse(localDateFormat, raw)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

func respondSmartLog(c *gin.Context, gdb *gorm.DB, logID uint, result service.ProcessResult) {
	var entry db.SmartLog
	if err := gdb.First(&entry, logID).Error; err != nil {
		respondError(c, http.StatusInternalServerError, "获取日志失败")
		return
	}

	view := smartLogView(entry)
	view["events_created"] = result.EventsCreated
	c.JSON(http.StatusOK, view)
}

func smartLogView(entry db.SmartLog) gin.H {
	return gin.H{
		"id":                entry.ID,
		"client_id":         entry.ClientID,
		"raw_text":          entry.RawText,
		"media_urls":        entry.MediaURLs,
		"local_date":        entry.LocalDate.Format(localDateFormat),
		"processing_status": entry.ProcessingStatus,
		"ai_classification": entry.AIClassification,
		"ai_parsed_data":    entry.AIParsedData,
		"processing_error":  entry.ProcessingError,
		"created_at":        entry.CreatedAt,
	}
}
