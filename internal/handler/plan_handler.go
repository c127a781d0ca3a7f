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

// PreviewPlan 将计划 Markdown 渲染为消毒后的 HTML，并附带今日安排
func (a *API) PreviewPlan(c *gin.Context) {
	planID, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "计划 ID 不正确")
		return
	}

	var plan db.SharedPlan
	if err := a.db.First(&plan, planID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondError(c, http.StatusNotFound, "计划不存在")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取计划失败")
		return
	}

	html, err := service.RenderPlanHTML(plan.Content)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "渲染计划失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             plan.ID,
		"title":          plan.Title,
		"status":         plan.Status,
		"html":           html,
		"today_activity": service.TodayPlanActivity(plan.Content, time.Now().Weekday()),
	})
}
