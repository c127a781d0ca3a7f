package service

import (
	"strings"
	"testing"
	"time"
)

const weeklyPlanMarkdown = `# 夏季训练计划

## 周一
- 深蹲 5x5
- 硬拉 3x5

## 周二
轻松慢跑 40 分钟，注意心率控制。

## Wednesday
- Upper body push day

## 周四

## 周五
- 间歇冲刺 8 组
`

func TestTodayPlanActivityListSection(t *testing.T) {
	activity := TodayPlanActivity(weeklyPlanMarkdown, time.Monday)
	if activity != "深蹲 5x5" {
		t.Fatalf("expected first list item, got %q", activity)
	}
}

func TestTodayPlanActivityParagraphSection(t *testing.T) {
	activity := TodayPlanActivity(weeklyPlanMarkdown, time.Tuesday)
	if activity != "轻松慢跑 40 分钟，注意心率控制。" {
		t.Fatalf("expected paragraph text, got %q", activity)
	}
}

func TestTodayPlanActivityEnglishHeading(t *testing.T) {
	activity := TodayPlanActivity(weeklyPlanMarkdown, time.Wednesday)
	if activity != "Upper body push day" {
		t.Fatalf("expected english section to match, got %q", activity)
	}
}

func TestTodayPlanActivityEmptySection(t *testing.T) {
	// 周四小节存在但没有内容，下一节属于周五，不应越界取用
	if activity := TodayPlanActivity(weeklyPlanMarkdown, time.Thursday); activity != "" {
		t.Fatalf("empty section should yield empty activity, got %q", activity)
	}
}

func TestTodayPlanActivityMissingSection(t *testing.T) {
	if activity := TodayPlanActivity(weeklyPlanMarkdown, time.Sunday); activity != "" {
		t.Fatalf("missing section should yield empty activity, got %q", activity)
	}
}

func TestTodayPlanActivityTruncatesLongText(t *testing.T) {
	long := "## 周六\n" + strings.Repeat("跑", 100) + "\n"
	activity := TodayPlanActivity(long, time.Saturday)
	if got := len([]rune(activity)); got != maxPlanActivityRunes {
		t.Fatalf("expected %d runes, got %d", maxPlanActivityRunes, got)
	}
}

func TestRenderPlanHTMLSanitizesScripts(t *testing.T) {
	// 原始 HTML 块在渲染阶段即被整体丢弃，块内文字不会进入输出
	html, err := RenderPlanHTML("## 周一\n\n<script>alert(1)</script>\n\n正常内容")
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script") || strings.Contains(html, "alert(1)") {
		t.Fatalf("script block must not reach the output: %q", html)
	}
	if !strings.Contains(html, "<h2") || !strings.Contains(html, "正常内容") {
		t.Fatalf("markdown structure should survive sanitization: %q", html)
	}
}
