package service

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const maxPlanActivityRunes = 60

var planMarkdown = goldmark.New()

var planHTMLPolicy = bluemonday.UGCPolicy()

// RenderPlanHTML 将计划 Markdown 渲染为经过消毒的 HTML，供预览接口使用。
func RenderPlanHTML(content string) (string, error) {
	var buf bytes.Buffer
	if err := planMarkdown.Convert([]byte(content), &buf); err != nil {
		return "", fmt.Errorf("render plan markdown: %w", err)
	}
	return planHTMLPolicy.Sanitize(buf.String()), nil
}

var weekdayAliases = map[time.Weekday][]string{
	time.Monday:    {"周一", "星期一", "Monday"},
	time.Tuesday:   {"周二", "星期二", "Tuesday"},
	time.Wednesday: {"周三", "星期三", "Wednesday"},
	time.Thursday:  {"周四", "星期四", "Thursday"},
	time.Friday:    {"周五", "星期五", "Friday"},
	time.Saturday:  {"周六", "星期六", "Saturday"},
	time.Sunday:    {"周日", "星期日", "Sunday"},
}

// TodayPlanActivity 在计划 Markdown 中查找今天星期对应的小节，返回其第一段安排。
// 找不到匹配小节时返回空串，调用方回退到通用提醒文案。
func TodayPlanActivity(content string, weekday time.Weekday) string {
	source := []byte(content)
	doc := planMarkdown.Parser().Parse(text.NewReader(source))

	aliases := weekdayAliases[weekday]

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		heading, ok := node.(*ast.Heading)
		if !ok {
			continue
		}
		title := nodeText(heading, source)
		if !containsAny(title, aliases) {
			continue
		}

		// 取小节内的第一个段落或列表项作为今日安排
		for sibling := heading.NextSibling(); sibling != nil; sibling = sibling.NextSibling() {
			if next, isHeading := sibling.(*ast.Heading); isHeading && next.Level <= heading.Level {
				break
			}
			if activity := firstBlockText(sibling, source); activity != "" {
				return truncateRunes(activity, maxPlanActivityRunes)
			}
		}
		break
	}

	return ""
}

func firstBlockText(node ast.Node, source []byte) string {
	switch block := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return strings.TrimSpace(nodeText(block, source))
	case *ast.List:
		if item := block.FirstChild(); item != nil {
			return strings.TrimSpace(nodeText(item, source))
		}
	}
	return ""
}

func nodeText(node ast.Node, source []byte) string {
	var builder strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if textNode, ok := n.(*ast.Text); ok {
			builder.Write(textNode.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return builder.String()
}

func containsAny(s string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
