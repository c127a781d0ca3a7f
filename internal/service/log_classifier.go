package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/coachpulse/internal/db"
)

const (
	defaultOpenAIVisionModel   = "gpt-4o-mini"
	defaultDeepSeekVisionModel = "deepseek-chat"
	defaultClassifyMaxTokens   = 400
	defaultClassifyTemperature = 0.1
	defaultExtractMaxTokens    = 1200
	defaultExtractTemperature  = 0.1
	maxLogTextRuneCount        = 8000
)

// ErrClassificationEmpty 表示模型未返回可解析的分类内容。
var ErrClassificationEmpty = errors.New("ai classification returned empty content")

// ClassifyInput 描述一次日志粗分类所需的上下文。
type ClassifyInput struct {
	Text      string
	ImageURLs []string
}

// ExtractInput 描述结构化提取所需的上下文，Classification 用于缩小提取范围。
type ExtractInput struct {
	Text           string
	ImageURLs      []string
	Classification db.AIClassification
}

// LogClassifier 定义智能日志的两阶段解析能力，便于在处理器中注入不同实现。
type LogClassifier interface {
	Classify(ctx context.Context, input ClassifyInput) (db.AIClassification, error)
	Extract(ctx context.Context, input ExtractInput) (db.AIParsedData, error)
}

// AILogClassifier 基于多模态大模型接口实现日志分类与提取。
type AILogClassifier struct {
	client *aiVisionClient
}

// NewAILogClassifier 构造默认的 AILogClassifier。
func NewAILogClassifier(settings *SystemSettingService) *AILogClassifier {
	return &AILogClassifier{
		client: newAIVisionClient(settings, defaultOpenAIVisionModel, defaultDeepSeekVisionModel),
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *AILogClassifier) SetHTTPClient(client httpDoer) {
	s.client.SetHTTPClient(client)
}

// SetOpenAIBaseURL 覆盖默认的 OpenAI API 地址。
func (s *AILogClassifier) SetOpenAIBaseURL(base string) {
	s.client.SetOpenAIBaseURL(base)
}

// SetDeepSeekBaseURL 覆盖默认的 DeepSeek API 地址。
func (s *AILogClassifier) SetDeepSeekBaseURL(base string) {
	s.client.SetDeepSeekBaseURL(base)
}

// SetOpenAIModel 指定 OpenAI 解析所使用的模型名称。
func (s *AILogClassifier) SetOpenAIModel(model string) {
	s.client.SetOpenAIModel(model)
}

// SetDeepSeekModel 指定 DeepSeek 解析所使用的模型名称。
func (s *AILogClassifier) SetDeepSeekModel(model string) {
	s.client.SetDeepSeekModel(model)
}

const classifySystemPrompt = `你是健身教练应用的日志分析助手。学员会提交自由文本和照片来记录饮食、训练、体重、步数、睡眠与情绪。
请判断这条记录涉及哪些数据类别，只输出 JSON 对象，字段如下：
{"detected_event_types":["weight","nutrition","workout","steps","sleep","checkin_mood","note","other" 中的若干项],
"has_weight":bool,"has_nutrition":bool,"has_workout":bool,"has_steps":bool,"has_sleep":bool,"has_mood":bool,
"overall_confidence":0 到 1 之间的小数}
不要输出除 JSON 以外的任何内容。`

// Classify 调用粗分类阶段，返回结构化类别判断。
func (s *AILogClassifier) Classify(ctx context.Context, input ClassifyInput) (db.AIClassification, error) {
	text := truncateRunes(strings.TrimSpace(input.Text), maxLogTextRuneCount)
	logAIExchange("CLASSIFY", "prompt", text)

	result, err := s.client.call(ctx, aiVisionRequest{
		SystemPrompt: classifySystemPrompt,
		UserText:     buildLogPrompt(text, len(input.ImageURLs)),
		ImageURLs:    input.ImageURLs,
		MaxTokens:    defaultClassifyMaxTokens,
		Temperature:  defaultClassifyTemperature,
	})
	if err != nil {
		return db.AIClassification{}, err
	}

	logAIExchange("CLASSIFY", "response", result.Content)

	payload := stripJSONFence(result.Content)
	if payload == "" {
		return db.AIClassification{}, ErrClassificationEmpty
	}

	var classification db.AIClassification
	if err := json.Unmarshal([]byte(payload), &classification); err != nil {
		return db.AIClassification{}, fmt.Errorf("解析分类结果失败: %w", err)
	}

	classification.OverallConfidence = clamp01(classification.OverallConfidence)
	return classification, nil
}

const extractSystemPrompt = `你是健身教练应用的数据提取助手。基于学员的记录与已判定的类别，提取结构化数值。
只输出 JSON 对象，仅包含确实存在的类别字段：
{"nutrition":{"description":string,"meal_type":"breakfast|lunch|dinner|snack","calories":number,"calories_est":number,
"protein_g":number,"protein_g_est":number,"carbs_g":number,"carbs_g_est":number,"fat_g":number,"fat_g_est":number,"confidence":number},
"workout":{"activity":string,"duration_min":number,"intensity":"low|medium|high","calories_burned":number,"confidence":number},
"weight":{"value":number,"unit":"kg|lbs","confidence":number},
"steps":{"count":number,"confidence":number},
"sleep":{"hours":number,"quality":string,"confidence":number},
"mood":{"rating":1 到 5 的整数,"note":string,"confidence":number}}
学员明确写出的数值放入无后缀字段，你估算的数值放入 _est 字段。不要输出除 JSON 以外的任何内容。`

// Extract 调用结构化提取阶段，返回各类别子记录。
func (s *AILogClassifier) Extract(ctx context.Context, input ExtractInput) (db.AIParsedData, error) {
	text := truncateRunes(strings.TrimSpace(input.Text), maxLogTextRuneCount)

	categories, err := json.Marshal(input.Classification)
	if err != nil {
		return db.AIParsedData{}, fmt.Errorf("构造提取上下文失败: %w", err)
	}

	userPrompt := buildLogPrompt(text, len(input.ImageURLs)) + "\n\n已判定的类别：\n" + string(categories)
	logAIExchange("EXTRACT", "prompt", userPrompt)

	result, err := s.client.call(ctx, aiVisionRequest{
		SystemPrompt: extractSystemPrompt,
		UserText:     userPrompt,
		ImageURLs:    input.ImageURLs,
		MaxTokens:    defaultExtractMaxTokens,
		Temperature:  defaultExtractTemperature,
	})
	if err != nil {
		return db.AIParsedData{}, err
	}

	logAIExchange("EXTRACT", "response", result.Content)

	payload := stripJSONFence(result.Content)
	if payload == "" {
		return db.AIParsedData{}, nil
	}

	var parsed db.AIParsedData
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return db.AIParsedData{}, fmt.Errorf("解析提取结果失败: %w", err)
	}

	return parsed, nil
}

func buildLogPrompt(text string, imageCount int) string {
	var builder strings.Builder
	builder.WriteString("学员记录：\n")
	if text != "" {
		builder.WriteString(text)
	} else {
		builder.WriteString("（无文字，仅图片）")
	}
	if imageCount > 0 {
		builder.WriteString(fmt.Sprintf("\n\n附带 %d 张图片。", imageCount))
	}
	return builder.String()
}

// stripJSONFence 去掉模型偶尔包裹的 ```json 代码栅栏。
func stripJSONFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	if !strings.HasPrefix(trimmed, "{") {
		return ""
	}
	return trimmed
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
