package locale

import (
	"fmt"
	"strings"
)

// 触发器的理由与建议动作以模板键存储，展示时在这里渲染成自然语言。
var catalogZH = map[string]string{
	"trigger.inactivity.reason":        "学员已经 {days} 天没有任何记录",
	"trigger.inactivity.action":        "尽快主动联系学员，了解最近的状态",
	"trigger.nutrition_concern.reason": "学员已经 {days} 天没有饮食记录",
	"trigger.nutrition_concern.action": "问问学员最近的饮食情况，必要时调整方案",
	"trigger.missed_workout.reason":    "学员已经 {days} 天没有训练记录",
	"trigger.missed_workout.action":    "和学员确认训练安排，帮他降低重启门槛",
}

var catalogEN = map[string]string{
	"trigger.inactivity.reason":        "No activity logged for {days} days",
	"trigger.inactivity.action":        "Reach out to the client soon to check in",
	"trigger.nutrition_concern.reason": "No meals logged for {days} days",
	"trigger.nutrition_concern.action": "Ask about recent eating habits and adjust the plan if needed",
	"trigger.missed_workout.reason":    "No workouts logged for {days} days",
	"trigger.missed_workout.action":    "Confirm the training schedule and lower the barrier to restart",
}

// Render 渲染模板键，{name} 占位符用 params 中的同名值替换。
// 键缺失时原样返回键本身，方便在日志中发现漏配的文案。
func Render(language, key string, params map[string]any) string {
	catalog := catalogZH
	if NormalizeLanguage(language) == LanguageEnglish {
		catalog = catalogEN
	}

	template, ok := catalog[key]
	if !ok {
		return key
	}

	rendered := template
	for name, value := range params {
		rendered = strings.ReplaceAll(rendered, "{"+name+"}", formatParam(value))
	}
	return rendered
}

func formatParam(value any) string {
	// JSON 反序列化会把整数还原成 float64，避免出现 8.000000 这类展示
	if f, ok := value.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprint(value)
}
