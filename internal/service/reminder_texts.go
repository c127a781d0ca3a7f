package service

import (
	"fmt"
	"math/rand"

	"github.com/coachpulse/internal/db"
)

// reminderText 是一组可直接推送的标题与正文。
type reminderText struct {
	Title string
	Body  string
}

// 每个进餐时段准备多条文案，随机挑选避免学员每天收到同一句话。
var checkinTexts = map[string][]reminderText{
	"breakfast": {
		{Title: "早餐记录", Body: "早上好！记得拍下你的早餐，随手记录一下～"},
		{Title: "早安打卡", Body: "新的一天开始啦，吃了什么早餐？发给教练看看吧。"},
	},
	"lunch": {
		{Title: "午餐记录", Body: "午饭时间到，别忘了记录这一餐哦。"},
		{Title: "午间打卡", Body: "吃午饭了吗？花十秒记录一下，教练在关注你的进度。"},
	},
	"dinner": {
		{Title: "晚餐记录", Body: "晚餐吃点什么？记录下来，今天就完整啦。"},
		{Title: "晚间打卡", Body: "一天快结束了，补上晚餐记录，顺便写写今天的状态吧。"},
	},
}

func pickText(variants []reminderText) reminderText {
	if len(variants) == 0 {
		return reminderText{}
	}
	return variants[rand.Intn(len(variants))]
}

func mealInactivityText(days int) reminderText {
	return reminderText{
		Title: "好久没看到你的饮食记录了",
		Body:  fmt.Sprintf("已经 %d 天没有饮食记录了，随手拍张照片发上来吧。", days),
	}
}

func workoutInactivityText(days int) reminderText {
	return reminderText{
		Title: "训练还在继续吗？",
		Body:  fmt.Sprintf("距离上次训练记录已经 %d 天了，哪怕散个步也值得记一笔。", days),
	}
}

func checkinInactivityText(days int) reminderText {
	return reminderText{
		Title: "教练想了解你的近况",
		Body:  fmt.Sprintf("有 %d 天没有任何记录了，花一分钟更新一下状态吧。", days),
	}
}

// goalReminderText 按目标类型给出对应的鼓励文案。
func goalReminderText(goal db.Goal) reminderText {
	switch {
	case goal.IsWorkoutType():
		return reminderText{
			Title: "目标进行中",
			Body:  fmt.Sprintf("「%s」还在等你，今天安排一次训练吧！", goal.Title),
		}
	case goal.IsNutritionType():
		return reminderText{
			Title: "目标进行中",
			Body:  fmt.Sprintf("为了「%s」，记得记录今天的饮食。", goal.Title),
		}
	default:
		return reminderText{
			Title: "目标进行中",
			Body:  fmt.Sprintf("别忘了你的目标「%s」，今天也前进一小步。", goal.Title),
		}
	}
}

func planReminderText(planTitle, activity string) reminderText {
	if activity != "" {
		return reminderText{
			Title: "今日计划",
			Body:  fmt.Sprintf("今天的安排：%s。完成后记得打卡！", activity),
		}
	}
	return reminderText{
		Title: "今日计划",
		Body:  fmt.Sprintf("看看你的计划「%s」，今天该做点什么？", planTitle),
	}
}
