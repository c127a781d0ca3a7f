package main

import (
	"fmt"
	"log"
	"time"

	"github.com/coachpulse/internal/config"
	"github.com/coachpulse/internal/db"
	"golang.org/x/crypto/bcrypt"
)

// 测试数据生成器：往本地数据库写入一名教练、两名学员以及目标、计划和历史事件，
// 方便在没有真实流量的情况下调试洞察检测与提醒推送。
func main() {
	cfg := config.Load()
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatal("数据库初始化失败:", err)
	}

	fmt.Println("开始生成测试数据...")

	coach := createDemoCoach()
	active := createDemoClient(coach.ID, "陈小婷", "Asia/Shanghai", 45)
	quiet := createDemoClient(coach.ID, "刘大壮", "UTC", 30)

	createDemoGoals(active.ID, quiet.ID)
	createDemoPlan(coach.ID, active.ID)
	createDemoEvents(active.ID, quiet.ID)

	fmt.Println("测试数据生成完成。")
	fmt.Println("登录账号: demo / demo123456")
}

func createDemoCoach() *db.Coach {
	var existing db.Coach
	if err := db.DB.Where("username = ?", "demo").First(&existing).Error; err == nil {
		fmt.Println("教练账号已存在，跳过创建")
		return &existing
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("demo123456"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("密码加密失败:", err)
	}
	coach := &db.Coach{Username: "demo", Password: string(hashed), DisplayName: "演示教练"}
	if err := db.DB.Create(coach).Error; err != nil {
		log.Fatal("创建教练失败:", err)
	}
	fmt.Println("已创建教练: demo")
	return coach
}

func createDemoClient(coachID uint, name, timezone string, joinedDaysAgo int) *db.Client {
	var existing db.Client
	if err := db.DB.Where("coach_id = ? AND name = ?", coachID, name).First(&existing).Error; err == nil {
		return &existing
	}

	client := &db.Client{
		CoachID:  coachID,
		Name:     name,
		Timezone: timezone,
		JoinedAt: time.Now().AddDate(0, 0, -joinedDaysAgo),
	}
	if err := db.DB.Create(client).Error; err != nil {
		log.Fatal("创建学员失败:", err)
	}
	fmt.Printf("已创建学员: %s（%s）\n", name, timezone)
	return client
}

func createDemoGoals(activeID, quietID uint) {
	goals := []db.Goal{
		{ClientID: activeID, Title: "三个月减重 5kg", GoalType: "weight_loss", Status: db.GoalStatusActive},
		{ClientID: activeID, Title: "每周训练四次", GoalType: "fitness", Status: db.GoalStatusActive},
		{ClientID: quietID, Title: "养成记录饮食的习惯", GoalType: "nutrition", Status: db.GoalStatusActive},
	}
	for i := range goals {
		if err := db.DB.Where("client_id = ? AND title = ?", goals[i].ClientID, goals[i].Title).
			FirstOrCreate(&goals[i]).Error; err != nil {
			log.Fatal("创建目标失败:", err)
		}
	}
	fmt.Printf("已创建目标 %d 条\n", len(goals))
}

func createDemoPlan(coachID, clientID uint) {
	plan := db.SharedPlan{
		ClientID: clientID,
		CoachID:  coachID,
		Title:    "四周基础力量计划",
		Content: `# 四周基础力量计划

## 周一
- 深蹲 5x5
- 平板卧推 5x5

## 周三
- 硬拉 3x5
- 引体向上 3 组力竭

## 周五
- 肩推 5x5
- 间歇冲刺 6 组

## 周日
轻松有氧 30 分钟，做好下周的准备。`,
		Status:     db.PlanStatusActive,
		AssignedAt: time.Now().AddDate(0, 0, -7),
	}
	if err := db.DB.Where("client_id = ? AND title = ?", clientID, plan.Title).
		FirstOrCreate(&plan).Error; err != nil {
		log.Fatal("创建计划失败:", err)
	}
	fmt.Println("已创建训练计划")
}

// createDemoEvents 给活跃学员铺最近一周的记录，安静学员只留一周前的，
// 让洞察检测一跑就能出触发器。
func createDemoEvents(activeID, quietID uint) {
	now := time.Now()
	events := []db.ProgressEvent{
		{ClientID: activeID, EventType: db.EventTypeWeight, DateForMetric: now.AddDate(0, 0, -1),
			Data: db.EventPayload{"value": 62.4, "unit": "kg", "value_kg": 62.4}, Confidence: 0.95},
		{ClientID: activeID, EventType: db.EventTypeNutrition, DateForMetric: now.AddDate(0, 0, -1),
			Data: db.EventPayload{"description": "鸡胸肉沙拉", "meal_type": "lunch", "calories": 480.0}, Confidence: 0.85},
		{ClientID: activeID, EventType: db.EventTypeWorkout, DateForMetric: now.AddDate(0, 0, -2),
			Data: db.EventPayload{"activity": "深蹲训练", "duration_min": 50}, Confidence: 0.9},
		{ClientID: quietID, EventType: db.EventTypeNutrition, DateForMetric: now.AddDate(0, 0, -8),
			Data: db.EventPayload{"description": "外卖盖饭", "meal_type": "dinner", "calories_est": 750.0,
				"estimated_fields": []string{"calories"}}, Confidence: 0.6, NeedsReview: true},
		{ClientID: quietID, EventType: db.EventTypeMood, DateForMetric: now.AddDate(0, 0, -8),
			Data: db.EventPayload{"rating": 3}, Confidence: 0.8},
	}

	created := 0
	for i := range events {
		var count int64
		db.DB.Model(&db.ProgressEvent{}).
			Where("client_id = ? AND event_type = ? AND date_for_metric = ?",
				events[i].ClientID, events[i].EventType, events[i].DateForMetric).
			Count(&count)
		if count > 0 {
			continue
		}
		if err := db.DB.Create(&events[i]).Error; err != nil {
			log.Fatal("创建进度事件失败:", err)
		}
		created++
	}
	fmt.Printf("已创建进度事件 %d 条\n", created)
}
