// Package scheduler 将后台任务包装为可显式启停的间隔调度器。
// 进程内的两个调度器（洞察检测、提醒推送）各自独立运行；本服务假定单实例部署，
// 多实例下会重复处理，需由外部保证只有一个进程在跑。
package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Scheduler 以固定间隔执行任务，启动后先在 warmup 延迟处做一次预热运行。
// Start/Stop 均幂等；单个任务实例不会并发重入（慢周期只会推迟下一次触发）。
type Scheduler struct {
	name     string
	interval time.Duration
	warmup   time.Duration
	task     func()

	mu      sync.Mutex
	runner  gocron.Scheduler
	running bool
}

// New 构造调度器。interval 必须为正；warmup 为首次运行相对启动时刻的延迟。
func New(name string, interval, warmup time.Duration, task func()) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		warmup:   warmup,
		task:     task,
	}
}

// IsRunning 报告调度器是否处于运行状态。
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start 启动调度器。重复调用只记录警告并直接返回。
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		log.Printf("[SCHEDULER] %s already running, ignoring start", s.name)
		return nil
	}

	runner, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = runner.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.runOnce),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartDateTime(time.Now().Add(s.warmup))),
	)
	if err != nil {
		_ = runner.Shutdown()
		return err
	}

	runner.Start()
	s.runner = runner
	s.running = true
	log.Printf("[SCHEDULER] %s started: interval=%s warmup=%s", s.name, s.interval, s.warmup)
	return nil
}

// Stop 关闭调度器。未运行时为 no-op。
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	if err := s.runner.Shutdown(); err != nil {
		log.Printf("[SCHEDULER] %s shutdown error: %v", s.name, err)
	}
	s.runner = nil
	s.running = false
	log.Printf("[SCHEDULER] %s stopped", s.name)
}

// runOnce 执行一轮任务，panic 只中断本轮并记录日志，不影响后续触发。
func (s *Scheduler) runOnce() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[SCHEDULER] %s cycle panicked: %v", s.name, r)
		}
	}()

	started := time.Now()
	s.task()
	log.Printf("[SCHEDULER] %s cycle finished in %s", s.name, time.Since(started))
}
