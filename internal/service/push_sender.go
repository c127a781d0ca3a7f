package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/coachpulse/internal/db"
	"gorm.io/gorm"
)

// PushMessage 是推送给学员浏览器的通知内容。
type PushMessage struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	Category string `json:"tag,omitempty"`
}

// DeliveryOutcome 汇总一次推送在学员全部订阅上的投递结果。
type DeliveryOutcome struct {
	Attempted int
	Delivered int
	Cleaned   int
}

// PushSender 定义面向学员的推送能力，便于在调度器中注入不同实现。
type PushSender interface {
	SendToClient(ctx context.Context, clientID uint, msg PushMessage) (DeliveryOutcome, error)
}

// WebPushSender 通过 Web Push 协议向学员的全部订阅投递通知。
// 投递语义为至少一次：端点返回 404/410 时清理订阅，其余失败仅记录日志。
type WebPushSender struct {
	db      *gorm.DB
	options webpush.Options
}

// NewWebPushSender 构造 WebPushSender，VAPID 密钥对来自进程配置。
func NewWebPushSender(gdb *gorm.DB, vapidPublicKey, vapidPrivateKey, subscriber string) *WebPushSender {
	return &WebPushSender{
		db: gdb,
		options: webpush.Options{
			Subscriber:      subscriber,
			VAPIDPublicKey:  vapidPublicKey,
			VAPIDPrivateKey: vapidPrivateKey,
			TTL:             3600,
		},
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *WebPushSender) SetHTTPClient(client httpDoer) {
	s.options.HTTPClient = client
}

// SendToClient 向学员的每个订阅各尝试一次投递。
func (s *WebPushSender) SendToClient(ctx context.Context, clientID uint, msg PushMessage) (DeliveryOutcome, error) {
	var outcome DeliveryOutcome

	var subscriptions []db.PushSubscription
	if err := s.db.Where("client_id = ?", clientID).Find(&subscriptions).Error; err != nil {
		return outcome, fmt.Errorf("load push subscriptions: %w", err)
	}

	if len(subscriptions) == 0 {
		return outcome, nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return outcome, fmt.Errorf("encode push payload: %w", err)
	}

	for i := range subscriptions {
		sub := &subscriptions[i]
		outcome.Attempted++

		resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256dh,
				Auth:   sub.Auth,
			},
		}, &s.options)
		if err != nil {
			log.Printf("[PUSH] send to subscription %d failed: %v", sub.ID, err)
			continue
		}

		status := resp.StatusCode
		resp.Body.Close()

		switch {
		case status == http.StatusNotFound || status == http.StatusGone:
			// 订阅已失效，清理后继续处理剩余订阅
			if err := s.db.Delete(&db.PushSubscription{}, sub.ID).Error; err != nil {
				log.Printf("[PUSH] cleanup subscription %d failed: %v", sub.ID, err)
			} else {
				outcome.Cleaned++
			}
		case status >= 200 && status < 300:
			outcome.Delivered++
		default:
			log.Printf("[PUSH] subscription %d returned status %d", sub.ID, status)
		}
	}

	return outcome, nil
}
