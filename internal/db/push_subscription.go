package db

import "gorm.io/gorm"

// PushSubscription 保存学员浏览器的 Web Push 订阅
// Endpoint 全局唯一；推送返回 404/410 时由发送方清理对应记录
type PushSubscription struct {
	gorm.Model
	ClientID uint   `gorm:"index"`
	Endpoint string `gorm:"size:500;uniqueIndex;not null"`
	P256dh   string `gorm:"not null"`
	Auth     string `gorm:"not null"`
}
