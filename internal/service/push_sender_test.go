package service

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"testing"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/coachpulse/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupPushTest(t *testing.T) (*gorm.DB, *WebPushSender, *fakeHTTPClient, func()) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&db.PushSubscription{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate vapid keys: %v", err)
	}
	sender := NewWebPushSender(gdb, publicKey, privateKey, "mailto:test@coachpulse.app")
	fake := &fakeHTTPClient{}
	sender.SetHTTPClient(fake)

	cleanup := func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	return gdb, sender, fake, cleanup
}

// createSubscription 生成一条带真实 P-256 公钥的订阅，保证载荷加密能够成功。
func createSubscription(t *testing.T, gdb *gorm.DB, clientID uint, endpoint string) *db.PushSubscription {
	t.Helper()

	key, err := ecdh.P256().GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate subscription key: %v", err)
	}
	authSecret := make([]byte, 16)
	if _, err := rand.Read(authSecret); err != nil {
		t.Fatalf("generate auth secret: %v", err)
	}

	sub := &db.PushSubscription{
		ClientID: clientID,
		Endpoint: endpoint,
		P256dh:   base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		Auth:     base64.RawURLEncoding.EncodeToString(authSecret),
	}
	if err := gdb.Create(sub).Error; err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	return sub
}

func pushStatusResponse(status int) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
	}
}

func TestSendToClientWithoutSubscriptions(t *testing.T) {
	_, sender, fake, cleanup := setupPushTest(t)
	defer cleanup()

	outcome, err := sender.SendToClient(context.Background(), 1, PushMessage{Title: "你好"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if outcome.Attempted != 0 || outcome.Delivered != 0 {
		t.Fatalf("expected zero outcome, got %+v", outcome)
	}
	if fake.lastRequest != nil {
		t.Fatal("no push endpoint should be contacted")
	}
}

func TestSendToClientDeliversToAllSubscriptions(t *testing.T) {
	gdb, sender, fake, cleanup := setupPushTest(t)
	defer cleanup()

	createSubscription(t, gdb, 1, "https://push.example.com/sub-a")
	createSubscription(t, gdb, 1, "https://push.example.com/sub-b")
	fake.respond = func(*http.Request) *http.Response { return pushStatusResponse(http.StatusCreated) }

	outcome, err := sender.SendToClient(context.Background(), 1, PushMessage{
		Title: "午餐打卡", Body: "别忘了记录今天的午餐", Category: "daily_checkin",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if outcome.Attempted != 2 || outcome.Delivered != 2 || outcome.Cleaned != 0 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestSendToClientCleansExpiredSubscriptions(t *testing.T) {
	gdb, sender, fake, cleanup := setupPushTest(t)
	defer cleanup()

	stale := createSubscription(t, gdb, 1, "https://push.example.com/stale")
	createSubscription(t, gdb, 1, "https://push.example.com/live")
	fake.respond = func(req *http.Request) *http.Response {
		if strings.HasSuffix(req.URL.Path, "/stale") {
			return pushStatusResponse(http.StatusGone)
		}
		return pushStatusResponse(http.StatusCreated)
	}

	outcome, err := sender.SendToClient(context.Background(), 1, PushMessage{Title: "提醒"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if outcome.Attempted != 2 || outcome.Delivered != 1 || outcome.Cleaned != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	var count int64
	if err := gdb.Model(&db.PushSubscription{}).Where("id = ?", stale.ID).Count(&count).Error; err != nil {
		t.Fatalf("count subscriptions: %v", err)
	}
	if count != 0 {
		t.Fatal("gone subscription should be deleted")
	}
}
