package service

import (
	"testing"

	"github.com/coachpulse/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupSettingsTest(t *testing.T) (*SystemSettingService, func()) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := gdb.AutoMigrate(&db.SystemSetting{}); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	cleanup := func() {
		sqlDB, err := gdb.DB()
		if err == nil {
			sqlDB.Close()
		}
	}
	return NewSystemSettingService(gdb), cleanup
}

func TestGetSettingsDefaults(t *testing.T) {
	svc, cleanup := setupSettingsTest(t)
	defer cleanup()

	settings, err := svc.GetSettings()
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.SiteName != "CoachPulse" {
		t.Fatalf("unexpected default site name: %q", settings.SiteName)
	}
	if settings.AIProvider != AIProviderOpenAI {
		t.Fatalf("unexpected default provider: %q", settings.AIProvider)
	}
}

func TestUpdateSettingsRoundTrip(t *testing.T) {
	svc, cleanup := setupSettingsTest(t)
	defer cleanup()

	if _, err := svc.UpdateSettings(SystemSettingsInput{
		SiteName:       "  私教工作室  ",
		AIProvider:     "DeepSeek",
		DeepSeekAPIKey: " ds-key ",
		VisionModel:    "deepseek-vl",
	}); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	settings, err := svc.GetSettings()
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.SiteName != "私教工作室" {
		t.Fatalf("site name should be trimmed: %q", settings.SiteName)
	}
	if settings.AIProvider != AIProviderDeepSeek {
		t.Fatalf("provider should normalize to deepseek: %q", settings.AIProvider)
	}
	if settings.DeepSeekAPIKey != "ds-key" || settings.VisionModel != "deepseek-vl" {
		t.Fatalf("unexpected settings: %+v", settings)
	}

	// 再次更新走 upsert 而非重复插入
	if _, err := svc.UpdateSettings(SystemSettingsInput{AIProvider: "unknown-provider"}); err != nil {
		t.Fatalf("second update: %v", err)
	}
	settings, err = svc.GetSettings()
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.AIProvider != AIProviderOpenAI {
		t.Fatalf("unknown provider should fall back to openai: %q", settings.AIProvider)
	}
	if settings.SiteName != "CoachPulse" {
		t.Fatalf("empty site name should fall back to default: %q", settings.SiteName)
	}
}
