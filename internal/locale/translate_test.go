package locale

import "testing"

func TestRenderSubstitutesParams(t *testing.T) {
	got := Render("zh", "trigger.missed_workout.reason", map[string]any{"days": 8})
	if got != "学员已经 8 天没有训练记录" {
		t.Fatalf("unexpected rendering: %q", got)
	}
}

func TestRenderFormatsFloatParamsAsIntegers(t *testing.T) {
	// 参数经 JSON 反序列化后整数会变成 float64
	got := Render("en", "trigger.inactivity.reason", map[string]any{"days": float64(5)})
	if got != "No activity logged for 5 days" {
		t.Fatalf("unexpected rendering: %q", got)
	}
}

func TestRenderMissingKeyReturnsKey(t *testing.T) {
	if got := Render("zh", "trigger.unknown.reason", nil); got != "trigger.unknown.reason" {
		t.Fatalf("missing key should be returned verbatim: %q", got)
	}
}

func TestRenderLanguageFallback(t *testing.T) {
	zh := Render("fr", "trigger.nutrition_concern.action", nil)
	if zh != catalogZH["trigger.nutrition_concern.action"] {
		t.Fatalf("unknown language should fall back to chinese: %q", zh)
	}
	en := Render("en-US", "trigger.nutrition_concern.action", nil)
	if en != catalogEN["trigger.nutrition_concern.action"] {
		t.Fatalf("en-US should resolve to english: %q", en)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"zh":    LanguageChinese,
		"zh-CN": LanguageChinese,
		"cn":    LanguageChinese,
		"en":    LanguageEnglish,
		"EN-us": LanguageEnglish,
		"fr":    "",
		"":      "",
	}
	for in, want := range cases {
		if got := NormalizeLanguage(in); got != want {
			t.Errorf("NormalizeLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}
