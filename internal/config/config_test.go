package config

import (
	"testing"
	"time"
)

func TestResolveStrapiURL(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		appEnv string
		want   string
	}{
		{
			name:   "explicit url wins",
			env:    map[string]string{"NEXT_PUBLIC_STRAPI_URL": "http://cms.local/", "NEXT_PUBLIC_STRAPI_PROD_URL": "https://prod"},
			appEnv: "production",
			want:   "http://cms.local",
		},
		{
			name:   "production url",
			env:    map[string]string{"NEXT_PUBLIC_STRAPI_PROD_URL": "https://prod"},
			appEnv: "production",
			want:   "https://prod",
		},
		{
			name:   "dev url",
			env:    map[string]string{"NEXT_PUBLIC_STRAPI_DEV_URL": "http://localhost:1337"},
			appEnv: "development",
			want:   "http://localhost:1337",
		},
		{
			name:   "default",
			env:    map[string]string{},
			appEnv: "development",
			want:   DefaultStrapiURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, key := range []string{"NEXT_PUBLIC_STRAPI_URL", "NEXT_PUBLIC_STRAPI_DEV_URL", "NEXT_PUBLIC_STRAPI_PROD_URL"} {
				t.Setenv(key, tt.env[key])
			}
			if got := resolveStrapiURL(tt.appEnv); got != tt.want {
				t.Errorf("resolveStrapiURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIRM_TOKENS", "")
	t.Setenv("SESSION_DURATION", "")
	t.Setenv("CMS_TIMEOUT", "")

	cfg := Load()

	if len(cfg.ConfirmTokens) != 3 {
		t.Fatalf("expected 3 default confirm tokens, got %v", cfg.ConfirmTokens)
	}
	if cfg.CMSTimeout != 8*time.Second {
		t.Errorf("CMSTimeout = %s, want 8s", cfg.CMSTimeout)
	}
	if cfg.SessionDuration != 7*24*time.Hour {
		t.Errorf("SessionDuration = %s, want 168h", cfg.SessionDuration)
	}
}

func TestGetDurationInvalidFallsBack(t *testing.T) {
	t.Setenv("CACHE_TTL", "not-a-duration")
	if got := getDuration("CACHE_TTL", time.Minute); got != time.Minute {
		t.Errorf("getDuration() = %s, want 1m", got)
	}
}

func TestGetInt(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "4")
	if got := getInt("DB_MAX_OPEN_CONNS", 0); got != 4 {
		t.Errorf("getInt() = %d, want 4", got)
	}
	for _, bad := range []string{"lots", "-2"} {
		t.Setenv("DB_MAX_OPEN_CONNS", bad)
		if got := getInt("DB_MAX_OPEN_CONNS", 0); got != 0 {
			t.Errorf("getInt(%q) = %d, want fallback 0", bad, got)
		}
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, ,b ,c")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("splitList() = %v", got)
	}
}
