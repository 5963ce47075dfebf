package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "HTTP_ADDR", "STRICT_GATING", "INSPECT_TIMEOUT", "HISTORY_DB_DRIVER", "LOG_DEV"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()
	if cfg.Mode != ModeOffline {
		t.Fatalf("mode = %q", cfg.Mode)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("addr = %q", cfg.HTTPAddr)
	}
	if cfg.StrictGating {
		t.Fatal("strict gating should default off")
	}
	if cfg.InspectTimeout != 30*time.Second {
		t.Fatalf("inspect timeout = %v", cfg.InspectTimeout)
	}
	if !cfg.LogDev {
		t.Fatal("offline mode should default to dev logging")
	}
	if cfg.HistoryDBDriver != "" {
		t.Fatalf("history driver = %q", cfg.HistoryDBDriver)
	}
	if got := cfg.CORSOrigins(); len(got) != 2 || got[0] != "http://localhost:3000" {
		t.Fatalf("offline origins = %v", got)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("STRICT_GATING", "yes")
	t.Setenv("INSPECT_TIMEOUT", "5s")
	t.Setenv("MAX_ARCHIVE_BYTES", "1024")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")
	t.Setenv("HISTORY_DB_DRIVER", "sqlite")

	cfg := FromEnv()
	if !cfg.StrictGating {
		t.Fatal("expected strict gating")
	}
	if cfg.InspectTimeout != 5*time.Second {
		t.Fatalf("inspect timeout = %v", cfg.InspectTimeout)
	}
	if cfg.MaxArchiveBytes != 1024 {
		t.Fatalf("max archive bytes = %d", cfg.MaxArchiveBytes)
	}
	if cfg.LogDev {
		t.Fatal("online mode should default to production logging")
	}
	got := cfg.CORSOrigins()
	if len(got) != 2 || got[1] != "https://b.example" {
		t.Fatalf("online origins = %v", got)
	}
}
