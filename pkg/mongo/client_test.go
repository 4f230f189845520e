package mongo

import (
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Database: "bank"}
	cfg.ApplyDefaults()
	if cfg.URI != "mongodb://localhost:27017" || cfg.Database != "bank" || cfg.Timeout != 10*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}
