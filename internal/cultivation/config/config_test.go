package config

import "testing"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Commands.Prefix != "/수선" {
		t.Errorf("unexpected prefix: %s", cfg.Commands.Prefix)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("unexpected driver: %s", cfg.Database.Driver)
	}
	if cfg.Game.DeathProbMin != 0.01 || cfg.Game.DeathProbMax != 0.10 {
		t.Errorf("unexpected death prob range: [%f, %f]", cfg.Game.DeathProbMin, cfg.Game.DeathProbMax)
	}
	if cfg.Game.PavilionSlotCount <= 0 {
		t.Errorf("pavilion slot count must be positive")
	}
}

func TestLoad_InvalidDriver(t *testing.T) {
	t.Setenv("CULTIVATION_DB_DRIVER", "oracle")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	t.Setenv("CULTIVATION_DB_DRIVER", "postgres")
	t.Setenv("CULTIVATION_DB_DSN", "")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for postgres without dsn")
	}

	t.Setenv("CULTIVATION_DB_DSN", "host=localhost user=bot dbname=cultivation")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("unexpected driver: %s", cfg.Database.Driver)
	}
}

func TestLoad_DeathProbRangeValidation(t *testing.T) {
	t.Setenv("CULTIVATION_DEATH_PROB_MIN", "0.5")
	t.Setenv("CULTIVATION_DEATH_PROB_MAX", "0.2")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for inverted probability range")
	}
}
