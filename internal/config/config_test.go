package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:   HTTPConfig{Port: 9010},
		Search: SearchConfig{Endpoint: "http://localhost:8000"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := validConfig()

	if cfg.Search.TimeoutSec != 30 {
		t.Errorf("expected search timeout 30s, got %d", cfg.Search.TimeoutSec)
	}
	if cfg.Search.MaxRetries != 2 {
		t.Errorf("expected 2 retries, got %d", cfg.Search.MaxRetries)
	}
	if cfg.Search.TopKPolicy != "clamp" {
		t.Errorf("expected clamp policy, got %q", cfg.Search.TopKPolicy)
	}
	if cfg.Orchestration.TimeoutSec != 60 {
		t.Errorf("expected orchestration timeout 60s, got %d", cfg.Orchestration.TimeoutSec)
	}
	if cfg.Orchestration.MaxSteps != 8 {
		t.Errorf("expected 8 max steps, got %d", cfg.Orchestration.MaxSteps)
	}
	if cfg.Tasks.Store != "memory" {
		t.Errorf("expected memory task store, got %q", cfg.Tasks.Store)
	}
	if cfg.LLM.Model == "" {
		t.Error("expected default model")
	}
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"missing endpoint", func(c *Config) { c.Search.Endpoint = "" }, "search.endpoint"},
		{"bad policy", func(c *Config) { c.Search.TopKPolicy = "truncate" }, "top_k_policy"},
		{"bad store", func(c *Config) { c.Tasks.Store = "postgres" }, "tasks.store"},
		{"redis without addrs", func(c *Config) { c.Tasks.Store = "redis"; c.Tasks.Addrs = nil }, "tasks.addrs"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("NFAGENT_TEST_ENDPOINT", "http://search:8000")

	in := []byte("endpoint: ${NFAGENT_TEST_ENDPOINT}\nmodel: ${NFAGENT_TEST_MODEL:-gpt-4.1}\n")
	out := string(expandEnvVars(in))

	if !strings.Contains(out, "http://search:8000") {
		t.Errorf("env var not expanded: %s", out)
	}
	if !strings.Contains(out, "gpt-4.1") {
		t.Errorf("default not applied: %s", out)
	}
}
