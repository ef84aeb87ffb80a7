package config

import "testing"

func validConfig() Config {
	cfg := Config{
		HTTP:     HTTPConfig{Port: 8080},
		Database: DatabaseConfig{Addrs: []string{"localhost:6379"}},
		Model:    ModelConfig{APIKey: "test-key"},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_OK(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_MissingAPIKey(t *testing.T) {
	cfg := validConfig()
	cfg.Model.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for missing api key")
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	for _, port := range []int{0, -1, 70000} {
		cfg := validConfig()
		cfg.HTTP.Port = port
		if err := cfg.Validate(); err == nil {
			t.Errorf("Validate() = nil for port %d, want error", port)
		}
	}
}

func TestValidate_MissingAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Database.Addrs = nil
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for missing addrs")
	}
}

func TestValidate_InvalidUsageBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Quota.UsageBackend = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for unknown usage backend")
	}
}

func TestValidate_CeilingOrdering(t *testing.T) {
	cfg := validConfig()
	cfg.Quota.AnonymousDailyLimit = 10
	cfg.Quota.AuthenticatedDailyLimit = 10
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error when authenticated ceiling is not greater")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Corpus.TopK != 3 {
		t.Errorf("Corpus.TopK = %d, want 3", cfg.Corpus.TopK)
	}
	if cfg.Corpus.CandidatePool != 100 {
		t.Errorf("Corpus.CandidatePool = %d, want 100", cfg.Corpus.CandidatePool)
	}
	if cfg.Quota.UsageBackend != "file" {
		t.Errorf("Quota.UsageBackend = %q, want \"file\"", cfg.Quota.UsageBackend)
	}
	if cfg.Quota.AuthenticatedDailyLimit <= cfg.Quota.AnonymousDailyLimit {
		t.Error("default authenticated ceiling must exceed anonymous ceiling")
	}
	if len(cfg.Rerank.Aliases) == 0 {
		t.Error("default alias table must not be empty")
	}
	if _, ok := cfg.Rerank.Aliases["trồng chuối"]; !ok {
		t.Error("default alias table must map \"trồng chuối\"")
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("YOGACHAT_TEST_KEY", "secret123")

	out := expandEnvVars([]byte("api_key: ${YOGACHAT_TEST_KEY}\nurl: ${MISSING_VAR:-http://fallback}"))
	s := string(out)
	if s != "api_key: secret123\nurl: http://fallback" {
		t.Errorf("expandEnvVars produced %q", s)
	}
}
