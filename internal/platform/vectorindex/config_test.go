package vectorindex

import "testing"

func TestResolveConfigFromEnvMissingURL(t *testing.T) {
	t.Setenv("VX_URL", "")
	t.Setenv("VX_EDGE_COLLECTION", "edges")
	_, err := ResolveConfigFromEnv()
	var cfgErr *ConfigError
	if err == nil {
		t.Fatalf("expected error")
	}
	if ce, ok := err.(*ConfigError); !ok || ce.Code != ConfigErrorMissingURL {
		cfgErr = ce
		t.Fatalf("code: want=%q got=%v", ConfigErrorMissingURL, cfgErr)
	}
}

func TestResolveConfigFromEnvValid(t *testing.T) {
	t.Setenv("VX_URL", "http://localhost:6333")
	t.Setenv("VX_EDGE_COLLECTION", "edges")
	t.Setenv("VX_VECTOR_DIM", "1536")
	t.Setenv("VX_API_KEY", "secret")

	cfg, err := ResolveConfigFromEnv()
	if err != nil {
		t.Fatalf("ResolveConfigFromEnv: %v", err)
	}
	if cfg.Collection != "edges" || cfg.VectorDim != 1536 || cfg.APIKey != "secret" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestValidateConfigMissingCollection(t *testing.T) {
	err := ValidateConfig(Config{URL: "http://localhost:6333"})
	if ce, ok := err.(*ConfigError); !ok || ce.Code != ConfigErrorMissingCollection {
		t.Fatalf("expected missing collection error, got=%v", err)
	}
}
