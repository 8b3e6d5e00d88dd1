package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("KIKU_GENERATOR", "")
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
retrieval:
  scope: global
  top_k: 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Retrieval.Scope != ScopeGlobal || cfg.Retrieval.TopK != 2 {
		t.Errorf("unexpected retrieval config: %+v", cfg.Retrieval)
	}
	if cfg.Retrieval.Index != IndexKeyword {
		t.Errorf("index should default to keyword, got %q", cfg.Retrieval.Index)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_missingFileUsesDefaults(t *testing.T) {
	t.Setenv("KIKU_GENERATOR", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Errorf("backend: got %q", cfg.Storage.Backend)
	}
	if cfg.Retrieval.Scope != ScopeAsset {
		t.Errorf("scope: got %q", cfg.Retrieval.Scope)
	}
	if cfg.Generation.Provider != ProviderOpenAI || cfg.Generation.Temperature != 0.7 {
		t.Errorf("generation: got %+v", cfg.Generation)
	}
	if cfg.Sessions.ValidateAsset {
		t.Error("validate_asset should default to false")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_rejectsUnknownValues(t *testing.T) {
	t.Setenv("KIKU_GENERATOR", "")
	tests := []struct {
		name    string
		content string
	}{
		{"backend", "storage:\n  backend: redis\n"},
		{"index", "retrieval:\n  index: faiss\n"},
		{"scope", "retrieval:\n  scope: everywhere\n"},
		{"provider", "generation:\n  provider: palm\n"},
		{"overlap", "retrieval:\n  chunk_size: 10\n  chunk_overlap: 10\n"},
		{"fuzziness", "retrieval:\n  fuzziness: 3\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Errorf("expected validation error for %s", tt.name)
			}
		})
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  backend: sqlite
  database_path: "./data/kiku.db"
watch:
  directories: ["./inbox"]
`)
	dir := filepath.Dir(path)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "kiku.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path: got %q, want %q", cfg.Storage.DatabasePath, want)
	}
	if len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != filepath.Join(dir, "inbox") {
		t.Errorf("watch directories: got %v", cfg.Watch.Directories)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("KIKU_GENERATOR", "Ollama")
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Generation.Provider != ProviderOllama {
		t.Errorf("provider: got %q", cfg.Generation.Provider)
	}
	if cfg.Generation.BaseURL != "http://gpu-box:11434" {
		t.Errorf("base_url: got %q", cfg.Generation.BaseURL)
	}
	if cfg.Generation.Model != "llama3.2" {
		t.Errorf("model: got %q", cfg.Generation.Model)
	}
	if cfg.Generation.APIKey != "sk-test" {
		t.Errorf("api key not read from env")
	}
}

func TestApplyEnv_configKeyWins(t *testing.T) {
	t.Setenv("KIKU_GENERATOR", "")
	t.Setenv("OPENAI_API_KEY", "from-env")
	cfg, err := Load(writeConfig(t, "generation:\n  api_key: from-file\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Generation.APIKey != "from-file" {
		t.Errorf("api key: got %q", cfg.Generation.APIKey)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("KIKU_GENERATOR", "")
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Sessions.ValidateAsset = true
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Sessions.ValidateAsset {
		t.Error("validate_asset lost in round trip")
	}
}

func TestGenerationTimeout(t *testing.T) {
	g := GenerationConfig{TimeoutSecs: 3}
	if g.Timeout().Seconds() != 3 {
		t.Errorf("Timeout() = %v", g.Timeout())
	}
}
