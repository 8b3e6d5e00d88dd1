package config

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"

	IndexKeyword  = "keyword"
	IndexSemantic = "semantic"
	IndexHybrid   = "hybrid"

	ScopeAsset  = "asset"
	ScopeGlobal = "global"

	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	EmbeddingHash = "hash"
	EmbeddingONNX = "onnx"
)

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendMemory
	}
	if cfg.Storage.Backend == BackendSQLite && cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kiku/data/kiku.db"
	}
	if cfg.Retrieval.Index == "" {
		cfg.Retrieval.Index = IndexKeyword
	}
	if cfg.Retrieval.Scope == "" {
		cfg.Retrieval.Scope = ScopeAsset
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 4
	}
	if cfg.Retrieval.ChunkSize == 0 {
		cfg.Retrieval.ChunkSize = 200
	}
	if cfg.Retrieval.ChunkOverlap == 0 {
		cfg.Retrieval.ChunkOverlap = 20
	}
	if cfg.Retrieval.KeywordWeight == 0 {
		cfg.Retrieval.KeywordWeight = 0.5
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = EmbeddingHash
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = ProviderOpenAI
	}
	if cfg.Generation.Model == "" {
		switch cfg.Generation.Provider {
		case ProviderOllama:
			cfg.Generation.Model = "llama3.2"
		default:
			cfg.Generation.Model = "gpt-4o-mini"
		}
	}
	if cfg.Generation.BaseURL == "" && cfg.Generation.Provider == ProviderOllama {
		cfg.Generation.BaseURL = "http://localhost:11434"
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.7
	}
	if cfg.Generation.TimeoutSecs == 0 {
		cfg.Generation.TimeoutSecs = 60
	}
	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".pdf"}
	}
}
