package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/recall/data/db/recall.db"
	}
	if cfg.Storage.IndexDir == "" {
		cfg.Storage.IndexDir = "/usr/local/var/recall/data/indices"
	}
	if cfg.Storage.FAQIndexPath == "" {
		cfg.Storage.FAQIndexPath = "/usr/local/var/recall/data/indices/faq.bleve"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "mock"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 768
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Search.UserTopK == 0 {
		cfg.Search.UserTopK = 50
	}
	if cfg.Search.UserMinSimilarity == 0 {
		cfg.Search.UserMinSimilarity = 0.2
	}
	if cfg.Search.ArchiveMinSimilarity == 0 {
		cfg.Search.ArchiveMinSimilarity = 0.25
	}
	if cfg.Search.SystemMinSimilarity == 0 {
		cfg.Search.SystemMinSimilarity = 0.3
	}
	if cfg.Search.FeedMinSimilarity == 0 {
		cfg.Search.FeedMinSimilarity = 0.2
	}
	if cfg.Search.ArchiveOverfetch == 0 {
		cfg.Search.ArchiveOverfetch = 3
	}
	if cfg.Search.RecommendLimit == 0 {
		cfg.Search.RecommendLimit = 3
	}
	if cfg.Search.BreedBonus == 0 {
		cfg.Search.BreedBonus = 100
	}
	if cfg.Search.TypeBonus == 0 {
		cfg.Search.TypeBonus = 50
	}
	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = 4
	}
	// Index.ExpiryHours defaults to 0: expiry disabled.
}
