package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnv(t *testing.T) {
	got := FromEnv(EnvPrefix, []string{
		"DOCSEARCH_RAG_TOP_K=8",
		"DOCSEARCH_LLM_MAX_TOKENS=512",
		"DOCSEARCH_LLM_API_KEY=sk=with=equals",
		"DOCSEARCH_HOME=/srv/docsearch",
		"DOCSEARCH_=x",
		"PATH=/usr/bin",
		"MALFORMED",
	})

	assert.Equal(t, map[string]any{
		"rag.top_k":      "8",
		"llm.max_tokens": "512",
		"llm.api_key":    "sk=with=equals",
	}, got)
}

func TestEnvKeyAndName(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{name: "DOCSEARCH_RAG_CHUNK_OVERLAP", key: "rag.chunk_overlap"},
		{name: "DOCSEARCH_SERVER_PORT", key: "server.port"},
		{name: "DOCSEARCH_RATELIMIT_REQUESTS_PER_SECOND", key: "ratelimit.requests_per_second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := EnvKey(EnvPrefix, tt.name)
			assert.True(t, ok)
			assert.Equal(t, tt.key, key)
			assert.Equal(t, tt.name, EnvName(EnvPrefix, tt.key))
		})
	}
}
