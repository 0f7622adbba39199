package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeErrorMessage(t *testing.T) {
	fallback := "操作失败"
	testErr := errors.New("internal database error")

	// nil err 返回 fallback
	assert.Equal(t, fallback, SafeErrorMessage(nil, fallback))

	// release 模式返回 fallback，不暴露错误详情
	GlobalConfig = &Config{Server: ServerConfig{Mode: "release"}}
	defer func() { GlobalConfig = nil }()
	assert.Equal(t, fallback, SafeErrorMessage(testErr, fallback))

	// debug 模式返回 err.Error()
	GlobalConfig = &Config{Server: ServerConfig{Mode: "debug"}}
	assert.Equal(t, "internal database error", SafeErrorMessage(testErr, fallback))

	// GlobalConfig 为 nil 时返回 err.Error()（视为开发环境）
	GlobalConfig = nil
	assert.Equal(t, "internal database error", SafeErrorMessage(testErr, fallback))
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	defer func() { GlobalConfig = nil }()

	// 嵌入默认配置生效
	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, "gpt-3.5-turbo", cfg.OpenAI.Model)
	assert.Equal(t, "text-embedding-ada-002", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, 10, cfg.Chat.ContextWindow)
	assert.Equal(t, 4, cfg.Pinecone.TopK)

	// 密钥默认为空，必须由外部提供
	assert.Empty(t, cfg.OpenAI.APIKey)
	assert.Empty(t, cfg.Pinecone.APIKey)

	// 兜底默认值
	assert.Equal(t, 24, cfg.JWT.ExpireHours)
	assert.Greater(t, cfg.OpenAI.TimeoutSeconds, 0)
	assert.Greater(t, cfg.Pinecone.TimeoutSeconds, 0)
}
