package config

import _ "embed"

// DefaultConfigYAML 嵌入的默认配置
// 密钥类配置（openai.api_key / pinecone.api_key / jwt.secret 等）默认为空，
// 必须通过外部配置文件或环境变量提供，严禁写入源码
//
//go:embed default.yaml
var DefaultConfigYAML []byte
