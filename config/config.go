// Package config 提供 linkdisc 的统一配置管理
//
// 主 Config 结构体嵌入所有子配置，每个子配置在独立文件中定义：
//   - Discovery: 拓扑发现引擎（探测周期、重试、老化、批处理、监听）
//   - Diagnostics: 自省 HTTP 服务
//   - Log: 日志级别与输出
//
// 使用示例：
//
//	cfg := config.NewConfig()
//	cfg.Discovery.BatchMaxPorts = 256
//
//	// 从 JSON 加载
//	cfg, err := config.LoadFile("linkdisc.json")
package config

// Config linkdisc 的完整配置结构
type Config struct {
	// Discovery 拓扑发现配置
	Discovery DiscoveryConfig `json:"discovery"`

	// Diagnostics 诊断服务配置
	Diagnostics DiagnosticsConfig `json:"diagnostics"`

	// Log 日志配置
	Log LogConfig `json:"log"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Discovery:   DefaultDiscoveryConfig(),
		Diagnostics: DefaultDiagnosticsConfig(),
		Log:         DefaultLogConfig(),
	}
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if err := c.Discovery.Validate(); err != nil {
		return err
	}
	if err := c.Diagnostics.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 级别配置，格式同 LINKDISC_LOG_LEVEL
	// 示例: "discovery/topology=debug,info"
	Level string `json:"level,omitempty"`

	// Format 输出格式：text 或 json
	Format string `json:"format,omitempty"`

	// File 日志文件路径，为空时输出到 stderr
	File string `json:"file,omitempty"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	switch c.Format {
	case "", "text", "json":
		return nil
	default:
		return invalidf("log.format must be text or json, got %q", c.Format)
	}
}
