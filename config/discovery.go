package config

import (
	"time"

	"github.com/dep2p/go-linkdisc/pkg/types"
)

// 发现默认值
const (
	// DefaultProbeInterval 默认全网探测周期
	DefaultProbeInterval = 300 * time.Second

	// DefaultRetryThreshold 新端口首次探测无回应后的重试等待时间
	DefaultRetryThreshold = 10 * time.Second

	// DefaultAgeoutInterval 生产边老化时间
	DefaultAgeoutInterval = 120 * time.Second

	// DefaultTickInterval 发现时钟周期
	DefaultTickInterval = 2 * time.Second

	// DefaultBatchMaxPorts 每个 tick 最多探测的端口数
	DefaultBatchMaxPorts = 1024

	// DefaultBatchPausePeriod 每轮末尾不探测的 tick 数
	DefaultBatchPausePeriod = 2

	// DefaultTimeoutMultiple 主动边超时 = 探测周期 × 倍数 + 补偿
	DefaultTimeoutMultiple = 2

	// DefaultTimeoutPadding 主动边超时补偿 tick 数
	DefaultTimeoutPadding = 2

	// DefaultConsistencyMultiple 一致性检查周期 = 倍数 × 探测周期
	DefaultConsistencyMultiple = 2

	// DefaultIntakeQueueSize 接收路径事件队列容量
	DefaultIntakeQueueSize = 4096

	// DefaultTombstoneSize 已移除节点墓碑容量
	DefaultTombstoneSize = 1024
)

// DiscoveryConfig 拓扑发现配置
//
// 所有时间参数最终换算为 tick 数，修改后从下一个 tick 开始生效。
type DiscoveryConfig struct {
	// ProbeInterval 全网探测周期（每轮重启间隔）
	ProbeInterval Duration `json:"probe_interval,omitempty"`

	// RetryThreshold 新端口首次探测后，未收到回应时授予一次重试前的等待时间
	RetryThreshold Duration `json:"retry_threshold,omitempty"`

	// AgeoutInterval 生产边在未再次监听到外部 LLDP 时的老化时间
	AgeoutInterval Duration `json:"ageout_interval,omitempty"`

	// TickInterval 发现时钟周期
	TickInterval Duration `json:"tick_interval,omitempty"`

	// BatchMaxPorts 每个 tick 最多探测的端口数
	BatchMaxPorts int `json:"batch_max_ports,omitempty"`

	// BatchPausePeriod 每轮末尾暂停探测的 tick 数
	BatchPausePeriod int `json:"batch_pause_period,omitempty"`

	// TimeoutMultiple 主动边超时倍数
	TimeoutMultiple int `json:"timeout_multiple,omitempty"`

	// TimeoutPadding 主动边超时补偿 tick 数
	TimeoutPadding int `json:"timeout_padding,omitempty"`

	// ConsistencyMultiple 一致性检查倍数
	ConsistencyMultiple int `json:"consistency_multiple,omitempty"`

	// EnableSnooping 是否监听外部（非本控制器发出的）LLDP
	EnableSnooping bool `json:"enable_snooping"`

	// SnoopingDisabledPorts 禁止监听的端口（完整连接器编码）
	SnoopingDisabledPorts []string `json:"snooping_disabled_ports,omitempty"`

	// Throttling 手动节流：开启后每个 tick 不限制探测端口数，用于清空积压
	Throttling bool `json:"throttling"`

	// EnableAging 是否启用生产边老化（调试时可关闭）
	EnableAging bool `json:"enable_aging"`

	// IntakeQueueSize 接收路径事件队列容量，队列满时丢弃新帧
	IntakeQueueSize int `json:"intake_queue_size,omitempty"`

	// TombstoneSize 已移除节点墓碑容量
	TombstoneSize int `json:"tombstone_size,omitempty"`
}

// DefaultDiscoveryConfig 返回默认发现配置
func DefaultDiscoveryConfig() DiscoveryConfig {
	return DiscoveryConfig{
		ProbeInterval:       Duration(DefaultProbeInterval),  // 每 300 秒探测一轮
		RetryThreshold:      Duration(DefaultRetryThreshold), // 新端口 10 秒无回应重试一次
		AgeoutInterval:      Duration(DefaultAgeoutInterval), // 生产边 120 秒老化
		TickInterval:        Duration(DefaultTickInterval),   // 2 秒一个 tick
		BatchMaxPorts:       DefaultBatchMaxPorts,
		BatchPausePeriod:    DefaultBatchPausePeriod,
		TimeoutMultiple:     DefaultTimeoutMultiple,
		TimeoutPadding:      DefaultTimeoutPadding,
		ConsistencyMultiple: DefaultConsistencyMultiple,
		EnableSnooping:      true,
		Throttling:          false,
		EnableAging:         true,
		IntakeQueueSize:     DefaultIntakeQueueSize,
		TombstoneSize:       DefaultTombstoneSize,
	}
}

// Validate 验证发现配置
func (c DiscoveryConfig) Validate() error {
	if c.TickInterval <= 0 {
		return invalidf("discovery.tick_interval must be positive")
	}
	if c.ProbeInterval < c.TickInterval {
		return invalidf("discovery.probe_interval (%s) must be >= tick_interval (%s)", c.ProbeInterval, c.TickInterval)
	}
	if c.RetryThreshold < 0 || c.AgeoutInterval < 0 {
		return invalidf("discovery.retry_threshold and ageout_interval must not be negative")
	}
	if c.BatchMaxPorts <= 0 {
		return invalidf("discovery.batch_max_ports must be positive")
	}
	if c.BatchPausePeriod < 0 {
		return invalidf("discovery.batch_pause_period must not be negative")
	}
	if c.TimeoutMultiple <= 0 || c.ConsistencyMultiple <= 0 {
		return invalidf("discovery.timeout_multiple and consistency_multiple must be positive")
	}
	if c.TimeoutPadding < 0 {
		return invalidf("discovery.timeout_padding must not be negative")
	}
	if c.IntakeQueueSize <= 0 || c.TombstoneSize <= 0 {
		return invalidf("discovery.intake_queue_size and tombstone_size must be positive")
	}
	for _, s := range c.SnoopingDisabledPorts {
		if _, err := types.ParsePort(s); err != nil {
			return invalidf("discovery.snooping_disabled_ports: %v", err)
		}
	}
	return nil
}

// Params 将时间配置换算为 tick 参数
func (c DiscoveryConfig) Params() types.DiscoveryParams {
	tick := c.TickInterval.Duration()
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	toTicks := func(d Duration) int {
		n := int(d.Duration() / tick)
		if n < 1 {
			n = 1
		}
		return n
	}

	restart := toTicks(c.ProbeInterval)
	pause := restart - c.BatchPausePeriod
	if pause < 0 {
		pause = 0
	}
	return types.DiscoveryParams{
		TickInterval:      tick,
		BatchRestartTicks: restart,
		BatchPauseTicks:   pause,
		BatchMaxPorts:     c.BatchMaxPorts,
		ThresholdTicks:    toTicks(c.RetryThreshold),
		AgeoutTicks:       toTicks(c.AgeoutInterval),
		TimeoutTicks:      restart*c.TimeoutMultiple + c.TimeoutPadding,
		ConsistencyTicks:  c.ConsistencyMultiple * restart,
	}
}

// SnoopingDisabledSet 返回禁止监听端口集合，无法解析的条目被忽略
func (c DiscoveryConfig) SnoopingDisabledSet() types.PortSet {
	set := make(types.PortSet, len(c.SnoopingDisabledPorts))
	for _, s := range c.SnoopingDisabledPorts {
		if p, err := types.ParsePort(s); err == nil {
			set[p] = struct{}{}
		}
	}
	return set
}

// Clone 返回深拷贝
func (c DiscoveryConfig) Clone() DiscoveryConfig {
	c.SnoopingDisabledPorts = append([]string(nil), c.SnoopingDisabledPorts...)
	return c
}
