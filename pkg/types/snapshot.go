package types

import "time"

// DiscoveryParams 以 tick 为单位的发现参数
//
// 由配置推导，在每个 tick 开始时生效。
type DiscoveryParams struct {
	TickInterval      time.Duration `json:"tick_interval"`
	BatchRestartTicks int           `json:"batch_restart_ticks"`
	BatchPauseTicks   int           `json:"batch_pause_ticks"`
	BatchMaxPorts     int           `json:"batch_max_ports"`
	ThresholdTicks    int           `json:"threshold_ticks"`
	AgeoutTicks       int           `json:"ageout_ticks"`
	TimeoutTicks      int           `json:"timeout_ticks"`
	ConsistencyTicks  int           `json:"consistency_ticks"`
}

// EdgeRecord 边及其属性
type EdgeRecord struct {
	Edge  Edge        `json:"edge"`
	Props PropertySet `json:"props,omitempty"`
}

// DiscoverySnapshot 发现引擎只读快照
type DiscoverySnapshot struct {
	Tick         uint64          `json:"tick"`
	BatchCounter int             `json:"batch_counter"`
	Throttling   bool            `json:"throttling"`
	Snooping     bool            `json:"snooping"`
	Aging        bool            `json:"aging"`
	Params       DiscoveryParams `json:"params"`

	Ports         map[Port]ProbeState `json:"ports"`
	HoldTimers    map[Port]int        `json:"hold_timers"`
	ElapsedTimers map[Port]int        `json:"elapsed_timers"`
	AgingTimers   map[Port]int        `json:"aging_timers"`

	ActiveEdges     []EdgeRecord `json:"active_edges"`
	ProductionEdges []EdgeRecord `json:"production_edges"`

	ConsistencyCorrections uint64 `json:"consistency_corrections"`
	DroppedFrames          uint64 `json:"dropped_frames"`
}

// CountState 统计处于指定探测状态的端口数
func (s DiscoverySnapshot) CountState(state ProbeState) int {
	n := 0
	for _, st := range s.Ports {
		if st == state {
			n++
		}
	}
	return n
}
