package topology

import (
	"container/list"

	"github.com/dep2p/go-linkdisc/pkg/types"
)

// ============================================================================
//                              portQueue 有序端口集合
// ============================================================================

// portQueue FIFO 端口集合，支持 O(1) 增删和按序弹出
type portQueue struct {
	items *list.List
	index map[types.Port]*list.Element
}

func newPortQueue() *portQueue {
	return &portQueue{
		items: list.New(),
		index: make(map[types.Port]*list.Element),
	}
}

func (q *portQueue) push(p types.Port) bool {
	if _, ok := q.index[p]; ok {
		return false
	}
	q.index[p] = q.items.PushBack(p)
	return true
}

func (q *portQueue) remove(p types.Port) bool {
	el, ok := q.index[p]
	if !ok {
		return false
	}
	q.items.Remove(el)
	delete(q.index, p)
	return true
}

func (q *portQueue) pop() (types.Port, bool) {
	el := q.items.Front()
	if el == nil {
		return types.Port{}, false
	}
	p := q.items.Remove(el).(types.Port)
	delete(q.index, p)
	return p, true
}

func (q *portQueue) len() int {
	return q.items.Len()
}

// ports 按队列顺序返回端口副本
func (q *portQueue) ports() []types.Port {
	out := make([]types.Port, 0, q.items.Len())
	for el := q.items.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(types.Port))
	}
	return out
}

// ============================================================================
//                              PortStore 端口生命周期存储
// ============================================================================

// PortStore 端口探测状态与计时存储
//
// 每个端口至多处于 ReadyHigh / ReadyLow / Staging 中的一个容器，state 索引保证互斥。
// HoldTimer 只由 Reconciler 维护，与主动边表保持同步。
// 非并发安全，由 Service 事件循环独占访问。
type PortStore struct {
	state   map[types.Port]types.ProbeState
	high    *portQueue
	low     *portQueue
	staging *portQueue

	// hold 自最近一次确认回显以来的 tick 数，键为主动边的 Head 端口
	hold map[types.Port]int

	// elapsed 新端口首次探测以来的 tick 数，用于一次性重试
	elapsed map[types.Port]int
}

// NewPortStore 创建端口存储
func NewPortStore() *PortStore {
	return &PortStore{
		state:   make(map[types.Port]types.ProbeState),
		high:    newPortQueue(),
		low:     newPortQueue(),
		staging: newPortQueue(),
		hold:    make(map[types.Port]int),
		elapsed: make(map[types.Port]int),
	}
}

// State 返回端口当前探测状态
func (s *PortStore) State(p types.Port) types.ProbeState {
	if st, ok := s.state[p]; ok {
		return st
	}
	return types.ProbeUntracked
}

// IsTracked 端口是否在任一容器或 HoldTimer 中
func (s *PortStore) IsTracked(p types.Port) bool {
	if _, ok := s.state[p]; ok {
		return true
	}
	_, ok := s.hold[p]
	return ok
}

// AddPort 未跟踪的端口进入 ReadyHigh；已跟踪时不做任何事
func (s *PortStore) AddPort(p types.Port) bool {
	if s.IsTracked(p) {
		return false
	}
	s.moveTo(p, types.ProbeReadyHigh)
	return true
}

// PromoteToReadyHigh 强制端口立即重新探测
func (s *PortStore) PromoteToReadyHigh(p types.Port) {
	s.moveTo(p, types.ProbeReadyHigh)
}

// RemovePort 从所有容器和计时中清除端口，返回是否有状态被清除
//
// 以该端口为键的边由调用方通过 Reconciler 清理。
func (s *PortStore) RemovePort(p types.Port) bool {
	removed := s.detach(p)
	if _, ok := s.hold[p]; ok {
		delete(s.hold, p)
		removed = true
	}
	if _, ok := s.elapsed[p]; ok {
		delete(s.elapsed, p)
		removed = true
	}
	return removed
}

// RemoveNode 清除节点的所有端口，返回被清除的端口
func (s *PortStore) RemoveNode(n types.Node) []types.Port {
	seen := make(types.PortSet)
	collect := func(p types.Port) {
		if p.Node == n {
			seen[p] = struct{}{}
		}
	}
	for p := range s.state {
		collect(p)
	}
	for p := range s.hold {
		collect(p)
	}
	for p := range s.elapsed {
		collect(p)
	}

	ports := make([]types.Port, 0, len(seen))
	for p := range seen {
		s.RemovePort(p)
		ports = append(ports, p)
	}
	return ports
}

// ensureStaged 未在任何容器中的端口进入 Staging
func (s *PortStore) ensureStaged(p types.Port) bool {
	if _, ok := s.state[p]; ok {
		return false
	}
	s.moveTo(p, types.ProbeStaging)
	return true
}

// moveTo 将端口移入目标容器，保证只在一个容器中
func (s *PortStore) moveTo(p types.Port, st types.ProbeState) {
	s.detach(p)
	if q := s.queue(st); q != nil {
		q.push(p)
		s.state[p] = st
	}
}

func (s *PortStore) detach(p types.Port) bool {
	st, ok := s.state[p]
	if !ok {
		return false
	}
	s.queue(st).remove(p)
	delete(s.state, p)
	return true
}

func (s *PortStore) queue(st types.ProbeState) *portQueue {
	switch st {
	case types.ProbeReadyHigh:
		return s.high
	case types.ProbeReadyLow:
		return s.low
	case types.ProbeStaging:
		return s.staging
	default:
		return nil
	}
}

// drainedPort 从就绪队列中取出的端口
type drainedPort struct {
	port     types.Port
	fromHigh bool
}

// popReady 按优先级取出就绪端口：先取尽 ReadyHigh，再取 ReadyLow
//
// limit <= 0 表示不限制数量。取出的端口移入 Staging。
func (s *PortStore) popReady(limit int) []drainedPort {
	var out []drainedPort
	for limit <= 0 || len(out) < limit {
		p, ok := s.high.pop()
		if !ok {
			break
		}
		delete(s.state, p)
		out = append(out, drainedPort{port: p, fromHigh: true})
	}
	for limit <= 0 || len(out) < limit {
		p, ok := s.low.pop()
		if !ok {
			break
		}
		delete(s.state, p)
		out = append(out, drainedPort{port: p})
	}
	for _, d := range out {
		s.moveTo(d.port, types.ProbeStaging)
	}
	return out
}

// promoteStaging 将 Staging 中的全部端口移入 ReadyLow，开始新一轮探测
func (s *PortStore) promoteStaging() int {
	n := 0
	for {
		p, ok := s.staging.pop()
		if !ok {
			return n
		}
		delete(s.state, p)
		s.moveTo(p, types.ProbeReadyLow)
		n++
	}
}

// ============================================================================
//                              计时
// ============================================================================

func (s *PortStore) armHold(p types.Port) {
	s.hold[p] = 0
}

func (s *PortStore) clearHold(p types.Port) {
	delete(s.hold, p)
}

func (s *PortStore) hasHold(p types.Port) bool {
	_, ok := s.hold[p]
	return ok
}

func (s *PortStore) armElapsed(p types.Port) {
	s.elapsed[p] = 0
}

func (s *PortStore) clearElapsed(p types.Port) {
	delete(s.elapsed, p)
}

// counts 返回各探测状态的端口数
func (s *PortStore) counts() map[types.ProbeState]int {
	return map[types.ProbeState]int{
		types.ProbeReadyHigh: s.high.len(),
		types.ProbeReadyLow:  s.low.len(),
		types.ProbeStaging:   s.staging.len(),
	}
}
