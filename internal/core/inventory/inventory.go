package inventory

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-linkdisc/pkg/interfaces"
	"github.com/dep2p/go-linkdisc/pkg/lib/log"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

var logger = log.Logger("core/inventory")

// 编译时接口检查
var _ interfaces.PortLifecycleSource = (*Inventory)(nil)

// 预定义错误
var (
	// ErrUnknownSwitch 交换机不存在
	ErrUnknownSwitch = errors.New("inventory: unknown switch")

	// ErrSwitchExists 交换机已存在
	ErrSwitchExists = errors.New("inventory: switch already exists")

	// ErrUnknownPort 端口不存在
	ErrUnknownPort = errors.New("inventory: unknown port")

	// ErrPortExists 端口已存在
	ErrPortExists = errors.New("inventory: port already exists")

	// ErrNotManaged 只能登记受控交换机
	ErrNotManaged = errors.New("inventory: node is not a managed switch")
)

type portEntry struct {
	enabled bool
	props   types.PropertySet
}

type switchEntry struct {
	ports map[string]*portEntry
}

// Inventory 交换机/端口清单
type Inventory struct {
	mu       sync.RWMutex
	switches map[types.Node]*switchEntry

	lmu       sync.Mutex
	listeners map[uint64]interfaces.PortLifecycleListener
	nextID    uint64

	dropEvents atomic.Bool
}

// New 创建空清单
func New() *Inventory {
	return &Inventory{
		switches:  make(map[types.Node]*switchEntry),
		listeners: make(map[uint64]interfaces.PortLifecycleListener),
	}
}

// ============================================================================
//                              交换机
// ============================================================================

// AddNode 登记交换机
func (inv *Inventory) AddNode(node types.Node) error {
	if !node.IsManaged() || node.IsZero() {
		return fmt.Errorf("%w: %s", ErrNotManaged, node)
	}

	inv.mu.Lock()
	if _, ok := inv.switches[node]; ok {
		inv.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSwitchExists, node)
	}
	inv.switches[node] = &switchEntry{ports: make(map[string]*portEntry)}
	inv.mu.Unlock()

	logger.Info("交换机加入", "node", node.String())
	inv.emit(func(l interfaces.PortLifecycleListener) { l.NodeAdded(node) })
	return nil
}

// RemoveNode 移除交换机及其全部端口
func (inv *Inventory) RemoveNode(node types.Node) error {
	inv.mu.Lock()
	sw, ok := inv.switches[node]
	if !ok {
		inv.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSwitch, node)
	}
	delete(inv.switches, node)
	inv.mu.Unlock()

	logger.Info("交换机移除", "node", node.String(), "ports", len(sw.ports))
	inv.emit(func(l interfaces.PortLifecycleListener) { l.NodeRemoved(node) })
	return nil
}

// Nodes 返回所有交换机，按 ID 排序
func (inv *Inventory) Nodes() []types.Node {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	nodes := make([]types.Node, 0, len(inv.switches))
	for n := range inv.switches {
		nodes = append(nodes, n)
	}
	slices.SortFunc(nodes, func(a, b types.Node) int { return strings.Compare(a.ID, b.ID) })
	return nodes
}

// HasNode 交换机是否存在
func (inv *Inventory) HasNode(node types.Node) bool {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	_, ok := inv.switches[node]
	return ok
}

// ============================================================================
//                              端口
// ============================================================================

// AddPort 登记端口
func (inv *Inventory) AddPort(port types.Port, enabled bool, props types.PropertySet) error {
	inv.mu.Lock()
	sw, ok := inv.switches[port.Node]
	if !ok {
		inv.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSwitch, port.Node)
	}
	if _, exists := sw.ports[port.ID]; exists {
		inv.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrPortExists, port)
	}
	sw.ports[port.ID] = &portEntry{enabled: enabled, props: props.Clone()}
	inv.mu.Unlock()

	logger.Debug("端口加入", "port", port.String(), "enabled", enabled)
	inv.emit(func(l interfaces.PortLifecycleListener) { l.PortAdded(port, enabled) })
	return nil
}

// RemovePort 移除端口
func (inv *Inventory) RemovePort(port types.Port) error {
	inv.mu.Lock()
	if _, err := inv.lookup(port); err != nil {
		inv.mu.Unlock()
		return err
	}
	delete(inv.switches[port.Node].ports, port.ID)
	inv.mu.Unlock()

	logger.Debug("端口移除", "port", port.String())
	inv.emit(func(l interfaces.PortLifecycleListener) { l.PortRemoved(port) })
	return nil
}

// SetPortEnabled 修改端口启用状态，状态未变化时不通知
func (inv *Inventory) SetPortEnabled(port types.Port, enabled bool) error {
	inv.mu.Lock()
	entry, err := inv.lookup(port)
	if err != nil {
		inv.mu.Unlock()
		return err
	}
	changed := entry.enabled != enabled
	entry.enabled = enabled
	inv.mu.Unlock()

	if changed {
		logger.Debug("端口启用状态变化", "port", port.String(), "enabled", enabled)
		inv.emit(func(l interfaces.PortLifecycleListener) { l.PortEnabledChanged(port, enabled) })
	}
	return nil
}

// SetPortProperties 替换端口属性
//
// 属性变化不产生生命周期事件，下一次探测回显时随边通知下发。
func (inv *Inventory) SetPortProperties(port types.Port, props types.PropertySet) error {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	entry, err := inv.lookup(port)
	if err != nil {
		return err
	}
	entry.props = props.Clone()
	return nil
}

// Ports 返回交换机的全部端口，按 ID 排序
func (inv *Inventory) Ports(node types.Node) []types.Port {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	sw, ok := inv.switches[node]
	if !ok {
		return nil
	}
	ports := make([]types.Port, 0, len(sw.ports))
	for id := range sw.ports {
		ports = append(ports, types.NewPort(node, id))
	}
	sortPorts(ports)
	return ports
}

// EnabledPorts 返回所有已启用端口，按连接器编码排序
func (inv *Inventory) EnabledPorts() []types.Port {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	var ports []types.Port
	for node, sw := range inv.switches {
		for id, entry := range sw.ports {
			if entry.enabled {
				ports = append(ports, types.NewPort(node, id))
			}
		}
	}
	sortPorts(ports)
	return ports
}

// IsEnabled 端口是否存在且已启用
func (inv *Inventory) IsEnabled(port types.Port) bool {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	entry, err := inv.lookup(port)
	return err == nil && entry.enabled
}

// Properties 返回端口属性副本
func (inv *Inventory) Properties(port types.Port) types.PropertySet {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	entry, err := inv.lookup(port)
	if err != nil {
		return nil
	}
	return entry.props.Clone()
}

// lookup 调用方必须持有锁
func (inv *Inventory) lookup(port types.Port) (*portEntry, error) {
	sw, ok := inv.switches[port.Node]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSwitch, port.Node)
	}
	entry, ok := sw.ports[port.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPort, port)
	}
	return entry, nil
}

// ============================================================================
//                              订阅
// ============================================================================

// Subscribe 订阅生命周期事件
func (inv *Inventory) Subscribe(listener interfaces.PortLifecycleListener) func() {
	inv.lmu.Lock()
	id := inv.nextID
	inv.nextID++
	inv.listeners[id] = listener
	inv.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			inv.lmu.Lock()
			delete(inv.listeners, id)
			inv.lmu.Unlock()
		})
	}
}

// DropEvents 暂停或恢复事件通知（清单本身照常更新）
func (inv *Inventory) DropEvents(drop bool) {
	inv.dropEvents.Store(drop)
}

// emit 在锁外按订阅顺序通知监听器
func (inv *Inventory) emit(fn func(l interfaces.PortLifecycleListener)) {
	if inv.dropEvents.Load() {
		logger.Debug("生命周期事件被丢弃")
		return
	}

	inv.lmu.Lock()
	ids := make([]uint64, 0, len(inv.listeners))
	for id := range inv.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]interfaces.PortLifecycleListener, 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, inv.listeners[id])
	}
	inv.lmu.Unlock()

	for _, l := range listeners {
		fn(l)
	}
}

func sortPorts(ports []types.Port) {
	slices.SortFunc(ports, func(a, b types.Port) int {
		return strings.Compare(a.String(), b.String())
	})
}
