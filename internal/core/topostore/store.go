// Package topostore 维护发现引擎下发的拓扑视图
//
// Store 实现 interfaces.EdgeSink，保存以头端口为键的当前边集合，
// 并记录有界的变更日志供诊断查询。
package topostore

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/dep2p/go-linkdisc/pkg/interfaces"
	"github.com/dep2p/go-linkdisc/pkg/lib/log"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

var logger = log.Logger("core/topostore")

// 编译时接口检查
var _ interfaces.EdgeSink = (*Store)(nil)

// DefaultJournalSize 默认变更日志容量
const DefaultJournalSize = 1024

// Change 一次边变更
type Change struct {
	ID    uuid.UUID         `json:"id"`
	Edge  types.Edge        `json:"edge"`
	Type  types.UpdateType  `json:"type"`
	Props types.PropertySet `json:"props,omitempty"`
	At    time.Time         `json:"at"`
}

// Link 当前拓扑中的一条边
type Link struct {
	Edge       types.Edge        `json:"edge"`
	Production bool              `json:"production"`
	Props      types.PropertySet `json:"props,omitempty"`
	Since      time.Time         `json:"since"`
}

// Option 配置选项
type Option func(*Store)

// WithClock 设置时钟
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithJournalSize 设置变更日志容量，0 表示不记录
func WithJournalSize(n int) Option {
	return func(s *Store) {
		if n >= 0 {
			s.journalSize = n
		}
	}
}

// Store 拓扑视图
type Store struct {
	clock       clock.Clock
	journalSize int

	mu      sync.RWMutex
	links   map[types.Port]Link
	journal []Change
	seq     uint64
}

// New 创建拓扑视图
func New(opts ...Option) *Store {
	s := &Store{
		clock:       clock.New(),
		journalSize: DefaultJournalSize,
		links:       make(map[types.Port]Link),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NotifyEdge 实现 EdgeSink
//
// 在发现引擎事件循环中调用，只做内存更新。
func (s *Store) NotifyEdge(edge types.Edge, update types.UpdateType, props types.PropertySet) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	switch update {
	case types.UpdateAdded:
		s.links[edge.Head] = Link{
			Edge:       edge,
			Production: edge.IsProduction(),
			Props:      props,
			Since:      now,
		}
	case types.UpdateChanged:
		// 生产边的邻居端口变化以 CHANGED 通知，Tail 节点不变
		link, ok := s.links[edge.Head]
		if !ok || link.Edge.Tail.Node != edge.Tail.Node {
			logger.Warn("变更通知与当前视图不一致", "edge", edge.String())
			link = Link{Production: edge.IsProduction(), Since: now}
		}
		link.Edge = edge
		link.Props = props
		s.links[edge.Head] = link
	case types.UpdateRemoved:
		if link, ok := s.links[edge.Head]; ok && link.Edge == edge {
			delete(s.links, edge.Head)
		}
	}

	s.seq++
	s.record(Change{
		ID:    uuid.New(),
		Edge:  edge,
		Type:  update,
		Props: props,
		At:    now,
	})
}

// record 调用方必须持有写锁
func (s *Store) record(c Change) {
	if s.journalSize == 0 {
		return
	}
	if len(s.journal) >= s.journalSize {
		// 丢弃最旧的一条
		copy(s.journal, s.journal[1:])
		s.journal = s.journal[:len(s.journal)-1]
	}
	s.journal = append(s.journal, c)
}

// Links 返回当前全部边，按头端口排序
func (s *Store) Links() []Link {
	s.mu.RLock()
	defer s.mu.RUnlock()

	links := make([]Link, 0, len(s.links))
	for _, l := range s.links {
		links = append(links, l)
	}
	slices.SortFunc(links, func(a, b Link) int {
		return strings.Compare(a.Edge.Head.String(), b.Edge.Head.String())
	})
	return links
}

// Edges 返回当前全部边
func (s *Store) Edges() []types.Edge {
	links := s.Links()
	edges := make([]types.Edge, len(links))
	for i, l := range links {
		edges[i] = l.Edge
	}
	return edges
}

// Edge 返回以 head 为头端口的边
func (s *Store) Edge(head types.Port) (Link, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.links[head]
	return l, ok
}

// Len 当前边数
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.links)
}

// Journal 返回最近的变更，最旧的在前
func (s *Store) Journal() []Change {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.journal)
}

// Changes 累计收到的变更数
func (s *Store) Changes() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.seq
}
