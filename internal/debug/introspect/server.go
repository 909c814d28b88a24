package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-linkdisc/internal/core/fabric"
	"github.com/dep2p/go-linkdisc/internal/core/topostore"
	"github.com/dep2p/go-linkdisc/pkg/lib/log"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

var logger = log.Logger("debug/introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = "127.0.0.1:6060"

// snapshotTimeout 查询引擎快照的超时
const snapshotTimeout = 5 * time.Second

// ============================================================================
//                              配置
// ============================================================================

// SnapshotProvider 发现引擎快照来源
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (types.DiscoverySnapshot, error)
}

// TopologyView 拓扑视图
type TopologyView interface {
	Links() []topostore.Link
	Journal() []topostore.Change
}

// FabricStats 模拟网络帧统计
type FabricStats interface {
	Stats() fabric.Stats
}

// Config 服务配置
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:6060"
	Addr string

	// Discovery 可选的发现引擎
	Discovery SnapshotProvider

	// Topology 可选的拓扑视图
	Topology TopologyView

	// Fabric 可选的模拟网络
	Fabric FabricStats

	// Gatherer 可选的指标来源，为空时 /metrics 返回 404
	Gatherer prometheus.Gatherer

	// CustomHandlers 自定义处理器
	CustomHandlers map[string]http.HandlerFunc
}

// ============================================================================
//                              Server
// ============================================================================

// Server 本地自省 HTTP 服务
type Server struct {
	config Config

	server   *http.Server
	listener net.Listener

	running   bool
	startTime time.Time

	mu sync.Mutex
}

// New 创建自省服务
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{config: cfg}
}

// Handler 返回路由，测试可直接配合 httptest 使用
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/introspect", s.handleIntrospect)
	mux.HandleFunc("/debug/discovery", s.handleDiscovery)
	mux.HandleFunc("/debug/topology", s.handleTopology)
	mux.HandleFunc("/debug/topology/journal", s.handleJournal)
	mux.HandleFunc("/debug/runtime", s.handleRuntime)

	if s.config.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	// pprof 端点
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.HandleFunc("/health", s.handleHealth)

	for path, handler := range s.config.CustomHandlers {
		mux.HandleFunc(path, handler)
	}
	return mux
}

// Start 启动服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.startTime = time.Now()

	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("自省服务异常退出", "error", err)
		}
	}()

	s.running = true
	logger.Info("自省服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("关闭自省服务失败", "error", err)
		return err
	}

	s.running = false
	logger.Info("自省服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// ============================================================================
//                              响应结构
// ============================================================================

// IntrospectResponse 完整诊断响应
type IntrospectResponse struct {
	Timestamp time.Time         `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Discovery *DiscoverySummary `json:"discovery,omitempty"`
	Topology  *TopologySummary  `json:"topology,omitempty"`
	Fabric    *fabric.Stats     `json:"fabric,omitempty"`
	Runtime   *RuntimeInfo      `json:"runtime,omitempty"`
}

// DiscoverySummary 发现引擎摘要
type DiscoverySummary struct {
	Tick                   uint64         `json:"tick"`
	Ports                  map[string]int `json:"ports"`
	ActiveEdges            int            `json:"active_edges"`
	ProductionEdges        int            `json:"production_edges"`
	ConsistencyCorrections uint64         `json:"consistency_corrections"`
	DroppedFrames          uint64         `json:"dropped_frames"`
	Error                  string         `json:"error,omitempty"`
}

// TopologySummary 拓扑摘要
type TopologySummary struct {
	Links      int `json:"links"`
	Production int `json:"production"`
	Journal    int `json:"journal"`
}

// RuntimeInfo 运行时信息
type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc"`
	MemSys       uint64 `json:"mem_sys"`
	NumGC        uint32 `json:"num_gc"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime,omitempty"`
}

// ============================================================================
//                              HTTP 处理器
// ============================================================================

// handleIntrospect 处理完整诊断请求
func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	response := IntrospectResponse{
		Timestamp: time.Now(),
		Uptime:    s.uptime(),
		Discovery: s.collectDiscovery(r.Context()),
		Topology:  s.collectTopology(),
		Runtime:   collectRuntimeInfo(),
	}
	if s.config.Fabric != nil {
		st := s.config.Fabric.Stats()
		response.Fabric = &st
	}

	writeJSON(w, response)
}

// handleDiscovery 返回发现引擎完整快照
func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if s.config.Discovery == nil {
		http.Error(w, "Discovery not available", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
	defer cancel()
	snap, err := s.config.Discovery.Snapshot(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

// handleTopology 返回当前拓扑
func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if s.config.Topology == nil {
		http.Error(w, "Topology not available", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.config.Topology.Links())
}

// handleJournal 返回拓扑变更日志
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	if s.config.Topology == nil {
		http.Error(w, "Topology not available", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.config.Topology.Journal())
}

// handleRuntime 处理运行时信息请求
func (s *Server) handleRuntime(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}
	writeJSON(w, collectRuntimeInfo())
}

// handleHealth 处理健康检查请求
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !allowGet(w, r) {
		return
	}

	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    s.uptime(),
	}

	// 发现引擎缺失或不可查询
	if s.config.Discovery == nil {
		health.Status = "degraded"
	} else {
		ctx, cancel := context.WithTimeout(r.Context(), snapshotTimeout)
		defer cancel()
		if _, err := s.config.Discovery.Snapshot(ctx); err != nil {
			health.Status = "degraded"
		}
	}

	writeJSON(w, health)
}

// ============================================================================
//                              数据收集
// ============================================================================

func (s *Server) collectDiscovery(ctx context.Context) *DiscoverySummary {
	if s.config.Discovery == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()
	snap, err := s.config.Discovery.Snapshot(ctx)
	if err != nil {
		return &DiscoverySummary{Error: err.Error()}
	}

	ports := make(map[string]int)
	for _, st := range snap.Ports {
		ports[st.String()]++
	}
	return &DiscoverySummary{
		Tick:                   snap.Tick,
		Ports:                  ports,
		ActiveEdges:            len(snap.ActiveEdges),
		ProductionEdges:        len(snap.ProductionEdges),
		ConsistencyCorrections: snap.ConsistencyCorrections,
		DroppedFrames:          snap.DroppedFrames,
	}
}

func (s *Server) collectTopology() *TopologySummary {
	if s.config.Topology == nil {
		return nil
	}

	links := s.config.Topology.Links()
	sum := &TopologySummary{
		Links:   len(links),
		Journal: len(s.config.Topology.Journal()),
	}
	for _, l := range links {
		if l.Production {
			sum.Production++
		}
	}
	return sum
}

func collectRuntimeInfo() *RuntimeInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &RuntimeInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

// ============================================================================
//                              辅助方法
// ============================================================================

// uptime 只在处理器中调用，startTime 在 Serve 之前写入
func (s *Server) uptime() string {
	if s.startTime.IsZero() {
		return ""
	}
	return time.Since(s.startTime).String()
}

func allowGet(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// writeJSON 写入 JSON 响应
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		logger.Error("JSON 编码失败", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
