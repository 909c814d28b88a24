package topology

import "github.com/dep2p/go-linkdisc/pkg/types"

// ============================================================================
//                              发现时钟
// ============================================================================

// runTick 执行一个 tick：超时检查、老化检查、一致性检查、批量探测
func (e *engine) runTick() {
	e.applyPending()
	e.tick++

	e.checkTimeouts()
	e.checkAging()
	e.checkConsistency()
	e.dispatchBatch()

	e.metrics.ticks.Inc()
	e.metrics.observe(e.store, e.rec)
}

// checkTimeouts HoldTimer 到期的主动边被移除；ElapsedTimer 到期的新端口获得一次重试
func (e *engine) checkTimeouts() {
	var expired []types.Port
	for p, n := range e.store.hold {
		n++
		e.store.hold[p] = n
		if n >= e.params.TimeoutTicks {
			expired = append(expired, p)
		}
	}
	sortPorts(expired)
	for _, p := range expired {
		logger.Info("主动边超时", "port", p.String(), "ticks", e.params.TimeoutTicks)
		e.rec.RemoveActiveEdge(p, e.isEnabled(p))
		// 没有主动边的残留 HoldTimer
		e.store.clearHold(p)
	}

	var retry []types.Port
	for p, n := range e.store.elapsed {
		n++
		e.store.elapsed[p] = n
		if n >= e.params.ThresholdTicks {
			retry = append(retry, p)
		}
	}
	sortPorts(retry)
	for _, p := range retry {
		e.store.clearElapsed(p)
		if e.store.State(p) == types.ProbeStaging {
			e.store.moveTo(p, types.ProbeReadyLow)
			e.metrics.retries.Inc()
			logger.Debug("新端口未收到回显，授予一次重试", "port", p.String())
		}
	}
}

// checkAging 长时间未再监听到外部 LLDP 的生产边被移除
func (e *engine) checkAging() {
	if !e.cfg.EnableAging {
		return
	}
	var expired []types.Port
	for p, n := range e.rec.aging {
		n++
		e.rec.aging[p] = n
		if n > e.params.AgeoutTicks {
			expired = append(expired, p)
		}
	}
	sortPorts(expired)
	for _, p := range expired {
		logger.Info("生产边老化", "port", p.String())
		e.rec.RemoveProductionEdge(p)
	}
}

// checkConsistency 每 ConsistencyTicks 个 tick 与清单的权威快照对账一次
func (e *engine) checkConsistency() {
	e.sinceConsistency++
	if e.sinceConsistency < e.params.ConsistencyTicks {
		return
	}
	e.sinceConsistency = 0
	e.reconcileInventory()
}

// reconcileInventory 修正丢失生命周期事件造成的偏差
//
//   - 端口已不再启用的主动边被移除
//   - 仍被跟踪但不在任何容器中的端口回到 Staging
//   - 已启用却未被跟踪的端口加入 Staging
func (e *engine) reconcileInventory() int {
	if e.source == nil {
		return 0
	}
	enabled := types.NewPortSet(e.source.EnabledPorts()...)
	fixed := 0

	heads := make([]types.Port, 0, len(e.rec.active))
	for head := range e.rec.active {
		heads = append(heads, head)
	}
	sortPorts(heads)
	for _, head := range heads {
		if !enabled.Has(head) && e.rec.RemoveActiveEdge(head, false) {
			fixed++
		}
	}

	for p := range e.store.hold {
		if e.store.ensureStaged(p) {
			fixed++
		}
	}

	for p := range enabled {
		if p.IsSpecial() || e.tombstoned(p.Node) || e.store.IsTracked(p) {
			continue
		}
		e.store.moveTo(p, types.ProbeStaging)
		fixed++
	}

	if fixed > 0 {
		e.corrections += uint64(fixed)
		e.metrics.corrections.Add(float64(fixed))
		logger.Info("一致性检查修正", "corrections", fixed, "total", e.corrections)
	}
	return fixed
}

// dispatchBatch 批量探测
//
// batchCounter ≤ BatchPauseTicks 时取出就绪端口交给发送器（ReadyHigh 优先），
// 每轮达到 BatchRestartTicks 后重置计数并将 Staging 全部提升到 ReadyLow。
func (e *engine) dispatchBatch() {
	if e.batchCounter <= e.params.BatchPauseTicks {
		limit := e.params.BatchMaxPorts
		if e.cfg.Throttling {
			limit = 0
		}
		for _, d := range e.store.popReady(limit) {
			if d.fromHigh && !e.rec.HasActiveTail(d.port) {
				e.store.armElapsed(d.port)
			}
			if e.probes != nil {
				e.probes.Enqueue(d.port)
			}
		}
	}

	e.batchCounter++
	if e.batchCounter >= e.params.BatchRestartTicks {
		e.batchCounter = 0
		if n := e.store.promoteStaging(); n > 0 {
			logger.Debug("新一轮探测", "ports", n, "tick", e.tick)
		}
	}
}
