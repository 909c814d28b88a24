package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dep2p/go-linkdisc"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

// printStatus 打印发现引擎摘要
func printStatus(ctx context.Context, w io.Writer, ctrl *linkdisc.Controller) {
	qctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	snap, err := ctrl.Snapshot(qctx)
	if err != nil {
		fmt.Fprintf(w, "[status] 查询失败: %v\n", err)
		return
	}
	fmt.Fprintf(w, "[status] tick=%d ports=%d (high=%d low=%d staging=%d) active=%d production=%d dropped=%d\n",
		snap.Tick,
		len(snap.Ports),
		snap.CountState(types.ProbeReadyHigh),
		snap.CountState(types.ProbeReadyLow),
		snap.CountState(types.ProbeStaging),
		len(snap.ActiveEdges),
		len(snap.ProductionEdges),
		snap.DroppedFrames,
	)
}

// printTopology 打印当前拓扑
func printTopology(w io.Writer, ctrl *linkdisc.Controller) {
	links := ctrl.Topology().Links()
	fmt.Fprintf(w, "当前拓扑: %d 条边\n", len(links))
	for _, l := range links {
		kind := "active"
		if l.Production {
			kind = "production"
		}
		fmt.Fprintf(w, "  %-10s %s\n", kind, l.Edge)
	}
}

// printVersion 打印版本信息
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "linkdisc %s\n", linkdisc.Version)
	if linkdisc.GitCommit != "" {
		fmt.Fprintf(w, "  commit: %s\n", linkdisc.GitCommit)
	}
	if linkdisc.BuildDate != "" {
		fmt.Fprintf(w, "  built:  %s\n", linkdisc.BuildDate)
	}
}

// printHelp 打印帮助信息
func printHelp() {
	out := flag.CommandLine.Output()
	fmt.Fprintln(out, "linkdisc - SDN 控制器 LLDP 链路发现")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "用法:")
	fmt.Fprintln(out, "  linkdisc [选项]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "选项:")
	flag.PrintDefaults()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "环境变量:")
	fmt.Fprintf(out, "  LINKDISC_LOG_LEVEL    日志级别\n")
	fmt.Fprintf(out, "  LINKDISC_LOG_FORMAT   日志格式 (text/json)\n")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "示例:")
	fmt.Fprintln(out, "  linkdisc -fabric fabric.json -introspect 127.0.0.1:6060 -status 10s")
}
