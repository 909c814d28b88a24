// Package main 提供 linkdisc 命令行入口
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dep2p/go-linkdisc"
	"github.com/dep2p/go-linkdisc/config"
	"github.com/dep2p/go-linkdisc/pkg/lib/log"
)

var logger = log.Logger("linkdisc/cmd")

// ═══════════════════════════════════════════════════════════════════════════
// 命令行参数
// ═══════════════════════════════════════════════════════════════════════════
//
//   命令行参数：运行时覆盖（本次运行怎么跑）
//   JSON 配置文件：发现参数、诊断服务、日志
//   网络描述文件：模拟交换机、线缆与外部邻居
//
// ═══════════════════════════════════════════════════════════════════════════
var (
	configFile     = flag.String("config", "", "配置文件路径")
	fabricFile     = flag.String("fabric", "", "模拟网络描述文件路径 (JSON 或 YAML)")
	introspectAddr = flag.String("introspect", "", "启用自省服务并监听该地址（如 127.0.0.1:6060）")
	logLevel       = flag.String("log-level", "", "日志级别，格式同 LINKDISC_LOG_LEVEL（如 discovery/topology=debug,info）")
	statusInterval = flag.Duration("status", 0, "周期打印拓扑摘要的间隔（0 = 不打印）")
	showVersion    = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Usage = printHelp
	flag.Parse()

	if *showVersion {
		printVersion(os.Stdout)
		return nil
	}

	cfg := config.NewConfig()
	if *configFile != "" {
		var err error
		if cfg, err = config.LoadFile(*configFile); err != nil {
			return fmt.Errorf("加载配置文件失败: %w", err)
		}
	}

	closeLog, err := setupLogging(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "警告: %v\n", err)
		fmt.Fprintln(os.Stderr, "将继续使用控制台输出日志")
	}
	defer closeLog()

	opts := buildOptions(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("📦 %s\n", linkdisc.VersionInfo())
	logger.Info("启动链路发现控制器", "version", linkdisc.Version, "commit", linkdisc.GitCommit)

	ctrl, err := linkdisc.Start(ctx, opts...)
	if err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = ctrl.Close() }()

	if addr := ctrl.IntrospectAddr(); addr != "" {
		fmt.Printf("自省服务: http://%s/debug/introspect\n", addr)
	}
	fmt.Println("控制器已启动，按 Ctrl+C 退出")

	waitForSignal(ctx, ctrl, *statusInterval)

	fmt.Println("\n正在关闭控制器...")
	printTopology(os.Stdout, ctrl)
	return nil
}

// buildOptions 合并配置文件与命令行参数
//
// 优先级：命令行参数 > 配置文件 > 默认值
func buildOptions(cfg *config.Config) []linkdisc.Option {
	opts := []linkdisc.Option{linkdisc.WithConfig(cfg)}

	if *fabricFile != "" {
		opts = append(opts, linkdisc.WithFabricFile(*fabricFile))
	}
	if *introspectAddr != "" {
		opts = append(opts,
			linkdisc.WithIntrospect(true),
			linkdisc.WithIntrospectAddr(*introspectAddr),
		)
	}
	return opts
}

// setupLogging 初始化日志：命令行级别优先于配置文件，环境变量优先于两者
func setupLogging(lc config.LogConfig) (func(), error) {
	level := lc.Level
	if *logLevel != "" {
		level = *logLevel
	}
	if env := os.Getenv(log.EnvLevel); env != "" {
		level = env
	}
	format := lc.Format
	if env := os.Getenv(log.EnvFormat); env != "" {
		format = env
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	var err error
	if lc.File != "" {
		f, openErr := os.OpenFile(lc.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if openErr != nil {
			err = fmt.Errorf("打开日志文件失败: %w", openErr)
		} else {
			w = f
			closeFn = func() { _ = f.Close() }
		}
	}

	log.Setup(w, log.ParseConfig(level, format))
	return closeFn, err
}

// waitForSignal 等待退出信号，期间按间隔打印拓扑摘要
func waitForSignal(ctx context.Context, ctrl *linkdisc.Controller, interval time.Duration) {
	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			printStatus(ctx, os.Stdout, ctrl)
		}
	}
}
