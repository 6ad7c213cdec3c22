// Package main 提供 tensorlink 命令行入口
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/tensorlink/go-tensorlink"
	"github.com/tensorlink/go-tensorlink/internal/config"
	"github.com/tensorlink/go-tensorlink/internal/core/tensor"
	"github.com/tensorlink/go-tensorlink/pkg/lib/log"
	"github.com/tensorlink/go-tensorlink/pkg/types"
)

var logger = log.Logger("tensorlink/cmd")

// 命令行参数
//
// 命令行参数用于运行时覆盖与快速测试；持久化配置走 TOML 文件。
var (
	listenAddr  = flag.String("listen", "", "监听地址（覆盖配置文件）")
	configFile  = flag.String("config", "", "配置文件路径（TOML）")
	mapPort     = flag.Bool("map-port", false, "启用 UPnP 端口映射")
	showVersion = flag.Bool("version", false, "显示版本信息")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flag.Parse()

	if *showVersion {
		fmt.Println(tensorlink.VersionInfo())
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("启动 tensorlink 节点", "version", tensorlink.Version)

	node, err := tensorlink.New(
		tensorlink.WithConfig(cfg),
		tensorlink.WithSynapse(&echoSynapse{}),
	)
	if err != nil {
		return fmt.Errorf("创建节点失败: %w", err)
	}

	if err := node.Start(ctx); err != nil {
		return fmt.Errorf("启动失败: %w", err)
	}
	defer func() { _ = node.Stop(context.Background()) }()

	fmt.Printf("节点已启动: %s，按 Ctrl+C 退出\n", node.Addr())
	waitForSignal()

	fmt.Println("\n正在关闭节点...")
	return nil
}

// loadConfig 加载配置：配置文件优先，命令行参数覆盖
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败: %w", err)
		}
	}

	if *listenAddr != "" {
		cfg.Axon.ListenAddr = *listenAddr
	}
	if isFlagSet("map-port") {
		cfg.NAT.MapPort = *mapPort
	}
	return cfg, nil
}

// setupLogging 按配置设置全局日志
func setupLogging(cfg *config.Config) {
	level := log.LevelInfo
	switch cfg.Log.Level {
	case "debug":
		level = log.LevelDebug
	case "warn":
		level = log.LevelWarn
	case "error":
		level = log.LevelError
	}

	if cfg.Log.JSON {
		log.SetDefault(log.NewJSON(os.Stderr, &slog.HandlerOptions{Level: level}))
		return
	}
	log.SetLevel(level)
}

// isFlagSet 检查命令行参数是否被显式设置
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// waitForSignal 等待退出信号
func waitForSignal() {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	<-signals
}

// echoSynapse 回显 Synapse：前向原样返回输入，反向原样返回梯度
//
// 用于部署验证与互通测试。
type echoSynapse struct{}

func (e *echoSynapse) Forward(_ context.Context, input *tensor.Dense) (*tensor.Dense, string, types.ReturnCode) {
	return input, "echo", types.Success
}

func (e *echoSynapse) Backward(_ context.Context, _, grad *tensor.Dense) (*tensor.Dense, string, types.ReturnCode) {
	return grad, "echo", types.Success
}
