package tensorlink

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/fx"

	"github.com/tensorlink/go-tensorlink/internal/config"
	"github.com/tensorlink/go-tensorlink/internal/core/axon"
	"github.com/tensorlink/go-tensorlink/internal/core/nat/extip"
	"github.com/tensorlink/go-tensorlink/internal/core/nat/upnp"
	"github.com/tensorlink/go-tensorlink/internal/core/receptor"
	"github.com/tensorlink/go-tensorlink/pkg/lib/log"
)

var logger = log.Logger("tensorlink")

// startStopTimeout fx 生命周期超时
const startStopTimeout = 30 * time.Second

// Node TensorLink 节点
//
// 聚合 Axon 服务端、外部地址发现与端口映射，生命周期由内部 Fx
// 应用驱动。Start/Stop 幂等性由调用方保证一次配对调用。
type Node struct {
	cfg *config.Config
	app *fx.App

	// fx 注入的组件
	axon   *axon.Axon
	server *axon.Server

	mu         sync.RWMutex
	started    bool
	externalIP string
	mapper     *upnp.Mapper
	mappedPort int
}

// New 创建节点（不启动）
func New(opts ...Option) (*Node, error) {
	cfg := defaultNodeConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	node := &Node{cfg: cfg.config}
	app, err := buildFxApp(cfg, node)
	if err != nil {
		return nil, err
	}
	node.app = app
	return node, nil
}

// Start 启动节点：开始监听、探测外部地址、建立端口映射
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	if n.started {
		n.mu.Unlock()
		return ErrNodeAlreadyStarted
	}
	n.started = true
	n.mu.Unlock()

	startCtx, cancel := context.WithTimeout(ctx, startStopTimeout)
	defer cancel()

	if err := n.app.Start(startCtx); err != nil {
		n.mu.Lock()
		n.started = false
		n.mu.Unlock()
		return err
	}

	logger.Info("节点已启动", "version", Version, "addr", n.server.Addr().String())
	return nil
}

// Stop 停止节点并清理端口映射
func (n *Node) Stop(ctx context.Context) error {
	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return ErrNodeNotStarted
	}
	n.started = false
	n.mu.Unlock()

	stopCtx, cancel := context.WithTimeout(ctx, startStopTimeout)
	defer cancel()

	err := n.app.Stop(stopCtx)
	if err != nil {
		return err
	}
	logger.Info("节点已停止")
	return nil
}

// Serve 注册/替换当前服务的 Synapse
func (n *Node) Serve(s axon.Synapse) {
	n.axon.Serve(s)
}

// Serving 返回当前是否有已注册的 Synapse
func (n *Node) Serving() bool {
	return n.axon.Serving()
}

// Addr 返回 Axon 实际监听地址（未启动时为 nil）
func (n *Node) Addr() net.Addr {
	return n.server.Addr()
}

// ExternalIP 返回启动时发现的外部地址
func (n *Node) ExternalIP() (string, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.externalIP == "" {
		return "", ErrNoExternalAddress
	}
	return n.externalIP, nil
}

// MappedPort 返回 UPnP 映射占用的外部端口（0 表示无映射）
func (n *Node) MappedPort() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.mappedPort
}

// Connect 创建指向远端 Axon 的客户端
func (n *Node) Connect(addr string, opts ...receptor.Option) *receptor.Receptor {
	return receptor.New(addr, opts...)
}

// ════════════════════════════════════════════════════════════════════════════
//                              NAT 启动任务
// ════════════════════════════════════════════════════════════════════════════

// discoverExternalIP 启动时的外部地址探测（尽力而为）
func (n *Node) discoverExternalIP(ctx context.Context, chain *extip.Chain) {
	ip, err := chain.Discover(ctx)
	if err != nil {
		logger.Warn("外部地址发现失败", "err", err)
		return
	}
	n.mu.Lock()
	n.externalIP = ip
	n.mu.Unlock()
}

// mapListenPort 启动时的 UPnP 端口映射（尽力而为）
func (n *Node) mapListenPort(ctx context.Context) {
	addr, ok := n.server.Addr().(*net.TCPAddr)
	if !ok || addr == nil {
		return
	}

	mapper, err := upnp.NewMapper()
	if err != nil {
		logger.Warn("未发现 UPnP 网关，跳过端口映射", "err", err)
		return
	}

	externalPort, err := mapper.CreateMapping(ctx, addr.Port)
	if err != nil {
		logger.Warn("UPnP 端口映射失败", "err", err)
		_ = mapper.Close()
		return
	}

	n.mu.Lock()
	n.mapper = mapper
	n.mappedPort = externalPort
	n.mu.Unlock()
}

// closeMapper 停止时清理端口映射
func (n *Node) closeMapper() {
	n.mu.Lock()
	mapper := n.mapper
	n.mapper = nil
	n.mappedPort = 0
	n.mu.Unlock()

	if mapper != nil {
		_ = mapper.Close()
	}
}
