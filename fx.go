package tensorlink

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/tensorlink/go-tensorlink/internal/config"
	"github.com/tensorlink/go-tensorlink/internal/core/axon"
	"github.com/tensorlink/go-tensorlink/internal/core/nat/extip"
	"github.com/tensorlink/go-tensorlink/pkg/lib/log"
)

var fxLogger = log.Logger("tensorlink/fx")

// buildFxApp 构建 Fx 应用
//
// 组装顺序：
//  1. 配置注入与验证
//  2. 核心组件：Axon 状态机 → 流式服务端 → 外部地址探测链
//  3. 生命周期：启动监听、NAT 启动任务（尽力而为）、停止清理
func buildFxApp(cfg *nodeConfig, node *Node) (*fx.App, error) {
	if err := cfg.config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		// 配置注入
		fx.Supply(cfg.config),

		// 核心组件
		fx.Provide(func() *axon.Axon {
			a := axon.New(axon.WithRegisterer(cfg.registerer))
			if cfg.synapse != nil {
				a.Serve(cfg.synapse)
			}
			return a
		}),
		fx.Provide(func(a *axon.Axon, c *config.Config) *axon.Server {
			return axon.NewServer(a, axon.WithRequestTimeout(c.Axon.RequestTimeout.Duration()))
		}),
		fx.Provide(func(c *config.Config) *extip.Chain {
			return extip.NewChain(extip.WithProbeTimeout(c.NAT.ProbeTimeout.Duration()))
		}),

		// Node 组件注入 + 生命周期
		fx.Invoke(func(lc fx.Lifecycle, a *axon.Axon, server *axon.Server, chain *extip.Chain, c *config.Config) {
			node.axon = a
			node.server = server

			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					if err := server.Start(ctx, c.Axon.ListenAddr); err != nil {
						return err
					}
					// NAT 启动任务在后台执行，失败不阻止节点启动
					if c.NAT.DiscoverExternalIP {
						go node.discoverExternalIP(context.Background(), chain)
					}
					if c.NAT.MapPort {
						go node.mapListenPort(context.Background())
					}
					return nil
				},
				OnStop: func(ctx context.Context) error {
					node.closeMapper()
					return server.Stop(ctx)
				},
			})
		}),
	}

	// 用户扩展
	if len(cfg.userFxOptions) > 0 {
		modules = append(modules, cfg.userFxOptions...)
	}

	// Fx 自身的事件走 Debug 级别，不干扰业务日志
	modules = append(modules, fx.WithLogger(func() fxevent.Logger {
		l := &fxevent.SlogLogger{Logger: fxLogger.With()}
		l.UseLogLevel(log.LevelDebug)
		return l
	}))

	return fx.New(modules...), nil
}
