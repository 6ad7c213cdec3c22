// Package tensorlink 提供张量 RPC 节点的顶层门面
//
// 一个 Node 聚合四个核心能力：
//   - Axon：请求验证与服务状态机，把线上消息解码、分发给已注册的
//     Synapse、再编码回线格式，每条路径给出封闭枚举中的状态码
//   - 张量编解码：msgpack 缓冲区容器，按框架标签（TORCH/NUMPY）
//     还原 requires_grad 语义
//   - 外部地址发现：有序探测链，首个成功者胜出
//   - UPnP 端口映射：从本地端口向上探测空闲外部端口
//
// 基本用法：
//
//	node, err := tensorlink.New(
//		tensorlink.WithListenAddr("0.0.0.0:8091"),
//		tensorlink.WithSynapse(mySynapse),
//	)
//	if err != nil { ... }
//	if err := node.Start(ctx); err != nil { ... }
//	defer node.Stop(ctx)
package tensorlink
