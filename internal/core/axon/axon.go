// Package axon 实现请求验证与服务状态机
//
// Axon 接收线上请求消息，按固定顺序验证结构、解码张量、分发给
// 已注册的 Synapse、再把结果编码回线格式，并在每条路径上给出
// 封闭枚举中的一个状态码。内部故障永远不会以错误形式越过 RPC
// 边界——调用方总能拿到一个结构完整的 TensorResponse。
package axon

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mr-tron/base58"

	"github.com/tensorlink/go-tensorlink/internal/core/serialize"
	"github.com/tensorlink/go-tensorlink/internal/core/tensor"
	"github.com/tensorlink/go-tensorlink/pkg/lib/log"
	"github.com/tensorlink/go-tensorlink/pkg/types"
)

var logger = log.Logger("axon")

// Synapse 外部提供的计算能力
//
// Forward/Backward 返回 (结果张量, 可读消息, 状态码) 三元组。
// 实现不归本核心所有；Axon 同一时刻至多持有一个已注册实例，
// 注册新实例原子地替换旧实例。
type Synapse interface {
	// Forward 前向计算
	Forward(ctx context.Context, input *tensor.Dense) (*tensor.Dense, string, types.ReturnCode)

	// Backward 反向计算（输入为前向输出值与对应梯度）
	Backward(ctx context.Context, input, grad *tensor.Dense) (*tensor.Dense, string, types.ReturnCode)
}

// served 已注册 Synapse 的不可变快照单元
type served struct {
	synapse Synapse
}

// Axon 请求验证/服务状态机
//
// served 引用遵循单写多读：Serve 原子替换，每个请求在验证开始时
// 读取一次快照并在整个请求期间使用它。与进行中请求并发的 Serve
// 调用不影响该请求，但影响其后开始的所有请求。
type Axon struct {
	served  atomic.Pointer[served]
	metrics *metrics
}

// New 创建 Axon
func New(opts ...Option) *Axon {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Axon{
		metrics: newMetrics(cfg.Registerer),
	}
}

// Serve 注册/替换当前服务的 Synapse
//
// 这是 served 状态唯一的修改入口，可与进行中的请求处理并发调用；
// 其效果对严格晚于返回之后收到的请求可见。
func (a *Axon) Serve(s Synapse) {
	if s == nil {
		a.served.Store(nil)
		return
	}
	a.served.Store(&served{synapse: s})
}

// Serving 返回当前是否有已注册的 Synapse
func (a *Axon) Serving() bool {
	snapshot := a.served.Load()
	return snapshot != nil && snapshot.synapse != nil
}

// Forward 处理前向请求
//
// 状态机：无 Synapse → NotServingSynapse；零张量 → EmptyRequest；
// 任一张量解码失败（按序短路）→ RequestDeserializationException；
// Synapse 返回非 Success 状态码原样透传且不附带结果张量；
// Success 时用输入的模态与框架标签重新编码结果，作为响应的
// 唯一张量。
func (a *Axon) Forward(ctx context.Context, req *types.TensorMessage) *types.TensorResponse {
	start := time.Now()
	resp := a.forward(ctx, req)
	a.metrics.observe("forward", resp.ReturnCode, time.Since(start).Seconds())
	return resp
}

func (a *Axon) forward(ctx context.Context, req *types.TensorMessage) *types.TensorResponse {
	snapshot := a.served.Load()
	if snapshot == nil || snapshot.synapse == nil {
		return response(types.NotServingSynapse, "axon is not serving a synapse")
	}
	if req == nil || len(req.Tensors) == 0 {
		return response(types.EmptyRequest, "forward request contains no tensors")
	}

	logger.Debug("收到前向请求",
		"caller", callerID(req.PublicKey),
		"tensors", len(req.Tensors))

	decoded, err := decodeTensors(req.Tensors)
	if err != nil {
		return response(types.RequestDeserializationException, err.Error())
	}

	result := dispatch(ctx, func(ctx context.Context) (*tensor.Dense, string, types.ReturnCode) {
		return snapshot.synapse.Forward(ctx, decoded[0])
	})
	if result.code != types.Success {
		return response(result.code, result.message)
	}

	wire, err := encodeResult(result.value, req.Tensors[0])
	if err != nil {
		// 编码侧失败是服务方缺陷，对本请求致命，不重试
		return response(types.UnknownException, fmt.Sprintf("failed to serialize response tensor: %v", err))
	}
	return response(types.Success, result.message, wire)
}

// Backward 处理反向请求
//
// 与 Forward 相同的 Synapse 在位检查；结构验证要求恰好两个张量
// （前向输出值与对应梯度），其它数量（包括零个）一律
// InvalidRequest——与前向路径的 EmptyRequest 保持刻意的不对称。
func (a *Axon) Backward(ctx context.Context, req *types.TensorMessage) *types.TensorResponse {
	start := time.Now()
	resp := a.backward(ctx, req)
	a.metrics.observe("backward", resp.ReturnCode, time.Since(start).Seconds())
	return resp
}

func (a *Axon) backward(ctx context.Context, req *types.TensorMessage) *types.TensorResponse {
	snapshot := a.served.Load()
	if snapshot == nil || snapshot.synapse == nil {
		return response(types.NotServingSynapse, "axon is not serving a synapse")
	}
	if req == nil || len(req.Tensors) != 2 {
		n := 0
		if req != nil {
			n = len(req.Tensors)
		}
		return response(types.InvalidRequest,
			fmt.Sprintf("backward request requires exactly 2 tensors, got %d", n))
	}

	logger.Debug("收到反向请求", "caller", callerID(req.PublicKey))

	decoded, err := decodeTensors(req.Tensors)
	if err != nil {
		return response(types.RequestDeserializationException, err.Error())
	}

	result := dispatch(ctx, func(ctx context.Context) (*tensor.Dense, string, types.ReturnCode) {
		return snapshot.synapse.Backward(ctx, decoded[0], decoded[1])
	})
	if result.code != types.Success {
		return response(result.code, result.message)
	}

	wire, err := encodeResult(result.value, req.Tensors[0])
	if err != nil {
		return response(types.UnknownException, fmt.Sprintf("failed to serialize response tensor: %v", err))
	}
	return response(types.Success, result.message, wire)
}

// dispatchResult Synapse 调用的三元组结果
type dispatchResult struct {
	value   *tensor.Dense
	message string
	code    types.ReturnCode
}

// dispatch 在独立 goroutine 中调用 Synapse 并监督其完成
//
// panic 与 ctx 截止/取消统一折算为 UnknownException，保证请求
// 永远以一个终态结束。Synapse 返回枚举之外的状态码同样折算为
// UnknownException，维持封闭枚举契约。
func dispatch(ctx context.Context, call func(ctx context.Context) (*tensor.Dense, string, types.ReturnCode)) dispatchResult {
	resultCh := make(chan dispatchResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- dispatchResult{
					message: fmt.Sprintf("synapse call panicked: %v", r),
					code:    types.UnknownException,
				}
			}
		}()
		value, message, code := call(ctx)
		if !code.Valid() {
			value, message, code = nil, fmt.Sprintf("synapse returned invalid code %d", int32(code)), types.UnknownException
		}
		resultCh <- dispatchResult{value: value, message: message, code: code}
	}()

	select {
	case res := <-resultCh:
		return res
	case <-ctx.Done():
		return dispatchResult{
			message: "synapse call aborted: " + ctx.Err().Error(),
			code:    types.UnknownException,
		}
	}
}

// decodeTensors 按序解码请求中的全部张量，首个失败即短路
func decodeTensors(wires []*types.Tensor) ([]*tensor.Dense, error) {
	out := make([]*tensor.Dense, 0, len(wires))
	for i, wire := range wires {
		if wire == nil {
			return nil, fmt.Errorf("failed to deserialize tensor %d: nil entry", i)
		}
		serializer, err := serialize.GetSerializer(wire.Serializer)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize tensor %d: %w", i, err)
		}
		value, err := serializer.Deserialize(wire, wire.TensorType)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize tensor %d: %w", i, err)
		}
		out = append(out, value)
	}
	return out, nil
}

// encodeResult 用输入张量的模态/框架标签/编码器重新编码结果
func encodeResult(value *tensor.Dense, input *types.Tensor) (*types.Tensor, error) {
	serializer, err := serialize.GetSerializer(input.Serializer)
	if err != nil {
		return nil, err
	}
	return serializer.Serialize(value, input.Modality, input.TensorType)
}

// response 构造响应消息
func response(code types.ReturnCode, message string, tensors ...*types.Tensor) *types.TensorResponse {
	return &types.TensorResponse{
		ReturnCode: code,
		Message:    message,
		Tensors:    tensors,
	}
}

// callerID 渲染调用方标识（base58，截断）用于日志
func callerID(publicKey []byte) string {
	if len(publicKey) == 0 {
		return "unknown"
	}
	return log.TruncateID(base58.Encode(publicKey), 12)
}
