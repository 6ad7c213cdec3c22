// Package receptor 实现远端 Axon 的流式客户端
//
// 与 Axon 服务端使用相同的帧格式（uvarint 长度前缀 + msgpack
// 信封）。每次调用独立拨号，截止时间由 ctx 或默认超时控制。
package receptor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/multiformats/go-varint"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tensorlink/go-tensorlink/pkg/lib/log"
	"github.com/tensorlink/go-tensorlink/pkg/types"
)

var logger = log.Logger("receptor")

// 错误定义
var (
	// ErrFrameTooLarge 响应帧长度超出上限
	ErrFrameTooLarge = errors.New("receptor: frame too large")
)

// maxFrameSize 响应帧上限，与服务端保持一致
const maxFrameSize = 64 << 20

// DefaultCallTimeout 单次调用的默认超时
const DefaultCallTimeout = 30 * time.Second

// envelope 请求信封（与服务端对应）
type envelope struct {
	Method  string               `msgpack:"method"`
	Message *types.TensorMessage `msgpack:"message"`
}

// Receptor 远端 Axon 客户端
type Receptor struct {
	addr    string
	timeout time.Duration
	dialer  net.Dialer
}

// Option Receptor 配置选项
type Option func(*Receptor)

// WithCallTimeout 设置单次调用超时
func WithCallTimeout(d time.Duration) Option {
	return func(r *Receptor) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// New 创建指向远端 Axon 的客户端
func New(addr string, opts ...Option) *Receptor {
	r := &Receptor{
		addr:    addr,
		timeout: DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Forward 发起前向调用
func (r *Receptor) Forward(ctx context.Context, msg *types.TensorMessage) (*types.TensorResponse, error) {
	return r.call(ctx, "forward", msg)
}

// Backward 发起反向调用
func (r *Receptor) Backward(ctx context.Context, msg *types.TensorMessage) (*types.TensorResponse, error) {
	return r.call(ctx, "backward", msg)
}

// call 拨号、发送信封、等待响应
func (r *Receptor) call(ctx context.Context, method string, msg *types.TensorMessage) (*types.TensorResponse, error) {
	callCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	conn, err := r.dialer.DialContext(callCtx, "tcp", r.addr)
	if err != nil {
		return nil, fmt.Errorf("receptor: dial %s: %w", r.addr, err)
	}
	defer conn.Close()

	if deadline, ok := callCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	data, err := msgpack.Marshal(&envelope{Method: method, Message: msg})
	if err != nil {
		return nil, fmt.Errorf("receptor: encode request: %w", err)
	}
	if _, err := conn.Write(varint.ToUvarint(uint64(len(data)))); err != nil {
		return nil, fmt.Errorf("receptor: write frame: %w", err)
	}
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("receptor: write frame: %w", err)
	}

	reader := bufio.NewReader(conn)
	length, err := varint.ReadUvarint(reader)
	if err != nil {
		return nil, fmt.Errorf("receptor: read frame: %w", err)
	}
	if length > maxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(reader, body); err != nil {
		return nil, fmt.Errorf("receptor: read frame: %w", err)
	}

	resp := &types.TensorResponse{}
	if err := msgpack.Unmarshal(body, resp); err != nil {
		return nil, fmt.Errorf("receptor: decode response: %w", err)
	}

	logger.Debug("调用完成", "method", method, "code", resp.ReturnCode.String())
	return resp, nil
}
