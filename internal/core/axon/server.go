package axon

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	tec "github.com/jbenet/go-temp-err-catcher"
	"github.com/multiformats/go-varint"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"github.com/tensorlink/go-tensorlink/pkg/types"
)

// maxFrameSize 单帧上限（张量缓冲区可能很大，但必须有界）
const maxFrameSize = 64 << 20 // 64 MiB

// 信封方法名
const (
	MethodForward  = "forward"
	MethodBackward = "backward"
)

// envelope 流上的请求信封：uvarint 长度前缀 + msgpack 编码的本结构
type envelope struct {
	Method  string               `msgpack:"method"`
	Message *types.TensorMessage `msgpack:"message"`
}

// Server Axon 的 TCP 流式传输端
//
// 帧格式：uvarint 长度前缀 + msgpack 信封。协议本身与传输无关，
// 这里只是本仓库自带的参考传输；消息形状与状态码语义才是契约。
type Server struct {
	axon   *Axon
	config *ServerConfig

	mu       sync.Mutex
	started  bool
	listener net.Listener
	cancel   context.CancelFunc
	group    *errgroup.Group
}

// NewServer 创建服务端
func NewServer(a *Axon, opts ...ServerOption) *Server {
	config := DefaultServerConfig()
	for _, opt := range opts {
		opt(config)
	}
	return &Server{
		axon:   a,
		config: config,
	}
}

// Start 在指定地址开始监听并处理连接
func (s *Server) Start(_ context.Context, listenAddr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrServerAlreadyStarted
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("axon: listen %s: %w", listenAddr, err)
	}

	// 接受循环的生命周期由 Stop 控制，不随调用方 ctx 取消
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	s.listener = listener
	s.cancel = cancel
	s.group = group
	s.started = true

	group.Go(func() error {
		return s.acceptLoop(ctx, listener)
	})

	logger.Info("Axon 服务端已启动", "addr", listener.Addr().String())
	return nil
}

// Addr 返回实际监听地址（Start 之前为 nil）
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop 停止监听并等待在途连接处理结束
func (s *Server) Stop(_ context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrServerNotStarted
	}
	s.started = false
	listener := s.listener
	cancel := s.cancel
	group := s.group
	s.mu.Unlock()

	cancel()
	_ = listener.Close()
	err := group.Wait()
	if err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("Axon 服务端已停止")
	return nil
}

// acceptLoop 接受循环，瞬时错误重试，其余错误退出
func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) error {
	var catcher tec.TempErrCatcher
	for {
		conn, err := listener.Accept()
		if err != nil {
			if catcher.IsTemporary(err) {
				continue
			}
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		s.group.Go(func() error {
			s.handleConn(ctx, conn)
			return nil
		})
	}
}

// handleConn 在单个连接上循环处理帧
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	for {
		if ctx.Err() != nil {
			return
		}

		env, err := readEnvelope(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				logger.Debug("读取请求帧失败", "remote", conn.RemoteAddr().String(), "err", err)
			}
			return
		}

		resp := s.serveEnvelope(ctx, env, conn.RemoteAddr().String())
		if err := writeResponse(conn, resp); err != nil {
			logger.Debug("写入响应帧失败", "remote", conn.RemoteAddr().String(), "err", err)
			return
		}
	}
}

// serveEnvelope 分发单个信封并保证总能产出响应
func (s *Server) serveEnvelope(ctx context.Context, env *envelope, remote string) *types.TensorResponse {
	requestID := uuid.NewString()
	logger.Debug("处理请求", "id", requestID, "method", env.Method, "remote", remote)

	reqCtx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	switch env.Method {
	case MethodForward:
		return s.axon.Forward(reqCtx, env.Message)
	case MethodBackward:
		return s.axon.Backward(reqCtx, env.Message)
	}
	return response(types.InvalidRequest, fmt.Errorf("%w: %q", ErrUnknownMethod, env.Method).Error())
}

// readEnvelope 读取一帧并解码信封
func readEnvelope(reader *bufio.Reader) (*envelope, error) {
	length, err := varint.ReadUvarint(reader)
	if err != nil {
		return nil, err
	}
	if length > maxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(reader, data); err != nil {
		return nil, err
	}

	env := &envelope{}
	if err := msgpack.Unmarshal(data, env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// writeResponse 编码响应并带长度前缀写入
func writeResponse(w io.Writer, resp *types.TensorResponse) error {
	data, err := msgpack.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	if _, err := w.Write(varint.ToUvarint(uint64(len(data)))); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
