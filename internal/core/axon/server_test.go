package axon

import (
	"bufio"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/multiformats/go-varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/tensorlink/go-tensorlink/internal/core/tensor"
	"github.com/tensorlink/go-tensorlink/pkg/types"
)

// startTestServer 启动一个回显服务端，测试结束时自动停止
func startTestServer(t *testing.T, opts ...ServerOption) *Server {
	t.Helper()
	a := New()
	a.Serve(&echoSynapse{})
	server := NewServer(a, opts...)
	require.NoError(t, server.Start(context.Background(), "127.0.0.1:0"))
	t.Cleanup(func() { _ = server.Stop(context.Background()) })
	return server
}

// rawCall 直接在 TCP 连接上发送信封并读取响应
func rawCall(t *testing.T, addr string, env *envelope) *types.TensorResponse {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	data, err := msgpack.Marshal(env)
	require.NoError(t, err)
	_, err = conn.Write(varint.ToUvarint(uint64(len(data))))
	require.NoError(t, err)
	_, err = conn.Write(data)
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	length, err := varint.ReadUvarint(reader)
	require.NoError(t, err)
	body := make([]byte, length)
	_, err = io.ReadFull(reader, body)
	require.NoError(t, err)

	resp := &types.TensorResponse{}
	require.NoError(t, msgpack.Unmarshal(body, resp))
	return resp
}

func TestServerLifecycle(t *testing.T) {
	t.Run("启动后有监听地址", func(t *testing.T) {
		server := startTestServer(t)
		require.NotNil(t, server.Addr())
	})

	t.Run("重复启动报错", func(t *testing.T) {
		server := startTestServer(t)
		err := server.Start(context.Background(), "127.0.0.1:0")
		require.ErrorIs(t, err, ErrServerAlreadyStarted)
	})

	t.Run("未启动时停止报错", func(t *testing.T) {
		server := NewServer(New())
		err := server.Stop(context.Background())
		require.ErrorIs(t, err, ErrServerNotStarted)
	})

	t.Run("停止后拒绝新连接", func(t *testing.T) {
		a := New()
		server := NewServer(a)
		require.NoError(t, server.Start(context.Background(), "127.0.0.1:0"))
		addr := server.Addr().String()
		require.NoError(t, server.Stop(context.Background()))

		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			// 连接可能瞬间建立，但读取必然失败
			_ = conn.SetReadDeadline(time.Now().Add(time.Second))
			_, rerr := conn.Read(make([]byte, 1))
			assert.Error(t, rerr)
			_ = conn.Close()
		}
	})
}

func TestServerDispatch(t *testing.T) {
	input, err := tensor.FromFloat32(tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	t.Run("前向回显", func(t *testing.T) {
		server := startTestServer(t)
		resp := rawCall(t, server.Addr().String(), &envelope{
			Method:  MethodForward,
			Message: forwardRequest(t, input),
		})

		require.Equal(t, types.Success, resp.ReturnCode, resp.Message)
		require.Len(t, resp.Tensors, 1)
		got := decodeTensor(t, resp.Tensors[0])
		assert.True(t, input.Equal(got))
	})

	t.Run("反向回显", func(t *testing.T) {
		server := startTestServer(t)
		grad, err := tensor.FromFloat32(tensor.Shape{2, 3}, []float32{6, 5, 4, 3, 2, 1})
		require.NoError(t, err)

		resp := rawCall(t, server.Addr().String(), &envelope{
			Method:  MethodBackward,
			Message: forwardRequest(t, input, grad),
		})

		require.Equal(t, types.Success, resp.ReturnCode, resp.Message)
		require.Len(t, resp.Tensors, 1)
		got := decodeTensor(t, resp.Tensors[0])
		assert.True(t, grad.Equal(got))
	})

	t.Run("未知方法返回 InvalidRequest", func(t *testing.T) {
		server := startTestServer(t)
		resp := rawCall(t, server.Addr().String(), &envelope{
			Method:  "train",
			Message: forwardRequest(t, input),
		})
		assert.Equal(t, types.InvalidRequest, resp.ReturnCode)
		assert.Contains(t, resp.Message, ErrUnknownMethod.Error())
		assert.Contains(t, resp.Message, "train")
	})

	t.Run("同一连接串行多请求", func(t *testing.T) {
		server := startTestServer(t)
		conn, err := net.Dial("tcp", server.Addr().String())
		require.NoError(t, err)
		defer conn.Close()
		require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
		reader := bufio.NewReader(conn)

		for i := 0; i < 3; i++ {
			data, err := msgpack.Marshal(&envelope{
				Method:  MethodForward,
				Message: forwardRequest(t, input),
			})
			require.NoError(t, err)
			_, err = conn.Write(varint.ToUvarint(uint64(len(data))))
			require.NoError(t, err)
			_, err = conn.Write(data)
			require.NoError(t, err)

			length, err := varint.ReadUvarint(reader)
			require.NoError(t, err)
			body := make([]byte, length)
			_, err = io.ReadFull(reader, body)
			require.NoError(t, err)

			resp := &types.TensorResponse{}
			require.NoError(t, msgpack.Unmarshal(body, resp))
			assert.Equal(t, types.Success, resp.ReturnCode)
		}
	})

	t.Run("请求超时折算为 UnknownException", func(t *testing.T) {
		a := New()
		release := make(chan struct{})
		defer close(release)
		a.Serve(&funcSynapse{
			forward: func(_ context.Context, input *tensor.Dense) (*tensor.Dense, string, types.ReturnCode) {
				<-release
				return input, "", types.Success
			},
		})
		server := NewServer(a, WithRequestTimeout(50*time.Millisecond))
		require.NoError(t, server.Start(context.Background(), "127.0.0.1:0"))
		t.Cleanup(func() { _ = server.Stop(context.Background()) })

		resp := rawCall(t, server.Addr().String(), &envelope{
			Method:  MethodForward,
			Message: forwardRequest(t, input),
		})
		assert.Equal(t, types.UnknownException, resp.ReturnCode)
	})
}
