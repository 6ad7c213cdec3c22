package receptor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorlink/go-tensorlink/internal/core/axon"
	"github.com/tensorlink/go-tensorlink/internal/core/serialize"
	"github.com/tensorlink/go-tensorlink/internal/core/tensor"
	"github.com/tensorlink/go-tensorlink/pkg/types"
)

// echoSynapse 前向回显输入、反向回显梯度
type echoSynapse struct{}

func (e *echoSynapse) Forward(_ context.Context, input *tensor.Dense) (*tensor.Dense, string, types.ReturnCode) {
	return input, "echo", types.Success
}

func (e *echoSynapse) Backward(_ context.Context, _, grad *tensor.Dense) (*tensor.Dense, string, types.ReturnCode) {
	return grad, "echo", types.Success
}

func startEchoServer(t *testing.T) string {
	t.Helper()
	a := axon.New()
	a.Serve(&echoSynapse{})
	server := axon.NewServer(a)
	require.NoError(t, server.Start(context.Background(), "127.0.0.1:0"))
	t.Cleanup(func() { _ = server.Stop(context.Background()) })
	return server.Addr().String()
}

func encodeTensor(t *testing.T, value *tensor.Dense) *types.Tensor {
	t.Helper()
	s, err := serialize.GetSerializer(types.SerializerMsgpack)
	require.NoError(t, err)
	wire, err := s.Serialize(value, types.ModalityTensor, types.TensorTypeTorch)
	require.NoError(t, err)
	return wire
}

func TestReceptorForward(t *testing.T) {
	addr := startEchoServer(t)
	input, err := tensor.FromFloat32(tensor.Shape{3, 3}, []float32{1, 2, 3, 4, 5, 6, 7, 8, 9})
	require.NoError(t, err)

	r := New(addr)
	resp, err := r.Forward(context.Background(), &types.TensorMessage{
		Version:   types.ProtocolVersion,
		PublicKey: []byte("caller"),
		Tensors:   []*types.Tensor{encodeTensor(t, input)},
	})
	require.NoError(t, err)
	require.Equal(t, types.Success, resp.ReturnCode, resp.Message)
	require.Len(t, resp.Tensors, 1)

	s, err := serialize.GetSerializer(types.SerializerMsgpack)
	require.NoError(t, err)
	got, err := s.Deserialize(resp.Tensors[0], types.TensorTypeTorch)
	require.NoError(t, err)
	assert.True(t, input.Equal(got))
}

func TestReceptorBackward(t *testing.T) {
	addr := startEchoServer(t)
	output, err := tensor.FromFloat32(tensor.Shape{2}, []float32{1, 2})
	require.NoError(t, err)
	grad, err := tensor.FromFloat32(tensor.Shape{2}, []float32{0.5, -0.5})
	require.NoError(t, err)

	r := New(addr)

	t.Run("合法反向请求", func(t *testing.T) {
		resp, err := r.Backward(context.Background(), &types.TensorMessage{
			Version: types.ProtocolVersion,
			Tensors: []*types.Tensor{encodeTensor(t, output), encodeTensor(t, grad)},
		})
		require.NoError(t, err)
		assert.Equal(t, types.Success, resp.ReturnCode)
	})

	t.Run("状态码随响应返回而非错误", func(t *testing.T) {
		resp, err := r.Backward(context.Background(), &types.TensorMessage{
			Version: types.ProtocolVersion,
			Tensors: []*types.Tensor{encodeTensor(t, output)},
		})
		require.NoError(t, err, "协议级失败走状态码，传输不报错")
		assert.Equal(t, types.InvalidRequest, resp.ReturnCode)
	})
}

func TestReceptorDialFailure(t *testing.T) {
	r := New("127.0.0.1:1", WithCallTimeout(500*time.Millisecond))
	_, err := r.Forward(context.Background(), &types.TensorMessage{Version: types.ProtocolVersion})
	require.Error(t, err)
}

func TestReceptorContextCancel(t *testing.T) {
	addr := startEchoServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(addr)
	_, err := r.Forward(ctx, &types.TensorMessage{Version: types.ProtocolVersion})
	require.Error(t, err)
}
