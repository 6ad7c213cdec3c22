package tensorlink

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

func startTestNode(t *testing.T, opts ...Option) *Node {
	t.Helper()
	base := []Option{
		WithListenAddr("127.0.0.1:0"),
		WithExternalIPDiscovery(false),
		WithPortMapping(false),
	}
	node, err := New(append(base, opts...)...)
	require.NoError(t, err)
	require.NoError(t, node.Start(context.Background()))
	t.Cleanup(func() { _ = node.Stop(context.Background()) })
	return node
}

func TestNodeLifecycle(t *testing.T) {
	t.Run("启动后有监听地址", func(t *testing.T) {
		node := startTestNode(t)
		require.NotNil(t, node.Addr())
	})

	t.Run("重复启动报错", func(t *testing.T) {
		node := startTestNode(t)
		require.ErrorIs(t, node.Start(context.Background()), ErrNodeAlreadyStarted)
	})

	t.Run("未启动时停止报错", func(t *testing.T) {
		node, err := New(WithListenAddr("127.0.0.1:0"), WithExternalIPDiscovery(false))
		require.NoError(t, err)
		require.ErrorIs(t, node.Stop(context.Background()), ErrNodeNotStarted)
	})

	t.Run("非法配置在构造期报错", func(t *testing.T) {
		_, err := New(WithListenAddr(""))
		require.Error(t, err)
	})

	t.Run("外部地址未发现时报错", func(t *testing.T) {
		node := startTestNode(t)
		_, err := node.ExternalIP()
		require.ErrorIs(t, err, ErrNoExternalAddress)
		assert.Zero(t, node.MappedPort())
	})
}

func TestNodeServe(t *testing.T) {
	t.Run("构造时注入 Synapse", func(t *testing.T) {
		node := startTestNode(t, WithSynapse(&echoSynapse{}))
		assert.True(t, node.Serving())
	})

	t.Run("启动后注册 Synapse", func(t *testing.T) {
		node := startTestNode(t)
		assert.False(t, node.Serving())
		node.Serve(&echoSynapse{})
		assert.True(t, node.Serving())
	})
}

func TestNodeEndToEnd(t *testing.T) {
	node := startTestNode(t, WithSynapse(&echoSynapse{}))

	input, err := tensor.FromFloat32(tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	require.NoError(t, err)
	s, err := serialize.GetSerializer(types.SerializerMsgpack)
	require.NoError(t, err)
	wire, err := s.Serialize(input, types.ModalityTensor, types.TensorTypeTorch)
	require.NoError(t, err)

	client := node.Connect(node.Addr().String())
	resp, err := client.Forward(context.Background(), &types.TensorMessage{
		Version:   types.ProtocolVersion,
		PublicKey: []byte("caller"),
		Tensors:   []*types.Tensor{wire},
	})
	require.NoError(t, err)
	require.Equal(t, types.Success, resp.ReturnCode, resp.Message)
	require.Len(t, resp.Tensors, 1)

	got, err := s.Deserialize(resp.Tensors[0], types.TensorTypeTorch)
	require.NoError(t, err)
	assert.True(t, input.Equal(got))
}
