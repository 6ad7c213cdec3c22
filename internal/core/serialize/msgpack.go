package serialize

import (
	"fmt"

	"github.com/tensorlink/go-tensorlink/internal/core/tensor"
	"github.com/tensorlink/go-tensorlink/pkg/types"
)

// MsgpackSerializer 基于 msgpack 容器的张量编解码器
//
// 目前唯一受支持的编码器实现。TORCH 与 NUMPY 两条路径共享同一个
// 缓冲区容器；区别只在梯度跟踪标志：NUMPY 没有梯度概念，
// 解码时忽略 requires_grad。TENSORFLOW 标签尚未实现。
type MsgpackSerializer struct{}

var _ Serializer = (*MsgpackSerializer)(nil)

// Serialize 将张量值编码为线格式，按 fromType 选择路径
func (s *MsgpackSerializer) Serialize(value *tensor.Dense, modality types.Modality, fromType types.TensorType) (*types.Tensor, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: nil value", ErrCodecFailure)
	}
	switch fromType {
	case types.TensorTypeTorch:
		return s.serialize(value, modality, fromType, value.RequiresGrad())
	case types.TensorTypeNumpy:
		// numpy 路径没有梯度跟踪，标志固定为 false
		return s.serialize(value, modality, fromType, false)
	case types.TensorTypeTensorflow:
		return nil, fmt.Errorf("%w: serialize from %s not implemented", ErrUnsupportedFramework, fromType)
	}
	return nil, fmt.Errorf("%w: unknown tensor type %d", ErrUnsupportedFramework, int32(fromType))
}

func (s *MsgpackSerializer) serialize(value *tensor.Dense, modality types.Modality, fromType types.TensorType, requiresGrad bool) (*types.Tensor, error) {
	dtype, err := dtypeToWire(value.Dtype())
	if err != nil {
		return nil, err
	}
	buffer, err := packBuffer(value)
	if err != nil {
		return nil, err
	}
	return &types.Tensor{
		Version:      types.ProtocolVersion,
		Buffer:       buffer,
		Shape:        value.Shape(),
		Dtype:        dtype,
		Serializer:   types.SerializerMsgpack,
		TensorType:   fromType,
		Modality:     modality,
		RequiresGrad: requiresGrad,
	}, nil
}

// Deserialize 将线格式解码为张量值，按 toType 选择路径
//
// 解码流程：解开容器 → 按线上 shape 重排 → 转换到线上 dtype
// 对应的标量类型 → （torch 路径）恢复梯度跟踪标志。
// 任何一步失败都不会留下部分结果。
func (s *MsgpackSerializer) Deserialize(wire *types.Tensor, toType types.TensorType) (*tensor.Dense, error) {
	if wire == nil {
		return nil, fmt.Errorf("%w: nil wire tensor", ErrCodecFailure)
	}
	switch toType {
	case types.TensorTypeTorch:
		return s.deserialize(wire, wire.RequiresGrad)
	case types.TensorTypeNumpy:
		return s.deserialize(wire, false)
	case types.TensorTypeTensorflow:
		return nil, fmt.Errorf("%w: deserialize to %s not implemented", ErrUnsupportedFramework, toType)
	}
	return nil, fmt.Errorf("%w: unknown tensor type %d", ErrUnsupportedFramework, int32(toType))
}

func (s *MsgpackSerializer) deserialize(wire *types.Tensor, requiresGrad bool) (*tensor.Dense, error) {
	target, err := dtypeFromWire(wire.Dtype)
	if err != nil {
		return nil, err
	}
	flat, err := unpackBuffer(wire.Buffer)
	if err != nil {
		return nil, err
	}
	shaped, err := flat.Reshape(tensor.Shape(wire.Shape))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodecFailure, err)
	}
	value, err := shaped.Cast(target)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodecFailure, err)
	}
	value.SetRequiresGrad(requiresGrad)
	return value, nil
}
