package serialize

import (
	"fmt"

	"github.com/tensorlink/go-tensorlink/internal/core/tensor"
	"github.com/tensorlink/go-tensorlink/pkg/types"
)

// Serializer 张量线格式编解码器
//
// Serialize 将解码后的张量值编码为线格式；Deserialize 反之。
// fromType/toType 是封闭的框架标签枚举，选择未实现的标签
// 返回 ErrUnsupportedFramework。
type Serializer interface {
	// Serialize 将张量值编码为线格式
	Serialize(value *tensor.Dense, modality types.Modality, fromType types.TensorType) (*types.Tensor, error)

	// Deserialize 将线格式解码为张量值
	Deserialize(wire *types.Tensor, toType types.TensorType) (*tensor.Dense, error)
}

// GetSerializer 按编码器类型返回对应的 Serializer
//
// 目前只支持 MSGPACK；其余类型在查找阶段即失败，
// 不会进入任何编解码流程。
func GetSerializer(kind types.Serializer) (Serializer, error) {
	if kind == types.SerializerMsgpack {
		return &MsgpackSerializer{}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrNoSerializerForKind, int32(kind))
}
