// Package types 定义 TensorLink 的线上消息类型
//
// 包含张量线格式（Tensor）、请求/响应消息（TensorMessage/TensorResponse）
// 以及各类封闭枚举。字段形状与状态码语义是兼容性契约的全部内容；
// 消息的字节编排（msgpack 信封）只服务于本仓库自带的流式传输。
package types

// ProtocolVersion 当前协议版本，写入每条消息与每个张量
const ProtocolVersion int32 = 1

// Dtype 线上标量类型枚举（线上取值稳定）
type Dtype int32

// Dtype 取值
const (
	DtypeFloat32 Dtype = 0
	DtypeFloat64 Dtype = 1
	DtypeInt32   Dtype = 2
	DtypeInt64   Dtype = 3
	DtypeUint8   Dtype = 4
	DtypeBool    Dtype = 5
)

// String 返回 dtype 的可读名称
func (d Dtype) String() string {
	switch d {
	case DtypeFloat32:
		return "float32"
	case DtypeFloat64:
		return "float64"
	case DtypeInt32:
		return "int32"
	case DtypeInt64:
		return "int64"
	case DtypeUint8:
		return "uint8"
	case DtypeBool:
		return "bool"
	}
	return "unknown"
}

// Serializer 张量缓冲区编码器枚举
//
// 目前只支持 MSGPACK 一种。
type Serializer int32

// Serializer 取值
const (
	SerializerMsgpack Serializer = 0
)

// String 返回编码器的可读名称
func (s Serializer) String() string {
	if s == SerializerMsgpack {
		return "msgpack"
	}
	return "unknown"
}

// TensorType 生产/消费张量的数值框架标签
//
// 仅用于选择编解码路径，封闭枚举。
type TensorType int32

// TensorType 取值
const (
	TensorTypeTorch      TensorType = 0
	TensorTypeNumpy      TensorType = 1
	TensorTypeTensorflow TensorType = 2
)

// String 返回框架标签的可读名称
func (t TensorType) String() string {
	switch t {
	case TensorTypeTorch:
		return "torch"
	case TensorTypeNumpy:
		return "numpy"
	case TensorTypeTensorflow:
		return "tensorflow"
	}
	return "unknown"
}

// Modality 张量内容域的语义提示（编解码器不做强制）
type Modality int32

// Modality 取值
const (
	ModalityTensor Modality = 0
	ModalityText   Modality = 1
	ModalityImage  Modality = 2
)

// String 返回模态的可读名称
func (m Modality) String() string {
	switch m {
	case ModalityTensor:
		return "tensor"
	case ModalityText:
		return "text"
	case ModalityImage:
		return "image"
	}
	return "unknown"
}

// Tensor 序列化后的张量线格式
//
// Buffer 是自描述的 msgpack 容器（含元素类型与维度），
// 可以独立于生产框架解码。不变量：product(Shape) × 元素大小
// 必须等于容器中解出的数据长度，解码成功即保证该不变量成立。
type Tensor struct {
	Version      int32      `msgpack:"version"`
	Buffer       []byte     `msgpack:"buffer"`
	Shape        []int64    `msgpack:"shape"`
	Dtype        Dtype      `msgpack:"dtype"`
	Serializer   Serializer `msgpack:"serializer"`
	TensorType   TensorType `msgpack:"tensor_type"`
	Modality     Modality   `msgpack:"modality"`
	RequiresGrad bool       `msgpack:"requires_grad"`
}
