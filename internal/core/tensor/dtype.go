// Package tensor 提供框架中立的稠密张量值模型
//
// Dense 是编解码器与 Synapse 之间传递的"解码后张量"：
// 标量类型 + 维度 + 小端平铺字节 + 梯度跟踪标志。
// 不做任何数值运算，只负责承载与访问。
package tensor

// DataType 张量元素的标量类型
type DataType int

// 支持的标量类型（封闭枚举，与线上 Dtype 一一对应）
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
	Uint8
	Bool
)

// Size 返回标量类型的字节大小
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Uint8, Bool:
		return 1
	}
	return 0
}

// Valid 判断是否为已知标量类型
func (dt DataType) Valid() bool {
	return dt >= Float32 && dt <= Bool
}

// String 返回标量类型的可读名称
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Bool:
		return "bool"
	}
	return "unknown"
}
