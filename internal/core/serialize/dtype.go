package serialize

import (
	"fmt"

	"github.com/tensorlink/go-tensorlink/internal/core/tensor"
	"github.com/tensorlink/go-tensorlink/pkg/types"
)

// 标量类型 ⇄ 线上 dtype 的固定双向映射表。
// 每个受支持的标量类型恰有一个线上 dtype，反之亦然；没有
// "unknown" 兜底项，未映射的类型一律报 ErrUnsupportedDtype。

// dtypeToWire 将值模型的标量类型映射为线上 dtype
func dtypeToWire(dt tensor.DataType) (types.Dtype, error) {
	switch dt {
	case tensor.Float32:
		return types.DtypeFloat32, nil
	case tensor.Float64:
		return types.DtypeFloat64, nil
	case tensor.Int32:
		return types.DtypeInt32, nil
	case tensor.Int64:
		return types.DtypeInt64, nil
	case tensor.Uint8:
		return types.DtypeUint8, nil
	case tensor.Bool:
		return types.DtypeBool, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedDtype, dt)
}

// dtypeFromWire 将线上 dtype 映射回值模型的标量类型
func dtypeFromWire(d types.Dtype) (tensor.DataType, error) {
	switch d {
	case types.DtypeFloat32:
		return tensor.Float32, nil
	case types.DtypeFloat64:
		return tensor.Float64, nil
	case types.DtypeInt32:
		return tensor.Int32, nil
	case types.DtypeInt64:
		return tensor.Int64, nil
	case types.DtypeUint8:
		return tensor.Uint8, nil
	case types.DtypeBool:
		return tensor.Bool, nil
	}
	return 0, fmt.Errorf("%w: wire dtype %d", ErrUnsupportedDtype, int32(d))
}

// typestrFor 返回缓冲区容器里使用的类型标签（numpy typestr 风格）
func typestrFor(dt tensor.DataType) (string, error) {
	switch dt {
	case tensor.Float32:
		return "<f4", nil
	case tensor.Float64:
		return "<f8", nil
	case tensor.Int32:
		return "<i4", nil
	case tensor.Int64:
		return "<i8", nil
	case tensor.Uint8:
		return "|u1", nil
	case tensor.Bool:
		return "|b1", nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedDtype, dt)
}

// dtypeForTypestr 从容器类型标签还原标量类型
func dtypeForTypestr(ts string) (tensor.DataType, error) {
	switch ts {
	case "<f4":
		return tensor.Float32, nil
	case "<f8":
		return tensor.Float64, nil
	case "<i4":
		return tensor.Int32, nil
	case "<i8":
		return tensor.Int64, nil
	case "|u1":
		return tensor.Uint8, nil
	case "|b1":
		return tensor.Bool, nil
	}
	return 0, fmt.Errorf("%w: typestr %q", ErrUnsupportedDtype, ts)
}
