package tensor

import (
	"fmt"
	"math"
)

// Shape 张量的维度序列
//
// 维度值允许为 0（空张量），不允许为负。空 Shape 表示标量，
// 元素数为 1。
type Shape []int64

// NumElements 返回张量的元素总数
//
// 只对通过 Validate 的 Shape 有意义；未校验的维度乘积可能回绕。
func (s Shape) NumElements() int64 {
	n := int64(1)
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate 校验所有维度非负且元素总数不溢出 int64
//
// 溢出检查保证 product(shape) × 元素大小 的不变量无法被
// 模 2^64 回绕的维度乘积绕过。
func (s Shape) Validate() error {
	hasZero := false
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
		if dim == 0 {
			hasZero = true
		}
	}
	// 任一维度为 0 时元素总数为 0，不可能溢出
	if hasZero {
		return nil
	}
	n := int64(1)
	for _, dim := range s {
		if n > math.MaxInt64/dim {
			return fmt.Errorf("shape %v element count overflows int64", []int64(s))
		}
		n *= dim
	}
	return nil
}

// Equal 判断两个 Shape 是否相同
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone 返回 Shape 的副本
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}
