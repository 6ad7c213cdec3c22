package tensor

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Dense 框架中立的稠密张量值
//
// data 按行主序平铺，小端字节序。requiresGrad 是梯度跟踪标志，
// 只有支持梯度跟踪的框架路径才会在解码时设置它。
type Dense struct {
	dtype        DataType
	shape        Shape
	data         []byte
	requiresGrad bool
}

// NewDense 从原始字节构造张量值
//
// 校验 dtype 合法、维度非负、数据长度等于元素数 × 元素大小。
// data 的所有权转移给返回的 Dense，调用方不应再修改。
func NewDense(dtype DataType, shape Shape, data []byte) (*Dense, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("tensor: unknown data type %d", int(dtype))
	}
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("tensor: %w", err)
	}
	n := shape.NumElements()
	if n > math.MaxInt64/int64(dtype.Size()) {
		return nil, fmt.Errorf("tensor: shape %v byte size overflows int64", []int64(shape))
	}
	want := n * int64(dtype.Size())
	if int64(len(data)) != want {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v (%s, want %d bytes)",
			len(data), []int64(shape), dtype, want)
	}
	return &Dense{
		dtype: dtype,
		shape: shape.Clone(),
		data:  data,
	}, nil
}

// FromFloat32 从 float32 切片构造张量值
func FromFloat32(shape Shape, values []float32) (*Dense, error) {
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	return NewDense(Float32, shape, data)
}

// FromFloat64 从 float64 切片构造张量值
func FromFloat64(shape Shape, values []float64) (*Dense, error) {
	data := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return NewDense(Float64, shape, data)
}

// FromInt32 从 int32 切片构造张量值
func FromInt32(shape Shape, values []int32) (*Dense, error) {
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:], uint32(v))
	}
	return NewDense(Int32, shape, data)
}

// FromInt64 从 int64 切片构造张量值
func FromInt64(shape Shape, values []int64) (*Dense, error) {
	data := make([]byte, len(values)*8)
	for i, v := range values {
		binary.LittleEndian.PutUint64(data[i*8:], uint64(v))
	}
	return NewDense(Int64, shape, data)
}

// FromUint8 从 uint8 切片构造张量值
func FromUint8(shape Shape, values []uint8) (*Dense, error) {
	data := make([]byte, len(values))
	copy(data, values)
	return NewDense(Uint8, shape, data)
}

// FromBool 从 bool 切片构造张量值
func FromBool(shape Shape, values []bool) (*Dense, error) {
	data := make([]byte, len(values))
	for i, v := range values {
		if v {
			data[i] = 1
		}
	}
	return NewDense(Bool, shape, data)
}

// Dtype 返回标量类型
func (d *Dense) Dtype() DataType { return d.dtype }

// Shape 返回维度序列的副本
func (d *Dense) Shape() Shape { return d.shape.Clone() }

// NumElements 返回元素总数
func (d *Dense) NumElements() int64 { return d.shape.NumElements() }

// Data 返回底层平铺字节（小端，行主序）
//
// 返回的是内部缓冲区本身，调用方只读。
func (d *Dense) Data() []byte { return d.data }

// RequiresGrad 返回梯度跟踪标志
func (d *Dense) RequiresGrad() bool { return d.requiresGrad }

// SetRequiresGrad 设置梯度跟踪标志
func (d *Dense) SetRequiresGrad(v bool) { d.requiresGrad = v }

// at 以 float64 读取第 i 个元素（bool 映射为 0/1）
func (d *Dense) at(i int64) float64 {
	switch d.dtype {
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(d.data[i*4:])))
	case Float64:
		return math.Float64frombits(binary.LittleEndian.Uint64(d.data[i*8:]))
	case Int32:
		return float64(int32(binary.LittleEndian.Uint32(d.data[i*4:])))
	case Int64:
		return float64(int64(binary.LittleEndian.Uint64(d.data[i*8:])))
	case Uint8:
		return float64(d.data[i])
	case Bool:
		if d.data[i] != 0 {
			return 1
		}
		return 0
	}
	return 0
}

// setAt 以 float64 写入第 i 个元素（按 dtype 截断/转换）
func (d *Dense) setAt(i int64, v float64) {
	switch d.dtype {
	case Float32:
		binary.LittleEndian.PutUint32(d.data[i*4:], math.Float32bits(float32(v)))
	case Float64:
		binary.LittleEndian.PutUint64(d.data[i*8:], math.Float64bits(v))
	case Int32:
		binary.LittleEndian.PutUint32(d.data[i*4:], uint32(int32(v)))
	case Int64:
		binary.LittleEndian.PutUint64(d.data[i*8:], uint64(int64(v)))
	case Uint8:
		d.data[i] = uint8(v)
	case Bool:
		if v != 0 {
			d.data[i] = 1
		} else {
			d.data[i] = 0
		}
	}
}

// Float32s 以 float32 切片读取全部元素（要求 dtype 为 Float32）
func (d *Dense) Float32s() ([]float32, error) {
	if d.dtype != Float32 {
		return nil, fmt.Errorf("tensor: dtype is %s, not float32", d.dtype)
	}
	n := d.NumElements()
	out := make([]float32, n)
	for i := int64(0); i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(d.data[i*4:]))
	}
	return out, nil
}

// Float64s 以 float64 切片读取全部元素（要求 dtype 为 Float64）
func (d *Dense) Float64s() ([]float64, error) {
	if d.dtype != Float64 {
		return nil, fmt.Errorf("tensor: dtype is %s, not float64", d.dtype)
	}
	n := d.NumElements()
	out := make([]float64, n)
	for i := int64(0); i < n; i++ {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(d.data[i*8:]))
	}
	return out, nil
}

// Int64s 以 int64 切片读取全部元素（要求 dtype 为 Int64）
func (d *Dense) Int64s() ([]int64, error) {
	if d.dtype != Int64 {
		return nil, fmt.Errorf("tensor: dtype is %s, not int64", d.dtype)
	}
	n := d.NumElements()
	out := make([]int64, n)
	for i := int64(0); i < n; i++ {
		out[i] = int64(binary.LittleEndian.Uint64(d.data[i*8:]))
	}
	return out, nil
}

// Cast 转换到目标标量类型，返回新的张量值
//
// 数值经由 float64 中转，bool 与数值互转按非零即真处理。
// dtype 相同时返回数据副本，原值不受影响。
func (d *Dense) Cast(to DataType) (*Dense, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("tensor: unknown data type %d", int(to))
	}
	n := d.NumElements()
	out := &Dense{
		dtype:        to,
		shape:        d.shape.Clone(),
		data:         make([]byte, n*int64(to.Size())),
		requiresGrad: d.requiresGrad,
	}
	if to == d.dtype {
		copy(out.data, d.data)
		return out, nil
	}
	for i := int64(0); i < n; i++ {
		out.setAt(i, d.at(i))
	}
	return out, nil
}

// Reshape 返回共享数据、维度不同的新张量值
//
// 目标维度的元素数必须与当前一致。
func (d *Dense) Reshape(shape Shape) (*Dense, error) {
	if err := shape.Validate(); err != nil {
		return nil, fmt.Errorf("tensor: %w", err)
	}
	if shape.NumElements() != d.NumElements() {
		return nil, fmt.Errorf("tensor: cannot reshape %d elements to %v", d.NumElements(), []int64(shape))
	}
	return &Dense{
		dtype:        d.dtype,
		shape:        shape.Clone(),
		data:         d.data,
		requiresGrad: d.requiresGrad,
	}, nil
}

// Equal 精确比较（dtype、shape、字节内容；不比较 requiresGrad）
func (d *Dense) Equal(other *Dense) bool {
	if other == nil || d.dtype != other.dtype || !d.shape.Equal(other.shape) {
		return false
	}
	if len(d.data) != len(other.data) {
		return false
	}
	for i := range d.data {
		if d.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// EqualApprox 按元素近似比较（浮点容差 eps，整型要求精确）
func (d *Dense) EqualApprox(other *Dense, eps float64) bool {
	if other == nil || d.dtype != other.dtype || !d.shape.Equal(other.shape) {
		return false
	}
	n := d.NumElements()
	for i := int64(0); i < n; i++ {
		if math.Abs(d.at(i)-other.at(i)) > eps {
			return false
		}
	}
	return true
}
