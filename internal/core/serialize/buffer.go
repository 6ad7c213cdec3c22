package serialize

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/tensorlink/go-tensorlink/internal/core/tensor"
)

// ndBuffer 自描述的张量缓冲区容器
//
// 字段名沿用 msgpack_numpy 的键（nd/type/shape/data），
// 容器自带元素类型标签与维度表，可脱离生产框架独立解码。
type ndBuffer struct {
	ND    bool    `msgpack:"nd"`
	Type  string  `msgpack:"type"`
	Shape []int64 `msgpack:"shape"`
	Data  []byte  `msgpack:"data"`
}

// packBuffer 将张量值打包为容器字节
func packBuffer(value *tensor.Dense) ([]byte, error) {
	ts, err := typestrFor(value.Dtype())
	if err != nil {
		return nil, err
	}
	buf := ndBuffer{
		ND:    true,
		Type:  ts,
		Shape: value.Shape(),
		Data:  value.Data(),
	}
	out, err := msgpack.Marshal(&buf)
	if err != nil {
		return nil, fmt.Errorf("%w: pack buffer: %v", ErrCodecFailure, err)
	}
	return out, nil
}

// unpackBuffer 解开容器字节，返回容器自描述的张量值
//
// 失败时不产生任何部分结果；成功即保证数据长度与容器维度一致。
func unpackBuffer(raw []byte) (*tensor.Dense, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", ErrCodecFailure)
	}
	var buf ndBuffer
	if err := msgpack.Unmarshal(raw, &buf); err != nil {
		return nil, fmt.Errorf("%w: unpack buffer: %v", ErrCodecFailure, err)
	}
	if !buf.ND {
		return nil, fmt.Errorf("%w: buffer is not an nd container", ErrCodecFailure)
	}
	dt, err := dtypeForTypestr(buf.Type)
	if err != nil {
		return nil, err
	}
	value, err := tensor.NewDense(dt, tensor.Shape(buf.Shape), buf.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCodecFailure, err)
	}
	return value, nil
}
