package types

// TensorMessage Forward/Backward 两条路径共用的请求消息
//
// PublicKey 仅作为调用方标识透传，本核心不做验证。
// Tensors 的基数约束由两条路径各自施加：Forward 至少一个，
// Backward 恰好两个。
type TensorMessage struct {
	Version   int32     `msgpack:"version"`
	PublicKey []byte    `msgpack:"public_key"`
	Tensors   []*Tensor `msgpack:"tensors"`
}

// TensorResponse RPC 响应消息
//
// ReturnCode 永远是封闭枚举中的一个值；Message 总是存在（可为空串）；
// Tensors 只会有 0 或 1 个元素。
type TensorResponse struct {
	ReturnCode ReturnCode `msgpack:"return_code"`
	Message    string     `msgpack:"message"`
	Tensors    []*Tensor  `msgpack:"tensors"`
}
