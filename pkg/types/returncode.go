package types

// ReturnCode RPC 调用的状态码
//
// 这是一个封闭枚举，线上取值保持稳定。Axon 的每一次 Forward/Backward
// 调用都必须返回其中一个值，永远不会以传输层错误的形式暴露内部故障。
type ReturnCode int32

// ReturnCode 取值（线上稳定，不可重排）
const (
	// Success 调用成功
	Success ReturnCode = 0

	// NotServingSynapse 当前没有已注册的 Synapse
	NotServingSynapse ReturnCode = 1

	// EmptyRequest Forward 请求不包含任何张量
	EmptyRequest ReturnCode = 2

	// InvalidRequest Backward 请求的张量数量不等于 2
	InvalidRequest ReturnCode = 3

	// RequestDeserializationException 请求中的张量无法反序列化
	RequestDeserializationException ReturnCode = 4

	// NotImplemented Synapse 未实现所请求的操作
	NotImplemented ReturnCode = 5

	// UnknownException Synapse 调用出现未预期的失败（panic、超时等）
	UnknownException ReturnCode = 6
)

// String 返回状态码的可读名称
func (c ReturnCode) String() string {
	switch c {
	case Success:
		return "Success"
	case NotServingSynapse:
		return "NotServingSynapse"
	case EmptyRequest:
		return "EmptyRequest"
	case InvalidRequest:
		return "InvalidRequest"
	case RequestDeserializationException:
		return "RequestDeserializationException"
	case NotImplemented:
		return "NotImplemented"
	case UnknownException:
		return "UnknownException"
	}
	return "Unknown"
}

// Valid 判断状态码是否在封闭枚举范围内
func (c ReturnCode) Valid() bool {
	return c >= Success && c <= UnknownException
}
