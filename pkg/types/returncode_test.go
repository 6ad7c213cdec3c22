package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReturnCodeValues(t *testing.T) {
	// 线上取值稳定，不可重排
	assert.Equal(t, ReturnCode(0), Success)
	assert.Equal(t, ReturnCode(1), NotServingSynapse)
	assert.Equal(t, ReturnCode(2), EmptyRequest)
	assert.Equal(t, ReturnCode(3), InvalidRequest)
	assert.Equal(t, ReturnCode(4), RequestDeserializationException)
	assert.Equal(t, ReturnCode(5), NotImplemented)
	assert.Equal(t, ReturnCode(6), UnknownException)
}

func TestReturnCodeValid(t *testing.T) {
	for c := Success; c <= UnknownException; c++ {
		assert.True(t, c.Valid(), c.String())
	}
	assert.False(t, ReturnCode(-1).Valid())
	assert.False(t, ReturnCode(7).Valid())
}

func TestReturnCodeString(t *testing.T) {
	assert.Equal(t, "Success", Success.String())
	assert.Equal(t, "UnknownException", UnknownException.String())
	assert.Equal(t, "Unknown", ReturnCode(42).String())
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "float32", DtypeFloat32.String())
	assert.Equal(t, "bool", DtypeBool.String())
	assert.Equal(t, "msgpack", SerializerMsgpack.String())
	assert.Equal(t, "torch", TensorTypeTorch.String())
	assert.Equal(t, "numpy", TensorTypeNumpy.String())
	assert.Equal(t, "tensorflow", TensorTypeTensorflow.String())
	assert.Equal(t, "tensor", ModalityTensor.String())
	assert.Equal(t, "unknown", Dtype(9).String())
}
