package upnp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// errNoSuchEntry 模拟 SOAP NoSuchEntryInArray：查询的端口上没有映射
var errNoSuchEntry = errors.New("NoSuchEntryInArray")

// fakeIGD 内存假网关
type fakeIGD struct {
	occupied   map[uint16]bool // 已被占用的外部端口
	added      []uint16        // AddPortMapping 调用记录
	deleted    []uint16        // DeletePortMapping 调用记录
	addErr     error           // AddPortMapping 注入的失败
	externalIP string
}

func newFakeIGD() *fakeIGD {
	return &fakeIGD{
		occupied:   make(map[uint16]bool),
		externalIP: "203.0.113.7",
	}
}

func (f *fakeIGD) AddPortMapping(_ string, externalPort uint16, _ string, _ uint16, _ string, _ bool, _ string, _ uint32) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.occupied[externalPort] = true
	f.added = append(f.added, externalPort)
	return nil
}

func (f *fakeIGD) DeletePortMapping(_ string, externalPort uint16, _ string) error {
	if !f.occupied[externalPort] {
		return errNoSuchEntry
	}
	delete(f.occupied, externalPort)
	f.deleted = append(f.deleted, externalPort)
	return nil
}

func (f *fakeIGD) GetSpecificPortMappingEntry(_ string, externalPort uint16, _ string) (uint16, string, bool, string, uint32, error) {
	if f.occupied[externalPort] {
		return externalPort, "192.168.1.2", true, "other", 0, nil
	}
	return 0, "", false, "", 0, errNoSuchEntry
}

func (f *fakeIGD) GetExternalIPAddress() (string, error) {
	return f.externalIP, nil
}

var _ IGDClient = (*fakeIGD)(nil)

func TestCreateMapping(t *testing.T) {
	t.Run("本地端口空闲时直接映射", func(t *testing.T) {
		igd := newFakeIGD()
		m := NewMapperWithClient(igd)

		port, err := m.CreateMapping(context.Background(), 8091)
		require.NoError(t, err)
		assert.Equal(t, 8091, port)
		assert.Equal(t, []uint16{8091}, igd.added)
	})

	t.Run("越过已占用端口向上探测", func(t *testing.T) {
		igd := newFakeIGD()
		igd.occupied[8091] = true
		igd.occupied[8092] = true
		m := NewMapperWithClient(igd)

		port, err := m.CreateMapping(context.Background(), 8091)
		require.NoError(t, err)
		assert.Equal(t, 8093, port)
	})

	t.Run("端口空间耗尽", func(t *testing.T) {
		igd := newFakeIGD()
		igd.occupied[65534] = true
		igd.occupied[65535] = true
		m := NewMapperWithClient(igd)

		_, err := m.CreateMapping(context.Background(), 65534)
		require.ErrorIs(t, err, ErrNoAvailablePort)
		assert.Empty(t, igd.added, "耗尽时不应安装任何映射")
	})

	t.Run("非法端口号", func(t *testing.T) {
		igd := newFakeIGD()
		m := NewMapperWithClient(igd)

		for _, port := range []int{0, -1, 65536} {
			_, err := m.CreateMapping(context.Background(), port)
			var mapErr *MappingError
			require.ErrorAs(t, err, &mapErr, "port %d", port)
			assert.ErrorIs(t, err, ErrInvalidPort)
		}
	})

	t.Run("底层映射失败包装为 MappingError", func(t *testing.T) {
		igd := newFakeIGD()
		igd.addErr = errors.New("ConflictInMappingEntry")
		m := NewMapperWithClient(igd)

		_, err := m.CreateMapping(context.Background(), 8091)
		var mapErr *MappingError
		require.ErrorAs(t, err, &mapErr)
		assert.Equal(t, "create", mapErr.Op)
		assert.ErrorIs(t, err, igd.addErr)
	})

	t.Run("记录映射快照", func(t *testing.T) {
		igd := newFakeIGD()
		m := NewMapperWithClient(igd)

		_, err := m.CreateMapping(context.Background(), 8091)
		require.NoError(t, err)

		mappings := m.Mappings()
		require.Len(t, mappings, 1)
		assert.Equal(t, 8091, mappings[0].InternalPort)
		assert.Equal(t, 8091, mappings[0].ExternalPort)
		assert.Equal(t, "TCP", mappings[0].Protocol)
	})

	t.Run("ctx 取消终止探测", func(t *testing.T) {
		igd := newFakeIGD()
		m := NewMapperWithClient(igd)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := m.CreateMapping(ctx, 8091)
		var mapErr *MappingError
		require.ErrorAs(t, err, &mapErr)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestDeleteMapping(t *testing.T) {
	t.Run("删除已有映射", func(t *testing.T) {
		igd := newFakeIGD()
		m := NewMapperWithClient(igd)

		port, err := m.CreateMapping(context.Background(), 8091)
		require.NoError(t, err)

		require.NoError(t, m.DeleteMapping(context.Background(), port))
		assert.Equal(t, []uint16{8091}, igd.deleted)
		assert.Empty(t, m.Mappings())
	})

	t.Run("删除不存在的映射报错", func(t *testing.T) {
		igd := newFakeIGD()
		m := NewMapperWithClient(igd)

		err := m.DeleteMapping(context.Background(), 9999)
		var mapErr *MappingError
		require.ErrorAs(t, err, &mapErr)
		assert.Equal(t, "delete", mapErr.Op)
	})
}

func TestExternalIP(t *testing.T) {
	igd := newFakeIGD()
	m := NewMapperWithClient(igd)

	ip, err := m.ExternalIP()
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.7", ip)
}

func TestClose(t *testing.T) {
	igd := newFakeIGD()
	m := NewMapperWithClient(igd)

	p1, err := m.CreateMapping(context.Background(), 8091)
	require.NoError(t, err)
	p2, err := m.CreateMapping(context.Background(), 8100)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	assert.Empty(t, m.Mappings())
	assert.ElementsMatch(t, []uint16{uint16(p1), uint16(p2)}, igd.deleted)
}
