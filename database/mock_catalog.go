package database

import "github.com/stretchr/testify/mock"

// MockCatalogStore is a hand-maintained mockery-style double for
// CatalogStore, in the shape of the teacher's generated MockDatabase
// (mock.Mock embedding, one method per interface method, m.Called(args...)
// then type-assert the configured return).
type MockCatalogStore struct {
	mock.Mock
}

func (m *MockCatalogStore) RegisterEntities(table string, row interface{}) {
	m.Called(table, row)
}

func (m *MockCatalogStore) UpsertRows(rows []CatalogRow) error {
	ret := m.Called(rows)
	if ret.Get(0) != nil {
		return ret.Get(0).(error)
	}
	return nil
}

func (m *MockCatalogStore) DeleteRows(table string, destPaths []string) error {
	ret := m.Called(table, destPaths)
	if ret.Get(0) != nil {
		return ret.Get(0).(error)
	}
	return nil
}

func (m *MockCatalogStore) RowExists(table, destPath string) (bool, error) {
	ret := m.Called(table, destPath)
	var err error
	if ret.Get(1) != nil {
		err = ret.Get(1).(error)
	}
	return ret.Bool(0), err
}

// WithTransaction records the call for assertions, then invokes fn against
// the same mock (there is no real transaction to isolate in a test double).
func (m *MockCatalogStore) WithTransaction(fn func(tx CatalogStore) error) error {
	m.Called()
	return fn(m)
}

var _ CatalogStore = (*MockCatalogStore)(nil)
