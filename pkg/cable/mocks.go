package cable

import (
	"github.com/stretchr/testify/mock"
)

// MockClient is a mock implementation of the ClientInterface
type MockClient struct {
	mock.Mock
}

var _ ClientInterface = (*MockClient)(nil)

// Connect mocks the Connect method
func (m *MockClient) Connect() {
	m.Called()
}

// Disconnect mocks the Disconnect method
func (m *MockClient) Disconnect() {
	m.Called()
}

// Status mocks the Status method
func (m *MockClient) Status() ConnectionStatus {
	args := m.Called()
	return args.Get(0).(ConnectionStatus)
}

// SetOnEvent mocks the SetOnEvent method
func (m *MockClient) SetOnEvent(handler EventHandler) {
	m.Called(handler)
}
