package mocks

import (
	"github.com/benmeehan/mqclient/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockEventHandler is a mock implementation of the EventHandler interface
type MockEventHandler struct {
	mock.Mock
}

func (m *MockEventHandler) ConnectComplete(reconnect bool, serverURL string) {
	m.Called(reconnect, serverURL)
}

func (m *MockEventHandler) ConnectionLost(err error) {
	m.Called(err)
}

func (m *MockEventHandler) MessageArrived(topic string, msg models.ArrivedMessage) error {
	args := m.Called(topic, msg)
	return args.Error(0)
}

func (m *MockEventHandler) DeliveryComplete(token models.DeliveryToken) {
	m.Called(token)
}
