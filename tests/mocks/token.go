package mocks

import (
	"time"

	"github.com/stretchr/testify/mock"
)

// MockToken is a mock implementation of the mqtt.Token interface
type MockToken struct {
	mock.Mock

	// ID is returned by MessageID, mirroring paho's PublishToken.
	ID uint16

	// Granted is returned by Result, mirroring paho's SubscribeToken.
	Granted map[string]byte
}

// NewCompletedToken returns a token that has already finished with err.
func NewCompletedToken(err error) *MockToken {
	done := make(chan struct{})
	close(done)

	t := new(MockToken)
	t.On("Wait").Return(true).Maybe()
	t.On("WaitTimeout", mock.Anything).Return(true).Maybe()
	t.On("Done").Return((<-chan struct{})(done)).Maybe()
	t.On("Error").Return(err).Maybe()
	return t
}

// NewPublishToken returns a completed token carrying a packet identifier.
func NewPublishToken(id uint16, err error) *MockToken {
	t := NewCompletedToken(err)
	t.ID = id
	return t
}

// NewSubscribeToken returns a completed token carrying SUBACK return codes.
func NewSubscribeToken(granted map[string]byte, err error) *MockToken {
	t := NewCompletedToken(err)
	t.Granted = granted
	return t
}

// NewPendingToken returns a token that never completes within any timeout.
func NewPendingToken() *MockToken {
	t := new(MockToken)
	t.On("WaitTimeout", mock.Anything).Return(false)
	t.On("Error").Return(nil).Maybe()
	return t
}

// Error returns the error associated with the token
func (m *MockToken) Error() error {
	args := m.Called()
	return args.Error(0)
}

// Wait waits for the token to complete
func (m *MockToken) Wait() bool {
	args := m.Called()
	return args.Bool(0)
}

// Done channel returns the done channel for the token
func (m *MockToken) Done() <-chan struct{} {
	args := m.Called()
	return args.Get(0).(<-chan struct{})
}

// WaitTimeout waits for the token to complete or timeout
func (m *MockToken) WaitTimeout(timeout time.Duration) bool {
	args := m.Called(timeout)
	return args.Bool(0)
}

// MessageID returns the packet identifier of a publish
func (m *MockToken) MessageID() uint16 {
	return m.ID
}

// Result returns the SUBACK return code per topic
func (m *MockToken) Result() map[string]byte {
	return m.Granted
}
