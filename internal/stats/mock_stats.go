package stats

import "github.com/stretchr/testify/mock"

type MockStatsUpdater struct {
	mock.Mock
}

func (m *MockStatsUpdater) ConnOpened() {
	m.Called()
}
func (m *MockStatsUpdater) ConnClosed() {
	m.Called()
}
func (m *MockStatsUpdater) MessageSent() {
	m.Called()
}
func (m *MockStatsUpdater) ReadReceipt() {
	m.Called()
}
func (m *MockStatsUpdater) BroadcastDropped() {
	m.Called()
}
