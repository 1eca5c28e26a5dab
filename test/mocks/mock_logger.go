package mocks

import (
	"sync"

	"github.com/ledgerline/payment-orchestrator/internal/domain/ports"
)

// MockLogger is a mock implementation of Logger for testing. Safe for
// concurrent use: processor tests log from many goroutines at once.
type MockLogger struct {
	mu         sync.Mutex
	InfoCalls  []LogCall
	ErrorCalls []LogCall
	WarnCalls  []LogCall
	DebugCalls []LogCall
}

// LogCall represents a captured log call
type LogCall struct {
	Message string
	Fields  []ports.Field
}

// NewMockLogger creates a new mock logger
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// Info logs an info message
func (m *MockLogger) Info(msg string, fields ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InfoCalls = append(m.InfoCalls, LogCall{Message: msg, Fields: fields})
}

// Error logs an error message
func (m *MockLogger) Error(msg string, fields ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ErrorCalls = append(m.ErrorCalls, LogCall{Message: msg, Fields: fields})
}

// Warn logs a warning message
func (m *MockLogger) Warn(msg string, fields ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.WarnCalls = append(m.WarnCalls, LogCall{Message: msg, Fields: fields})
}

// Debug logs a debug message
func (m *MockLogger) Debug(msg string, fields ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DebugCalls = append(m.DebugCalls, LogCall{Message: msg, Fields: fields})
}

// Warnings returns the captured warn messages (thread-safe copy)
func (m *MockLogger) Warnings() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := make([]string, len(m.WarnCalls))
	for i, call := range m.WarnCalls {
		msgs[i] = call.Message
	}
	return msgs
}

// Reset clears all captured calls
func (m *MockLogger) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InfoCalls = nil
	m.ErrorCalls = nil
	m.WarnCalls = nil
	m.DebugCalls = nil
}
