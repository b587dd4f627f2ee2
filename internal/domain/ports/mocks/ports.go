// Package mocks содержит gomock-заглушки для Transport, Programmer и
// DeviceProvider. Написаны вручную в формате mockgen; при изменении
// интерфейсов в ports их нужно обновить.
package mocks

import (
	context "context"
	reflect "reflect"
	time "time"

	models "serialflash/internal/domain/models"
	ports "serialflash/internal/domain/ports"

	gomock "github.com/golang/mock/gomock"
)

// MockTransport is a mock of Transport interface.
type MockTransport struct {
	ctrl     *gomock.Controller
	recorder *MockTransportMockRecorder
}

// MockTransportMockRecorder is the mock recorder for MockTransport.
type MockTransportMockRecorder struct {
	mock *MockTransport
}

// NewMockTransport creates a new mock instance.
func NewMockTransport(ctrl *gomock.Controller) *MockTransport {
	mock := &MockTransport{ctrl: ctrl}
	mock.recorder = &MockTransportMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockTransport) EXPECT() *MockTransportMockRecorder {
	return m.recorder
}

// Connect mocks base method.
func (m *MockTransport) Connect(arg0 context.Context, arg1 int) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Connect", arg0, arg1)
	ret0, _ := ret[0].(error)
	return ret0
}

// Connect indicates an expected call of Connect.
func (mr *MockTransportMockRecorder) Connect(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Connect", reflect.TypeOf((*MockTransport)(nil).Connect), arg0, arg1)
}

// Device mocks base method.
func (m *MockTransport) Device() models.DeviceHandle {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Device")
	ret0, _ := ret[0].(models.DeviceHandle)
	return ret0
}

// Device indicates an expected call of Device.
func (mr *MockTransportMockRecorder) Device() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Device", reflect.TypeOf((*MockTransport)(nil).Device))
}

// Disconnect mocks base method.
func (m *MockTransport) Disconnect() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Disconnect")
	ret0, _ := ret[0].(error)
	return ret0
}

// Disconnect indicates an expected call of Disconnect.
func (mr *MockTransportMockRecorder) Disconnect() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Disconnect", reflect.TypeOf((*MockTransport)(nil).Disconnect))
}

// RawRead mocks base method.
func (m *MockTransport) RawRead() ports.ByteStream {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RawRead")
	ret0, _ := ret[0].(ports.ByteStream)
	return ret0
}

// RawRead indicates an expected call of RawRead.
func (mr *MockTransportMockRecorder) RawRead() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RawRead", reflect.TypeOf((*MockTransport)(nil).RawRead))
}

// ReturnTrace mocks base method.
func (m *MockTransport) ReturnTrace() string {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ReturnTrace")
	ret0, _ := ret[0].(string)
	return ret0
}

// ReturnTrace indicates an expected call of ReturnTrace.
func (mr *MockTransportMockRecorder) ReturnTrace() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ReturnTrace", reflect.TypeOf((*MockTransport)(nil).ReturnTrace))
}

// SetDTR mocks base method.
func (m *MockTransport) SetDTR(arg0 bool) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SetDTR", arg0)
	ret0, _ := ret[0].(error)
	return ret0
}

// SetDTR indicates an expected call of SetDTR.
func (mr *MockTransportMockRecorder) SetDTR(arg0 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetDTR", reflect.TypeOf((*MockTransport)(nil).SetDTR), arg0)
}

// SetTracing mocks base method.
func (m *MockTransport) SetTracing(arg0 bool) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "SetTracing", arg0)
}

// SetTracing indicates an expected call of SetTracing.
func (mr *MockTransportMockRecorder) SetTracing(arg0 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SetTracing", reflect.TypeOf((*MockTransport)(nil).SetTracing), arg0)
}

// WaitForUnlock mocks base method.
func (m *MockTransport) WaitForUnlock(arg0 time.Duration) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "WaitForUnlock", arg0)
	ret0, _ := ret[0].(error)
	return ret0
}

// WaitForUnlock indicates an expected call of WaitForUnlock.
func (mr *MockTransportMockRecorder) WaitForUnlock(arg0 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "WaitForUnlock", reflect.TypeOf((*MockTransport)(nil).WaitForUnlock), arg0)
}

// Write mocks base method.
func (m *MockTransport) Write(arg0 []byte) (int, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Write", arg0)
	ret0, _ := ret[0].(int)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Write indicates an expected call of Write.
func (mr *MockTransportMockRecorder) Write(arg0 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Write", reflect.TypeOf((*MockTransport)(nil).Write), arg0)
}

// MockProgrammer is a mock of Programmer interface.
type MockProgrammer struct {
	ctrl     *gomock.Controller
	recorder *MockProgrammerMockRecorder
}

// MockProgrammerMockRecorder is the mock recorder for MockProgrammer.
type MockProgrammerMockRecorder struct {
	mock *MockProgrammer
}

// NewMockProgrammer creates a new mock instance.
func NewMockProgrammer(ctrl *gomock.Controller) *MockProgrammer {
	mock := &MockProgrammer{ctrl: ctrl}
	mock.recorder = &MockProgrammerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockProgrammer) EXPECT() *MockProgrammerMockRecorder {
	return m.recorder
}

// After mocks base method.
func (m *MockProgrammer) After(arg0 context.Context) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "After", arg0)
	ret0, _ := ret[0].(error)
	return ret0
}

// After indicates an expected call of After.
func (mr *MockProgrammerMockRecorder) After(arg0 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "After", reflect.TypeOf((*MockProgrammer)(nil).After), arg0)
}

// EraseFlash mocks base method.
func (m *MockProgrammer) EraseFlash(arg0 context.Context) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "EraseFlash", arg0)
	ret0, _ := ret[0].(error)
	return ret0
}

// EraseFlash indicates an expected call of EraseFlash.
func (mr *MockProgrammerMockRecorder) EraseFlash(arg0 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "EraseFlash", reflect.TypeOf((*MockProgrammer)(nil).EraseFlash), arg0)
}

// Main mocks base method.
func (m *MockProgrammer) Main(arg0 context.Context) (models.ChipIdentity, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Main", arg0)
	ret0, _ := ret[0].(models.ChipIdentity)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Main indicates an expected call of Main.
func (mr *MockProgrammerMockRecorder) Main(arg0 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Main", reflect.TypeOf((*MockProgrammer)(nil).Main), arg0)
}

// WriteFlash mocks base method.
func (m *MockProgrammer) WriteFlash(arg0 context.Context, arg1 ports.FlashOptions) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "WriteFlash", arg0, arg1)
	ret0, _ := ret[0].(error)
	return ret0
}

// WriteFlash indicates an expected call of WriteFlash.
func (mr *MockProgrammerMockRecorder) WriteFlash(arg0, arg1 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "WriteFlash", reflect.TypeOf((*MockProgrammer)(nil).WriteFlash), arg0, arg1)
}

// MockDeviceProvider is a mock of DeviceProvider interface.
type MockDeviceProvider struct {
	ctrl     *gomock.Controller
	recorder *MockDeviceProviderMockRecorder
}

// MockDeviceProviderMockRecorder is the mock recorder for MockDeviceProvider.
type MockDeviceProviderMockRecorder struct {
	mock *MockDeviceProvider
}

// NewMockDeviceProvider creates a new mock instance.
func NewMockDeviceProvider(ctrl *gomock.Controller) *MockDeviceProvider {
	mock := &MockDeviceProvider{ctrl: ctrl}
	mock.recorder = &MockDeviceProviderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockDeviceProvider) EXPECT() *MockDeviceProviderMockRecorder {
	return m.recorder
}

// RequestPort mocks base method.
func (m *MockDeviceProvider) RequestPort(arg0 context.Context) (models.DeviceHandle, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "RequestPort", arg0)
	ret0, _ := ret[0].(models.DeviceHandle)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// RequestPort indicates an expected call of RequestPort.
func (mr *MockDeviceProviderMockRecorder) RequestPort(arg0 interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "RequestPort", reflect.TypeOf((*MockDeviceProvider)(nil).RequestPort), arg0)
}
