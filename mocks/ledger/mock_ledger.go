// Code generated by MockGen. DO NOT EDIT.
// Source: ledger.go
//
// Generated by this command:
//
//	mockgen -source=ledger.go -destination=../../mocks/ledger/mock_ledger.go -package=mockledger
//

// Package mockledger is a generated GoMock package.
package mockledger

import (
	context "context"
	reflect "reflect"

	ledger "coffer/internal/ledger"
	domain "coffer/pkg/domain"
	gomock "go.uber.org/mock/gomock"
)

// MockLedger is a mock of Ledger interface.
type MockLedger struct {
	ctrl     *gomock.Controller
	recorder *MockLedgerMockRecorder
	isgomock struct{}
}

// MockLedgerMockRecorder is the mock recorder for MockLedger.
type MockLedgerMockRecorder struct {
	mock *MockLedger
}

// NewMockLedger creates a new mock instance.
func NewMockLedger(ctrl *gomock.Controller) *MockLedger {
	mock := &MockLedger{ctrl: ctrl}
	mock.recorder = &MockLedgerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockLedger) EXPECT() *MockLedgerMockRecorder {
	return m.recorder
}

// MinimumBalance mocks base method.
func (m *MockLedger) MinimumBalance() ledger.Amount {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "MinimumBalance")
	ret0, _ := ret[0].(ledger.Amount)
	return ret0
}

// MinimumBalance indicates an expected call of MinimumBalance.
func (mr *MockLedgerMockRecorder) MinimumBalance() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "MinimumBalance", reflect.TypeOf((*MockLedger)(nil).MinimumBalance))
}

// FreeBalance mocks base method.
func (m *MockLedger) FreeBalance(ctx context.Context, account domain.AccountID) (ledger.Amount, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "FreeBalance", ctx, account)
	ret0, _ := ret[0].(ledger.Amount)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// FreeBalance indicates an expected call of FreeBalance.
func (mr *MockLedgerMockRecorder) FreeBalance(ctx, account any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "FreeBalance", reflect.TypeOf((*MockLedger)(nil).FreeBalance), ctx, account)
}

// Transfer mocks base method.
func (m *MockLedger) Transfer(ctx context.Context, from, to domain.AccountID, amount ledger.Amount, policy ledger.ExistencePolicy) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Transfer", ctx, from, to, amount, policy)
	ret0, _ := ret[0].(error)
	return ret0
}

// Transfer indicates an expected call of Transfer.
func (mr *MockLedgerMockRecorder) Transfer(ctx, from, to, amount, policy any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Transfer", reflect.TypeOf((*MockLedger)(nil).Transfer), ctx, from, to, amount, policy)
}

// ResolveCreating mocks base method.
func (m *MockLedger) ResolveCreating(ctx context.Context, account domain.AccountID, s *ledger.Surplus) (ledger.Amount, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ResolveCreating", ctx, account, s)
	ret0, _ := ret[0].(ledger.Amount)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ResolveCreating indicates an expected call of ResolveCreating.
func (mr *MockLedgerMockRecorder) ResolveCreating(ctx, account, s any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ResolveCreating", reflect.TypeOf((*MockLedger)(nil).ResolveCreating), ctx, account, s)
}

// EnsureMinimumBalance mocks base method.
func (m *MockLedger) EnsureMinimumBalance(ctx context.Context, account domain.AccountID) (ledger.Amount, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "EnsureMinimumBalance", ctx, account)
	ret0, _ := ret[0].(ledger.Amount)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// EnsureMinimumBalance indicates an expected call of EnsureMinimumBalance.
func (mr *MockLedgerMockRecorder) EnsureMinimumBalance(ctx, account any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "EnsureMinimumBalance", reflect.TypeOf((*MockLedger)(nil).EnsureMinimumBalance), ctx, account)
}

// MockDustCollector is a mock of DustCollector interface.
type MockDustCollector struct {
	ctrl     *gomock.Controller
	recorder *MockDustCollectorMockRecorder
	isgomock struct{}
}

// MockDustCollectorMockRecorder is the mock recorder for MockDustCollector.
type MockDustCollectorMockRecorder struct {
	mock *MockDustCollector
}

// NewMockDustCollector creates a new mock instance.
func NewMockDustCollector(ctrl *gomock.Controller) *MockDustCollector {
	mock := &MockDustCollector{ctrl: ctrl}
	mock.recorder = &MockDustCollectorMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockDustCollector) EXPECT() *MockDustCollectorMockRecorder {
	return m.recorder
}

// CollectDust mocks base method.
func (m *MockDustCollector) CollectDust(ctx context.Context) (*ledger.Surplus, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CollectDust", ctx)
	ret0, _ := ret[0].(*ledger.Surplus)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CollectDust indicates an expected call of CollectDust.
func (mr *MockDustCollectorMockRecorder) CollectDust(ctx any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CollectDust", reflect.TypeOf((*MockDustCollector)(nil).CollectDust), ctx)
}
