package wallet

import (
	"context"

	"github.com/bsv-blockchain/xbridge/model"
	"github.com/stretchr/testify/mock"
)

type MockConnector struct {
	mock.Mock
}

func (m *MockConnector) Currency() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockConnector) Addresses() []string {
	args := m.Called()

	if args.Get(0) == nil {
		return nil
	}

	return args.Get(0).([]string)
}

func (m *MockConnector) GetUnspentOutputs(ctx context.Context) ([]model.UtxoEntry, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]model.UtxoEntry), args.Error(1)
}

func (m *MockConnector) ToNetworkAddress(address string) ([]byte, error) {
	args := m.Called(address)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockConnector) LockUnspent(ctx context.Context, entries []model.UtxoEntry, lock bool) error {
	args := m.Called(ctx, entries, lock)
	return args.Error(0)
}

func (m *MockConnector) ReverseTransaction(ctx context.Context, refTx string) (bool, error) {
	args := m.Called(ctx, refTx)
	return args.Bool(0), args.Error(1)
}

func (m *MockConnector) RequiredConfirmations() int {
	args := m.Called()
	return args.Int(0)
}
