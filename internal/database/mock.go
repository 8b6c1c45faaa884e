package database

import (
	"github.com/stretchr/testify/mock"
)

type MockPixelBoardRepository struct {
	mock.Mock
}

func (m *MockPixelBoardRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockPixelBoardRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockPixelBoardRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockPixelBoardRepository) GetAccountById(accountId int) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockPixelBoardRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockPixelBoardRepository) SetAccountBanned(accountId int, banned bool) error {
	args := m.Called(accountId, banned)
	return args.Error(0)
}
func (m *MockPixelBoardRepository) DeleteAccount(accountId int) error {
	args := m.Called(accountId)
	return args.Error(0)
}
func (m *MockPixelBoardRepository) PlacePixel(params PlacePixelParams) (PixelAction, error) {
	args := m.Called(params)
	return args.Get(0).(PixelAction), args.Error(1)
}
func (m *MockPixelBoardRepository) CanvasPixels() ([]PixelAction, error) {
	args := m.Called()
	return args.Get(0).([]PixelAction), args.Error(1)
}
func (m *MockPixelBoardRepository) CountPaintedPixels() (int, error) {
	args := m.Called()
	return args.Int(0), args.Error(1)
}
func (m *MockPixelBoardRepository) GetPixelHistory(x, y, limit int) ([]PixelAction, error) {
	args := m.Called(x, y, limit)
	return args.Get(0).([]PixelAction), args.Error(1)
}
