package database

type PixelBoardRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId int) (User, error)
	GetAccountByEmail(email string) (User, error)
	SetAccountBanned(accountId int, banned bool) error
	DeleteAccount(accountId int) error
	PlacePixel(params PlacePixelParams) (PixelAction, error)
	CanvasPixels() ([]PixelAction, error)
	CountPaintedPixels() (int, error)
	GetPixelHistory(x, y, limit int) ([]PixelAction, error)
}
