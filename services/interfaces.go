package services

import (
	"context"

	"snooptrade/models"
)

// SnoopTradeServiceInterface defines the upstream operations the app depends on
type SnoopTradeServiceInterface interface {
	// Auth operations
	Login(ctx context.Context, email, password string) (string, error)
	LoginFederated(ctx context.Context, email, credential string) (string, error)
	SignUp(ctx context.Context, req models.SignUpRequest) error

	// Profile operations
	Me(ctx context.Context, token string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, token string, update models.ProfileUpdate) error

	// Market data operations
	GetStocks(ctx context.Context, token, symbol string, window models.TimeWindow) ([]models.RawPricePoint, error)
	GetTransactions(ctx context.Context, token, symbol string, window models.TimeWindow) ([]models.RawTrade, error)

	// Forecast operations
	Forecast(ctx context.Context, token string, points []models.ForecastInput) ([]models.ForecastPoint, error)
}

// Compile-time interface verification
var _ SnoopTradeServiceInterface = (*SnoopTradeService)(nil)
