package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hugh/canicloud/internal/database/models"
	"github.com/hugh/canicloud/internal/store"
	"gorm.io/datatypes"
)

var (
	ErrProjectNotFound        = errors.New("project not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrAlreadyCaptured        = errors.New("order already captured")
	ErrUnknownProvider        = errors.New("unknown payment provider")
	ErrInvalidAmount          = errors.New("amount does not cover the tier price")
	ErrInvalidDatabaseVersion = errors.New("invalid database version")
	ErrProviderFailed         = errors.New("payment provider failed")
)

type ServiceConfig struct {
	Store           *store.Store
	Providers       map[string]Provider
	DefaultProvider string
	Currency        string
	Pricing         Pricing
	Logger          *slog.Logger
}

type Service struct {
	store           *store.Store
	providers       map[string]Provider
	defaultProvider string
	currency        string
	pricing         Pricing
	logger          *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = "paypal"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		store:           cfg.Store,
		providers:       cfg.Providers,
		defaultProvider: cfg.DefaultProvider,
		currency:        cfg.Currency,
		pricing:         cfg.Pricing,
		logger:          cfg.Logger,
	}
}

func (s *Service) provider(name string) (Provider, error) {
	if name == "" {
		name = s.defaultProvider
	}
	p, ok := s.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	return p, nil
}

type CreateOrderInput struct {
	Amount          int64
	DatabaseVersion models.DatabaseVersion
	ProjectID       uuid.UUID
	Provider        string
}

// CreateOrder opens a provider order for a project the user owns and
// records it as an initiated payment.
func (s *Service) CreateOrder(ctx context.Context, userID uuid.UUID, in CreateOrderInput) (*Order, error) {
	if !in.DatabaseVersion.Valid() {
		return nil, ErrInvalidDatabaseVersion
	}
	if in.Amount <= 0 || in.Amount < s.pricing.Price(in.DatabaseVersion) {
		return nil, ErrInvalidAmount
	}

	provider, err := s.provider(in.Provider)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Projects().FindOwned(ctx, in.ProjectID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	order, err := provider.CreateOrder(ctx, in.Amount, s.currency)
	if err != nil {
		s.logger.Error("provider order failed", "provider", provider.Name(), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	payment := &models.Payment{
		Provider:        provider.Name(),
		OrderID:         order.ID,
		UserID:          userID,
		ProjectID:       in.ProjectID,
		DatabaseVersion: in.DatabaseVersion,
		Amount:          in.Amount,
		Status:          models.PaymentStatusInitiated,
		Metadata:        datatypes.JSON(order.Raw),
	}
	if err := s.store.Payments().Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("recording payment: %w", err)
	}

	s.logger.Info("order created", "order_id", order.ID, "provider", provider.Name(), "user_id", userID)
	return order, nil
}

// CaptureOrder captures a previously created order and credits the user
// with the tier price. A payment can be captured once. Once the provider
// has taken the money the rest runs detached from ctx, and a payment left
// in captured is finished by the next call without reaching the provider.
func (s *Service) CaptureOrder(ctx context.Context, userID uuid.UUID, orderID string) (*models.Payment, error) {
	payment, err := s.store.Payments().FindByOrderID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && payment.UserID != userID) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentStatusCaptured {
		return s.grantCredits(context.WithoutCancel(ctx), payment)
	}

	provider, err := s.provider(payment.Provider)
	if err != nil {
		return nil, err
	}

	claimed, err := s.store.Payments().Transition(ctx, orderID, models.PaymentStatusInitiated, models.PaymentStatusProcessing)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrAlreadyCaptured
	}

	order, err := provider.CaptureOrder(ctx, orderID)
	if err != nil {
		// The request may already be cancelled; the revert must still land.
		revertCtx := context.WithoutCancel(ctx)
		if _, rerr := s.store.Payments().Transition(revertCtx, orderID, models.PaymentStatusProcessing, models.PaymentStatusInitiated); rerr != nil {
			s.logger.Error("failed to revert payment", "order_id", orderID, "error", rerr)
		}
		s.logger.Warn("capture failed", "order_id", orderID, "provider", provider.Name(), "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}

	commitCtx := context.WithoutCancel(ctx)
	if err := s.store.Payments().MarkCaptured(commitCtx, orderID, datatypes.JSON(order.Raw)); err != nil {
		s.logger.Error("captured order not recorded", "order_id", orderID, "error", err)
		return nil, err
	}
	return s.grantCredits(commitCtx, payment)
}

// grantCredits completes a captured payment and credits its owner in one
// unit of work.
func (s *Service) grantCredits(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	credits := s.pricing.Price(payment.DatabaseVersion)
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Payments().Complete(ctx, payment.OrderID); err != nil {
			return err
		}
		return tx.Users().AddCredits(ctx, payment.UserID, credits)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrAlreadyCaptured
	}
	if err != nil {
		s.logger.Error("credits not granted", "order_id", payment.OrderID, "error", err)
		return nil, err
	}

	s.logger.Info("order captured", "order_id", payment.OrderID, "user_id", payment.UserID, "credits", credits)
	return s.store.Payments().FindByOrderID(ctx, payment.OrderID)
}
