package payments

import (
	"github.com/hugh/canicloud/internal/database/models"
	"github.com/hugh/canicloud/pkg/config"
)

// Pricing maps a database tier to the credits a captured order grants.
type Pricing struct {
	Premium      int64
	Professional int64
}

func PricingFromConfig(cfg config.PaymentsConfig) Pricing {
	return Pricing{Premium: cfg.PremiumPrice, Professional: cfg.ProfessionalPrice}
}

func (p Pricing) Price(version models.DatabaseVersion) int64 {
	switch version {
	case models.DatabaseVersionPremium:
		return p.Premium
	case models.DatabaseVersionProfessional:
		return p.Professional
	default:
		return 0
	}
}
