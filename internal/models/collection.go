package models

import (
	"time"

	"github.com/google/uuid"
)

// Collection statuses
const (
	CollectionStatusDraft                = "draft"
	CollectionStatusPaymentPending       = "payment_pending"
	CollectionStatusProcessingPayment    = "processing_payment"
	CollectionStatusDeploymentInProgress = "deployment_in_progress"
	CollectionStatusDeploymentFailed     = "deployment_failed"
	CollectionStatusDeployed             = "deployed"
)

// Valid state transitions: from -> []to.
// "deployed" is terminal. "deployment_failed" -> "draft" is the operator
// recovery edge; it must clear stale fee estimates (see CollectionRepo.ResetToDraft).
var ValidCollectionTransitions = map[string][]string{
	CollectionStatusDraft:                {CollectionStatusPaymentPending},
	CollectionStatusPaymentPending:       {CollectionStatusProcessingPayment, CollectionStatusDeploymentInProgress, CollectionStatusDeploymentFailed, CollectionStatusDraft},
	CollectionStatusProcessingPayment:    {CollectionStatusDeploymentInProgress, CollectionStatusDeploymentFailed},
	CollectionStatusDeploymentInProgress: {CollectionStatusDeployed, CollectionStatusDeploymentFailed},
	CollectionStatusDeploymentFailed:     {CollectionStatusDraft, CollectionStatusDeploymentInProgress},
	CollectionStatusDeployed:             {},
}

func IsValidCollectionTransition(from, to string) bool {
	allowed, ok := ValidCollectionTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

type Collection struct {
	ID                          uuid.UUID  `json:"id"`
	OrganizationID              uuid.UUID  `json:"organization_id"`
	Chain                       string     `json:"chain"` // network key, e.g. "base"
	ContractAddress             *string    `json:"contract_address,omitempty"`
	Status                      string     `json:"status"`
	Name                        string     `json:"name"`
	Description                 string     `json:"description"`
	About                       string     `json:"about"`
	RoyaltyAddress              string     `json:"royalty_address"`
	PayoutAddress               string     `json:"payout_address"`
	RoyaltyBPS                  int        `json:"royalty_bps"`
	AgreeToTerms                bool       `json:"agree_to_terms"`
	UnderstandIrreversibleAction bool      `json:"understand_irreversible_action"`
	FeeEstimateCrypto           *string    `json:"fee_estimate_crypto,omitempty"` // numeric as string
	FeeEstimateFiat             *string    `json:"fee_estimate_fiat,omitempty"`
	PaymentExpiresAt            *time.Time `json:"payment_expires_at,omitempty"`
	CreatedAt                   time.Time  `json:"created_at"`
	UpdatedAt                   time.Time  `json:"updated_at"`
}

// MissingDeployFields returns every collection field still required before
// a contract deployment may be attempted. Order is stable for tests and
// error messages.
func (c *Collection) MissingDeployFields() []string {
	var missing []string
	if c.Chain == "" {
		missing = append(missing, "chain")
	}
	if c.Name == "" {
		missing = append(missing, "name")
	}
	if c.Description == "" {
		missing = append(missing, "description")
	}
	if c.About == "" {
		missing = append(missing, "about")
	}
	if c.RoyaltyAddress == "" {
		missing = append(missing, "royalty_address")
	}
	if c.PayoutAddress == "" {
		missing = append(missing, "payout_address")
	}
	if !c.AgreeToTerms {
		missing = append(missing, "agree_to_terms")
	}
	if !c.UnderstandIrreversibleAction {
		missing = append(missing, "understand_irreversible_action")
	}
	return missing
}

// CollectionItem is the single item template minted by the deployed contract.
type CollectionItem struct {
	ID           uuid.UUID `json:"id"`
	CollectionID uuid.UUID `json:"collection_id"`
	Chain        string    `json:"chain"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	TokenFormat  string    `json:"token_format"` // erc721 / erc1155
	ImageURL     string    `json:"image_url"`
	Price        string    `json:"price"` // numeric as string
	MaxSupply    int64     `json:"max_supply"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (i *CollectionItem) MissingDeployFields() []string {
	var missing []string
	if i.Chain == "" {
		missing = append(missing, "item.chain")
	}
	if i.Name == "" {
		missing = append(missing, "item.name")
	}
	if i.Description == "" {
		missing = append(missing, "item.description")
	}
	if i.TokenFormat == "" {
		missing = append(missing, "item.token_format")
	}
	if i.ImageURL == "" {
		missing = append(missing, "item.image")
	}
	if i.Price == "" {
		missing = append(missing, "item.price")
	}
	return missing
}

// DeploySymbol derives the token symbol: first 3 characters of the
// collection name, upper-cased.
func (c *Collection) DeploySymbol() string {
	runes := []rune(c.Name)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	symbol := make([]rune, len(runes))
	for i, r := range runes {
		if 'a' <= r && r <= 'z' {
			r -= 'a' - 'A'
		}
		symbol[i] = r
	}
	return string(symbol)
}
