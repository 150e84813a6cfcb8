package models

import (
	"time"

	"github.com/google/uuid"
)

// FeePayment purposes
const (
	PaymentPurposeContractDeployment = "contract_deployment"
	PaymentPurposePayoutOrg          = "payout_org"
	PaymentPurposeAddContractTokens  = "add_contract_tokens"
)

// FeePayment methods
const (
	PaymentMethodCrypto = "crypto"
	PaymentMethodFiat   = "fiat"
)

// FeePayment statuses
const (
	PaymentStatusPending    = "pending"
	PaymentStatusSuccessful = "successful"
	PaymentStatusFailed     = "failed"
	PaymentStatusExpired    = "expired"
)

// PaymentActive is the single non-null value of fee_payments.active.
// A partial unique index on (collection_id, purpose) WHERE active = 'active'
// enforces at most one active intent per purpose; terminal states null it.
const PaymentActive = "active"

// FeePayment is a payment intent: expected vs received funds for one
// purpose on one collection. Crypto payments accumulate amount_paid over
// multiple on-chain transfers; fiat payments settle in a single webhook.
type FeePayment struct {
	ID             uuid.UUID  `json:"id"`
	CollectionID   uuid.UUID  `json:"collection_id"`
	Purpose        string     `json:"purpose"`
	Method         string     `json:"method"`
	Currency       string     `json:"currency"`
	Network        string     `json:"network"`
	AmountExpected string     `json:"amount_expected"` // numeric as string
	AmountPaid     *string    `json:"amount_paid,omitempty"`
	Status         string     `json:"status"`
	Active         *string    `json:"active,omitempty"` // "active" or null
	ExpiresAt      time.Time  `json:"expires_at"`
	Sender         *string    `json:"sender,omitempty"`
	TxHash         *string    `json:"tx_hash,omitempty"`
	ProviderTxID   *string    `json:"provider_tx_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func IsValidPaymentPurpose(p string) bool {
	switch p {
	case PaymentPurposeContractDeployment, PaymentPurposePayoutOrg, PaymentPurposeAddContractTokens:
		return true
	}
	return false
}

// Source channels for normalized payment events.
const (
	PaymentChannelChain    = "chain"
	PaymentChannelProvider = "provider"
)

// NormalizedPaymentEvent is the channel-agnostic "payment observed" shape
// emitted by the chain listener and the webhook processor. It is ephemeral:
// consumed once by the reconciler per delivery and never persisted.
// For crypto the amount is incremental; for fiat it is absolute.
type NormalizedPaymentEvent struct {
	CollectionID uuid.UUID
	Purpose      string
	Method       string
	Amount       string
	Sender       string // chain sender address or provider tx id
	Network      string
	Channel      string
	TxHash       string
	ObservedAt   time.Time
}
