package dto

type CreateCollectionItemRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TokenFormat string `json:"token_format"`
	ImageURL    string `json:"image_url"`
	Price       string `json:"price"`
	MaxSupply   int64  `json:"max_supply"`
}

type CreateCollectionRequest struct {
	OrganizationID               string                      `json:"organization_id"`
	Chain                        string                      `json:"chain"`
	Name                         string                      `json:"name"`
	Description                  string                      `json:"description"`
	About                        string                      `json:"about"`
	RoyaltyAddress               string                      `json:"royalty_address"`
	PayoutAddress                string                      `json:"payout_address"`
	RoyaltyBPS                   int                         `json:"royalty_bps"`
	AgreeToTerms                 bool                        `json:"agree_to_terms"`
	UnderstandIrreversibleAction bool                        `json:"understand_irreversible_action"`
	Item                         CreateCollectionItemRequest `json:"item"`
}

type CreatePaymentRequest struct {
	Method string `json:"method"` // crypto / fiat
}
