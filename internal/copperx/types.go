package copperx

// Wire types for the Copperx payout platform API. Field names follow the
// platform's JSON payloads.

// OTPRequest is the handle returned when an email OTP is issued. The sid
// must be echoed back during verification.
type OTPRequest struct {
	Email string `json:"email"`
	SID   string `json:"sid"`
}

// User is the authenticated account profile.
type User struct {
	ID                string `json:"id"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Email             string `json:"email"`
	ProfileImage      string `json:"profileImage,omitempty"`
	OrganizationID    string `json:"organizationId"`
	Role              string `json:"role"`
	Status            string `json:"status"`
	Type              string `json:"type"`
	RelayerAddress    string `json:"relayerAddress,omitempty"`
	WalletAddress     string `json:"walletAddress,omitempty"`
	WalletID          string `json:"walletId,omitempty"`
	WalletAccountType string `json:"walletAccountType,omitempty"`
}

// AuthResult is the response to successful OTP verification.
type AuthResult struct {
	Scheme        string `json:"scheme"`
	AccessToken   string `json:"accessToken"`
	AccessTokenID string `json:"accessTokenId"`
	ExpireAt      string `json:"expireAt"`
	User          User   `json:"user"`
}

// Balance is the aggregate wallet balance.
type Balance struct {
	Total       string `json:"total"`
	Available   string `json:"available"`
	Currency    string `json:"currency"`
	LastUpdated string `json:"lastUpdated"`
}

// Transaction is a single ledger entry.
type Transaction struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"createdAt"`
}

// Account is a linked payout account (bank account or external wallet).
type Account struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Status  string `json:"status"`
	Country string `json:"country,omitempty"`
	Network string `json:"network,omitempty"`
}

// Wallet is a custodial wallet attached to the organization.
type Wallet struct {
	ID            string `json:"id"`
	WalletType    string `json:"walletType"`
	Network       string `json:"network"`
	WalletAddress string `json:"walletAddress"`
	IsDefault     bool   `json:"isDefault"`
}

// TokenBalance is one asset position inside a wallet.
type TokenBalance struct {
	Decimals int    `json:"decimals"`
	Balance  string `json:"balance"`
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
}

// WalletBalance groups per-asset balances by wallet.
type WalletBalance struct {
	WalletID  string         `json:"walletId"`
	IsDefault bool           `json:"isDefault"`
	Network   string         `json:"network"`
	Balances  []TokenBalance `json:"balances"`
}

// DepositInfo carries the address details for funding a wallet.
type DepositInfo struct {
	WalletID       string `json:"walletId"`
	Network        string `json:"network"`
	DepositAddress string `json:"depositAddress"`
	MinimumDeposit string `json:"minimumDeposit,omitempty"`
}

// Transfer is a payout transaction (send or withdraw).
type Transfer struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Type      string `json:"type"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Recipient string `json:"recipient,omitempty"`
	CreatedAt string `json:"createdAt"`
}

// TransferPage is a paginated transfer listing.
type TransferPage struct {
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
	Count int        `json:"count"`
	Data  []Transfer `json:"data"`
}

// SendRequest initiates a transfer to another platform user.
type SendRequest struct {
	RecipientID string `json:"recipientId"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency,omitempty"`
}

// WithdrawRequest moves funds out to a linked account.
type WithdrawRequest struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency,omitempty"`
	Method   string `json:"method,omitempty"`
}

// KycStatus is the verification state for one email.
type KycStatus struct {
	Email  string `json:"email"`
	Status string `json:"status"`
}

// KycDetail is the applicant part of a verification record. KycURL is
// only set while the provider is waiting for the applicant to finish.
type KycDetail struct {
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Email       string `json:"email,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	UboType     string `json:"uboType,omitempty"`
	KycURL      string `json:"kycUrl,omitempty"`
}

// Kyc is a full verification record.
type Kyc struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	Type         string     `json:"type,omitempty"`
	Country      string     `json:"country,omitempty"`
	ProviderCode string     `json:"kycProviderCode,omitempty"`
	CreatedAt    string     `json:"createdAt,omitempty"`
	UpdatedAt    string     `json:"updatedAt,omitempty"`
	Detail       *KycDetail `json:"kycDetail,omitempty"`
}

// KycRequest starts a new verification.
type KycRequest struct {
	Type    string    `json:"type"`
	Country string    `json:"country"`
	Detail  KycDetail `json:"kycDetail"`
}
