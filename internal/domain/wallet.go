package domain

// Wallet is the 1:1 points wallet created in the same transaction as its
// owning user. Balance never goes negative.
type Wallet struct {
	WalletID string `json:"id" dynamodbav:"wallet_id"`
	UserID   string `json:"-" dynamodbav:"user_id"`
	Balance  int64  `json:"balance" dynamodbav:"balance"`
}
