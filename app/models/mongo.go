package models

import "time"

type MongoUser struct {
	ID               string               `bson:"_id" json:"uid"`
	Email            string               `bson:"email" json:"email"`
	Name             string               `bson:"name" json:"name"`
	Plan             Plan                 `bson:"plan" json:"plan"`
	GenerationsUsed  int                  `bson:"generations_used" json:"generations_used"`
	GenerationsLimit int                  `bson:"generations_limit" json:"generations_limit"`
	CreatedAt        time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time            `bson:"updated_at" json:"updated_at"`
	PaymentHistory   []MongoPaymentRecord `bson:"payment_history" json:"payment_history"`
}

// Remaining returns how many generations are left in the current cycle.
func (u *MongoUser) Remaining() int {
	if u.GenerationsUsed >= u.GenerationsLimit {
		return 0
	}
	return u.GenerationsLimit - u.GenerationsUsed
}

type MongoPaymentRecord struct {
	OrderID string    `bson:"order_id" json:"order_id"`
	Amount  float64   `bson:"amount" json:"amount"`
	Plan    Plan      `bson:"plan" json:"plan"`
	Date    time.Time `bson:"date" json:"date"`
	Status  string    `bson:"status" json:"status"`
}

const PaymentStatusSuccess = "success"

type MongoPrompt struct {
	ID           string    `bson:"_id" json:"id"`
	UserID       string    `bson:"user_id" json:"user_id"`
	InputText    string    `bson:"input_text" json:"input_text"`
	OutputText   string    `bson:"output_text" json:"output_text"`
	Framework    string    `bson:"framework" json:"framework"`
	QualityScore float64   `bson:"quality_score" json:"quality_score"`
	Version      int       `bson:"version" json:"version"`
	ParentID     *string   `bson:"parent_id" json:"parent_id"`
	TokensUsed   int       `bson:"tokens_used" json:"tokens_used"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}

type MongoSharedLink struct {
	ID        string    `bson:"_id" json:"id"`
	Code      string    `bson:"code" json:"code"`
	PromptID  string    `bson:"prompt_id" json:"prompt_id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	Views     int64     `bson:"views" json:"views"`
}

// Expired reports whether the link can no longer be resolved at now.
func (l *MongoSharedLink) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

type MongoWaitlistEntry struct {
	ID        string    `bson:"_id" json:"id"`
	Email     string    `bson:"email" json:"email"`
	Source    string    `bson:"source" json:"source"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	Notified  bool      `bson:"notified" json:"notified"`
}
