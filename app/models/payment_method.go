package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	PaymentMethodTypeCard = "card"
	PaymentMethodTypeEFT  = "eft"
)

const (
	TokenStatusActive = "active"
)

// PaymentMethod is a stored customer payment instrument. Webhooks only
// create rows from validated card or bank account transactions.
type PaymentMethod struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	CustomerID       string    `gorm:"type:varchar(64);not null;index:idx_payment_methods_customer_active,priority:1" json:"customer_id"`
	MethodType       string    `gorm:"type:varchar(10);not null" json:"method_type" validate:"oneof=card eft"`
	DisplayName      string    `gorm:"type:varchar(100)" json:"display_name"`
	LastFour         string    `gorm:"type:varchar(4)" json:"last_four" validate:"omitempty,len=4,numeric"`
	IsPrimary        bool      `gorm:"default:false" json:"is_primary"`
	IsActive         bool      `gorm:"default:true;index:idx_payment_methods_customer_active,priority:2" json:"is_active"`
	TokenStatus      string    `gorm:"type:varchar(20);not null;default:'active'" json:"token_status"`
	EncryptedDetails string    `gorm:"type:text" json:"-"`
	SourceTxID       string    `gorm:"type:varchar(191);index" json:"source_transaction_id"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (m *PaymentMethod) Validate() error {
	v := validator.New()

	return v.Struct(m)
}
