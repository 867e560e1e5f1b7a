package models

import "time"

type ChannelPostStatus string

const (
	ChannelPostSent   ChannelPostStatus = "sent"
	ChannelPostFailed ChannelPostStatus = "failed"
)

// ChannelPost logs one attempt to publish a product to the promo channel.
type ChannelPost struct {
	ID                int               `db:"id" json:"id"`
	ProductID         *int              `db:"product_id" json:"productId"`
	MessageID         *string           `db:"message_id" json:"messageId,omitempty"`
	Caption           string            `db:"caption" json:"caption"`
	MarketingVariantA *string           `db:"marketing_variant_a" json:"marketingVariantA,omitempty"`
	MarketingVariantB *string           `db:"marketing_variant_b" json:"marketingVariantB,omitempty"`
	Status            ChannelPostStatus `db:"status" json:"status"`
	Error             *string           `db:"error" json:"error,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"createdAt"`
}
