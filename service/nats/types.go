package nats

import (
	"fmt"
	"time"

	"github.com/brojonat/coinguard/service/network"
	"github.com/brojonat/coinguard/service/validator"
	"github.com/google/uuid"
)

// SubjectPrefix prefixes every shortfall subject; the network name follows.
const SubjectPrefix = "redemptions.shortfall"

// ShortfallEvent reports a redemption that paid the redemption address less
// than the flagged amount. It is published to "redemptions.shortfall.{network}".
type ShortfallEvent struct {
	ID      uuid.UUID `json:"id"`
	Network string    `json:"network"`

	// Flagged transactions reached by the exploited inputs
	TxIDs []string `json:"txids"`

	// Amounts in the smallest monetary unit
	Required int64 `json:"required"`
	Redeemed int64 `json:"redeemed"`

	// Human readable minimum, e.g. "1000.000000 BLOCK"
	RequiredDisplay string `json:"required_display"`

	PublishedAt time.Time `json:"published_at"`
}

// Subject returns the subject the event is published to.
func (e *ShortfallEvent) Subject() string {
	return SubjectFor(e.Network)
}

// SubjectFor returns the shortfall subject for a network.
func SubjectFor(networkName string) string {
	return fmt.Sprintf("%s.%s", SubjectPrefix, networkName)
}

// FromShortfall converts a validator shortfall into an event for publishing.
func FromShortfall(params *network.Params, s validator.Shortfall) *ShortfallEvent {
	txids := make([]string, len(s.TxIDs))
	for i, h := range s.TxIDs {
		txids[i] = h.String()
	}

	return &ShortfallEvent{
		ID:              uuid.New(),
		Network:         params.Name,
		TxIDs:           txids,
		Required:        int64(s.Required),
		Redeemed:        int64(s.Redeemed),
		RequiredDisplay: params.FormatAmount(s.Required),
		PublishedAt:     time.Now().UTC(),
	}
}
