package entity

import "time"

type BillerInteractionType string

const (
	BillerInteractionTypeRequest  BillerInteractionType = "request"
	BillerInteractionTypeResponse BillerInteractionType = "response"
)

// BillerInteraction is one raw request or response payload exchanged with a
// biller. Immutable once appended.
type BillerInteraction struct {
	interactionType BillerInteractionType
	payload         string
	createdAt       time.Time
}

func NewBillerInteraction(interactionType BillerInteractionType, payload string, createdAt time.Time) BillerInteraction {
	return BillerInteraction{
		interactionType: interactionType,
		payload:         payload,
		createdAt:       createdAt.UTC(),
	}
}

func (i BillerInteraction) Type() BillerInteractionType {
	return i.interactionType
}

func (i BillerInteraction) Payload() string {
	return i.payload
}

func (i BillerInteraction) CreatedAt() time.Time {
	return i.createdAt
}

// BillerInteractionCollection is the append-only audit trail of everything
// exchanged with the biller for one transaction, in insertion order.
type BillerInteractionCollection struct {
	items []BillerInteraction
}

func NewBillerInteractionCollection(items ...BillerInteraction) BillerInteractionCollection {
	collection := BillerInteractionCollection{items: make([]BillerInteraction, 0, len(items))}
	collection.items = append(collection.items, items...)
	return collection
}

func (c *BillerInteractionCollection) Append(item BillerInteraction) {
	c.items = append(c.items, item)
}

func (c *BillerInteractionCollection) Len() int {
	return len(c.items)
}

func (c *BillerInteractionCollection) Items() []BillerInteraction {
	items := make([]BillerInteraction, len(c.items))
	copy(items, c.items)
	return items
}

func (c *BillerInteractionCollection) LastResponse() (BillerInteraction, bool) {
	for i := len(c.items) - 1; i >= 0; i-- {
		if c.items[i].interactionType == BillerInteractionTypeResponse {
			return c.items[i], true
		}
	}
	return BillerInteraction{}, false
}
