package promotion

import "time"

// Quote is the outcome of evaluating a promotion against an order amount.
type Quote struct {
	Discount    int64 `json:"discount"`
	FinalAmount int64 `json:"final_amount"`
}

// Evaluate computes the discount a promotion yields for orderAmount at the
// given instant. It is pure: no lookups, no usage-count side effects. Both
// the read-only validate endpoint and the order transaction go through it,
// so the discount a customer previews is exactly the discount the committed
// order carries.
func Evaluate(p *Promotion, orderAmount int64, now time.Time) (*Quote, error) {
	if !p.Usable(now) {
		return nil, ErrPromotionNotUsable
	}

	if p.MinOrderAmount != nil && orderAmount < *p.MinOrderAmount {
		return nil, ErrBelowMinimumOrder
	}

	var discount int64
	switch p.Type {
	case TypeFixed:
		discount = p.Value
		if discount > orderAmount {
			discount = orderAmount
		}
	case TypePercentage:
		discount = orderAmount * p.Value / 100
		if p.MaxDiscountAmount != nil && discount > *p.MaxDiscountAmount {
			discount = *p.MaxDiscountAmount
		}
	default:
		return nil, ErrPromotionNotUsable
	}

	if discount < 0 {
		discount = 0
	}

	final := orderAmount - discount
	if final < 0 {
		final = 0
	}

	return &Quote{Discount: discount, FinalAmount: final}, nil
}
