package domain

// LifecyclePayload is carried by payment outbox events. OrderIDs lists
// every order whose paid amount may have changed, before and after the
// mutation.
type LifecyclePayload struct {
	PaymentID string   `json:"payment_id"`
	OrderIDs  []string `json:"order_ids"`
}
