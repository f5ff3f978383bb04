package domain

// PaymentMethod is an opaque payment instrument. The checkout flow passes
// it through to the gateway unchanged and never branches on Kind.
type PaymentMethod struct {
	Kind  string `json:"kind"`
	Token string `json:"token"`
}
