package model

// Order is the client-submitted purchase request. Field names follow the
// public JSON contract; the payload is stored verbatim, so nothing here may
// drop or rename fields once accepted.
type Order struct {
	Customer       Customer       `json:"customer"`
	Items          []Item         `json:"items"`
	ShippingMethod ShippingMethod `json:"shippingMethod"`
	Payment        Payment        `json:"payment"`
	OrderTotal     float64        `json:"orderTotal"`
	TaxAmount      float64        `json:"taxAmount"`
	DiscountAmount float64        `json:"discountAmount"`
	Notes          string         `json:"notes,omitempty"`
}

type Customer struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	FirstName       string  `json:"firstName"`
	LastName        string  `json:"lastName"`
	ShippingAddress Address `json:"shippingAddress"`
	BillingAddress  Address `json:"billingAddress"`
}

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

type Item struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Variant   string  `json:"variant,omitempty"`
}

type ShippingMethod struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Cost float64 `json:"cost"`
}

// Payment carries an opaque provider token; nothing is settled here.
type Payment struct {
	Method   string  `json:"method"`
	Token    string  `json:"token"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}
