package validation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/orderflow/order-ingest-service/internal/model"
)

// ErrInvalidOrder is the root of every rejection; branch with errors.Is and
// read the wrapped message for the field that failed.
var ErrInvalidOrder = errors.New("invalid order")

func reject(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidOrder, fmt.Sprintf(format, args...))
}

// ValidateOrder enforces the acceptance invariants before the payload
// reaches the coordinator: non-empty items, positive quantities,
// non-negative money, a complete payment descriptor, and totals that add
// up. Amount arithmetic goes through decimal so float representation noise
// cannot reject a well-formed order.
func ValidateOrder(o model.Order) error {
	if o.Customer.ID == "" {
		return reject("customer.id is required")
	}
	if o.Customer.Email == "" {
		return reject("customer.email is required")
	}
	if err := validateAddress("shippingAddress", o.Customer.ShippingAddress); err != nil {
		return err
	}
	if err := validateAddress("billingAddress", o.Customer.BillingAddress); err != nil {
		return err
	}

	if len(o.Items) == 0 {
		return reject("items must not be empty")
	}
	for i, it := range o.Items {
		if it.ProductID == "" {
			return reject("items[%d].productId is required", i)
		}
		if it.Name == "" {
			return reject("items[%d].name is required", i)
		}
		if it.Quantity <= 0 {
			return reject("items[%d].quantity must be positive", i)
		}
		if it.Price < 0 {
			return reject("items[%d].price must not be negative", i)
		}
	}

	if o.ShippingMethod.ID == "" {
		return reject("shippingMethod.id is required")
	}
	if o.ShippingMethod.Cost < 0 {
		return reject("shippingMethod.cost must not be negative")
	}

	if err := validatePayment(o.Payment); err != nil {
		return err
	}

	if o.OrderTotal < 0 || o.TaxAmount < 0 || o.DiscountAmount < 0 {
		return reject("monetary totals must not be negative")
	}
	return validateTotals(o)
}

func validateAddress(field string, a model.Address) error {
	if a.Street == "" || a.City == "" || a.ZipCode == "" || a.Country == "" {
		return reject("%s must include street, city, zip_code and country", field)
	}
	return nil
}

func validatePayment(p model.Payment) error {
	if p.Method == "" {
		return reject("payment.method is required")
	}
	if p.Token == "" {
		return reject("payment.token is required")
	}
	if p.Amount < 0 {
		return reject("payment.amount must not be negative")
	}
	if len(p.Currency) != 3 {
		return reject("payment.currency must be a 3-letter code")
	}
	return nil
}

// validateTotals cross-checks orderTotal against the line items, shipping,
// tax and discount, and requires the payment amount to match the total.
func validateTotals(o model.Order) error {
	sum := decimal.NewFromFloat(o.ShippingMethod.Cost).
		Add(decimal.NewFromFloat(o.TaxAmount)).
		Sub(decimal.NewFromFloat(o.DiscountAmount))
	for _, it := range o.Items {
		line := decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity)))
		sum = sum.Add(line)
	}
	total := decimal.NewFromFloat(o.OrderTotal)
	if !sum.Equal(total) {
		return reject("orderTotal %s does not match computed total %s", total, sum)
	}
	if !decimal.NewFromFloat(o.Payment.Amount).Equal(total) {
		return reject("payment.amount does not match orderTotal")
	}
	return nil
}
