package storefront

const (
	ShippingModeByMerchant  = "byMerchant"
	PaymentMethodCreditCard = "CreditCard"
	// DefaultPaymentMethodID is the storefront's identifier for card payments.
	DefaultPaymentMethodID = "e13bb06b-392b-49a0-8acd-3f44416e3234"
)

// Product is the catalog entry returned by the products endpoint. Only the
// fields the monitor relies on are decoded.
type Product struct {
	Slug   string        `json:"slug"`
	Result ProductResult `json:"result"`
}

// ProductResult carries the numeric product id and its variants.
type ProductResult struct {
	ID               int64     `json:"id"`
	ShortDescription string    `json:"shortDescription"`
	IsOnline         bool      `json:"isOnline"`
	Variants         []Variant `json:"variants"`
}

// Variant is a purchasable SKU instance.
type Variant struct {
	ID             string `json:"id"`
	MerchantID     int64  `json:"merchantId"`
	FormattedPrice string `json:"formattedPrice,omitempty"`
	Quantity       int64  `json:"quantity"`
	Size           string `json:"size"`
}

// Order is the checkout order as returned by create and patch calls.
type Order struct {
	ID            int64         `json:"id"`
	OrderStatus   int64         `json:"orderStatus"`
	CheckoutOrder CheckoutOrder `json:"checkoutOrder"`
}

type CheckoutOrder struct {
	ID                  int64   `json:"id"`
	OrderID             string  `json:"orderId"`
	Currency            string  `json:"currency"`
	CountryID           int64   `json:"countryId"`
	GrandTotal          float64 `json:"grandTotal"`
	FormattedGrandTotal string  `json:"formattedGrandTotal"`
	Status              int64   `json:"status"`
}

// CreateOrderRequest is the body of the order creation call.
type CreateOrderRequest struct {
	GuestUserEmail   string      `json:"guestUserEmail"`
	UsePaymentIntent bool        `json:"usePaymentIntent"`
	ShippingMode     string      `json:"shippingMode"`
	Items            []OrderItem `json:"items"`
}

type OrderItem struct {
	MerchantID int64  `json:"merchantId"`
	ProductID  int64  `json:"productId"`
	Quantity   int64  `json:"quantity"`
	VariantID  string `json:"variantId"`
}

// AddressPatch assigns billing and shipping addresses to an order.
type AddressPatch struct {
	BillingAddress  Address `json:"billingAddress"`
	ShippingAddress Address `json:"shippingAddress"`
}

type Address struct {
	FirstName    string         `json:"firstName"`
	LastName     string         `json:"lastName"`
	Country      AddressCountry `json:"country"`
	AddressLine1 string         `json:"addressLine1"`
	AddressLine2 string         `json:"addressLine2"`
	AddressLine3 string         `json:"addressLine3"`
	City         Named          `json:"city"`
	State        Named          `json:"state"`
	ZipCode      string         `json:"zipCode"`
	Phone        string         `json:"phone"`
}

type AddressCountry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Named struct {
	Name string `json:"name"`
}

// CardPayment is the body of the finalize call.
type CardPayment struct {
	CardNumber               string `json:"cardNumber"`
	CardHolderName           string `json:"cardHolderName"`
	CardExpiryMonth          int64  `json:"cardExpiryMonth"`
	CardExpiryYear           int64  `json:"cardExpiryYear"`
	CardCVV                  string `json:"cardCvv"`
	PaymentMethodType        string `json:"paymentMethodType"`
	PaymentMethodID          string `json:"paymentMethodId"`
	SavePaymentMethodAsToken bool   `json:"savePaymentMethodAsToken"`
}
