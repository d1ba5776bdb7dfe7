package schema

import "aria/internal/domain"

var paymentMethods = []string{"credit_card", "debit_card", "bank_transfer", "digital_wallet"}

func builtinSchemas() map[domain.TransactionType][]FieldSpec {
	return map[domain.TransactionType][]FieldSpec{
		domain.TransactionTypeHotelBooking: {
			{Name: "destination", Kind: domain.FieldKindString, Importance: domain.ImportanceHigh, Description: "City, region or country of the stay"},
			{Name: "check_in_date", Kind: domain.FieldKindDate, Importance: domain.ImportanceHigh, Description: "Arrival date"},
			{Name: "check_out_date", Kind: domain.FieldKindDate, Importance: domain.ImportanceHigh, Description: "Departure date"},
			{Name: "guests", Kind: domain.FieldKindInteger, Importance: domain.ImportanceHigh, Description: "Total number of guests"},
			{Name: "rooms", Kind: domain.FieldKindInteger, Description: "Number of rooms"},
			{Name: "budget", Kind: domain.FieldKindFloat, Importance: domain.ImportanceMedium, Description: "Budget per night"},
			{Name: "room_type", Kind: domain.FieldKindEnum, EnumValues: []string{"single", "double", "twin", "suite"}, Description: "Preferred room type"},
			{Name: "special_requests", Kind: domain.FieldKindString, Description: "Accessibility, amenity or location preferences"},
			{Name: "loyalty_program", Kind: domain.FieldKindString, Description: "Loyalty program name or member number"},
		},
		domain.TransactionTypeBillPayment: {
			{Name: "provider", Kind: domain.FieldKindString, Importance: domain.ImportanceHigh, Description: "Service provider being paid"},
			{Name: "account_number", Kind: domain.FieldKindString, Importance: domain.ImportanceHigh, Description: "Account number or payment reference"},
			{Name: "amount", Kind: domain.FieldKindFloat, Importance: domain.ImportanceHigh, Description: "Amount to pay"},
			{Name: "billing_period", Kind: domain.FieldKindString, Importance: domain.ImportanceMedium, Description: "Billing period covered by the payment"},
			{Name: "due_date", Kind: domain.FieldKindDate, Importance: domain.ImportanceMedium, Description: "Payment due date"},
			{Name: "payment_method", Kind: domain.FieldKindEnum, EnumValues: paymentMethods, Importance: domain.ImportanceMedium, Description: "How the bill is paid"},
			{Name: "autopay", Kind: domain.FieldKindEnum, EnumValues: []string{"yes", "no"}, Importance: domain.ImportanceLow, Description: "Whether to set up automatic payments"},
		},
		domain.TransactionTypeProductPurchase: {
			{Name: "product_name", Kind: domain.FieldKindString, Importance: domain.ImportanceHigh, Description: "Product being purchased"},
			{Name: "quantity", Kind: domain.FieldKindInteger, Importance: domain.ImportanceHigh, Description: "Number of units"},
			{Name: "delivery_address", Kind: domain.FieldKindString, Importance: domain.ImportanceHigh, Description: "Shipping address"},
			{Name: "unit_price", Kind: domain.FieldKindFloat, Importance: domain.ImportanceMedium, Description: "Expected price per unit"},
			{Name: "variant", Kind: domain.FieldKindString, Description: "Size, color or model variant"},
			{Name: "payment_method", Kind: domain.FieldKindEnum, EnumValues: paymentMethods, Importance: domain.ImportanceMedium, Description: "How the purchase is paid"},
			{Name: "delivery_date", Kind: domain.FieldKindDate, Importance: domain.ImportanceLow, Description: "Requested delivery date"},
		},
	}
}

var defaultRegistry = mustDefault()

func mustDefault() *Registry {
	r, err := NewRegistry(domain.ValidTransactionTypes, builtinSchemas())
	if err != nil {
		panic(err)
	}
	return r
}

// Default returns the built-in registry.
func Default() *Registry {
	return defaultRegistry
}
