package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aria/internal/domain"
	"aria/internal/schema"
)

func fieldNames(specs []schema.FieldSpec) []string {
	names := make([]string, len(specs))
	for i, s := range specs {
		names[i] = s.Name
	}
	return names
}

func TestDefault_AllTypes(t *testing.T) {
	assert.Equal(t, domain.ValidTransactionTypes, schema.Default().AllTypes())
}

func TestDefault_FieldsFor(t *testing.T) {
	r := schema.Default()

	hotel, err := r.FieldsFor(domain.TransactionTypeHotelBooking)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"destination", "check_in_date", "check_out_date", "guests", "rooms",
		"budget", "room_type", "special_requests", "loyalty_program",
	}, fieldNames(hotel))

	bill, err := r.FieldsFor(domain.TransactionTypeBillPayment)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"provider", "account_number", "amount", "billing_period", "due_date", "payment_method", "autopay",
	}, fieldNames(bill))

	product, err := r.FieldsFor(domain.TransactionTypeProductPurchase)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"product_name", "quantity", "delivery_address", "unit_price", "variant", "payment_method", "delivery_date",
	}, fieldNames(product))
}

func TestDefault_RequiredFields(t *testing.T) {
	var required []string
	specs, err := schema.Default().FieldsFor(domain.TransactionTypeHotelBooking)
	require.NoError(t, err)
	for _, s := range specs {
		if s.Required() {
			required = append(required, s.Name)
		}
	}
	assert.Equal(t, []string{"destination", "check_in_date", "check_out_date", "guests"}, required)
}

func TestDefault_EveryTypeHasRequiredField(t *testing.T) {
	r := schema.Default()
	for _, typ := range r.AllTypes() {
		specs, err := r.FieldsFor(typ)
		require.NoError(t, err)
		var n int
		for _, s := range specs {
			if s.Required() {
				n++
			}
			if s.Kind == domain.FieldKindEnum {
				assert.NotEmpty(t, s.EnumValues, s.Name)
			}
		}
		assert.Positive(t, n, typ)
	}
}

func TestFieldsFor_UnknownType(t *testing.T) {
	_, err := schema.Default().FieldsFor(domain.TransactionType("car_rental"))
	assert.ErrorIs(t, err, domain.ErrUnknownTransactionType)
}

func TestFieldsFor_ReturnsCopy(t *testing.T) {
	r := schema.Default()
	specs, err := r.FieldsFor(domain.TransactionTypeHotelBooking)
	require.NoError(t, err)
	specs[0].Name = "mutated"
	for i := range specs {
		if specs[i].Kind == domain.FieldKindEnum {
			specs[i].EnumValues[0] = "mutated"
		}
	}

	again, err := r.FieldsFor(domain.TransactionTypeHotelBooking)
	require.NoError(t, err)
	assert.Equal(t, "destination", again[0].Name)
	roomType, ok := r.Field(domain.TransactionTypeHotelBooking, "room_type")
	require.True(t, ok)
	assert.Equal(t, "single", roomType.EnumValues[0])
}

func TestField(t *testing.T) {
	r := schema.Default()

	f, ok := r.Field(domain.TransactionTypeBillPayment, "amount")
	require.True(t, ok)
	assert.Equal(t, domain.FieldKindFloat, f.Kind)
	assert.Equal(t, domain.ImportanceHigh, f.Importance)

	_, ok = r.Field(domain.TransactionTypeBillPayment, "destination")
	assert.False(t, ok)
}

func TestDescribe(t *testing.T) {
	d, err := schema.Default().Describe(domain.TransactionTypeBillPayment)
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTypeBillPayment, d.Type)
	require.Len(t, d.Fields, 7)
	assert.Equal(t, "payment_method", d.Fields[5].Name)
	assert.Contains(t, d.Fields[5].EnumValues, "digital_wallet")

	assert.Len(t, schema.Default().DescribeAll(), 3)
}

func TestNewRegistry_Rejects(t *testing.T) {
	typ := domain.TransactionTypeHotelBooking
	tests := []struct {
		name  string
		specs []schema.FieldSpec
	}{
		{"empty", nil},
		{"reserved_name", []schema.FieldSpec{{Name: "status", Kind: domain.FieldKindString}}},
		{"duplicate", []schema.FieldSpec{
			{Name: "a", Kind: domain.FieldKindString},
			{Name: "a", Kind: domain.FieldKindInteger},
		}},
		{"enum_without_values", []schema.FieldSpec{{Name: "a", Kind: domain.FieldKindEnum}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := schema.NewRegistry(
				[]domain.TransactionType{typ},
				map[domain.TransactionType][]schema.FieldSpec{typ: tt.specs},
			)
			assert.Error(t, err)
		})
	}
}
