package status_test

import (
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aria/internal/domain"
	"aria/internal/schema"
	"aria/internal/status"
)

func hotelValues() map[string]domain.FieldValue {
	return map[string]domain.FieldValue{
		"destination":    domain.StringValue("Paris"),
		"check_in_date":  domain.DateValue(civil.Date{Year: 2025, Month: 6, Day: 10}),
		"check_out_date": domain.DateValue(civil.Date{Year: 2025, Month: 6, Day: 14}),
		"guests":         domain.IntegerValue(2),
	}
}

func TestResolve(t *testing.T) {
	r := status.NewResolver(schema.Default())
	typ := domain.TransactionTypeHotelBooking

	t.Run("pending_without_confirmation", func(t *testing.T) {
		got, err := r.Resolve(typ, hotelValues(), false)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusPending, got)
	})

	t.Run("completed_with_confirmation", func(t *testing.T) {
		got, err := r.Resolve(typ, hotelValues(), true)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusCompleted, got)
	})

	t.Run("absent_required_field", func(t *testing.T) {
		values := hotelValues()
		values["guests"] = domain.Absent(domain.FieldKindInteger)
		got, err := r.Resolve(typ, values, true)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusInquiring, got)
	})

	t.Run("missing_key_counts_as_absent", func(t *testing.T) {
		values := hotelValues()
		delete(values, "destination")
		got, err := r.Resolve(typ, values, false)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusInquiring, got)
	})

	t.Run("optional_fields_do_not_gate", func(t *testing.T) {
		values := hotelValues()
		values["budget"] = domain.Absent(domain.FieldKindFloat)
		got, err := r.Resolve(typ, values, false)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusPending, got)
	})

	t.Run("unknown_type", func(t *testing.T) {
		_, err := r.Resolve(domain.TransactionType("flight"), hotelValues(), false)
		assert.ErrorIs(t, err, domain.ErrUnknownTransactionType)
	})
}

// Every combination of present and absent required fields: completed only when all are present.
func TestResolve_CompletedImpliesRequiredPresent(t *testing.T) {
	reg := schema.Default()
	r := status.NewResolver(reg)

	for _, typ := range reg.AllTypes() {
		specs, err := reg.FieldsFor(typ)
		require.NoError(t, err)
		var required []schema.FieldSpec
		for _, s := range specs {
			if s.Required() {
				required = append(required, s)
			}
		}

		for mask := 0; mask < 1<<len(required); mask++ {
			values := make(map[string]domain.FieldValue, len(required))
			all := true
			for i, s := range required {
				if mask&(1<<i) != 0 {
					values[s.Name] = domain.StringValue("x")
				} else {
					values[s.Name] = domain.Absent(s.Kind)
					all = false
				}
			}
			for _, confirmed := range []bool{false, true} {
				got, err := r.Resolve(typ, values, confirmed)
				require.NoError(t, err)
				switch {
				case all && confirmed:
					assert.Equal(t, domain.TransactionStatusCompleted, got)
				case all:
					assert.Equal(t, domain.TransactionStatusPending, got)
				default:
					assert.Equal(t, domain.TransactionStatusInquiring, got)
				}
			}
		}
	}
}
