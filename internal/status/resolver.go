package status

import (
	"aria/internal/domain"
	"aria/internal/schema"
)

// Resolver derives the lifecycle status of a record from field presence and confirmation.
type Resolver struct {
	registry *schema.Registry
}

// NewResolver creates a resolver over the given schema registry.
func NewResolver(registry *schema.Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve returns completed when confirmed and every high-importance field is present,
// pending when those fields are present without confirmation, and inquiring otherwise.
// Fields missing from values count as absent.
func (r *Resolver) Resolve(t domain.TransactionType, values map[string]domain.FieldValue, confirmed bool) (domain.TransactionStatus, error) {
	specs, err := r.registry.FieldsFor(t)
	if err != nil {
		return "", err
	}
	for _, s := range specs {
		if !s.Required() {
			continue
		}
		if v, ok := values[s.Name]; !ok || v.IsAbsent() {
			return domain.TransactionStatusInquiring, nil
		}
	}
	if confirmed {
		return domain.TransactionStatusCompleted, nil
	}
	return domain.TransactionStatusPending, nil
}
