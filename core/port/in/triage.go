// Package in defines the inbound use-case boundaries of the triage core.
package in

import (
	"context"

	"github.com/weapplyse/weapply-pm/core/domain"
)

// TriageUseCase is the single entry point the inbound adapters call.
type TriageUseCase interface {
	Process(ctx context.Context, email *domain.InboundEmail) (*domain.TriageDecision, error)
}
