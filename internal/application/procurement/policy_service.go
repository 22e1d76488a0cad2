package procurement

import (
	"context"

	"github.com/erp/procurement/internal/domain/procurement"
	"github.com/erp/procurement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PolicyService manages tolerance policy rules. Rule changes are published
// as events so open invoices in the affected scope get recomputed.
type PolicyService struct {
	ruleRepo       procurement.PolicyRuleRepository
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewPolicyService creates a new PolicyService
func NewPolicyService(ruleRepo procurement.PolicyRuleRepository, logger *zap.Logger) *PolicyService {
	return &PolicyService{
		ruleRepo: ruleRepo,
		logger:   logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PolicyService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateRule creates a tolerance policy rule
func (s *PolicyService) CreateRule(ctx context.Context, req CreatePolicyRuleRequest) (*PolicyRuleResponse, error) {
	rule, err := procurement.NewPolicyRule(
		procurement.PolicyLevel(req.Level),
		req.ScopeID,
		procurement.TolerancePolicy{
			QtyTolerancePct:         req.QtyTolerancePct,
			PriceTolerancePct:       req.PriceTolerancePct,
			OverReceiptTolerancePct: req.OverReceiptTolerancePct,
			AllowBillBeforeReceipt:  req.AllowBillBeforeReceipt,
		},
	)
	if err != nil {
		return nil, err
	}

	if err := s.ruleRepo.Save(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.Info("tolerance policy rule created",
		zap.String("rule_id", rule.ID.String()),
		zap.String("level", rule.Level.String()),
	)
	s.publishEvents(ctx, rule)

	response := ToPolicyRuleResponse(rule)
	return &response, nil
}

// UpdateRule replaces the tolerance values of a rule
func (s *PolicyService) UpdateRule(ctx context.Context, ruleID uuid.UUID, req UpdatePolicyRuleRequest) (*PolicyRuleResponse, error) {
	rule, err := s.ruleRepo.FindByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}

	err = rule.UpdatePolicy(procurement.TolerancePolicy{
		QtyTolerancePct:         req.QtyTolerancePct,
		PriceTolerancePct:       req.PriceTolerancePct,
		OverReceiptTolerancePct: req.OverReceiptTolerancePct,
		AllowBillBeforeReceipt:  req.AllowBillBeforeReceipt,
	})
	if err != nil {
		return nil, err
	}

	if err := s.ruleRepo.SaveWithLock(ctx, rule); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, rule)

	response := ToPolicyRuleResponse(rule)
	return &response, nil
}

// DeleteRule removes a rule; matching falls back to the next level
func (s *PolicyService) DeleteRule(ctx context.Context, ruleID uuid.UUID) error {
	rule, err := s.ruleRepo.FindByID(ctx, ruleID)
	if err != nil {
		return err
	}

	if err := s.ruleRepo.Delete(ctx, ruleID); err != nil {
		return err
	}

	s.logger.Info("tolerance policy rule deleted",
		zap.String("rule_id", ruleID.String()),
		zap.String("level", rule.Level.String()),
	)
	if s.eventPublisher != nil {
		event := procurement.NewTolerancePolicyChangedEvent(rule)
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// GetRule retrieves a rule by ID
func (s *PolicyService) GetRule(ctx context.Context, ruleID uuid.UUID) (*PolicyRuleResponse, error) {
	rule, err := s.ruleRepo.FindByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	response := ToPolicyRuleResponse(rule)
	return &response, nil
}

// ListRules lists every tolerance policy rule
func (s *PolicyService) ListRules(ctx context.Context) ([]PolicyRuleResponse, error) {
	rules, err := s.ruleRepo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	responses := make([]PolicyRuleResponse, 0, len(rules))
	for i := range rules {
		responses = append(responses, ToPolicyRuleResponse(&rules[i]))
	}
	return responses, nil
}

func (s *PolicyService) publishEvents(ctx context.Context, aggregate shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	for _, event := range aggregate.GetDomainEvents() {
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish domain event",
				zap.String("event_type", event.EventType()),
				zap.Error(err),
			)
		}
	}
	aggregate.ClearDomainEvents()
}
