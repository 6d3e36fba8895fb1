// Package worker consumes submitted disclosures from the EventBus and runs
// them through the evaluation pipeline asynchronously.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/evaluate"
)

// Worker evaluates disclosures published to TopicDisclosureSubmitted.
type Worker struct {
	bus domain.EventBus
	svc *evaluate.Service

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// OrgIDs is the list of organizations to process. Empty means a single
	// global subscription.
	OrgIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, svc *evaluate.Service) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		svc:    svc,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing submissions for the given organizations.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.OrgIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, orgID := range cfg.OrgIDs {
		if err := w.startOrgWorker(orgID); err != nil {
			slog.Error("failed to start worker for org",
				"org_id", orgID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"org_count", len(cfg.OrgIDs),
	)

	return nil
}

// startGlobalWorker subscribes under a catch-all org id. Useful in dev and
// single-org deployments; multi-org production runs list their orgs.
func (w *Worker) startGlobalWorker() error {
	sub, err := w.bus.Subscribe(w.ctx, "_global", domain.TopicDisclosureSubmitted, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startOrgWorker subscribes to disclosure submissions for one organization.
func (w *Worker) startOrgWorker(orgID string) error {
	sub, err := w.bus.Subscribe(w.ctx, orgID, domain.TopicDisclosureSubmitted, func(ctx context.Context, msg *domain.Message) error {
		return w.processSubmission(ctx, orgID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("org worker started",
		"org_id", orgID,
		"topic", domain.TopicDisclosureSubmitted,
	)

	return nil
}

// handleMessage handles messages from the global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processSubmission(ctx, msg.OrgID, msg)
}

// processSubmission runs one submitted disclosure through the pipeline.
func (w *Worker) processSubmission(ctx context.Context, orgID string, msg *domain.Message) error {
	start := time.Now()

	var event domain.DisclosureSubmittedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		slog.Error("failed to parse disclosure submission",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// The event org wins over the subscription org when both are set.
	if event.OrgID != "" {
		orgID = event.OrgID
	}

	slog.Debug("processing disclosure submission",
		"disclosure_id", event.DisclosureID,
		"org_id", orgID,
	)

	d := &domain.Disclosure{
		ID:             event.DisclosureID,
		OrgID:          orgID,
		PersonID:       event.PersonID,
		Type:           event.DisclosureType,
		RelatedCompany: event.RelatedCompany,
		RelatedPerson:  event.RelatedPerson,
		Value:          event.Value,
		FactData:       event.FactData,
	}
	if event.SubmittedAt != nil {
		d.SubmittedAt = *event.SubmittedAt
	}

	result, err := w.svc.EvaluateDisclosure(ctx, d)
	if err != nil {
		slog.Error("disclosure evaluation failed",
			"disclosure_id", event.DisclosureID,
			"org_id", orgID,
			"error", err,
		)
		return err
	}

	slog.Info("disclosure processed",
		"disclosure_id", result.DisclosureID,
		"org_id", orgID,
		"threshold_triggered", result.Threshold.Triggered,
		"conflict_count", result.Conflicts.ConflictCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
