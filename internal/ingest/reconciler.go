// Package ingest normalizes heterogeneous webhook payloads into canonical
// messages and reconciles out-of-order status transitions against the store.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/chatflow/chatflow/internal/domain"
	"github.com/chatflow/chatflow/internal/metrics"
	"github.com/chatflow/chatflow/internal/repository"
)

// Summary reports the outcome of one reconciliation run.
type Summary struct {
	Inserted        int `json:"inserted"`
	StatusesApplied int `json:"statuses_applied"`
	OrphanStatuses  int `json:"orphan_statuses"`
	Skipped         int `json:"skipped"`
}

// statusKeyExtractors resolve the lookup key for a status entry. Probed in
// order; new identifier schemes are added here, not at call sites.
var statusKeyExtractors = []func(statusEntry) (repository.MessageKey, bool){
	func(st statusEntry) (repository.MessageKey, bool) {
		return repository.MessageKey{Field: repository.KeyExternalID, Value: st.ID}, st.ID != ""
	},
	func(st statusEntry) (repository.MessageKey, bool) {
		return repository.MessageKey{Field: repository.KeyAltID, Value: st.MetaMsgID}, st.MetaMsgID != ""
	},
}

func statusKey(st statusEntry) (repository.MessageKey, bool) {
	for _, extract := range statusKeyExtractors {
		if key, ok := extract(st); ok {
			return key, true
		}
	}
	return repository.MessageKey{}, false
}

// upsertKey picks the identifier a new message is deduplicated on. Messages
// with no identifier at all are stored append-only and never reconciled.
func upsertKey(msg *domain.Message) (repository.MessageKey, bool) {
	if msg.ExternalID != nil {
		return repository.MessageKey{Field: repository.KeyExternalID, Value: *msg.ExternalID}, true
	}
	if msg.AltID != nil {
		return repository.MessageKey{Field: repository.KeyAltID, Value: *msg.AltID}, true
	}
	return repository.MessageKey{}, false
}

type Reconciler struct {
	repo repository.MessageRepository
	now  func() time.Time
}

func NewReconciler(repo repository.MessageRepository) *Reconciler {
	return &Reconciler{repo: repo, now: time.Now}
}

// Reconcile processes a batch of raw payload documents. Documents are
// independent: malformed ones are counted and skipped, and replaying the
// same batch never duplicates messages. A repository failure aborts the run
// and returns the counts accumulated so far.
func (r *Reconciler) Reconcile(ctx context.Context, docs []json.RawMessage) (*Summary, error) {
	sum := &Summary{}
	for i, doc := range docs {
		if err := r.reconcileDoc(ctx, doc, sum); err != nil {
			return sum, fmt.Errorf("document %d: %w", i, err)
		}
	}
	return sum, nil
}

func (r *Reconciler) reconcileDoc(ctx context.Context, doc json.RawMessage, sum *Summary) error {
	if !json.Valid(doc) {
		log.Printf("ingest: skipping invalid JSON document")
		r.skip(sum)
		return nil
	}

	value, err := parseValue(extractValue(doc))
	if err != nil {
		log.Printf("ingest: skipping unparseable document: %v", err)
		r.skip(sum)
		return nil
	}

	switch {
	case len(value.Statuses) > 0:
		return r.applyStatuses(ctx, value.Statuses, sum)
	case len(value.Messages) > 0:
		return r.insertMessages(ctx, value, sum)
	default:
		// Neither a status batch nor a message batch: a no-op.
		r.skip(sum)
	}
	return nil
}

func (r *Reconciler) applyStatuses(ctx context.Context, statuses []statusEntry, sum *Summary) error {
	for _, st := range statuses {
		status := st.value()
		if status == "" {
			continue
		}
		key, ok := statusKey(st)
		if !ok {
			// No identifier to look up by; dropped, matching the
			// no-op treatment of unmatched lookups.
			continue
		}

		msg, err := r.repo.ApplyStatus(ctx, key, status, r.now())
		if err != nil {
			return fmt.Errorf("applying status %q: %w", status, err)
		}
		if msg == nil {
			log.Printf("ingest: no message found for status payload %s=%s", key.Field, key.Value)
			sum.OrphanStatuses++
			metrics.OrphanStatuses.Inc()
			continue
		}
		sum.StatusesApplied++
		metrics.StatusesApplied.Inc()
	}
	return nil
}

func (r *Reconciler) insertMessages(ctx context.Context, value *valueDoc, sum *Summary) error {
	for i, raw := range value.Messages {
		var unit rawUnit
		if err := json.Unmarshal(raw, &unit); err != nil {
			log.Printf("ingest: skipping unparseable message entry: %v", err)
			r.skip(sum)
			continue
		}

		// Contacts pair positionally with messages; a batch with fewer
		// contacts falls back to its first one.
		var contact *contactHint
		if i < len(value.Contacts) {
			contact = &value.Contacts[i]
		} else if len(value.Contacts) > 0 {
			contact = &value.Contacts[0]
		}

		msg := normalizeMessage(unit, raw, contact, r.now())

		key, ok := upsertKey(msg)
		if !ok {
			if err := r.repo.Create(ctx, msg); err != nil {
				return fmt.Errorf("storing message: %w", err)
			}
			sum.Inserted++
			metrics.MessagesIngested.Inc()
			continue
		}

		inserted, err := r.repo.InsertIfAbsent(ctx, key, msg)
		if err != nil {
			return fmt.Errorf("upserting message %s=%s: %w", key.Field, key.Value, err)
		}
		if inserted {
			sum.Inserted++
			metrics.MessagesIngested.Inc()
		}
	}
	return nil
}

func (r *Reconciler) skip(sum *Summary) {
	sum.Skipped++
	metrics.DocumentsSkipped.Inc()
}
