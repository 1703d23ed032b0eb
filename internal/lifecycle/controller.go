// Package lifecycle owns product status transitions. The scoring engine
// never changes status; transitions are driven by external events (content
// completion, admin publish) and every one is audited.
package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/rgourley/styleluxe/internal/db"
	"github.com/rgourley/styleluxe/internal/faults"
	"github.com/rgourley/styleluxe/internal/globaltime"
)

// allowedTransitions is the whole state machine: no transition skips
// DRAFT, and the only way back is an explicit audited re-flag.
var allowedTransitions = map[string]string{
	db.StatusFlagged:   db.StatusDraft,
	db.StatusDraft:     db.StatusPublished,
	db.StatusPublished: db.StatusFlagged,
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to string) bool {
	next, ok := allowedTransitions[from]
	return ok && next == to
}

// Content is the collaborator-supplied review content accompanying a
// content-ready event.
type Content struct {
	Title string
	Body  string
}

type Controller struct {
	pool   *db.Pool
	logger zerolog.Logger
}

func NewController(pool *db.Pool, logger zerolog.Logger) *Controller {
	return &Controller{
		pool:   pool,
		logger: logger,
	}
}

// MarkContentReady moves FLAGGED -> DRAFT once the content collaborator
// reports generated content, storing it alongside the transition.
func (c *Controller) MarkContentReady(ctx context.Context, productUUID, actor string, content *Content) error {
	if content != nil && strings.TrimSpace(content.Title) == "" {
		return faults.Invalid("content.title", "must not be empty")
	}
	return c.transition(ctx, productUUID, db.StatusFlagged, db.StatusDraft, actor, nil, content)
}

// Publish moves DRAFT -> PUBLISHED. A content record must already exist;
// publishing a product nobody wrote about is a collaborator bug.
func (c *Controller) Publish(ctx context.Context, productUUID, actor string) error {
	return c.transition(ctx, productUUID, db.StatusDraft, db.StatusPublished, actor, nil, nil)
}

// Reflag moves PUBLISHED -> FLAGGED, e.g. on significant re-detection. It
// is never automatic and requires a reason for the audit trail.
func (c *Controller) Reflag(ctx context.Context, productUUID, actor, reason string) error {
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return faults.Invalid("reason", "re-flagging requires a reason")
	}
	return c.transition(ctx, productUUID, db.StatusPublished, db.StatusFlagged, actor, &trimmed, nil)
}

func (c *Controller) transition(
	ctx context.Context,
	productUUID string,
	wantFrom string,
	to string,
	actor string,
	reason *string,
	content *Content,
) error {
	if c == nil || c.pool == nil {
		return fmt.Errorf("lifecycle controller is not initialized")
	}

	trimmedUUID := strings.TrimSpace(productUUID)
	if trimmedUUID == "" {
		return faults.Invalid("product_uuid", "must not be empty")
	}
	trimmedActor := strings.TrimSpace(actor)
	if trimmedActor == "" {
		return faults.Invalid("actor", "must not be empty")
	}

	tx, err := c.pool.BeginTx(ctx, db.TxOptions{})
	if err != nil {
		return faults.Storage("begin lifecycle transaction", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const selectQ = `
SELECT product_id, status
FROM trend.products
WHERE product_uuid = $1::uuid
FOR UPDATE
`
	var (
		productID int64
		current   string
	)
	if err := tx.QueryRow(ctx, selectQ, trimmedUUID).Scan(&productID, &current); err != nil {
		if db.IsNoRows(err) {
			return faults.NotFound("product", trimmedUUID)
		}
		return faults.Storage("load product for transition", err)
	}

	if current != wantFrom || !CanTransition(current, to) {
		return faults.Invalid("status", fmt.Sprintf("cannot move %s -> %s", current, to))
	}

	now := globaltime.UTC()

	if content != nil {
		const upsertContent = `
INSERT INTO trend.product_contents (product_id, title, body, content_status, created_at, updated_at)
VALUES ($1, $2, $3, 'ready', $4, $4)
ON CONFLICT (product_id) DO UPDATE
SET title = EXCLUDED.title,
    body = EXCLUDED.body,
    content_status = EXCLUDED.content_status,
    updated_at = EXCLUDED.updated_at
`
		if _, err := tx.Exec(ctx, upsertContent, productID, strings.TrimSpace(content.Title), content.Body, now); err != nil {
			return faults.Storage("upsert product content", err)
		}
	}

	if to == db.StatusPublished {
		// COALESCE keeps the original publish time across a
		// reflag-and-republish cycle. No row means nothing to publish.
		const markPublished = `
UPDATE trend.product_contents
SET published_at = COALESCE(published_at, $2), updated_at = $2
WHERE product_id = $1
RETURNING content_id
`
		var contentID int64
		if err := tx.QueryRow(ctx, markPublished, productID, now).Scan(&contentID); err != nil {
			if db.IsNoRows(err) {
				return faults.Invalid("content", "cannot publish a product without content")
			}
			return faults.Storage("mark content published", err)
		}
	}

	const updateQ = `
UPDATE trend.products
SET status = $2, updated_at = $3
WHERE product_id = $1
`
	if _, err := tx.Exec(ctx, updateQ, productID, to, now); err != nil {
		return faults.Storage("update product status", err)
	}

	const auditQ = `
INSERT INTO trend.lifecycle_events (product_id, from_status, to_status, actor, reason, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	if _, err := tx.Exec(ctx, auditQ, productID, current, to, trimmedActor, reason, now); err != nil {
		return faults.Storage("insert lifecycle event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return faults.Storage("commit lifecycle transaction", err)
	}

	c.logger.Info().
		Str("product_uuid", trimmedUUID).
		Str("from", current).
		Str("to", to).
		Str("actor", trimmedActor).
		Msg("product status changed")
	return nil
}
