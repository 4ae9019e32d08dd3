// Package negotiation drives restock negotiations from the first drafted
// inquiry to a placed order.
package negotiation

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/erazemk/nabava/internal/apperr"
	"github.com/erazemk/nabava/internal/logger"
	"github.com/erazemk/nabava/internal/mail"
	"github.com/erazemk/nabava/internal/metrics"
	"github.com/erazemk/nabava/internal/model"
	"github.com/erazemk/nabava/internal/oracle"
	"github.com/erazemk/nabava/internal/store"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Defaults for Options fields left zero.
const (
	DefaultFromAddress  = "procurement@msme-os.ai"
	draftConcurrency    = 4
	replyAnalysisPrompt = "You are an AI analyzing supplier emails. Extract the key sentiment and confirmation."
	// ReplyFallback annotates a supplier reply when the oracle is unavailable.
	ReplyFallback = "Invoice data validated. Stock is ready for shipment."
)

// Options configures a Driver.
type Options struct {
	// ReplyDelay is how long after an inquiry the simulated supplier answers.
	ReplyDelay   time.Duration
	DefaultUnits int
	// From is the procurement sender address.
	From string
	// Inbox receives simulated supplier replies.
	Inbox   string
	Clock   Clock
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// Driver is the only writer of negotiation status. Mutations are
// serialized by a single mutex.
type Driver struct {
	db      *sql.DB
	oracle  oracle.Oracle
	drafter *Drafter
	mailer  mail.Mailer
	sched   *Scheduler
	opts    Options
	log     *logger.Logger

	mu sync.Mutex
}

// NewDriver wires a driver. o and mailer may be nil.
func NewDriver(db *sql.DB, o oracle.Oracle, mailer mail.Mailer, opts Options) *Driver {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.DefaultUnits <= 0 {
		opts.DefaultUnits = model.DefaultUnits
	}
	if opts.From == "" {
		opts.From = DefaultFromAddress
	}
	if opts.Inbox == "" {
		opts.Inbox = opts.From
	}
	if mailer == nil {
		mailer = mail.NewLog(opts.Logger)
	}
	return &Driver{
		db:      db,
		oracle:  o,
		drafter: NewDrafter(o, opts.Logger),
		mailer:  mailer,
		sched:   NewScheduler(opts.Clock),
		opts:    opts,
		log:     opts.Logger,
	}
}

// UploadResult counts what an upload stored.
type UploadResult struct {
	Items        int `json:"items"`
	Suppliers    int `json:"suppliers"`
	Negotiations int `json:"negotiations"`
}

// PlanUpload drafts one negotiation per low-stock item that has a supplier.
// When an item lists several suppliers the last one wins.
func (d *Driver) PlanUpload(ctx context.Context, items []model.InventoryItem, suppliers []model.Supplier) []model.Negotiation {
	supplierFor := make(map[string]model.Supplier, len(suppliers))
	for _, s := range suppliers {
		supplierFor[s.ItemName] = s
	}

	var plan []model.Negotiation
	var facts []DraftInput
	for _, it := range items {
		if !it.LowStock() {
			continue
		}
		s, ok := supplierFor[it.Name]
		if !ok {
			continue
		}
		units := d.opts.DefaultUnits
		plan = append(plan, model.Negotiation{
			ItemName:      it.Name,
			SupplierName:  s.Name,
			SupplierEmail: s.Email,
			InvoiceAmount: it.Cost.Mul(decimal.NewFromInt(int64(units))),
			Status:        model.StatusAwaitingHuman,
			Units:         units,
		})
		facts = append(facts, DraftInput{
			Item:         it.Name,
			CurrentStock: it.Stock,
			Threshold:    it.MinLimit,
			SupplierName: s.Name,
			Units:        units,
		})
	}

	var g errgroup.Group
	g.SetLimit(draftConcurrency)
	for i := range plan {
		g.Go(func() error {
			plan[i].Draft = d.drafter.Draft(ctx, facts[i])
			return nil
		})
	}
	_ = g.Wait()

	return plan
}

// Upload replaces the catalog and the negotiation ledger. Replies pending
// for the old ledger are cancelled.
func (d *Driver) Upload(ctx context.Context, items []model.InventoryItem, suppliers []model.Supplier) (UploadResult, error) {
	plan := d.PlanUpload(ctx, items, suppliers)

	d.mu.Lock()
	defer d.mu.Unlock()

	d.sched.CancelAll()
	err := store.ReplaceCatalog(ctx, d.db, store.Catalog{
		Items:        items,
		Suppliers:    suppliers,
		Negotiations: plan,
	})
	if err != nil {
		return UploadResult{}, apperr.Wrap(apperr.CodeInternal, err, "replacing catalog")
	}
	for range plan {
		d.opts.Metrics.IncTransition(model.StatusAwaitingHuman)
	}

	d.log.Info(d.log.WithFields(ctx, map[string]any{
		"items":        len(items),
		"suppliers":    len(suppliers),
		"negotiations": len(plan),
	}), "catalog replaced")

	return UploadResult{Items: len(items), Suppliers: len(suppliers), Negotiations: len(plan)}, nil
}

// Get returns a negotiation or a NOT_FOUND error.
func (d *Driver) Get(ctx context.Context, id int64) (*model.Negotiation, error) {
	n, err := store.GetNegotiation(ctx, d.db, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "loading negotiation")
	}
	if n == nil {
		return nil, apperr.Newf(apperr.CodeNotFound, "negotiation %d not found", id)
	}
	return n, nil
}

// List returns negotiations, optionally only those in status.
func (d *Driver) List(ctx context.Context, status string) ([]model.Negotiation, error) {
	if status != "" && !model.ValidStatus(status) {
		return nil, apperr.Newf(apperr.CodeValidation, "unknown status %q", status)
	}
	negs, err := store.ListNegotiations(ctx, d.db, status)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "listing negotiations")
	}
	return negs, nil
}

// Edit reinterprets an operator instruction and redrafts the email. Only
// negotiations awaiting a human can be edited.
func (d *Driver) Edit(ctx context.Context, id int64, instruction string) (*model.Negotiation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status != model.StatusAwaitingHuman {
		return nil, stateConflict(n, "edit")
	}

	item, err := store.GetInventoryItemByName(ctx, d.db, n.ItemName)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "loading catalog item")
	}
	if item == nil {
		return nil, apperr.Newf(apperr.CodeNotFound, "item %q is no longer in the catalog", n.ItemName)
	}

	units, price := Interpret(instruction, n.Units, item.Cost)
	draft := d.drafter.Draft(ctx, DraftInput{
		Item:         n.ItemName,
		CurrentStock: item.Stock,
		Threshold:    item.MinLimit,
		SupplierName: n.SupplierName,
		Units:        units,
		TargetPrice:  &price,
		Instruction:  instruction,
	})

	ok, err := store.UpdateNegotiationDraft(ctx, d.db, id, draft, units, price)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "saving draft")
	}
	if !ok {
		return nil, apperr.Newf(apperr.CodeStateConflict, "negotiation %d changed during edit", id)
	}

	d.log.Info(d.log.WithFields(ctx, map[string]any{
		"negotiation_id": id,
		"units":          units,
		"invoice_amount": price.StringFixed(2),
	}), "draft updated")

	return d.Get(ctx, id)
}

// SendInquiry mails the draft to the supplier and schedules the simulated
// reply.
func (d *Driver) SendInquiry(ctx context.Context, id int64) (*model.Negotiation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status != model.StatusAwaitingHuman {
		return nil, stateConflict(n, "send inquiry for")
	}

	d.send(ctx, mail.Message{
		From:    d.opts.From,
		To:      n.SupplierEmail,
		Subject: "Supply Inquiry: " + n.ItemName,
		Body:    n.Draft,
	})

	ok, err := store.TransitionNegotiation(ctx, d.db, id, model.StatusAwaitingHuman, model.StatusInquirySent)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "marking inquiry sent")
	}
	if !ok {
		return nil, apperr.Newf(apperr.CodeStateConflict, "negotiation %d changed while sending", id)
	}
	d.opts.Metrics.IncTransition(model.StatusInquirySent)

	d.sched.Schedule(id, d.replyDelay(), func(taskCtx context.Context) {
		d.receiveReply(taskCtx, id)
	})

	return d.Get(ctx, id)
}

func (d *Driver) replyDelay() time.Duration {
	if d.opts.ReplyDelay < 0 {
		return 0
	}
	return d.opts.ReplyDelay
}

// ReplyText is the canned supplier answer for n.
func ReplyText(n model.Negotiation) string {
	return fmt.Sprintf("Hi, confirming we have %d units available for ₹%s. Ready to ship.",
		n.Units, n.InvoiceAmount.StringFixed(2))
}

// receiveReply simulates the supplier answering an outstanding inquiry.
func (d *Driver) receiveReply(ctx context.Context, id int64) {
	ctx = d.log.WithField(ctx, "negotiation_id", id)

	n, err := store.GetNegotiation(ctx, d.db, id)
	if err != nil {
		d.log.Error(ctx, "loading negotiation for reply", err)
		return
	}
	if n == nil || n.Status != model.StatusInquirySent {
		return
	}

	reply := ReplyText(*n)
	analysis := ReplyFallback
	if d.oracle != nil {
		out, err := d.oracle.Complete(ctx, oracle.Request{
			System:  replyAnalysisPrompt,
			Prompt:  "Analyze this reply: " + reply,
			Purpose: "reply_analysis",
		})
		if err != nil {
			d.log.Warn(ctx, "reply analysis failed, using fallback", err)
		} else {
			analysis = out
		}
	}
	if ctx.Err() != nil {
		// Finalized or shut down while the oracle was thinking.
		return
	}

	d.send(ctx, mail.Message{
		From:    n.SupplierEmail,
		To:      d.opts.Inbox,
		Subject: "RE: " + n.ItemName + " Restock",
		Body:    reply,
	})

	d.mu.Lock()
	defer d.mu.Unlock()

	ok, err := store.RecordReply(context.WithoutCancel(ctx), d.db, id, analysis)
	if err != nil {
		d.log.Error(ctx, "recording supplier reply", err)
		return
	}
	if ok {
		d.opts.Metrics.IncTransition(model.StatusInvoiceReceived)
		d.log.Info(ctx, "invoice received")
	}
}

// Finalize places the order and restocks the item. It is allowed from any
// state; finalizing a placed order changes nothing.
func (d *Driver) Finalize(ctx context.Context, id int64) (*model.Negotiation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Terminal() {
		return n, nil
	}

	d.sched.Cancel(id)

	applied, err := store.FinalizeNegotiation(ctx, d.db, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, err, "placing order")
	}
	if applied {
		d.opts.Metrics.IncTransition(model.StatusOrderPlaced)
		d.send(ctx, mail.Message{
			From:    d.opts.From,
			To:      n.SupplierEmail,
			Subject: "PURCHASE ORDER CONFIRMED",
			Body:    fmt.Sprintf("Proceed with shipping %d units.", n.Units),
		})
		d.log.Info(d.log.WithFields(ctx, map[string]any{
			"negotiation_id": id,
			"item":           n.ItemName,
			"units":          n.Units,
			"from_status":    n.Status,
		}), "order placed")
	}

	return d.Get(ctx, id)
}

// send delivers msg, logging failures. Mail is best-effort.
func (d *Driver) send(ctx context.Context, msg mail.Message) {
	if err := d.mailer.Send(ctx, msg); err != nil {
		d.log.Warn(d.log.WithFields(ctx, map[string]any{
			"to":      msg.To,
			"subject": msg.Subject,
		}), "sending mail failed", err)
	}
}

// Wait blocks until all scheduled replies have run or been cancelled.
func (d *Driver) Wait() {
	d.sched.Wait()
}

// Close cancels pending replies and waits for running ones.
func (d *Driver) Close() {
	d.sched.Close()
}

func stateConflict(n *model.Negotiation, action string) error {
	return apperr.Newf(apperr.CodeStateConflict, "cannot %s negotiation %d in status %s", action, n.ID, n.Status).
		WithDetails(map[string]string{"status": n.Status})
}
