package sync

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Pkirch1211/mt-shopify-sync/internal/config"
	"github.com/Pkirch1211/mt-shopify-sync/internal/domain"
	"github.com/Pkirch1211/mt-shopify-sync/internal/normalize"
	"github.com/Pkirch1211/mt-shopify-sync/internal/report"
)

// sourceClient fetches all source orders. Satisfied by *markettime.Client.
type sourceClient interface {
	FetchAllOrders(ctx context.Context) ([]domain.SourceOrder, error)
}

// duplicateDetector answers whether a PO already exists in Shopify.
// Satisfied by *Detector.
type duplicateDetector interface {
	Exists(po, recordID string) bool
}

// entityResolver resolves/creates buyer and company-side entities.
// Satisfied by *Resolver.
type entityResolver interface {
	ResolveCustomer(order *domain.SourceOrder) (int64, error)
	EnsureCompany(name string) (string, error)
	EnsureLocation(companyID, name string, order *domain.SourceOrder) (string, error)
	EnsureContact(companyID string, customerID int64) (string, error)
	GrantOrderingPermission(contactID, locationID, companyID string)
}

// draftCreator creates a draft order. Satisfied by *DraftService.
type draftCreator interface {
	Create(order *domain.SourceOrder, refs EntityRefs) (string, error)
}

// postCreateDelay throttles draft creation against Shopify rate budgets.
const postCreateDelay = 150 * time.Millisecond

// Runner sequences the sync: fetch, filter to OPEN, then per record
// resolve entities, check for duplicates, and create the draft. Strictly
// sequential; the reuse-or-create logic depends on read-then-write
// without interleaving.
type Runner struct {
	source   sourceClient
	detector duplicateDetector
	resolver entityResolver
	drafts   draftCreator
	cfg      config.SyncConfig
	logger   *zap.Logger

	sleep func(time.Duration) // test seam
}

// NewRunner wires the run loop.
func NewRunner(source sourceClient, detector duplicateDetector, resolver entityResolver, drafts draftCreator, cfg config.SyncConfig, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		source:   source,
		detector: detector,
		resolver: resolver,
		drafts:   drafts,
		cfg:      cfg,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// Summary is the run outcome.
type Summary struct {
	OpenOrders int
	Created    int
	Skipped    int
	Rows       []report.Row
}

// Run executes one full sync pass. Only the source fetch can fail the
// run; every per-record failure is logged and skipped.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	orders, err := r.source.FetchAllOrders(ctx)
	if err != nil {
		return nil, err
	}

	open := filterOpen(orders, r.cfg.POWhitelist)
	summary := &Summary{OpenOrders: len(open)}
	if len(open) == 0 {
		r.logger.Info("No matching OPEN orders found")
		return summary, nil
	}
	r.logger.Info("OPEN orders in scope", zap.Int("count", len(open)), zap.Strings("po_numbers", poNumbers(open)))

	seen := map[string]struct{}{}
	for i := range open {
		order := &open[i]
		recordID := order.RecordID.String()
		poNorm := normalize.PONumber(order.PONumber)
		logFields := []zap.Field{
			zap.String("record_id", recordID),
			zap.String("po_number", order.PONumber),
		}

		if order.ShipToCountry == "" {
			order.ShipToCountry = "US"
			r.logger.Info("Defaulted empty shipToCountry to US", logFields...)
		}

		if _, dup := seen[poNorm]; dup {
			summary.Skipped++
			r.logger.Info("Skipping record, PO already handled in this run", logFields...)
			continue
		}

		customerID, err := r.resolver.ResolveCustomer(order)
		if err != nil {
			summary.Skipped++
			r.logger.Warn("Skipping record, customer resolution failed", append(logFields, zap.Error(err))...)
			continue
		}

		refs := EntityRefs{CustomerID: customerID}
		if order.BillToName != "" {
			companyID, err := r.resolver.EnsureCompany(order.BillToName)
			if err != nil {
				summary.Skipped++
				r.logger.Warn("Skipping record, company resolution failed", append(logFields, zap.String("company", order.BillToName), zap.Error(err))...)
				continue
			}
			refs.CompanyID = companyID
		}

		if refs.CompanyID != "" {
			locationID, err := r.resolver.EnsureLocation(refs.CompanyID, order.LocationName(), order)
			if err != nil {
				r.logger.Warn("Location resolution failed (non-blocking)", append(logFields, zap.Error(err))...)
			}
			refs.LocationID = locationID

			if customerID > 0 && refs.LocationID != "" {
				contactID, err := r.resolver.EnsureContact(refs.CompanyID, customerID)
				if err != nil {
					r.logger.Warn("Contact resolution failed (non-blocking)", append(logFields, zap.Error(err))...)
				}
				refs.ContactID = contactID

				if refs.ContactID != "" {
					r.resolver.GrantOrderingPermission(refs.ContactID, refs.LocationID, refs.CompanyID)
				}
			}
		}

		if order.PONumber != "" && r.detector.Exists(order.PONumber, recordID) {
			seen[poNorm] = struct{}{}
			summary.Skipped++
			r.logger.Info("Skipping record, PO already exists in Shopify", logFields...)
			continue
		}

		draftID, err := r.drafts.Create(order, refs)
		if err != nil {
			summary.Skipped++
			r.logger.Warn("draftOrderCreate failed, skipping record", append(logFields, zap.Error(err))...)
			continue
		}
		r.logger.Info("Draft order created", append(logFields, zap.String("draft_order_id", draftID))...)

		summary.Created++
		summary.Rows = append(summary.Rows, report.Row{
			RecordID:      recordID,
			DraftOrderID:  draftID,
			PONumber:      order.PONumber,
			Company:       order.BillToName,
			BuyerEmail:    orDefault(order.BuyerEmail(), "unknown@example.com"),
			LineItemCount: len(order.Details),
			CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		})

		seen[poNorm] = struct{}{}
		r.sleep(postCreateDelay)
	}

	return summary, nil
}

// filterOpen keeps OPEN orders, optionally scoped to a PO whitelist.
func filterOpen(orders []domain.SourceOrder, whitelist []string) []domain.SourceOrder {
	allowed := map[string]struct{}{}
	for _, po := range whitelist {
		allowed[po] = struct{}{}
	}
	var open []domain.SourceOrder
	for _, o := range orders {
		if !o.IsOpen() {
			continue
		}
		if len(allowed) > 0 {
			if _, ok := allowed[o.PONumber]; !ok {
				continue
			}
		}
		open = append(open, o)
	}
	return open
}

func poNumbers(orders []domain.SourceOrder) []string {
	out := make([]string, len(orders))
	for i, o := range orders {
		out[i] = o.PONumber
	}
	return out
}
