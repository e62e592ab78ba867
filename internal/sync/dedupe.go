package sync

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Pkirch1211/mt-shopify-sync/internal/config"
	"github.com/Pkirch1211/mt-shopify-sync/internal/normalize"
	"github.com/Pkirch1211/mt-shopify-sync/internal/shopify"
)

// recordTag builds the identifier tag attached to every draft this sync
// creates, e.g. "mt_recordID:abc123". The duplicate probes match on it in
// addition to the normalized PO number.
func recordTag(recordID string) string {
	return "mt_recordID:" + recordID
}

// probe is one duplicate-search strategy. A true result means a record
// equivalent to this PO already exists in Shopify; probes must only match
// on normalized-PO equality or an explicit identifier tag, never fuzzily.
type probe interface {
	name() string
	probe(po, recordID string) (bool, error)
}

// Detector answers "does this PO already exist in Shopify as an order or
// draft" by running a cost-ordered cascade of probes, short-circuiting on
// the first hit. A probe's transport failure is logged and the cascade
// proceeds; exhausting every probe without a match means safe-to-create.
type Detector struct {
	probes []probe
	logger *zap.Logger
}

// NewDetector wires the three-stage cascade: finalized-order graph search,
// draft graph search, draft REST pagination fallback.
func NewDetector(gql graphClient, rest restClient, cfg config.SyncConfig, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		probes: []probe{
			&orderProbe{gql: gql},
			&draftGraphProbe{gql: gql},
			&draftRESTProbe{
				rest:      rest,
				pageLimit: cfg.RestPageLimit,
				maxPages:  cfg.MaxPagesPerStatus,
				pageDelay: 30 * time.Millisecond,
				logger:    logger,
			},
		},
		logger: logger,
	}
}

// Exists runs the cascade for one PO number and source record id.
func (d *Detector) Exists(po, recordID string) bool {
	for _, p := range d.probes {
		found, err := p.probe(po, recordID)
		if err != nil {
			d.logger.Warn("duplicate probe failed (non-blocking)",
				zap.String("probe", p.name()),
				zap.String("po_number", po),
				zap.String("record_id", recordID),
				zap.Error(err),
			)
			continue
		}
		if found {
			d.logger.Info("existing Shopify record found",
				zap.String("probe", p.name()),
				zap.String("po_number", po),
				zap.String("record_id", recordID),
			)
			return true
		}
	}
	return false
}

// orderProbe searches finalized orders by PO number, excluding cancelled.
// The query surface can return partial/substring matches, so every hit is
// confirmed by normalized-PO equality.
type orderProbe struct {
	gql graphClient
}

func (p *orderProbe) name() string { return "orders_graphql" }

func (p *orderProbe) probe(po, recordID string) (bool, error) {
	resp, err := p.gql.Execute(shopify.OrdersByPOQuery, map[string]interface{}{
		"q": fmt.Sprintf("po_number:%s -status:cancelled", po),
	})
	if err != nil {
		return false, err
	}
	var result struct {
		Orders struct {
			Edges []struct {
				Node struct {
					ID       string `json:"id"`
					PONumber string `json:"poNumber"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"orders"`
	}
	if err := resp.Decode(&result); err != nil {
		return false, fmt.Errorf("parse orders response: %w", err)
	}
	target := normalize.PONumber(po)
	for _, e := range result.Orders.Edges {
		if normalize.PONumber(e.Node.PONumber) == target {
			return true, nil
		}
	}
	return false, nil
}

// draftGraphProbe searches pending drafts three ways: a quoted po_number
// term, an unquoted one (query engines tokenize '#' differently), and an
// explicit identifier-tag term. Hits are revalidated against the
// normalized PO or the record tag.
type draftGraphProbe struct {
	gql graphClient
}

func (p *draftGraphProbe) name() string { return "drafts_graphql" }

func (p *draftGraphProbe) probe(po, recordID string) (bool, error) {
	target := normalize.PONumber(po)
	tag := recordTag(recordID)

	for _, pattern := range []string{
		fmt.Sprintf("po_number:%q", po),
		fmt.Sprintf("po_number:%s", po),
	} {
		resp, err := p.gql.Execute(shopify.DraftOrdersQuery, map[string]interface{}{"q": pattern})
		if err != nil {
			return false, err
		}
		var result struct {
			DraftOrders struct {
				Edges []struct {
					Node struct {
						ID       string   `json:"id"`
						PONumber string   `json:"poNumber"`
						Tags     []string `json:"tags"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"draftOrders"`
		}
		if err := resp.Decode(&result); err != nil {
			return false, fmt.Errorf("parse draftOrders response: %w", err)
		}
		for _, e := range result.DraftOrders.Edges {
			if normalize.PONumber(e.Node.PONumber) == target {
				return true, nil
			}
			if recordID != "" && strings.Contains(strings.Join(e.Node.Tags, ","), tag) {
				return true, nil
			}
		}
	}

	if recordID != "" {
		resp, err := p.gql.Execute(shopify.DraftOrdersQuery, map[string]interface{}{
			"q": fmt.Sprintf("tag:%q", tag),
		})
		if err != nil {
			return false, err
		}
		var result struct {
			DraftOrders struct {
				Edges []struct {
					Node struct {
						ID string `json:"id"`
					} `json:"node"`
				} `json:"edges"`
			} `json:"draftOrders"`
		}
		if err := resp.Decode(&result); err != nil {
			return false, fmt.Errorf("parse draftOrders tag response: %w", err)
		}
		if len(result.DraftOrders.Edges) > 0 {
			return true, nil
		}
	}

	return false, nil
}

// draftRESTProbe is the exhaustive fallback: the graph surface does not
// index all drafts consistently, so it pages through every draft in each
// open-like status via Link-header cursors, comparing normalized PO and
// identifier tag on every row, bounded by a per-status page cap.
type draftRESTProbe struct {
	rest      restClient
	pageLimit int
	maxPages  int
	pageDelay time.Duration
	logger    *zap.Logger
}

func (p *draftRESTProbe) name() string { return "drafts_rest" }

// restDraftOrder is the projected draft_orders.json row.
type restDraftOrder struct {
	ID        int64  `json:"id"`
	PONumber  string `json:"po_number"`
	Tags      string `json:"tags"`
	CreatedAt string `json:"created_at"`
}

func (p *draftRESTProbe) probe(po, recordID string) (bool, error) {
	target := normalize.PONumber(po)
	tag := recordTag(recordID)

	for _, status := range []string{"open", "invoice_sent"} {
		pageToken := ""
		for page := 1; ; page++ {
			params := url.Values{}
			params.Set("status", status)
			params.Set("limit", fmt.Sprintf("%d", p.pageLimit))
			params.Set("fields", "id,po_number,tags,created_at")
			if pageToken != "" {
				params.Set("page_info", pageToken)
			}

			resp, err := p.rest.GetREST("draft_orders.json", params)
			if err != nil {
				p.logger.Warn("REST draft scan failed (non-blocking)",
					zap.String("status", status), zap.Int("page", page), zap.Error(err))
				break
			}
			if !resp.OK() {
				p.logger.Warn("REST draft scan HTTP error (non-blocking)",
					zap.String("status", status), zap.Int("page", page), zap.Int("http_status", resp.StatusCode))
				break
			}

			var payload struct {
				DraftOrders []restDraftOrder `json:"draft_orders"`
			}
			if err := resp.Decode(&payload); err != nil {
				p.logger.Warn("REST draft scan decode failed (non-blocking)",
					zap.String("status", status), zap.Int("page", page), zap.Error(err))
				break
			}

			for _, d := range payload.DraftOrders {
				if n := normalize.PONumber(d.PONumber); n != "" && n == target {
					return true, nil
				}
				if recordID != "" && strings.Contains(d.Tags, tag) {
					return true, nil
				}
			}

			pageToken = resp.NextPageToken
			if pageToken == "" {
				break
			}
			if page >= p.maxPages {
				p.logger.Warn("REST draft scan reached page cap",
					zap.String("status", status), zap.Int("page_cap", p.maxPages))
				break
			}
			time.Sleep(p.pageDelay)
		}
	}
	return false, nil
}
