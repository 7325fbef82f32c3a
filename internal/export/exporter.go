// Package export writes payment and claim data as CSV for bookkeeping.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	claimdomain "github.com/smallbiznis/chainpay/internal/claim/domain"
	eventdomain "github.com/smallbiznis/chainpay/internal/event/domain"
	paymentdomain "github.com/smallbiznis/chainpay/internal/payment/domain"
)

var headers = []string{
	"Type", "Event slug", "Order", "Payment ID", "Creation date",
	"Completion date", "Status", "Fiat Amount", "Currency Type",
	"Sender address", "Receiver address",
	"Transaction Hash", "Chain ID", "Chain Name", "Order USD/ETH Rate",
	"Receipt URL", "Token Ticker", "Token Name", "Token Amount",
	"Token Decimals", "Token Contract Address", "Is Testnet",
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Events   eventdomain.Repository
	Payments paymentdomain.Repository
	Claims   claimdomain.Repository
	Logger   *zap.Logger
}

type Exporter struct {
	db       *gorm.DB
	events   eventdomain.Repository
	payments paymentdomain.Repository
	claims   claimdomain.Repository
	logger   *zap.Logger
}

func New(p Params) *Exporter {
	return &Exporter{
		db:       p.DB,
		events:   p.Events,
		payments: p.Payments,
		claims:   p.Claims,
		logger:   p.Logger.Named("export"),
	}
}

// Options filter the export.
type Options struct {
	// EventSlug restricts the export to one event when set.
	EventSlug string

	// States filters payments; defaults to confirmed and refunded.
	States []paymentdomain.State
}

func (o Options) states() []paymentdomain.State {
	if len(o.States) > 0 {
		return o.States
	}
	return []paymentdomain.State{paymentdomain.StateConfirmed, paymentdomain.StateRefunded}
}

// WriteCSV streams the export and returns the number of payment rows
// written. Payments appear in creation order per event. Each row shows
// the confirmed claim when one exists, else the most recent claim, else
// empty claim columns.
func (e *Exporter) WriteCSV(ctx context.Context, w io.Writer, opts Options) (int, error) {
	var events []eventdomain.Event
	if opts.EventSlug != "" {
		event, err := e.events.FindBySlug(ctx, e.db, opts.EventSlug)
		if err != nil {
			return 0, err
		}
		events = []eventdomain.Event{*event}
	} else {
		var err error
		events, err = e.events.List(ctx, e.db)
		if err != nil {
			return 0, err
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(headers); err != nil {
		return 0, err
	}

	rows := 0
	for _, event := range events {
		payments, err := e.payments.FindByStates(ctx, e.db, event.ID, opts.states())
		if err != nil {
			return rows, fmt.Errorf("list payments for %s: %w", event.Slug, err)
		}
		for i := range payments {
			record, err := e.paymentRow(ctx, &event, &payments[i])
			if err != nil {
				return rows, err
			}
			if err := writer.Write(record); err != nil {
				return rows, err
			}
			rows++
		}
	}

	writer.Flush()
	return rows, writer.Error()
}

func (e *Exporter) paymentRow(ctx context.Context, event *eventdomain.Event, payment *paymentdomain.Payment) ([]string, error) {
	claim, err := e.claims.FindConfirmedByPayment(ctx, e.db, payment.ID)
	if err != nil {
		return nil, err
	}
	if claim == nil {
		claim, err = e.claims.FindLatestByPayment(ctx, e.db, payment.ID)
		if err != nil {
			return nil, err
		}
	}

	completionDate := ""
	if payment.PaymentDate != nil {
		completionDate = payment.PaymentDate.UTC().Format("2006-01-02")
	}

	row := []string{
		"Payment",
		event.Slug,
		payment.OrderCode,
		payment.FullID,
		payment.CreatedAt.UTC().Format("2006-01-02"),
		completionDate,
		string(payment.State),
		payment.Amount.String(),
		payment.InfoString(paymentdomain.InfoPrimaryCurrency),
	}

	if claim == nil {
		return append(row, make([]string, len(headers)-len(row))...), nil
	}

	hash := ""
	if claim.TransactionHash != nil {
		hash = *claim.TransactionHash
	}
	chainID := ""
	if claim.ChainID != nil {
		chainID = strconv.FormatInt(*claim.ChainID, 10)
	}
	tokenDecimals := ""
	if claim.TokenDecimals != nil {
		tokenDecimals = strconv.FormatInt(*claim.TokenDecimals, 10)
	}
	usdPerETH := ""
	if claim.USDPerETH.IsPositive() {
		usdPerETH = claim.USDPerETH.String()
	}

	return append(row,
		claim.SenderAddress,
		claim.RecipientAddress,
		hash,
		chainID,
		claim.ChainName,
		usdPerETH,
		claim.ReceiptURL,
		claim.TokenTicker,
		claim.TokenName,
		claim.TokenAmount,
		tokenDecimals,
		claim.TokenContractAddress,
		strconv.FormatBool(claim.IsTestnet),
	), nil
}

// Filename names the export file the way bookkeeping expects.
func Filename(eventSlug string, now time.Time) string {
	if eventSlug == "" {
		eventSlug = "all"
	}
	return fmt.Sprintf("%s_payments_%s.csv", eventSlug, now.UTC().Format("20060102"))
}
