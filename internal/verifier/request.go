package verifier

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	claimdomain "github.com/smallbiznis/chainpay/internal/claim/domain"
	"github.com/smallbiznis/chainpay/internal/config"
)

// ErrIncompleteClaim reports a claim missing a field the verifier
// requires.
var ErrIncompleteClaim = errors.New("claim_incomplete")

// Request is the wire payload of one verification call. Trusted fields
// come from the server-side snapshot on the claim; untrusted fields are
// the customer's own assertions, forwarded verbatim for the verifier to
// check.
type Request struct {
	ExternalID string    `json:"external_id"`
	Trusted    Trusted   `json:"trusted"`
	Untrusted  Untrusted `json:"untrusted"`
}

type Trusted struct {
	Currency             string   `json:"currency"`
	LogicalAmount        string   `json:"logical_amount"`
	TokenTickerAllowlist []string `json:"token_ticker_allowlist"`
	USDPerETH            string   `json:"usd_per_eth,omitempty"`
	ReceiverAddress      string   `json:"receiver_address"`
}

type Untrusted struct {
	ChainID         *int64        `json:"chain_id,omitempty"`
	TransactionHash string        `json:"transaction_hash,omitempty"`
	SenderAddress   string        `json:"sender_address"`
	SignatureData   SignatureData `json:"signature_data"`
}

type SignatureData struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
}

// Builder assembles verification requests from stored claims.
type Builder struct {
	payment config.PaymentConfig
}

func NewBuilder(payment config.PaymentConfig) *Builder {
	return &Builder{payment: payment}
}

// Build maps a stored claim onto a request. Trusted values are taken
// from the claim's snapshot, never from current configuration, so a
// receiver-address rotation does not invalidate claims paid before it.
// Each call mints a fresh external id so verifier-side logs can be
// correlated with ours per attempt.
func (b *Builder) Build(claim *claimdomain.SignedClaim) (Request, error) {
	if strings.TrimSpace(claim.RecipientAddress) == "" {
		return Request{}, fmt.Errorf("%w: recipient_address", ErrIncompleteClaim)
	}
	if strings.TrimSpace(claim.PrimaryCurrency) == "" {
		return Request{}, fmt.Errorf("%w: primary_currency", ErrIncompleteClaim)
	}
	if !claim.LogicalAmount.IsPositive() {
		return Request{}, fmt.Errorf("%w: logical_amount", ErrIncompleteClaim)
	}
	if strings.TrimSpace(claim.SenderAddress) == "" {
		return Request{}, fmt.Errorf("%w: sender_address", ErrIncompleteClaim)
	}
	if strings.TrimSpace(claim.RawMessage) == "" || strings.TrimSpace(claim.Signature) == "" {
		return Request{}, fmt.Errorf("%w: signature_data", ErrIncompleteClaim)
	}
	hasHash := claim.TransactionHash != nil && *claim.TransactionHash != ""
	if hasHash != (claim.ChainID != nil) {
		return Request{}, claimdomain.ErrChainWithoutHash
	}

	allowlist := b.payment.TokenAllowlist()
	sort.Strings(allowlist)

	req := Request{
		ExternalID: uuid.NewString(),
		Trusted: Trusted{
			Currency:             claim.PrimaryCurrency,
			LogicalAmount:        claim.LogicalAmount.String(),
			TokenTickerAllowlist: allowlist,
			ReceiverAddress:      claim.RecipientAddress,
		},
		Untrusted: Untrusted{
			ChainID:       claim.ChainID,
			SenderAddress: claim.SenderAddress,
			SignatureData: SignatureData{
				Message:   claim.RawMessage,
				Signature: claim.Signature,
			},
		},
	}
	if claim.USDPerETH.IsPositive() {
		req.Trusted.USDPerETH = claim.USDPerETH.String()
	}
	if hasHash {
		req.Untrusted.TransactionHash = *claim.TransactionHash
	}
	return req, nil
}
