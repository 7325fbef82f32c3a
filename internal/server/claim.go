package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	claimdomain "github.com/smallbiznis/chainpay/internal/claim/domain"
	"github.com/smallbiznis/chainpay/internal/logger"
	paymentdomain "github.com/smallbiznis/chainpay/internal/payment/domain"
)

type submitClaimRequest struct {
	SenderAddress   string `json:"sender_address"`
	Message         string `json:"message"`
	Signature       string `json:"signature"`
	TransactionHash string `json:"transaction_hash"`
	ChainID         *int64 `json:"chain_id"`

	// Display-only metadata.
	ReceiptURL           string `json:"receipt_url"`
	TokenTicker          string `json:"token_ticker"`
	TokenName            string `json:"token_name"`
	TokenAmount          string `json:"token_amount"`
	TokenDecimals        *int64 `json:"token_decimals"`
	TokenContractAddress string `json:"token_contract_address"`
	ChainName            string `json:"chain_name"`
	IsTestnet            bool   `json:"is_testnet"`
}

// @Summary      Submit Signed Claim
// @Description  Record a customer's signed assertion of an on-chain payment
// @Tags         claims
// @Accept       json
// @Produce      json
// @Param        slug     path  string              true  "Event Slug"
// @Param        order    path  string              true  "Order Code"
// @Param        request  body  submitClaimRequest  true  "Signed Claim"
// @Success      201  {object}  map[string]any
// @Router       /api/events/{slug}/orders/{order}/claims [post]
func (s *Server) SubmitClaim(c *gin.Context) {
	ctx := c.Request.Context()
	payment, err := s.orderPayment(ctx, c.Param("slug"), c.Param("order"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if payment.State != paymentdomain.StateCreated && payment.State != paymentdomain.StatePending {
		AbortWithError(c, newConflictError("payment_not_pending", "this payment no longer accepts claims"))
		return
	}

	var req submitClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if strings.TrimSpace(req.SenderAddress) == "" {
		AbortWithError(c, newValidationError("sender_address", "required", "sender_address is required"))
		return
	}
	if strings.TrimSpace(req.Message) == "" || strings.TrimSpace(req.Signature) == "" {
		AbortWithError(c, newValidationError("signature", "required", "message and signature are required"))
		return
	}
	ticker := strings.ToUpper(strings.TrimSpace(req.TokenTicker))
	if ticker != "" {
		if _, ok := s.cfg.Payment.TokenRate(ticker); !ok {
			AbortWithError(c, newValidationError("token_ticker", "unsupported_token", "token is not accepted"))
			return
		}
	}

	// One live claim at a time: the customer must wait out the retry
	// window before replacing a pending claim, so two wallets racing on
	// one order cannot both be told "submitted".
	latest, err := s.claims.FindLatestByPayment(ctx, s.db, payment.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if latest != nil && !latest.Invalid && !latest.IsConfirmed {
		if latest.Age(s.clock.Now()) < s.cfg.Payment.RetryTimeout {
			AbortWithError(c, newConflictError("claim_already_submitted", "a claim is already pending for this payment"))
			return
		}
	}

	s.logger.Debug("claim payload received",
		zap.String("payment", payment.FullID),
		zap.Any("payload", logger.MaskFields(map[string]any{
			"sender_address":   req.SenderAddress,
			"raw_message":      req.Message,
			"signature":        req.Signature,
			"transaction_hash": req.TransactionHash,
			"chain_id":         req.ChainID,
			"token_ticker":     ticker,
		})),
	)

	claim := s.newClaim(ctx, payment, req, ticker)
	if err := s.claims.Insert(ctx, s.db, claim); err != nil {
		AbortWithError(c, err)
		return
	}

	s.logger.Info("signed claim submitted",
		zap.String("payment", payment.FullID),
		zap.Int64("claim_id", int64(claim.ID)),
		zap.String("sender_address", claim.SenderAddress),
		zap.String("signature", logger.MaskSignature(claim.Signature)),
	)
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{
		"id":         claim.ID.String(),
		"created_at": claim.CreatedAt,
	}})
}

// newClaim snapshots the trusted fields from server-side state at
// submission time. Later configuration changes never rewrite them.
func (s *Server) newClaim(ctx context.Context, payment *paymentdomain.Payment, req submitClaimRequest, ticker string) *claimdomain.SignedClaim {
	primaryCurrency := payment.InfoString(paymentdomain.InfoPrimaryCurrency)
	if primaryCurrency == "" {
		primaryCurrency = s.cfg.Payment.PrimaryCurrency
	}
	logicalAmount := payment.LogicalAmount()
	if logicalAmount.IsZero() {
		logicalAmount = payment.Amount
	}
	usdPerETH := payment.USDPerETH()
	if usdPerETH.IsZero() && s.cfg.Rates.Enabled && s.rates != nil {
		if quoted, err := s.rates.USDPerETH(ctx); err == nil {
			usdPerETH = quoted
		}
	}

	claim := &claimdomain.SignedClaim{
		ID:             s.node.Generate(),
		OrderPaymentID: payment.ID,
		CreatedAt:      s.clock.Now(),

		RecipientAddress: s.cfg.Payment.ReceiverAddress,
		PrimaryCurrency:  primaryCurrency,
		LogicalAmount:    logicalAmount,
		USDPerETH:        usdPerETH,

		SenderAddress: strings.TrimSpace(req.SenderAddress),
		RawMessage:    req.Message,
		Signature:     req.Signature,
		ChainID:       req.ChainID,

		ReceiptURL:           req.ReceiptURL,
		TokenTicker:          ticker,
		TokenName:            req.TokenName,
		TokenAmount:          req.TokenAmount,
		TokenDecimals:        req.TokenDecimals,
		TokenContractAddress: req.TokenContractAddress,
		ChainName:            req.ChainName,
		IsTestnet:            req.IsTestnet,
	}
	if hash := strings.TrimSpace(req.TransactionHash); hash != "" {
		claim.TransactionHash = &hash
	}
	return claim
}
