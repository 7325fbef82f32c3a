package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	paymentdomain "github.com/smallbiznis/chainpay/internal/payment/domain"
)

// @Summary      Get Payment Status
// @Description  Current state of the latest payment for an order
// @Tags         payments
// @Produce      json
// @Param        slug   path  string  true  "Event Slug"
// @Param        order  path  string  true  "Order Code"
// @Success      200  {object}  map[string]any
// @Router       /api/events/{slug}/orders/{order}/payment [get]
func (s *Server) GetPaymentStatus(c *gin.Context) {
	payment, err := s.orderPayment(c.Request.Context(), c.Param("slug"), c.Param("order"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"order_code":   payment.OrderCode,
		"full_id":      payment.FullID,
		"state":        payment.State,
		"amount":       payment.Amount,
		"currency":     payment.Currency,
		"payment_date": payment.PaymentDate,
	}})
}

// @Summary      Get Transaction Details
// @Description  Everything the checkout page needs to instruct the wallet
// @Tags         payments
// @Produce      json
// @Param        slug   path  string  true  "Event Slug"
// @Param        order  path  string  true  "Order Code"
// @Success      200  {object}  map[string]any
// @Router       /api/events/{slug}/orders/{order}/transaction-details [get]
func (s *Server) GetTransactionDetails(c *gin.Context) {
	ctx := c.Request.Context()
	payment, err := s.orderPayment(ctx, c.Param("slug"), c.Param("order"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	submitted, err := s.claims.AnotherClaimSubmitted(ctx, s.db, payment.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

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
		// Best effort: a stale checkout without a snapshot still gets a
		// live quote, but a rates outage must not break the page.
		if quoted, err := s.rates.USDPerETH(ctx); err == nil {
			usdPerETH = quoted
		}
	}

	details := gin.H{
		"recipient_address":      s.cfg.Payment.ReceiverAddress,
		"primary_currency":       primaryCurrency,
		"logical_amount":         logicalAmount,
		"token_ticker_allowlist": s.cfg.Payment.TokenAllowlist(),
		"is_signature_submitted": submitted,
		"state":                  payment.State,
	}
	if usdPerETH.IsPositive() {
		details["usd_per_eth"] = usdPerETH
	}
	c.JSON(http.StatusOK, gin.H{"data": details})
}
