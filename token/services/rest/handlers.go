/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hyperledger-labs/token-issuance-sdk/token/services/ttx"
	"github.com/hyperledger-labs/token-issuance-sdk/token/token"
	"github.com/hyperledger-labs/token-issuance-sdk/token/validator"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Issuer is the issuance service exposed over HTTP
type Issuer interface {
	IssueTokens(ctx context.Context, owner token.Identity, amount int64) (*ttx.Receipt, error)
	Receipt(ctx context.Context, txID string) (*ttx.Receipt, error)
}

// Directory resolves the name of a party into its identity
type Directory interface {
	Lookup(name string) (token.Identity, bool)
}

type IssueRequest struct {
	Owner  string `json:"owner" binding:"required"`
	Amount int64  `json:"amount"`
}

type IssueResponse struct {
	TxID    string       `json:"tx_id"`
	Receipt *ttx.Receipt `json:"receipt"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Phase     string `json:"phase,omitempty"`
	Retryable bool   `json:"retryable"`
}

// NewHandler returns the routes of the issuance API.
// When gatherer is not nil, metrics are served under /metrics.
func NewHandler(issuer Issuer, directory Directory, gatherer prometheus.Gatherer) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/v1")
	v1.POST("/issue", issueHandler(issuer, directory))
	v1.GET("/transactions/:id", receiptHandler(issuer))
	return r
}

func issueHandler(issuer Issuer, directory Directory) gin.HandlerFunc {
	return func(c *gin.Context) {
		request := &IssueRequest{}
		if err := c.ShouldBindJSON(request); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		owner, ok := directory.Lookup(request.Owner)
		if !ok {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown owner [" + request.Owner + "]"})
			return
		}
		receipt, err := issuer.IssueTokens(c.Request.Context(), owner, request.Amount)
		if err != nil {
			c.JSON(statusOf(err), errorResponse(err))
			return
		}
		c.JSON(http.StatusCreated, IssueResponse{TxID: receipt.ID(), Receipt: receipt})
	}
}

func receiptHandler(issuer Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		txID := c.Param("id")
		receipt, err := issuer.Receipt(c.Request.Context(), txID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
		if receipt == nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "transaction [" + txID + "] not found"})
			return
		}
		c.JSON(http.StatusOK, IssueResponse{TxID: receipt.ID(), Receipt: receipt})
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ttx.ErrInvalidAmount), errors.Is(err, ttx.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, validator.ErrRuleViolation), errors.Is(err, ttx.ErrCounterpartyRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ttx.ErrFinalizationRejected):
		return http.StatusConflict
	case errors.Is(err, ttx.ErrEndorsementTimeout):
		return http.StatusServiceUnavailable
	case errors.Is(err, ttx.ErrFinalizationUnknown):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) ErrorResponse {
	response := ErrorResponse{Error: err.Error(), Retryable: ttx.Retryable(err)}
	var pe *ttx.ProtocolError
	if errors.As(err, &pe) {
		response.Phase = pe.Phase.String()
	}
	return response
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debugf("%s %s -> %d", c.Request.Method, c.Request.URL.Path, c.Writer.Status())
	}
}
