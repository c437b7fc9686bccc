// Package api exposes the HTTP surface: subscription registration, the
// read-only price query, and the ad-hoc status query. All domain decisions
// live in the engine and registry; handlers only translate HTTP.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"goldwatch/internal/pricing"
	"goldwatch/internal/registry"
	"goldwatch/internal/service"
)

// Handler bundles the dependencies the HTTP routes need.
type Handler struct {
	engine *service.Engine
	reg    *registry.Registry
	logger zerolog.Logger
}

// SetupRoutes registers all routes on the group and returns the handler.
func SetupRoutes(r *gin.RouterGroup, engine *service.Engine, reg *registry.Registry, logger zerolog.Logger) *Handler {
	h := &Handler{
		engine: engine,
		reg:    reg,
		logger: logger.With().Str("component", "api").Logger(),
	}

	r.POST("/subscriptions", h.Subscribe)
	r.GET("/price", h.Price)
	r.GET("/status", h.Status)

	return h
}

type subscribeRequest struct {
	Identity string  `json:"identity"`
	Unit     string  `json:"unit"`
	Currency string  `json:"currency"`
	Purity   int     `json:"purity"`
	Lower    float64 `json:"lower_threshold"`
	Upper    float64 `json:"upper_threshold"`
}

type subscriptionResponse struct {
	Identity string `json:"identity"`
	Unit     string `json:"unit"`
	Currency string `json:"currency"`
	Purity   int    `json:"purity"`
	Lower    string `json:"lower_threshold"`
	Upper    string `json:"upper_threshold"`
}

// Subscribe registers (or replaces) a subscription and evaluates it
// immediately, so a band that is already breached alerts right away.
func (h *Handler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	entry, err := h.reg.Upsert(registry.Request{
		Identity: req.Identity,
		Unit:     req.Unit,
		Currency: req.Currency,
		Purity:   req.Purity,
		Lower:    req.Lower,
		Upper:    req.Upper,
	})
	if err != nil {
		var verr *pricing.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Reason})
			return
		}
		h.logger.Error().Err(err).Msg("registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	h.engine.EvaluateEntry(c.Request.Context(), entry)

	sub := entry.View()
	c.JSON(http.StatusCreated, subscriptionResponse{
		Identity: sub.Identity,
		Unit:     string(sub.Unit),
		Currency: string(sub.Currency),
		Purity:   sub.Purity,
		Lower:    sub.Lower.String(),
		Upper:    sub.Upper.String(),
	})
}

type priceResponse struct {
	CurrentPrice string `json:"current_price"`
	Unit         string `json:"unit"`
	Currency     string `json:"currency"`
	Purity       int    `json:"purity"`
	Timestamp    string `json:"timestamp"`
}

// Price answers the read-only price query without threshold fields.
func (h *Handler) Price(c *gin.Context) {
	payload, err := h.engine.PriceQuote(quoteOptions(c))
	if err != nil {
		h.unavailable(c, err)
		return
	}

	c.JSON(http.StatusOK, priceResponse{
		CurrentPrice: payload.CurrentPrice.String(),
		Unit:         string(payload.Unit),
		Currency:     string(payload.Currency),
		Purity:       payload.Purity,
		Timestamp:    payload.Timestamp.UTC().Format(time.RFC3339),
	})
}

type statusResponse struct {
	priceResponse
	Lower  string `json:"lower_threshold"`
	Upper  string `json:"upper_threshold"`
	Status string `json:"status"`
}

// Status answers the agent query: derived price plus band placement for the
// supplied thresholds. Nothing is stored.
func (h *Handler) Status(c *gin.Context) {
	lower, lerr := strconv.ParseFloat(c.Query("lower_threshold"), 64)
	upper, uerr := strconv.ParseFloat(c.Query("upper_threshold"), 64)
	if lerr != nil || uerr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lower_threshold and upper_threshold must be numbers"})
		return
	}

	payload, err := h.engine.StatusQuote(quoteOptions(c), lower, upper)
	if err != nil {
		var verr *pricing.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Reason})
			return
		}
		h.unavailable(c, err)
		return
	}

	c.JSON(http.StatusOK, statusResponse{
		priceResponse: priceResponse{
			CurrentPrice: payload.CurrentPrice.String(),
			Unit:         string(payload.Unit),
			Currency:     string(payload.Currency),
			Purity:       payload.Purity,
			Timestamp:    payload.Timestamp.UTC().Format(time.RFC3339),
		},
		Lower:  payload.Lower.String(),
		Upper:  payload.Upper.String(),
		Status: string(payload.Status),
	})
}

func (h *Handler) unavailable(c *gin.Context, err error) {
	if errors.Is(err, service.ErrUnavailable) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reference data unavailable"})
		return
	}
	h.logger.Error().Err(err).Msg("query failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func quoteOptions(c *gin.Context) service.QuoteOptions {
	purity, _ := strconv.Atoi(c.Query("purity"))
	return service.QuoteOptions{
		Unit:     c.Query("unit"),
		Currency: c.Query("currency"),
		Purity:   purity,
	}
}
