package handlers

import (
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"vaultcore/internal/amount"
	"vaultcore/internal/services"
)

// PriceHandler handles price ingestion and lookup.
type PriceHandler struct {
	priceService services.PriceServicer
}

// NewPriceHandler creates a new PriceHandler.
func NewPriceHandler(priceService services.PriceServicer) *PriceHandler {
	return &PriceHandler{priceService: priceService}
}

// PriceEntry is one observed price. Value is an integer scaled by Decimals.
type PriceEntry struct {
	Asset      string    `json:"asset" binding:"required,eth_addr"`
	Source     string    `json:"source" binding:"required,max=50"`
	Value      string    `json:"value" binding:"required,uint_string"`
	Decimals   uint8     `json:"decimals" binding:"lte=36"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RecordPricesRequest is a batch of observed prices.
type RecordPricesRequest struct {
	Prices []PriceEntry `json:"prices" binding:"required,min=1,max=500,dive"`
}

// RecordPrices ingests prices from the feed runner
// @Summary     Record prices
// @Description Store a batch of observed prices. Requires the ingestion API key.
// @Tags        pipeline
// @Accept      json
// @Produce     json
// @Param       X-API-Key header string true "Ingestion API key"
// @Param       request body RecordPricesRequest true "Prices"
// @Success     201 {object} map[string]int
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid API key"
// @Router      /pipeline/prices [post]
func (h *PriceHandler) RecordPrices(c *gin.Context) {
	var req RecordPricesRequest
	if err := bindJSON(c, &req); err != nil {
		respondWithError(c, err)
		return
	}

	inputs := make([]services.PriceInput, 0, len(req.Prices))
	for _, p := range req.Prices {
		value, err := parseAmount(p.Value, "value")
		if err != nil {
			respondWithError(c, err)
			return
		}
		inputs = append(inputs, services.PriceInput{
			Asset:      common.HexToAddress(p.Asset),
			Source:     p.Source,
			Value:      value,
			Decimals:   p.Decimals,
			RecordedAt: p.RecordedAt,
		})
	}

	n, err := h.priceService.RecordPrices(c.Request.Context(), inputs)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recorded": n})
}

// GetPrice returns the price the engine values an asset at
// @Summary     Get an asset price
// @Tags        prices
// @Produce     json
// @Param       asset path string true "Asset address"
// @Failure     503 {object} ErrorResponse "Price unavailable"
// @Router      /prices/{asset} [get]
func (h *PriceHandler) GetPrice(c *gin.Context) {
	asset, err := parseAddressParam(c, "asset")
	if err != nil {
		respondWithError(c, err)
		return
	}
	p, err := h.priceService.GetPrice(c.Request.Context(), asset)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"price": gin.H{
		"asset":      asset.Hex(),
		"value":      intString(p.Value),
		"decimals":   p.Decimals,
		"usd":        amount.FormatUSD(p.Normalized()),
		"updated_at": p.UpdatedAt,
	}})
}
