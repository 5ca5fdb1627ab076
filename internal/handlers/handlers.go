package handlers

import (
	"errors"
	"net/http"

	"portpulse/internal/engine"
	"portpulse/internal/models"
	"portpulse/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// displayPlaces is the precision of every string number in responses.
const displayPlaces = 2

type Handler struct {
	svc *service.PortfolioService
	log *logrus.Logger
}

func NewHandler(svc *service.PortfolioService, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Routes registers every endpoint on r.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/portfolio", h.GetPortfolio)
	r.POST("/benchmark", h.PostBenchmark)
	r.GET("/lots", h.GetLots)
}

type Detail struct {
	Symbol      string  `json:"symbol"`
	Price       string  `json:"price"`
	DayReturn   string  `json:"dayReturn"`
	TotalReturn string  `json:"totalReturn"`
	Weight      string  `json:"weight"`
	Reason      string  `json:"reason"`
	Shares      float64 `json:"shares"`
}

type PerformanceResponse struct {
	BenchmarkSymbol     string    `json:"benchmarkSymbol"`
	Benchmark           []float64 `json:"benchmark"`
	PortfolioReturn     float64   `json:"portfolioReturn"`
	BenchmarkReturn     float64   `json:"benchmarkReturn"`
	Alpha               float64   `json:"alpha"`
	PortfolioVolatility float64   `json:"portfolioVolatility"`
	BenchmarkVolatility float64   `json:"benchmarkVolatility"`
}

type PortfolioResponse struct {
	ChangePercent float64             `json:"changePercent"`
	Sparkline     []float64           `json:"sparkline"`
	DayISO        []string            `json:"dayISO"`
	Details       []Detail            `json:"details"`
	Performance   PerformanceResponse `json:"performance"`
}

func (h *Handler) GetPortfolio(c *gin.Context) {
	snap, err := h.svc.Snapshot(c.Request.Context())
	if err != nil {
		h.respondError(c, "portfolio snapshot failed", err)
		return
	}
	c.JSON(http.StatusOK, NewPortfolioResponse(snap))
}

// NewPortfolioResponse renders a snapshot into the response contract. Sparkline and
// DayISO are the benchmark-aligned series.
func NewPortfolioResponse(snap service.Snapshot) PortfolioResponse {
	details := make([]Detail, 0, len(snap.Holdings))
	for _, hd := range snap.Holdings {
		details = append(details, Detail{
			Symbol:      hd.Symbol,
			Price:       hd.Price.StringFixed(displayPlaces),
			DayReturn:   fixed(hd.DayReturn),
			TotalReturn: fixed(hd.TotalReturn),
			Weight:      fixed(hd.Weight * 100),
			Reason:      hd.Reason,
			Shares:      hd.Shares.InexactFloat64(),
		})
	}
	perf := snap.Performance
	return PortfolioResponse{
		ChangePercent: snap.ChangePercent,
		Sparkline:     engine.Floats(snap.Aligned.Portfolio),
		DayISO:        engine.ISODates(snap.Aligned.Dates),
		Details:       details,
		Performance: PerformanceResponse{
			BenchmarkSymbol:     snap.BenchmarkSymbol,
			Benchmark:           snap.Aligned.Benchmark,
			PortfolioReturn:     perf.PortfolioReturn,
			BenchmarkReturn:     perf.BenchmarkReturn,
			Alpha:               perf.Alpha,
			PortfolioVolatility: perf.PortfolioVolatility,
			BenchmarkVolatility: perf.BenchmarkVolatility,
		},
	}
}

func fixed(f float64) string { return decimal.NewFromFloat(f).StringFixed(displayPlaces) }

type BenchmarkRequest struct {
	DayISO []string `json:"dayISO" binding:"required"`
}

func (h *Handler) PostBenchmark(c *gin.Context) {
	var req BenchmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("invalid benchmark body: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing or invalid dayISO array"})
		return
	}
	series, err := h.svc.BenchmarkPrices(c.Request.Context(), req.DayISO)
	if err != nil {
		h.respondError(c, "benchmark lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dayISO": req.DayISO, "prices": series.Prices})
}

type LotView struct {
	Symbol       string  `json:"symbol"`
	Shares       float64 `json:"shares"`
	BuyPrice     string  `json:"buyPrice"`
	PurchaseDate string  `json:"purchaseDate"`
	Reason       string  `json:"reason"`
}

func (h *Handler) GetLots(c *gin.Context) {
	lots := h.svc.Lots()
	res := make([]LotView, 0, len(lots))
	for _, l := range lots {
		res = append(res, LotView{
			Symbol:       l.Symbol,
			Shares:       l.Shares.InexactFloat64(),
			BuyPrice:     l.BuyPrice.StringFixed(displayPlaces),
			PurchaseDate: l.PurchaseDate.Format(models.DateFormat),
			Reason:       l.Reason,
		})
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) respondError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDates):
		h.log.Warnf("%s: %v", msg, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDataUnavailable):
		h.log.Errorf("%s: %v", msg, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "data unavailable"})
	default:
		h.log.Errorf("%s: %v", msg, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
	}
}
