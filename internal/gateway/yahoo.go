package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"portpulse/internal/models"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const YahooDefaultBaseURL = "https://query1.finance.yahoo.com"

// YahooClient reads quotes and daily history from the Yahoo Finance v8 chart endpoint.
type YahooClient struct {
	baseURL string
	client  *http.Client
	log     *logrus.Logger
}

func NewYahooClient(baseURL string, timeout time.Duration, log *logrus.Logger) *YahooClient {
	resolved := strings.TrimRight(baseURL, "/")
	if resolved == "" {
		resolved = YahooDefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &YahooClient{
		baseURL: resolved,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

var (
	_ QuoteGateway   = (*YahooClient)(nil)
	_ HistoryGateway = (*YahooClient)(nil)
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		ChartPreviousClose float64 `json:"chartPreviousClose"`
		PreviousClose      float64 `json:"previousClose"`
		GMTOffset          int64   `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open  []*float64 `json:"open"`
			Close []*float64 `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

func (c *YahooClient) Quote(ctx context.Context, symbol string) (models.Quote, error) {
	params := url.Values{
		"range":    {"1d"},
		"interval": {"1d"},
	}
	res, err := c.chart(ctx, symbol, params)
	if err != nil {
		return models.Quote{}, err
	}

	price := res.Meta.RegularMarketPrice
	if price <= 0 {
		return models.Quote{}, fmt.Errorf("%w: no price in response for %s", ErrNoData, symbol)
	}
	prev := res.Meta.ChartPreviousClose
	if prev <= 0 {
		prev = res.Meta.PreviousClose
	}
	change := 0.0
	if prev > 0 {
		change = (price - prev) / prev * 100
	}
	return models.Quote{
		Symbol:        strings.ToUpper(symbol),
		Price:         decimal.NewFromFloat(price),
		ChangePercent: change,
	}, nil
}

func (c *YahooClient) History(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceBar, error) {
	from, to = models.Day(from), models.Day(to)
	if to.Before(from) {
		return nil, fmt.Errorf("history %s: range ends %s before it starts %s", symbol,
			to.Format(models.DateFormat), from.Format(models.DateFormat))
	}
	params := url.Values{
		"period1":  {strconv.FormatInt(from.Unix(), 10)},
		"period2":  {strconv.FormatInt(to.AddDate(0, 0, 1).Unix(), 10)},
		"interval": {"1d"},
	}
	res, err := c.chart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	var opens, closes []*float64
	if len(res.Indicators.Quote) > 0 {
		opens = res.Indicators.Quote[0].Open
		closes = res.Indicators.Quote[0].Close
	}
	bars := make([]models.PriceBar, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		d := models.Day(time.Unix(ts+res.Meta.GMTOffset, 0).UTC())
		if d.Before(from) || d.After(to) {
			continue
		}
		bars = append(bars, models.PriceBar{Date: d, Open: at(opens, i), Close: at(closes, i)})
	}
	c.log.WithField("symbol", symbol).Debugf("fetched %d daily bars", len(bars))
	return bars, nil
}

func at(vals []*float64, i int) *decimal.Decimal {
	if i >= len(vals) || vals[i] == nil {
		return nil
	}
	d := decimal.NewFromFloat(*vals[i])
	return &d
}

func (c *YahooClient) chart(ctx context.Context, symbol string, params url.Values) (chartResult, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return chartResult{}, fmt.Errorf("empty symbol")
	}
	endpoint := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return chartResult{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (portpulse)")

	resp, err := c.client.Do(req)
	if err != nil {
		return chartResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return chartResult{}, fmt.Errorf("yahoo chart %s: status %d: %s", symbol, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return chartResult{}, fmt.Errorf("yahoo chart %s: decode: %w", symbol, err)
	}
	if e := payload.Chart.Error; e != nil {
		return chartResult{}, fmt.Errorf("yahoo chart %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return chartResult{}, fmt.Errorf("%w: empty chart for %s", ErrNoData, symbol)
	}
	return payload.Chart.Result[0], nil
}
