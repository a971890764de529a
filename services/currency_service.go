package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const (
	exchangeRateBaseURL = "https://v6.exchangerate-api.com/v6"
	ratesTTL            = 6 * time.Hour
)

type exchangeRateResponse struct {
	Result          string             `json:"result"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// CurrencyService converts amounts to USD with rates cached for six hours.
type CurrencyService struct {
	apiKey  string
	baseURL string
	client  *http.Client
	now     func() time.Time

	mu        sync.RWMutex
	rates     map[string]float64
	fetchedAt time.Time
}

func NewCurrencyService(apiKey string) *CurrencyService {
	return &CurrencyService{
		apiKey:  apiKey,
		baseURL: exchangeRateBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
	}
}

func (s *CurrencyService) Rates(ctx context.Context) (map[string]float64, error) {
	s.mu.RLock()
	if s.rates != nil && s.now().Sub(s.fetchedAt) < ratesTTL {
		rates := s.rates
		s.mu.RUnlock()
		return rates, nil
	}
	s.mu.RUnlock()

	log.Debug().Msg("fetching fresh exchange rates")
	url := fmt.Sprintf("%s/%s/latest/USD", s.baseURL, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch exchange rates: %w", err)
	}
	defer resp.Body.Close()

	var data exchangeRateResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode exchange rates: %w", err)
	}
	if data.Result != "success" {
		return nil, fmt.Errorf("exchange rate API returned %q", data.Result)
	}

	s.mu.Lock()
	s.rates = data.ConversionRates
	s.fetchedAt = s.now()
	s.mu.Unlock()

	return data.ConversionRates, nil
}

// TotalUSD sums per-currency amounts in USD. Currencies the API does not
// know are added unconverted and logged.
func (s *CurrencyService) TotalUSD(ctx context.Context, byCurrency map[string]decimal.Decimal) (decimal.Decimal, error) {
	rates, err := s.Rates(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for currency, amount := range byCurrency {
		rate, ok := rates[currency]
		if !ok || rate <= 0 {
			log.Warn().Str("currency", currency).Msg("no exchange rate, summing unconverted")
			total = total.Add(amount)
			continue
		}
		total = total.Add(amount.Div(decimal.NewFromFloat(rate)))
	}
	return total.Round(2), nil
}
