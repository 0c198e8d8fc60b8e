package okx

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/thrasher-corp/twapper/exchanges/order"
	"github.com/thrasher-corp/twapper/log"
)

// GetBalance returns the cash balance of a currency. A currency missing from
// the account returns zero.
func (ok *Okx) GetBalance(ctx context.Context, currency string) (float64, error) {
	if currency == "" {
		return 0, errCurrencyIsEmpty
	}
	accounts, err := ok.AccountBalance(ctx, currency)
	if err != nil {
		return 0, err
	}
	for x := range accounts {
		for y := range accounts[x].Details {
			if strings.EqualFold(accounts[x].Details[y].Currency, currency) {
				return accounts[x].Details[y].CashBalance.Float64(), nil
			}
		}
	}
	log.Warnf(log.ExchangeSys, "%s no %s balance found, using zero", Name, currency)
	return 0, nil
}

// GetBestPrices returns the top of book for an instrument
func (ok *Okx) GetBestPrices(ctx context.Context, instrument string) (bid, ask float64, err error) {
	book, err := ok.GetOrderBookDepth(ctx, instrument, defaultOrderbookDepth)
	if err != nil {
		return 0, 0, err
	}
	if len(book.Bids) == 0 || len(book.Asks) == 0 {
		return 0, 0, fmt.Errorf("%w for %s: empty side", errNoOrderbookData, instrument)
	}
	return book.Bids[0][0].Float64(), book.Asks[0][0].Float64(), nil
}

// PlaceLimitOrder submits a cash limit order
func (ok *Okx) PlaceLimitOrder(ctx context.Context, s *order.Submit) (*order.SubmitResponse, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Type != order.Limit {
		return nil, fmt.Errorf("%w %s", order.ErrTypeIsInvalid, s.Type)
	}
	clientID := s.ClientOrderID
	if clientID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, err
		}
		clientID = strings.ReplaceAll(id.String(), "-", "")
	}
	resp, err := ok.PlaceOrder(ctx, &PlaceOrderRequestParam{
		InstrumentID:  s.Instrument,
		TradeMode:     TradeModeCash,
		ClientOrderID: clientID,
		Side:          s.Side.Lower(),
		OrderType:     s.Type.Lower(),
		Amount:        decimal.NewFromFloat(s.Amount).String(),
		Price:         decimal.NewFromFloat(s.Price).String(),
	})
	if err != nil {
		return nil, err
	}
	submitted := *s
	submitted.ClientOrderID = clientID
	return submitted.DeriveSubmitResponse(resp.OrderID)
}
