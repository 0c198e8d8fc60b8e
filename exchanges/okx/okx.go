package okx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/thrasher-corp/twapper/common"
	"github.com/thrasher-corp/twapper/common/crypto"
	"github.com/thrasher-corp/twapper/exchanges/order"
	"github.com/thrasher-corp/twapper/exchanges/request"
	"github.com/thrasher-corp/twapper/types"
	"golang.org/x/time/rate"
)

const (
	// Name is the exchange name used in order submissions
	Name = "okx"

	baseURL       = "https://www.okx.com"
	okxAPIVersion = "/v5/"
	okxAPIPath    = "api" + okxAPIVersion

	defaultOrderbookDepth = 5
)

// Okx is the overarching type across this package
type Okx struct {
	apiURL        string
	demoTrading   bool
	verbose       bool
	httpDebugging bool
	credentials   Credentials
	requester     *request.Requester
}

// New returns an OKX REST client
func New(cfg *Config, client *http.Client, limiter *rate.Limiter) (*Okx, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: okx config", common.ErrNilPointer)
	}
	apiURL := strings.TrimSuffix(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = baseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	opts := []request.RequesterOption{request.WithVerboseLogging(cfg.Verbose)}
	if limiter != nil {
		opts = append(opts, request.WithLimiter(limiter))
	}
	r, err := request.New(Name, client, opts...)
	if err != nil {
		return nil, err
	}
	return &Okx{
		apiURL:        apiURL,
		demoTrading:   cfg.DemoTrading,
		verbose:       cfg.Verbose,
		httpDebugging: cfg.HTTPDebugging,
		credentials:   cfg.Credentials,
		requester:     r,
	}, nil
}

// AccountBalance retrieves a list of assets (with non-zero balance), remaining
// balance, and available amount in the trading account.
func (ok *Okx) AccountBalance(ctx context.Context, ccy string) ([]Account, error) {
	params := url.Values{}
	if ccy != "" {
		params.Set("ccy", strings.ToUpper(ccy))
	}
	var resp []Account
	return resp, ok.SendHTTPRequest(ctx, http.MethodGet, common.EncodeURLValues("account/balance", params), nil, &resp, true)
}

// GetOrderBookDepth returns the recent order asks and bids before specified
// timestamp.
func (ok *Okx) GetOrderBookDepth(ctx context.Context, instrumentID string, depth int64) (*OrderBookResponse, error) {
	if instrumentID == "" {
		return nil, errMissingInstrumentID
	}
	params := url.Values{}
	params.Set("instId", instrumentID)
	if depth > 0 {
		params.Set("sz", strconv.FormatInt(depth, 10))
	}
	var resp []OrderBookResponse
	if err := ok.SendHTTPRequest(ctx, http.MethodGet, common.EncodeURLValues("market/books", params), nil, &resp, false); err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("%w for %s", errNoOrderbookData, instrumentID)
	}
	return &resp[0], nil
}

// PlaceOrder places an order. Only assets that are available in the trading
// account can be used.
func (ok *Okx) PlaceOrder(ctx context.Context, arg *PlaceOrderRequestParam) (*OrderData, error) {
	if err := validatePlaceOrderParams(arg); err != nil {
		return nil, err
	}
	var resp []OrderData
	err := ok.SendHTTPRequest(ctx, http.MethodPost, "trade/order", arg, &resp, true)
	if len(resp) > 0 && resp[0].SCode != "" && resp[0].SCode != "0" {
		return nil, fmt.Errorf("%w: sCode %s %s", ErrOrderRejected, resp[0].SCode, resp[0].SMessage)
	}
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		return nil, fmt.Errorf("%w: place order", common.ErrNoResponse)
	}
	return &resp[0], nil
}

func validatePlaceOrderParams(arg *PlaceOrderRequestParam) error {
	if arg == nil || *arg == (PlaceOrderRequestParam{}) {
		return common.ErrNilPointer
	}
	if arg.InstrumentID == "" {
		return errMissingInstrumentID
	}
	arg.Side = strings.ToLower(arg.Side)
	if arg.Side != order.Buy.Lower() && arg.Side != order.Sell.Lower() {
		return fmt.Errorf("%w %s", order.ErrSideIsInvalid, arg.Side)
	}
	if arg.TradeMode != TradeModeCross &&
		arg.TradeMode != TradeModeIsolated &&
		arg.TradeMode != TradeModeCash {
		return fmt.Errorf("%w %s", errInvalidTradeModeValue, arg.TradeMode)
	}
	arg.OrderType = strings.ToLower(arg.OrderType)
	if arg.OrderType != order.Limit.Lower() && arg.OrderType != order.Market.Lower() {
		return fmt.Errorf("%w %s", order.ErrTypeIsInvalid, arg.OrderType)
	}
	if arg.OrderType == order.Limit.Lower() && arg.Price == "" {
		return order.ErrPriceMustBeSetIfLimitOrder
	}
	return nil
}

// SendHTTPRequest sends an authenticated or public request and decodes the
// data field of the response envelope into result
func (ok *Okx) SendHTTPRequest(ctx context.Context, httpMethod, requestPath string, data, result interface{}, authenticated bool) error {
	if reflect.ValueOf(result).Kind() != reflect.Pointer {
		return errInvalidResponseParam
	}
	if authenticated && (ok.credentials.Key == "" || ok.credentials.Secret == "" || ok.credentials.Passphrase == "") {
		return errMissingCredentials
	}
	resp := struct {
		Code types.Number `json:"code"`
		Msg  string       `json:"msg"`
		Data interface{}  `json:"data"`
	}{
		Data: result,
	}
	newRequest := func() (*request.Item, error) {
		payload := []byte("")
		if data != nil {
			var err error
			payload, err = json.Marshal(data)
			if err != nil {
				return nil, err
			}
		}
		headers := map[string]string{"Content-Type": "application/json"}
		if ok.demoTrading {
			headers["x-simulated-trading"] = "1"
		}
		if authenticated {
			utcTime := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
			sign, err := ok.sign(utcTime, httpMethod, "/"+okxAPIPath+requestPath, payload)
			if err != nil {
				return nil, err
			}
			headers["OK-ACCESS-KEY"] = ok.credentials.Key
			headers["OK-ACCESS-SIGN"] = sign
			headers["OK-ACCESS-TIMESTAMP"] = utcTime
			headers["OK-ACCESS-PASSPHRASE"] = ok.credentials.Passphrase
		}
		return &request.Item{
			Method:        strings.ToUpper(httpMethod),
			Path:          ok.apiURL + "/" + okxAPIPath + requestPath,
			Headers:       headers,
			Body:          bytes.NewBuffer(payload),
			Result:        &resp,
			Verbose:       ok.verbose,
			HTTPDebugging: ok.httpDebugging,
		}, nil
	}
	if err := ok.requester.SendPayload(ctx, newRequest); err != nil {
		return err
	}
	if resp.Code.Int64() != 0 {
		return fmt.Errorf("%w code: %d message: %s", ErrAPIResponse, resp.Code.Int64(), resp.Msg)
	}
	return nil
}

// sign returns the base64 HMAC-SHA256 signature of timestamp, method, path
// and body
func (ok *Okx) sign(timestamp, method, path string, body []byte) (string, error) {
	hmac, err := crypto.GetHMAC(crypto.HashSHA256,
		[]byte(timestamp+strings.ToUpper(method)+path+string(body)),
		[]byte(ok.credentials.Secret))
	if err != nil {
		return "", err
	}
	return crypto.Base64Encode(hmac), nil
}
