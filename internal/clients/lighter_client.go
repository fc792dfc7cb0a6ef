package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/txtally/internal/domain"
	"github.com/vadiminshakov/txtally/pkg/retrier"
)

const (
	// DefaultLighterBaseURL is the mainnet gateway.
	DefaultLighterBaseURL = "https://mainnet.zklighter.elliot.ai"
	// DefaultExplorerBaseURL serves the account log fallback.
	DefaultExplorerBaseURL = "https://explorer.elliot.ai"

	defaultPageLimit = 100
	defaultMaxPages  = 50
)

// BalanceHistoryEndpoints are probed best-effort for historical balance
// snapshots; none of them is guaranteed to exist.
var BalanceHistoryEndpoints = []string{
	"account/balanceHistory",
	"account/history",
	"balance/history",
}

// LighterClient talks to the Lighter REST gateway with a read-only
// token. Auth is passed as a query parameter because the history
// endpoints accept it that way, not in an Authorization header.
type LighterClient struct {
	baseURL         string
	explorerBaseURL string
	roToken         string
	accountIndex    int64
	marketID        int64
	httpClient      *http.Client
	retry           *retrier.Retrier
	logger          *zap.Logger
}

// NewLighterClient creates a client for one account on one market.
func NewLighterClient(baseURL, explorerBaseURL, roToken string, accountIndex, marketID int64, logger *zap.Logger) *LighterClient {
	if baseURL == "" {
		baseURL = DefaultLighterBaseURL
	}
	if explorerBaseURL == "" {
		explorerBaseURL = DefaultExplorerBaseURL
	}

	return &LighterClient{
		baseURL:         baseURL,
		explorerBaseURL: explorerBaseURL,
		roToken:         roToken,
		accountIndex:    accountIndex,
		marketID:        marketID,
		httpClient:      &http.Client{Timeout: 30 * time.Second},
		retry:           retrier.New(),
		logger:          logger,
	}
}

// AccountIndex returns the configured account index as a string, the
// form the trade records carry it in.
func (c *LighterClient) AccountIndex() string {
	return strconv.FormatInt(c.accountIndex, 10)
}

// AccountIndexValue returns the configured account index.
func (c *LighterClient) AccountIndexValue() int64 {
	return c.accountIndex
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func (c *LighterClient) get(ctx context.Context, path string, params url.Values) (map[string]any, error) {
	if params == nil {
		params = url.Values{}
	}
	if c.roToken != "" && params.Get("auth") == "" {
		params.Set("auth", c.roToken)
	}

	endpoint := fmt.Sprintf("%s/api/v1/%s?%s", c.baseURL, path, params.Encode())
	return c.getURL(ctx, path, endpoint)
}

func (c *LighterClient) getURL(ctx context.Context, path, endpoint string) (map[string]any, error) {
	return retrier.DoWithData(c.retry, ctx, func(ctx context.Context) (map[string]any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, retrier.Permanent(errors.Wrap(err, "build request"))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, errors.Wrapf(err, "GET %s", path)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s response", path)
		}

		if retryableStatus(resp.StatusCode) {
			c.logger.Warn("transient lighter error, will retry",
				zap.String("endpoint", path),
				zap.Int("status", resp.StatusCode))
			return nil, errors.Errorf("GET %s: HTTP %d", path, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, retrier.Permanent(errors.Errorf("GET %s: HTTP %d: %s", path, resp.StatusCode, truncate(string(body), 200)))
		}

		var out map[string]any
		if err := json.Unmarshal(body, &out); err != nil {
			// some endpoints return a bare array
			var arr []any
			if arrErr := json.Unmarshal(body, &arr); arrErr == nil {
				return map[string]any{"items": arr}, nil
			}
			return nil, retrier.Permanent(errors.Wrapf(err, "decode %s response", path))
		}

		return out, nil
	})
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// nextCursor extracts the pagination cursor, tolerating the key
// variants the gateway is known to emit.
func nextCursor(resp map[string]any) string {
	for _, k := range []string{"next_cursor", "nextCursor"} {
		if v, ok := resp[k].(string); ok && v != "" {
			return v
		}
	}
	switch v := resp["cursor"].(type) {
	case string:
		return v
	case map[string]any:
		for _, k := range []string{"next", "next_cursor", "nextCursor"} {
			if vv, ok := v[k].(string); ok && vv != "" {
				return vv
			}
		}
	}
	return ""
}

// extractItems pulls the record list out of a response, trying the
// named keys in order.
func extractItems(resp map[string]any, keys ...string) []domain.RawRecord {
	for _, k := range keys {
		list, ok := resp[k].([]any)
		if !ok {
			continue
		}
		out := make([]domain.RawRecord, 0, len(list))
		for _, it := range list {
			if m, ok := it.(map[string]any); ok {
				out = append(out, domain.RawRecord(m))
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// fetchPaged walks a cursor-paginated endpoint until the cursor stops
// advancing or maxPages is hit.
func (c *LighterClient) fetchPaged(ctx context.Context, path string, base url.Values, maxPages int, itemKeys ...string) ([]domain.RawRecord, error) {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	var rows []domain.RawRecord
	cursor := ""
	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		for k, vs := range base {
			for _, v := range vs {
				params.Add(k, v)
			}
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		resp, err := c.get(ctx, path, params)
		if err != nil {
			return rows, err
		}

		items := extractItems(resp, itemKeys...)
		if len(items) == 0 {
			break
		}
		rows = append(rows, items...)

		next := nextCursor(resp)
		if next == "" || next == cursor {
			break
		}
		cursor = next
	}

	c.logger.Debug("fetched lighter endpoint",
		zap.String("endpoint", path),
		zap.Int("records", len(rows)))

	return rows, nil
}

// FetchOrderBooks returns the raw order book listing used to build the
// market map.
func (c *LighterClient) FetchOrderBooks(ctx context.Context) (map[string]any, error) {
	params := url.Values{}
	params.Set("market_id", strconv.FormatInt(c.marketID, 10))
	params.Set("filter", "all")
	return c.get(ctx, "orderBooks", params)
}

// MarketMap builds market_id -> pair symbol from the order book
// listing, composing base-quote when no direct symbol field exists.
func (c *LighterClient) MarketMap(ctx context.Context) (map[int64]string, error) {
	resp, err := c.FetchOrderBooks(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fetch order books")
	}

	var candidates []domain.RawRecord
	if items := extractItems(resp, "order_books", "data", "items"); len(items) > 0 {
		candidates = items
	} else {
		candidates = []domain.RawRecord{domain.RawRecord(resp)}
	}

	pairMap := make(map[int64]string, len(candidates))
	for _, it := range candidates {
		mid, ok := it.Int("market_id", "marketId", "m", "id")
		if !ok {
			continue
		}

		if sym := it.Text("symbol", "pair", "name", "market", "ticker"); sym != "" {
			pairMap[mid] = sym
			continue
		}

		base := it.Text("base_symbol", "base", "baseAsset", "base_asset")
		quote := it.Text("quote_symbol", "quote", "quoteAsset", "quote_asset")
		if base != "" && quote != "" {
			pairMap[mid] = base + "-" + quote
		}
	}

	return pairMap, nil
}

// FetchTrades pages through /trades for the account, newest first.
// type "all" includes both regular trades and liquidations.
func (c *LighterClient) FetchTrades(ctx context.Context, maxPages int) ([]domain.RawRecord, error) {
	params := url.Values{}
	params.Set("sort_by", "timestamp")
	params.Set("sort_dir", "desc")
	params.Set("limit", strconv.Itoa(defaultPageLimit))
	params.Set("account_index", strconv.FormatInt(c.accountIndex, 10))
	params.Set("market_id", strconv.FormatInt(c.marketID, 10))
	params.Set("type", "all")
	params.Set("role", "all")

	return c.fetchPaged(ctx, "trades", params, maxPages, "trades", "data", "items", "results")
}

// FetchTransferHistory pages through /transfer/history.
func (c *LighterClient) FetchTransferHistory(ctx context.Context, maxPages int) ([]domain.RawRecord, error) {
	params := url.Values{}
	params.Set("account_index", strconv.FormatInt(c.accountIndex, 10))

	return c.fetchPaged(ctx, "transfer/history", params, maxPages, "transfers", "data", "items", "results")
}

// FetchWithdrawHistory pages through /withdraw/history.
func (c *LighterClient) FetchWithdrawHistory(ctx context.Context, maxPages int) ([]domain.RawRecord, error) {
	params := url.Values{}
	params.Set("account_index", strconv.FormatInt(c.accountIndex, 10))
	params.Set("filter", "all")

	return c.fetchPaged(ctx, "withdraw/history", params, maxPages, "withdraws", "withdrawals", "data", "items", "results")
}

// FetchDepositHistory pages through /deposit/history. The endpoint
// requires the account's L1 address.
func (c *LighterClient) FetchDepositHistory(ctx context.Context, l1Address string, maxPages int) ([]domain.RawRecord, error) {
	params := url.Values{}
	params.Set("account_index", strconv.FormatInt(c.accountIndex, 10))
	params.Set("l1_address", l1Address)
	params.Set("filter", "all")

	return c.fetchPaged(ctx, "deposit/history", params, maxPages, "deposits", "data", "items", "results")
}

// FetchL1Metadata fetches /l1Metadata, the fallback source of L1
// transfer events when the dedicated history endpoints return nothing.
func (c *LighterClient) FetchL1Metadata(ctx context.Context, l1Address string) ([]domain.RawRecord, error) {
	params := url.Values{}
	params.Set("account_index", strconv.FormatInt(c.accountIndex, 10))
	if l1Address != "" {
		params.Set("l1_address", l1Address)
	}

	resp, err := c.get(ctx, "l1Metadata", params)
	if err != nil {
		return nil, err
	}
	return extractItems(resp, "items", "data", "results"), nil
}

// FetchAccount fetches the raw account object for the configured index.
func (c *LighterClient) FetchAccount(ctx context.Context) (domain.RawRecord, error) {
	params := url.Values{}
	params.Set("by", "index")
	params.Set("value", strconv.FormatInt(c.accountIndex, 10))

	resp, err := c.get(ctx, "account", params)
	if err != nil {
		return nil, err
	}
	return domain.RawRecord(resp), nil
}

// FetchBalanceHistory pages through one of the candidate historical
// balance endpoints. Callers treat failures as best-effort misses.
func (c *LighterClient) FetchBalanceHistory(ctx context.Context, path string, maxPages int) ([]domain.RawRecord, error) {
	params := url.Values{}
	params.Set("account_index", strconv.FormatInt(c.accountIndex, 10))

	return c.fetchPaged(ctx, path, params, maxPages, "data", "items", "results", "history", "balances")
}

// FetchExplorerLogs walks the explorer's account log listing with
// offset pagination. The param is the account index or the L1 address;
// the endpoint takes no auth.
func (c *LighterClient) FetchExplorerLogs(ctx context.Context, param string, maxPages int) ([]domain.RawRecord, error) {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}

	var rows []domain.RawRecord
	offset := 0
	for page := 0; page < maxPages; page++ {
		params := url.Values{}
		if offset > 0 {
			params.Set("offset", strconv.Itoa(offset))
		}

		path := fmt.Sprintf("accounts/%s/logs", param)
		endpoint := fmt.Sprintf("%s/api/%s?%s", c.explorerBaseURL, path, params.Encode())

		resp, err := c.getURL(ctx, path, endpoint)
		if err != nil {
			return rows, err
		}

		items := extractItems(resp, "items", "data", "results", "logs")
		if len(items) == 0 {
			break
		}
		rows = append(rows, items...)

		if len(items) < defaultPageLimit {
			break
		}
		offset += len(items)
	}

	c.logger.Debug("fetched explorer logs",
		zap.String("param", param),
		zap.Int("records", len(rows)))

	return rows, nil
}

// L1Address resolves the account's L1 address from the account
// endpoint, tolerating the field name variants the API has used.
func (c *LighterClient) L1Address(ctx context.Context) (string, error) {
	acc, err := c.FetchAccount(ctx)
	if err != nil {
		return "", errors.Wrap(err, "fetch account")
	}
	if addr := ExtractL1Address(acc); addr != "" {
		return addr, nil
	}
	return "", errors.New("account response carries no l1 address")
}

// ExtractL1Address digs the L1 address out of a raw account object,
// tolerating the field name variants the API has used.
func ExtractL1Address(acc domain.RawRecord) string {
	candidates := []domain.RawRecord{acc}
	if child, ok := acc.Child("data"); ok {
		candidates = append(candidates, child)
	}
	if child, ok := acc.Child("account"); ok {
		candidates = append(candidates, child)
	}
	if accs, ok := acc["accounts"].([]any); ok {
		for _, a := range accs {
			if m, ok := a.(map[string]any); ok {
				candidates = append(candidates, domain.RawRecord(m))
			}
		}
	}

	for _, obj := range candidates {
		addr := obj.Text("l1_address", "l1Address", "owner", "owner_address", "eth_address", "ethAddress", "address")
		if len(addr) >= 10 && addr[:2] == "0x" {
			return addr
		}
	}

	return ""
}
