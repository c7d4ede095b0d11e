package execclient

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/polystrat/strategy-core/pkg/wallet"
)

const clobBaseURL = "https://clob.polymarket.com"

// LiveClient wraps go-order-utils order signing, go-ethereum address
// derivation, and HMAC-signed CLOB HTTP calls into the Client contract.
type LiveClient struct {
	apiKey        string
	secret        string
	passphrase    string
	privateKey    *ecdsa.PrivateKey
	address       string
	proxyAddress  string
	signatureType model.SignatureType
	orderBuilder  builder.ExchangeOrderBuilder

	wallet *wallet.Client

	httpClient *http.Client
	logger     *zap.Logger
}

// LiveClientConfig configures a LiveClient.
type LiveClientConfig struct {
	APIKey        string
	Secret        string
	Passphrase    string
	PrivateKey    string
	ProxyAddress  string
	SignatureType int
	RPCURL        string
	Logger        *zap.Logger
}

// NewLiveClient builds a LiveClient, deriving the EOA signer address from
// PrivateKey when an explicit address isn't set on the proxy.
func NewLiveClient(cfg LiveClientConfig) (*LiveClient, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("derive public key: unexpected key type")
	}
	address := crypto.PubkeyToAddress(*publicKeyECDSA).Hex()

	w, err := wallet.NewClient(cfg.RPCURL, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("build wallet client: %w", err)
	}

	chainID := big.NewInt(137) // Polygon mainnet
	orderBuilder := builder.NewExchangeOrderBuilderImpl(chainID, nil)

	return &LiveClient{
		apiKey:        cfg.APIKey,
		secret:        cfg.Secret,
		passphrase:    cfg.Passphrase,
		privateKey:    privateKey,
		address:       address,
		proxyAddress:  cfg.ProxyAddress,
		signatureType: model.SignatureType(cfg.SignatureType),
		orderBuilder:  orderBuilder,
		wallet:        w,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        cfg.Logger,
	}, nil
}

func (c *LiveClient) makerAddress() string {
	if c.proxyAddress != "" {
		return c.proxyAddress
	}
	return c.address
}

// CreateOrder builds, signs, and submits a single GTC order. price and size
// are assumed already rounded to the market's tick size by the caller
// (internal/ordergate, internal/strategy); this layer rounds size to 2
// decimals and the USD notional to 4, the CLOB's fixed amount precisions.
func (c *LiveClient) CreateOrder(ctx context.Context, token string, side Side, price, size float64, negRisk bool) error {
	const sizePrecision, amountPrecision = 2, 4

	takerTokens := roundAmount(size, sizePrecision)
	makerUSD := roundAmount(takerTokens*price, amountPrecision)

	makerAmount := usdToRawAmount(makerUSD)
	takerAmount := usdToRawAmount(takerTokens)
	modelSide := model.BUY
	if side == Sell {
		modelSide = model.SELL
		// Selling outcome tokens: maker/taker amounts swap roles.
		makerAmount = usdToRawAmount(takerTokens)
		takerAmount = usdToRawAmount(makerUSD)
	}

	exchange := model.CTFExchange
	if negRisk {
		exchange = model.NegRiskCTFExchange
	}

	orderData := &model.OrderData{
		Maker:         c.makerAddress(),
		Taker:         "0x0000000000000000000000000000000000000000",
		TokenId:       token,
		MakerAmount:   makerAmount,
		TakerAmount:   takerAmount,
		Side:          modelSide,
		FeeRateBps:    "0",
		Nonce:         "0",
		Signer:        c.address,
		Expiration:    "0",
		SignatureType: c.signatureType,
	}

	signed, err := c.orderBuilder.BuildSignedOrder(c.privateKey, orderData, exchange)
	if err != nil {
		return fmt.Errorf("build order: %w", err)
	}

	return c.submitOrder(ctx, signed, side, token)
}

func (c *LiveClient) submitOrder(ctx context.Context, order *model.SignedOrder, side Side, token string) error {
	reqBody, err := json.Marshal(orderSubmissionRequest{
		Order:     toOrderJSON(order),
		Owner:     c.apiKey,
		OrderType: "GTC",
	})
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}

	resp, err := c.signedRequest(ctx, http.MethodPost, "/order", reqBody)
	if err != nil {
		return &OrderError{Code: "request_failed", Message: err.Error(), Token: token, Side: side}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &OrderError{Code: strconv.Itoa(resp.StatusCode), Message: string(body), Token: token, Side: side}
	}

	return nil
}

// CancelAllAsset cancels every resting order for a single outcome token.
func (c *LiveClient) CancelAllAsset(ctx context.Context, token string) error {
	body, _ := json.Marshal(map[string]string{"asset_id": token})
	resp, err := c.signedRequest(ctx, http.MethodDelete, "/orders", body)
	if err != nil {
		return fmt.Errorf("cancel all asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("cancel all asset: status %d: %s", resp.StatusCode, string(b))
	}

	return nil
}

// CancelAllMarket cancels every resting order across a market's outcomes.
func (c *LiveClient) CancelAllMarket(ctx context.Context, marketID string) error {
	body, _ := json.Marshal(map[string]string{"market": marketID})
	resp, err := c.signedRequest(ctx, http.MethodDelete, "/orders", body)
	if err != nil {
		return fmt.Errorf("cancel all market: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("cancel all market: status %d: %s", resp.StatusCode, string(b))
	}

	return nil
}

// positionResponse is the subset of the Data API position payload consumed
// here; the scaled size is authoritative from the exchange's point of view,
// raw micro-units are derived to satisfy the scaled == raw/1e6 invariant.
type positionResponse struct {
	Size     float64 `json:"size"`
	AvgPrice float64 `json:"avgPrice"`
}

// GetPosition queries the Data API for the current position on token.
func (c *LiveClient) GetPosition(ctx context.Context, token string) (raw int64, scaled float64, avgPrice float64, err error) {
	url := fmt.Sprintf("%s/positions?user=%s&asset=%s", "https://data-api.polymarket.com", c.makerAddress(), token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("build position request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("fetch position: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, 0, nil
	}

	var positions []positionResponse
	if err := json.NewDecoder(resp.Body).Decode(&positions); err != nil {
		return 0, 0, 0, fmt.Errorf("decode position: %w", err)
	}
	if len(positions) == 0 {
		return 0, 0, 0, nil
	}

	p := positions[0]
	return int64(p.Size * 1e6), p.Size, p.AvgPrice, nil
}

// GetUSDCBalance reads the on-chain USDC balance for the maker address.
func (c *LiveClient) GetUSDCBalance(ctx context.Context) (float64, error) {
	balances, err := c.wallet.GetBalances(ctx, common.HexToAddress(c.makerAddress()))
	if err != nil {
		return 0, fmt.Errorf("get balances: %w", err)
	}

	usdc := new(big.Float).SetInt(balances.USDC)
	usdc.Quo(usdc, big.NewFloat(1e6))
	f, _ := usdc.Float64()

	return f, nil
}

// MergePositions submits a merge (redeem matching outcome tokens for USDC)
// request to the CLOB.
func (c *LiveClient) MergePositions(ctx context.Context, raw int64, marketID string, negRisk bool) error {
	body, err := json.Marshal(map[string]any{
		"market_id": marketID,
		"amount":    strconv.FormatInt(raw, 10),
		"neg_risk":  negRisk,
	})
	if err != nil {
		return fmt.Errorf("marshal merge request: %w", err)
	}

	resp, err := c.signedRequest(ctx, http.MethodPost, "/merge", body)
	if err != nil {
		return fmt.Errorf("merge positions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPaymentRequired {
		return ErrInsufficientBalance
	}
	if resp.StatusCode >= http.StatusBadRequest {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("merge positions: status %d: %s", resp.StatusCode, string(b))
	}

	return nil
}

// signedRequest signs body with the CLOB HMAC scheme and issues the request.
func (c *LiveClient) signedRequest(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signaturePayload := timestamp + method + path + string(body)

	secretBytes, err := base64.URLEncoding.DecodeString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("decode secret: %w", err)
	}

	h := hmac.New(sha256.New, secretBytes)
	h.Write([]byte(signaturePayload))
	signature := base64.URLEncoding.EncodeToString(h.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, method, clobBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("POLY_API_KEY", c.apiKey)
	req.Header.Set("POLY_SIGNATURE", signature)
	req.Header.Set("POLY_TIMESTAMP", timestamp)
	req.Header.Set("POLY_PASSPHRASE", c.passphrase)
	req.Header.Set("POLY_ADDRESS", c.address)

	return c.httpClient.Do(req)
}

type orderSubmissionRequest struct {
	Order     orderJSON `json:"order"`
	Owner     string    `json:"owner"`
	OrderType string    `json:"orderType"`
}

type orderJSON struct {
	Salt          int64  `json:"salt"`
	Maker         string `json:"maker"`
	Signer        string `json:"signer"`
	Taker         string `json:"taker"`
	TokenID       string `json:"tokenId"`
	MakerAmount   string `json:"makerAmount"`
	TakerAmount   string `json:"takerAmount"`
	Side          string `json:"side"`
	Expiration    string `json:"expiration"`
	Nonce         string `json:"nonce"`
	FeeRateBps    string `json:"feeRateBps"`
	SignatureType int    `json:"signatureType"`
	Signature     string `json:"signature"`
}

func toOrderJSON(order *model.SignedOrder) orderJSON {
	sideStr := "BUY"
	if order.Side.Uint64() == uint64(model.SELL) {
		sideStr = "SELL"
	}

	return orderJSON{
		Salt:          order.Salt.Int64(),
		Maker:         order.Maker.Hex(),
		Signer:        order.Signer.Hex(),
		Taker:         order.Taker.Hex(),
		TokenID:       order.TokenId.String(),
		MakerAmount:   order.MakerAmount.String(),
		TakerAmount:   order.TakerAmount.String(),
		Side:          sideStr,
		Expiration:    order.Expiration.String(),
		Nonce:         order.Nonce.String(),
		FeeRateBps:    order.FeeRateBps.String(),
		SignatureType: int(order.SignatureType.Int64()),
		Signature:     "0x" + common.Bytes2Hex(order.Signature),
	}
}

func roundAmount(value float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(value*multiplier) / multiplier
}

func usdToRawAmount(usd float64) string {
	return strconv.FormatInt(int64(usd*1e6), 10)
}

var _ Client = (*LiveClient)(nil)
