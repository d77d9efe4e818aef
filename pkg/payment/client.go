package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kidphoto/pkg/logger"

	"github.com/google/uuid"
)

const (
	prepayPath = "/v3/pay/transactions/jsapi"
	signType   = "HMAC-SHA256"

	// TradeStateSuccess 支付成功
	TradeStateSuccess = "SUCCESS"
)

// 回调请求头
const (
	HeaderTimestamp = "Wechatpay-Timestamp"
	HeaderNonce     = "Wechatpay-Nonce"
	HeaderSignature = "Wechatpay-Signature"
)

// ErrInvalidSignature 回调签名校验失败
var ErrInvalidSignature = errors.New("payment: invalid notify signature")

// Config 支付通道配置
type Config struct {
	Endpoint  string
	AppID     string
	MchID     string
	APIKey    string
	NotifyURL string
	Timeout   time.Duration
}

// PrepayRequest 下单请求
type PrepayRequest struct {
	OrderNo     string
	Description string
	AmountFen   int64
	PayerID     string
}

// Credentials 前端拉起支付所需参数，调用方原样透传
type Credentials struct {
	AppID     string `json:"appId"`
	TimeStamp string `json:"timeStamp"`
	NonceStr  string `json:"nonceStr"`
	Package   string `json:"package"`
	SignType  string `json:"signType"`
	PaySign   string `json:"paySign"`
}

// Notification 支付结果回调内容
type Notification struct {
	OutTradeNo    string `json:"out_trade_no"`
	TransactionID string `json:"transaction_id"`
	TradeState    string `json:"trade_state"`
	Amount        struct {
		Total int64 `json:"total"`
	} `json:"amount"`
}

// Client 支付网关客户端
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *logger.Logger
	now        func() time.Time
}

// NewClient 创建支付网关客户端
func NewClient(cfg Config, logger *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		now:        time.Now,
	}
}

type prepayBody struct {
	AppID       string `json:"appid"`
	MchID       string `json:"mchid"`
	Description string `json:"description"`
	OutTradeNo  string `json:"out_trade_no"`
	NotifyURL   string `json:"notify_url"`
	Amount      struct {
		Total    int64  `json:"total"`
		Currency string `json:"currency"`
	} `json:"amount"`
	Payer struct {
		OpenID string `json:"openid,omitempty"`
	} `json:"payer"`
}

// Prepay 向支付网关下单并生成前端支付参数
func (c *Client) Prepay(ctx context.Context, req PrepayRequest) (*Credentials, error) {
	body := prepayBody{
		AppID:       c.cfg.AppID,
		MchID:       c.cfg.MchID,
		Description: req.Description,
		OutTradeNo:  req.OrderNo,
		NotifyURL:   c.cfg.NotifyURL,
	}
	body.Amount.Total = req.AmountFen
	body.Amount.Currency = "CNY"
	body.Payer.OpenID = req.PayerID

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("序列化下单请求失败: %w", err)
	}

	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	nonce := nonceStr()
	signature := Sign(c.cfg.APIKey, http.MethodPost, prepayPath, timestamp, nonce, string(payload))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.Endpoint, "/")+prepayPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("创建下单请求失败: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf(`%s mchid="%s",nonce_str="%s",timestamp="%s",signature="%s"`,
		signType, c.cfg.MchID, nonce, timestamp, signature))

	c.logger.Debug("支付下单请求", "order_no", req.OrderNo, "amount", req.AmountFen)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("支付网关请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取支付网关响应失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Error("支付网关响应异常", "status_code", resp.StatusCode, "body", string(respBody))
		return nil, fmt.Errorf("支付网关响应异常: %d", resp.StatusCode)
	}

	var result struct {
		PrepayID string `json:"prepay_id"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("解析支付网关响应失败: %w", err)
	}
	if result.PrepayID == "" {
		return nil, fmt.Errorf("支付网关未返回 prepay_id")
	}

	creds := &Credentials{
		AppID:     c.cfg.AppID,
		TimeStamp: strconv.FormatInt(c.now().Unix(), 10),
		NonceStr:  nonceStr(),
		Package:   "prepay_id=" + result.PrepayID,
		SignType:  signType,
	}
	creds.PaySign = Sign(c.cfg.APIKey, creds.AppID, creds.TimeStamp, creds.NonceStr, creds.Package)
	return creds, nil
}

// VerifyNotify 校验回调签名
func (c *Client) VerifyNotify(body []byte, timestamp, nonce, signature string) error {
	expected := Sign(c.cfg.APIKey, timestamp, nonce, string(body))
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return ErrInvalidSignature
	}
	return nil
}

// ParseNotify 解析回调内容
func ParseNotify(body []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("解析支付回调失败: %w", err)
	}
	if n.OutTradeNo == "" {
		return nil, fmt.Errorf("支付回调缺少 out_trade_no")
	}
	return &n, nil
}

// Sign 计算 HMAC-SHA256 签名，各部分以换行结尾
func Sign(key string, parts ...string) string {
	mac := hmac.New(sha256.New, []byte(key))
	for _, p := range parts {
		mac.Write([]byte(p))
		mac.Write([]byte("\n"))
	}
	return hex.EncodeToString(mac.Sum(nil))
}

func nonceStr() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
