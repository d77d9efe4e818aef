package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kidphoto/pkg/payment"
)

// Locker 内存锁，不处理过期
type Locker struct {
	mu   sync.Mutex
	held map[string]bool
	Err  error
}

// NewLocker 创建内存锁
func NewLocker() *Locker {
	return &Locker{held: make(map[string]bool)}
}

func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if l.Err != nil {
		return false, l.Err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *Locker) Release(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

// Hold 直接占用锁，模拟另一个请求正在创建
func (l *Locker) Hold(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held[key] = true
}

// CredentialCache 内存支付参数缓存
type CredentialCache struct {
	mu    sync.Mutex
	items map[string]payment.Credentials
}

// NewCredentialCache 创建内存缓存
func NewCredentialCache() *CredentialCache {
	return &CredentialCache{items: make(map[string]payment.Credentials)}
}

func (c *CredentialCache) Get(ctx context.Context, orderNo string) (*payment.Credentials, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	creds, ok := c.items[orderNo]
	if !ok {
		return nil, nil
	}
	return &creds, nil
}

func (c *CredentialCache) Set(ctx context.Context, orderNo string, creds *payment.Credentials, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[orderNo] = *creds
	return nil
}

// Gateway 模拟支付通道，记录下单请求
type Gateway struct {
	mu       sync.Mutex
	Requests []payment.PrepayRequest
	Err      error
	// VerifyErr 非空时回调验签失败
	VerifyErr error
}

func (g *Gateway) Prepay(ctx context.Context, req payment.PrepayRequest) (*payment.Credentials, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.Requests = append(g.Requests, req)
	return &payment.Credentials{
		AppID:     "wx-test",
		TimeStamp: "1700000000",
		NonceStr:  fmt.Sprintf("nonce%d", len(g.Requests)),
		Package:   fmt.Sprintf("prepay_id=%s-%d", req.OrderNo, len(g.Requests)),
		SignType:  "HMAC-SHA256",
		PaySign:   "sign",
	}, nil
}

func (g *Gateway) VerifyNotify(body []byte, timestamp, nonce, signature string) error {
	return g.VerifyErr
}

// PrepayCount 下单次数
func (g *Gateway) PrepayCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Requests)
}
