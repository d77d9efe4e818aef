package cache

import (
	"context"
	"encoding/json"
	"time"

	"kidphoto/pkg/payment"

	"github.com/redis/go-redis/v9"
)

const credentialKeyPrefix = "payment:credentials:"

// Locker 基于 SETNX 的短时互斥锁
type Locker struct {
	redisClient *redis.Client
}

// NewLocker 创建锁
func NewLocker(redisClient *redis.Client) *Locker {
	return &Locker{redisClient: redisClient}
}

// Acquire 尝试加锁，已被占用时返回 false
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return l.redisClient.SetNX(ctx, key, "1", ttl).Result()
}

// Release 释放锁
func (l *Locker) Release(ctx context.Context, key string) error {
	return l.redisClient.Del(ctx, key).Err()
}

// CredentialCache 支付参数缓存，同一订单重复拉起支付时复用 prepay_id
type CredentialCache struct {
	redisClient *redis.Client
}

// NewCredentialCache 创建支付参数缓存
func NewCredentialCache(redisClient *redis.Client) *CredentialCache {
	return &CredentialCache{redisClient: redisClient}
}

// Get 读取缓存，未命中返回 nil, nil
func (c *CredentialCache) Get(ctx context.Context, orderNo string) (*payment.Credentials, error) {
	data, err := c.redisClient.Get(ctx, credentialKeyPrefix+orderNo).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var creds payment.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Set 写入缓存
func (c *CredentialCache) Set(ctx context.Context, orderNo string, creds *payment.Credentials, ttl time.Duration) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return c.redisClient.Set(ctx, credentialKeyPrefix+orderNo, data, ttl).Err()
}
