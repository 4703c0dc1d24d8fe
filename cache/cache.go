// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Datadog (https://www.datadoghq.com/).
// Copyright 2016-present Datadog, Inc.

// Package cache memoises slow lookups (DNS, reverse DNS, public IP) for the
// lifetime of the process
package cache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	defaultExpire = 5 * time.Minute
	defaultPurge  = 30 * time.Second
)

// Namespace prefixes keys so unrelated lookups never collide
type Namespace string

const (
	NamespaceDNS        Namespace = "dns"
	NamespaceReverseDNS Namespace = "rdns"
	NamespacePublicIP   Namespace = "public_ip"
)

// Key returns the cache key of id within the namespace
func (n Namespace) Key(id string) string {
	if id == "" {
		return string(n)
	}
	return string(n) + ":" + id
}

// Cache provides an in-memory key:value store similar to memcached
var Cache = cache.New(defaultExpire, defaultPurge)

// Get returns the value for 'key', calling 'cb' on a miss. Successful results
// are cached with no expiration; errors are never cached.
func Get[T any](key string, cb func() (T, error)) (T, error) {
	return GetWithExpiration[T](key, cb, cache.NoExpiration)
}

// GetWithExpiration is Get with an explicit lifetime for the cached value.
func GetWithExpiration[T any](key string, cb func() (T, error), expire time.Duration) (T, error) {
	if x, found := Cache.Get(key); found {
		if v, ok := x.(T); ok {
			return v, nil
		}
	}

	res, err := cb()
	if err == nil {
		Cache.Set(key, res, expire)
	}
	return res, err
}

// Forget drops key so the next Get calls its callback again
func Forget(key string) {
	Cache.Delete(key)
}
