// Package storage resolves object keys in a hosted storage bucket into
// public HTTPS URLs.
package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// Resolver builds public URLs for objects in a single bucket.
type Resolver struct {
	baseURL string
	bucket  string
}

// NewResolver validates the base URL and returns a Resolver for bucket.
func NewResolver(baseURL, bucket string) (*Resolver, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse storage base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("storage base URL %q must be absolute", baseURL)
	}
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	return &Resolver{baseURL: strings.TrimRight(baseURL, "/"), bucket: bucket}, nil
}

// ResolvePublicURL returns the public object URL for key.
func (r *Resolver) ResolvePublicURL(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("storage key is required")
	}
	return url.JoinPath(r.baseURL, "storage/v1/object/public", r.bucket, key)
}
