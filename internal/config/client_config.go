package config

import (
	"strconv"
	"time"
)

const (
	ConnectPolicyOnce   = "once"
	ConnectPolicyAlways = "always"
)

type Client struct{}

var _ ClientConfig = Client{}

// GetConnectPolicy returns "always" (handshake before every call) or "once".
func (Client) GetConnectPolicy() string {
	return GetEnv("CONNECT_POLICY", ConnectPolicyAlways)
}

func (Client) GetServicePath() string {
	return GetEnv("SERVICE_PATH", "/services/json")
}

func (Client) GetUploadPath() string {
	return GetEnv("UPLOAD_PATH", "/dandy/fileupload/")
}

func (Client) GetRequestTimeout() time.Duration {
	if d, err := time.ParseDuration(GetEnv("REQUEST_TIMEOUT", "")); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// GetRateLimit returns the client side requests-per-second limit. Zero disables limiting.
func (Client) GetRateLimit() float64 {
	if v, err := strconv.ParseFloat(GetEnv("RATE_LIMIT", ""), 64); err == nil && v > 0 {
		return v
	}
	return 0
}

func (Client) GetRateBurst() int {
	if v, err := strconv.Atoi(GetEnv("RATE_BURST", "")); err == nil && v > 0 {
		return v
	}
	return 1
}
