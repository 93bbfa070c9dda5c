package authinfra

import (
	"context"

	"github.com/vibevault/userservice/pkg/iam/auth"
	"github.com/vibevault/userservice/pkg/kernel"
)

const (
	defaultClientIP  = "0.0.0.0"
	defaultUserAgent = "Unknown"
)

// ContextClientInfo implements auth.ClientInfoProvider by reading the client
// metadata the transport layer stored in the request context. Outside a
// request context it falls back to the defaults.
type ContextClientInfo struct{}

func NewContextClientInfo() auth.ClientInfoProvider {
	return ContextClientInfo{}
}

func (ContextClientInfo) ClientIP(ctx context.Context) string {
	if info, ok := kernel.ClientInfoFromContext(ctx); ok && info.IPAddress != "" {
		return info.IPAddress
	}
	return defaultClientIP
}

func (ContextClientInfo) UserAgent(ctx context.Context) string {
	if info, ok := kernel.ClientInfoFromContext(ctx); ok && info.UserAgent != "" {
		return info.UserAgent
	}
	return defaultUserAgent
}
