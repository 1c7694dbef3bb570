// Package network provides the shared outbound HTTP client used by the
// classifier capability, optionally routed through a SOCKS5 proxy for
// deployments that require it.
package network

import (
	"claudir/sources/configuration"
	"claudir/sources/tracing"

	"golang.org/x/net/proxy"
)

// NewDialer returns proxy.Direct when no proxy URL is configured, or a
// SOCKS5 dialer built from configuration.ProxyConfig otherwise. Grounded
// on sources/network/dealer.go's NewProxyDialer.
func NewDialer(cfg *configuration.Config, log *tracing.Logger) (proxy.Dialer, error) {
	if cfg.Proxy.URL == "" {
		return proxy.Direct, nil
	}

	var auth *proxy.Auth
	if cfg.Proxy.User != "" {
		auth = &proxy.Auth{User: cfg.Proxy.User, Password: cfg.Proxy.Password}
	}

	dialer, err := proxy.SOCKS5("tcp", cfg.Proxy.URL, auth, proxy.Direct)
	if err != nil {
		log.E("failed to create proxy dialer", tracing.InnerError, err, tracing.ProxyUrl, cfg.Proxy.URL)
		return nil, err
	}

	log.I("proxy dialer configured", tracing.ProxyUrl, cfg.Proxy.URL)
	return dialer, nil
}
