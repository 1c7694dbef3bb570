package network

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"time"

	"claudir/sources/tracing"

	"golang.org/x/net/proxy"
)

// Client wraps the shared *http.Client handed to the classifier's HTTP
// calls (the conversational backend is a subprocess and does not use it).
type Client struct {
	HTTP *http.Client
}

// NewClient builds an http.Client dialing through dialer. Grounded on
// sources/network/client.go's NewProxyClient; dialer is proxy.Direct
// when no proxy is configured, so the Transport's DialContext is always
// exercised, not conditionally skipped.
func NewClient(dialer proxy.Dialer, log *tracing.Logger) *Client {
	dial := func(ctx context.Context, network, address string) (net.Conn, error) {
		return dialer.Dial(network, address)
	}

	return &Client{
		HTTP: &http.Client{
			Timeout: 2 * time.Minute,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           dial,
				MaxIdleConns:          20,
				IdleConnTimeout:       10 * time.Minute,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 5 * time.Second,
				MaxIdleConnsPerHost:   runtime.GOMAXPROCS(0) + 1,
				OnProxyConnectResponse: func(ctx context.Context, proxyURL *url.URL, connectReq *http.Request, connectRes *http.Response) error {
					log.I("connected to proxy", tracing.ProxyUrl, proxyURL.String(), tracing.ProxyRes, connectRes.Status)
					return nil
				},
			},
		},
	}
}
