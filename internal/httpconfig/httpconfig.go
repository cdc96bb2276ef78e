// Package httpconfig builds the HTTP client that the relay uses to call backend nodes, applying the
// proxy and CA certificate options from the configuration.
package httpconfig

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/rpcrelay/rpc-relay/config"
	"github.com/rpcrelay/rpc-relay/internal/util"
	"github.com/rpcrelay/rpc-relay/relay/version"

	"github.com/launchdarkly/go-sdk-common/v3/ldlog"
	"github.com/launchdarkly/go-server-sdk/v7/ldhttp"
	"github.com/launchdarkly/go-server-sdk/v7/ldntlm"
)

// DefaultConnectTimeout is the TCP connection timeout for calls to backend nodes.
const DefaultConnectTimeout = 3 * time.Second

var (
	errProxyAuthWithoutProxyURL        = errors.New("cannot specify proxy authentication without a proxy URL")
	errNTLMProxyAuthWithoutCredentials = errors.New("NTLM proxy authentication requires username and password")
)

// HTTPConfig encapsulates ProxyConfig plus the client settings derived from it.
type HTTPConfig struct {
	config.ProxyConfig
	ProxyURL  *url.URL
	UserAgent string

	clientFactory func() *http.Client
}

// NewHTTPConfig validates all of the HTTP-related options and returns an HTTPConfig if successful.
func NewHTTPConfig(proxyConfig config.ProxyConfig, loggers ldlog.Loggers) (HTTPConfig, error) {
	ret := HTTPConfig{
		ProxyConfig: proxyConfig,
		UserAgent:   "RPCRelay/" + version.Version,
	}

	if !proxyConfig.URL.IsDefined() && proxyConfig.NTLMAuth {
		return ret, errProxyAuthWithoutProxyURL
	}
	if proxyConfig.URL.IsDefined() {
		loggers.Infof("Using proxy server at %s", util.RedactURL(proxyConfig.URL.String()))
		ret.ProxyURL = proxyConfig.URL.Get()
	}

	transportOpts := []ldhttp.TransportOption{
		ldhttp.ConnectTimeoutOption(DefaultConnectTimeout),
	}
	for _, filePath := range proxyConfig.CACertFiles.Values() {
		if filePath != "" {
			transportOpts = append(transportOpts, ldhttp.CACertFileOption(filePath))
		}
	}

	if proxyConfig.NTLMAuth {
		if proxyConfig.User == "" || proxyConfig.Password == "" {
			return ret, errNTLMProxyAuthWithoutCredentials
		}
		factory, err := ldntlm.NewNTLMProxyHTTPClientFactory(proxyConfig.URL.String(),
			proxyConfig.User, proxyConfig.Password, proxyConfig.Domain, transportOpts...)
		if err != nil {
			return ret, err
		}
		ret.clientFactory = factory
		loggers.Info("NTLM proxy authentication enabled")
		return ret, nil
	}

	if ret.ProxyURL != nil {
		transportOpts = append(transportOpts, ldhttp.ProxyOption(*ret.ProxyURL))
	}
	transport, _, err := ldhttp.NewHTTPTransport(transportOpts...)
	if err != nil {
		return ret, err
	}
	ret.clientFactory = func() *http.Client {
		return &http.Client{Transport: transport}
	}
	return ret, nil
}

// Client creates a new HTTP client instance. Timeouts for individual calls are controlled by the
// request context, so the client itself has none.
func (c HTTPConfig) Client() *http.Client {
	if c.clientFactory == nil {
		return http.DefaultClient
	}
	return c.clientFactory()
}
