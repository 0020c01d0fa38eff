package proxy

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/net/proxy"
)

// Clients returns an HTTP client and a websocket dialer that both go
// through the given SOCKS5 proxy. An empty address yields direct ones.
func Clients(socksAddr string) (*http.Client, *websocket.Dialer, error) {
	if socksAddr == "" {
		return &http.Client{Timeout: 30 * time.Second}, websocket.DefaultDialer, nil
	}

	dial, err := dialContext(socksAddr)
	if err != nil {
		return nil, nil, err
	}

	httpClient := &http.Client{
		Transport: &http.Transport{DialContext: dial},
		Timeout:   120 * time.Second,
	}

	wsDialer := &websocket.Dialer{
		NetDialContext:   dial,
		HandshakeTimeout: 45 * time.Second,
	}

	return httpClient, wsDialer, nil
}

func dialContext(socksAddr string) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}

	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}
