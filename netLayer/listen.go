package netLayer

import (
	"net"

	"github.com/pires/go-proxyproto"
)

// Listen 在addr上监听tcp. usePROXYprotocol 开启时会把 listener 包一层
// proxy protocol 解析, 用于部署在 haproxy/nginx 等负载均衡后面时
// 还原真实的客户端地址.
//
// Reference: http://www.haproxy.org/download/1.8/doc/proxy-protocol.txt
func Listen(addr string, usePROXYprotocol bool) (net.Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	if usePROXYprotocol {
		return &proxyproto.Listener{
			Listener: listener,
			Policy: func(upstream net.Addr) (proxyproto.Policy, error) {
				return proxyproto.REQUIRE, nil
			},
		}, nil
	}
	return listener, nil
}
