// Package httpLayer provides the disguise responses served to plain http
// traffic that failed the websocket upgrade, so that active probing sees
// an ordinary nginx site instead of a relay.
package httpLayer

import "fmt"

// 回落类型, 对应配置文件中 listen.fallback 的值.
const (
	Fallback_404 = iota
	Fallback_400
	Fallback_403
)

// RequestErr 表示一个 到达了监听端口 但不是合法websocket升级请求 的 http请求.
// 拿到此错误的调用方 应 回写伪装页面 然后关闭连接.
type RequestErr struct {
	Path string
}

func (e *RequestErr) Error() string {
	return fmt.Sprintf("invalid request, path: %s", e.Path)
}
