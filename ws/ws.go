/*
Package ws implements the websocket server side of the relay, using gobwas/ws.

因为我们先统一监听tcp 然后再对 accept到的连接调用 Handshake, 所以不能用
http.Handle 那一套; 这也彰显了用 gobwas/ws 包的好处, 它可以直接在
net.Conn 上完成升级.
*/
package ws

import (
	"encoding/base64"
	"strings"
)

// 2048 /3 = 682.6666 , 683 * 4 = 2732
const MaxEarlyDataLen_Base64 = 2732

// DecodeEarlyData 解码 Sec-WebSocket-Protocol 头部中携带的 earlydata.
//
// xray和v2ray 用该头部传输 earlydata 实现 0-rtt, 我们为了兼容同样用此字段.
// 内容是 url-safe 的 base64 ("-","_" 替代 "+","/"), 且一般不带 padding;
// 带了 padding 的也照样接受. 空字符串表示没有earlydata, 不是错误.
func DecodeEarlyData(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
