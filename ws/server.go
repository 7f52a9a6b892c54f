package ws

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/e1732a364fed/vlessws/httpLayer"
	"github.com/e1732a364fed/vlessws/utils"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"
)

// 请求头超过这个长度 就不可能是正常客户端了.
const maxRequestHeadLen = 8192

type Server struct {
	Thepath      string
	UseEarlyData bool
}

// 这里默认: 传入的path必须 以 "/" 为前缀. 本函数 不对此进行任何检查.
func NewServer(path string, useEarlyData bool) *Server {
	return &Server{
		Thepath:      path,
		UseEarlyData: useEarlyData,
	}
}

// Handshake 在一个刚accept到的连接上 建立websocket握手,
// 返回可直接用于读写 websocket 二进制数据的 net.Conn.
//
// path不对 或者 根本不是升级请求时, 返回 *httpLayer.RequestErr,
// 调用方据此回写伪装页面.
func (s *Server) Handshake(underlay net.Conn) (net.Conn, error) {

	//先把整个请求头读进来 自行确认 确实是对我们path的websocket升级请求,
	// 然后再把读到的字节 连同连接 一起交给 upgrader 重放.
	// 不能直接用 upgrader 过滤: 它对非法请求会自己向连接写错误响应,
	// 伪装页面前面就会多出一截, 这会被探测到的.
	head, err := readRequestHead(underlay)
	if err != nil {
		return nil, err
	}

	req, err := http.ReadRequest(bufio.NewReader(bytes.NewReader(head)))
	if err != nil {
		return nil, &httpLayer.RequestErr{}
	}

	if req.Method != http.MethodGet || req.URL.Path != s.Thepath ||
		!strings.EqualFold(req.Header.Get("Upgrade"), "websocket") {

		if ce := utils.CanLogWarn("not a ws upgrade request to our path"); ce != nil {
			ce.Write(
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
			)
		}
		return nil, &httpLayer.RequestErr{Path: req.URL.Path}
	}

	earlyDataRejected := false
	var thePotentialEarlyData []byte

	theUpgrader := &ws.Upgrader{}

	if s.UseEarlyData {

		//xray和v2ray 用 Sec-WebSocket-Protocol 头部传输 earlydata
		// 实现 0-rtt, 我们为了兼容同样用此字段.
		//我们若提供了此函数，则必须返回true，否则 gobwas会返回 ErrMalformedRequest 错误.
		// 因为是earlydata，内容全部是base64, 没有逗号, 直接整个解码即可,
		// 不需要 httphead.ScanTokens 的逗号分隔扫描.
		theUpgrader.ProtocolCustom = func(b []byte) (string, bool) {

			if len(b) > MaxEarlyDataLen_Base64 {
				return "", true
			}
			bs, err := DecodeEarlyData(string(b))
			if err != nil {
				//传来的并不是base64数据, 认为是非法的, 断开该session
				earlyDataRejected = true
				return "", false
			}
			thePotentialEarlyData = bs
			return "", true
		}
	}

	rw := utils.RW{Reader: io.MultiReader(bytes.NewReader(head), underlay), Writer: underlay}

	if _, err := theUpgrader.Upgrade(rw); err != nil {
		if earlyDataRejected {
			return nil, utils.ErrInErr{ErrDesc: "invalid early data", ErrDetail: err}
		}
		//头部已经验证过了还握手失败, 说明细节字段(key,version等)不对,
		// 同样按普通http访问伪装处理
		return nil, &httpLayer.RequestErr{Path: req.URL.Path}
	}

	theConn := &Conn{
		Conn:  underlay,
		state: ws.StateServerSide,
		r:     wsutil.NewServerSideReader(underlay),
	}
	//服务端不怕客户端在握手阶段传来多余数据
	theConn.r.OnIntermediate = wsutil.ControlFrameHandler(underlay, ws.StateServerSide)

	if len(thePotentialEarlyData) > 0 {
		theConn.serverEndGotEarlyData = thePotentialEarlyData
	}

	return theConn, nil
}

// readRequestHead 读取直到 http头部结束符. 按websocket协议, 客户端在收到
// 101 之前不会发任何帧, 所以头部之后不会有需要保留的数据.
func readRequestHead(underlay net.Conn) ([]byte, error) {
	bs := utils.GetPacket()
	defer utils.PutPacket(bs)

	var head []byte
	for {
		n, err := underlay.Read(bs)
		if err != nil {
			return nil, err
		}
		head = append(head, bs[:n]...)

		if bytes.Contains(head, []byte("\r\n\r\n")) {
			return head, nil
		}
		if len(head) > maxRequestHeadLen {
			return nil, &httpLayer.RequestErr{}
		}
	}
}
