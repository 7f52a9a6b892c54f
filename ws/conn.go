package ws

import (
	"io"
	"net"

	"github.com/e1732a364fed/vlessws/utils"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Conn 实现 net.Conn.
// 因为 gobwas/ws 不包装conn，读写二进制数据要用较为底层的函数,
// 这里包装一下, 统一用 Read和Write 来读写 二进制帧. 我们是代理, 只转发字节.
type Conn struct {
	net.Conn

	state ws.State
	r     *wsutil.Reader

	remainLenForLastFrame int64

	//握手时从 Sec-WebSocket-Protocol 解码出的 earlydata 会在第一次 Read 时
	// 先被返回, 之后才读真正的帧. 这样上层无需区分 0-rtt 和普通客户端.
	serverEndGotEarlyData []byte
}

// Read websocket binary frames
func (c *Conn) Read(p []byte) (int, error) {

	if len(c.serverEndGotEarlyData) > 0 {
		n := copy(p, c.serverEndGotEarlyData)
		c.serverEndGotEarlyData = c.serverEndGotEarlyData[n:]
		return n, nil
	}

	//一个websocket帧长度上限为2^64, 超大, 而我们的标准Packet缓存是64k,
	// 肯定会有一帧分多次读的情况, 所以不能用 wsutil.ReadClientBinary
	// (其内部是 io.ReadAll, 内存无限增长), 要用 wsutil.Reader.Read 分段读,
	// 每个新帧前必须有 NextFrame调用.

	if c.remainLenForLastFrame > 0 {

		n, e := c.r.Read(p)
		if e != nil && e != io.EOF {
			return n, e
		}
		//这里可以放心减去n 而不怕减成负的, 因为 wsutil.Reader 内部用
		// io.LimitedReader 限定了一帧的读取上限
		c.remainLenForLastFrame -= int64(n)
		return n, nil
	}

	h, e := c.r.NextFrame()
	if e != nil {
		return 0, e
	}
	if h.OpCode.IsControl() {
		//控制帧已经在 OnIntermediate 里被处理了, 直接读取下一个帧即可
		return c.Read(p)
	}

	//读取分片数据时会遇到 OpContinuation, 不能当错误
	if h.OpCode != ws.OpBinary && h.OpCode != ws.OpContinuation {
		return 0, utils.ErrInErr{ErrDesc: "ws OpCode not OpBinary/OpContinuation", Data: h.OpCode}
	}

	c.remainLenForLastFrame = h.Length

	n, e := c.r.Read(p)
	c.remainLenForLastFrame -= int64(n)

	//只有 fragmented 的情况下 gobwas 才自行处理EOF, 非分片时 正常的
	// 帧尾EOF 会传递到这里, 不是错误
	if e != nil && e != io.EOF {
		return n, e
	}
	return n, nil
}

// Write 把 p 作为一个完整的 binary 帧发出.
// 不分片的效率更高, 无需缓存, zero copy.
func (c *Conn) Write(p []byte) (n int, e error) {

	if c.state == ws.StateClientSide {
		e = wsutil.WriteClientBinary(c.Conn, p)
	} else {
		e = wsutil.WriteServerBinary(c.Conn, p)
	}

	if e == nil {
		n = len(p)
	}
	return
}
