/*
Package relay implements the per-connection session state machine of the relay.

一个session 就是 一条已升级的websocket连接 加上 按请求头拨出的一条tcp连接,
以及全部连接内状态. 状态流转:

	AwaitingHeader -> Connecting -> Relaying -> Closed

Closed 从任何状态都可达. session内控制流是单线程的, 但 Relaying 阶段
两个转发方向并发运行, 共享的 cancelled / chunkCount 都是原子量,
teardown 用 CAS 保证幂等.
*/
package relay

import (
	"net"
	"runtime/debug"
	"time"

	"github.com/e1732a364fed/vlessws/netLayer"
	"github.com/e1732a364fed/vlessws/utils"
	"github.com/e1732a364fed/vlessws/vless"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// 全进程统计, 给api server 读.
var (
	ActiveSessionCount atomic.Int64
	FailedSessionCount atomic.Uint64

	UploadBytes   atomic.Uint64 //客户端->远程
	DownloadBytes atomic.Uint64 //远程->客户端
)

// Session owns both legs of one relayed connection. 由 NewSession 的调用方
// 把升级完成的websocket连接 的所有权移交进来, 之后两条腿都只由session关闭.
type Session struct {
	clientConn net.Conn //websocket腿, 由外部创建, 由session负责关闭
	remoteConn net.Conn //tcp腿, 头部解码成功后才拨号, 在那之前为nil

	target netLayer.Addr //只用于日志

	cancelled  atomic.Bool
	chunkCount atomic.Uint32
}

func NewSession(wsConn net.Conn) *Session {
	return &Session{
		clientConn: wsConn,
	}
}

// Run 驱动session直到结束, 阻塞. 任何内部panic都在这里兜住,
// 只打日志并关闭两条腿, 绝不影响监听循环和其它session.
func (s *Session) Run(allowedID [utils.UUID_BytesLen]byte) {

	ActiveSessionCount.Inc()
	defer ActiveSessionCount.Dec()

	defer func() {
		if r := recover(); r != nil {
			if ce := utils.CanLogErr("session panic"); ce != nil {
				ce.Write(
					zap.Any("panic", r),
					zap.String("target", s.target.String()),
					zap.String("stack", string(debug.Stack())),
				)
			}
			s.close()
		}
	}()

	// AwaitingHeader. 第一次Read 读到的 要么是握手时带的earlydata,
	// 要么是首个帧; 两种情况下 头部都要求完整地在里面.
	buf := utils.GetPacket()

	n, err := s.clientConn.Read(buf)
	if err != nil {
		utils.PutPacket(buf)
		s.close()
		return
	}

	h, err := vless.DecodeHeader(buf[:n], allowedID)
	if err != nil {
		//协议错误与认证失败 都只是该session终结, 不是进程级问题
		if ce := utils.CanLogWarn("invalid vless header"); ce != nil {
			ce.Write(zap.Error(err), zap.String("client", s.clientConn.RemoteAddr().String()))
		}
		FailedSessionCount.Inc()
		utils.PutPacket(buf)
		s.close()
		return
	}
	s.target = h.Addr

	if h.Cmd == vless.CmdUDP {
		//明确不支持, 干净地关闭, 不算bug也不计入失败
		if ce := utils.CanLogInfo("udp command rejected"); ce != nil {
			ce.Write(zap.String("target", s.target.String()))
		}
		utils.PutPacket(buf)
		s.close()
		return
	}

	// Connecting
	rc, err := h.Addr.Dial()
	if err != nil {
		if ce := utils.CanLogWarn("dial target failed"); ce != nil {
			ce.Write(zap.Error(err), zap.String("target", s.target.String()))
		}
		FailedSessionCount.Inc()
		utils.PutPacket(buf)
		s.close()
		return
	}
	s.remoteConn = rc //先于两个转发goroutine启动, 无竞争

	//头部之后的 raw data 原样先发给目标
	if h.RawDataIndex < n {
		if _, err = rc.Write(buf[h.RawDataIndex:n]); err != nil {
			utils.PutPacket(buf)
			s.close()
			return
		}
		UploadBytes.Add(uint64(n - h.RawDataIndex))
	}
	utils.PutPacket(buf)

	//2字节响应头单独作为第一个帧回给客户端
	if _, err = s.clientConn.Write(vless.ResponseHeader(h.Version)); err != nil {
		s.close()
		return
	}

	if ce := utils.CanLogInfo("relaying"); ce != nil {
		ce.Write(
			zap.String("client", s.clientConn.RemoteAddr().String()),
			zap.String("target", s.target.String()),
		)
	}

	// Relaying. 一个方向用新goroutine, 另一个占用当前goroutine,
	// 任何一个方向结束都会把两条腿都关掉, 另一方向随之出错退出.
	go s.copyClientToRemote()
	s.copyRemoteToClient()
}

// websocket -> tcp. 每个帧原样写给远程.
func (s *Session) copyClientToRemote() {
	buf := utils.GetPacket()
	defer utils.PutPacket(buf)

	for !s.cancelled.Load() {
		n, err := s.clientConn.Read(buf)
		if n > 0 {
			if _, werr := s.remoteConn.Write(buf[:n]); werr != nil {
				break
			}
			UploadBytes.Add(uint64(n))
		}
		if err != nil {
			break
		}
	}
	s.close()
}

// tcp -> websocket, 途经节流. chunk计数先加, 再决定延迟.
func (s *Session) copyRemoteToClient() {
	buf := utils.GetPacket()
	defer utils.PutPacket(buf)

	for !s.cancelled.Load() {
		n, err := s.remoteConn.Read(buf)
		if n > 0 {
			if d := DelayForChunk(s.chunkCount.Inc()); d > 0 {
				time.Sleep(d)
			}
			//延迟期间session可能已经被另一方向关掉, 此时丢弃该chunk
			if s.cancelled.Load() {
				break
			}
			if _, werr := s.clientConn.Write(buf[:n]); werr != nil {
				break
			}
			DownloadBytes.Add(uint64(n))
		}
		if err != nil {
			break
		}
	}
	s.close()
}

// close 把session置为 Closed 并关闭两条腿. 幂等, 晚到的事件全部成为no-op.
func (s *Session) close() {
	if !s.cancelled.CAS(false, true) {
		return
	}

	if ce := utils.CanLogDebug("session closed"); ce != nil {
		ce.Write(zap.String("target", s.target.String()))
	}

	s.clientConn.Close()
	if s.remoteConn != nil {
		s.remoteConn.Close()
	}
}
