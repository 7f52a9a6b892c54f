package relay

import "time"

// 分层节流表. 按session累计的chunk数 对 远程->客户端 方向施加固定延迟,
// 挡住单个session持续大流量灌满websocket一侧. 这是对 跨websocket边界
// 无法传播tcp背压 的一个粗糙而便宜的替代, 不搞真正的信用流控.
const (
	throttleTier1 = 20
	throttleTier2 = 120
	throttleTier3 = 500

	throttleTier1Delay = 10 * time.Millisecond
	throttleTier2Delay = 20 * time.Millisecond
	throttleTier3Delay = 50 * time.Millisecond
)

// DelayForChunk 返回发送 第n个chunk 之前要等待的时长. n 从1开始计.
// 纯函数, 关于n单调不减.
func DelayForChunk(n uint32) time.Duration {
	switch {
	case n < throttleTier1:
		return 0
	case n < throttleTier2:
		return throttleTier1Delay
	case n < throttleTier3:
		return throttleTier2Delay
	default:
		return throttleTier3Delay
	}
}
