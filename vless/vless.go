/*
Package vless implements decoding and encoding of the vless request header,
the binary authentication-and-routing preamble each session starts with.

和 v2ray 不同的是, 这里的解码是对 完整的首个数据块 进行的纯函数解码,
而不是流式读取. websocket传输下 头部总是整块到达, 不到达 就按非法处理,
所以不需要可恢复的流式解码.

头部布局:

	1字节 version | 16字节 uuid | 1字节 addon长度(内容跳过) | 1字节 cmd |
	2字节 port(大端) | 1字节 atyp | 4/1+N/16 字节地址 | 剩余为 raw data
*/
package vless

const Name = "vless"

// CMD types
const (
	_ byte = iota
	CmdTCP
	CmdUDP
)
