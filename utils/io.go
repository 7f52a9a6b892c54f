package utils

import "io"

// RW 把一个 Reader 和一个 Writer 拼成 io.ReadWriter.
// 在 已经预读过一部分数据 的连接上继续做协议握手时会用到.
type RW struct {
	io.Reader
	io.Writer
}
