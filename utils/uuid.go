package utils

import (
	"github.com/google/uuid"
)

const UUID_BytesLen = 16

// StrToUUID 只接受 36字符的规范形式, 如 a684455c-b14f-11ea-bf0d-42010aaa0003.
// google/uuid 的 Parse 还额外接受 urn: 前缀、大括号 等形式, 这些对我们的配置来说都是非法的.
func StrToUUID(s string) (u [UUID_BytesLen]byte, err error) {
	if len(s) != 36 {
		return u, ErrInErr{ErrDesc: "invalid UUID Str", ErrDetail: ErrInvalidData, Data: s}
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return u, ErrInErr{ErrDesc: "invalid UUID Str", ErrDetail: err, Data: s}
	}
	return id, nil
}

func UUIDToStr(u [UUID_BytesLen]byte) string {
	return uuid.UUID(u).String()
}

// 生成符合v4标准的uuid
func GenerateUUIDStr() string {
	return uuid.NewString()
}
