package utils_test

import (
	"testing"

	"github.com/e1732a364fed/vlessws/utils"
)

func TestStrToUUID(t *testing.T) {
	str := "a684455c-b14f-11ea-bf0d-42010aaa0003"
	id, err := utils.StrToUUID(str)
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	if utils.UUIDToStr(id) != str {
		t.Log("round trip failed", utils.UUIDToStr(id))
		t.FailNow()
	}

	//只接受36字符规范形式
	for _, bad := range []string{
		"",
		"a684455cb14f11eabf0d42010aaa0003",                  //无连字符
		"urn:uuid:a684455c-b14f-11ea-bf0d-42010aaa0003",     //urn前缀
		"g684455c-b14f-11ea-bf0d-42010aaa0003",              //非hex
		"a684455c-b14f-11ea-bf0d-42010aaa0003-deadbeefdead", //过长
	} {
		if _, err := utils.StrToUUID(bad); err == nil {
			t.Log("must reject", bad)
			t.FailNow()
		}
	}

	generated := utils.GenerateUUIDStr()
	if _, err := utils.StrToUUID(generated); err != nil {
		t.Log("generated uuid must parse", generated, err)
		t.FailNow()
	}
}
