package ipc

import "testing"

func TestMsgTypeString(t *testing.T) {
	cases := map[MsgType]string{
		MsgApply:           "Apply",
		MsgRevert:          "Revert",
		MsgReset:           "Reset",
		MsgExportGolden:    "ExportGolden",
		MsgSnapshotCurrent: "SnapshotCurrent",
		MsgPing:            "Ping",
		MsgStop:            "Stop",
		MsgApplyResult:     "ApplyResult",
		MsgVerifyResult:    "VerifyResult",
	}
	for msgType, want := range cases {
		if got := msgType.String(); got != want {
			t.Errorf("MsgType(0x%02x).String() = %q, want %q", byte(msgType), got, want)
		}
	}
	if got := MsgType(0x99).String(); got != "MsgType(0x99)" {
		t.Errorf("unknown MsgType.String() = %q", got)
	}
}
