package models

import "fmt"

// OpcodeKind identifies one instruction kind in an automation script.
type OpcodeKind string

const (
	OpTab           OpcodeKind = "TAB"
	OpShiftTab      OpcodeKind = "SHIFT_TAB"
	OpSpace         OpcodeKind = "SPACE"
	OpEscape        OpcodeKind = "ESCAPE"
	OpEnter         OpcodeKind = "ENTER"
	OpFind          OpcodeKind = "FIND"
	OpPaste         OpcodeKind = "PASTE"
	OpSleep         OpcodeKind = "SLEEP"
	OpInputUsername OpcodeKind = "INPUT_USERNAME"
	OpInputPassword OpcodeKind = "INPUT_PASSWORD"
	OpInputLiteral  OpcodeKind = "INPUT_LITERAL"
	OpScreenshot    OpcodeKind = "SCREENSHOT"
	OpClick         OpcodeKind = "CLICK"
	OpSurveyCheck   OpcodeKind = "SURVEY_CHECK"
	OpCheckStatus   OpcodeKind = "CHECK_STATUS"

	// OpUnknown tags unrecognized script tokens. They are never silently
	// dropped; the interpreter logs them and moves on.
	OpUnknown OpcodeKind = "UNKNOWN"
)

// Opcode is one instruction in an automation script: a kind plus an
// optional operand (sleep milliseconds, literal text, click target).
type Opcode struct {
	Kind    OpcodeKind
	Operand string
	SleepMS int
	Line    int // 1-based source line, for log context
}

func (o Opcode) String() string {
	if o.Operand != "" {
		return fmt.Sprintf("%s %s", o.Kind, o.Operand)
	}
	return string(o.Kind)
}

// Script is an ordered opcode sequence for one portal, loaded from the
// file-backed catalogue.
type Script struct {
	PortalID string
	Opcodes  []Opcode
}
