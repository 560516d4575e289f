package scripts

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/mstrack/mstrack/internal/models"
)

// ParseScript parses a line-oriented automation script. One opcode per
// line; blank lines and '#' comments are ignored. Tokens that are not a
// known opcode parse as OpUnknown with the raw line as operand — they are
// preserved, never dropped, so the interpreter can surface them.
func ParseScript(portalID string, content string) models.Script {
	script := models.Script{PortalID: portalID}

	scanner := bufio.NewScanner(strings.NewReader(content))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		script.Opcodes = append(script.Opcodes, parseLine(line, lineNo))
	}

	return script
}

func parseLine(line string, lineNo int) models.Opcode {
	kind, operand, _ := strings.Cut(line, " ")
	operand = strings.TrimSpace(operand)

	op := models.Opcode{Line: lineNo}

	switch models.OpcodeKind(strings.ToUpper(kind)) {
	case models.OpTab:
		op.Kind = models.OpTab
	case models.OpShiftTab:
		op.Kind = models.OpShiftTab
	case models.OpSpace:
		op.Kind = models.OpSpace
	case models.OpEscape:
		op.Kind = models.OpEscape
	case models.OpEnter:
		op.Kind = models.OpEnter
	case models.OpFind:
		op.Kind = models.OpFind
	case models.OpPaste:
		op.Kind = models.OpPaste
	case models.OpSleep:
		op.Kind = models.OpSleep
		if ms, err := strconv.Atoi(operand); err == nil && ms >= 0 {
			op.SleepMS = ms
		}
	case models.OpInputUsername:
		op.Kind = models.OpInputUsername
	case models.OpInputPassword:
		op.Kind = models.OpInputPassword
	case models.OpInputLiteral:
		op.Kind = models.OpInputLiteral
		op.Operand = operand
	case models.OpScreenshot:
		op.Kind = models.OpScreenshot
	case models.OpClick:
		op.Kind = models.OpClick
		op.Operand = operand
	case models.OpSurveyCheck:
		op.Kind = models.OpSurveyCheck
	case models.OpCheckStatus:
		op.Kind = models.OpCheckStatus
	default:
		op.Kind = models.OpUnknown
		op.Operand = line
	}

	return op
}
