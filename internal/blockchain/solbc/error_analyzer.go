// internal/blockchain/solbc/error_analyzer.go
package solbc

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"go.uber.org/zap"
)

// AnchorError is an error reported by an Anchor program in its logs.
type AnchorError struct {
	Code int
	Name string
	Msg  string
}

func (e *AnchorError) Error() string {
	return fmt.Sprintf("anchor error %d (%s): %s", e.Code, e.Name, e.Msg)
}

// ProgramError is a simulation or preflight failure enriched with program logs.
type ProgramError struct {
	Message    string
	CustomCode *int
	Anchor     *AnchorError
	Logs       []string
	Err        error
}

func (e *ProgramError) Error() string {
	switch {
	case e.Anchor != nil:
		return fmt.Sprintf("%s: %s", e.Message, e.Anchor.Error())
	case e.CustomCode != nil:
		return fmt.Sprintf("%s: custom program error %d (0x%x)", e.Message, *e.CustomCode, *e.CustomCode)
	default:
		return e.Message
	}
}

func (e *ProgramError) Unwrap() error { return e.Err }

var (
	anchorErrorRe = regexp.MustCompile(`Error Code: (\w+)\. Error Number: (\d+)\. Error Message: (.*?)\.?$`)
	customErrorRe = regexp.MustCompile(`custom program error: 0x([0-9a-fA-F]+)`)
)

// ErrorAnalyzer turns RPC and simulation failures into ProgramErrors.
type ErrorAnalyzer struct {
	logger *zap.Logger
}

func NewErrorAnalyzer(logger *zap.Logger) *ErrorAnalyzer {
	return &ErrorAnalyzer{logger: logger.Named("error-analyzer")}
}

// Analyze inspects err and, when it is a preflight failure, extracts logs and error codes.
// Errors that carry no program information are returned unchanged.
func (ea *ErrorAnalyzer) Analyze(err error) error {
	if err == nil {
		return nil
	}
	var rpcErr *jsonrpc.RPCError
	if !errors.As(err, &rpcErr) {
		return err
	}

	logs := extractLogs(rpcErr.Data)
	pe := &ProgramError{Message: rpcErr.Message, Logs: logs, Err: err}
	pe.Anchor = ParseAnchorError(logs)
	if pe.Anchor == nil {
		pe.CustomCode = parseCustomCode(append([]string{rpcErr.Message}, logs...))
	}
	if pe.Anchor == nil && pe.CustomCode == nil && len(logs) == 0 {
		return err
	}

	fields := []zap.Field{zap.String("message", rpcErr.Message), zap.Int("log_lines", len(logs))}
	if pe.Anchor != nil {
		fields = append(fields, zap.Int("code", pe.Anchor.Code), zap.String("name", pe.Anchor.Name))
	}
	ea.logger.Warn("Program error detected", fields...)
	return pe
}

// AnalyzeSimulation converts a failed simulation result into a ProgramError.
func (ea *ErrorAnalyzer) AnalyzeSimulation(res *SimulationResult) error {
	if res == nil || res.Err == nil {
		return nil
	}
	pe := &ProgramError{
		Message: fmt.Sprintf("simulation failed: %v", res.Err),
		Logs:    res.Logs,
		Anchor:  ParseAnchorError(res.Logs),
	}
	if pe.Anchor == nil {
		pe.CustomCode = parseCustomCode(append([]string{pe.Message}, res.Logs...))
	}
	return pe
}

// ParseAnchorError finds the first "AnchorError occurred" line in logs.
func ParseAnchorError(logs []string) *AnchorError {
	for _, line := range logs {
		if !strings.Contains(line, "AnchorError") {
			continue
		}
		m := anchorErrorRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		code, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		return &AnchorError{Code: code, Name: m[1], Msg: m[3]}
	}
	return nil
}

func parseCustomCode(lines []string) *int {
	for _, line := range lines {
		m := customErrorRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		v, err := strconv.ParseInt(m[1], 16, 64)
		if err != nil {
			continue
		}
		code := int(v)
		return &code
	}
	return nil
}

func extractLogs(data interface{}) []string {
	m, ok := data.(map[string]interface{})
	if !ok {
		return nil
	}
	raw, ok := m["logs"].([]interface{})
	if !ok {
		return nil
	}
	logs := make([]string, 0, len(raw))
	for _, l := range raw {
		if s, ok := l.(string); ok {
			logs = append(logs, s)
		}
	}
	return logs
}
