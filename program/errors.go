package program

import (
	"errors"
	"fmt"
	"strings"
)

type Code string

const (
	CodeSyntax               Code = "Xform_InvalidSyntax"
	CodeUnknownInstruction   Code = "Xform_UnknownInstruction"
	CodeUnknownField         Code = "Xform_UnknownField"
	CodeMissingField         Code = "Xform_MissingField"
	CodeInvalidValue         Code = "Xform_InvalidValue"
	CodeInvalidExpression    Code = "Xform_InvalidExpression"
	CodeInvalidPattern       Code = "Xform_InvalidPattern"
	CodeInvalidTemplate      Code = "Xform_InvalidTemplate"
	CodeUnboundPrefix        Code = "Xform_UnboundPrefix"
	CodeDuplicate            Code = "Xform_Duplicate"
	CodeMisplacedInstruction Code = "Xform_MisplacedInstruction"
	CodeImport               Code = "Xform_Import"
)

// DecodeError reports malformed program data. Path locates the faulty node
// from the top of the file, Line and Column are those of the yaml source.
type DecodeError struct {
	Code    Code
	File    string
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *DecodeError) Error() string {
	var str strings.Builder
	if e.File != "" {
		str.WriteString(e.File)
		str.WriteString(":")
	}
	if e.Line > 0 {
		fmt.Fprintf(&str, "%d:%d: ", e.Line, e.Column)
	} else if e.File != "" {
		str.WriteString(" ")
	}
	if e.Path != "" {
		str.WriteString(e.Path)
		str.WriteString(": ")
	}
	str.WriteString(string(e.Code))
	if e.Message != "" {
		str.WriteString(": ")
		str.WriteString(e.Message)
	}
	if e.Err != nil {
		str.WriteString(": ")
		str.WriteString(e.Err.Error())
	}
	return str.String()
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsCode reports whether err is a DecodeError with the given code.
func IsCode(err error, code Code) bool {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
