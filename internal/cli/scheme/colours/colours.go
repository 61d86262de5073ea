package colours

import (
	"github.com/fatih/color"

	"pmsim/internal/domain/course"
)

// Color scheme for the CLI
var (
	Title   = color.New(color.FgCyan, color.Bold)
	Tag     = color.New(color.FgMagenta, color.Bold)
	Prompt  = color.New(color.FgGreen, color.Bold)
	Error   = color.New(color.FgRed, color.Bold)
	Success = color.New(color.FgGreen)
	Info    = color.New(color.FgBlue)
	Warning = color.New(color.FgYellow)
	Muted   = color.New(color.Faint)
	XP      = color.New(color.FgYellow, color.Bold)
	Speaker = color.New(color.FgMagenta)
)

// Severity returns the colour of a scenario outcome grade.
func Severity(s course.Severity) *color.Color {
	switch s {
	case course.SeverityGood:
		return Success
	case course.SeverityOK:
		return Warning
	case course.SeverityBad:
		return Error
	}
	return Info
}

// Verdict colours quiz feedback.
func Verdict(correct bool) *color.Color {
	if correct {
		return Success
	}
	return Error
}
