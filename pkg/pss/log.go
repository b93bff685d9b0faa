package pss

import (
	"fmt"
	"os"
	"strings"
)

const (
	ANSI_RESET       = "\x1b[0;0m"
	ANSI_BLUE        = "\x1b[34;22m"
	ANSI_GREEN       = "\x1b[32;22m"
	ANSI_YELLOW      = "\x1b[33;22m"
	ANSI_RED         = "\x1b[31;22m"
	ANSI_BLUE_BOLD   = "\x1b[34;1m"
	ANSI_GREEN_BOLD  = "\x1b[32;1m"
	ANSI_YELLOW_BOLD = "\x1b[33;1m"
	ANSI_RED_BOLD    = "\x1b[31;1m"
)

var reasonNames = map[int]string{
	ErrSyntax:              "syntax error",
	ErrTypeMismatch:        "type mismatch",
	ErrOutOfRange:          "out of range",
	ErrInvalidNumeric:      "invalid numeric",
	ErrAlreadyDefined:      "already defined",
	ErrTooFewParams:        "too few parameters",
	ErrTooManyParams:       "too many parameters",
	ErrRecursiveCall:       "recursive call",
	ErrInvalidObject:       "invalid object",
	ErrShapeExpected:       "shape expected",
	ErrImageHasNoSize:      "image has no size",
	ErrTranslucentInfo:     "missing translucency",
	ErrInvalidWorld:        "invalid world",
	ErrWorldAlreadyUsed:    "world already used",
	ErrWorldAlreadyDefined: "world already defined",
	ErrTransfoParameter:    "transformation error",
	ErrInvalidPolygon:      "invalid polygon",
	ErrInvalidCoords:       "invalid coordinates",
	ErrAlphaPalette:        "alpha palette error",
	ErrInvalidURL:          "invalid url",
	ErrFileNotFound:        "file not found",
	ErrPageNotFound:        "page not found",
	ErrIncludeNotFound:     "include not found",
	ErrRecursiveInclusion:  "recursive inclusion",
	ErrSourceUnavailable:   "source unavailable",
	ErrNoImage:             "no image",
	ErrSystem:              "system error",
	ErrAssert:              "invariant violation",
}

func LogDebug(args ...string) {
	fmt.Println(ANSI_BLUE_BOLD + "debug: " + ANSI_BLUE + strings.Join(args, " ") + ANSI_RESET)
}

func LogDebugf(s string, args ...interface{}) {
	LogDebug(fmt.Sprintf(s, args...))
}

func LogInteractive(args ...string) {
	fmt.Println(ANSI_GREEN + strings.Join(args, " ") + ANSI_RESET)
}

func LogInteractivef(s string, args ...interface{}) {
	LogInteractive(fmt.Sprintf(s, args...))
}

func LogWarn(args ...string) {
	fmt.Fprintln(os.Stderr, ANSI_YELLOW_BOLD+"warning: "+ANSI_YELLOW+strings.Join(args, " ")+ANSI_RESET)
}

func LogSafeErr(reason int, args ...string) {
	errStr, ok := reasonNames[reason]
	if !ok {
		errStr = "error"
	}
	fmt.Fprintln(os.Stderr, ANSI_RED_BOLD+errStr+": "+ANSI_RED+strings.Join(args, " ")+ANSI_RESET)
}

func LogErr(reason int, args ...string) {
	LogSafeErr(reason, args...)
	os.Exit(reason)
}

func LogErrf(reason int, s string, args ...interface{}) {
	LogErr(reason, fmt.Sprintf(s, args...))
}

// LogError logs any error, using the reason of an Err when there is one.
func LogError(err error) {
	if e, isErr := err.(Err); isErr {
		LogSafeErr(e.reason, e.Error())
	} else {
		LogSafeErr(ErrSystem, err.Error())
	}
}
