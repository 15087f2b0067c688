package protocol

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	separator = ":"
	maxPort   = 65535
)

var (
	ErrIllegalChar    = errors.New("protocol: illegal character")
	ErrUnknownCommand = errors.New("protocol: unknown command")
	ErrFieldCount     = errors.New("protocol: wrong field count")
	ErrBadNumber      = errors.New("protocol: bad number")
	ErrEmptyName      = errors.New("protocol: empty name")
)

// separators is the number of ':' each keyword requires. Defer depends on the
// command it wraps and is handled separately.
var separators = map[Kind]int{
	KindConnect:  1,
	KindIM:       2,
	KindDeliver:  2,
	KindWithdraw: 2,
	KindTransfer: 3,
	KindExecute:  1,
}

// deferSeparators is the ':' count of a whole Defer line per wrapped kind.
var deferSeparators = map[Kind]int{
	KindDeliver:  4,
	KindWithdraw: 4,
	KindTransfer: 5,
}

// Parse decodes one line. A single trailing '\n' is permitted and ignored.
// It has no side effects; every rejection is reported as an error wrapping
// one of the package's Err values.
func Parse(line string) (Command, error) {
	line = strings.TrimSuffix(line, "\n")
	if i := strings.IndexAny(line, " \r\n"); i >= 0 {
		return Command{}, fmt.Errorf("%w %q at offset %d", ErrIllegalChar, line[i], i)
	}

	fields := strings.Split(line, separator)
	kind, ok := kindByKeyword[fields[0]]
	if !ok {
		return Command{}, fmt.Errorf("%w %q", ErrUnknownCommand, fields[0])
	}
	if kind == KindDefer {
		return parseDefer(fields)
	}
	if err := checkFields(kind, fields, separators[kind]); err != nil {
		return Command{}, err
	}
	return parseFields(kind, fields[1:])
}

func parseDefer(fields []string) (Command, error) {
	if len(fields) < 3 {
		return Command{}, fmt.Errorf("%w: Defer needs a key and a command", ErrFieldCount)
	}
	inner, ok := kindByKeyword[fields[2]]
	if !ok || !inner.Deferrable() {
		return Command{}, fmt.Errorf("%w %q cannot be deferred", ErrUnknownCommand, fields[2])
	}
	if err := checkFields(KindDefer, fields, deferSeparators[inner]); err != nil {
		return Command{}, err
	}
	key, err := parseKey(fields[1])
	if err != nil {
		return Command{}, err
	}
	cmd, err := parseFields(inner, fields[3:])
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: KindDefer, Key: key, Deferred: &cmd}, nil
}

func checkFields(kind Kind, fields []string, want int) error {
	if got := len(fields) - 1; got != want {
		return fmt.Errorf("%w: %s wants %d separators, got %d", ErrFieldCount, kind, want, got)
	}
	return nil
}

// parseFields decodes the arguments following the keyword. The count has
// already been checked.
func parseFields(kind Kind, args []string) (Command, error) {
	cmd := Command{Kind: kind}
	var err error
	switch kind {
	case KindConnect:
		cmd.Port, err = parsePort(args[0])
	case KindIM:
		if cmd.Port, err = parsePort(args[0]); err == nil {
			cmd.Name, err = parseName(args[1])
		}
	case KindDeliver, KindWithdraw:
		if cmd.Qty, err = parseQty(args[0]); err == nil {
			cmd.Item, err = parseName(args[1])
		}
	case KindTransfer:
		if cmd.Qty, err = parseQty(args[0]); err == nil {
			if cmd.Item, err = parseName(args[1]); err == nil {
				cmd.Destination, err = parseName(args[2])
			}
		}
	case KindExecute:
		cmd.Key, err = parseKey(args[0])
	default:
		err = fmt.Errorf("%w %s", ErrUnknownCommand, kind)
	}
	if err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// digits reports whether s is non-empty and made only of ASCII digits.
func digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func parsePort(s string) (int, error) {
	if !digits(s) {
		return 0, fmt.Errorf("%w: port %q", ErrBadNumber, s)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > maxPort {
		return 0, fmt.Errorf("%w: port %q out of range", ErrBadNumber, s)
	}
	return n, nil
}

func parseQty(s string) (int, error) {
	if !digits(s) {
		return 0, fmt.Errorf("%w: quantity %q", ErrBadNumber, s)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%w: quantity %q out of range", ErrBadNumber, s)
	}
	return n, nil
}

func parseKey(s string) (uint64, error) {
	if !digits(s) {
		return 0, fmt.Errorf("%w: key %q", ErrBadNumber, s)
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: key %q out of range", ErrBadNumber, s)
	}
	return n, nil
}

func parseName(s string) (string, error) {
	if s == "" {
		return "", ErrEmptyName
	}
	return s, nil
}

// ValidName reports whether s could travel as a single field: non-empty and
// free of separators, spaces and line breaks.
func ValidName(s string) bool {
	return s != "" && !strings.ContainsAny(s, " \r\n"+separator)
}

// ValidCount reports whether s is a digit-only non-negative count, as used
// for a depot's starting stock.
func ValidCount(s string) bool {
	if !digits(s) {
		return false
	}
	_, err := strconv.ParseInt(s, 10, 32)
	return err == nil
}
