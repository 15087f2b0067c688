package main

import (
	"strconv"

	"github.com/hami-sh/2310ass4/internal/inventory"
	"github.com/hami-sh/2310ass4/internal/protocol"
)

// Process exit codes.
const (
	exitOK = iota
	exitUsage
	exitName
	exitQuantity
	exitListen
)

var exitMessages = map[int]string{
	exitUsage:    "Usage: depot name {goods qty}",
	exitName:     "Invalid name(s)",
	exitQuantity: "Invalid quantity",
	exitListen:   "Unable to listen",
}

// exitError carries the status the process should exit with.
type exitError struct {
	code int
	err  error
}

func newExitError(code int, err error) *exitError {
	return &exitError{code: code, err: err}
}

func (e *exitError) Error() string {
	if e.err != nil {
		return exitMessages[e.code] + ": " + e.err.Error()
	}
	return exitMessages[e.code]
}

func (e *exitError) Unwrap() error { return e.err }

// parseArgs validates `name {goods qty}` and builds the starting stock.
func parseArgs(args []string) (string, []inventory.Item, error) {
	if len(args) < 1 || (len(args)-1)%2 != 0 {
		return "", nil, newExitError(exitUsage, nil)
	}
	name := args[0]
	if !protocol.ValidName(name) {
		return "", nil, newExitError(exitName, nil)
	}

	items := make([]inventory.Item, 0, (len(args)-1)/2)
	for i := 1; i < len(args); i += 2 {
		good, qty := args[i], args[i+1]
		if !protocol.ValidName(good) {
			return "", nil, newExitError(exitName, nil)
		}
		if !protocol.ValidCount(qty) {
			return "", nil, newExitError(exitQuantity, nil)
		}
		n, _ := strconv.Atoi(qty)
		items = append(items, inventory.Item{Name: good, Count: n})
	}
	return name, items, nil
}
