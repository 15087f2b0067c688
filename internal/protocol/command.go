// Package protocol defines the depot wire format.
//
// Every message is one line of ASCII text terminated by '\n'. Fields are
// separated by ':' and no field may contain a space, '\r' or '\n'. The first
// field names the command and fixes how many fields follow:
//
//	Connect:<port>
//	IM:<port>:<name>
//	Deliver:<qty>:<item>
//	Withdraw:<qty>:<item>
//	Transfer:<qty>:<item>:<depot>
//	Defer:<key>:Deliver:<qty>:<item>
//	Defer:<key>:Withdraw:<qty>:<item>
//	Defer:<key>:Transfer:<qty>:<item>:<depot>
//	Execute:<key>
package protocol

import (
	"fmt"
	"strconv"
)

// Kind identifies a command.
type Kind int

const (
	KindConnect Kind = iota + 1
	KindIM
	KindDeliver
	KindWithdraw
	KindTransfer
	KindDefer
	KindExecute
)

var kindNames = map[Kind]string{
	KindConnect:  "Connect",
	KindIM:       "IM",
	KindDeliver:  "Deliver",
	KindWithdraw: "Withdraw",
	KindTransfer: "Transfer",
	KindDefer:    "Defer",
	KindExecute:  "Execute",
}

var kindByKeyword = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, s := range kindNames {
		m[s] = k
	}
	return m
}()

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Deferrable reports whether commands of this kind may be parked by Defer.
func (k Kind) Deferrable() bool {
	return k == KindDeliver || k == KindWithdraw || k == KindTransfer
}

// Command is a decoded message. Which fields are set depends on Kind:
//
//	Connect   Port
//	IM        Port, Name
//	Deliver   Qty, Item
//	Withdraw  Qty, Item
//	Transfer  Qty, Item, Destination
//	Defer     Key, Deferred
//	Execute   Key
type Command struct {
	Kind        Kind
	Port        int
	Name        string
	Qty         int
	Item        string
	Destination string
	Key         uint64
	Deferred    *Command
}

// Encode renders c as a wire line including the trailing newline.
func (c Command) Encode() string {
	return c.body() + "\n"
}

func (c Command) body() string {
	switch c.Kind {
	case KindConnect:
		return fmt.Sprintf("Connect:%d", c.Port)
	case KindIM:
		return fmt.Sprintf("IM:%d:%s", c.Port, c.Name)
	case KindDeliver, KindWithdraw:
		return fmt.Sprintf("%s:%d:%s", c.Kind, c.Qty, c.Item)
	case KindTransfer:
		return fmt.Sprintf("Transfer:%d:%s:%s", c.Qty, c.Item, c.Destination)
	case KindDefer:
		if c.Deferred == nil {
			return fmt.Sprintf("Defer:%d", c.Key)
		}
		return fmt.Sprintf("Defer:%d:%s", c.Key, c.Deferred.body())
	case KindExecute:
		return fmt.Sprintf("Execute:%d", c.Key)
	}
	return c.Kind.String()
}

// Introduce builds the IM line a depot sends to announce itself.
func Introduce(port int, name string) string {
	return Command{Kind: KindIM, Port: port, Name: name}.Encode()
}

// Deliver builds the line a depot sends to hand goods to a neighbour.
func Deliver(qty int, item string) string {
	return Command{Kind: KindDeliver, Qty: qty, Item: item}.Encode()
}
