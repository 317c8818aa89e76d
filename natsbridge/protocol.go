package natsbridge

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/arloliu/livesub/types"
)

// subjects are the protocol subjects for one prefix.
type subjects struct {
	prefix      string
	subscribe   string
	unsubscribe string
	mutate      string
	heartbeat   string
}

func newSubjects(prefix string) subjects {
	return subjects{
		prefix:      prefix,
		subscribe:   prefix + ".subscribe",
		unsubscribe: prefix + ".unsubscribe",
		mutate:      prefix + ".mutate",
		heartbeat:   prefix + ".heartbeat",
	}
}

// all matches every protocol subject.
func (s subjects) all() string { return s.prefix + ".*" }

type subscribeRequest struct {
	ID       string     `json:"id"`
	Function string     `json:"function"`
	Args     types.Args `json:"args"`
	Inbox    string     `json:"inbox"`
}

// heartbeatMessage identifies a live client by its inbox prefix.
type heartbeatMessage struct {
	Client string `json:"client"`
}

// clientOf returns the client part of a subscription inbox.
func clientOf(inbox string) string {
	if i := strings.LastIndexByte(inbox, '.'); i > 0 {
		return inbox[:i]
	}

	return inbox
}

type unsubscribeRequest struct {
	ID string `json:"id"`
}

type mutateRequest struct {
	Function string     `json:"function"`
	Args     types.Args `json:"args"`
}

// reply answers a mutation, or acknowledges a subscribe request sent with a
// reply subject.
type reply struct {
	Value json.RawMessage `json:"value,omitempty"`
	Error *wireError      `json:"error,omitempty"`
}

// update is one result of a live query.
type update struct {
	Seq   uint64          `json:"seq"`
	Value json.RawMessage `json:"value,omitempty"`
	Error *wireError      `json:"error,omitempty"`
}

// wireError is an error as it crosses the wire.
type wireError struct {
	Function string `json:"function,omitempty"`
	Message  string `json:"message"`
}

func toWireError(function string, err error) *wireError {
	if fe, ok := asFunctionError(err); ok {
		return &wireError{Function: fe.Function, Message: fe.Message}
	}

	return &wireError{Function: function, Message: err.Error()}
}

// err turns a wire error back into a *types.FunctionError.
func (w *wireError) err() error {
	return &types.FunctionError{Function: w.Function, Message: w.Message}
}

// valueOrNull returns v, or the JSON literal null when v is empty.
func valueOrNull(v json.RawMessage) json.RawMessage {
	if len(v) == 0 {
		return json.RawMessage("null")
	}

	return v
}

func asFunctionError(err error) (*types.FunctionError, bool) {
	var fe *types.FunctionError
	ok := errors.As(err, &fe)

	return fe, ok
}
