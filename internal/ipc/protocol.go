package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/rbright/vocode/internal/patterns"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Daemon commands.
const (
	CommandStatus         = "status"
	CommandSay            = "say"
	CommandStop           = "stop"
	CommandFocus          = "focus"
	CommandPatternsList   = "patterns.list"
	CommandPatternsAdd    = "patterns.add"
	CommandPatternsRemove = "patterns.remove"
	CommandPatternsReset  = "patterns.reset"
	CommandSet            = "set"
)

// Runtime options accepted by the set command.
const (
	OptionLLMMatching   = "llm_matching"
	OptionNotifications = "notifications"
	OptionLogging       = "logging"
)

// Options lists the runtime options in display order.
func Options() []string {
	return []string{OptionLLMMatching, OptionNotifications, OptionLogging}
}

type Request struct {
	Command   string         `json:"command"`
	Utterance string         `json:"utterance,omitempty"`
	Path      string         `json:"path,omitempty"`
	Line      int            `json:"line,omitempty"`
	Rule      *patterns.Rule `json:"rule,omitempty"`
	First     bool           `json:"first,omitempty"`
	Action    string         `json:"action,omitempty"`
	Option    string         `json:"option,omitempty"`
	Enabled   bool           `json:"enabled,omitempty"`
}

type Response struct {
	OK       bool          `json:"ok"`
	State    string        `json:"state,omitempty"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Stage    string        `json:"stage,omitempty"`
	Status   string        `json:"status,omitempty"`
	Patterns []PatternInfo `json:"patterns,omitempty"`
}

// PatternInfo describes one library entry in a patterns.list reply.
type PatternInfo struct {
	Label  string `json:"label"`
	Action string `json:"action"`
	Source string `json:"source"`
}

// toStruct carries v over the wire as a google.protobuf.Struct.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, err
	}
	return out, nil
}

func fromStruct(s *structpb.Struct, v any) error {
	if s == nil {
		return fmt.Errorf("empty payload")
	}
	data, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
