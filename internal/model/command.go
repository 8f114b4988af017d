// internal/model/command.go
package model

// CommandKind distinguishes read-only queries from parameterized writes
type CommandKind string

const (
	CommandKindQuery CommandKind = "QUERY"
	CommandKindWrite CommandKind = "WRITE"
)

// CommandSpec describes one entry of the built-in command catalog
type CommandSpec struct {
	Name        string      `json:"name"`
	Kind        CommandKind `json:"kind"`
	TakesParam  bool        `json:"takes_param"`
	Description string      `json:"description"`
	Unit        string      `json:"unit,omitempty"`
}

// CommandRequest is an operator-triggered command. Either Name references a
// catalog entry (with an optional Param for write commands), or Raw carries
// free-text to send verbatim.
type CommandRequest struct {
	Name  string `json:"name,omitempty"`
	Param string `json:"param,omitempty"`
	Raw   string `json:"raw,omitempty"`
}

// IsRaw checks whether the request bypasses the catalog
func (r *CommandRequest) IsRaw() bool {
	return r.Raw != ""
}
