// internal/simulator/table.go
package simulator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// builtinResponses is the canned reply set for the standard query commands.
// Values mirror a real unit idling at bench conditions.
var builtinResponses = map[string]string{
	"VERSION":    "JULABO_V3.0",
	"status":     "03 REMOTE START",
	"in_mode_05": "1",
	"in_mode_04": "0",
	"in_sp_06":   "14.55",
	"in_sp_00":   "2.00",
	"in_pv_00":   "14.55",
	"in_pv_02":   "---.--",
	"in_pv_01":   "-100",
}

// CommandTable maps exact command strings to canned responses. The table is
// populated once at simulator start and never mutated during a run.
type CommandTable struct {
	responses       map[string]string
	defaultResponse string
}

// NewCommandTable builds a table from the built-in set merged with
// overrides. Override keys replace or extend the built-ins.
func NewCommandTable(overrides map[string]string, defaultResponse string) *CommandTable {
	responses := make(map[string]string, len(builtinResponses)+len(overrides))
	for cmd, resp := range builtinResponses {
		responses[cmd] = resp
	}
	for cmd, resp := range overrides {
		responses[cmd] = resp
	}

	if defaultResponse == "" {
		defaultResponse = "OK"
	}

	return &CommandTable{
		responses:       responses,
		defaultResponse: defaultResponse,
	}
}

// Len returns the number of mapped commands
func (t *CommandTable) Len() int {
	return len(t.responses)
}

// Resolve maps one received command line (already trimmed of framing) to
// its response. The two out_ commands are parametric and handled before the
// exact-match lookup; anything unrecognized gets the default response, so a
// lookup miss never stalls the device.
func (t *CommandTable) Resolve(line string) string {
	switch {
	case strings.HasPrefix(line, "out_sp_00"):
		return t.resolveSetpoint(line)
	case strings.HasPrefix(line, "out_mode_05"):
		return t.resolveMode(line)
	}

	if resp, ok := t.responses[line]; ok {
		return resp
	}
	return t.defaultResponse
}

// resolveSetpoint handles "out_sp_00 <value>"
func (t *CommandTable) resolveSetpoint(line string) string {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return "Missing parameter for out_sp_00"
	}

	param := strings.TrimSpace(parts[1])
	if _, err := decimal.NewFromString(param); err != nil {
		return fmt.Sprintf("Invalid parameter for out_sp_00: %s", param)
	}
	return fmt.Sprintf("Setpoint updated to %s", param)
}

// resolveMode handles "out_mode_05 <0|1>"
func (t *CommandTable) resolveMode(line string) string {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		return "Missing parameter for out_mode_05"
	}

	if strings.TrimSpace(parts[1]) == "1" {
		return "Chiller turned on"
	}
	return "Chiller turned off"
}
