// internal/chiller/catalog.go
package chiller

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/acascioli/serial-chiller/internal/model"
)

// Catalog holds the built-in command set of the chiller's RS-232 dialect.
// in_* commands query values, out_* commands write them; the two write
// commands take a parameter separated by a single space.
var Catalog = []model.CommandSpec{
	{Name: "VERSION", Kind: model.CommandKindQuery, Description: "Firmware version string"},
	{Name: "status", Kind: model.CommandKindQuery, Description: "Device status and mode"},
	{Name: "in_mode_05", Kind: model.CommandKindQuery, Description: "Circulator on/off state"},
	{Name: "in_mode_04", Kind: model.CommandKindQuery, Description: "Keylock state"},
	{Name: "in_sp_06", Kind: model.CommandKindQuery, Description: "High-temperature warning limit", Unit: "degC"},
	{Name: "in_sp_00", Kind: model.CommandKindQuery, Description: "Working temperature setpoint", Unit: "degC"},
	{Name: "in_pv_00", Kind: model.CommandKindQuery, Description: "Actual bath temperature", Unit: "degC"},
	{Name: "in_pv_02", Kind: model.CommandKindQuery, Description: "Heating power", Unit: "%"},
	{Name: "in_pv_01", Kind: model.CommandKindQuery, Description: "External Pt100 temperature", Unit: "degC"},
	{Name: "out_sp_00", Kind: model.CommandKindWrite, TakesParam: true, Description: "Set working temperature setpoint", Unit: "degC"},
	{Name: "out_mode_05", Kind: model.CommandKindWrite, TakesParam: true, Description: "Start (1) or stop (0) the circulator"},
}

// LookupCommand returns the catalog entry for a command name
func LookupCommand(name string) (*model.CommandSpec, bool) {
	for i := range Catalog {
		if Catalog[i].Name == name {
			return &Catalog[i], true
		}
	}
	return nil, false
}

// ValidateParam checks a write command's parameter against what the
// hardware accepts. Query commands must not carry a parameter.
func ValidateParam(spec *model.CommandSpec, param string) error {
	if !spec.TakesParam {
		if param != "" {
			return fmt.Errorf("command %s does not take a parameter", spec.Name)
		}
		return nil
	}

	if param == "" {
		return fmt.Errorf("command %s requires a parameter", spec.Name)
	}

	switch spec.Name {
	case "out_sp_00":
		if _, err := decimal.NewFromString(param); err != nil {
			return fmt.Errorf("invalid setpoint %q: %w", param, err)
		}
	case "out_mode_05":
		if param != "0" && param != "1" {
			return fmt.Errorf("invalid mode %q: must be 0 or 1", param)
		}
	}

	return nil
}

// BuildCommand assembles the command text for a request, without the
// terminator. Raw requests pass through verbatim after trimming any
// operator-typed line endings.
func BuildCommand(req *model.CommandRequest) (string, error) {
	if req.IsRaw() {
		text := strings.TrimRight(req.Raw, "\r\n")
		if text == "" {
			return "", fmt.Errorf("empty command")
		}
		return text, nil
	}

	spec, ok := LookupCommand(req.Name)
	if !ok {
		return "", fmt.Errorf("unknown command %q", req.Name)
	}

	param := strings.TrimSpace(req.Param)
	if err := ValidateParam(spec, param); err != nil {
		return "", err
	}

	if spec.TakesParam {
		return fmt.Sprintf("%s %s", spec.Name, param), nil
	}
	return spec.Name, nil
}

// ParseReading interprets a query response as a decimal reading. Dashed
// displays like "---.--" mean the channel has no value; the hardware also
// prefixes some readings with an explicit "+".
func ParseReading(response string) (decimal.Decimal, bool) {
	text := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(response), "+"))
	if text == "" || strings.Contains(text, "-") && strings.Contains(text, ".") && strings.Trim(text, "-.") == "" {
		return decimal.Zero, false
	}

	value, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}
