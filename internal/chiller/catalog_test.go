// internal/chiller/catalog_test.go
package chiller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acascioli/serial-chiller/internal/model"
)

func TestBuildCommand_Query(t *testing.T) {
	cmd, err := BuildCommand(&model.CommandRequest{Name: "in_sp_00"})
	require.NoError(t, err)
	assert.Equal(t, "in_sp_00", cmd)
}

func TestBuildCommand_WriteWithParam(t *testing.T) {
	cmd, err := BuildCommand(&model.CommandRequest{Name: "out_sp_00", Param: "12.50"})
	require.NoError(t, err)
	assert.Equal(t, "out_sp_00 12.50", cmd)

	cmd, err = BuildCommand(&model.CommandRequest{Name: "out_mode_05", Param: "1"})
	require.NoError(t, err)
	assert.Equal(t, "out_mode_05 1", cmd)
}

func TestBuildCommand_ParamValidation(t *testing.T) {
	_, err := BuildCommand(&model.CommandRequest{Name: "out_sp_00"})
	assert.Error(t, err, "write command without parameter must be rejected")

	_, err = BuildCommand(&model.CommandRequest{Name: "out_sp_00", Param: "warm"})
	assert.Error(t, err, "non-numeric setpoint must be rejected")

	_, err = BuildCommand(&model.CommandRequest{Name: "out_mode_05", Param: "2"})
	assert.Error(t, err, "mode other than 0/1 must be rejected")

	_, err = BuildCommand(&model.CommandRequest{Name: "in_pv_00", Param: "5"})
	assert.Error(t, err, "query command with parameter must be rejected")
}

func TestBuildCommand_Unknown(t *testing.T) {
	_, err := BuildCommand(&model.CommandRequest{Name: "in_pv_99"})
	assert.Error(t, err)
}

func TestBuildCommand_RawPassthrough(t *testing.T) {
	// Raw text goes to the wire as typed, minus any line endings the
	// operator pasted in; validation is deliberately skipped
	cmd, err := BuildCommand(&model.CommandRequest{Raw: "out_sp_99 nonsense\r\n"})
	require.NoError(t, err)
	assert.Equal(t, "out_sp_99 nonsense", cmd)

	_, err = BuildCommand(&model.CommandRequest{Raw: "\r\n"})
	assert.Error(t, err, "raw command that is only framing must be rejected")
}

func TestBuildCommand_SetpointNotNormalized(t *testing.T) {
	// Trailing zeros must survive: the wire text is echoed back by the
	// device and operators compare it byte for byte
	cmd, err := BuildCommand(&model.CommandRequest{Name: "out_sp_00", Param: "7.00"})
	require.NoError(t, err)
	assert.Equal(t, "out_sp_00 7.00", cmd)
}

func TestLookupCommand(t *testing.T) {
	spec, ok := LookupCommand("VERSION")
	require.True(t, ok)
	assert.Equal(t, model.CommandKindQuery, spec.Kind)
	assert.False(t, spec.TakesParam)

	_, ok = LookupCommand("bogus")
	assert.False(t, ok)
}

func TestParseReading(t *testing.T) {
	value, ok := ParseReading("14.55")
	require.True(t, ok)
	assert.Equal(t, "14.55", value.String())

	value, ok = ParseReading("+2.00")
	require.True(t, ok)
	assert.Equal(t, "2", value.String())

	value, ok = ParseReading("-100")
	require.True(t, ok)
	assert.Equal(t, "-100", value.String())

	_, ok = ParseReading("---.--")
	assert.False(t, ok, "dashed display means no value")

	_, ok = ParseReading("JULABO_V3.0")
	assert.False(t, ok)

	_, ok = ParseReading("")
	assert.False(t, ok)
}
