// internal/model/request.go
package model

// OpenSessionRequest carries the parameters for opening a serial session.
// Zero-valued fields fall back to the configured defaults.
type OpenSessionRequest struct {
	Port           string     `json:"port" binding:"required"`
	BaudRate       int        `json:"baud_rate,omitempty"`
	DataBits       int        `json:"data_bits,omitempty"`
	Parity         Parity     `json:"parity,omitempty"`
	StopBits       StopBits   `json:"stop_bits,omitempty"`
	ReadTimeoutMs  int        `json:"read_timeout_ms,omitempty"`
	ByteDelayMs    int        `json:"byte_delay_ms,omitempty"`
	CommandDelayMs int        `json:"command_delay_ms,omitempty"`
	Terminator     Terminator `json:"terminator,omitempty"`
}
