package session

import (
	"github.com/skywave-gnss/gnssd/internal/lexer"
	"go.bug.st/serial"
)

// baudRung is one entry of the hunt-and-latch autobaud ladder (spec §9
// "Autobaud ladder", §4.B.7).
type baudRung struct {
	Baud   int
	Parity serial.Parity
	Stop   serial.StopBits
}

// huntLadder is the fixed vector of serial settings tried in order when
// a device on a TTY produces two consecutive bad frames with no fixed
// baud configured. It starts at 38400, the default of a TOP708-class
// sensor (internal/drivers/top708), then tries the other common
// no-parity rates from 4800 up to 115200, then 9600 with even and odd
// parity.
var huntLadder = []baudRung{
	{Baud: 38400, Parity: serial.NoParity, Stop: serial.OneStopBit},
	{Baud: 4800, Parity: serial.NoParity, Stop: serial.OneStopBit},
	{Baud: 9600, Parity: serial.NoParity, Stop: serial.OneStopBit},
	{Baud: 19200, Parity: serial.NoParity, Stop: serial.OneStopBit},
	{Baud: 57600, Parity: serial.NoParity, Stop: serial.OneStopBit},
	{Baud: 115200, Parity: serial.NoParity, Stop: serial.OneStopBit},
	{Baud: 9600, Parity: serial.EvenParity, Stop: serial.OneStopBit},
	{Baud: 9600, Parity: serial.OddParity, Stop: serial.OneStopBit},
}

// nextHuntSetting advances the baud index, wrapping around; a failure
// to sync at any rung is never fatal (spec §9).
func (s *Session) nextHuntSetting() baudRung {
	s.baudIndex = (s.baudIndex + 1) % len(huntLadder)
	return huntLadder[s.baudIndex]
}

// AdvanceHunt applies the next hunt-ladder rung to the serial port and
// resets the lexer/bad-streak bookkeeping (spec §4.B.7, §4.E.4).
func (s *Session) AdvanceHunt() error {
	if s.serialPort == nil || s.fixedBaud {
		return nil
	}
	rung := s.nextHuntSetting()
	mode := &serial.Mode{
		BaudRate: rung.Baud,
		Parity:   rung.Parity,
		StopBits: rung.Stop,
	}
	if err := s.serialPort.SetMode(mode); err != nil {
		return err
	}
	s.logger.WithField("device", s.Path).WithField("baud", rung.Baud).
		Info("autobaud: advancing hunt rung")
	s.Lexer = lexer.New()
	return nil
}

// SetBaud reconfigures an open serial port to a fixed rate, for a
// driver's SpeedSwitcher hook (spec §4.D.2 "speed_switcher") once it
// has negotiated a rate change with the receiver itself. A no-op on
// non-serial sessions.
func (s *Session) SetBaud(baud int) error {
	if s.serialPort == nil {
		return nil
	}
	s.fixedBaud = true
	if err := s.serialPort.SetMode(&serial.Mode{BaudRate: baud, Parity: serial.NoParity, StopBits: serial.OneStopBit}); err != nil {
		return err
	}
	s.Lexer = lexer.New()
	return nil
}

// IsTTY reports whether the session's transport is a serial line (spec
// §4.B.7 hunt-failure guard, §4.E.4 reconnect policy).
func (s *Session) IsTTY() bool { return s.isTTY }
