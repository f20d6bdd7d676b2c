package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"

	mbserver "github.com/tbrandon/mbserver"

	"github.com/Agrid-Dev/parasweep/internal/ports"
	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

// Input register map.
const (
	RegState = iota
	RegCurrent
	RegTotal
	RegSucceeded
	RegFailed
	RegWallU
	RegWindowU
	RegRoofU
	RegFloorU

	inputRegisterCount
)

// UValueScale is the fixed-point factor of the U-value registers.
const UValueScale int = 1000

// Config for the Modbus controller.
type Config struct {
	Addr   string
	UnitID byte // UnitID (Modbus slave/unit ID). Use an integer 1..247.
	// Defaults is the sweep started when a client sets coil 0.
	Defaults sweep.Form
}

type Controller struct {
	svc ports.SweepService
	cfg Config
	log *slog.Logger

	serv *mbserver.Server
}

func New(svc ports.SweepService, cfg Config, logger *slog.Logger) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{svc: svc, cfg: cfg, log: logger}, nil
}

// Run starts the Modbus server. Reads are served directly from the sweep
// progress. It blocks until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers BEFORE starting the TCP listener to avoid races inside mbserver
	// between handler registration and the server's goroutines.
	// Read Coils (function 1) - coil 0 is set while a sweep runs.
	serv.RegisterFunctionHandler(1, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		start, qty, exc := readRequest(frame.GetData(), 2000)
		if exc != nil {
			return []byte{}, exc
		}
		if start != 0 || qty != 1 {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		coilByte := byte(0)
		if c.svc.Get().State == sweep.StateRunning {
			coilByte = 0x01
		}
		// response: byte count (1) + coil bytes
		return []byte{1, coilByte}, &mbserver.Success
	})

	// Read Input Registers (function 4) - progress and current scenario.
	serv.RegisterFunctionHandler(4, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		start, qty, exc := readRequest(frame.GetData(), 125)
		if exc != nil {
			return []byte{}, exc
		}
		if start+qty > inputRegisterCount {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		regs := progressRegisters(c.svc.Get())[start : start+qty]

		// Build response: byte count + register bytes
		byteCount := len(regs) * 2
		resp := make([]byte, 1+byteCount)
		resp[0] = byte(byteCount)
		for i, r := range regs {
			binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
		}
		return resp, &mbserver.Success
	})

	// Write Single Coil (function 5) - setting coil 0 starts the default sweep.
	serv.RegisterFunctionHandler(5, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		addr := binary.BigEndian.Uint16(data[0:2])
		value := binary.BigEndian.Uint16(data[2:4])

		if addr != 0 {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		// a running sweep cannot be stopped from here
		if value != 0xFF00 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		if err := c.svc.Start(c.cfg.Defaults); err != nil {
			c.log.Warn("modbus: sweep rejected", "err", err)
			if errors.Is(err, sweep.ErrSweepRunning) {
				return []byte{}, &mbserver.SlaveDeviceBusy
			}
			return []byte{}, &mbserver.IllegalDataValue
		}

		// echo request (address + value)
		resp := make([]byte, 4)
		copy(resp, data[0:4])
		return resp, &mbserver.Success
	})

	// Now start listening after all handlers are registered.
	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}

	// Block until ctx.Done()
	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

func readRequest(data []byte, maxQty int) (start, qty int, exc *mbserver.Exception) {
	if len(data) < 4 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	start = int(binary.BigEndian.Uint16(data[0:2]))
	qty = int(binary.BigEndian.Uint16(data[2:4]))
	if qty == 0 || qty > maxQty {
		return 0, 0, &mbserver.IllegalDataValue
	}
	return start, qty, nil
}

func progressRegisters(p sweep.Progress) []uint16 {
	regs := make([]uint16, inputRegisterCount)
	regs[RegState] = uint16(p.State)
	regs[RegCurrent] = encodeCount(p.Current)
	regs[RegTotal] = encodeCount(p.Total)
	regs[RegSucceeded] = encodeCount(p.Succeeded)
	regs[RegFailed] = encodeCount(p.Failed)
	for i, name := range sweep.UValueParams {
		regs[RegWallU+i] = encodeUValue(p.Scenario[name])
	}
	return regs
}

func encodeCount(n int) uint16 {
	return uint16(min(max(n, 0), math.MaxUint16))
}

func encodeUValue(v float64) uint16 {
	r := min(max(int(math.Round(v*float64(UValueScale))), 0), math.MaxUint16)
	return uint16(r)
}
