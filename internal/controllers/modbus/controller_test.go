package modbusctrl

import (
	"encoding/binary"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/goburrow/modbus"

	"github.com/Agrid-Dev/parasweep/internal/logging"
	"github.com/Agrid-Dev/parasweep/internal/sweep"
)

// fake service for tests
type spySweepService struct {
	mu sync.Mutex
	p  sweep.Progress

	startErr   error
	startCalls []sweep.Form
}

func (f *spySweepService) Get() sweep.Progress {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.p.Clone()
}

func (f *spySweepService) Start(form sweep.Form) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls = append(f.startCalls, form)
	if f.startErr != nil {
		return f.startErr
	}
	f.p.State = sweep.StateRunning
	return nil
}

func findFreeTCPAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("free port: %v", err)
	}
	a := l.Addr().String()
	_ = l.Close()
	return a
}

const settle = 50 * time.Millisecond

var defaultForm = sweep.Form{
	Wall:   sweep.FieldInput{Start: "0.2", End: "0.3", Step: "0.1"},
	Window: sweep.FieldInput{Start: "1.2", End: "1.2", Step: "0.1"},
	Roof:   sweep.FieldInput{Start: "0.15", End: "0.15", Step: "0.05"},
	Floor:  sweep.FieldInput{Start: "0.25", End: "0.25", Step: "0.05"},
}

func startController(t *testing.T, fs *spySweepService) modbus.Client {
	t.Helper()
	addr := findFreeTCPAddr(t)

	ctrl, err := New(fs, Config{Addr: addr, UnitID: 1, Defaults: defaultForm}, logging.Discard())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := t.Context()
	go func() {
		_ = ctrl.Run(ctx)
	}()

	time.Sleep(settle)

	handler := modbus.NewTCPClientHandler(addr)
	handler.Timeout = time.Second
	if err := handler.Connect(); err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { handler.Close() })
	return modbus.NewClient(handler)
}

func TestNewValidation(t *testing.T) {
	if _, err := New(&spySweepService{}, Config{}, nil); err == nil {
		t.Fatal("expected error when UnitID missing")
	}
	c, err := New(&spySweepService{}, Config{UnitID: 3}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.cfg.Addr != "127.0.0.1:1502" {
		t.Fatalf("expected default Addr, got %q", c.cfg.Addr)
	}
}

func TestModbusProgressRegisters(t *testing.T) {
	fs := &spySweepService{}
	fs.p = sweep.Progress{
		State:     sweep.StateRunning,
		Current:   3,
		Total:     8,
		Succeeded: 1,
		Failed:    1,
		Scenario: map[string]float64{
			sweep.ParamWall:   0.25,
			sweep.ParamWindow: 1.6,
			sweep.ParamRoof:   0.15,
			sweep.ParamFloor:  0.2,
		},
	}
	client := startController(t, fs)

	coils, err := client.ReadCoils(0, 1)
	if err != nil {
		t.Fatalf("read coils: %v", err)
	}
	if len(coils) != 1 || coils[0]&0x01 != 1 {
		t.Fatalf("expected running coil set, got %v", coils)
	}

	res, err := client.ReadInputRegisters(0, 9)
	if err != nil {
		t.Fatalf("read input: %v", err)
	}
	if len(res) != 18 {
		t.Fatalf("expected 18 bytes got %d", len(res))
	}
	get := func(i int) uint16 { return binary.BigEndian.Uint16(res[i*2 : i*2+2]) }
	want := []uint16{uint16(sweep.StateRunning), 3, 8, 1, 1, 250, 1600, 150, 200}
	for i, w := range want {
		if get(i) != w {
			t.Errorf("IR%d = %d, want %d", i, get(i), w)
		}
	}
	if decodeUValue(get(RegWindowU)) != 1.6 {
		t.Errorf("window U-value = %v, want 1.6", decodeUValue(get(RegWindowU)))
	}

	// partial read from the middle of the map
	res, err = client.ReadInputRegisters(RegTotal, 2)
	if err != nil {
		t.Fatalf("read input: %v", err)
	}
	if binary.BigEndian.Uint16(res[0:2]) != 8 {
		t.Fatalf("total mismatch")
	}

	if _, err := client.ReadInputRegisters(8, 2); err == nil {
		t.Fatal("expected error reading past the register map")
	}
}

func TestModbusCoilStartsDefaultSweep(t *testing.T) {
	fs := &spySweepService{p: sweep.Progress{State: sweep.StateIdle}}
	client := startController(t, fs)

	coils, err := client.ReadCoils(0, 1)
	if err != nil {
		t.Fatalf("read coils: %v", err)
	}
	if coils[0]&0x01 != 0 {
		t.Fatalf("expected idle coil clear")
	}

	if _, err := client.WriteSingleCoil(0, 0xFF00); err != nil {
		t.Fatalf("write coil: %v", err)
	}
	time.Sleep(settle)
	fs.mu.Lock()
	if len(fs.startCalls) != 1 || fs.startCalls[0] != defaultForm {
		fs.mu.Unlock()
		t.Fatalf("Start not called with defaults: %+v", fs.startCalls)
	}
	fs.mu.Unlock()

	// clearing the coil is rejected
	if _, err := client.WriteSingleCoil(0, 0x0000); err == nil {
		t.Fatal("expected error clearing coil")
	}
}

func TestModbusCoilBusy(t *testing.T) {
	fs := &spySweepService{startErr: sweep.ErrSweepRunning}
	client := startController(t, fs)

	if _, err := client.WriteSingleCoil(0, 0xFF00); err == nil {
		t.Fatal("expected busy exception")
	}
}

// decodeUValue is how a client reads back a U-value register.
func decodeUValue(u uint16) float64 {
	return float64(u) / float64(UValueScale)
}

func TestEncodeUValue(t *testing.T) {
	tests := []struct {
		in   float64
		want uint16
	}{
		{0.15, 150},
		{2.5, 2500},
		{-1, 0},
		{100, 65535},
	}
	for _, tt := range tests {
		if got := encodeUValue(tt.in); got != tt.want {
			t.Errorf("encodeUValue(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
	for _, v := range []float64{0, 0.15, 1.6, 2.5} {
		if got := decodeUValue(encodeUValue(v)); got != v {
			t.Errorf("decodeUValue(encodeUValue(%v)) = %v", v, got)
		}
	}
}
