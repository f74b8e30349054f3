package engine_test

import (
	"errors"
	"testing"
	"time"

	"codeberg.org/mutker/obdmon/internal/canbus"
	"codeberg.org/mutker/obdmon/internal/engine"
	"codeberg.org/mutker/obdmon/internal/gpio"
	"codeberg.org/mutker/obdmon/internal/obd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sentFrame struct {
	id      uint32
	payload [8]byte
}

type fakeBus struct {
	pending []canbus.Frame
	sent    []sentFrame
	sendErr error
}

func (b *fakeBus) Send(id uint32, payload [8]byte) error {
	if b.sendErr != nil {
		return b.sendErr
	}
	b.sent = append(b.sent, sentFrame{id: id, payload: payload})

	return nil
}

func (b *fakeBus) TryReceive() (canbus.Frame, bool) {
	if len(b.pending) == 0 {
		return canbus.Frame{}, false
	}
	frame := b.pending[0]
	b.pending = b.pending[1:]

	return frame, true
}

func (b *fakeBus) Close() error {
	return nil
}

func (b *fakeBus) queue(frame canbus.Frame) {
	b.pending = append(b.pending, frame)
}

func rpmReply(rpm int) canbus.Frame {
	raw := rpm * 4

	return canbus.Frame{
		ID:     obd.ReplyID,
		Length: 8,
		Data:   [8]byte{0x04, 0x41, obd.PIDEngineRPM, byte(raw >> 8), byte(raw), 0, 0, 0},
	}
}

func speedReply(speed int) canbus.Frame {
	return canbus.Frame{
		ID:     obd.ReplyID,
		Length: 8,
		Data:   [8]byte{0x03, 0x41, obd.PIDVehicleSpeed, byte(speed), 0, 0, 0, 0},
	}
}

func newTestMonitor(bus canbus.Bus, keyIn bool) *engine.Monitor {
	settings := engine.NewSettings(1600, 10, 60000)

	return engine.NewMonitor(bus, gpio.Static(keyIn), &fakeSleepController{}, settings, engine.Config{
		RequestPeriod: 100,
	})
}

func TestStepTransmitsRequestsWhenKeyIn(t *testing.T) {
	bus := &fakeBus{}
	monitor := newTestMonitor(bus, true)

	monitor.Step(time.Now())

	require.Len(t, bus.sent, 2, "one request per quantity")
	for _, sent := range bus.sent {
		assert.Equal(t, obd.RequestID, sent.id)
	}
	assert.Equal(t, obd.Request(obd.RPM), bus.sent[0].payload)
	assert.Equal(t, obd.Request(obd.Speed), bus.sent[1].payload)
}

func TestStepSkipsTransmitWhenKeyOut(t *testing.T) {
	bus := &fakeBus{}
	monitor := newTestMonitor(bus, false)

	now := time.Now()
	for i := 0; i < 20; i++ {
		monitor.Step(now.Add(time.Duration(i) * 100 * time.Millisecond))
	}

	assert.Empty(t, bus.sent, "requests must not go out with the key out")

	// Samples are still classified while the key is out
	rpm, _ := monitor.Harvest()
	assert.Equal(t, 2, rpm.OffSeconds)
}

func TestStepClassifiesOnlyWhenPeriodElapsed(t *testing.T) {
	bus := &fakeBus{}
	monitor := newTestMonitor(bus, true)

	now := time.Now()
	monitor.Step(now)
	monitor.Step(now.Add(50 * time.Millisecond))

	require.Len(t, bus.sent, 2, "the second step is inside the period for both quantities")
}

func TestReplyUpdatesReadingForNextClassification(t *testing.T) {
	bus := &fakeBus{}
	monitor := newTestMonitor(bus, true)

	now := time.Now()
	monitor.Step(now)

	bus.queue(rpmReply(2000))
	bus.queue(speedReply(60))
	monitor.Step(now.Add(100 * time.Millisecond))

	rpm, speed := monitor.Harvest()
	assert.Equal(t, 2000, rpm.Min)
	assert.Equal(t, 2000, rpm.Max)
	assert.Equal(t, 60, speed.Min)
	assert.Equal(t, 60, speed.Max)
}

func TestForeignFrameIgnored(t *testing.T) {
	bus := &fakeBus{}
	monitor := newTestMonitor(bus, true)

	now := time.Now()
	monitor.Step(now)

	// Same shape as a valid RPM reply but from another responder
	bus.queue(canbus.Frame{
		ID:     0x7E9,
		Length: 8,
		Data:   [8]byte{0x04, 0x41, obd.PIDEngineRPM, 0x1F, 0x40, 0, 0, 0},
	})
	monitor.Step(now.Add(100 * time.Millisecond))

	rpm, _ := monitor.Harvest()
	assert.Equal(t, 0, rpm.Min, "a foreign frame must not produce a reading")
	assert.Equal(t, 0, rpm.Max)
}

func TestMissedReplyCountsAsOff(t *testing.T) {
	bus := &fakeBus{}
	monitor := newTestMonitor(bus, true)

	now := time.Now()
	for i := 0; i < 10; i++ {
		monitor.Step(now.Add(time.Duration(i) * 100 * time.Millisecond))
	}

	rpm, speed := monitor.Harvest()
	assert.Equal(t, 1, rpm.OffSeconds, "10 samples at 100ms is 1 second, all off")
	assert.Equal(t, 1, speed.OffSeconds)
	assert.Equal(t, 0, rpm.IdleSeconds)
	assert.Equal(t, 0, rpm.ActiveSeconds)
}

func TestClassificationScenario(t *testing.T) {
	bus := &fakeBus{}
	monitor := newTestMonitor(bus, true)

	// Readings classified per step: 0, 0, 1200, 1800, 2200
	values := []int{0, 0, 1200, 1800, 2200}
	now := time.Now()
	for i, value := range values {
		if value != 0 {
			bus.queue(rpmReply(value))
		}
		monitor.Step(now.Add(time.Duration(i) * 100 * time.Millisecond))
	}

	rpm, _ := monitor.Harvest()
	assert.Equal(t, 1800, rpm.Min)
	assert.Equal(t, 2200, rpm.Max)
	assert.Equal(t, 2000, rpm.Mean)
}

func TestHarvestResets(t *testing.T) {
	bus := &fakeBus{}
	monitor := newTestMonitor(bus, true)

	now := time.Now()
	bus.queue(rpmReply(2000))
	monitor.Step(now)
	monitor.Step(now.Add(100 * time.Millisecond))

	first, _ := monitor.Harvest()
	assert.Equal(t, 2000, first.Max)

	// A second harvest before any new classification is all zeros
	second, speedSecond := monitor.Harvest()
	assert.Equal(t, engine.Report{}, second)
	assert.Equal(t, engine.Report{}, speedSecond)
}

func TestTransmitFailureDoesNotStopClassification(t *testing.T) {
	bus := &fakeBus{sendErr: errors.New("no ack")}
	monitor := newTestMonitor(bus, true)

	now := time.Now()
	for i := 0; i < 20; i++ {
		monitor.Step(now.Add(time.Duration(i) * 100 * time.Millisecond))
	}

	rpm, _ := monitor.Harvest()
	assert.Equal(t, 2, rpm.OffSeconds, "failed sends fold into the off bucket")
}

func TestMaybeFastPublish(t *testing.T) {
	bus := &fakeBus{}
	monitor := newTestMonitor(bus, true)

	now := time.Now()
	monitor.Step(now)

	// Reading arrives between polls and is pending for the next one
	bus.queue(rpmReply(2000))
	monitor.Step(now.Add(10 * time.Millisecond))

	at := now.Add(20 * time.Millisecond)
	assert.True(t, monitor.MaybeFastPublish(at, true))
	assert.False(t, monitor.MaybeFastPublish(at, true), "immediate retry inside the period")
	assert.False(t, monitor.MaybeFastPublish(at.Add(30*time.Second), true))
	assert.True(t, monitor.MaybeFastPublish(at.Add(61*time.Second), true))
}

func TestMaybeFastPublishRequiresConnection(t *testing.T) {
	bus := &fakeBus{}
	monitor := newTestMonitor(bus, true)

	now := time.Now()
	monitor.Step(now)
	bus.queue(rpmReply(2000))
	monitor.Step(now.Add(10 * time.Millisecond))

	assert.False(t, monitor.MaybeFastPublish(now.Add(20*time.Millisecond), false))
}

func TestMaybeFastPublishDisabledByZeroPeriod(t *testing.T) {
	bus := &fakeBus{}
	settings := engine.NewSettings(1600, 10, 0)
	monitor := engine.NewMonitor(bus, gpio.Static(true), &fakeSleepController{}, settings, engine.Config{
		RequestPeriod: 100,
	})

	now := time.Now()
	monitor.Step(now)
	bus.queue(rpmReply(2000))
	monitor.Step(now.Add(10 * time.Millisecond))

	assert.False(t, monitor.MaybeFastPublish(now.Add(time.Hour), true))
}

func TestMaybeFastPublishRequiresActiveEngine(t *testing.T) {
	bus := &fakeBus{}
	monitor := newTestMonitor(bus, true)

	now := time.Now()
	monitor.Step(now)
	bus.queue(rpmReply(1200)) // below the 1600 idle threshold
	monitor.Step(now.Add(10 * time.Millisecond))

	assert.False(t, monitor.MaybeFastPublish(now.Add(20*time.Millisecond), true))
}
