package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"live-interview-service/internal/observability/logging"
	"live-interview-service/internal/observability/metrics"
	"live-interview-service/internal/service/segment"
)

// DefaultSegmentInterval is the length of one audio segment.
const DefaultSegmentInterval = 60 * time.Second

// Config controls capture and segmentation.
type Config struct {
	SegmentInterval time.Duration
	DeviceName      string // empty selects the system default
	SampleRate      int
	Channels        int
	Format          string // flac, wav, pcm
}

// SegmentHandler receives every emitted segment, in sequence order. It is
// called with the loop's lock held and must not block.
type SegmentHandler func(seg segment.AudioSegment)

// Loop owns the microphone for one session. Every SegmentInterval it stops
// the device, emits the buffered audio as a segment and restarts the device.
// A small amount of audio may be lost at each boundary while the device
// restarts.
type Loop struct {
	sessionID string
	open      Opener
	cfg       Config
	handler   SegmentHandler
	gen       *segment.Generator
	logger    zerolog.Logger
	metrics   *metrics.Metrics

	// mu serializes rotation and teardown.
	mu      sync.Mutex
	actx    Context
	dev     CaptureDevice
	started bool
	stopped bool

	// bufMu guards buf only; the device callback takes it.
	bufMu sync.Mutex
	buf   bytes.Buffer

	cancel   context.CancelFunc
	loopDone chan struct{}
	stopOnce sync.Once
}

// NewLoop creates a capture loop.
func NewLoop(sessionID string, open Opener, cfg Config, handler SegmentHandler) *Loop {
	if cfg.SegmentInterval <= 0 {
		cfg.SegmentInterval = DefaultSegmentInterval
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	return &Loop{
		sessionID: sessionID,
		open:      open,
		cfg:       cfg,
		handler:   handler,
		gen:       segment.New(),
		logger:    logging.WithSession("capture", sessionID),
		metrics:   metrics.DefaultMetrics,
	}
}

// Start acquires the device and begins segmenting. Failures are returned
// wrapped in ErrDeviceUnavailable and leave nothing acquired. Start may be
// called once.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.started {
		return errors.New("capture loop already started")
	}

	actx, err := l.open()
	if err != nil {
		return deviceErr(err)
	}
	device, err := FindDevice(actx, l.cfg.DeviceName)
	if err != nil {
		actx.Close()
		return deviceErr(err)
	}
	dev, err := actx.NewCapture(device, CaptureConfig{
		SampleRate: uint32(l.cfg.SampleRate),
		Channels:   uint32(l.cfg.Channels),
	})
	if err != nil {
		actx.Close()
		return deviceErr(err)
	}
	dev.SetCallback(l.onData)
	if err := dev.Start(); err != nil {
		dev.ClearCallback()
		dev.Close()
		actx.Close()
		return deviceErr(err)
	}

	l.actx = actx
	l.dev = dev
	l.started = true

	loopCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.loopDone = make(chan struct{})
	go l.run(loopCtx)

	deviceName := "system default"
	if device != nil {
		deviceName = device.Name
	}
	l.logger.Info().
		Str("device", deviceName).
		Dur("segmentInterval", l.cfg.SegmentInterval).
		Str("format", l.cfg.Format).
		Msg("Audio capture started")
	return nil
}

func deviceErr(err error) error {
	if errors.Is(err, ErrDeviceUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
}

func (l *Loop) onData(data []byte, _ uint32) {
	l.bufMu.Lock()
	l.buf.Write(data)
	l.bufMu.Unlock()
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.loopDone)

	ticker := time.NewTicker(l.cfg.SegmentInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// A boundary and Stop can be ready together; Stop wins.
			if ctx.Err() != nil {
				return
			}
			l.rotate(false)
		}
	}
}

// Stop ends segmentation, emits exactly one final segment with whatever
// audio is buffered (possibly none) and releases the device. It returns
// after the final segment has been handed off. Safe to call repeatedly and
// before Start; a loop that never started emits nothing.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		l.mu.Lock()
		started := l.started
		cancel, done := l.cancel, l.loopDone
		l.mu.Unlock()

		if !started {
			l.mu.Lock()
			l.stopped = true
			l.mu.Unlock()
			return
		}
		cancel()
		<-done
		l.rotate(true)
	})
}

// rotate closes the current segment. For the final segment the device is
// released instead of restarted.
func (l *Loop) rotate(final bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped || l.dev == nil {
		return
	}

	// Stop returns only after the callback has drained.
	l.dev.Stop()

	l.bufMu.Lock()
	pcm := make([]byte, l.buf.Len())
	copy(pcm, l.buf.Bytes())
	l.buf.Reset()
	l.bufMu.Unlock()

	if final {
		l.release()
	} else if err := l.dev.Start(); err != nil {
		// Keep segmenting; later boundaries emit whatever audio arrives.
		l.logger.Error().Err(err).Msg("Failed to restart capture device")
	}

	capturedAt := time.Now()
	data, err := Encode(l.cfg.Format, pcm, l.cfg.SampleRate, l.cfg.Channels)
	if err != nil {
		l.logger.Error().Err(err).Str("format", l.cfg.Format).Msg("Segment encoding failed, sending raw PCM")
		data = pcm
	}

	seg := segment.AudioSegment{
		SequenceIndex: l.gen.Next(),
		Bytes:         data,
		CapturedAt:    capturedAt,
		IsFinal:       final,
	}
	l.metrics.RecordSegmentCaptured(len(seg.Bytes), final)
	l.logger.Debug().
		Int("segmentIndex", seg.SequenceIndex).
		Int("pcmBytes", len(pcm)).
		Int("bytes", len(seg.Bytes)).
		Bool("final", final).
		Msg("Segment captured")

	l.handler(seg)
}

func (l *Loop) release() {
	l.dev.ClearCallback()
	l.dev.Close()
	l.actx.Close()
	l.dev = nil
	l.actx = nil
	l.stopped = true
	l.logger.Info().Msg("Audio capture released")
}

// Segments returns how many segments have been emitted.
func (l *Loop) Segments() int {
	return l.gen.Issued()
}
