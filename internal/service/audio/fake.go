package audio

import (
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	fakeFrameSize     = 1024
	fakeBytesPerFrame = 2 // 16-bit mono
)

// FakeContext replays a WAV file as if it were a microphone. After the file
// is exhausted it feeds silence.
type FakeContext struct {
	pcm        []byte
	sampleRate int
	realtime   bool
}

// NewFakeContext loads 16-bit mono PCM from a WAV file.
func NewFakeContext(wavPath string, realtime bool) (*FakeContext, error) {
	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	return NewFakeContextPCM(stripWAVHeader(data), 16000, realtime), nil
}

// NewFakeContextPCM replays raw PCM.
func NewFakeContextPCM(pcm []byte, sampleRate int, realtime bool) *FakeContext {
	if sampleRate <= 0 {
		sampleRate = 16000
	}
	return &FakeContext{pcm: pcm, sampleRate: sampleRate, realtime: realtime}
}

func stripWAVHeader(data []byte) []byte {
	if len(data) > WAVHeaderSize && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return data[WAVHeaderSize:]
	}
	return data
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{pcm: f.pcm, sampleRate: f.sampleRate, realtime: f.realtime}, nil
}

// FakeCapture feeds PCM in fixed frames. Playback position carries over
// across Stop/Start so segment rotation does not replay the file.
type FakeCapture struct {
	pcm        []byte
	sampleRate int
	realtime   bool

	mu       sync.Mutex
	cb       DataCallback
	pos      int
	stopCh   chan struct{}
	feedDone chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

// feed delivers one chunk, or silence once the file is exhausted.
func (f *FakeCapture) feed(chunkBytes int) {
	f.mu.Lock()
	cb := f.cb
	start := f.pos
	end := min(start+chunkBytes, len(f.pcm))
	f.pos = end
	f.mu.Unlock()

	if cb == nil {
		return
	}
	if start >= len(f.pcm) {
		cb(make([]byte, chunkBytes), uint32(chunkBytes/fakeBytesPerFrame))
		return
	}
	chunk := make([]byte, end-start)
	copy(chunk, f.pcm[start:end])
	cb(chunk, uint32(len(chunk)/fakeBytesPerFrame))
}

func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.feedDone = make(chan struct{})
	stop, done := f.stopCh, f.feedDone

	chunkBytes := fakeFrameSize * fakeBytesPerFrame
	interval := time.Duration(fakeFrameSize) * time.Second / time.Duration(f.sampleRate)
	if !f.realtime {
		interval = time.Millisecond
	}

	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			default:
			}
			if !f.realtime && f.Exhausted() {
				// Fast mode feeds no trailing silence.
				<-stop
				return
			}
			f.feed(chunkBytes)
			select {
			case <-stop:
				return
			case <-time.After(interval):
			}
		}
	}()
	return nil
}

// Stop waits for the feeder to exit, so no callback runs after it returns.
func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.feedDone
}

func (f *FakeCapture) Close() {
	f.Stop()
}

// Exhausted reports whether the whole file has been fed.
func (f *FakeCapture) Exhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos >= len(f.pcm)
}
