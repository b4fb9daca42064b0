package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"live-interview-service/internal/app"
	"live-interview-service/internal/config"
	"live-interview-service/internal/observability/logging"
	"live-interview-service/internal/service/session"
	"live-interview-service/internal/service/stt"
)

// audioclient runs one local session from a WAV file (16 kHz 16-bit mono)
// and prints the transcript and suggested questions.
func main() {
	audioFile := flag.String("audio", "testdata/sample-16khz.wav", "Path to WAV file (16kHz 16-bit mono)")
	meetingID := flag.String("meeting", "local-"+time.Now().Format("150405"), "Meeting ID")
	segment := flag.Duration("segment", 10*time.Second, "Segment length")
	record := flag.Duration("record", 30*time.Second, "How long to record")
	realtime := flag.Bool("realtime", true, "Replay the file at real-time pace")
	flag.Parse()

	cfg := config.Load()
	cfg.Audio.Source = "fake"
	cfg.Audio.FakeWAVPath = *audioFile
	cfg.Audio.FakeRealtime = *realtime
	cfg.Session.SegmentInterval = *segment

	logging.Init(logging.Config{Level: cfg.Observability.LogLevel, Format: "console"})

	ctx := context.Background()
	adapter, closeAdapter, err := app.NewSTTAdapter(ctx, cfg.Transcription)
	if err != nil {
		log.Fatalf("transcription provider: %v", err)
	}
	if closeAdapter != nil {
		defer closeAdapter()
	}
	opener, err := app.NewAudioOpener(cfg.Audio)
	if err != nil {
		log.Fatalf("audio source: %v", err)
	}
	suggester, err := app.NewSuggestionClient(cfg.Suggestion)
	if err != nil {
		log.Fatalf("suggestion provider: %v", err)
	}
	fetcher, err := app.NewMetadataFetcher(cfg.Metadata)
	if err != nil {
		log.Fatalf("metadata provider: %v", err)
	}

	s := session.New(uuid.NewString(), *meetingID, app.SessionConfig(cfg), session.Deps{
		Audio:       opener,
		STT:         stt.NewClient(adapter, cfg.Session.PollInterval),
		Suggestions: suggester,
		Metadata:    fetcher,
	})
	defer s.Close()

	log.Printf("Recording %s from %s with %s", *record, *audioFile, adapter.Name())
	if err := s.Start(ctx); err != nil {
		log.Fatalf("start: %v", err)
	}
	time.Sleep(*record)
	s.Stop()

	drainCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if err := s.Drain(drainCtx); err != nil {
		log.Printf("Gave up waiting for transcriptions: %v", err)
	}

	snap := s.Snapshot()
	tr := s.Transcript()
	fmt.Printf("\nSession %s: %s, %s, %d segments\n", snap.ID, snap.Status, snap.Elapsed, snap.Segments)
	for _, e := range tr.Segments {
		fmt.Printf("  [%d] %s\n", e.SequenceIndex, e.Text)
	}
	if len(tr.Failed) > 0 {
		fmt.Printf("  failed segments: %v\n", tr.Failed)
	}
	fmt.Println("\nSuggested questions:")
	for i, q := range s.Suggestions() {
		fmt.Printf("  %d. %s\n", i+1, q)
	}
}
