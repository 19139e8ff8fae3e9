package task

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dechogo/hearing-gateway/internal/segment"
	"github.com/dechogo/hearing-gateway/internal/store"
	"github.com/dechogo/hearing-gateway/internal/wavio"

	"github.com/dechogo/hearing-gateway/internal/asr"
	"github.com/dechogo/hearing-gateway/internal/annotate"
)

// runAudioPipeline executes the full offline pipeline for one task over the
// audio at filePath: convert to WAV, transcribe, silence-pre-split,
// linguistic split + align, merge, and emit subtitles — ported from
// process_audio_task, with the same progress checkpoints and best-effort
// temp-file cleanup.
func (s *Service) runAudioPipeline(ctx context.Context, taskID, filePath string) error {
	if err := s.Store.UpdateProgress(ctx, taskID, progressStarted, nil); err != nil {
		return err
	}

	wavPath, err := s.Normalizer.Normalize(ctx, filePath)
	if err != nil {
		return wrapPipelineError("convert_to_wav", err)
	}
	if err = s.Store.UpdateProgress(ctx, taskID, progressConverted, nil); err != nil {
		return err
	}

	wf, err := wavio.DecodeFile(wavPath)
	if err != nil {
		return wrapPipelineError("decode_wav", err)
	}
	if wavPath != filePath {
		if rmErr := os.Remove(wavPath); rmErr != nil {
			s.Logger.Warn("failed to remove temporary wav file", "path", wavPath, "error", rmErr)
		}
	}

	transcript, err := asr.Transcribe(ctx, s.Recognizer, wf)
	if err != nil {
		return wrapPipelineError("transcribe_audio", err)
	}
	if err = s.Store.UpdateProgress(ctx, taskID, progressTranscribed, nil); err != nil {
		return err
	}

	fileDuration := float64(len(wf.Samples)) / float64(wf.SampleRate)
	duration := fileDuration
	if len(transcript.Tokens) > 0 {
		duration = transcript.Tokens[len(transcript.Tokens)-1].EndTime
	}

	segments := segment.SilencePreSplit(transcript, duration)
	if len(segments) > 0 {
		last := &segments[len(segments)-1]
		if duration > last.End {
			last.End = duration
		}
	}

	splitCfg := annotate.SplitConfig{
		SourceLanguage: s.Cfg.App.SourceLanguage,
		MaxLength:      s.Cfg.App.MaxSplitLength,
		UseLLM:         s.Cfg.App.UseLLM,
	}
	refined, err := annotate.SplitAll(ctx, s.Annotator, s.LLM, segments, splitCfg)
	if err != nil {
		return wrapPipelineError("split_sentences", err)
	}
	refined = segment.ValidateAndMerge(refined, segment.DefaultMergeConfig())
	if err = s.Store.UpdateProgress(ctx, taskID, progressSplit, nil); err != nil {
		return err
	}

	srtContent := segment.GenerateSRT(refined)
	result := Result{Segments: segment.ToJSON(refined, s.Cfg.App.TargetLanguage), SRT: srtContent}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	return s.Store.CompleteTask(ctx, taskID, duration, string(resultJSON))
}

// runTextToAudioBridge converts an uploaded .txt/.md file to narrated audio,
// then feeds that audio through the regular pipeline — ported from
// convert_text_and_process.
func (s *Service) runTextToAudioBridge(ctx context.Context, taskID string) error {
	t, err := s.Store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(t.FilePath)
	if err != nil {
		return wrapPipelineError("read_uploaded_text", err)
	}

	text := string(raw)
	if isMarkdown(t.Filename) {
		text = CleanMarkdown(text)
	}

	synth, err := s.TTS.Synthesize(ctx, text, false)
	if err != nil {
		if markErr := s.Store.FailTask(ctx, taskID, "Text to Audio failed: "+err.Error()); markErr != nil {
			s.Logger.Warn("failed to record task failure", "task_id", taskID, "error", markErr)
		}
		_ = os.Remove(t.FilePath)
		return wrapPipelineError("generate_audio", err)
	}
	_ = os.Remove(t.FilePath)

	newPath := fmt.Sprintf("%s/%s_generated.wav", s.UploadsDir, taskID)
	if err = os.WriteFile(newPath, synth.Audio, 0o644); err != nil {
		return wrapPipelineError("write_generated_audio", err)
	}

	t.FilePath = newPath
	if err = s.Store.UpdateProgress(ctx, taskID, t.Progress, strPtr("Transcribing generated audio...")); err != nil {
		return err
	}

	return s.runAudioPipeline(ctx, taskID, t.FilePath)
}

func isMarkdown(filename string) bool {
	return len(filename) > 3 && filename[len(filename)-3:] == ".md"
}

// worker pulls task IDs off the service queue and runs the appropriate
// pipeline, logging the error and marking the task failed (never crashing
// the worker) on any error — mirroring process_audio_task's
// broad except-and-log-and-mark-failed handling.
func (s *Service) worker(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case taskID := <-s.queue:
			s.runOne(ctx, id, taskID)
		}
	}
}

func (s *Service) runOne(ctx context.Context, workerID int, taskID string) {
	start := time.Now()
	t, err := s.Store.GetTask(ctx, taskID)
	if err != nil {
		s.Logger.Error("worker: task lookup failed", "worker", workerID, "task_id", taskID, "error", err)
		return
	}

	if isTextFile(t.Filename) && isPendingTextConversion(t) {
		err = s.runTextToAudioBridge(ctx, taskID)
	} else {
		err = s.runAudioPipeline(ctx, taskID, t.FilePath)
	}

	if err != nil {
		s.Logger.Error("task failed", "task_id", taskID, "error", err, "elapsed", time.Since(start))
		if markErr := s.Store.FailTask(ctx, taskID, err.Error()); markErr != nil {
			s.Logger.Warn("failed to record task failure", "task_id", taskID, "error", markErr)
		}
		return
	}

	s.Logger.Info("task completed", "task_id", taskID, "elapsed", time.Since(start))
}

func isTextFile(filename string) bool {
	return len(filename) > 4 && (filename[len(filename)-4:] == ".txt" || isMarkdown(filename))
}

// isPendingTextConversion distinguishes a text-upload task (still holding
// its original .txt/.md file, message set by UploadTextForAudio) from an
// audio task that merely happens to share a text-like filename extension;
// once the bridge swaps in generated audio it calls runAudioPipeline
// directly rather than re-entering here.
func isPendingTextConversion(t *store.Task) bool {
	return t.Message != nil && *t.Message == "Queued for audio generation..."
}

// StartWorkers launches the configured number of pipeline worker goroutines.
// They run until ctx is canceled.
func (s *Service) StartWorkers(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		go s.worker(ctx, i)
	}
}
