// Package task orchestrates the end-to-end pipeline (component H): task
// CRUD, the upload/process/status/result/download/practice/progress/delete
// endpoints, and the background worker pool that actually runs audio
// through normalization, ASR, the linguistic splitter, and subtitle
// generation. Ported from original_source/server/routers/audio.py's
// process_audio_task/convert_text_and_process and their surrounding routes,
// reshaped from FastAPI path functions plus a SQLAlchemy session into a
// Service with explicit dependencies, the way the teacher gateway wires
// its own handlers in cmd/gateway/routes.go.
package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/dechogo/hearing-gateway/internal/annotate"
	"github.com/dechogo/hearing-gateway/internal/apperrors"
	"github.com/dechogo/hearing-gateway/internal/asr"
	"github.com/dechogo/hearing-gateway/internal/audioproc"
	"github.com/dechogo/hearing-gateway/internal/config"
	"github.com/dechogo/hearing-gateway/internal/segment"
	"github.com/dechogo/hearing-gateway/internal/store"
	"github.com/dechogo/hearing-gateway/internal/tts"
)

// Progress checkpoints emitted during the pipeline, matching
// process_audio_task's task.progress = 0.1/0.3/0.6/0.9/1.0 assignments.
const (
	progressStarted      = 0.1
	progressConverted    = 0.3
	progressTranscribed  = 0.6
	progressSplit        = 0.9
	progressComplete     = 1.0
)

// Result is the JSON shape stored in Task.Result and returned from
// GET /api/audio/result.
type Result struct {
	Segments []segment.JSONSegment `json:"segments"`
	SRT      string                `json:"srt"`
}

// Service wires the pipeline's external dependencies together. Recognizer,
// Annotator, LLM and TTS are interfaces over external HTTP services, so
// callers can substitute fakes; LLM may be nil. Store and Normalizer are
// concrete types.
type Service struct {
	Store       *store.Store
	Recognizer  asr.Recognizer
	Annotator   annotate.Annotator
	LLM         annotate.SemanticSplitter
	TTS         tts.Synthesizer
	Normalizer  *audioproc.Normalizer
	Cfg         *config.Config
	UploadsDir  string
	RecordingsDir string
	Logger      *slog.Logger

	queue chan string
}

// NewService constructs a Service and its work queue.
func NewService(
	st *store.Store, rec asr.Recognizer, ann annotate.Annotator, llm annotate.SemanticSplitter,
	synth tts.Synthesizer, norm *audioproc.Normalizer, cfg *config.Config, logger *slog.Logger,
) *Service {
	return &Service{
		Store:         st,
		Recognizer:    rec,
		Annotator:     ann,
		LLM:           llm,
		TTS:           synth,
		Normalizer:    norm,
		Cfg:           cfg,
		UploadsDir:    cfg.UploadsDir,
		RecordingsDir: cfg.RecordingsDir,
		Logger:        logger,
		queue:         make(chan string, 256),
	}
}

// UploadAudio saves an uploaded audio file and creates a pending task,
// mirroring upload_audio's non-text branch.
func (s *Service) UploadAudio(ctx context.Context, filename string, data io.Reader) (*store.Task, error) {
	id := uuid.NewString()
	if err := os.MkdirAll(s.UploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}

	filePath := filepath.Join(s.UploadsDir, fmt.Sprintf("%s_%s", id, filename))
	if err := writeFile(filePath, data); err != nil {
		return nil, err
	}

	t := &store.Task{ID: id, Status: store.StatusPending, Filename: filename, FilePath: filePath}
	if err := s.Store.CreateTask(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// UploadTextForAudio saves an uploaded .txt/.md file, creates a processing
// task, and enqueues the text→audio bridge, mirroring upload_audio's text
// branch plus its background offload to convert_text_and_process.
func (s *Service) UploadTextForAudio(ctx context.Context, filename string, data io.Reader) (*store.Task, error) {
	id := uuid.NewString()
	if err := os.MkdirAll(s.UploadsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}

	tempPath := filepath.Join(s.UploadsDir, fmt.Sprintf("%s_%s", id, filename))
	if err := writeFile(tempPath, data); err != nil {
		return nil, err
	}

	msg := "Queued for audio generation..."
	t := &store.Task{ID: id, Status: store.StatusProcessing, Filename: filename, FilePath: tempPath, Message: &msg}
	if err := s.Store.CreateTask(ctx, t); err != nil {
		return nil, err
	}

	s.enqueue(id)
	return t, nil
}

// Process transitions a pending task to processing and enqueues it;
// idempotent — a task already past pending is returned unchanged, matching
// process_audio route's early return.
func (s *Service) Process(ctx context.Context, taskID string) (*store.Task, error) {
	t, err := s.Store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != store.StatusPending {
		return t, nil
	}

	if err = s.Store.MarkProcessing(ctx, taskID, strPtr("Processing started")); err != nil {
		return nil, err
	}
	t, err = s.Store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	s.enqueue(taskID)
	return t, nil
}

func (s *Service) enqueue(taskID string) {
	select {
	case s.queue <- taskID:
	default:
		s.Logger.Warn("task queue full, blocking", "task_id", taskID)
		s.queue <- taskID
	}
}

// Status returns the current task record, or an error wrapping
// sql.ErrNoRows for the caller to map to 404.
func (s *Service) Status(ctx context.Context, taskID string) (*store.Task, error) {
	return s.Store.GetTask(ctx, taskID)
}

// ListTasks returns every task, newest first.
func (s *Service) ListTasks(ctx context.Context) ([]store.Task, error) {
	return s.Store.ListTasks(ctx)
}

// ErrTaskNotComplete is returned by Result (which backs both the result and
// the SRT download endpoints) when the task hasn't finished yet.
var ErrTaskNotComplete = errors.New("task not completed")

// Result decodes the stored result JSON for a completed task.
func (s *Service) Result(ctx context.Context, taskID string) (*Result, error) {
	t, err := s.Store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != store.StatusCompleted {
		return nil, ErrTaskNotComplete
	}
	if t.Result == nil {
		return nil, fmt.Errorf("task %s: result missing", taskID)
	}

	var res Result
	if err = json.Unmarshal([]byte(*t.Result), &res); err != nil {
		return nil, fmt.Errorf("decode task result: %w", err)
	}
	return &res, nil
}

// UpdateLastPlayedChunk records the learner's playback position.
func (s *Service) UpdateLastPlayedChunk(ctx context.Context, taskID string, index int) error {
	return s.Store.UpdateLastPlayedChunk(ctx, taskID, index)
}

// UploadPracticeRecording saves a learner's recording for one segment.
func (s *Service) UploadPracticeRecording(ctx context.Context, taskID string, segmentIndex int, origName string, data io.Reader) (*store.PracticeRecording, error) {
	if _, err := s.Store.GetTask(ctx, taskID); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.RecordingsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create recordings dir: %w", err)
	}

	ext := filepath.Ext(origName)
	if ext == "" {
		ext = ".webm"
	}
	filename := fmt.Sprintf("%s_%d_%s%s", taskID, segmentIndex, uuid.NewString(), ext)
	fullPath := filepath.Join(s.RecordingsDir, filename)
	if err := writeFile(fullPath, data); err != nil {
		return nil, err
	}

	rec := &store.PracticeRecording{ID: uuid.NewString(), TaskID: taskID, SegmentIndex: segmentIndex, FilePath: filename}
	if err := s.Store.CreatePracticeRecording(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListPracticeRecordings returns every recording for a task.
func (s *Service) ListPracticeRecordings(ctx context.Context, taskID string) ([]store.PracticeRecording, error) {
	return s.Store.ListPracticeRecordings(ctx, taskID)
}

// DeleteTask removes a task and its audio file; practice recording rows
// cascade in the database, but their files are cleaned up best-effort first,
// mirroring delete_task's warning-only os.remove failures.
func (s *Service) DeleteTask(ctx context.Context, taskID string) error {
	t, err := s.Store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}

	recs, err := s.Store.ListPracticeRecordings(ctx, taskID)
	if err != nil {
		return err
	}
	for _, r := range recs {
		path := filepath.Join(s.RecordingsDir, r.FilePath)
		if err = os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.Logger.Warn("failed to delete recording file", "path", path, "error", err)
		}
	}

	if t.FilePath != "" {
		if err = os.Remove(t.FilePath); err != nil && !os.IsNotExist(err) {
			s.Logger.Warn("failed to delete task file", "path", t.FilePath, "error", err)
		}
	}

	return s.Store.DeleteTask(ctx, taskID)
}

func writeFile(path string, data io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file %s: %w", path, err)
	}
	defer f.Close()
	if _, err = io.Copy(f, data); err != nil {
		return fmt.Errorf("write file %s: %w", path, err)
	}
	return nil
}

func strPtr(s string) *string { return &s }

// wrapPipelineError labels an unexpected failure so it's visible in the
// task's stored message without losing the underlying cause.
func wrapPipelineError(stage string, err error) error {
	return fmt.Errorf("%s: %w: %w", stage, err, apperrors.ErrPipeline)
}
