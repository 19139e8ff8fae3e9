package task

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dechogo/hearing-gateway/internal/store"
)

// taskResponse is the wire shape for task-returning endpoints, mirroring
// server/schemas.py's TaskResponse.
type taskResponse struct {
	TaskID               string  `json:"task_id"`
	Status               string  `json:"status"`
	Message              *string `json:"message,omitempty"`
	Progress             float64 `json:"progress"`
	LastPlayedChunkIndex int     `json:"last_played_chunk_index"`
	FilePath             string  `json:"file_path"`
	Filename             string  `json:"filename"`
	Duration             *float64 `json:"duration"`
	CreatedAt            string  `json:"created_at"`
}

func toTaskResponse(t *store.Task) taskResponse {
	return taskResponse{
		TaskID:               t.ID,
		Status:               string(t.Status),
		Message:              t.Message,
		Progress:             t.Progress,
		LastPlayedChunkIndex: t.LastPlayedChunkIndex,
		FilePath:             t.FilePath,
		Filename:             t.Filename,
		Duration:             t.Duration,
		CreatedAt:            t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// RegisterRoutes wires every /api/audio endpoint to mux, following the
// teacher gateway's registerRoutes idiom of method-prefixed patterns and
// {name}-style path values.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/audio/upload", s.handleUpload)
	mux.HandleFunc("POST /api/audio/process/{taskId}", s.handleProcess)
	mux.HandleFunc("GET /api/audio/status/{taskId}", s.handleStatus)
	mux.HandleFunc("GET /api/audio/result/{taskId}", s.handleResult)
	mux.HandleFunc("GET /api/audio/download/{taskId}/srt", s.handleDownloadSRT)
	mux.HandleFunc("POST /api/audio/practice/{taskId}/{segmentIndex}", s.handlePracticeUpload)
	mux.HandleFunc("GET /api/audio/practice/{taskId}", s.handlePracticeList)
	mux.HandleFunc("GET /api/audio/tasks", s.handleListTasks)
	mux.HandleFunc("POST /api/audio/tasks/{taskId}/progress", s.handleUpdateProgress)
	mux.HandleFunc("DELETE /api/audio/task/{taskId}", s.handleDelete)
}

func (s *Service) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	var t *store.Task
	if ext == ".txt" || ext == ".md" {
		t, err = s.UploadTextForAudio(r.Context(), header.Filename, file)
	} else {
		t, err = s.UploadAudio(r.Context(), header.Filename, file)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

func (s *Service) handleProcess(w http.ResponseWriter, r *http.Request) {
	t, err := s.Process(r.Context(), r.PathValue("taskId"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

func (s *Service) handleStatus(w http.ResponseWriter, r *http.Request) {
	t, err := s.Status(r.Context(), r.PathValue("taskId"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

func (s *Service) handleResult(w http.ResponseWriter, r *http.Request) {
	res, err := s.Result(r.Context(), r.PathValue("taskId"))
	if err != nil {
		if errors.Is(err, ErrTaskNotComplete) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task_id": r.PathValue("taskId"), "segments": res.Segments})
}

func (s *Service) handleDownloadSRT(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("taskId")
	res, err := s.Result(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, ErrTaskNotComplete) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeTaskError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-subrip")
	w.Header().Set("Content-Disposition", "attachment; filename=subtitle_"+taskID+".srt")
	io.WriteString(w, res.SRT)
}

func (s *Service) handlePracticeUpload(w http.ResponseWriter, r *http.Request) {
	taskID := r.PathValue("taskId")
	segIdx, err := strconv.Atoi(r.PathValue("segmentIndex"))
	if err != nil {
		http.Error(w, "invalid segment index", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	rec, err := s.UploadPracticeRecording(r.Context(), taskID, segIdx, header.Filename, file)
	if err != nil {
		writeTaskError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"message": "Recording saved", "filePath": rec.FilePath})
}

func (s *Service) handlePracticeList(w http.ResponseWriter, r *http.Request) {
	recs, err := s.ListPracticeRecordings(r.Context(), r.PathValue("taskId"))
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Service) handleListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.ListTasks(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	out := make([]taskResponse, len(tasks))
	for i := range tasks {
		out[i] = toTaskResponse(&tasks[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleUpdateProgress(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.URL.Query().Get("last_played_chunk_index"))
	if err != nil {
		http.Error(w, "invalid last_played_chunk_index", http.StatusBadRequest)
		return
	}
	if err = s.UpdateLastPlayedChunk(r.Context(), r.PathValue("taskId"), idx); err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Progress updated"})
}

func (s *Service) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.DeleteTask(r.Context(), r.PathValue("taskId")); err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task deleted successfully"})
}

func writeTaskError(w http.ResponseWriter, err error) {
	if errors.Is(err, sql.ErrNoRows) {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
