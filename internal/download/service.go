package download

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/wsget/workshop-downloader/internal/model"
)

const (
	// DefaultMaxConcurrent is how many transfers run at once before queueing.
	DefaultMaxConcurrent = 3

	chunkSize       = 8 * 1024
	speedWindow     = time.Second
	connectTimeout  = 30 * time.Second
	responseTimeout = 30 * time.Second
	eventBufferSize = 256
	userAgent       = "Workshop Downloader/1.0"
)

// ErrNotSupported is returned by pause and resume, which the coordinator does
// not implement.
var ErrNotSupported = errors.New("operation not supported")

var errCancelled = errors.New("transfer cancelled")

// URLResolver resolves the transfer URL for a workshop item.
type URLResolver interface {
	ResolveDownloadURL(item model.WorkshopItem) (string, error)
}

// Stats is a point-in-time summary of coordinator load.
type Stats struct {
	ActiveDownloads int
	QueuedDownloads int
	MaxConcurrent   int
}

// transfer pairs a task with its cooperative cancellation flag. The flag is
// checked at every chunk boundary.
type transfer struct {
	task      *model.DownloadTask
	dir       string
	cancelled atomic.Bool
}

// Service coordinates file downloads. Active transfers and the FIFO queue are
// guarded by one mutex; no lock is held across network calls. Events are
// delivered on a buffered channel that consumers must drain.
type Service struct {
	resolver   URLResolver
	httpClient *http.Client
	log        *slog.Logger

	mu            sync.Mutex
	active        map[string]*transfer // keyed by destination path
	queue         []*transfer
	maxConcurrent int

	events chan Event
	wg     sync.WaitGroup
}

// NewService builds a coordinator with the given concurrency limit
// (DefaultMaxConcurrent when maxConcurrent <= 0).
func NewService(resolver URLResolver, maxConcurrent int, log *slog.Logger) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		resolver: resolver,
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: connectTimeout}).DialContext,
				ResponseHeaderTimeout: responseTimeout,
			},
		},
		log:           log,
		active:        make(map[string]*transfer),
		maxConcurrent: maxConcurrent,
		events:        make(chan Event, eventBufferSize),
	}
}

// Events returns the coordinator's event stream.
func (s *Service) Events() <-chan Event {
	return s.events
}

// StartDownload accepts a transfer for item into destinationDir. It returns
// false and emits a failed event when no URL can be resolved or the computed
// destination path already has an active or queued transfer. When all slots
// are busy the transfer is queued FIFO and true is returned.
func (s *Service) StartDownload(item model.WorkshopItem, destinationDir string) bool {
	url, err := s.resolver.ResolveDownloadURL(item)
	if err != nil {
		s.emit(Event{Type: EventFailed, Item: item, Err: fmt.Sprintf("resolving download URL: %v", err)})
		return false
	}

	path := filepath.Join(destinationDir, GenerateFilename(item))

	s.mu.Lock()
	if s.hasPathLocked(path) {
		s.mu.Unlock()
		s.emit(Event{Type: EventFailed, Path: path, Item: item, Err: "file is already being downloaded"})
		return false
	}

	tr := &transfer{
		task: &model.DownloadTask{
			ID:              "download-" + newTaskID(),
			URL:             url,
			DestinationPath: path,
			Item:            item,
			Status:          model.TaskStatusQueued,
		},
		dir: destinationDir,
	}

	if len(s.active) >= s.maxConcurrent {
		s.queue = append(s.queue, tr)
		s.mu.Unlock()
		s.emit(Event{Type: EventQueued, Path: path, Item: item})
		return true
	}

	s.active[path] = tr
	s.mu.Unlock()

	s.begin(tr)
	return true
}

// CancelDownload marks the transfer for path cancelled. The transfer loop
// notices at the next chunk boundary, removes the partial file, and emits a
// cancelled event. Returns false when no such transfer is active or queued.
func (s *Service) CancelDownload(path string) bool {
	s.mu.Lock()
	tr, ok := s.active[path]
	if !ok {
		for i, q := range s.queue {
			if q.task.DestinationPath == path {
				s.queue = append(s.queue[:i], s.queue[i+1:]...)
				s.mu.Unlock()
				s.emit(Event{Type: EventCancelled, Path: path, Item: q.task.Item})
				return true
			}
		}
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	tr.cancelled.Store(true)
	return true
}

// CancelAll cancels every active transfer and drops the queue.
func (s *Service) CancelAll() {
	s.mu.Lock()
	for _, tr := range s.active {
		tr.cancelled.Store(true)
	}
	s.queue = nil
	s.mu.Unlock()
}

// SetMaxConcurrent changes the concurrency limit and immediately starts
// queued transfers if the new limit allows more.
func (s *Service) SetMaxConcurrent(n int) {
	if n <= 0 {
		return
	}

	s.mu.Lock()
	s.maxConcurrent = n
	started := s.promoteLocked()
	s.mu.Unlock()

	for _, tr := range started {
		s.begin(tr)
	}
}

// PauseDownload is not supported.
func (s *Service) PauseDownload(path string) error {
	return ErrNotSupported
}

// ResumeDownload is not supported.
func (s *Service) ResumeDownload(path string) error {
	return ErrNotSupported
}

// IsDownloading reports whether path has an active transfer.
func (s *Service) IsDownloading(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[path]
	return ok
}

// ActiveDownloads returns the destination paths of all active transfers.
func (s *Service) ActiveDownloads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	paths := make([]string, 0, len(s.active))
	for path := range s.active {
		paths = append(paths, path)
	}
	return paths
}

// GetStats summarizes coordinator load.
func (s *Service) GetStats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		ActiveDownloads: len(s.active),
		QueuedDownloads: len(s.queue),
		MaxConcurrent:   s.maxConcurrent,
	}
}

// Wait blocks until every running transfer goroutine has exited. Pending
// queued transfers promoted in the meantime are waited on too.
func (s *Service) Wait() {
	s.wg.Wait()
}

// begin emits the started event and launches the transfer goroutine. The
// transfer must already be registered in the active set.
func (s *Service) begin(tr *transfer) {
	tr.task.Status = model.TaskStatusRunning
	tr.task.StartedAt = time.Now()

	s.emit(Event{Type: EventStarted, Path: tr.task.DestinationPath, Item: tr.task.Item})

	s.wg.Add(1)
	go s.run(tr)
}

func (s *Service) run(tr *transfer) {
	defer s.wg.Done()

	err := s.stream(tr)

	path := tr.task.DestinationPath
	tr.task.FinishedAt = time.Now()

	var done Event
	switch {
	case errors.Is(err, errCancelled):
		tr.task.Status = model.TaskStatusCancelled
		s.removePartial(path)
		done = Event{Type: EventCancelled, Path: path, Item: tr.task.Item}
	case err != nil:
		tr.task.Status = model.TaskStatusFailed
		tr.task.LastError = err.Error()
		s.removePartial(path)
		done = Event{Type: EventFailed, Path: path, Item: tr.task.Item, Err: err.Error()}
	default:
		tr.task.Status = model.TaskStatusFinished
		done = Event{
			Type:       EventFinished,
			Path:       path,
			Item:       tr.task.Item,
			Downloaded: tr.task.Downloaded,
			Total:      tr.task.Total,
			Percent:    100,
		}
	}

	s.finish(path, done)
}

// finish removes the transfer from the active set, emits its terminal event,
// promotes queued transfers into freed slots, and signals all-done when
// nothing is left.
func (s *Service) finish(path string, done Event) {
	s.mu.Lock()
	delete(s.active, path)
	started := s.promoteLocked()
	idle := len(s.active) == 0 && len(s.queue) == 0
	s.mu.Unlock()

	s.emit(done)

	for _, tr := range started {
		s.begin(tr)
	}
	if idle {
		s.emit(Event{Type: EventAllDone})
	}
}

// promoteLocked moves queued transfers into free slots, FIFO. Caller holds
// the mutex; returned transfers must be begun after it is released.
func (s *Service) promoteLocked() []*transfer {
	var started []*transfer
	for len(s.queue) > 0 && len(s.active) < s.maxConcurrent {
		tr := s.queue[0]
		s.queue = s.queue[1:]
		s.active[tr.task.DestinationPath] = tr
		started = append(started, tr)
	}
	return started
}

// stream performs the HTTP transfer, writing the body to the destination in
// fixed-size chunks and emitting progress and speed events along the way.
func (s *Service) stream(tr *transfer) error {
	task := tr.task

	if err := os.MkdirAll(tr.dir, 0o755); err != nil {
		return fmt.Errorf("creating destination dir: %w", err)
	}

	req, err := http.NewRequest(http.MethodGet, task.URL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("network error: unexpected status %s", resp.Status)
	}

	task.Total = resp.ContentLength
	if task.Total < 0 {
		task.Total = 0
	}

	out, err := os.Create(task.DestinationPath)
	if err != nil {
		return fmt.Errorf("filesystem error: %w", err)
	}
	defer out.Close()

	buf := make([]byte, chunkSize)
	windowStart := time.Now()
	var windowBytes int64

	for {
		if tr.cancelled.Load() {
			return errCancelled
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return fmt.Errorf("filesystem error: %w", werr)
			}

			task.Downloaded += int64(n)
			windowBytes += int64(n)
			if task.Total > 0 {
				task.Percent = int(task.Downloaded * 100 / task.Total)
			}

			s.emit(Event{
				Type:       EventProgress,
				Path:       task.DestinationPath,
				Item:       task.Item,
				Downloaded: task.Downloaded,
				Total:      task.Total,
				Percent:    task.Percent,
			})

			if elapsed := time.Since(windowStart); elapsed >= speedWindow {
				task.Speed = float64(windowBytes) / elapsed.Seconds()
				s.emit(Event{
					Type:        EventSpeed,
					Path:        task.DestinationPath,
					Item:        task.Item,
					BytesPerSec: task.Speed,
				})
				windowStart = time.Now()
				windowBytes = 0
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("network error: %w", readErr)
		}
	}
}

func (s *Service) removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("removing partial download failed", "path", path, "error", err)
	}
}

func (s *Service) emit(evt Event) {
	s.events <- evt
}

func (s *Service) hasPathLocked(path string) bool {
	if _, ok := s.active[path]; ok {
		return true
	}
	for _, q := range s.queue {
		if q.task.DestinationPath == path {
			return true
		}
	}
	return false
}

func newTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return id.String()
}
