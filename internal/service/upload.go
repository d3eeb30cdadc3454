package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/folio/internal/domain"
	"github.com/timmy/folio/internal/logger"
	"github.com/timmy/folio/internal/storage"
)

// CertificateCreator persists a normalized certificate.
type CertificateCreator interface {
	Create(ctx context.Context, cert *domain.Certificate) error
}

// RunRecorder stores run summaries. Failures to record never affect the run.
type RunRecorder interface {
	Create(ctx context.Context, run *domain.UploadRun) error
	Save(ctx context.Context, run *domain.UploadRun) error
}

// UploadConfig holds pacing and progress settings for bulk uploads.
type UploadConfig struct {
	InterJobDelay     time.Duration
	ProgressSubmitted int
	ProgressUploaded  int
	ProgressSaving    int
	ProgressDone      int
	DefaultCategory   string
	AssetFolder       string
}

// DefaultUploadConfig returns the stock pacing: one second between jobs and 30/60/90/100 progress steps.
func DefaultUploadConfig() UploadConfig {
	return UploadConfig{
		InterJobDelay:     time.Second,
		ProgressSubmitted: 30,
		ProgressUploaded:  60,
		ProgressSaving:    90,
		ProgressDone:      100,
		DefaultCategory:   "Certification",
		AssetFolder:       "certificates",
	}
}

// Progress reports overall and current-job completion percentages.
type Progress struct {
	Overall  int `json:"overall"`
	Current  int `json:"current"`
	JobIndex int `json:"job_index"`
	Total    int `json:"total"`
}

// ProgressListener receives progress updates from the driver goroutine.
type ProgressListener func(Progress)

// RunState is a snapshot of the orchestrator.
type RunState struct {
	RunID        string                 `json:"run_id,omitempty"`
	Source       string                 `json:"source,omitempty"`
	Running      bool                   `json:"running"`
	Paused       bool                   `json:"paused"`
	Stopped      bool                   `json:"stopped"`
	CurrentIndex int                    `json:"current_index"`
	Total        int                    `json:"total"`
	Processed    int                    `json:"processed"`
	Succeeded    int                    `json:"succeeded"`
	Failed       int                    `json:"failed"`
	Failures     []domain.FailureRecord `json:"failures"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	EndedAt      *time.Time             `json:"ended_at,omitempty"`
	Progress     Progress               `json:"progress"`
}

// UploadService runs certificate jobs one at a time through asset upload and record creation.
type UploadService struct {
	uploader storage.AssetUploader
	certs    CertificateCreator
	runs     RunRecorder
	logger   *logger.Logger
	cfg      UploadConfig

	now   func() time.Time
	after func(time.Duration) <-chan time.Time

	mu        sync.Mutex
	state     RunState
	jobs      []domain.UploadJob
	logs      []domain.LogEntry
	resume    chan struct{} // non-nil while paused
	stop      chan struct{}
	done      chan struct{}
	active    bool // driver goroutine has not returned
	listeners []ProgressListener
}

// NewUploadService creates the orchestrator. runs may be nil.
func NewUploadService(
	uploader storage.AssetUploader,
	certs CertificateCreator,
	runs RunRecorder,
	log *logger.Logger,
	cfg UploadConfig,
) *UploadService {
	if log == nil {
		log = logger.GetDefault()
	}
	done := make(chan struct{})
	close(done)
	return &UploadService{
		uploader: uploader,
		certs:    certs,
		runs:     runs,
		logger:   log,
		cfg:      cfg,
		now:      time.Now,
		after:    time.After,
		done:     done,
		state:    RunState{Failures: []domain.FailureRecord{}},
	}
}

func (s *UploadService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// OnProgress registers a listener. Listeners run on the driver goroutine and must not block.
func (s *UploadService) OnProgress(fn ProgressListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Start launches a run in the background and returns its ID.
func (s *UploadService) Start(ctx context.Context, sourceName string, records []domain.CertificateRecord) (string, error) {
	runID, err := s.prepare(ctx, sourceName, records)
	if err != nil {
		return "", err
	}
	go s.drive(context.WithoutCancel(ctx), runID)
	return runID, nil
}

// Run executes a run and blocks until it completes or is stopped.
func (s *UploadService) Run(ctx context.Context, sourceName string, records []domain.CertificateRecord) (RunState, error) {
	runID, err := s.prepare(ctx, sourceName, records)
	if err != nil {
		return RunState{}, err
	}
	s.drive(ctx, runID)
	return s.Snapshot(), nil
}

// Done is closed when the current run's driver returns. It is closed already when idle.
func (s *UploadService) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *UploadService) prepare(ctx context.Context, sourceName string, records []domain.CertificateRecord) (string, error) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return "", domain.ErrRunInProgress
	}
	if len(records) == 0 {
		s.appendLogLocked(ctx, domain.SeverityError, "No certificates to upload")
		s.mu.Unlock()
		return "", domain.ErrEmptyQueue
	}

	runID := uuid.New().String()
	started := s.now()
	jobs := make([]domain.UploadJob, len(records))
	for i, rec := range records {
		jobs[i] = domain.UploadJob{
			Index:  i,
			Record: rec,
			Name:   displayName(rec, i),
			Status: domain.JobStatusPending,
		}
	}

	s.jobs = jobs
	s.logs = nil
	s.state = RunState{
		RunID:     runID,
		Source:    sourceName,
		Running:   true,
		Total:     len(jobs),
		Failures:  []domain.FailureRecord{},
		StartedAt: &started,
		Progress:  Progress{Total: len(jobs)},
	}
	s.resume = nil
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.active = true
	s.appendLogLocked(ctx, domain.SeverityInfo, fmt.Sprintf("Starting bulk upload of %d certificates", len(jobs)))
	s.mu.Unlock()

	s.recordRun(ctx, true)
	return runID, nil
}

// drive is the sequential job loop. Exactly one job is in flight at a time.
func (s *UploadService) drive(ctx context.Context, runID string) {
	ctx = logger.SetRunID(ctx, runID)
	defer s.finish(ctx)

	total := len(s.jobs)
	for i := 0; i < total; i++ {
		if !s.waitIfPaused(ctx) {
			break
		}
		s.processJob(ctx, i)

		if i < total-1 && !s.pace(ctx) {
			break
		}
	}

	if ctx.Err() != nil {
		// Treat caller cancellation like an operator stop.
		_ = s.Stop(ctx)
	}
}

// waitIfPaused blocks while paused and reports whether the next job may start.
func (s *UploadService) waitIfPaused(ctx context.Context) bool {
	for {
		s.mu.Lock()
		if s.state.Stopped {
			s.mu.Unlock()
			return false
		}
		resume, stop := s.resume, s.stop
		s.mu.Unlock()

		if resume == nil {
			return ctx.Err() == nil
		}
		select {
		case <-resume:
		case <-stop:
			return false
		case <-ctx.Done():
			return false
		}
	}
}

// pace waits the inter-job delay. It returns false when the run was stopped meanwhile.
func (s *UploadService) pace(ctx context.Context) bool {
	s.mu.Lock()
	stop := s.stop
	s.mu.Unlock()

	if s.cfg.InterJobDelay > 0 {
		select {
		case <-s.after(s.cfg.InterJobDelay):
		case <-stop:
			return false
		case <-ctx.Done():
			return false
		}
	}

	select {
	case <-stop:
		return false
	default:
		return true
	}
}

func (s *UploadService) processJob(ctx context.Context, index int) {
	ctx = logger.WithField(ctx, logger.FieldJobIndex, index)
	start := s.now()

	s.mu.Lock()
	s.state.CurrentIndex = index
	job := &s.jobs[index]
	record := job.Record
	name := job.Name
	s.mu.Unlock()

	s.setJobPhase(ctx, index, domain.JobStatusUploadingImage, 0)
	s.appendLog(ctx, domain.SeverityInfo, fmt.Sprintf("[%d/%d] Uploading image for %q", index+1, len(s.jobs), name))

	if strings.TrimSpace(record.Name) == "" {
		s.failJob(ctx, index, start, errors.New("record has no name"))
		return
	}

	s.reportProgress(index, s.cfg.ProgressSubmitted)
	imageURL, err := s.uploader.UploadAsset(ctx, record.Image, s.cfg.AssetFolder, record.Name)
	if err != nil {
		s.failJob(ctx, index, start, fmt.Errorf("image upload failed: %w", err))
		return
	}

	s.mu.Lock()
	s.jobs[index].ImageURL = imageURL
	s.mu.Unlock()
	s.reportProgress(index, s.cfg.ProgressUploaded)

	s.setJobPhase(ctx, index, domain.JobStatusSavingRecord, s.cfg.ProgressSaving)
	s.appendLog(ctx, domain.SeverityInfo, fmt.Sprintf("[%d/%d] Saving record for %q", index+1, len(s.jobs), name))

	cert := normalizeRecord(record, imageURL, s.cfg.DefaultCategory)
	if err := s.certs.Create(ctx, cert); err != nil {
		s.failJob(ctx, index, start, persistError(err))
		return
	}

	elapsed := s.now().Sub(start)
	s.mu.Lock()
	s.jobs[index].Status = domain.JobStatusSucceeded
	s.jobs[index].Duration = elapsed
	s.state.Succeeded++
	s.state.Processed++
	s.mu.Unlock()

	s.reportProgress(index, s.cfg.ProgressDone)
	s.appendLog(ctx, domain.SeveritySuccess, fmt.Sprintf("[%d/%d] Uploaded %q in %s", index+1, len(s.jobs), name, elapsed.Round(time.Millisecond)))
	s.recordRun(ctx, false)
}

// persistError keeps the driver's text next to the user-facing explanation.
func persistError(err error) error {
	msg := domain.UserMessage(err)
	if msg == err.Error() {
		return fmt.Errorf("saving record failed: %w", err)
	}
	return fmt.Errorf("saving record failed: %s (%w)", msg, err)
}

func (s *UploadService) failJob(ctx context.Context, index int, start time.Time, err error) {
	elapsed := s.now().Sub(start)

	s.mu.Lock()
	job := &s.jobs[index]
	job.Status = domain.JobStatusFailed
	job.Duration = elapsed
	job.Error = err.Error()
	s.state.Failed++
	s.state.Processed++
	s.state.Failures = append(s.state.Failures, domain.FailureRecord{
		Index:    index,
		Name:     job.Name,
		Error:    err.Error(),
		Duration: elapsed,
	})
	name := job.Name
	s.mu.Unlock()

	s.reportProgress(index, s.cfg.ProgressDone)
	s.appendLog(ctx, domain.SeverityError, fmt.Sprintf("[%d/%d] Failed %q after %s: %v", index+1, len(s.jobs), name, elapsed.Round(time.Millisecond), err))
	s.recordRun(ctx, false)
}

func (s *UploadService) setJobPhase(ctx context.Context, index int, status domain.JobStatus, pct int) {
	s.mu.Lock()
	s.jobs[index].Status = status
	s.mu.Unlock()
	s.reportProgress(index, pct)
}

// reportProgress publishes the current job's percentage and the derived overall percentage.
func (s *UploadService) reportProgress(index, current int) {
	s.mu.Lock()
	if current < s.state.Progress.Current && s.state.Progress.JobIndex == index {
		current = s.state.Progress.Current
	}
	total := s.state.Total
	overall := 0
	if total > 0 {
		// Processed already counts a finished job, so only add the partial share of one in flight.
		partial := current
		if s.jobs[index].Status.Terminal() {
			partial = 0
		}
		overall = (s.state.Processed*100 + partial) / total
	}
	p := Progress{Overall: overall, Current: current, JobIndex: index, Total: total}
	s.state.Progress = p
	listeners := append([]ProgressListener(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
}

func (s *UploadService) finish(ctx context.Context) {
	s.mu.Lock()
	st := &s.state
	if !st.Stopped {
		ended := s.now()
		st.Running = false
		st.Paused = false
		st.EndedAt = &ended
	}
	elapsed := st.EndedAt.Sub(*st.StartedAt).Round(time.Millisecond)
	if st.Stopped {
		s.appendLogLocked(ctx, domain.SeverityWarning, fmt.Sprintf(
			"Bulk upload stopped after %d of %d certificates: %d succeeded, %d failed (%s)",
			st.Processed, st.Total, st.Succeeded, st.Failed, elapsed))
	} else {
		s.appendLogLocked(ctx, domain.SeverityInfo, fmt.Sprintf(
			"Bulk upload finished: %d succeeded, %d failed of %d (%s)",
			st.Succeeded, st.Failed, st.Total, elapsed))
	}
	s.active = false
	done := s.done
	s.mu.Unlock()

	s.log(ctx).WithFields(logger.Fields{
		logger.FieldCount:      s.Snapshot().Processed,
		logger.FieldDurationMs: elapsed.Milliseconds(),
	}).Info("Upload run finished")

	s.recordRun(ctx, false)
	close(done)
}

// Pause holds the driver before the next job. A job in flight still completes.
func (s *UploadService) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Running {
		return domain.ErrNoActiveRun
	}
	if s.state.Paused {
		return nil
	}
	s.state.Paused = true
	s.resume = make(chan struct{})
	s.appendLogLocked(ctx, domain.SeverityWarning, "Upload paused")
	return nil
}

// Resume releases a paused driver.
func (s *UploadService) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Running {
		return domain.ErrNoActiveRun
	}
	if !s.state.Paused {
		return nil
	}
	s.state.Paused = false
	close(s.resume)
	s.resume = nil
	s.appendLogLocked(ctx, domain.SeverityInfo, "Upload resumed")
	return nil
}

// Stop ends the run before the next job starts. The job in flight is not interrupted.
func (s *UploadService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Running {
		return domain.ErrNoActiveRun
	}
	ended := s.now()
	s.state.Running = false
	s.state.Paused = false
	s.state.Stopped = true
	s.state.EndedAt = &ended
	close(s.stop)
	if s.resume != nil {
		close(s.resume)
		s.resume = nil
	}
	s.appendLogLocked(ctx, domain.SeverityWarning, "Upload stopped")
	return nil
}

// Reset clears counters, jobs, logs and progress. It fails while a driver is active.
func (s *UploadService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active {
		return domain.ErrRunInProgress
	}
	s.state = RunState{Failures: []domain.FailureRecord{}}
	s.jobs = nil
	s.logs = nil
	return nil
}

// Snapshot returns a copy of the run state.
func (s *UploadService) Snapshot() RunState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state
	st.Failures = append([]domain.FailureRecord{}, s.state.Failures...)
	return st
}

// Jobs returns a copy of the job list.
func (s *UploadService) Jobs() []domain.UploadJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.UploadJob{}, s.jobs...)
}

// Logs returns a copy of the run log.
func (s *UploadService) Logs() []domain.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.LogEntry{}, s.logs...)
}

func (s *UploadService) appendLog(ctx context.Context, severity domain.Severity, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendLogLocked(ctx, severity, msg)
}

// appendLogLocked records a run log entry and mirrors it to the structured logger.
func (s *UploadService) appendLogLocked(ctx context.Context, severity domain.Severity, msg string) {
	s.logs = append(s.logs, domain.LogEntry{
		Timestamp: s.now(),
		Message:   msg,
		Severity:  severity,
	})

	l := s.log(ctx)
	switch severity {
	case domain.SeverityError:
		l.Error(msg)
	case domain.SeverityWarning:
		l.Warn(msg)
	default:
		l.Info(msg)
	}
}

// recordRun persists the run summary when a recorder is configured.
func (s *UploadService) recordRun(ctx context.Context, create bool) {
	if s.runs == nil {
		return
	}

	st := s.Snapshot()
	if st.RunID == "" || st.StartedAt == nil {
		return
	}
	status := domain.RunStatusRunning
	switch {
	case st.Stopped:
		status = domain.RunStatusStopped
	case !st.Running:
		status = domain.RunStatusCompleted
	}
	run := &domain.UploadRun{
		ID:          st.RunID,
		Status:      status,
		TotalJobs:   st.Total,
		Processed:   st.Processed,
		Succeeded:   st.Succeeded,
		Failed:      st.Failed,
		Failures:    domain.FailureList(st.Failures),
		StartedAt:   *st.StartedAt,
		CompletedAt: st.EndedAt,
	}

	var err error
	if create {
		err = s.runs.Create(ctx, run)
	} else {
		err = s.runs.Save(ctx, run)
	}
	if err != nil {
		s.log(ctx).WithError(err).Warn("Failed to record upload run")
	}
}

func displayName(rec domain.CertificateRecord, index int) string {
	if name := strings.TrimSpace(rec.Name); name != "" {
		return name
	}
	return fmt.Sprintf("Certificate #%d", index+1)
}

// normalizeRecord trims text fields and fills the category and description defaults.
func normalizeRecord(rec domain.CertificateRecord, imageURL, defaultCategory string) *domain.Certificate {
	name := strings.TrimSpace(rec.Name)
	org := strings.TrimSpace(rec.Organization)

	category := strings.TrimSpace(rec.Category)
	if category == "" {
		category = defaultCategory
	}

	description := strings.TrimSpace(rec.Description)
	if description == "" {
		description = fmt.Sprintf("%s certificate issued by %s", name, org)
	}

	skills := make(domain.StringArray, 0, len(rec.Skills))
	for _, skill := range rec.Skills {
		if skill = strings.TrimSpace(skill); skill != "" {
			skills = append(skills, skill)
		}
	}

	return &domain.Certificate{
		Name:         name,
		Organization: org,
		Category:     category,
		Link:         strings.TrimSpace(rec.Link),
		IssueDate:    strings.TrimSpace(rec.IssueDate),
		Description:  description,
		Skills:       skills,
		ImageURL:     imageURL,
	}
}
