package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/folio/internal/domain"
)

type fakeUploader struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]error
	release map[string]chan struct{}
	started chan string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{
		fail:    map[string]error{},
		release: map[string]chan struct{}{},
		started: make(chan string, 16),
	}
}

// hold makes the upload for identifier block until the returned func is called.
func (f *fakeUploader) hold(identifier string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.release[identifier] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *fakeUploader) UploadAsset(ctx context.Context, payload, folder, identifier string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, identifier)
	wait := f.release[identifier]
	err := f.fail[identifier]
	f.mu.Unlock()

	select {
	case f.started <- identifier:
	default:
	}
	if wait != nil {
		<-wait
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("https://cdn.example.com/%s/%s.png", folder, identifier), nil
}

func (f *fakeUploader) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

type fakeCreator struct {
	mu      sync.Mutex
	created []*domain.Certificate
	err     error
}

func (f *fakeCreator) Create(ctx context.Context, cert *domain.Certificate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, cert)
	return nil
}

type fakeRuns struct {
	mu      sync.Mutex
	creates int
	saves   int
	last    domain.UploadRun
}

func (f *fakeRuns) Create(ctx context.Context, run *domain.UploadRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	f.last = *run
	return nil
}

func (f *fakeRuns) Save(ctx context.Context, run *domain.UploadRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.last = *run
	return nil
}

func testRecords(names ...string) []domain.CertificateRecord {
	records := make([]domain.CertificateRecord, len(names))
	for i, n := range names {
		records[i] = domain.CertificateRecord{Name: n, Organization: "Org", Image: "data:image/png;base64,AAAA"}
	}
	return records
}

func newTestUploadService(u *fakeUploader, c *fakeCreator, runs RunRecorder) *UploadService {
	cfg := DefaultUploadConfig()
	cfg.InterJobDelay = 0
	return NewUploadService(u, c, runs, nil, cfg)
}

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		require.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for upload of %q", want)
	}
}

func waitDone(t *testing.T, s *UploadService) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestUploadServiceIsolatesFailures(t *testing.T) {
	uploader := newFakeUploader()
	uploader.fail["Second"] = errors.New("HTTP 500 from storage")
	creator := &fakeCreator{}
	runs := &fakeRuns{}
	s := newTestUploadService(uploader, creator, runs)

	state, err := s.Run(context.Background(), "test", testRecords("First", "Second", "Third"))
	require.NoError(t, err)

	assert.Equal(t, 3, state.Processed)
	assert.Equal(t, 2, state.Succeeded)
	assert.Equal(t, 1, state.Failed)
	assert.False(t, state.Running)
	assert.NotNil(t, state.EndedAt)
	require.Len(t, state.Failures, 1)
	assert.Equal(t, "Second", state.Failures[0].Name)
	assert.Equal(t, 1, state.Failures[0].Index)
	assert.Contains(t, state.Failures[0].Error, "HTTP 500 from storage")

	assert.Equal(t, []string{"First", "Second", "Third"}, uploader.Calls())
	require.Len(t, creator.created, 2)
	assert.Equal(t, "First", creator.created[0].Name)
	assert.Equal(t, "Third", creator.created[1].Name)
	assert.Equal(t, "https://cdn.example.com/certificates/Third.png", creator.created[1].ImageURL)

	jobs := s.Jobs()
	assert.Equal(t, domain.JobStatusSucceeded, jobs[0].Status)
	assert.Equal(t, domain.JobStatusFailed, jobs[1].Status)
	assert.Equal(t, domain.JobStatusSucceeded, jobs[2].Status)

	logs := s.Logs()
	require.NotEmpty(t, logs)
	assert.Contains(t, logs[len(logs)-1].Message, "2 succeeded, 1 failed of 3")

	runs.mu.Lock()
	defer runs.mu.Unlock()
	assert.Equal(t, 1, runs.creates)
	assert.Equal(t, domain.RunStatusCompleted, runs.last.Status)
	assert.Len(t, runs.last.Failures, 1)
}

func TestUploadServiceProcessedInvariant(t *testing.T) {
	uploader := newFakeUploader()
	uploader.fail["b"] = errors.New("boom")
	uploader.fail["d"] = errors.New("boom")
	s := newTestUploadService(uploader, &fakeCreator{}, nil)

	var mu sync.Mutex
	var violations []string
	s.OnProgress(func(p Progress) {
		st := s.Snapshot()
		mu.Lock()
		defer mu.Unlock()
		if st.Processed != st.Succeeded+st.Failed {
			violations = append(violations, fmt.Sprintf("%+v", st))
		}
		if st.Processed > st.Total {
			violations = append(violations, "processed exceeds total")
		}
	})

	state, err := s.Run(context.Background(), "test", testRecords("a", "b", "c", "d", "e"))
	require.NoError(t, err)
	assert.Equal(t, 5, state.Processed)
	assert.Equal(t, 3, state.Succeeded)
	assert.Empty(t, violations)
}

func TestUploadServicePersistFailureUsesUserMessage(t *testing.T) {
	creator := &fakeCreator{err: fmt.Errorf("insert: %w", domain.ErrPermissionDenied)}
	s := newTestUploadService(newFakeUploader(), creator, nil)

	state, err := s.Run(context.Background(), "test", testRecords("Only"))
	require.NoError(t, err)
	require.Len(t, state.Failures, 1)
	assert.Contains(t, state.Failures[0].Error, "Permission denied")
	assert.Contains(t, state.Failures[0].Error, "insert: permission denied")
}

func TestUploadServiceEmptyQueue(t *testing.T) {
	s := newTestUploadService(newFakeUploader(), &fakeCreator{}, nil)

	_, err := s.Run(context.Background(), "test", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyQueue)

	_, err = s.Start(context.Background(), "test", []domain.CertificateRecord{})
	assert.ErrorIs(t, err, domain.ErrEmptyQueue)

	logs := s.Logs()
	require.NotEmpty(t, logs)
	assert.Equal(t, domain.SeverityError, logs[0].Severity)
	assert.False(t, s.Snapshot().Running)
}

func TestUploadServiceProgressIsMonotonic(t *testing.T) {
	s := newTestUploadService(newFakeUploader(), &fakeCreator{}, nil)

	var updates []Progress
	s.OnProgress(func(p Progress) { updates = append(updates, p) })

	_, err := s.Run(context.Background(), "test", testRecords("a", "b", "c"))
	require.NoError(t, err)
	require.NotEmpty(t, updates)

	for i := 1; i < len(updates); i++ {
		prev, cur := updates[i-1], updates[i]
		assert.GreaterOrEqual(t, cur.Overall, prev.Overall, "overall went backwards at %d", i)
		if cur.JobIndex == prev.JobIndex {
			assert.GreaterOrEqual(t, cur.Current, prev.Current, "current went backwards at %d", i)
		} else {
			assert.Equal(t, 0, cur.Current, "new job must start at 0")
		}
	}
	assert.Equal(t, 100, updates[len(updates)-1].Overall)
	assert.Equal(t, 100, s.Snapshot().Progress.Current)
}

func TestUploadServicePauseResume(t *testing.T) {
	uploader := newFakeUploader()
	release := uploader.hold("a")
	s := newTestUploadService(uploader, &fakeCreator{}, nil)

	_, err := s.Start(context.Background(), "test", testRecords("a", "b", "c"))
	require.NoError(t, err)
	waitFor(t, uploader.started, "a")

	require.NoError(t, s.Pause(context.Background()))
	assert.True(t, s.Snapshot().Paused)
	assert.Equal(t, 0, s.Snapshot().CurrentIndex)

	// The job in flight still completes.
	release()
	require.Eventually(t, func() bool { return s.Snapshot().Processed == 1 }, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"a"}, uploader.Calls(), "no job may start while paused")
	assert.Equal(t, 0, s.Snapshot().CurrentIndex)

	require.NoError(t, s.Resume(context.Background()))
	waitDone(t, s)

	assert.Equal(t, []string{"a", "b", "c"}, uploader.Calls())
	assert.Equal(t, 3, s.Snapshot().Succeeded)
}

func TestUploadServicePauseDuringInterJobDelay(t *testing.T) {
	uploader := newFakeUploader()
	s := newTestUploadService(uploader, &fakeCreator{}, nil)
	s.cfg.InterJobDelay = time.Second

	delays := make(chan chan time.Time, 4)
	s.after = func(d time.Duration) <-chan time.Time {
		ch := make(chan time.Time, 1)
		delays <- ch
		return ch
	}

	_, err := s.Start(context.Background(), "test", testRecords("a", "b"))
	require.NoError(t, err)
	waitFor(t, uploader.started, "a")

	var delay chan time.Time
	select {
	case delay = <-delays:
	case <-time.After(2 * time.Second):
		t.Fatal("inter-job delay never started")
	}

	require.NoError(t, s.Pause(context.Background()))
	delay <- time.Now()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"a"}, uploader.Calls())

	require.NoError(t, s.Resume(context.Background()))
	waitFor(t, uploader.started, "b")
	waitDone(t, s)
	assert.Equal(t, []string{"a", "b"}, uploader.Calls())
}

func TestUploadServiceStop(t *testing.T) {
	uploader := newFakeUploader()
	release := uploader.hold("a")
	creator := &fakeCreator{}
	runs := &fakeRuns{}
	s := newTestUploadService(uploader, creator, runs)

	_, err := s.Start(context.Background(), "test", testRecords("a", "b", "c"))
	require.NoError(t, err)
	waitFor(t, uploader.started, "a")

	require.NoError(t, s.Stop(context.Background()))
	st := s.Snapshot()
	assert.False(t, st.Running)
	assert.True(t, st.Stopped)
	assert.NotNil(t, st.EndedAt)

	// Cooperative: the in-flight job finishes its phases.
	release()
	waitDone(t, s)

	st = s.Snapshot()
	assert.Equal(t, 1, st.Processed)
	assert.Equal(t, 1, st.Succeeded)
	assert.Equal(t, []string{"a"}, uploader.Calls())
	assert.Len(t, creator.created, 1)

	runs.mu.Lock()
	assert.Equal(t, domain.RunStatusStopped, runs.last.Status)
	runs.mu.Unlock()

	assert.ErrorIs(t, s.Stop(context.Background()), domain.ErrNoActiveRun)
}

func TestUploadServiceStopWhilePaused(t *testing.T) {
	uploader := newFakeUploader()
	release := uploader.hold("a")
	s := newTestUploadService(uploader, &fakeCreator{}, nil)

	_, err := s.Start(context.Background(), "test", testRecords("a", "b"))
	require.NoError(t, err)
	waitFor(t, uploader.started, "a")

	require.NoError(t, s.Pause(context.Background()))
	release()
	require.NoError(t, s.Stop(context.Background()))
	waitDone(t, s)

	assert.Equal(t, []string{"a"}, uploader.Calls())
	assert.False(t, s.Snapshot().Paused)
}

func TestUploadServiceResetRules(t *testing.T) {
	uploader := newFakeUploader()
	release := uploader.hold("a")
	s := newTestUploadService(uploader, &fakeCreator{}, nil)

	_, err := s.Start(context.Background(), "test", testRecords("a", "b"))
	require.NoError(t, err)
	waitFor(t, uploader.started, "a")

	assert.ErrorIs(t, s.Reset(context.Background()), domain.ErrRunInProgress)
	_, err = s.Start(context.Background(), "test", testRecords("x"))
	assert.ErrorIs(t, err, domain.ErrRunInProgress)

	// An empty start during a run is a conflict and leaves the live log alone.
	_, err = s.Start(context.Background(), "test", nil)
	assert.ErrorIs(t, err, domain.ErrRunInProgress)
	for _, entry := range s.Logs() {
		assert.NotContains(t, entry.Message, "No certificates to upload")
	}

	// Still draining after stop, so reset stays blocked.
	require.NoError(t, s.Stop(context.Background()))
	assert.ErrorIs(t, s.Reset(context.Background()), domain.ErrRunInProgress)

	release()
	waitDone(t, s)

	require.NoError(t, s.Reset(context.Background()))
	st := s.Snapshot()
	assert.Equal(t, 0, st.Processed)
	assert.Equal(t, 0, st.Total)
	assert.Empty(t, st.Failures)
	assert.Empty(t, s.Logs())
	assert.Empty(t, s.Jobs())
}

func TestUploadServiceControlsWhenIdle(t *testing.T) {
	s := newTestUploadService(newFakeUploader(), &fakeCreator{}, nil)
	ctx := context.Background()

	assert.ErrorIs(t, s.Pause(ctx), domain.ErrNoActiveRun)
	assert.ErrorIs(t, s.Resume(ctx), domain.ErrNoActiveRun)
	assert.ErrorIs(t, s.Stop(ctx), domain.ErrNoActiveRun)
	assert.NoError(t, s.Reset(ctx))

	select {
	case <-s.Done():
	default:
		t.Fatal("Done must be closed when idle")
	}
}

func TestUploadServiceInterJobDelay(t *testing.T) {
	s := newTestUploadService(newFakeUploader(), &fakeCreator{}, nil)
	s.cfg.InterJobDelay = time.Second

	var waited []time.Duration
	s.after = func(d time.Duration) <-chan time.Time {
		waited = append(waited, d)
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}

	_, err := s.Run(context.Background(), "test", testRecords("a", "b", "c"))
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, time.Second}, waited, "no delay after the last job")
}

func TestUploadServiceRejectsNamelessRecord(t *testing.T) {
	uploader := newFakeUploader()
	s := newTestUploadService(uploader, &fakeCreator{}, nil)

	records := testRecords("ok")
	records = append(records, domain.CertificateRecord{Name: "   ", Image: "x"})

	state, err := s.Run(context.Background(), "test", records)
	require.NoError(t, err)
	assert.Equal(t, 1, state.Failed)
	assert.Equal(t, "Certificate #2", state.Failures[0].Name)
	assert.Equal(t, []string{"ok"}, uploader.Calls())
}

func TestNormalizeRecord(t *testing.T) {
	tests := []struct {
		name string
		in   domain.CertificateRecord
		want domain.Certificate
	}{
		{
			name: "defaults applied",
			in:   domain.CertificateRecord{Name: "  Go Expert ", Organization: " Gophers "},
			want: domain.Certificate{
				Name:         "Go Expert",
				Organization: "Gophers",
				Category:     "Certification",
				Description:  "Go Expert certificate issued by Gophers",
				Skills:       domain.StringArray{},
				ImageURL:     "https://img",
			},
		},
		{
			name: "explicit values kept",
			in: domain.CertificateRecord{
				Name: "AWS", Organization: "Amazon", Category: "Cloud",
				Description: "Associate level", Skills: []string{" s3 ", "", "iam"},
			},
			want: domain.Certificate{
				Name:         "AWS",
				Organization: "Amazon",
				Category:     "Cloud",
				Description:  "Associate level",
				Skills:       domain.StringArray{"s3", "iam"},
				ImageURL:     "https://img",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeRecord(tt.in, "https://img", "Certification")
			assert.Equal(t, tt.want, *got)
		})
	}
}
