package challenge

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmoon-dev/laughless/pkg/models"
)

type fakeSource struct {
	frame []byte
	err   error
}

func (f *fakeSource) Capture(ctx context.Context) ([]byte, error) {
	return f.frame, f.err
}

type fakeClassifier struct {
	emotion string
	err     error
	calls   atomic.Int64
	block   chan struct{} // when set, Predict blocks until closed
}

func (f *fakeClassifier) Predict(ctx context.Context, frame []byte) (string, error) {
	f.calls.Add(1)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.emotion, f.err
}

type fakePoster struct {
	mu     sync.Mutex
	events []*models.LaughEvent
	posted chan struct{}
}

func newFakePoster() *fakePoster {
	return &fakePoster{posted: make(chan struct{}, models.MaxLives)}
}

func (f *fakePoster) PostEvent(ctx context.Context, ev *models.LaughEvent) error {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
	f.posted <- struct{}{}
	return nil
}

func (f *fakePoster) all() []*models.LaughEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.LaughEvent(nil), f.events...)
}

type fakeUploader struct {
	mu     sync.Mutex
	calls  int
	frames [][]byte
	urls   []string
	err    error
}

func (f *fakeUploader) Upload(ctx context.Context, sessionID string, frames [][]byte) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.frames = frames
	return f.urls, f.err
}

type fakeFinisher struct {
	mu    sync.Mutex
	calls int
	urls  []string
	err   error
}

func (f *fakeFinisher) Finish(ctx context.Context, sessionID string, urls []string) (*FinishResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.urls = urls
	return &FinishResult{Success: true}, f.err
}

func (f *fakeFinisher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestGuard(t *testing.T) {
	var g Guard
	assert.True(t, g.TryAcquire())
	assert.False(t, g.TryAcquire(), "held guard must reject")
	g.Release()
	assert.True(t, g.TryAcquire())
}

func TestCooldown_TryArm(t *testing.T) {
	var c Cooldown
	assert.True(t, c.TryArm(30*time.Millisecond))
	assert.True(t, c.Active())
	assert.False(t, c.TryArm(30*time.Millisecond), "open window must reject")

	time.Sleep(40 * time.Millisecond)
	assert.False(t, c.Active())
	assert.True(t, c.TryArm(30*time.Millisecond), "expired window must re-arm")
}

func TestCooldown_ConcurrentArmAdmitsOne(t *testing.T) {
	var c Cooldown
	var wins atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.TryArm(time.Second) {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), wins.Load())
}

func TestSampler_CooldownCollapsesSustainedLaugh(t *testing.T) {
	cls := &fakeClassifier{emotion: "laugh"}
	var detections atomic.Int64

	s := NewSampler(&fakeSource{frame: []byte("jpeg")}, cls, 5*time.Millisecond, time.Hour, func(d Detection) {
		detections.Add(1)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	s.Run(ctx, time.Now())

	assert.Equal(t, int64(1), detections.Load(), "one detection per cooldown window")
	assert.Greater(t, cls.calls.Load(), int64(1), "sampling continues through the window")
}

func TestSampler_DropsTicksWhileClassifyInFlight(t *testing.T) {
	cls := &fakeClassifier{emotion: "neutral", block: make(chan struct{})}

	s := NewSampler(&fakeSource{frame: []byte("jpeg")}, cls, 5*time.Millisecond, time.Hour, func(Detection) {
		t.Error("no detection expected")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()
	s.Run(ctx, time.Now())
	close(cls.block)

	assert.Equal(t, int64(1), cls.calls.Load(), "extra ticks are dropped, not queued")
}

func TestSampler_FailuresAreSwallowed(t *testing.T) {
	cls := &fakeClassifier{err: assert.AnError}

	s := NewSampler(&fakeSource{frame: []byte("jpeg")}, cls, 5*time.Millisecond, time.Hour, func(Detection) {
		t.Error("no detection expected")
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	s.Run(ctx, time.Now())

	assert.Greater(t, cls.calls.Load(), int64(1), "loop keeps sampling after failures")
}

func TestEventRecorder_IndexAndWindow(t *testing.T) {
	poster := newFakePoster()
	rec := NewEventRecorder(poster, "s1", "kim")

	rec.Record(models.MaxLives, Detection{DetectedTime: 42})
	select {
	case <-poster.posted:
	case <-time.After(time.Second):
		t.Fatal("event was never posted")
	}

	events := poster.all()
	require.Len(t, events, 1)
	ev := events[0]
	assert.Equal(t, "s1", ev.SessionID)
	assert.Equal(t, "kim", ev.Nickname)
	assert.Equal(t, 0, ev.EventIndex, "first life lost is index 0")
	assert.Equal(t, int64(42), ev.DetectedTime)
	assert.Equal(t, int64(41), ev.StartTime)
	assert.Equal(t, int64(43), ev.EndTime)
}

func TestController_NicknameStateMachine(t *testing.T) {
	c := NewController(Config{}, nil, nil, nil, &fakeFinisher{})

	assert.Equal(t, StateNickname, c.State())
	assert.Error(t, c.SetNickname(""), "empty nickname rejected")
	require.NoError(t, c.SetNickname("kim"))
	assert.Equal(t, StateStart, c.State())
	assert.Error(t, c.SetNickname("other"), "nickname is set once")
	assert.NotEmpty(t, c.SessionID())
}

func TestController_CountdownExpiry(t *testing.T) {
	cls := &fakeClassifier{emotion: "neutral"}
	uploader := &fakeUploader{}
	finisher := &fakeFinisher{}

	c := NewController(Config{
		Duration:       50 * time.Millisecond,
		SampleInterval: 5 * time.Millisecond,
		Cooldown:       time.Hour,
	}, &fakeSource{frame: []byte("jpeg")}, cls, uploader, finisher)

	require.NoError(t, c.SetNickname("kim"))
	require.NoError(t, c.Start(context.Background(), newFakePoster()))

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session never finished")
	}

	assert.Equal(t, StateUploadSuccess, c.State())
	assert.Equal(t, models.MaxLives, c.Lives())
	assert.Equal(t, 1, finisher.callCount())
	assert.Equal(t, 0, uploader.calls, "nothing captured, nothing uploaded")
}

func TestController_LivesExhaustion(t *testing.T) {
	cls := &fakeClassifier{emotion: "laugh"}
	uploader := &fakeUploader{urls: []string{"u0", "u1", "u2", "u3"}}
	finisher := &fakeFinisher{}
	poster := newFakePoster()

	c := NewController(Config{
		Duration:       10 * time.Second,
		SampleInterval: 2 * time.Millisecond,
		Cooldown:       5 * time.Millisecond,
	}, &fakeSource{frame: []byte("jpeg")}, cls, uploader, finisher)

	require.NoError(t, c.SetNickname("kim"))
	require.NoError(t, c.Start(context.Background(), poster))

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("lives were never exhausted")
	}

	assert.Equal(t, StateUploadFail, c.State())
	assert.Equal(t, 0, c.Lives())
	assert.Equal(t, 1, finisher.callCount(), "finalize runs exactly once")
	assert.Equal(t, 1, uploader.calls)
	assert.Len(t, uploader.frames, models.MaxLives)
	assert.Equal(t, []string{"u0", "u1", "u2", "u3"}, finisher.urls)
}

func TestController_FinishFailuresStillTerminate(t *testing.T) {
	uploader := &fakeUploader{err: assert.AnError}
	finisher := &fakeFinisher{err: assert.AnError}

	c := NewController(Config{
		Duration:       10 * time.Second,
		SampleInterval: 2 * time.Millisecond,
		Cooldown:       2 * time.Millisecond,
	}, &fakeSource{frame: []byte("jpeg")}, &fakeClassifier{emotion: "laugh"}, uploader, finisher)

	require.NoError(t, c.SetNickname("kim"))
	require.NoError(t, c.Start(context.Background(), newFakePoster()))

	select {
	case <-c.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session never finished")
	}

	assert.True(t, c.State().Terminal())
	assert.Equal(t, 1, finisher.callCount())
}

type fakeFetcher struct {
	mu      sync.Mutex
	batches [][]models.RecommendationSection
	err     error
	fetched int
}

func (f *fakeFetcher) Recommendations(ctx context.Context, sessionID string) ([]models.RecommendationSection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	i := f.fetched
	if i >= len(f.batches) {
		i = len(f.batches) - 1
	}
	f.fetched++
	return f.batches[i], nil
}

func TestPoller_MergesFirstArrivalWins(t *testing.T) {
	fetcher := &fakeFetcher{batches: [][]models.RecommendationSection{
		{{EventIndex: 1, Query: "first"}},
		{{EventIndex: 1, Query: "changed"}, {EventIndex: 0, Query: "late"}},
	}}
	p := NewPoller(fetcher, "s1", time.Second)

	assert.True(t, p.poll(context.Background()), "new section arrived")
	assert.True(t, p.poll(context.Background()), "second poll adds index 0")
	assert.False(t, p.poll(context.Background()), "nothing new on repeat")

	sections := p.Sections()
	require.Len(t, sections, 2)
	assert.Equal(t, 0, sections[0].EventIndex)
	assert.Equal(t, "late", sections[0].Query)
	assert.Equal(t, "first", sections[1].Query, "first arrival wins")
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	fetcher := &fakeFetcher{batches: [][]models.RecommendationSection{
		{{EventIndex: 0, Query: "only"}},
	}}
	p := NewPoller(fetcher, "s1", 5*time.Millisecond)

	updates := make(chan int, 8)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		p.Run(ctx, func(secs []models.RecommendationSection) {
			updates <- len(secs)
		})
		close(done)
	}()

	select {
	case n := <-updates:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		t.Fatal("no update from the immediate poll")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on cancel")
	}
}

func TestPoller_PollFailureIsRetriable(t *testing.T) {
	fetcher := &fakeFetcher{err: assert.AnError}
	p := NewPoller(fetcher, "s1", time.Second)

	assert.False(t, p.poll(context.Background()))
	assert.Empty(t, p.Sections())

	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.batches = [][]models.RecommendationSection{{{EventIndex: 0}}}
	fetcher.mu.Unlock()

	assert.True(t, p.poll(context.Background()))
	require.Len(t, p.Sections(), 1)
}
