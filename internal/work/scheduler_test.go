package work

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestScheduler_RunDueOrdersByTime(t *testing.T) {
	clock := NewManualClock(epoch)
	s := NewScheduler(clock, zerolog.Nop())

	var order []string
	record := func(id string) TaskFunc {
		return func(ctx context.Context) { order = append(order, id) }
	}

	s.Schedule("c", epoch.Add(3*time.Second), record("c"))
	s.Schedule("a", epoch.Add(1*time.Second), record("a"))
	s.Schedule("b", epoch.Add(1*time.Second), record("b"))
	s.Schedule("now", epoch, record("now"))

	assert.Equal(t, 1, s.RunDue(context.Background()))
	assert.Equal(t, []string{"now"}, order)

	clock.Advance(time.Second)
	assert.Equal(t, 2, s.RunDue(context.Background()))
	assert.Equal(t, []string{"now", "a", "b"}, order, "ties run in submission order")

	clock.Advance(10 * time.Second)
	assert.Equal(t, 1, s.RunDue(context.Background()))
	assert.Equal(t, 0, s.Len())
}

func TestScheduler_RunDueIncludesNewlyDueTasks(t *testing.T) {
	clock := NewManualClock(epoch)
	s := NewScheduler(clock, zerolog.Nop())

	count := 0
	var step TaskFunc
	step = func(ctx context.Context) {
		count++
		if count < 3 {
			s.Schedule("chain", clock.Now(), step)
		}
	}
	s.Schedule("chain", epoch, step)

	assert.Equal(t, 3, s.RunDue(context.Background()))
	assert.Equal(t, 3, count)
}

func TestScheduler_NeverRunsEarly(t *testing.T) {
	clock := NewManualClock(epoch)
	s := NewScheduler(clock, zerolog.Nop())

	ran := false
	s.Schedule("later", epoch.Add(time.Minute), func(ctx context.Context) { ran = true })

	clock.Advance(59 * time.Second)
	assert.Equal(t, 0, s.RunDue(context.Background()))
	assert.False(t, ran)

	next, ok := s.NextAt()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(time.Minute), next)
}

func TestScheduler_PanicIsContained(t *testing.T) {
	clock := NewManualClock(epoch)
	s := NewScheduler(clock, zerolog.Nop())

	after := false
	s.Schedule("boom", epoch, func(ctx context.Context) { panic("boom") })
	s.Schedule("after", epoch, func(ctx context.Context) { after = true })

	assert.NotPanics(t, func() { s.RunDue(context.Background()) })
	assert.True(t, after)
}

func TestScheduler_RunDispatchesOnAdvance(t *testing.T) {
	clock := NewManualClock(epoch)
	s := NewScheduler(clock, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	fired := make(chan string, 2)
	s.Schedule("immediate", epoch, func(ctx context.Context) { fired <- "immediate" })
	s.Schedule("delayed", epoch.Add(5*time.Second), func(ctx context.Context) { fired <- "delayed" })

	select {
	case id := <-fired:
		assert.Equal(t, "immediate", id)
	case <-time.After(2 * time.Second):
		t.Fatal("immediate task did not run")
	}

	// Keep advancing until the run loop has registered its wait for the delayed task.
	deadline := time.After(2 * time.Second)
	for {
		clock.Advance(5 * time.Second)
		select {
		case id := <-fired:
			assert.Equal(t, "delayed", id)
			cancel()
			<-done
			return
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			cancel()
			t.Fatal("delayed task did not run")
		}
	}
}

func TestManualClock_AfterFiresOnAdvance(t *testing.T) {
	clock := NewManualClock(epoch)

	ch := clock.After(time.Second)
	select {
	case <-ch:
		t.Fatal("fired early")
	default:
	}

	clock.Advance(time.Second)
	select {
	case ts := <-ch:
		assert.Equal(t, epoch.Add(time.Second), ts)
	default:
		t.Fatal("did not fire")
	}

	immediate := clock.After(0)
	select {
	case <-immediate:
	default:
		t.Fatal("zero duration should fire immediately")
	}

	clock.Set(epoch)
	assert.Equal(t, epoch.Add(time.Second), clock.Now(), "Set never moves backwards")
}
