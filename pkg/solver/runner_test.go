package solver_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/keel/pkg/domain"
	"github.com/aretw0/keel/pkg/ports"
	"github.com/aretw0/keel/pkg/scene"
	"github.com/aretw0/keel/pkg/solver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func freeScene(t *testing.T) (*scene.Scene, *scene.Node) {
	t.Helper()
	s := scene.New()
	f, err := s.Create(domain.KindFrame, "f", domain.NoHandle, map[string]any{
		"position": [3]float64{0, 0, 4},
		"fixed":    domain.DOF{true, true, false, true, true, true},
	})
	require.NoError(t, err)
	return s, f
}

// settle halves every free variable until it is below tolerance.
var settle = solver.Func(func(ctx context.Context, ex ports.Exchange) (bool, error) {
	for i := 0; i < 100; i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		values := ex.FreeVariables()
		done := true
		for j, v := range values {
			values[j] = v / 2
			if v > 1e-6 || v < -1e-6 {
				done = false
			}
		}
		if err := ex.SetFreeVariables(values); err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
	}
	return false, nil
})

var block = solver.Func(func(ctx context.Context, _ ports.Exchange) (bool, error) {
	<-ctx.Done()
	return false, ctx.Err()
})

func TestRunner_Converges(t *testing.T) {
	s, f := freeScene(t)
	var finished atomic.Int32
	r := solver.NewRunner(settle, solver.WithHooks(domain.LifecycleHooks{
		OnSolveFinished: func(_ context.Context, e *domain.SolveEvent) {
			if e.Converged {
				finished.Add(1)
			}
		},
	}))

	require.NoError(t, r.Start(t.Context(), s))
	converged, err := r.Wait(t.Context())
	require.NoError(t, err)
	assert.True(t, converged)
	assert.True(t, r.Converged())
	assert.False(t, r.Running())
	assert.False(t, s.Solving())
	assert.Equal(t, int32(1), finished.Load())

	z := f.Data().(*scene.FrameData).Position[2]
	assert.InDelta(t, 0, z, 1e-6)
	pose, err := s.GlobalPose(f.Handle())
	require.NoError(t, err)
	assert.InDelta(t, 0, pose.Position.Z, 1e-6)
}

func TestRunner_CancelThroughScene(t *testing.T) {
	s, _ := freeScene(t)
	r := solver.NewRunner(block, solver.WithTimeout(0))
	require.NoError(t, r.Start(t.Context(), s))
	assert.True(t, r.Running())

	_, err := s.Create(domain.KindFrame, "g", domain.NoHandle, nil)
	assert.ErrorIs(t, err, domain.ErrSolveActive)
	assert.ErrorIs(t, r.Start(t.Context(), s), domain.ErrSolveActive)

	assert.True(t, s.CancelSolve())
	converged, err := r.Wait(t.Context())
	assert.False(t, converged)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, r.Running())

	_, err = s.Create(domain.KindFrame, "g", domain.NoHandle, nil)
	assert.NoError(t, err)
}

func TestRunner_Cancel(t *testing.T) {
	s, _ := freeScene(t)
	r := solver.NewRunner(block)
	require.NoError(t, r.Start(t.Context(), s))
	r.Cancel()
	_, err := r.Wait(t.Context())
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, r.Err(), context.Canceled)
}

func TestRunner_Timeout(t *testing.T) {
	s, _ := freeScene(t)
	r := solver.NewRunner(block, solver.WithTimeout(10*time.Millisecond))
	require.NoError(t, r.Start(t.Context(), s))
	converged, err := r.Wait(t.Context())
	assert.False(t, converged)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunner_SecondTargetRunner(t *testing.T) {
	s, _ := freeScene(t)
	first := solver.NewRunner(block)
	second := solver.NewRunner(settle)
	require.NoError(t, first.Start(t.Context(), s))
	defer first.Cancel()

	assert.ErrorIs(t, second.Start(t.Context(), s), domain.ErrSolveActive)
	assert.False(t, second.Running())

	converged, err := second.Wait(t.Context())
	assert.False(t, converged)
	assert.NoError(t, err)
}

// jitter writes the free variables until cancelled.
var jitter = solver.Func(func(ctx context.Context, ex ports.Exchange) (bool, error) {
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		values := ex.FreeVariables()
		for j := range values {
			values[j] = float64(i % 7)
		}
		if err := ex.SetFreeVariables(values); err != nil {
			return false, err
		}
		ex.StateUpdate()
	}
})

func TestRunner_CopyAndDescribeDuringSolve(t *testing.T) {
	s, f := freeScene(t)
	r := solver.NewRunner(jitter, solver.WithTimeout(0))
	require.NoError(t, r.Start(t.Context(), s))

	for i := 0; i < 50; i++ {
		c, err := s.Copy()
		require.NoError(t, err)
		assert.Equal(t, 1, c.Len())
		d := s.Describe()
		require.Len(t, d.Ops, 1)
		_, err = s.GlobalPose(f.Handle())
		require.NoError(t, err)
	}

	r.Cancel()
	_, err := r.Wait(t.Context())
	assert.ErrorIs(t, err, context.Canceled)
}
