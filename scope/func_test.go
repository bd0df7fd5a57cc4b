package scope

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guyskk/weirb-hrpc/errors"
)

func TestFuncCleanLifecycle(t *testing.T) {
	var events []string
	p := Func("tx", func(ready func() error) error {
		events = append(events, "setup")
		cause := ready()
		if cause != nil {
			events = append(events, "rollback")
			return cause
		}
		events = append(events, "commit")
		return nil
	})

	require.NoError(t, p.Start())
	assert.Equal(t, []string{"setup"}, events)
	require.NoError(t, p.Finish(nil))
	assert.Equal(t, []string{"setup", "commit"}, events)
}

func TestFuncReceivesInjectedError(t *testing.T) {
	var seen error
	p := Func("tx", func(ready func() error) error {
		cause := ready()
		seen = cause
		return cause
	})

	require.NoError(t, p.Start())
	injected := stderrors.New("handler failed")
	result := p.Finish(injected)

	assert.Same(t, injected, result)
	assert.Same(t, injected, seen)
}

func TestFuncSetupErrorIsNotViolation(t *testing.T) {
	setupErr := stderrors.New("no connection")
	p := Func("db", func(ready func() error) error {
		return setupErr
	})

	err := p.Start()
	assert.Same(t, setupErr, err)
	assert.False(t, errors.IsProtocolViolation(err))
}

func TestFuncNoReadyIsViolation(t *testing.T) {
	p := Func("db", func(ready func() error) error {
		return nil // never signals ready
	})

	err := p.Start()
	require.Error(t, err)
	assert.True(t, errors.IsProtocolViolation(err))
	assert.Contains(t, err.Error(), "without signaling ready")
}

func TestFuncDoubleReadyIsViolation(t *testing.T) {
	p := Func("db", func(ready func() error) error {
		_ = ready()
		_ = ready()
		return nil
	})

	require.NoError(t, p.Start())
	err := p.Finish(nil)
	require.Error(t, err)
	assert.True(t, errors.IsProtocolViolation(err))
	assert.Contains(t, err.Error(), "did not stop after resume")
}

func TestFuncPanicDuringSetup(t *testing.T) {
	p := Func("db", func(ready func() error) error {
		panic("setup exploded")
	})

	err := p.Start()
	require.Error(t, err)
	assert.False(t, errors.IsProtocolViolation(err))
	assert.Contains(t, err.Error(), "panic")
}

func TestFuncPanicDuringTeardown(t *testing.T) {
	p := Func("db", func(ready func() error) error {
		_ = ready()
		panic("teardown exploded")
	})

	require.NoError(t, p.Start())
	err := p.Finish(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

func TestFuncSupersedingTeardownError(t *testing.T) {
	teardownErr := stderrors.New("rollback failed")
	p := Func("tx", func(ready func() error) error {
		if cause := ready(); cause != nil {
			return teardownErr // supersedes the injected error
		}
		return nil
	})

	require.NoError(t, p.Start())
	result := p.Finish(stderrors.New("handler failed"))
	assert.Same(t, teardownErr, result)
}

func TestFuncInsideComposer(t *testing.T) {
	var events []string
	mk := func(name string) Participant {
		return Func(name, func(ready func() error) error {
			events = append(events, "enter "+name)
			cause := ready()
			events = append(events, "exit "+name)
			return cause
		})
	}
	c := NewComposer([]Participant{mk("a"), mk("b")})

	require.NoError(t, c.Enter())
	require.NoError(t, c.Exit(nil))
	assert.Equal(t, []string{"enter a", "enter b", "exit b", "exit a"}, events)
}
