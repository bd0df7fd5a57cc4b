package scope

import (
	"fmt"

	"github.com/guyskk/weirb-hrpc/errors"
)

// Func builds a Participant from a generator-style scope function. fn runs
// on its own goroutine and must call ready exactly once when setup is
// complete; ready blocks until teardown and returns the error being
// propagated, if any (nil on the clean path). After ready returns, fn must
// run to completion; its return value is the participant's Finish result.
//
// Contract breaches are surfaced as protocol violations rather than
// ordinary failures:
//
//   - fn returns nil without calling ready ("setup never completed")
//   - fn calls ready more than once ("did not stop after resume")
//
// fn returning an error before calling ready is a normal setup failure, not
// a violation. name identifies the scope in diagnostics.
//
//	scope.Func("db.tx", func(ready func() error) error {
//		tx, err := db.Begin()
//		if err != nil {
//			return err
//		}
//		if cause := ready(); cause != nil {
//			tx.Rollback()
//			return cause
//		}
//		return tx.Commit()
//	})
func Func(name string, fn func(ready func() error) error) Participant {
	return &funcParticipant{
		name:   name,
		fn:     fn,
		ready:  make(chan struct{}, 1),
		again:  make(chan struct{}, 1),
		resume: make(chan error),
		done:   make(chan error, 1),
	}
}

type funcParticipant struct {
	name       string
	fn         func(ready func() error) error
	readyCalls int // touched only by the fn goroutine

	ready  chan struct{}
	again  chan struct{}
	resume chan error
	done   chan error
}

// Start launches fn and waits for either the ready signal or fn returning
// without one.
func (p *funcParticipant) Start() error {
	go func() {
		p.done <- p.run()
	}()

	select {
	case <-p.ready:
		return nil
	case err := <-p.done:
		if err != nil {
			// Setup failed before reaching the suspension point.
			return err
		}
		return errors.NewProtocolViolation(p.name, "scope completed without signaling ready")
	}
}

// Finish resumes fn with the propagating error and waits for it to run to
// completion.
func (p *funcParticipant) Finish(cause error) error {
	p.resume <- cause
	err := <-p.done

	// A second ready signal is sent before fn can return, so it is
	// already observable here.
	select {
	case <-p.again:
		return errors.NewProtocolViolation(p.name, "scope did not stop after resume")
	default:
	}
	return err
}

func (p *funcParticipant) run() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scope %s: panic: %v", p.name, r)
		}
	}()
	return p.fn(p.signalReady)
}

// signalReady is the ready callback handed to fn.
func (p *funcParticipant) signalReady() error {
	p.readyCalls++
	if p.readyCalls == 1 {
		p.ready <- struct{}{}
		return <-p.resume
	}
	if p.readyCalls == 2 {
		p.again <- struct{}{}
	}
	return errors.NewProtocolViolation(p.name, "ready signaled more than once")
}
