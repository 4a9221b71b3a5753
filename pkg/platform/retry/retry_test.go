package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type RetrySuite struct {
	suite.Suite
	ctx context.Context
}

func TestRetrySuite(t *testing.T) {
	suite.Run(t, new(RetrySuite))
}

func (s *RetrySuite) SetupTest() {
	s.ctx = context.Background()
}

// fastPolicy keeps backoff delays negligible in tests.
func fastPolicy(attempts int, classify Classifier) Policy {
	return Policy{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		Classify:        classify,
	}
}

func transientAlways(error) Class { return ClassTransient }

func (s *RetrySuite) TestDo() {
	s.Run("returns nil on first success", func() {
		calls := 0
		err := Do(s.ctx, fastPolicy(3, transientAlways), func(context.Context) error {
			calls++
			return nil
		})
		s.NoError(err)
		s.Equal(1, calls)
	})

	s.Run("retries transient failures until success", func() {
		calls := 0
		err := Do(s.ctx, fastPolicy(3, transientAlways), func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection reset")
			}
			return nil
		})
		s.NoError(err)
		s.Equal(3, calls)
	})

	s.Run("stops at the attempt budget", func() {
		calls := 0
		boom := errors.New("still down")
		err := Do(s.ctx, fastPolicy(3, transientAlways), func(context.Context) error {
			calls++
			return boom
		})
		s.ErrorIs(err, boom)
		s.Equal(3, calls)
	})

	s.Run("fatal errors are never retried", func() {
		calls := 0
		boom := errors.New("constraint violation")
		classify := func(error) Class { return ClassFatal }
		err := Do(s.ctx, fastPolicy(3, classify), func(context.Context) error {
			calls++
			return boom
		})
		s.ErrorIs(err, boom)
		s.Equal(1, calls)
	})

	s.Run("nil classifier treats everything as fatal", func() {
		calls := 0
		err := Do(s.ctx, fastPolicy(3, nil), func(context.Context) error {
			calls++
			return errors.New("anything")
		})
		s.Error(err)
		s.Equal(1, calls)
	})

	s.Run("classifier can mix classes", func() {
		calls := 0
		fatal := errors.New("fatal")
		classify := func(err error) Class {
			if errors.Is(err, fatal) {
				return ClassFatal
			}
			return ClassTransient
		}
		err := Do(s.ctx, fastPolicy(5, classify), func(context.Context) error {
			calls++
			if calls == 1 {
				return errors.New("transient")
			}
			return fatal
		})
		s.ErrorIs(err, fatal)
		s.Equal(2, calls)
	})

	s.Run("rejects a zero attempt budget", func() {
		err := Do(s.ctx, Policy{}, func(context.Context) error { return nil })
		s.Error(err)
	})

	s.Run("cancelled context stops retrying", func() {
		ctx, cancel := context.WithCancel(s.ctx)
		calls := 0
		err := Do(ctx, fastPolicy(10, transientAlways), func(context.Context) error {
			calls++
			if calls == 2 {
				cancel()
			}
			return errors.New("transient")
		})
		s.Error(err)
		s.LessOrEqual(calls, 3)
	})
}

func (s *RetrySuite) TestDefaultPolicy() {
	p := DefaultPolicy(transientAlways)
	s.Equal(3, p.MaxAttempts)
	s.Equal(time.Second, p.InitialInterval)
	s.NotNil(p.Classify)
}
