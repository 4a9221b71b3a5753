package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"sstload/internal/loader/models"
	"sstload/pkg/platform/sentinel"
)

type ClassifySuite struct {
	suite.Suite
}

func TestClassifySuite(t *testing.T) {
	suite.Run(t, new(ClassifySuite))
}

func (s *ClassifySuite) TestClassify() {
	s.Run("nil stays nil", func() {
		s.NoError(classify("op", nil))
	})

	s.Run("constraint violations become conflicts", func() {
		for _, code := range []pq.ErrorCode{"23505", "23P01"} {
			err := classify("insert version", &pq.Error{Code: code, Message: "boom"})
			s.ErrorIs(err, sentinel.ErrConflict, "code %s", code)
			s.False(models.IsTransient(err))
		}
	})

	s.Run("serialization and shutdown codes are transient", func() {
		for _, code := range []pq.ErrorCode{"40001", "40P01", "57014", "57P01", "57P02", "57P03"} {
			err := classify("commit version", &pq.Error{Code: code})
			s.True(models.IsTransient(err), "code %s", code)
		}
	})

	s.Run("connection exception class is transient", func() {
		err := classify("read items", &pq.Error{Code: "08006"})
		s.True(models.IsTransient(err))
	})

	s.Run("driver and context failures are transient", func() {
		s.True(models.IsTransient(classify("begin commit", driver.ErrBadConn)))
		s.True(models.IsTransient(classify("begin commit", context.DeadlineExceeded)))
	})

	s.Run("unknown errors pass through as fatal", func() {
		base := errors.New("syntax error")
		err := classify("list versions", base)
		s.ErrorIs(err, base)
		s.False(models.IsTransient(err))
		s.False(errors.Is(err, sentinel.ErrConflict))
	})

	s.Run("unknown SQLSTATEs pass through as fatal", func() {
		err := classify("insert version", &pq.Error{Code: "22P02"})
		s.False(models.IsTransient(err))
	})
}
