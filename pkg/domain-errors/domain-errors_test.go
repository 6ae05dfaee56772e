package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestError() {
	s.Run("message wins over code", func() {
		s.Equal("vendor down", New(CodeVendorUnavailable, "vendor down").Error())
	})

	s.Run("code when message empty", func() {
		err := &Error{Code: CodeVerificationFailed}
		s.Equal("verification_failed", err.Error())
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("plain error takes the given code", func() {
		root := errors.New("soap fault")
		err := Wrap(root, CodeInternal, "register verification")

		s.True(HasCode(err, CodeInternal))
		s.ErrorIs(err, root)
	})

	s.Run("domain error keeps its original code", func() {
		inner := New(CodeValidation, "missing dob")
		err := Wrap(fmt.Errorf("verify: %w", inner), CodeInternal, "verify failed")

		s.True(HasCode(err, CodeValidation))
		s.Equal("verify failed", err.Error())
	})
}

func (s *DomainErrorsSuite) TestIs() {
	s.True(errors.Is(New(CodeNotFound, "a"), &Error{Code: CodeNotFound}))
	s.False(errors.Is(New(CodeNotFound, "a"), &Error{Code: CodeInternal}))
	s.False(HasCode(errors.New("not found"), CodeNotFound))
}
