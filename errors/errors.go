// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package errors wraps pkg/errors and adds the error codes used across the
// binning engine. Callers match on a Code with Is() rather than on sentinel
// error values, so wrapped errors keep their identity through any number of
// Wrap/WithMessage layers.
package errors

import (
	"github.com/pkg/errors"
)

// Code is an error code which can be used to check against a given error. For
// example, see the Is() method.
type Code string

// Error codes raised by the engine. BinnedData refines Dimension: an error
// coded BinnedData also matches Dimension in Is().
const (
	ErrUncoded         Code = "Uncoded"
	ErrBinEdge         Code = "BinEdgeError"
	ErrDimension       Code = "DimensionError"
	ErrBinnedData      Code = "BinnedDataError"
	ErrVariable        Code = "VariableError"
	ErrCoordMismatch   Code = "CoordMismatchError"
	ErrInvalidArgument Code = "InvalidArgument"
	ErrSizes           Code = "SizesError"
)

// refines records which codes are refinements of a broader code.
var refines = map[Code]Code{
	ErrBinnedData:    ErrDimension,
	ErrCoordMismatch: ErrVariable,
}

func New(code Code, message string) error {
	return errors.WithStack(codedError{
		Code:    code,
		Message: message,
	})
}

// Newf is New with fmt-style formatting of the message.
func Newf(code Code, format string, args ...interface{}) error {
	return errors.WithStack(codedError{
		Code:    code,
		Message: errors.Errorf(format, args...).Error(),
	})
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func Cause(err error) error {
	return errors.Cause(err)
}

func Errorf(format string, args ...interface{}) error {
	return errors.Errorf(format, args...)
}

// Is is a fork of the Is() method from `pkg/errors` which takes as its target
// an error Code instead of an error.
func Is(err error, target Code) bool {
	match := codedError{
		Code: target,
	}
	return errors.Is(err, match)
}

func Unwrap(err error) error {
	return errors.Unwrap(err)
}

func WithMessage(err error, message string) error {
	return errors.WithMessage(err, message)
}

func WithMessagef(err error, format string, args ...interface{}) error {
	return errors.WithMessagef(err, format, args...)
}

func WithStack(err error) error {
	return errors.WithStack(err)
}

func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

func Wrapf(err error, fmt string, args ...interface{}) error {
	return errors.Wrapf(err, fmt, args...)
}

// codedError is the fundamental type used by this package to provide coded
// errors.
type codedError struct {
	Code    Code
	Message string
}

func (ce codedError) Error() string {
	return ce.Message
}

func (ce codedError) Is(err error) bool {
	e, ok := err.(codedError)
	if !ok {
		return false
	}
	if ce.Code == e.Code {
		return true
	}
	// Walk the refinement chain so that e.g. a BinnedData error still
	// matches a check for Dimension.
	for c, ok := refines[ce.Code]; ok; c, ok = refines[c] {
		if c == e.Code {
			return true
		}
	}
	return false
}
