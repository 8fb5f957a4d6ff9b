package errors

import "errors"

var (
	ErrNotFound = errors.New("auction not found")

	ErrNoOffer = errors.New("no offered bid for auction")

	ErrAlreadyFinished = errors.New("auction already finished")
)
