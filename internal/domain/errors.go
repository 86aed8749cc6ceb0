package domain

import "errors"

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing destination, end date before start date).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrInvalidRange is returned when a day range is malformed (end before start,
// outside the trip) or when the contiguous day_number invariant would break.
var ErrInvalidRange = errors.New("invalid day range")

// ErrMandatoryActivityProtected is returned when a conversational mutation
// targets a flight leg, lodging check-in/out or critical transfer.
var ErrMandatoryActivityProtected = errors.New("mandatory activity is protected")

// ErrGenerationFailure is returned when the content generator is unreachable or
// returns an empty or malformed plan. Nothing is written for that call.
var ErrGenerationFailure = errors.New("itinerary generation failed")

// ErrPersistenceFailure is returned when generated content could not be saved.
// It is distinct from ErrGenerationFailure because the content was computed.
var ErrPersistenceFailure = errors.New("itinerary could not be saved")

// ErrClassificationFailure is returned when the generator cannot be reached while
// interpreting free text. Sessions degrade to a general answer; nothing is mutated.
var ErrClassificationFailure = errors.New("intent classification failed")

// ErrMutationInProgress is returned when input arrives while a mutation is executing.
// Handlers should map this to HTTP 409 Conflict.
var ErrMutationInProgress = errors.New("a change is already in progress")

// ErrNoPendingAction is returned by confirm/decline when nothing awaits confirmation.
var ErrNoPendingAction = errors.New("no pending action")
