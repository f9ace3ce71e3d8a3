package lib

import (
	"errors"
	"time"
)

var (
	TIMEOUT = 2 * time.Minute

	ErrMissingFields         = errors.New("missing required fields")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrUserNotFound          = errors.New("user not found")
	ErrQuotaExceeded         = errors.New("generation limit reached")
	ErrProviderQuotaExceeded = errors.New("generative provider quota exceeded")
	ErrEmptyGeneration       = errors.New("generated prompt is empty")
	ErrGenerationFailed      = errors.New("failed to generate prompt")
	ErrPromptNotFound        = errors.New("prompt not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrLinkNotFound          = errors.New("link not found")
	ErrLinkExpired           = errors.New("link expired")
	ErrInvalidPlan           = errors.New("invalid plan")
	ErrInvalidEmail          = errors.New("invalid email format")
)

const (
	MaxInputLength     = 2000
	DefaultPromptsPage = 20
	MaxPromptsPage     = 100
	ShareLinkTTL       = 7 * 24 * time.Hour
	WaitlistTotalSpots = 250

	// WhitespaceChars is the ECMAScript \s set (WhiteSpace and LineTerminator) as a
	// regexp class body; Go's \s only covers ASCII.
	WhitespaceChars = `\t\n\v\f\r \x{00a0}\x{1680}\x{2000}-\x{200a}\x{2028}\x{2029}\x{202f}\x{205f}\x{3000}\x{feff}`
)
