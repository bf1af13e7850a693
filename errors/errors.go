package errors

import "fmt"

var (
	ErrWorkerPanic    = fmt.Errorf("worker panic")
	ErrInvalidPayload = fmt.Errorf("invalid telemetry payload")

	ErrMalformedEvent = fmt.Errorf("malformed event")
	ErrUnknownEvent   = fmt.Errorf("%w: unknown event kind", ErrMalformedEvent)

	ErrOutboundBufferFull = fmt.Errorf("outbound buffer full")
	ErrConnectionClosed   = fmt.Errorf("connection closed")
	ErrTransportFailure   = fmt.Errorf("transport failure")
	ErrRegistryInvariant  = fmt.Errorf("registry invariant violation")
	ErrNotRunning         = fmt.Errorf("orchestrator is not running")

	ErrUnsupportedProtocol = fmt.Errorf("unsupported protocol version")
	ErrInvalidTimeout      = fmt.Errorf("invalid liveness timeout")

	ErrTranslationFailed   = fmt.Errorf("translation failed")
	ErrUnsupportedLanguage = fmt.Errorf("unsupported target language")
	ErrCacheMiss           = fmt.Errorf("translation cache miss")
)
