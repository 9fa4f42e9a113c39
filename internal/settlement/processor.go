package settlement

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Processor runs settlement on a timer instead of on every inbound
// request: the same idempotent pass, decoupled from request latency.
type Processor struct {
	service      *Service
	processDelay time.Duration // Time between settlement passes
}

func NewProcessor(service *Service, processDelay time.Duration) *Processor {
	if processDelay <= 0 {
		processDelay = time.Minute
	}
	return &Processor{
		service:      service,
		processDelay: processDelay,
	}
}

// Start begins the settlement processing loop
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "settlement_processor").Logger()
	logger.Info().Dur("interval", p.processDelay).Msg("starting settlement processor")

	ticker := time.NewTicker(p.processDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down settlement processor")
			return
		case <-ticker.C:
			if _, err := p.service.RunSettlement(time.Now()); err != nil {
				logger.Error().Err(err).Msg("settlement pass failed")
			}
		}
	}
}
