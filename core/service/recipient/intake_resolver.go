// Package recipient maps a recipient address to an active politician.
package recipient

import (
	"context"

	"intake_server/core/domain"
	"intake_server/core/port/out"
	"intake_server/pkg/logger"
)

// Resolver looks up politicians by primary address, then by alias.
// Storage errors are logged and reported as "not found".
type Resolver struct {
	repo out.PoliticianRepository
	log  *logger.Logger
}

func NewResolver(repo out.PoliticianRepository, log *logger.Logger) *Resolver {
	if log == nil {
		log = logger.Default()
	}
	return &Resolver{repo: repo, log: log}
}

// Resolve returns the politician addressed by email and whether one was found.
func (r *Resolver) Resolve(ctx context.Context, email string) (*domain.Politician, bool) {
	p, err := r.repo.FindActiveByEmail(ctx, email)
	if err != nil {
		r.log.WithError(err).WithField("recipient", email).Warn("primary email lookup failed, treating as not found")
		return nil, false
	}
	if p != nil {
		return p, true
	}

	p, err = r.repo.FindActiveByAlias(ctx, email)
	if err != nil {
		r.log.WithError(err).WithField("recipient", email).Warn("alias lookup failed, treating as not found")
		return nil, false
	}
	if p != nil {
		return p, true
	}
	return nil, false
}
