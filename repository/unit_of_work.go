package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"royalties/database"
	"royalties/events"
	"royalties/service"
)

// unitOfWork implements the service.UnitOfWork interface. The run manager
// opens one unit of work per channel so each channel commits or rolls
// back independently.
type unitOfWork struct {
	db               *database.DB
	tx               pgx.Tx
	ctx              context.Context
	transactionalBus *events.TransactionalBus

	runRepo           service.RoyaltyRunRepository
	lineRepo          service.RoyaltyRunLineRepository
	collaborationRepo service.CollaborationRepository
	workRepo          service.WorkRepository
	streamRepo        service.StreamRepository
	digitalRepo       service.DigitalSaleRepository
	vinylRepo         service.VinylRepository
	sponsorshipRepo   service.SponsorshipRepository
	capabilitiesRepo  service.CapabilitiesRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:               f.db,
		transactionalBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories with the transaction
	u.runRepo = newRoyaltyRunRepositoryWithTx(tx)
	u.lineRepo = newRoyaltyRunLineRepositoryWithTx(tx)
	u.collaborationRepo = newCollaborationRepositoryWithTx(tx)
	u.workRepo = newWorkRepositoryWithTx(tx)
	u.streamRepo = newStreamRepositoryWithTx(tx)
	u.digitalRepo = newDigitalSaleRepositoryWithTx(tx)
	u.vinylRepo = newVinylRepositoryWithTx(tx)
	u.sponsorshipRepo = newSponsorshipRepositoryWithTx(tx)
	u.capabilitiesRepo = newCapabilitiesRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and flushes pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	err := u.tx.Commit(u.ctx)
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	u.tx = nil

	if u.transactionalBus != nil {
		u.transactionalBus.Discard()
	}

	return nil
}

// Runs returns the royalty run repository for this unit of work
func (u *unitOfWork) Runs() service.RoyaltyRunRepository {
	if u.runRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.runRepo
}

// Lines returns the royalty run line repository for this unit of work
func (u *unitOfWork) Lines() service.RoyaltyRunLineRepository {
	if u.lineRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.lineRepo
}

// Collaborations returns the collaboration repository for this unit of work
func (u *unitOfWork) Collaborations() service.CollaborationRepository {
	if u.collaborationRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.collaborationRepo
}

// Works returns the work repository for this unit of work
func (u *unitOfWork) Works() service.WorkRepository {
	if u.workRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.workRepo
}

// Streams returns the stream repository for this unit of work
func (u *unitOfWork) Streams() service.StreamRepository {
	if u.streamRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.streamRepo
}

// DigitalSales returns the digital sale repository for this unit of work
func (u *unitOfWork) DigitalSales() service.DigitalSaleRepository {
	if u.digitalRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.digitalRepo
}

// Vinyl returns the vinyl repository for this unit of work
func (u *unitOfWork) Vinyl() service.VinylRepository {
	if u.vinylRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.vinylRepo
}

// Sponsorships returns the sponsorship repository for this unit of work
func (u *unitOfWork) Sponsorships() service.SponsorshipRepository {
	if u.sponsorshipRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.sponsorshipRepo
}

// Capabilities returns the schema capabilities repository for this unit of work
func (u *unitOfWork) Capabilities() service.CapabilitiesRepository {
	if u.capabilitiesRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.capabilitiesRepo
}

// EventBus returns the transactional event bus for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.transactionalBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.transactionalBus
}
