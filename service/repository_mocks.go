package service

import (
	"context"
	"time"

	"royalties/events"
	"royalties/models"

	"github.com/stretchr/testify/mock"
)

// MockRoyaltyRunRepository is a mock implementation of RoyaltyRunRepository
type MockRoyaltyRunRepository struct {
	mock.Mock
}

func (m *MockRoyaltyRunRepository) Create(ctx context.Context, run *models.RoyaltyRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockRoyaltyRunRepository) UpdateStatus(ctx context.Context, runID int64, status models.RunStatus, notes *string) error {
	args := m.Called(ctx, runID, status, notes)
	return args.Error(0)
}

func (m *MockRoyaltyRunRepository) GetByID(ctx context.Context, runID int64) (*models.RoyaltyRun, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoyaltyRun), args.Error(1)
}

func (m *MockRoyaltyRunRepository) GetLatestCompletedForWindow(ctx context.Context, periodStart, periodEnd time.Time, region string) (*models.RoyaltyRun, error) {
	args := m.Called(ctx, periodStart, periodEnd, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RoyaltyRun), args.Error(1)
}

func (m *MockRoyaltyRunRepository) AcquireWindowLock(ctx context.Context, periodStart, periodEnd time.Time, region string) error {
	args := m.Called(ctx, periodStart, periodEnd, region)
	return args.Error(0)
}

func (m *MockRoyaltyRunRepository) FailStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// MockRoyaltyRunLineRepository is a mock implementation of RoyaltyRunLineRepository
type MockRoyaltyRunLineRepository struct {
	mock.Mock
}

func (m *MockRoyaltyRunLineRepository) Insert(ctx context.Context, line *models.RoyaltyRunLine) error {
	args := m.Called(ctx, line)
	return args.Error(0)
}

func (m *MockRoyaltyRunLineRepository) CountByRun(ctx context.Context, runID int64) (int, error) {
	args := m.Called(ctx, runID)
	return args.Int(0), args.Error(1)
}

func (m *MockRoyaltyRunLineRepository) SumByRunAndSource(ctx context.Context, runID int64, source models.Source) (int64, error) {
	args := m.Called(ctx, runID, source)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRoyaltyRunLineRepository) ListByRun(ctx context.Context, runID int64) ([]*models.RoyaltyRunLine, error) {
	args := m.Called(ctx, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.RoyaltyRunLine), args.Error(1)
}

// MockCollaborationRepository is a mock implementation of CollaborationRepository
type MockCollaborationRepository struct {
	mock.Mock
}

func (m *MockCollaborationRepository) GetByWork(ctx context.Context, workType models.WorkType, workID int64) (*models.Collaboration, error) {
	args := m.Called(ctx, workType, workID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Collaboration), args.Error(1)
}

// MockWorkRepository is a mock implementation of WorkRepository
type MockWorkRepository struct {
	mock.Mock
}

func (m *MockWorkRepository) OwnerBand(ctx context.Context, workType models.WorkType, workID int64) (*int64, error) {
	args := m.Called(ctx, workType, workID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*int64), args.Error(1)
}

// MockStreamRepository is a mock implementation of StreamRepository
type MockStreamRepository struct {
	mock.Mock
}

func (m *MockStreamRepository) CappedPlayTotals(ctx context.Context, start, end time.Time, cap int64, regionCol, region string) ([]models.PlayTotal, error) {
	args := m.Called(ctx, start, end, cap, regionCol, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PlayTotal), args.Error(1)
}

// MockDigitalSaleRepository is a mock implementation of DigitalSaleRepository
type MockDigitalSaleRepository struct {
	mock.Mock
}

func (m *MockDigitalSaleRepository) RevenueByWork(ctx context.Context, start, end time.Time, regionCol, region string) ([]models.WorkRevenue, error) {
	args := m.Called(ctx, start, end, regionCol, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.WorkRevenue), args.Error(1)
}

// MockVinylRepository is a mock implementation of VinylRepository
type MockVinylRepository struct {
	mock.Mock
}

func (m *MockVinylRepository) ConfirmedRevenueByAlbum(ctx context.Context, start, end time.Time, regionCol, region string) ([]models.AlbumRevenue, error) {
	args := m.Called(ctx, start, end, regionCol, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AlbumRevenue), args.Error(1)
}

// MockSponsorshipRepository is a mock implementation of SponsorshipRepository
type MockSponsorshipRepository struct {
	mock.Mock
}

func (m *MockSponsorshipRepository) ImpressionsByVenue(ctx context.Context, start, end time.Time, regionCol, region string) ([]models.VenueImpressions, error) {
	args := m.Called(ctx, start, end, regionCol, region)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VenueImpressions), args.Error(1)
}

func (m *MockSponsorshipRepository) ListActiveCovering(ctx context.Context, start, end time.Time) ([]*models.VenueSponsorship, error) {
	args := m.Called(ctx, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.VenueSponsorship), args.Error(1)
}

func (m *MockSponsorshipRepository) CountImpressions(ctx context.Context, sponsorshipID int64, start, end time.Time, regionCol, region string) (int64, error) {
	args := m.Called(ctx, sponsorshipID, start, end, regionCol, region)
	return args.Get(0).(int64), args.Error(1)
}

// MockCapabilitiesRepository is a mock implementation of CapabilitiesRepository
type MockCapabilitiesRepository struct {
	mock.Mock
}

func (m *MockCapabilitiesRepository) Resolve(ctx context.Context) (models.SchemaCapabilities, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.SchemaCapabilities), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repository
// accessors return whatever SetRepositories stored; only Begin, Commit
// and Rollback go through the mock expectation machinery.
type MockUnitOfWork struct {
	mock.Mock

	runs           RoyaltyRunRepository
	lines          RoyaltyRunLineRepository
	collaborations CollaborationRepository
	works          WorkRepository
	streams        StreamRepository
	digitalSales   DigitalSaleRepository
	vinyl          VinylRepository
	sponsorships   SponsorshipRepository
	capabilities   CapabilitiesRepository
	eventBus       EventPublisher
}

// SetRepositories configures which repository implementations the unit
// of work hands out. Nil entries are fine for repositories a test never
// touches.
func (m *MockUnitOfWork) SetRepositories(
	runs RoyaltyRunRepository,
	lines RoyaltyRunLineRepository,
	collaborations CollaborationRepository,
	works WorkRepository,
	streams StreamRepository,
	digitalSales DigitalSaleRepository,
	vinyl VinylRepository,
	sponsorships SponsorshipRepository,
	capabilities CapabilitiesRepository,
	eventBus EventPublisher,
) {
	m.runs = runs
	m.lines = lines
	m.collaborations = collaborations
	m.works = works
	m.streams = streams
	m.digitalSales = digitalSales
	m.vinyl = vinyl
	m.sponsorships = sponsorships
	m.capabilities = capabilities
	m.eventBus = eventBus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Runs() RoyaltyRunRepository              { return m.runs }
func (m *MockUnitOfWork) Lines() RoyaltyRunLineRepository         { return m.lines }
func (m *MockUnitOfWork) Collaborations() CollaborationRepository { return m.collaborations }
func (m *MockUnitOfWork) Works() WorkRepository                   { return m.works }
func (m *MockUnitOfWork) Streams() StreamRepository               { return m.streams }
func (m *MockUnitOfWork) DigitalSales() DigitalSaleRepository     { return m.digitalSales }
func (m *MockUnitOfWork) Vinyl() VinylRepository                  { return m.vinyl }
func (m *MockUnitOfWork) Sponsorships() SponsorshipRepository     { return m.sponsorships }
func (m *MockUnitOfWork) Capabilities() CapabilitiesRepository    { return m.capabilities }
func (m *MockUnitOfWork) EventBus() EventPublisher                { return m.eventBus }

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
