package mongodb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/leathercraft/inventory-service/internal/domain"
	"github.com/leathercraft/inventory-service/internal/stock"
	"github.com/leathercraft/inventory-service/pkg/cloudevents"
	"github.com/leathercraft/inventory-service/pkg/kafka"
	"github.com/leathercraft/inventory-service/pkg/logging"
	pkgtesting "github.com/leathercraft/inventory-service/pkg/testing"
)

type RecordRepositorySuite struct {
	suite.Suite
	ctx       context.Context
	container *pkgtesting.MongoDBContainer
	client    *mongo.Client
	db        *mongo.Database
	repo      *RecordRepository
	engine    *stock.Engine
}

func TestRecordRepositorySuite(t *testing.T) {
	pkgtesting.SkipIfShort(t)
	suite.Run(t, new(RecordRepositorySuite))
}

func (s *RecordRepositorySuite) SetupSuite() {
	s.ctx = context.Background()

	container, err := pkgtesting.NewMongoDBContainer(s.ctx)
	s.Require().NoError(err)
	s.container = container

	client, err := container.GetClient(s.ctx)
	s.Require().NoError(err)
	s.client = client

	s.engine = stock.NewEngine()
}

func (s *RecordRepositorySuite) TearDownSuite() {
	if s.client != nil {
		if err := s.client.Disconnect(s.ctx); err != nil {
			s.T().Logf("Failed to disconnect MongoDB client: %v", err)
		}
	}
	if s.container != nil {
		if err := s.container.Close(s.ctx); err != nil {
			s.T().Logf("Failed to close MongoDB container: %v", err)
		}
	}
}

func (s *RecordRepositorySuite) SetupTest() {
	s.db = s.client.Database("test_inventory_records")
	s.Require().NoError(s.db.Drop(s.ctx))
	s.repo = NewRecordRepository(s.db, cloudevents.NewEventFactory(cloudevents.SourceStock))
	s.Require().NoError(s.repo.EnsureIndexes(s.ctx))
}

func (s *RecordRepositorySuite) newRecord(kind domain.ItemKind, id, initial, min string) *domain.InventoryRecord {
	ref, err := domain.NewItemRef(kind, id)
	s.Require().NoError(err)
	record, err := s.engine.CreateRecord(ref, domain.MustParseQuantity(initial), domain.Thresholds{Min: domain.MustParseQuantity(min)})
	s.Require().NoError(err)
	return record
}

func (s *RecordRepositorySuite) TestSaveAndLoadRoundTrip() {
	record := s.newRecord(domain.ItemKindLeather, "veg-tan-4oz", "12.5", "3")
	record.StorageLocation = "RACK-L2"

	s.Require().NoError(s.repo.Save(s.ctx, record))
	s.Equal(int64(1), record.Version)
	s.Empty(record.GetDomainEvents())

	loaded, err := s.repo.FindByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.Require().NotNil(loaded)

	s.Equal(record.ItemRef, loaded.ItemRef)
	s.True(record.Quantity.Equal(loaded.Quantity))
	s.True(record.MinQuantity.Equal(loaded.MinQuantity))
	s.Nil(loaded.MaxQuantity)
	s.Nil(loaded.ReorderPoint)
	s.Equal(record.Status, loaded.Status)
	s.Equal("RACK-L2", loaded.StorageLocation)
	s.Require().Len(loaded.Transactions, 1)
	s.Equal(domain.TransactionInitialStock, loaded.Transactions[0].Type)
	s.Equal(int64(1), loaded.Version)

	byItem, err := s.repo.FindByItemRef(s.ctx, record.ItemRef)
	s.Require().NoError(err)
	s.Require().NotNil(byItem)
	s.Equal(record.ID, byItem.ID)
}

func (s *RecordRepositorySuite) TestFindMissingReturnsNil() {
	loaded, err := s.repo.FindByID(s.ctx, "missing")
	s.NoError(err)
	s.Nil(loaded)

	ref, _ := domain.NewItemRef(domain.ItemKindHardware, "nothing")
	loaded, err = s.repo.FindByItemRef(s.ctx, ref)
	s.NoError(err)
	s.Nil(loaded)
}

func (s *RecordRepositorySuite) TestDuplicateItemRejected() {
	first := s.newRecord(domain.ItemKindHardware, "rivet-9mm", "100", "20")
	s.Require().NoError(s.repo.Save(s.ctx, first))

	second := s.newRecord(domain.ItemKindHardware, "rivet-9mm", "5", "1")
	err := s.repo.Save(s.ctx, second)
	s.ErrorIs(err, domain.ErrRecordExists)
	s.Equal(int64(0), second.Version)
}

func (s *RecordRepositorySuite) TestStaleVersionConflicts() {
	record := s.newRecord(domain.ItemKindHardware, "snap-15mm", "40", "10")
	s.Require().NoError(s.repo.Save(s.ctx, record))

	a, err := s.repo.FindByID(s.ctx, record.ID)
	s.Require().NoError(err)
	b, err := s.repo.FindByID(s.ctx, record.ID)
	s.Require().NoError(err)

	_, err = s.engine.Mutate(a, domain.NewQuantity(-5), domain.TransactionUsage, nil, "")
	s.Require().NoError(err)
	s.Require().NoError(s.repo.Save(s.ctx, a))
	s.Equal(int64(2), a.Version)

	_, err = s.engine.Mutate(b, domain.NewQuantity(-3), domain.TransactionUsage, nil, "")
	s.Require().NoError(err)
	err = s.repo.Save(s.ctx, b)

	var conflict *domain.ConcurrencyConflictError
	s.Require().ErrorAs(err, &conflict)
	s.Equal(int64(1), conflict.ExpectedVersion)
	s.Equal(int64(1), b.Version)
	s.NotEmpty(b.GetDomainEvents())

	stored, err := s.repo.FindByID(s.ctx, record.ID)
	s.Require().NoError(err)
	s.True(stored.Quantity.Equal(domain.NewQuantity(35)))
}

func (s *RecordRepositorySuite) TestEventsWrittenToOutbox() {
	record := s.newRecord(domain.ItemKindHardware, "buckle-30mm", "12", "10")
	s.Require().NoError(s.repo.Save(s.ctx, record))

	_, err := s.engine.Reserve(record, domain.NewQuantity(4), "PO-77")
	s.Require().NoError(err)
	_, err = s.engine.Mutate(record, domain.NewQuantity(-5), domain.TransactionUsage, nil, "")
	s.Require().NoError(err)

	ctx := logging.ContextWithCorrelationID(s.ctx, "corr-1")
	s.Require().NoError(s.repo.Save(ctx, record))

	events, err := s.repo.OutboxRepository().FindByAggregateID(s.ctx, record.ID)
	s.Require().NoError(err)

	byType := make(map[string]string)
	for _, ev := range events {
		byType[ev.EventType] = ev.Topic
	}
	s.Equal(kafka.Topics.StockEvents, byType[domain.EventRecordCreated])
	s.Equal(kafka.Topics.StockEvents, byType[domain.EventStockReserved])
	s.Equal(kafka.Topics.StockAlerts, byType[domain.EventLowStock])

	for _, ev := range events {
		if ev.EventType != domain.EventStockReserved {
			continue
		}
		ce, err := ev.ToCloudEvent()
		s.Require().NoError(err)
		s.Equal("PO-77", ce.OrderID)
		s.Equal("corr-1", ce.CorrelationID)
		s.Equal("hardware", ce.ItemKind)
		s.Equal(cloudevents.RecordSubject(record.ID), ce.Subject)
	}
}

func (s *RecordRepositorySuite) TestFindNeedingReorder() {
	low := s.newRecord(domain.ItemKindHardware, "ring-d-20mm", "5", "10")
	ok := s.newRecord(domain.ItemKindHardware, "ring-o-20mm", "50", "10")

	byPoint := s.newRecord(domain.ItemKindHardware, "ring-d-25mm", "15", "10")
	point := domain.NewQuantity(20)
	s.Require().NoError(s.engine.UpdateThresholds(byPoint, domain.Thresholds{Min: domain.NewQuantity(10), ReorderPoint: &point}))

	discontinued := s.newRecord(domain.ItemKindHardware, "ring-d-30mm", "0", "10")
	s.engine.Discontinue(discontinued, "supplier dropped line")

	inactive := s.newRecord(domain.ItemKindHardware, "ring-d-35mm", "1", "10")
	s.engine.Deactivate(inactive, "moved to archive")

	for _, r := range []*domain.InventoryRecord{low, ok, byPoint, discontinued, inactive} {
		s.Require().NoError(s.repo.Save(s.ctx, r))
	}

	records, err := s.repo.FindNeedingReorder(s.ctx, 10)
	s.Require().NoError(err)

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
		s.True(stock.NeedsReorder(r))
	}
	s.Equal([]string{low.ID, byPoint.ID}, ids)
}

func (s *RecordRepositorySuite) TestListingAndCount() {
	for _, id := range []string{"thread-a", "thread-b", "thread-c"} {
		s.Require().NoError(s.repo.Save(s.ctx, s.newRecord(domain.ItemKindMaterial, id, "0", "1")))
	}
	s.Require().NoError(s.repo.Save(s.ctx, s.newRecord(domain.ItemKindMaterial, "thread-d", "40", "1")))

	n, err := s.repo.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(4), n)

	out, err := s.repo.FindByStatus(s.ctx, domain.StatusOutOfStock, 10, 0)
	s.Require().NoError(err)
	s.Len(out, 3)

	outCount, err := s.repo.CountByStatus(s.ctx, domain.StatusOutOfStock)
	s.Require().NoError(err)
	s.Equal(int64(3), outCount)

	inCount, err := s.repo.CountByStatus(s.ctx, domain.StatusInStock)
	s.Require().NoError(err)
	s.Equal(int64(1), inCount)

	page, err := s.repo.FindAll(s.ctx, 2, 2)
	s.Require().NoError(err)
	s.Len(page, 2)

	seen := 0
	s.Require().NoError(s.repo.Each(s.ctx, func(*domain.InventoryRecord) error {
		seen++
		return nil
	}))
	s.Equal(4, seen)
}

func TestNeedingReorderFilterExcludesInactive(t *testing.T) {
	filter := NeedingReorderFilter()
	require.Contains(t, filter, "$expr")
	assert.Equal(t, true, filter["isActive"])
	assert.Equal(t, false, filter["discontinued"])
}
