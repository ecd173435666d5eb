package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/seedledger/internal/domain/models"
	"github.com/mamadbah2/seedledger/internal/repository"
)

const (
	cyclesCollection    = "production_cycles"
	shipmentsCollection = "shipments"
	entriesCollection   = "manifest_entries"
)

// Store is the MongoDB-backed LedgerStore. Apply operations run inside a
// multi-document transaction with version-filtered updates, so a lost race
// aborts cleanly as repository.ErrVersionConflict. Requires a replica-set
// deployment (Atlas qualifies) for transaction support.
type Store struct {
	client *mongo.Client
	dbName string
}

// New connects to MongoDB and verifies the connection.
func New(ctx context.Context, uri string, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &Store{client: client, dbName: dbName}, nil
}

// Close closes the MongoDB connection.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) collection(name string) *mongo.Collection {
	return s.client.Database(s.dbName).Collection(name)
}

func (s *Store) CreateCycle(ctx context.Context, cycle *models.ProductionCycle) error {
	if _, err := s.collection(cyclesCollection).InsertOne(ctx, cycle); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("insert production cycle: %w", err)
	}
	return nil
}

func (s *Store) CreateShipment(ctx context.Context, shipment *models.Shipment) error {
	if _, err := s.collection(shipmentsCollection).InsertOne(ctx, shipment); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("insert shipment: %w", err)
	}
	return nil
}

func (s *Store) GetCycle(ctx context.Context, id string) (*models.ProductionCycle, error) {
	var cycle models.ProductionCycle
	err := s.collection(cyclesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&cycle)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrCycleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find production cycle %s: %w", id, err)
	}
	return &cycle, nil
}

func (s *Store) GetShipment(ctx context.Context, id string) (*models.Shipment, error) {
	var shipment models.Shipment
	err := s.collection(shipmentsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&shipment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrShipmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find shipment %s: %w", id, err)
	}
	return &shipment, nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (*models.ManifestEntry, error) {
	var entry models.ManifestEntry
	err := s.collection(entriesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find manifest entry %s: %w", id, err)
	}
	return &entry, nil
}

func (s *Store) LastEntry(ctx context.Context, shipmentID string) (*models.ManifestEntry, error) {
	opts := options.FindOne().SetSort(bson.D{
		{Key: "created_at", Value: -1},
		{Key: "_id", Value: -1},
	})

	var entry models.ManifestEntry
	err := s.collection(entriesCollection).FindOne(ctx, bson.M{"shipment_id": shipmentID}, opts).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, repository.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find last entry for shipment %s: %w", shipmentID, err)
	}
	return &entry, nil
}

func (s *Store) ListEntries(ctx context.Context, shipmentID string) ([]models.ManifestEntry, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})

	cursor, err := s.collection(entriesCollection).Find(ctx, bson.M{"shipment_id": shipmentID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list entries for shipment %s: %w", shipmentID, err)
	}

	var entries []models.ManifestEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode entries for shipment %s: %w", shipmentID, err)
	}
	return entries, nil
}

func (s *Store) ListCycles(ctx context.Context) ([]models.ProductionCycle, error) {
	cursor, err := s.collection(cyclesCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list production cycles: %w", err)
	}

	var cycles []models.ProductionCycle
	if err := cursor.All(ctx, &cycles); err != nil {
		return nil, fmt.Errorf("decode production cycles: %w", err)
	}
	return cycles, nil
}

func (s *Store) ListShipments(ctx context.Context) ([]models.Shipment, error) {
	cursor, err := s.collection(shipmentsCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}

	var shipments []models.Shipment
	if err := cursor.All(ctx, &shipments); err != nil {
		return nil, fmt.Errorf("decode shipments: %w", err)
	}
	return shipments, nil
}

func (s *Store) ApplyLoad(ctx context.Context, shipment *models.Shipment, cycle *models.ProductionCycle, entry *models.ManifestEntry) error {
	return s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		if err := s.updateShipmentLoad(sc, shipment); err != nil {
			return err
		}
		if err := s.updateCycleLoad(sc, cycle); err != nil {
			return err
		}
		if _, err := s.collection(entriesCollection).InsertOne(sc, entry); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return repository.ErrAlreadyExists
			}
			return fmt.Errorf("insert manifest entry: %w", err)
		}
		return nil
	})
}

func (s *Store) ApplyUnload(ctx context.Context, shipment *models.Shipment, cycle *models.ProductionCycle, entryID string) error {
	return s.inTransaction(ctx, func(sc mongo.SessionContext) error {
		res, err := s.collection(entriesCollection).DeleteOne(sc, bson.M{"_id": entryID})
		if err != nil {
			return fmt.Errorf("delete manifest entry %s: %w", entryID, err)
		}
		if res.DeletedCount == 0 {
			return repository.ErrEntryNotFound
		}
		if err := s.updateShipmentLoad(sc, shipment); err != nil {
			return err
		}
		return s.updateCycleLoad(sc, cycle)
	})
}

func (s *Store) ApplyDispatch(ctx context.Context, shipment *models.Shipment) error {
	res, err := s.collection(shipmentsCollection).UpdateOne(ctx,
		bson.M{"_id": shipment.ID, "version": shipment.Version},
		bson.M{
			"$set": bson.M{
				"status":        shipment.Status,
				"dispatched_at": shipment.DispatchedAt,
			},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return fmt.Errorf("dispatch shipment %s: %w", shipment.ID, err)
	}
	if res.MatchedCount == 0 {
		return s.missingOrConflict(ctx, shipmentsCollection, shipment.ID, repository.ErrShipmentNotFound)
	}
	shipment.Version++
	return nil
}

func (s *Store) updateShipmentLoad(ctx context.Context, shipment *models.Shipment) error {
	res, err := s.collection(shipmentsCollection).UpdateOne(ctx,
		bson.M{"_id": shipment.ID, "version": shipment.Version},
		bson.M{
			"$set": bson.M{"total_bags": shipment.TotalBags},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return fmt.Errorf("update shipment %s: %w", shipment.ID, err)
	}
	if res.MatchedCount == 0 {
		return s.missingOrConflict(ctx, shipmentsCollection, shipment.ID, repository.ErrShipmentNotFound)
	}
	shipment.Version++
	return nil
}

func (s *Store) updateCycleLoad(ctx context.Context, cycle *models.ProductionCycle) error {
	res, err := s.collection(cyclesCollection).UpdateOne(ctx,
		bson.M{"_id": cycle.ID, "version": cycle.Version},
		bson.M{
			"$set": bson.M{"bags_remaining_to_load": cycle.BagsRemainingToLoad},
			"$inc": bson.M{"version": 1},
		})
	if err != nil {
		return fmt.Errorf("update production cycle %s: %w", cycle.ID, err)
	}
	if res.MatchedCount == 0 {
		return s.missingOrConflict(ctx, cyclesCollection, cycle.ID, repository.ErrCycleNotFound)
	}
	cycle.Version++
	return nil
}

// missingOrConflict distinguishes a document that vanished from one whose
// version moved under us.
func (s *Store) missingOrConflict(ctx context.Context, coll string, id string, notFound error) error {
	err := s.collection(coll).FindOne(ctx, bson.M{"_id": id}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notFound
	}
	return repository.ErrVersionConflict
}

func (s *Store) inTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start mongodb session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}
