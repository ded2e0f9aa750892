package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payrouter/internal/auth"
	linkerrors "payrouter/internal/paymentlinks/errors"
	"payrouter/pkg/config"
	mongotx "payrouter/pkg/db/mongo"
	"payrouter/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName       = "payment_links"
	EventsCollectionName = "payment_link_events"
)

var (
	LinkIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "merchant_id", Value: 1}, {Key: "payment_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("merchant_payment_unique"),
		},
		{
			Keys:    bson.D{{Key: "merchant_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetName("merchant_created_listing"),
		},
	}

	EventIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "payment_link_id", Value: 1}, {Key: "at", Value: 1}},
			Options: options.Index().SetName("link_history"),
		},
	}
)

// PaymentLinkRepository stores payment links and their lifecycle history. It also serves
// the client secrets used by client-secret authentication.
type PaymentLinkRepository interface {
	auth.SecretStore

	Create(ctx context.Context, link *model.PaymentLink) error
	FindByID(ctx context.Context, id string) (*model.PaymentLink, error)
	FindByPaymentID(ctx context.Context, merchantID, paymentID string) (*model.PaymentLink, error)
	// Transition moves a link from one status to another atomically and records the
	// change. ErrStateConflict is returned when the link is no longer in from.
	Transition(ctx context.Context, id string, from, to model.PaymentLinkStatus, at time.Time) (*model.PaymentLink, error)
	List(ctx context.Context, merchantID string, c model.PaymentLinkListConstraints, now time.Time) ([]*model.PaymentLink, error)
	Count(ctx context.Context, merchantID string, c model.PaymentLinkListConstraints, now time.Time) (int64, error)
	Events(ctx context.Context, id string) ([]*model.PaymentLinkEvent, error)
	EnsureIndexes(ctx context.Context) error
}

type mongoPaymentLinkRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	events     *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoPaymentLinkRepository(cfg *config.Config) PaymentLinkRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPaymentLinkRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		events:     db.Collection(EventsCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func (r *mongoPaymentLinkRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.Indexes().CreateMany(ctx, LinkIndexes); err != nil {
		return fmt.Errorf("failed to create payment link indexes: %w", err)
	}
	if _, err := r.events.Indexes().CreateMany(ctx, EventIndexes); err != nil {
		return fmt.Errorf("failed to create payment link event index: %w", err)
	}
	return nil
}

func (r *mongoPaymentLinkRepository) Create(ctx context.Context, link *model.PaymentLink) error {
	return r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		if _, err := r.collection.InsertOne(sessCtx, link); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return linkerrors.ErrDuplicate
			}
			return fmt.Errorf("failed to create payment link: %w", err)
		}
		return r.recordEvent(sessCtx, link, "", link.Status, link.CreatedAt)
	})
}

func (r *mongoPaymentLinkRepository) FindByID(ctx context.Context, id string) (*model.PaymentLink, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoPaymentLinkRepository) FindByPaymentID(ctx context.Context, merchantID, paymentID string) (*model.PaymentLink, error) {
	return r.findOne(ctx, bson.M{"merchant_id": merchantID, "payment_id": paymentID})
}

func (r *mongoPaymentLinkRepository) findOne(ctx context.Context, filter bson.M) (*model.PaymentLink, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var link model.PaymentLink
	if err := r.collection.FindOne(ctx, filter).Decode(&link); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, linkerrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find payment link: %w", err)
	}
	return &link, nil
}

func (r *mongoPaymentLinkRepository) Transition(ctx context.Context, id string, from, to model.PaymentLinkStatus, at time.Time) (*model.PaymentLink, error) {
	var updated model.PaymentLink

	err := r.txManager.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		filter := bson.M{"_id": id, "status": from}
		update := bson.M{"$set": bson.M{"status": to, "updated_at": at}}
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

		err := r.collection.FindOneAndUpdate(sessCtx, filter, update, opts).Decode(&updated)
		if errors.Is(err, mongo.ErrNoDocuments) {
			n, countErr := r.collection.CountDocuments(sessCtx, bson.M{"_id": id})
			if countErr != nil {
				return fmt.Errorf("failed to check payment link existence: %w", countErr)
			}
			if n == 0 {
				return linkerrors.ErrNotFound
			}
			return linkerrors.ErrStateConflict
		}
		if err != nil {
			return fmt.Errorf("failed to update payment link status: %w", err)
		}
		return r.recordEvent(sessCtx, &updated, from, to, at)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *mongoPaymentLinkRepository) recordEvent(ctx context.Context, link *model.PaymentLink, from, to model.PaymentLinkStatus, at time.Time) error {
	event := model.PaymentLinkEvent{
		ID:            uuid.NewString(),
		PaymentLinkID: link.ID,
		MerchantID:    link.MerchantID,
		From:          from,
		To:            to,
		At:            at,
	}
	if _, err := r.events.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to record payment link event: %w", err)
	}
	return nil
}

func (r *mongoPaymentLinkRepository) List(ctx context.Context, merchantID string, c model.PaymentLinkListConstraints, now time.Time) ([]*model.PaymentLink, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(c.Limit))

	cursor, err := r.collection.Find(ctx, listFilter(merchantID, c, now), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find payment links: %w", err)
	}
	defer cursor.Close(ctx)

	links := make([]*model.PaymentLink, 0, c.Limit)
	if err = cursor.All(ctx, &links); err != nil {
		return nil, fmt.Errorf("failed to decode payment links: %w", err)
	}
	return links, nil
}

func (r *mongoPaymentLinkRepository) Count(ctx context.Context, merchantID string, c model.PaymentLinkListConstraints, now time.Time) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, listFilter(merchantID, c, now))
	if err != nil {
		return 0, fmt.Errorf("failed to count payment links: %w", err)
	}
	return count, nil
}

func (r *mongoPaymentLinkRepository) Events(ctx context.Context, id string) ([]*model.PaymentLinkEvent, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.events.Find(ctx, bson.M{"payment_link_id": id}, options.Find().SetSort(bson.D{{Key: "at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find payment link events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []*model.PaymentLinkEvent
	if err = cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode payment link events: %w", err)
	}
	return events, nil
}

func (r *mongoPaymentLinkRepository) ClientSecret(ctx context.Context, resourceID string) (auth.ClientSecretRecord, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.FindOne().SetProjection(bson.M{"merchant_id": 1, "client_secret": 1, "expires_at": 1})
	var link model.PaymentLink
	if err := r.collection.FindOne(ctx, bson.M{"_id": resourceID}, opts).Decode(&link); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return auth.ClientSecretRecord{}, auth.ErrSecretNotFound
		}
		return auth.ClientSecretRecord{}, fmt.Errorf("failed to find client secret: %w", err)
	}
	return auth.ClientSecretRecord{
		MerchantID: link.MerchantID,
		Secret:     link.ClientSecret,
		ExpiresAt:  link.ExpiresAt,
	}, nil
}

// listFilter applies expiry the same way reads do: a created link past its expiry is
// listed as expired.
func listFilter(merchantID string, c model.PaymentLinkListConstraints, now time.Time) bson.M {
	filter := bson.M{"merchant_id": merchantID}

	created := bson.M{}
	if c.Created != nil {
		created["$eq"] = *c.Created
	}
	if c.CreatedLT != nil {
		created["$lt"] = *c.CreatedLT
	}
	if c.CreatedGT != nil {
		created["$gt"] = *c.CreatedGT
	}
	if c.CreatedLTE != nil {
		created["$lte"] = *c.CreatedLTE
	}
	if c.CreatedGTE != nil {
		created["$gte"] = *c.CreatedGTE
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}

	switch c.Status {
	case "":
	case model.PaymentLinkCreated:
		filter["status"] = model.PaymentLinkCreated
		filter["expires_at"] = bson.M{"$gt": now}
	case model.PaymentLinkExpired:
		filter["$or"] = bson.A{
			bson.M{"status": model.PaymentLinkExpired},
			bson.M{"status": model.PaymentLinkCreated, "expires_at": bson.M{"$lte": now}},
		}
	default:
		filter["status"] = c.Status
	}
	return filter
}
