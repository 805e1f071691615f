package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bidify/internal/auctionerrors"
	model "bidify/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements AuctionDB and UserDirectory on top of a MongoDB
// replica set. Multi-record writes use server-side multi-document
// transactions, so the bid-placement and closure invariants hold across
// processes, not just goroutines.
type MongoRepo struct {
	db *mongo.Database
}

// NewMongoRepo connects to MongoDB and returns a repository bound to the
// given database name.
func NewMongoRepo(ctx context.Context, uri, database string) (*MongoRepo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return &MongoRepo{db: client.Database(database)}, nil
}

// Close disconnects the underlying client.
func (r *MongoRepo) Close(ctx context.Context) error {
	return r.db.Client().Disconnect(ctx)
}

func (r *MongoRepo) items() *mongo.Collection         { return r.db.Collection("items") }
func (r *MongoRepo) bids() *mongo.Collection          { return r.db.Collection("bids") }
func (r *MongoRepo) notifications() *mongo.Collection { return r.db.Collection("notifications") }
func (r *MongoRepo) users() *mongo.Collection         { return r.db.Collection("users") }

// FindItem returns the item with the given id
func (r *MongoRepo) FindItem(ctx context.Context, itemID string) (model.Item, error) {
	var item model.Item
	err := r.items().FindOne(ctx, bson.M{"_id": itemID}).Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Item{}, fmt.Errorf("find item %s: %w", itemID, auctionerrors.ErrItemNotFound)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("find item %s: %w", itemID, err)
	}
	return item, nil
}

// InsertItem stores a new item record
func (r *MongoRepo) InsertItem(ctx context.Context, item model.Item) error {
	if _, err := r.items().InsertOne(ctx, item); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert item %s: %w", item.ItemID, auctionerrors.ErrInvalidItem)
		}
		return fmt.Errorf("insert item %s: %w", item.ItemID, err)
	}
	return nil
}

// FindExpiredActiveItems returns active items whose end time has elapsed
func (r *MongoRepo) FindExpiredActiveItems(ctx context.Context, now time.Time) ([]model.Item, error) {
	cur, err := r.items().Find(ctx, bson.M{
		"status":  model.ItemStatusActive,
		"endTime": bson.M{"$lte": now},
	})
	if err != nil {
		return nil, fmt.Errorf("find expired items: %w", err)
	}
	var items []model.Item
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode expired items: %w", err)
	}
	return items, nil
}

// FindLatestBidForItem returns the most recently committed bid for an item
func (r *MongoRepo) FindLatestBidForItem(ctx context.Context, itemID string) (model.Bid, error) {
	return findLatestBid(ctx, r.bids(), itemID)
}

func findLatestBid(ctx context.Context, bids *mongo.Collection, itemID string) (model.Bid, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	var bid model.Bid
	err := bids.FindOne(ctx, bson.M{"itemId": itemID}, opts).Decode(&bid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Bid{}, fmt.Errorf("latest bid for item %s: %w", itemID, auctionerrors.ErrNoBids)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("latest bid for item %s: %w", itemID, err)
	}
	return bid, nil
}

// FindBidsByItem returns up to limit bids for an item, newest first.
// limit <= 0 returns all bids.
func (r *MongoRepo) FindBidsByItem(ctx context.Context, itemID string, limit int) ([]model.Bid, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.bids().Find(ctx, bson.M{"itemId": itemID}, opts)
	if err != nil {
		return nil, fmt.Errorf("get bids for item %s: %w", itemID, err)
	}
	var bids []model.Bid
	if err := cur.All(ctx, &bids); err != nil {
		return nil, fmt.Errorf("decode bids for item %s: %w", itemID, err)
	}
	if len(bids) == 0 {
		return nil, fmt.Errorf("get bids for item %s: %w", itemID, auctionerrors.ErrNoBids)
	}
	return bids, nil
}

// FindBiddersByItem returns the distinct bidder ids for an item
func (r *MongoRepo) FindBiddersByItem(ctx context.Context, itemID string) ([]string, error) {
	raw, err := r.bids().Distinct(ctx, "bidderId", bson.M{"itemId": itemID})
	if err != nil {
		return nil, fmt.Errorf("distinct bidders for item %s: %w", itemID, err)
	}
	bidders := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			bidders = append(bidders, s)
		}
	}
	return bidders, nil
}

// InsertNotification appends a notification record
func (r *MongoRepo) InsertNotification(ctx context.Context, n model.Notification) error {
	if _, err := r.notifications().InsertOne(ctx, n); err != nil {
		return fmt.Errorf("insert notification %s: %w", n.NotificationID, err)
	}
	return nil
}

// FindNotificationsByUser returns a user's notifications, newest first
func (r *MongoRepo) FindNotificationsByUser(ctx context.Context, userID string) ([]model.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cur, err := r.notifications().Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("notifications for user %s: %w", userID, err)
	}
	var out []model.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode notifications for user %s: %w", userID, err)
	}
	return out, nil
}

// MarkNotificationRead flips the read flag on one notification
func (r *MongoRepo) MarkNotificationRead(ctx context.Context, notificationID string) (model.Notification, error) {
	after := options.After
	res := r.notifications().FindOneAndUpdate(ctx,
		bson.M{"_id": notificationID},
		bson.M{"$set": bson.M{"read": true}},
		&options.FindOneAndUpdateOptions{ReturnDocument: &after},
	)
	var n model.Notification
	err := res.Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Notification{}, fmt.Errorf("mark notification %s read: %w", notificationID, auctionerrors.ErrNotificationNotFound)
	}
	if err != nil {
		return model.Notification{}, fmt.Errorf("mark notification %s read: %w", notificationID, err)
	}
	return n, nil
}

// MarkAllNotificationsRead marks every unread notification of a user as read
func (r *MongoRepo) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.notifications().UpdateMany(ctx,
		bson.M{"userId": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("mark notifications read for user %s: %w", userID, err)
	}
	return res.ModifiedCount, nil
}

// InsertUser stores a new user record
func (r *MongoRepo) InsertUser(ctx context.Context, user model.User) error {
	if _, err := r.users().InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert user %s: %w", user.UserID, auctionerrors.ErrUserExists)
		}
		return fmt.Errorf("insert user %s: %w", user.UserID, err)
	}
	return nil
}

// FindUser returns the user with the given id
func (r *MongoRepo) FindUser(ctx context.Context, userID string) (model.User, error) {
	var user model.User
	err := r.users().FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.User{}, fmt.Errorf("find user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("find user %s: %w", userID, err)
	}
	return user, nil
}

// UserExists reports whether a user record exists
func (r *MongoRepo) UserExists(ctx context.Context, userID string) (bool, error) {
	err := r.users().FindOne(ctx, bson.M{"_id": userID}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("user exists %s: %w", userID, err)
	}
	return true, nil
}

// RunTransaction executes fn inside a multi-document transaction. The item
// row itself is the serialization point: concurrent transactions touching
// the same item conflict at commit and only one wins.
func (r *MongoRepo) RunTransaction(ctx context.Context, _ string, fn func(tx Tx) error) error {
	sess, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(&mongoTx{repo: r, sc: sc})
	})
	if err != nil {
		return err
	}
	return nil
}

// mongoTx routes Tx operations through the session context so they join the
// surrounding transaction.
type mongoTx struct {
	repo *MongoRepo
	sc   mongo.SessionContext
}

func (t *mongoTx) FindItem(itemID string) (model.Item, error) {
	return t.repo.FindItem(t.sc, itemID)
}

func (t *mongoTx) FindLatestBidForItem(itemID string) (model.Bid, error) {
	return findLatestBid(t.sc, t.repo.bids(), itemID)
}

func (t *mongoTx) FindBid(bidID string) (model.Bid, error) {
	var bid model.Bid
	err := t.repo.bids().FindOne(t.sc, bson.M{"_id": bidID}).Decode(&bid)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Bid{}, fmt.Errorf("find bid %s: %w", bidID, auctionerrors.ErrBidNotFound)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("find bid %s: %w", bidID, err)
	}
	return bid, nil
}

func (t *mongoTx) InsertBid(bid model.Bid) error {
	if _, err := t.repo.bids().InsertOne(t.sc, bid); err != nil {
		return fmt.Errorf("insert bid %s: %w", bid.BidID, err)
	}
	return nil
}

func (t *mongoTx) UpdateItem(itemID string, update ItemUpdate) (model.Item, error) {
	set := bson.M{}
	if update.Status != nil {
		set["status"] = *update.Status
	}
	if update.LatestBid != nil {
		set["latestBid"] = *update.LatestBid
	}
	if update.LastBidID != nil {
		set["lastBidId"] = *update.LastBidID
	}

	after := options.After
	res := t.repo.items().FindOneAndUpdate(t.sc,
		bson.M{"_id": itemID},
		bson.M{"$set": set},
		&options.FindOneAndUpdateOptions{ReturnDocument: &after},
	)
	var item model.Item
	err := res.Decode(&item)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Item{}, fmt.Errorf("update item %s: %w", itemID, auctionerrors.ErrItemNotFound)
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("update item %s: %w", itemID, err)
	}
	return item, nil
}
