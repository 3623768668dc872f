package mongostore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/techizeBuilder/admin-task-manager/pkg/entitlement"
)

func (s *Store) AppendHistory(ctx context.Context, entry *entitlement.HistoryEntry) error {
	if entry == nil {
		return fmt.Errorf("%w: nil history entry", entitlement.ErrInvalidArgument)
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if _, err := s.history.InsertOne(ctx, newHistoryDoc(entry)); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, orgID uuid.UUID, offset, limit int) ([]entitlement.HistoryEntry, int64, error) {
	filter := bson.M{"organization_id": orgID.String()}
	total, err := s.history.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count history: %w", err)
	}
	if limit <= 0 {
		return []entitlement.HistoryEntry{}, total, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(max(offset, 0))).
		SetLimit(int64(limit))
	var docs []historyDoc
	if err := findAll(ctx, s.history, filter, opts, &docs); err != nil {
		return nil, 0, fmt.Errorf("list history: %w", err)
	}

	out := make([]entitlement.HistoryEntry, 0, len(docs))
	for _, d := range docs {
		e, err := d.model()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, nil
}
