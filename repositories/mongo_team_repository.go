package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sovan7777/spardha-26/models"
	"github.com/jonboulle/clockwork"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	teamsCollection    = "teams"
	countersCollection = "counters"

	teamIDIndex = "teams_team_id_key"
	emailIndex  = "teams_email_key"

	// Postgres sequence starts at 1001, counters start from the same base.
	teamIDBase = 1000
)

type mongoTeamRepository struct {
	teams    *mongo.Collection
	counters *mongo.Collection
	hooks    teamHooks
}

func NewMongoTeamRepository(db *mongo.Database, clock clockwork.Clock) TeamRepository {
	return &mongoTeamRepository{
		teams:    db.Collection(teamsCollection),
		counters: db.Collection(countersCollection),
		hooks:    newTeamHooks(clock),
	}
}

// EnsureMongoIndexes creates the unique indexes that back teamID and email uniqueness.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(teamsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "teamID", Value: 1}}, Options: options.Index().SetUnique(true).SetName(teamIDIndex)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName(emailIndex)},
		{Keys: bson.D{{Key: "event", Value: 1}, {Key: "status", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create team indexes: %w", err)
	}
	return nil
}

func (r *mongoTeamRepository) Create(ctx context.Context, team *models.Team) error {
	if err := r.hooks.beforeCreate(team); err != nil {
		return err
	}
	if _, err := r.teams.InsertOne(ctx, team); err != nil {
		return mapMongoWriteError(err, team)
	}
	return nil
}

func (r *mongoTeamRepository) Update(ctx context.Context, team *models.Team) error {
	if err := r.hooks.beforeUpdate(team); err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"event":                     team.Event,
		"college":                   team.College,
		"email":                     team.Email,
		"players":                   team.Players,
		"upiId":                     team.UpiID,
		"transactionScreenshotPath": team.TransactionScreenshotPath,
		"idCardPicPath":             team.IDCardPicPath,
		"password":                  team.Password,
		"amount":                    team.Amount,
		"status":                    team.Status,
		"updatedAt":                 team.UpdatedAt,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var stored models.Team
	err := r.teams.FindOneAndUpdate(ctx, bson.M{"teamID": team.TeamID}, update, opts).Decode(&stored)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrTeamNotFound
		}
		return mapMongoWriteError(err, team)
	}
	team.CreatedAt = stored.CreatedAt
	return nil
}

func (r *mongoTeamRepository) GetByTeamID(ctx context.Context, teamID int) (*models.Team, error) {
	return r.findOne(ctx, bson.M{"teamID": teamID})
}

func (r *mongoTeamRepository) GetByEmail(ctx context.Context, email string) (*models.Team, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *mongoTeamRepository) List(ctx context.Context, filter models.TeamFilter) ([]models.Team, int, error) {
	query := bson.M{}
	if event := strings.TrimSpace(filter.Event); event != "" {
		query["event"] = event
	}
	if filter.Status != nil {
		query["status"] = *filter.Status
	}

	total, err := r.teams.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count teams: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "teamID", Value: -1}})
	if filter.Limit > 0 {
		opts.SetSkip(int64(filter.Offset())).SetLimit(int64(filter.Limit))
	}

	cursor, err := r.teams.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list teams: %w", err)
	}
	teams := make([]models.Team, 0)
	if err := cursor.All(ctx, &teams); err != nil {
		return nil, 0, fmt.Errorf("failed to decode teams: %w", err)
	}
	return teams, int(total), nil
}

func (r *mongoTeamRepository) UpdateStatus(ctx context.Context, teamID int, from, to models.TeamStatus) (*models.Team, error) {
	if err := r.hooks.checkStatus(to); err != nil {
		return nil, err
	}

	filter := bson.M{"teamID": teamID, "status": from}
	update := bson.M{"$set": bson.M{"status": to, "updatedAt": r.hooks.clock.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var team models.Team
	err := r.teams.FindOneAndUpdate(ctx, filter, update, opts).Decode(&team)
	if err == nil {
		return &team, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update status of team %d: %w", teamID, err)
	}
	if _, getErr := r.GetByTeamID(ctx, teamID); getErr != nil {
		return nil, getErr
	}
	return nil, ErrTeamStatusChanged
}

func (r *mongoTeamRepository) StatsByStatus(ctx context.Context) ([]models.TeamStat, error) {
	return r.stats(ctx, "$status")
}

func (r *mongoTeamRepository) StatsByEvent(ctx context.Context) ([]models.TeamStat, error) {
	return r.stats(ctx, "$event")
}

func (r *mongoTeamRepository) NextTeamID(ctx context.Context) (int, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Seq int `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": "teamID"},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate team id: %w", err)
	}
	return teamIDBase + counter.Seq, nil
}

func (r *mongoTeamRepository) stats(ctx context.Context, groupBy string) ([]models.TeamStat, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: groupBy},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "amount", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}

	cursor, err := r.teams.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate team stats: %w", err)
	}
	var rows []struct {
		Key    string  `bson:"_id"`
		Count  int     `bson:"count"`
		Amount float64 `bson:"amount"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode team stats: %w", err)
	}

	stats := make([]models.TeamStat, 0, len(rows))
	for _, row := range rows {
		stats = append(stats, models.TeamStat{Key: row.Key, Count: row.Count, Amount: row.Amount})
	}
	return stats, nil
}

func (r *mongoTeamRepository) findOne(ctx context.Context, filter bson.M) (*models.Team, error) {
	var team models.Team
	if err := r.teams.FindOne(ctx, filter).Decode(&team); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to find team: %w", err)
	}
	return &team, nil
}

func mapMongoWriteError(err error, team *models.Team) error {
	if mongo.IsDuplicateKeyError(err) {
		msg := err.Error()
		switch {
		case strings.Contains(msg, emailIndex):
			return emailConflict(team.Email)
		case strings.Contains(msg, teamIDIndex):
			return teamIDConflict(team.TeamID)
		}
	}
	return fmt.Errorf("failed to write team %d: %w", team.TeamID, err)
}
