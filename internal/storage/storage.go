// Package storage wraps the MongoDB document store. Mutations are targeted
// field updates ($set/$push/$pull/$addToSet), never whole-document rewrites,
// so a scheduler write and an interactive save racing for the same user
// cannot clobber each other's fields.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/krishd9895/multi-op-bot-v5/internal/models"
)

// ErrNotFound is returned when a user document does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store is the persistence surface the handlers and the scheduler consume.
// Tests substitute an in-memory implementation.
type Store interface {
	EnsureUser(ctx context.Context, userID int64) (*models.User, error)
	GetUser(ctx context.Context, userID int64) (*models.User, error)
	ListUsersWithVillages(ctx context.Context) ([]models.User, error)

	SetHeadquarters(ctx context.Context, userID int64, hq string) error
	SetRole(ctx context.Context, userID int64, role string) error
	SetDefaultPurpose(ctx context.Context, userID int64, purpose string) error
	UnsetDefaultPurpose(ctx context.Context, userID int64) error
	AddVillage(ctx context.Context, userID int64, village string) error
	RemoveVillage(ctx context.Context, userID int64, village string) error
	ReplaceVillages(ctx context.Context, userID int64, villages []string) error
	AddCustomActivity(ctx context.Context, userID int64, activity string) error
	RemoveCustomActivity(ctx context.Context, userID int64, activity string) error
	ReplaceHolidays(ctx context.Context, userID int64, holidays []models.Holiday) error

	MigrateActivities(ctx context.Context, userID int64) error
	SaveActivity(ctx context.Context, userID int64, act models.Activity) (updated bool, err error)
	DeleteActivity(ctx context.Context, userID int64, year, month, date string) error

	LoadScheduleTimes(ctx context.Context) (prompt, fallback string, err error)
	SavePromptTime(ctx context.Context, hhmm string) error
	SaveFallbackTime(ctx context.Context, hhmm string) error
}

// Mongo implements Store on a MongoDB database with `users` and `config`
// collections.
type Mongo struct {
	users  *mongo.Collection
	config *mongo.Collection
	log    *slog.Logger
}

var _ Store = (*Mongo)(nil)

// New connects and pings the deployment.
func New(ctx context.Context, uri, dbName string, log *slog.Logger) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	db := client.Database(dbName)
	return &Mongo{
		users:  db.Collection("users"),
		config: db.Collection("config"),
		log:    log,
	}, nil
}

func byUser(userID int64) bson.M { return bson.M{"user_id": userID} }

// EnsureUser creates the document with empty defaults on first contact.
func (m *Mongo) EnsureUser(ctx context.Context, userID int64) (*models.User, error) {
	u, err := m.GetUser(ctx, userID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	doc := bson.M{
		"user_id":           userID,
		"villages":          []string{},
		"custom_activities": []string{},
	}
	if _, err := m.users.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert user %d: %w", userID, err)
	}
	return &models.User{UserID: userID}, nil
}

// rawUser defers activities decoding so legacy flat-list documents can still
// be read before migration.
type rawUser struct {
	UserID           int64            `bson:"user_id"`
	Headquarters     string           `bson:"headquarters,omitempty"`
	Role             string           `bson:"role,omitempty"`
	Villages         []string         `bson:"villages"`
	CustomActivities []string         `bson:"custom_activities"`
	DefaultPurpose   string           `bson:"default_purpose,omitempty"`
	PublicHolidays   []models.Holiday `bson:"public_holidays,omitempty"`
	Activities       bson.RawValue    `bson:"activities,omitempty"`
}

func (m *Mongo) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var raw rawUser
	err := m.users.FindOne(ctx, byUser(userID)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user %d: %w", userID, err)
	}
	return raw.toUser(m.log), nil
}

func (r *rawUser) toUser(log *slog.Logger) *models.User {
	u := &models.User{
		UserID:           r.UserID,
		Headquarters:     r.Headquarters,
		Role:             r.Role,
		Villages:         r.Villages,
		CustomActivities: r.CustomActivities,
		DefaultPurpose:   r.DefaultPurpose,
		PublicHolidays:   r.PublicHolidays,
	}
	switch r.Activities.Type {
	case bson.TypeEmbeddedDocument:
		if err := r.Activities.Unmarshal(&u.Activities); err != nil && log != nil {
			log.Error("decode nested activities", "user", r.UserID, "err", err)
		}
	case bson.TypeArray:
		var flat []models.Activity
		if err := r.Activities.Unmarshal(&flat); err != nil {
			if log != nil {
				log.Error("decode legacy activities", "user", r.UserID, "err", err)
			}
			break
		}
		u.Activities, _ = nestActivities(flat)
	}
	return u
}

func (m *Mongo) ListUsersWithVillages(ctx context.Context) ([]models.User, error) {
	filter := bson.M{"villages": bson.M{"$exists": true, "$ne": bson.A{}}}
	cur, err := m.users.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var out []models.User
	for cur.Next(ctx) {
		var raw rawUser
		if err := cur.Decode(&raw); err != nil {
			// one malformed document must not abort the batch
			if m.log != nil {
				m.log.Error("decode user during scan", "err", err)
			}
			continue
		}
		out = append(out, *raw.toUser(m.log))
	}
	return out, cur.Err()
}

func (m *Mongo) setField(ctx context.Context, userID int64, field string, value any) error {
	_, err := m.users.UpdateOne(ctx, byUser(userID),
		bson.M{"$set": bson.M{field: value}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("set %s for user %d: %w", field, userID, err)
	}
	return nil
}

func (m *Mongo) SetHeadquarters(ctx context.Context, userID int64, hq string) error {
	return m.setField(ctx, userID, "headquarters", hq)
}

func (m *Mongo) SetRole(ctx context.Context, userID int64, role string) error {
	return m.setField(ctx, userID, "role", role)
}

func (m *Mongo) SetDefaultPurpose(ctx context.Context, userID int64, purpose string) error {
	return m.setField(ctx, userID, "default_purpose", purpose)
}

func (m *Mongo) UnsetDefaultPurpose(ctx context.Context, userID int64) error {
	_, err := m.users.UpdateOne(ctx, byUser(userID),
		bson.M{"$unset": bson.M{"default_purpose": ""}})
	if err != nil {
		return fmt.Errorf("unset default purpose for user %d: %w", userID, err)
	}
	return nil
}

func (m *Mongo) AddVillage(ctx context.Context, userID int64, village string) error {
	_, err := m.users.UpdateOne(ctx, byUser(userID),
		bson.M{"$addToSet": bson.M{"villages": village}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("add village for user %d: %w", userID, err)
	}
	return nil
}

func (m *Mongo) RemoveVillage(ctx context.Context, userID int64, village string) error {
	_, err := m.users.UpdateOne(ctx, byUser(userID),
		bson.M{"$pull": bson.M{"villages": village}})
	if err != nil {
		return fmt.Errorf("remove village for user %d: %w", userID, err)
	}
	return nil
}

func (m *Mongo) ReplaceVillages(ctx context.Context, userID int64, villages []string) error {
	return m.setField(ctx, userID, "villages", villages)
}

func (m *Mongo) AddCustomActivity(ctx context.Context, userID int64, activity string) error {
	_, err := m.users.UpdateOne(ctx, byUser(userID),
		bson.M{"$addToSet": bson.M{"custom_activities": activity}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("add custom activity for user %d: %w", userID, err)
	}
	return nil
}

func (m *Mongo) RemoveCustomActivity(ctx context.Context, userID int64, activity string) error {
	_, err := m.users.UpdateOne(ctx, byUser(userID),
		bson.M{"$pull": bson.M{"custom_activities": activity}})
	if err != nil {
		return fmt.Errorf("remove custom activity for user %d: %w", userID, err)
	}
	return nil
}

func (m *Mongo) ReplaceHolidays(ctx context.Context, userID int64, holidays []models.Holiday) error {
	return m.setField(ctx, userID, "public_holidays", holidays)
}

// MigrateActivities rewrites a legacy flat activities list into the nested
// year->month map. A no-op when the document is already nested or absent.
func (m *Mongo) MigrateActivities(ctx context.Context, userID int64) error {
	var raw rawUser
	err := m.users.FindOne(ctx, byUser(userID)).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate: find user %d: %w", userID, err)
	}
	if raw.Activities.Type != bson.TypeArray {
		return nil
	}
	var flat []models.Activity
	if err := raw.Activities.Unmarshal(&flat); err != nil {
		return fmt.Errorf("migrate: decode legacy activities for user %d: %w", userID, err)
	}
	nested, skipped := nestActivities(flat)
	for _, s := range skipped {
		if m.log != nil {
			m.log.Warn("migration skipped malformed activity", "user", userID, "date", s.Date)
		}
	}
	return m.setField(ctx, userID, "activities", nested)
}

// nestActivities groups a flat list by year and month. Entries whose date
// does not parse are returned separately and dropped from the result.
func nestActivities(flat []models.Activity) (map[string]map[string][]models.Activity, []models.Activity) {
	nested := make(map[string]map[string][]models.Activity)
	var skipped []models.Activity
	for _, act := range flat {
		t, err := time.Parse(models.DateLayout, act.Date)
		if err != nil {
			skipped = append(skipped, act)
			continue
		}
		y, mo := models.YearMonthKeys(t)
		if nested[y] == nil {
			nested[y] = make(map[string][]models.Activity)
		}
		nested[y][mo] = append(nested[y][mo], act)
	}
	return nested, skipped
}

// SaveActivity persists one entry with replace-if-exists semantics: at most
// one activity per user per calendar date.
func (m *Mongo) SaveActivity(ctx context.Context, userID int64, act models.Activity) (bool, error) {
	t, err := time.Parse(models.DateLayout, act.Date)
	if err != nil {
		return false, fmt.Errorf("save activity: bad date %q: %w", act.Date, err)
	}
	if err := m.MigrateActivities(ctx, userID); err != nil {
		return false, err
	}
	u, err := m.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	y, mo := models.YearMonthKeys(t)
	field := fmt.Sprintf("activities.%s.%s", y, mo)
	for i, existing := range u.MonthActivities(y, mo) {
		if existing.Date == act.Date {
			err := m.setField(ctx, userID, fmt.Sprintf("%s.%d", field, i), act)
			return true, err
		}
	}
	_, err = m.users.UpdateOne(ctx, byUser(userID),
		bson.M{"$push": bson.M{field: act}},
		options.Update().SetUpsert(true))
	if err != nil {
		return false, fmt.Errorf("push activity for user %d: %w", userID, err)
	}
	return false, nil
}

// DeleteActivity removes the entry for a specific date and prunes the month
// key when it empties.
func (m *Mongo) DeleteActivity(ctx context.Context, userID int64, year, month, date string) error {
	field := fmt.Sprintf("activities.%s.%s", year, month)
	_, err := m.users.UpdateOne(ctx, byUser(userID),
		bson.M{"$pull": bson.M{field: bson.M{"date": date}}})
	if err != nil {
		return fmt.Errorf("delete activity for user %d: %w", userID, err)
	}
	u, err := m.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(u.MonthActivities(year, month)) == 0 {
		_, err = m.users.UpdateOne(ctx, byUser(userID),
			bson.M{"$unset": bson.M{field: ""}})
	}
	return err
}

// scheduleDoc is the single config document holding the trigger times.
type scheduleDoc struct {
	PromptTime   string `bson:"daily_prompt_time,omitempty"`
	FallbackTime string `bson:"default_activity_time,omitempty"`
}

const scheduleDocID = "schedule_times"

func (m *Mongo) LoadScheduleTimes(ctx context.Context) (string, string, error) {
	var doc scheduleDoc
	err := m.config.FindOne(ctx, bson.M{"_id": scheduleDocID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("load schedule times: %w", err)
	}
	return doc.PromptTime, doc.FallbackTime, nil
}

func (m *Mongo) SavePromptTime(ctx context.Context, hhmm string) error {
	return m.saveScheduleField(ctx, "daily_prompt_time", hhmm)
}

func (m *Mongo) SaveFallbackTime(ctx context.Context, hhmm string) error {
	return m.saveScheduleField(ctx, "default_activity_time", hhmm)
}

func (m *Mongo) saveScheduleField(ctx context.Context, field, value string) error {
	_, err := m.config.UpdateOne(ctx, bson.M{"_id": scheduleDocID},
		bson.M{"$set": bson.M{field: value}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save %s: %w", field, err)
	}
	return nil
}
