// AngelaMos | 2026
// mongo_repository.go

package user

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/carterperez-dev/insighta/internal/core"
)

// userDocument keeps the field names of the existing users collection.
type userDocument struct {
	ID                   bson.ObjectID `bson:"_id,omitempty"`
	Username             string        `bson:"username"`
	Email                string        `bson:"email"`
	Password             string        `bson:"password"`
	ProfileAvatar        string        `bson:"profile_avatar"`
	Bio                  string        `bson:"bio"`
	Role                 string        `bson:"role"`
	IsActive             bool          `bson:"isActive"`
	IsAccountVerified    bool          `bson:"isAccountVerified"`
	VerifyOTP            string        `bson:"VerifyOtp"`
	VerifyOTPExpires     *time.Time    `bson:"verifyOtpExpires"`
	ResetPasswordOTP     string        `bson:"resetPasswordOtp"`
	ResetPasswordExpires *time.Time    `bson:"resetPasswordExpires"`
	CreatedAt            time.Time     `bson:"createdAt"`
	UpdatedAt            time.Time     `bson:"updatedAt"`
}

func newUserDocument(u *User) *userDocument {
	return &userDocument{
		Username:             u.Username,
		Email:                u.Email,
		Password:             u.PasswordHash,
		ProfileAvatar:        u.Avatar,
		Bio:                  u.Bio,
		Role:                 u.Role,
		IsActive:             u.IsActive,
		IsAccountVerified:    u.Verified,
		VerifyOTP:            u.VerifyOTP,
		VerifyOTPExpires:     u.VerifyOTPExpires,
		ResetPasswordOTP:     u.ResetTokenHash,
		ResetPasswordExpires: u.ResetExpires,
		CreatedAt:            u.CreatedAt,
		UpdatedAt:            u.UpdatedAt,
	}
}

func (d *userDocument) toUser() *User {
	return &User{
		ID:               d.ID.Hex(),
		Username:         d.Username,
		Email:            d.Email,
		PasswordHash:     d.Password,
		Avatar:           d.ProfileAvatar,
		Bio:              d.Bio,
		Role:             d.Role,
		IsActive:         d.IsActive,
		Verified:         d.IsAccountVerified,
		VerifyOTP:        d.VerifyOTP,
		VerifyOTPExpires: d.VerifyOTPExpires,
		ResetTokenHash:   d.ResetPasswordOTP,
		ResetExpires:     d.ResetPasswordExpires,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

type mongoRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewMongoRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		coll: db.Collection(core.UsersCollection),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *mongoRepository) Create(ctx context.Context, user *User) error {
	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	doc := newUserDocument(user)
	doc.ID = bson.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	user.ID = doc.ID.Hex()
	return nil
}

func (r *mongoRepository) GetByID(ctx context.Context, id string) (*User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}

	return r.findOne(ctx, "get user", bson.D{{Key: "_id", Value: oid}})
}

func (r *mongoRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, "get user by email", bson.D{{Key: "email", Value: email}})
}

func (r *mongoRepository) findOne(ctx context.Context, op string, filter bson.D) (*User, error) {
	var doc userDocument
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.toUser(), nil
}

func (r *mongoRepository) Update(
	ctx context.Context,
	id string,
	patch Patch,
	guard Guard,
) (*User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", core.ErrNotFound)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDocument
	err = r.coll.FindOneAndUpdate(
		ctx,
		guardFilter(oid, guard),
		patchUpdate(patch, r.now()),
		opts,
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	return doc.toUser(), nil
}

func (r *mongoRepository) Delete(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}

	return nil
}

func (r *mongoRepository) List(
	ctx context.Context,
	params ListUsersParams,
) ([]User, int, error) {
	params.Normalize()
	filter := listFilter(params)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(params.Offset())).
		SetLimit(int64(params.PageSize))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	users := make([]User, 0, len(docs))
	for i := range docs {
		users = append(users, *docs[i].toUser())
	}

	return users, int(total), nil
}

func guardFilter(oid bson.ObjectID, guard Guard) bson.D {
	filter := bson.D{{Key: "_id", Value: oid}}
	if guard.VerifyOTP != "" {
		filter = append(filter, bson.E{Key: "VerifyOtp", Value: guard.VerifyOTP})
	}
	if guard.ResetTokenHash != "" {
		filter = append(filter, bson.E{Key: "resetPasswordOtp", Value: guard.ResetTokenHash})
	}
	if guard.Unverified {
		filter = append(filter, bson.E{Key: "isAccountVerified", Value: false})
	}
	return filter
}

func patchUpdate(patch Patch, now time.Time) bson.D {
	set := bson.D{{Key: "updatedAt", Value: now}}

	if patch.Username != nil {
		set = append(set, bson.E{Key: "username", Value: *patch.Username})
	}
	if patch.Bio != nil {
		set = append(set, bson.E{Key: "bio", Value: *patch.Bio})
	}
	if patch.Avatar != nil {
		set = append(set, bson.E{Key: "profile_avatar", Value: *patch.Avatar})
	}
	if patch.Role != nil {
		set = append(set, bson.E{Key: "role", Value: *patch.Role})
	}
	if patch.PasswordHash != nil {
		set = append(set, bson.E{Key: "password", Value: *patch.PasswordHash})
	}
	if patch.Verified != nil {
		set = append(set, bson.E{Key: "isAccountVerified", Value: *patch.Verified})
	}
	if patch.VerifyOTP != nil {
		value, expires := pairValues(*patch.VerifyOTP)
		set = append(set,
			bson.E{Key: "VerifyOtp", Value: value},
			bson.E{Key: "verifyOtpExpires", Value: expires},
		)
	}
	if patch.Reset != nil {
		value, expires := pairValues(*patch.Reset)
		set = append(set,
			bson.E{Key: "resetPasswordOtp", Value: value},
			bson.E{Key: "resetPasswordExpires", Value: expires},
		)
	}

	return bson.D{{Key: "$set", Value: set}}
}

func listFilter(params ListUsersParams) bson.D {
	filter := bson.D{}

	if params.Search != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(params.Search), Options: "i"}
		filter = append(filter, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "email", Value: pattern}},
			bson.D{{Key: "username", Value: pattern}},
		}})
	}

	if params.Role != "" {
		filter = append(filter, bson.E{Key: "role", Value: params.Role})
	}

	return filter
}
