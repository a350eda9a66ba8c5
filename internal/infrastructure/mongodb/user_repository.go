package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/oksasatya/bizbridge-auth/internal/domain/entity"
	"github.com/oksasatya/bizbridge-auth/internal/domain/repository"
)

type resetDoc struct {
	Stage      string    `bson:"stage"`
	SecretHash string    `bson:"secret_hash"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

type emailOTPDoc struct {
	CodeHash  string    `bson:"code_hash"`
	ExpiresAt time.Time `bson:"expires_at"`
}

type userDoc struct {
	ID            string       `bson:"_id"`
	Email         string       `bson:"email"`
	Phone         string       `bson:"phone,omitempty"`
	Password      string       `bson:"password"`
	Name          string       `bson:"name"`
	AvatarURL     string       `bson:"avatar_url,omitempty"`
	Role          string       `bson:"role"`
	EmailVerified bool         `bson:"email_verified"`
	Pending       bool         `bson:"pending"`
	EmailOTP      *emailOTPDoc `bson:"email_otp,omitempty"`
	Reset         *resetDoc    `bson:"reset,omitempty"`
	CreatedAt     time.Time    `bson:"created_at"`
	UpdatedAt     time.Time    `bson:"updated_at"`
}

func toDoc(u *entity.User) *userDoc {
	d := &userDoc{
		ID:            u.ID,
		Email:         u.Email,
		Phone:         u.Phone,
		Password:      u.Password,
		Name:          u.Name,
		AvatarURL:     u.AvatarURL,
		Role:          string(u.Role),
		EmailVerified: u.EmailVerified,
		Pending:       u.Pending,
		Reset:         toResetDoc(u.Reset),
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
	if u.EmailOTP != nil {
		d.EmailOTP = &emailOTPDoc{CodeHash: u.EmailOTP.CodeHash, ExpiresAt: u.EmailOTP.ExpiresAt}
	}
	return d
}

func toResetDoc(r entity.ResetState) *resetDoc {
	if r.IsNone() {
		return nil
	}
	return &resetDoc{Stage: string(r.Stage), SecretHash: r.SecretHash, ExpiresAt: r.ExpiresAt}
}

func (d *userDoc) toEntity() *entity.User {
	u := &entity.User{
		ID:            d.ID,
		Email:         d.Email,
		Phone:         d.Phone,
		Password:      d.Password,
		Name:          d.Name,
		AvatarURL:     d.AvatarURL,
		Role:          entity.Role(d.Role),
		EmailVerified: d.EmailVerified,
		Pending:       d.Pending,
		Reset:         entity.NoReset(),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.EmailOTP != nil {
		u.EmailOTP = &entity.EmailOTP{CodeHash: d.EmailOTP.CodeHash, ExpiresAt: d.EmailOTP.ExpiresAt}
	}
	if d.Reset != nil {
		switch entity.ResetStage(d.Reset.Stage) {
		case entity.ResetOTPIssued:
			u.Reset = entity.OTPIssued(d.Reset.SecretHash, d.Reset.ExpiresAt)
		case entity.ResetTokenIssued:
			u.Reset = entity.TokenIssued(d.Reset.SecretHash, d.Reset.ExpiresAt)
		}
	}
	return u
}

// wrapError maps driver errors to repository errors.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}

// UserRepository stores users in the users collection.
type UserRepository struct {
	col *mongo.Collection
	now func() time.Time
}

func NewUserRepository(s *Store) *UserRepository {
	return &UserRepository{col: s.col(ColUsers), now: time.Now}
}

// stamp truncates to the millisecond precision BSON dates keep.
func (r *UserRepository) stamp() time.Time {
	return r.now().UTC().Truncate(time.Millisecond)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D) (*entity.User, error) {
	var d userDoc
	if err := r.col.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, wrapError(err)
	}
	return d.toEntity(), nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := r.stamp()
	u.CreatedAt, u.UpdatedAt = now, now
	u.Reset = u.Reset.Normalize()
	_, err := r.col.InsertOne(ctx, toDoc(u))
	return wrapError(err)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*entity.User, error) {
	if phone == "" {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.D{{Key: "phone", Value: phone}})
}

func (r *UserRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*entity.User, error) {
	if tokenHash == "" {
		return nil, repository.ErrNotFound
	}
	return r.findOne(ctx, bson.D{
		{Key: "reset.stage", Value: string(entity.ResetTokenIssued)},
		{Key: "reset.secret_hash", Value: tokenHash},
	})
}

// update applies a single-document update. When the filter carries a guard
// beyond _id and nothing matched, it reports ErrStateChanged unless the user
// is gone.
func (r *UserRepository) update(ctx context.Context, id string, guard bson.D, update bson.D) error {
	filter := append(bson.D{{Key: "_id", Value: id}}, guard...)
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return wrapError(err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if len(guard) == 0 {
		return repository.ErrNotFound
	}
	if _, err := r.GetByID(ctx, id); errors.Is(err, repository.ErrNotFound) {
		return repository.ErrNotFound
	}
	return repository.ErrStateChanged
}

func (r *UserRepository) setOps(set bson.D, unset ...string) bson.D {
	set = append(set, bson.E{Key: "updated_at", Value: r.stamp()})
	ops := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		u := bson.D{}
		for _, k := range unset {
			u = append(u, bson.E{Key: k, Value: ""})
		}
		ops = append(ops, bson.E{Key: "$unset", Value: u})
	}
	return ops
}

// resetGuard matches the stored reset sub-document against expect.
func resetGuard(expect entity.ResetState) bson.D {
	if expect.IsNone() {
		return bson.D{{Key: "reset", Value: bson.D{{Key: "$exists", Value: false}}}}
	}
	return bson.D{
		{Key: "reset.stage", Value: string(expect.Stage)},
		{Key: "reset.secret_hash", Value: expect.SecretHash},
	}
}

func (r *UserRepository) resetOps(next entity.ResetState, extra bson.D) bson.D {
	if d := toResetDoc(next); d != nil {
		return r.setOps(append(extra, bson.E{Key: "reset", Value: d}))
	}
	return r.setOps(extra, "reset")
}

func (r *UserRepository) CompleteRegistration(ctx context.Context, u *entity.User) error {
	set := bson.D{
		{Key: "phone", Value: u.Phone},
		{Key: "name", Value: u.Name},
		{Key: "password", Value: u.Password},
		{Key: "role", Value: string(u.Role)},
		{Key: "pending", Value: false},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d userDoc
	err := r.col.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: u.ID}, {Key: "pending", Value: true}},
		r.setOps(set), opts).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrDuplicate
	}
	if err != nil {
		return wrapError(err)
	}
	*u = *d.toEntity()
	return nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id string, in repository.ProfileUpdate) (*entity.User, error) {
	set := bson.D{}
	if in.Name != "" {
		set = append(set, bson.E{Key: "name", Value: in.Name})
	}
	if in.Phone != "" {
		set = append(set, bson.E{Key: "phone", Value: in.Phone})
	}
	if in.AvatarURL != "" {
		set = append(set, bson.E{Key: "avatar_url", Value: in.AvatarURL})
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d userDoc
	if err := r.col.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, r.setOps(set), opts).Decode(&d); err != nil {
		return nil, wrapError(err)
	}
	return d.toEntity(), nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.update(ctx, id, nil, r.setOps(bson.D{{Key: "password", Value: passwordHash}}))
}

func (r *UserRepository) SetReset(ctx context.Context, id string, next entity.ResetState) error {
	return r.update(ctx, id, nil, r.resetOps(next, bson.D{}))
}

func (r *UserRepository) SwapReset(ctx context.Context, id string, expect, next entity.ResetState) error {
	return r.update(ctx, id, resetGuard(expect), r.resetOps(next, bson.D{}))
}

func (r *UserRepository) CompleteReset(ctx context.Context, id string, expect entity.ResetState, passwordHash string) error {
	return r.update(ctx, id, resetGuard(expect),
		r.resetOps(entity.NoReset(), bson.D{{Key: "password", Value: passwordHash}}))
}

func (r *UserRepository) SetEmailOTP(ctx context.Context, id string, otp *entity.EmailOTP) error {
	if otp == nil {
		return r.update(ctx, id, nil, r.setOps(bson.D{}, "email_otp"))
	}
	doc := &emailOTPDoc{CodeHash: otp.CodeHash, ExpiresAt: otp.ExpiresAt}
	return r.update(ctx, id, nil, r.setOps(bson.D{{Key: "email_otp", Value: doc}}))
}

func (r *UserRepository) ClearEmailOTP(ctx context.Context, id, codeHash string) error {
	return r.update(ctx, id,
		bson.D{{Key: "email_otp.code_hash", Value: codeHash}},
		r.setOps(bson.D{}, "email_otp"))
}

func (r *UserRepository) ConfirmEmail(ctx context.Context, id, codeHash string) error {
	return r.update(ctx, id,
		bson.D{{Key: "email_otp.code_hash", Value: codeHash}},
		r.setOps(bson.D{{Key: "email_verified", Value: true}}, "email_otp"))
}

func (r *UserRepository) ListByRole(ctx context.Context, role entity.Role) ([]*entity.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.D{{Key: "role", Value: string(role)}}, opts)
	if err != nil {
		return nil, wrapError(err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	out := []*entity.User{}
	for cursor.Next(ctx) {
		var d userDoc
		if err := cursor.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.toEntity())
	}
	return out, cursor.Err()
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return wrapError(err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
