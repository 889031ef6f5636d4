package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	usersCollection  = "users"
	emailsCollection = "user_emails"
)

type firestoreRepository struct {
	client *firestore.Client
}

// NewFirestoreRepository instantiates a Firestore-backed repository. Email uniqueness is
// enforced through an index collection keyed by the normalized address.
func NewFirestoreRepository(client *firestore.Client) Repository {
	return &firestoreRepository{client: client}
}

type userDocument struct {
	Name         string    `firestore:"name"`
	Email        string    `firestore:"email"`
	PasswordHash string    `firestore:"passwordHash"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

func (r *firestoreRepository) users() *firestore.CollectionRef {
	return r.client.Collection(usersCollection)
}

func (r *firestoreRepository) emails() *firestore.CollectionRef {
	return r.client.Collection(emailsCollection)
}

func (r *firestoreRepository) Create(ctx context.Context, user User) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		emailRef := r.emails().Doc(user.Email)
		_, err := tx.Get(emailRef)
		if err == nil {
			return ErrEmailTaken
		}
		if status.Code(err) != codes.NotFound {
			return err
		}

		if err := tx.Create(emailRef, map[string]any{"userId": user.ID}); err != nil {
			return err
		}
		return tx.Create(r.users().Doc(user.ID), userDocument{
			Name:         user.Name,
			Email:        user.Email,
			PasswordHash: user.PasswordHash,
			CreatedAt:    user.CreatedAt,
			UpdatedAt:    user.UpdatedAt,
		})
	})
	if errors.Is(err, ErrEmailTaken) || status.Code(err) == codes.AlreadyExists {
		return ErrEmailTaken
	}
	return err
}

func (r *firestoreRepository) GetByID(ctx context.Context, id string) (User, error) {
	doc, err := r.users().Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return snapshotToUser(doc)
}

func (r *firestoreRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	iter := r.users().Where("email", "==", email).Limit(1).Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return snapshotToUser(doc)
}

func (r *firestoreRepository) Update(ctx context.Context, user User) error {
	_, err := r.users().Doc(user.ID).Update(ctx, []firestore.Update{
		{Path: "name", Value: user.Name},
		{Path: "updatedAt", Value: user.UpdatedAt},
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

func (r *firestoreRepository) Delete(ctx context.Context, id string) error {
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref := r.users().Doc(id)
		doc, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		var payload userDocument
		if err := doc.DataTo(&payload); err != nil {
			return fmt.Errorf("decode user %s: %w", id, err)
		}

		if err := tx.Delete(ref); err != nil {
			return err
		}
		return tx.Delete(r.emails().Doc(payload.Email))
	})
}

func (r *firestoreRepository) List(ctx context.Context, page Pagination) ([]User, PageInfo, error) {
	page = page.normalized()

	query := r.users().OrderBy("createdAt", firestore.Asc)
	if offset := page.offset(); offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Limit(page.PageSize).Documents(ctx)
	defer iter.Stop()

	users := make([]User, 0, page.PageSize)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, PageInfo{}, err
		}

		user, err := snapshotToUser(doc)
		if err != nil {
			return nil, PageInfo{}, err
		}
		users = append(users, user)
	}

	total, err := r.count(ctx)
	if err != nil {
		return nil, PageInfo{}, err
	}
	return users, newPageInfo(page, total), nil
}

func (r *firestoreRepository) count(ctx context.Context) (int, error) {
	iter := r.users().Select().Documents(ctx)
	defer iter.Stop()

	total := 0
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("count query failed: %w", err)
		}
		total++
	}
	return total, nil
}

func snapshotToUser(doc *firestore.DocumentSnapshot) (User, error) {
	var payload userDocument
	if err := doc.DataTo(&payload); err != nil {
		return User{}, fmt.Errorf("decode user %s: %w", doc.Ref.ID, err)
	}
	return User{
		ID:           doc.Ref.ID,
		Name:         payload.Name,
		Email:        payload.Email,
		PasswordHash: payload.PasswordHash,
		CreatedAt:    payload.CreatedAt,
		UpdatedAt:    payload.UpdatedAt,
	}, nil
}
