package domain

import "context"

// Repository is the REST surface for one entity collection.
type Repository[T Entity, F any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, fields F) (T, error)
	Update(ctx context.Context, id ID, fields F) (T, error)
	Delete(ctx context.Context, id ID) error
}

type (
	AuthorRepository = Repository[Author, AuthorFields]
	BookRepository   = Repository[Book, BookFields]
	UserRepository   = Repository[User, UserFields]
)

// BorrowRepository covers the loan endpoints
type BorrowRepository interface {
	ListForUser(ctx context.Context, userID ID) ([]BorrowRecord, error)
	Borrow(ctx context.Context, userID, bookID ID) (BorrowRecord, error)
	Return(ctx context.Context, bookID ID) error
}

// AuthClient exchanges credentials for an access token
type AuthClient interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// TokenSource supplies the bearer token for outgoing requests
type TokenSource interface {
	Token() string
}

// TokenStore persists the session token between runs
type TokenStore interface {
	TokenSource
	Email() string
	Save(token, email string) error
	Clear() error
}
