package api

import (
	"context"
	"net/http"

	"github.com/mmcdole/libraryhub/internal/domain"
)

// Resource is a CRUD collection under one path, e.g. /authors.
type Resource[T domain.Entity, F any] struct {
	client *Client
	path   string
}

// Authors returns the /authors collection
func (c *Client) Authors() *Resource[domain.Author, domain.AuthorFields] {
	return &Resource[domain.Author, domain.AuthorFields]{client: c, path: "/authors"}
}

// Books returns the /books collection
func (c *Client) Books() *Resource[domain.Book, domain.BookFields] {
	return &Resource[domain.Book, domain.BookFields]{client: c, path: "/books"}
}

// Users returns the /users collection
func (c *Client) Users() *Resource[domain.User, domain.UserFields] {
	return &Resource[domain.User, domain.UserFields]{client: c, path: "/users"}
}

func (r *Resource[T, F]) List(ctx context.Context) ([]T, error) {
	var items []T
	err := r.client.do(ctx, request{method: http.MethodGet, path: r.path, result: &items})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (r *Resource[T, F]) Create(ctx context.Context, fields F) (T, error) {
	var created T
	err := r.client.do(ctx, request{method: http.MethodPost, path: r.path, body: fields, result: &created})
	return created, err
}

func (r *Resource[T, F]) Update(ctx context.Context, id domain.ID, fields F) (T, error) {
	var updated T
	err := r.client.do(ctx, request{
		method:     http.MethodPut,
		path:       r.path + "/{id}",
		pathParams: idParam(id),
		body:       fields,
		result:     &updated,
	})
	return updated, err
}

func (r *Resource[T, F]) Delete(ctx context.Context, id domain.ID) error {
	return r.client.do(ctx, request{
		method:     http.MethodDelete,
		path:       r.path + "/{id}",
		pathParams: idParam(id),
	})
}

// Loans returns the borrow endpoints
func (c *Client) Loans() *Loans {
	return &Loans{client: c}
}

// Loans implements domain.BorrowRepository
type Loans struct {
	client *Client
}

type borrowRequest struct {
	UserID domain.ID `json:"user_id"`
	BookID domain.ID `json:"book_id"`
}

func (l *Loans) ListForUser(ctx context.Context, userID domain.ID) ([]domain.BorrowRecord, error) {
	var records []domain.BorrowRecord
	err := l.client.do(ctx, request{
		method:     http.MethodGet,
		path:       "/borrow/user/{id}",
		pathParams: idParam(userID),
		result:     &records,
	})
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []domain.BorrowRecord{}
	}
	return records, nil
}

func (l *Loans) Borrow(ctx context.Context, userID, bookID domain.ID) (domain.BorrowRecord, error) {
	var rec domain.BorrowRecord
	err := l.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/borrow",
		body:   borrowRequest{UserID: userID, BookID: bookID},
		result: &rec,
	})
	return rec, err
}

func (l *Loans) Return(ctx context.Context, bookID domain.ID) error {
	return l.client.do(ctx, request{
		method:     http.MethodPost,
		path:       "/borrow/return/{id}",
		pathParams: idParam(bookID),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges credentials for an access token. It implements
// domain.AuthClient.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/login",
		body:   loginRequest{Email: email, Password: password},
		result: &resp,
	})
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", domain.ErrAuthFailed
	}
	return resp.AccessToken, nil
}
