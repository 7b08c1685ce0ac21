// Package repository contains data access logic separated from HTTP handlers.
// Every method issues a single SQL statement against the SQLite store and
// hands driver errors back unchanged so handlers can report them verbatim.
package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/case-approval-tracker/internal/model"
)

// UserRepo encapsulates queries on the users table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its ID.  Usernames are not unique and
// may be nil; non-string values are stored in their text form.
func (r *UserRepo) Create(ctx context.Context, username any) (int64, error) {
	v, err := bindValue(username)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx, "INSERT INTO users (username) VALUES (?)", v)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// List returns every user in storage order.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id, username FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.User{}
	for rows.Next() {
		var (
			u    model.User
			name sql.NullString
		)
		if err := rows.Scan(&u.ID, &name); err != nil {
			return nil, err
		}
		u.Username = stringPtr(name)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
