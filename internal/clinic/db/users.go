package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/clinicware/clinic/internal/clinic/model"
)

const selectUsers = `SELECT id, nome_usuario, senha_hash, nivel_acesso FROM usuarios`

// CreateUser hashes password and stores a new account. A taken username
// fails with ErrDuplicateUsername and leaves the existing account untouched.
func (db *DB) CreateUser(username, password string, access model.AccessLevel) (int64, error) {
	return db.CreateUserContext(context.Background(), username, password, access)
}

// CreateUserContext creates an account with context support.
func (db *DB) CreateUserContext(ctx context.Context, username, password string, access model.AccessLevel) (int64, error) {
	if err := model.ValidateUsername(username); err != nil {
		return 0, err
	}
	if err := model.ValidatePassword(password, password); err != nil {
		return 0, err
	}
	if err := model.ValidateAccess(access); err != nil {
		return 0, err
	}

	hash, err := db.hasher.Hash(password)
	if err != nil {
		return 0, err
	}
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO usuarios (nome_usuario, senha_hash, nivel_acesso) VALUES (?, ?, ?)`,
		username, hash, string(access),
	)
	if err != nil {
		return 0, translate("create user", err, ErrDuplicateUsername)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storageErr("read user id", err)
	}
	return id, nil
}

// GetUser returns the account with the given id, or ErrNotFound.
func (db *DB) GetUser(id int64) (*model.UserInfo, error) {
	return db.GetUserContext(context.Background(), id)
}

// GetUserContext returns an account with context support.
func (db *DB) GetUserContext(ctx context.Context, id int64) (*model.UserInfo, error) {
	u, err := db.getUser(ctx, db.conn, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	return u.Info(), nil
}

// GetUserByUsername returns the account with the given username, or
// ErrNotFound.
func (db *DB) GetUserByUsername(username string) (*model.UserInfo, error) {
	return db.GetUserByUsernameContext(context.Background(), username)
}

// GetUserByUsernameContext looks an account up with context support.
func (db *DB) GetUserByUsernameContext(ctx context.Context, username string) (*model.UserInfo, error) {
	u, err := db.getUser(ctx, db.conn, `WHERE nome_usuario = ?`, username)
	if err != nil {
		return nil, err
	}
	return u.Info(), nil
}

func (db *DB) getUser(ctx context.Context, q sqlx.QueryerContext, where string, arg any) (*model.User, error) {
	var u model.User
	if err := sqlx.GetContext(ctx, q, &u, selectUsers+` `+where, arg); err != nil {
		return nil, translate("get user", err, nil)
	}
	return &u, nil
}

// ListUsers returns every account ordered by username. Hashes are not
// exposed.
func (db *DB) ListUsers() ([]*model.UserInfo, error) {
	return db.ListUsersContext(context.Background())
}

// ListUsersContext lists accounts with context support.
func (db *DB) ListUsersContext(ctx context.Context) ([]*model.UserInfo, error) {
	var users []*model.User
	if err := db.conn.SelectContext(ctx, &users, selectUsers+` ORDER BY nome_usuario, id`); err != nil {
		return nil, translate("list users", err, nil)
	}
	return lo.Map(users, func(u *model.User, _ int) *model.UserInfo { return u.Info() }), nil
}

// VerifyUser checks a username and password. Both an unknown username and a
// wrong password yield ErrInvalidCredentials.
func (db *DB) VerifyUser(username, password string) (*model.UserInfo, error) {
	return db.VerifyUserContext(context.Background(), username, password)
}

// VerifyUserContext verifies credentials with context support. A legacy
// hash that verifies is replaced with a current one.
func (db *DB) VerifyUserContext(ctx context.Context, username, password string) (*model.UserInfo, error) {
	u, err := db.getUser(ctx, db.conn, `WHERE nome_usuario = ?`, username)
	if errors.Is(err, ErrNotFound) {
		db.hasher.VerifyNothing(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, upgrade := db.hasher.Verify(u.PasswordHash, password)
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if upgrade {
		if err := db.setPasswordHash(ctx, u.ID, password); err != nil {
			db.logger.Warn("failed to upgrade legacy password hash", "username", u.Username, "error", err)
		} else {
			db.logger.Info("upgraded legacy password hash", "username", u.Username)
		}
	}
	return u.Info(), nil
}

// ChangePassword replaces an account's password. confirm must equal password.
func (db *DB) ChangePassword(id int64, password, confirm string) error {
	return db.ChangePasswordContext(context.Background(), id, password, confirm)
}

// ChangePasswordContext changes a password with context support.
func (db *DB) ChangePasswordContext(ctx context.Context, id int64, password, confirm string) error {
	if err := model.ValidatePassword(password, confirm); err != nil {
		return err
	}
	if _, err := db.GetUserContext(ctx, id); err != nil {
		return err
	}
	return db.setPasswordHash(ctx, id, password)
}

func (db *DB) setPasswordHash(ctx context.Context, id int64, password string) error {
	hash, err := db.hasher.Hash(password)
	if err != nil {
		return err
	}
	_, err = db.conn.ExecContext(ctx, `UPDATE usuarios SET senha_hash = ? WHERE id = ?`, hash, id)
	return translate("update password", err, nil)
}

// SetUserAccess changes an account's access level. Demoting the only admin
// fails with ErrLastAdmin.
func (db *DB) SetUserAccess(id int64, access model.AccessLevel) error {
	return db.SetUserAccessContext(context.Background(), id, access)
}

// SetUserAccessContext changes an access level with context support.
func (db *DB) SetUserAccessContext(ctx context.Context, id int64, access model.AccessLevel) error {
	if err := model.ValidateAccess(access); err != nil {
		return err
	}
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		u, err := db.getUser(ctx, tx, `WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if u.Access == model.AccessAdmin && access != model.AccessAdmin {
			if err := lastAdminGuard(ctx, tx); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE usuarios SET nivel_acesso = ? WHERE id = ?`, string(access), id); err != nil {
			return translate("update user access", err, nil)
		}
		return nil
	})
}

// DeleteUser removes an account. Removing the only admin fails with
// ErrLastAdmin; an unknown id is not an error.
func (db *DB) DeleteUser(id int64) error {
	return db.DeleteUserContext(context.Background(), id)
}

// DeleteUserContext deletes an account with context support.
func (db *DB) DeleteUserContext(ctx context.Context, id int64) error {
	return db.inTx(ctx, func(tx *sqlx.Tx) error {
		u, err := db.getUser(ctx, tx, `WHERE id = ?`, id)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if u.Access == model.AccessAdmin {
			if err := lastAdminGuard(ctx, tx); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM usuarios WHERE id = ?`, id); err != nil {
			return translate("delete user", err, nil)
		}
		return nil
	})
}

// lastAdminGuard fails when at most one admin account remains.
func lastAdminGuard(ctx context.Context, tx *sqlx.Tx) error {
	var admins int
	if err := tx.GetContext(ctx, &admins, `SELECT COUNT(*) FROM usuarios WHERE nivel_acesso = ?`, string(model.AccessAdmin)); err != nil {
		return storageErr("count admin users", err)
	}
	if admins <= 1 {
		return fmt.Errorf("failed to change user: %w", ErrLastAdmin)
	}
	return nil
}
