package model

import "time"

// AdminUser is a couple-side account that manages one tenant.  The
// json tags are omitted because these structs are used internally by
// the repository layer; handlers define their own response types.
//
// Fields:
//  ID           – primary key identifier.
//  TenantID     – tenant this admin manages.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type AdminUser struct {
	ID           uint64    // admin_users.id
	TenantID     uint64    // admin_users.tenant_id
	Email        string    // admin_users.email
	PasswordHash string    // admin_users.password_hash
	IsActive     bool      // admin_users.is_active
	CreatedAt    time.Time // admin_users.created_at
	UpdatedAt    time.Time // admin_users.updated_at
}
