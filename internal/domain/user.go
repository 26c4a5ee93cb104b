package domain

import (
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleEditor   Role = "editor"
)

// AllRoles 是角色的封闭枚举，新增角色必须同时修改这里
var AllRoles = []Role{RoleAdmin, RoleCustomer, RoleStaff, RoleEditor}

func (r Role) IsValid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	FirstName    string     `json:"firstName"`
	LastName     string     `json:"lastName"`
	PhoneNumber  string     `json:"phoneNumber,omitempty"`
	LastLogin    *time.Time `json:"lastLogin,omitempty"`
	LoginCount   int64      `json:"loginCount"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	Version      int32      `json:"-"`
}
