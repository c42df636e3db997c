package entity

import "time"

// User account; procurement only reads it to find admin recipients
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	Email     string    `json:"email" gorm:"size:200;uniqueIndex"`
	Role      string    `json:"role" gorm:"size:20;not null;default:user"` // admin/employee/supplier/user
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Roles
const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
	RoleSupplier = "supplier"
	RoleUser     = "user"
)
