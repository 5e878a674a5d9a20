package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type User struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Phone     string       `json:"phone"`
	Name      string       `json:"name"`
	Surname   string       `json:"surname"`
	Role      string       `json:"role"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.Name) + " " + strings.TrimSpace(u.Surname))
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
}

type Service interface {
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
}

var ErrNotFound = errors.New("user_not_found")
