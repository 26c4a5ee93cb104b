package repository

import (
	"database/sql"

	"github.com/sysu-ecnc-dev/account-service/backend/internal/config"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/domain"
)

// UserRepository 是核心依赖的用户存储抽象，测试中用内存实现替换
type UserRepository interface {
	GetUserByID(id int64) (*domain.User, error)
	GetUserByEmail(email string) (*domain.User, error)
	GetAllUsers() ([]*domain.User, error)
	CreateUser(user *domain.User) error
	UpdateUser(user *domain.User) error
	DeleteUser(id int64) error
	RecordLogin(id int64) error
}

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

var _ UserRepository = (*Repository)(nil)

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}
