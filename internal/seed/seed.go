package seed

import (
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/config"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/password"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/repository"
	"github.com/sysu-ecnc-dev/account-service/backend/internal/utils"
)

// InsertRandomUsers 往数据库中插入 n 个随机用户，返回成功插入的数量。
// 随机生成的邮箱可能撞上已有用户，唯一约束冲突时跳过该用户继续。
func InsertRandomUsers(cfg *config.Config, repo repository.UserRepository, hasher *password.Hasher, n int) int {
	cnt := 0

	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomUser(cfg.Seed.User.Password, cfg.Email.UserDomain, hasher)
		if err != nil {
			slog.Error("无法生成随机用户", slog.String("error", err.Error()))
			continue
		}

		if err := repo.CreateUser(user); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.ConstraintName == "users_email_key" {
				slog.Warn("随机用户的邮箱已存在，跳过", slog.String("email", user.Email))
				continue
			}
			slog.Error("无法插入随机用户", slog.String("error", err.Error()))
			continue
		}

		cnt++
	}

	return cnt
}
