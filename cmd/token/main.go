// token 按当前配置的jwt密钥签发访问令牌, 用于开通第一个管理员
//
//	go run ./cmd/token -user 1 -role admin
package main

import (
	"flag"
	"fmt"

	"github.com/xiebiao/bookstore-core/internal/infrastructure/config"
	"github.com/xiebiao/bookstore-core/pkg/jwt"
	"github.com/xiebiao/bookstore-core/pkg/logger"
)

func main() {
	userID := flag.Uint("user", 1, "user id carried in the token")
	role := flag.String("role", jwt.RoleAdmin, "role: user | admin")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.L().WithError(err).Fatal("load config")
	}

	if *role != jwt.RoleUser && *role != jwt.RoleAdmin {
		logger.L().Fatalf("unknown role %q", *role)
	}
	if *userID == 0 {
		logger.L().Fatal("user id must be positive")
	}

	token, err := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Expire).Issue(*userID, *role)
	if err != nil {
		logger.L().WithError(err).Fatal("issue token")
	}
	fmt.Println(token)
}
