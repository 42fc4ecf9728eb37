package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"sitegen/internal/config"
	"sitegen/internal/database"
)

func main() {
	var (
		userID  = flag.String("user-id", "", "目标用户 ID（认证服务中的 uuid，必填）")
		credits = flag.Int("credits", -1, "设置额度（可选，>= 0 生效）")
		role    = flag.String("role", "", "设置角色 user|admin（可选）")
		dbHost  = flag.String("db-host", "", "数据库 Host（可选，默认读 DATABASE_HOST）")
		dbPort  = flag.Int("db-port", 0, "数据库 Port（可选，默认读 DATABASE_PORT）")
		dbName  = flag.String("db-name", "", "数据库名（可选，默认读 POSTGRES_DB）")
		dbUser  = flag.String("db-user", "", "数据库用户（可选，默认读 POSTGRES_USER）")
		dbPass  = flag.String("db-password", "", "数据库密码（可选，默认读 POSTGRES_PASSWORD）")
		sslMode = flag.String("db-sslmode", "", "数据库 SSLMODE（可选，默认读 DATABASE_SSLMODE）")
	)
	flag.Parse()

	id := strings.TrimSpace(*userID)
	if id == "" {
		log.Fatal("missing required flag: --user-id")
	}
	if *credits < 0 && strings.TrimSpace(*role) == "" {
		log.Fatal("nothing to do: pass --credits and/or --role")
	}

	dbCfg, err := loadDatabaseConfig(*dbHost, *dbPort, *dbName, *dbUser, *dbPass, *sslMode)
	if err != nil {
		log.Fatalf("load database config: %v", err)
	}

	db, err := database.InitDatabase(dbCfg)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	ctx := context.Background()
	if err := database.RunMigrations(ctx, db); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	profile, err := apply(ctx, database.NewStore(db), id, *credits, strings.TrimSpace(*role))
	if err != nil {
		log.Fatalf("update profile: %v", err)
	}

	fmt.Printf("已更新用户资料：\n")
	fmt.Printf("用户 ID: %s\n", profile.ID)
	fmt.Printf("额度: %d\n", profile.Credits)
	fmt.Printf("角色: %s\n", profile.Role)
}

type profileUpdater interface {
	GetProfile(ctx context.Context, id string) (*database.Profile, error)
	SetCredits(ctx context.Context, userID string, credits int) (*database.Profile, error)
	SetRole(ctx context.Context, userID, role string) (*database.Profile, error)
}

// apply 只修改已存在的资料；资料由用户首次登录时创建。
func apply(ctx context.Context, store profileUpdater, userID string, credits int, role string) (*database.Profile, error) {
	profile, err := store.GetProfile(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("profile %q does not exist; the user must sign in once first", userID)
	}
	if err != nil {
		return nil, err
	}
	if credits >= 0 {
		if profile, err = store.SetCredits(ctx, userID, credits); err != nil {
			return nil, err
		}
	}
	if role != "" {
		if profile, err = store.SetRole(ctx, userID, role); err != nil {
			return nil, err
		}
	}
	return profile, nil
}

func loadDatabaseConfig(host string, port int, name, user, password, sslmode string) (config.DatabaseConfig, error) {
	if strings.TrimSpace(host) == "" {
		host = os.Getenv("DATABASE_HOST")
	}
	if port <= 0 {
		if env := strings.TrimSpace(os.Getenv("DATABASE_PORT")); env != "" {
			p, err := strconv.Atoi(env)
			if err != nil {
				return config.DatabaseConfig{}, fmt.Errorf("parse DATABASE_PORT: %w", err)
			}
			port = p
		}
	}
	if strings.TrimSpace(name) == "" {
		name = os.Getenv("POSTGRES_DB")
	}
	if strings.TrimSpace(user) == "" {
		user = os.Getenv("POSTGRES_USER")
	}
	if strings.TrimSpace(password) == "" {
		password = os.Getenv("POSTGRES_PASSWORD")
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = os.Getenv("DATABASE_SSLMODE")
	}

	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if port <= 0 {
		port = 5432
	}
	if strings.TrimSpace(sslmode) == "" {
		sslmode = "require"
	}
	if strings.TrimSpace(name) == "" {
		name = "postgres"
	}
	if strings.TrimSpace(user) == "" {
		return config.DatabaseConfig{}, errors.New("database user is required (POSTGRES_USER)")
	}
	if strings.TrimSpace(password) == "" {
		return config.DatabaseConfig{}, errors.New("database password is required (POSTGRES_PASSWORD)")
	}

	return config.DatabaseConfig{
		Host:     host,
		Port:     port,
		Name:     name,
		User:     user,
		Password: password,
		SSLMode:  sslmode,
	}, nil
}
