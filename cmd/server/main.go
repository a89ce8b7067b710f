package main

import (
	"context"
	"flag"
	"time"

	"sealedchat/internal/config"
	conversationRepo "sealedchat/internal/repository/conversation"
	"sealedchat/internal/repository/user"
	redisSvc "sealedchat/internal/service/redis"
	"sealedchat/internal/service/server"
	"sealedchat/internal/utils/log"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg := config.LoadFromPath(*configPath)

	mongoDBClient, err := initMongo(cfg.MongoURI)
	if err != nil {
		log.Fatal("connect to mongo failed", zap.Error(err))
	}

	db := mongoDBClient.Database(cfg.MongoDB)

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	redis := redisSvc.NewRedis(rdb)

	userRepo := user.NewUserRepo(db)
	convRepo := conversationRepo.NewConversationRepo(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal("ensure user indexes failed", zap.Error(err))
	}
	if err := convRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal("ensure conversation indexes failed", zap.Error(err))
	}

	s := server.NewHttpServer(cfg, userRepo, convRepo, redis)
	if err := s.Run(); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func initMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	return client, client.Ping(ctx, nil)
}
