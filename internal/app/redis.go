package app

import (
	"header-rules/internal/common/logging"
	"header-rules/internal/locks"
	"header-rules/internal/redis"
)

func (app *App) initializeRedis() error {
	if app.Config.RedisAddress == "" {
		app.Logger.Info("Redis: Not configured (sync lock and shared analytics disabled)")
		return nil
	}

	redisConfig := &redis.Config{
		Address:  app.Config.RedisAddress,
		Password: app.Config.RedisPassword,
		DB:       app.Config.RedisDBNumber(),
		PoolSize: app.Config.RedisPoolSizeNumber(),
	}

	redisClient, err := redis.NewClient(redisConfig)
	if err != nil {
		return err
	}

	lockManager, err := locks.NewManager(redisClient)
	if err != nil {
		redisClient.Close()
		return err
	}

	app.RedisClient = redisClient
	app.Locks = lockManager
	app.Logger.Info("Redis: Connected", logging.String("address", app.Config.RedisAddress))
	app.Logger.Info("Distributed sync lock: Enabled")
	return nil
}
