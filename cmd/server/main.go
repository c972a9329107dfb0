package main

import (
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/meridianpay/rtgs-engine/internal/aggregate"
	"github.com/meridianpay/rtgs-engine/internal/api"
	"github.com/meridianpay/rtgs-engine/internal/config"
	"github.com/meridianpay/rtgs-engine/internal/importer"
	"github.com/meridianpay/rtgs-engine/internal/reconcile"
	"github.com/meridianpay/rtgs-engine/internal/repository"
)

func main() {
	viper.SetDefault("port", "8080")
	viper.SetDefault("db_path", "rtgs.db")
	viper.SetDefault("log_level", "info")
	viper.AutomaticEnv()

	viper.SetConfigName("rtgs")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			logrus.WithError(err).Fatal("read config file")
		}
	}

	level, err := logrus.ParseLevel(viper.GetString("log_level"))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	log := logrus.WithField("component", "server")

	dbPath := viper.GetString("db_path")
	log.WithField("path", dbPath).Info("initializing database")
	db, err := repository.InitDB(dbPath)
	if err != nil {
		log.WithError(err).Fatal("init db")
	}
	defer db.Close()

	// Repositories.
	recordRepo := repository.NewRecordRepo(db)
	batchRepo := repository.NewBatchRepo(db)
	aggRepo := repository.NewAggregateRepo(db)
	ctRepo := repository.NewCtRepo(db)
	configRepo := repository.NewConfigRepo(db)

	// Services.
	resolver := config.NewResolver(configRepo)
	importerSvc := importer.NewService(recordRepo, batchRepo, resolver)
	aggSvc := aggregate.NewService(recordRepo, aggRepo, resolver)
	reconSvc := reconcile.NewService(aggSvc, ctRepo, resolver)

	router := api.NewRouter(importerSvc, aggSvc, reconSvc, resolver, batchRepo, recordRepo, aggRepo, ctRepo)

	port := viper.GetString("port")
	log.WithField("port", port).Info("RTGS settlement engine listening")

	if err := http.ListenAndServe(":"+port, router); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}
