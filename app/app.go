package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/viper"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/discord-votebot/config"
	"github.com/discord-votebot/db/dao"
	"github.com/discord-votebot/db/model"
	"github.com/discord-votebot/gateway"
	"github.com/discord-votebot/logging"
	"github.com/discord-votebot/metrics"
	"github.com/discord-votebot/migration"
	"github.com/discord-votebot/vote"
	"github.com/discord-votebot/wiper"
)

type App struct {
	cfg            *config.Config
	discordGateway *gateway.DiscordGateway
	voteController *vote.VoteController
	migrator       *migration.Migrator
	orphanWiper    *wiper.OrphanWiper
	metricService  *metrics.MetricService
}

func NewApp(cfg *config.Config) *App {
	db, err := openDB(&cfg.DBConfig)
	if err != nil {
		panic(fmt.Sprintf("open db error, err=%+v", err.Error()))
	}

	dbConfig, err := db.DB()
	if err != nil {
		panic(err)
	}
	dbConfig.SetMaxIdleConns(cfg.DBConfig.MaxIdleConns)
	dbConfig.SetMaxOpenConns(cfg.DBConfig.MaxOpenConns)

	model.InitVoteTable(db)
	model.InitVotePointTable(db)
	model.InitVoteRoleFilterTable(db)

	voteDao := dao.NewVoteDao(db)
	daoManager := dao.NewDaoManager(voteDao)

	metricService := metrics.NewMetricService(cfg)

	token := viper.GetString(config.FlagConfigBotToken)
	if token == "" {
		token = getBotToken(&cfg.DiscordConfig)
	}
	cfg.DiscordConfig.Token = token

	discordGateway, err := gateway.NewDiscordGateway(&cfg.DiscordConfig)
	if err != nil {
		panic(fmt.Sprintf("create discord gateway error, err=%+v", err.Error()))
	}

	voteController := vote.NewVoteController(cfg, daoManager, discordGateway, metricService)
	discordGateway.SetReactionHandler(voteController)

	migrator := migration.NewMigrator(daoManager, metricService)
	orphanWiper := wiper.NewOrphanWiper(daoManager, &cfg.VoteConfig, metricService)

	return &App{
		cfg:            cfg,
		discordGateway: discordGateway,
		voteController: voteController,
		migrator:       migrator,
		orphanWiper:    orphanWiper,
		metricService:  metricService,
	}
}

func (a *App) Start() {
	if err := a.migrator.MigrateDir(a.cfg.VoteConfig.LegacyDataDir); err != nil {
		logging.Logger.Errorf("legacy migration error, err=%+v", err.Error())
	}
	if err := a.discordGateway.Start(); err != nil {
		panic(fmt.Sprintf("start discord gateway error, err=%+v", err.Error()))
	}
	if err := a.voteController.Resume(); err != nil {
		logging.Logger.Errorf("resume active votes error, err=%+v", err.Error())
	}
	go a.voteController.SweepLoop()
	go a.orphanWiper.WipeLoop()
	a.metricService.Start()
}

func (a *App) Stop() {
	a.voteController.Stop()
	if err := a.discordGateway.Stop(); err != nil {
		logging.Logger.Errorf("stop discord gateway error, err=%+v", err.Error())
	}
}

func openDB(cfg *config.DBConfig) (*gorm.DB, error) {
	switch cfg.Dialect {
	case config.DBDialectSqlite3:
		return gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	default:
		password := viper.GetString(config.FlagConfigDbPass)
		if password == "" {
			password = getDBPass(cfg)
		}
		dbPath := fmt.Sprintf("%s:%s@%s", cfg.Username, password, cfg.DBPath)
		return gorm.Open(mysql.Open(dbPath), &gorm.Config{})
	}
}

func getDBPass(cfg *config.DBConfig) string {
	if cfg.KeyType == config.KeyTypeAWSSecret {
		result, err := config.GetSecret(cfg.AWSSecretName, cfg.AWSRegion)
		if err != nil {
			panic(err)
		}
		type DBPass struct {
			DbPass string `json:"db_pass"`
		}
		var dbPassword DBPass
		err = json.Unmarshal([]byte(result), &dbPassword)
		if err != nil {
			panic(err)
		}
		return dbPassword.DbPass
	}
	return cfg.Password
}

func getBotToken(cfg *config.DiscordConfig) string {
	if cfg.KeyType == config.KeyTypeAWSSecret {
		result, err := config.GetSecret(cfg.AWSSecretName, cfg.AWSRegion)
		if err != nil {
			panic(err)
		}
		type BotToken struct {
			Token string `json:"token"`
		}
		var token BotToken
		err = json.Unmarshal([]byte(result), &token)
		if err != nil {
			panic(err)
		}
		return token.Token
	}
	return cfg.Token
}
