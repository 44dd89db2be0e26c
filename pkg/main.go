package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	pkg "github.com/echonet/echonet/pkg/internal"
	"github.com/echonet/echonet/pkg/internal/bot"
	"github.com/echonet/echonet/pkg/internal/database"
	"github.com/echonet/echonet/pkg/internal/platform"
	"github.com/echonet/echonet/pkg/internal/registry"
	"github.com/echonet/echonet/pkg/internal/server"
	"github.com/echonet/echonet/pkg/internal/server/api"
	"github.com/echonet/echonet/pkg/internal/services"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
}

func main() {
	// Configure settings
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.SetConfigName("settings")
	viper.SetConfigType("toml")

	viper.SetDefault("registry.channels_path", "channels.json")
	viper.SetDefault("registry.guilds_path", "guilds.json")
	viper.SetDefault("audit.database_path", "audit.db")
	viper.SetDefault("sweeper.cadence", "@every 5m")

	// Load settings
	if err := viper.ReadInConfig(); err != nil {
		log.Panic().Err(err).Msg("An error occurred when loading settings.")
	}

	// Connect to database
	if err := database.NewSource(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connect to database.")
	} else if err := database.RunMigration(database.C); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when running database auto migration.")
	}

	// Connect to the gateway
	session, err := discordgo.New("Bot " + viper.GetString("bot_token"))
	if err != nil {
		log.Fatal().Err(err).Msg("An error occurred when creating the gateway session.")
	}

	// Lifecycle engine
	store := registry.NewStore(viper.GetString("registry.channels_path"))
	settings := registry.NewSettingsStore(viper.GetString("registry.guilds_path"))
	engine := services.NewEngine(store, settings, platform.NewDiscordClient(session))
	audit := services.NewAuditRecorder(database.C)
	engine.UseAudit(audit)

	driver := bot.New(session, engine, settings)
	engine.UseMenus(driver)
	engine.UseRequestNotifier(driver)

	if err := session.Open(); err != nil {
		log.Fatal().Err(err).Msg("An error occurred when connecting to the gateway.")
	}

	// Server
	sweeper := services.NewSweeper(engine)
	server.NewServer(api.Deps{
		Engine:  engine,
		Sweeper: sweeper,
		Audit:   audit,
	})
	go server.Listen()

	// Configure timed tasks
	quartz := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(&log.Logger)))
	quartz.AddFunc(viper.GetString("sweeper.cadence"), func() {
		report := sweeper.RunSweepOnce(context.Background())
		if report.Expired > 0 {
			log.Info().
				Str("sweep", report.SweepID).
				Int("expired", report.Expired).
				Int("removed", len(report.Removed)).
				Int("failed", len(report.Failed)).
				Msg("Expiry sweep finished.")
		}
	})
	quartz.Start()

	// Messages
	log.Info().Msgf("EchoNet v%s is started...", pkg.AppVersion)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msgf("EchoNet v%s is quitting...", pkg.AppVersion)

	quartz.Stop()
	_ = session.Close()
}
